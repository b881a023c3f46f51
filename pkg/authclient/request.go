package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Request is an immutable description of one API call. The With* helpers
// return modified copies, so a Request can be re-sent after a refresh.
type Request struct {
	Key    string
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func NewRequest(method, path string) Request {
	return Request{Key: uuid.NewString(), Method: method, Path: path}
}

func (r Request) WithQuery(key, value string) Request {
	q := url.Values{}
	maps.Copy(q, r.Query)
	q.Set(key, value)
	r.Query = q
	return r
}

func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	r.Header = h
	return r
}

func (r Request) WithJSON(v any) (Request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("encode %s %s body: %w", r.Method, r.Path, err)
	}
	r = r.WithHeader("Content-Type", "application/json")
	r.Body = b
	return r, nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals a JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

type TransportFunc func(ctx context.Context, req Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Send builds a JSON request, runs it through t and decodes the reply into out.
func Send(ctx context.Context, t Transport, method, path string, in, out any) error {
	req := NewRequest(method, path)
	if in != nil {
		var err error
		if req, err = req.WithJSON(in); err != nil {
			return err
		}
	}
	resp, err := t.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
