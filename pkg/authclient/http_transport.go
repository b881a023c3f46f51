package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	maxBodyBytes = 8 << 20

	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	csrfCookie    = "XSRF-TOKEN"
	csrfHeader    = "X-CSRF-Token"
)

// HTTPTransport sends requests to the storefront API. Credentials live only in
// its cookie jar.
type HTTPTransport struct {
	base   *url.URL
	jar    *swapJar
	client *http.Client
}

type HTTPOption func(*http.Client)

func WithTimeout(d time.Duration) HTTPOption {
	return func(c *http.Client) { c.Timeout = d }
}

func WithRoundTripper(rt http.RoundTripper) HTTPOption {
	return func(c *http.Client) { c.Transport = rt }
}

func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	jar, err := newSwapJar()
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Jar:     jar,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	return &HTTPTransport{base: base, jar: jar, client: client}, nil
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	u := t.base.ResolveReference(&url.URL{Path: strings.TrimLeft(req.Path, "/")})
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s %s: %w", ErrRequestFailed, req.Method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Key != "" {
		httpReq.Header.Set("X-Request-ID", req.Key)
	}
	t.echoCSRF(httpReq)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", ErrRequestFailed, req.Method, req.Path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{
			Code:    resp.StatusCode,
			Method:  req.Method,
			Path:    req.Path,
			Message: errorMessage(data),
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// ResetCredentials forgets every stored cookie.
func (t *HTTPTransport) ResetCredentials() {
	t.jar.reset()
}

// HasCredentials reports whether an access or refresh cookie is stored for the API origin.
func (t *HTTPTransport) HasCredentials() bool {
	for _, c := range t.jar.Cookies(t.base) {
		if c.Name == accessCookie || c.Name == refreshCookie {
			return true
		}
	}
	return false
}

// echoCSRF copies the server issued CSRF cookie into the header on unsafe
// methods, the way a browser page would.
func (t *HTTPTransport) echoCSRF(r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return
	}
	for _, c := range t.jar.Cookies(t.base) {
		if c.Name == csrfCookie {
			r.Header.Set(csrfHeader, c.Value)
			r.Header.Set("Origin", t.base.Scheme+"://"+t.base.Host)
			return
		}
	}
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveCookies writes the cookies for the API origin as JSON.
func (t *HTTPTransport) SaveCookies(w io.Writer) error {
	cookies := t.jar.Cookies(t.base)
	out := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, storedCookie{Name: c.Name, Value: c.Value})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// LoadCookies restores cookies written by SaveCookies.
func (t *HTTPTransport) LoadCookies(r io.Reader) error {
	var in []storedCookie
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	t.jar.SetCookies(t.base, cookies)
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch m := payload.Message.(type) {
		case string:
			if m != "" {
				return m
			}
		case nil:
		default:
			return fmt.Sprint(m)
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(body))
}

// swapJar lets ResetCredentials replace the jar while requests are in flight.
type swapJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSwapJar() (*swapJar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &swapJar{jar: j}, nil
}

func (s *swapJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.jar.SetCookies(u, cookies)
}

func (s *swapJar) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Cookies(u)
}

func (s *swapJar) reset() {
	j, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	s.mu.Lock()
	s.jar = j
	s.mu.Unlock()
}
