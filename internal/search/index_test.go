package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

// fakeES records requests and answers like a single node cluster.
type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"}}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"6f1c1c8e-8c43-4c9a-9d43-0c5b0f8b6a11","name":"Red hat","price":1500,"category":"hats"}}]}}`))
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func newTestIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	f := &fakeES{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)
	return NewIndex(client, ""), f
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	idx, f := newTestIndex(t)
	total, prods, err := idx.Search(context.Background(), "red hat", 0, 10)
	require.NoError(t, err)

	assert.EqualValues(t, 1, total)
	require.Len(t, prods, 1)
	assert.Equal(t, "Red hat", prods[0].Name)
	assert.EqualValues(t, 1500, prods[0].Price)

	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.bodies[len(f.bodies)-1]
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(last), &q))
	assert.Equal(t, "red hat", q["query"].(map[string]any)["multi_match"].(map[string]any)["query"])
	assert.Contains(t, f.requests, "POST /products/_search")
}

func TestIndex_IndexAndDelete(t *testing.T) {
	t.Parallel()

	idx, f := newTestIndex(t)
	p := models.Product{ID: uuid.New(), Name: "Red hat", Price: 1500, Category: "hats"}

	require.NoError(t, idx.IndexProduct(context.Background(), p))
	require.NoError(t, idx.DeleteProduct(context.Background(), p.ID.String()))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.requests, "PUT /products/_doc/"+p.ID.String())
	assert.Contains(t, f.requests, "DELETE /products/_doc/"+p.ID.String())
}

func TestNewClient_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{URL: "http://127.0.0.1:1"})
	assert.Error(t, err)
}
