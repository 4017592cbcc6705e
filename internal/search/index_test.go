package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"tire-shop/internal/config"
	"tire-shop/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeCluster answers every request with the next scripted reply.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	reply    func(req *http.Request) (int, string)
}

func (f *fakeCluster) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: req.Method, Path: req.URL.Path, Body: body})
	f.mu.Unlock()

	status, payload := http.StatusOK, `{}`
	if f.reply != nil {
		status, payload = f.reply(req)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    req,
	}, nil
}

func (f *fakeCluster) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestIndex(t *testing.T, cluster *fakeCluster) *Index {
	t.Helper()
	client, err := NewClient(config.SearchConfig{URL: "http://search.local:9200", Index: "products"}, cluster)
	require.NoError(t, err)
	return NewIndex(client, "products", zap.NewNop())
}

func TestIndex_CatalogChangedPutsDocument(t *testing.T) {
	cluster := &fakeCluster{}
	ix := newTestIndex(t, cluster)
	p := &domain.Product{ID: domain.NewID(), Brand: "Pirelli", Model: "P Zero", Code: "PZ-1", Size: "225/45 R17", Category: "auto", Price: 310, Stock: 2}

	err := ix.CatalogChanged(context.Background(), domain.CatalogEvent{Type: domain.ProductCreated, ProductID: p.ID, Product: p})
	require.NoError(t, err)

	req := cluster.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/products/_doc/"+p.ID.Hex(), req.Path)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Pirelli", doc["brand"])
	assert.Equal(t, "225/45 R17", doc["size"])
	assert.NotContains(t, doc, "thumbnails")
}

func TestIndex_CatalogChangedDeletes(t *testing.T) {
	cluster := &fakeCluster{reply: func(*http.Request) (int, string) {
		return http.StatusNotFound, `{"result":"not_found"}`
	}}
	ix := newTestIndex(t, cluster)
	id := domain.NewID()

	err := ix.CatalogChanged(context.Background(), domain.CatalogEvent{Type: domain.ProductDeleted, ProductID: id})
	require.NoError(t, err, "a missing document is already deleted")

	req := cluster.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/products/_doc/"+id.Hex(), req.Path)
}

func TestIndex_UpdateWithoutDocumentFails(t *testing.T) {
	ix := newTestIndex(t, &fakeCluster{})
	err := ix.CatalogChanged(context.Background(), domain.CatalogEvent{Type: domain.ProductUpdated, ProductID: domain.NewID()})
	assert.Error(t, err)
}

func TestIndex_Search(t *testing.T) {
	first, second := domain.NewID(), domain.NewID()
	cluster := &fakeCluster{reply: func(*http.Request) (int, string) {
		return http.StatusOK, `{"hits":{"total":{"value":7},"hits":[` +
			`{"_id":"` + first.Hex() + `"},{"_id":"legacy-42"},{"_id":"` + second.Hex() + `"}]}}`
	}}
	ix := newTestIndex(t, cluster)

	ids, total, err := ix.Search(context.Background(), "pireli", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Equal(t, []primitive.ObjectID{first, second}, ids)

	req := cluster.last()
	assert.Equal(t, "/products/_search", req.Path)
	var query struct {
		From  int `json:"from"`
		Size  int `json:"size"`
		Query struct {
			MultiMatch struct {
				Query     string   `json:"query"`
				Fields    []string `json:"fields"`
				Fuzziness string   `json:"fuzziness"`
			} `json:"multi_match"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &query))
	assert.Equal(t, 10, query.From)
	assert.Equal(t, 5, query.Size)
	assert.Equal(t, "pireli", query.Query.MultiMatch.Query)
	assert.Equal(t, "AUTO", query.Query.MultiMatch.Fuzziness)
	assert.Contains(t, query.Query.MultiMatch.Fields, "brand^3")
}

func TestIndex_SearchError(t *testing.T) {
	cluster := &fakeCluster{reply: func(*http.Request) (int, string) {
		return http.StatusBadRequest, `{"error":{"type":"parsing_exception"}}`
	}}
	ix := newTestIndex(t, cluster)

	_, _, err := ix.Search(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestIndex_EnsureIndex(t *testing.T) {
	cluster := &fakeCluster{reply: func(req *http.Request) (int, string) {
		if req.Method == http.MethodHead {
			return http.StatusNotFound, ``
		}
		return http.StatusOK, `{"acknowledged":true}`
	}}
	ix := newTestIndex(t, cluster)

	require.NoError(t, ix.EnsureIndex(context.Background()))
	require.Len(t, cluster.requests, 2)
	create := cluster.requests[1]
	assert.Equal(t, http.MethodPut, create.Method)
	assert.Equal(t, "/products", create.Path)
	assert.Contains(t, create.Body, `"mappings"`)

	exists := &fakeCluster{}
	require.NoError(t, newTestIndex(t, exists).EnsureIndex(context.Background()))
	assert.Len(t, exists.requests, 1, "existing index is left alone")
}

func TestIndex_Reindex(t *testing.T) {
	cluster := &fakeCluster{}
	ix := newTestIndex(t, cluster)
	products := []*domain.Product{
		{ID: domain.NewID(), Brand: "Fate", Code: "F-1"},
		{ID: domain.NewID(), Brand: "Fate", Code: "F-2"},
	}

	require.NoError(t, ix.Reindex(context.Background(), products))
	assert.Len(t, cluster.requests, 2)
}
