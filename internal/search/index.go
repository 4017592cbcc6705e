package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tire-shop/internal/config"
	"tire-shop/internal/domain"

	"github.com/elastic/go-elasticsearch/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// searchFields are matched by free-text queries, brand and model weighted up.
var searchFields = []string{"brand^3", "model^2", "code^2", "size", "category", "description"}

const indexMapping = `{
  "mappings": {
    "properties": {
      "brand":       {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "model":       {"type": "text"},
      "code":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "size":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "category":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "description": {"type": "text"},
      "price":       {"type": "double"},
      "stock":       {"type": "integer"}
    }
  }
}`

type document struct {
	Brand       string  `json:"brand"`
	Model       string  `json:"model"`
	Code        string  `json:"code"`
	Size        string  `json:"size"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

func toDocument(p *domain.Product) document {
	return document{
		Brand:       p.Brand,
		Model:       p.Model,
		Code:        p.Code,
		Size:        p.Size,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

// Index keeps an Elasticsearch index in step with the catalog and answers
// free-text queries with product ids.
type Index struct {
	client *elasticsearch.Client
	name   string
	logger *zap.Logger
}

// NewClient builds an Elasticsearch client from cfg. transport may be nil.
func NewClient(cfg config.SearchConfig, transport http.RoundTripper) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return client, nil
}

// NewIndex wraps client for the index called name.
func NewIndex(client *elasticsearch.Client, name string, logger *zap.Logger) *Index {
	return &Index{client: client, name: name, logger: logger}
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.name}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", ix.name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to check index %s: %s", ix.name, res.Status())
	}

	res, err = ix.client.Indices.Create(ix.name,
		ix.client.Indices.Create.WithContext(ctx),
		ix.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", ix.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create index %s: %s", ix.name, readError(res.Body))
	}
	ix.logger.Info("Search index created", zap.String("index", ix.name))
	return nil
}

// Put indexes or overwrites one product.
func (ix *Index) Put(ctx context.Context, p *domain.Product) error {
	body, err := json.Marshal(toDocument(p))
	if err != nil {
		return fmt.Errorf("failed to encode product %s: %w", p.ID.Hex(), err)
	}
	res, err := ix.client.Index(ix.name, bytes.NewReader(body),
		ix.client.Index.WithContext(ctx),
		ix.client.Index.WithDocumentID(p.ID.Hex()),
	)
	if err != nil {
		return fmt.Errorf("failed to index product %s: %w", p.ID.Hex(), err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to index product %s: %s", p.ID.Hex(), readError(res.Body))
	}
	return nil
}

// Remove deletes one product. A document that is already gone is not an error.
func (ix *Index) Remove(ctx context.Context, id primitive.ObjectID) error {
	res, err := ix.client.Delete(ix.name, id.Hex(), ix.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to remove product %s: %w", id.Hex(), err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to remove product %s: %s", id.Hex(), readError(res.Body))
	}
	return nil
}

// Reindex puts every product. It stops at the first failure.
func (ix *Index) Reindex(ctx context.Context, products []*domain.Product) error {
	for _, p := range products {
		if err := ix.Put(ctx, p); err != nil {
			return err
		}
	}
	ix.logger.Info("Search index rebuilt", zap.String("index", ix.name), zap.Int("products", len(products)))
	return nil
}

// CatalogChanged mirrors a catalog change into the index.
func (ix *Index) CatalogChanged(ctx context.Context, event domain.CatalogEvent) error {
	switch event.Type {
	case domain.ProductDeleted:
		return ix.Remove(ctx, event.ProductID)
	default:
		if event.Product == nil {
			return fmt.Errorf("%s event for %s carries no product", event.Type, event.ProductID.Hex())
		}
		return ix.Put(ctx, event.Product)
	}
}

// Search runs a fuzzy multi-field match and returns ids, best hit first.
func (ix *Index) Search(ctx context.Context, text string, from, size int) ([]primitive.ObjectID, int, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     text,
				"fields":    searchFields,
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, 0, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := ix.client.Search(
		ix.client.Search.WithContext(ctx),
		ix.client.Search.WithIndex(ix.name),
		ix.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("failed to search products: %s", readError(res.Body))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := primitive.ObjectIDFromHex(hit.ID)
		if err != nil {
			ix.logger.Warn("Skipping search hit with foreign id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, r.Hits.Total.Value, nil
}

func readError(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	return strings.TrimSpace(string(raw))
}
