package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogEventType names a change to the product catalog.
type CatalogEventType string

const (
	ProductCreated CatalogEventType = "product.created"
	ProductUpdated CatalogEventType = "product.updated"
	ProductDeleted CatalogEventType = "product.deleted"
)

// CatalogEvent describes one committed catalog mutation. Product is nil for deletions.
type CatalogEvent struct {
	Type      CatalogEventType   `json:"type"`
	ProductID primitive.ObjectID `json:"productId"`
	Product   *Product           `json:"product,omitempty"`
	At        time.Time          `json:"at"`
}

// SearchResult is one page of full-text search hits.
type SearchResult struct {
	Products []*Product `json:"payload"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
