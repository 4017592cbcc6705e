package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSize is stored when a product has no known tire size.
const DefaultSize = "UNSPEC"

// Product represents a tire in the catalog
type Product struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	Brand       string             `json:"brand" bson:"brand"`
	Model       string             `json:"model" bson:"model"`
	Code        string             `json:"code" bson:"code"`
	Size        string             `json:"size" bson:"size"`
	Category    string             `json:"category" bson:"category"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64            `json:"price" bson:"price"`
	Stock       int                `json:"stock" bson:"stock"`
	Thumbnails  []string           `json:"thumbnails" bson:"thumbnails"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProductInput carries the fields accepted when creating a product.
// Price and Stock are pointers so a zero can be told apart from a missing value.
type ProductInput struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Code        string   `json:"code"`
	Size        string   `json:"size"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Thumbnails  []string `json:"thumbnails"`
}

// Validate reports every missing required field in one error.
func (in ProductInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Brand) == "" {
		missing = append(missing, "brand")
	}
	if strings.TrimSpace(in.Model) == "" {
		missing = append(missing, "model")
	}
	if strings.TrimSpace(in.Code) == "" {
		missing = append(missing, "code")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.Stock == nil {
		missing = append(missing, "stock")
	}
	if strings.TrimSpace(in.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return InvalidArgument("missing required fields: %s", strings.Join(missing, ", "))
	}
	if *in.Price < 0 {
		return InvalidArgument("price must be non-negative")
	}
	if *in.Stock < 0 {
		return InvalidArgument("stock must be non-negative")
	}
	return nil
}

// Product builds a new catalog entry from a validated input.
func (in ProductInput) Product(now time.Time) *Product {
	size := strings.TrimSpace(in.Size)
	if size == "" {
		size = DefaultSize
	}
	thumbs := in.Thumbnails
	if thumbs == nil {
		thumbs = []string{}
	}
	return &Product{
		ID:          NewID(),
		Brand:       strings.TrimSpace(in.Brand),
		Model:       strings.TrimSpace(in.Model),
		Code:        strings.TrimSpace(in.Code),
		Size:        size,
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		Price:       *in.Price,
		Stock:       *in.Stock,
		Thumbnails:  thumbs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Brand       *string   `json:"brand"`
	Model       *string   `json:"model"`
	Code        *string   `json:"code"`
	Size        *string   `json:"size"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Stock       *int      `json:"stock"`
	Thumbnails  *[]string `json:"thumbnails"`
}

// Apply validates the patch and writes it onto p.
func (pt ProductPatch) Apply(p *Product, now time.Time) error {
	for name, v := range map[string]*string{
		"brand": pt.Brand, "model": pt.Model, "code": pt.Code, "category": pt.Category,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return InvalidArgument("%s cannot be empty", name)
		}
	}
	if pt.Price != nil && *pt.Price < 0 {
		return InvalidArgument("price must be non-negative")
	}
	if pt.Stock != nil && *pt.Stock < 0 {
		return InvalidArgument("stock must be non-negative")
	}

	if pt.Brand != nil {
		p.Brand = strings.TrimSpace(*pt.Brand)
	}
	if pt.Model != nil {
		p.Model = strings.TrimSpace(*pt.Model)
	}
	if pt.Code != nil {
		p.Code = strings.TrimSpace(*pt.Code)
	}
	if pt.Size != nil {
		p.Size = strings.TrimSpace(*pt.Size)
		if p.Size == "" {
			p.Size = DefaultSize
		}
	}
	if pt.Category != nil {
		p.Category = strings.TrimSpace(*pt.Category)
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.Stock != nil {
		p.Stock = *pt.Stock
	}
	if pt.Thumbnails != nil {
		p.Thumbnails = append([]string{}, (*pt.Thumbnails)...)
	}
	p.UpdatedAt = now
	return nil
}

// Filters lists the distinct values a catalog UI can filter on.
type Filters struct {
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	Sizes      []string `json:"sizes"`
}
