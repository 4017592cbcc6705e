package domain

import (
	"bytes"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	DefaultPage  = 1
)

// SortOrder names a catalog ordering.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortBrandAsc  SortOrder = "brand_asc"
	SortBrandDesc SortOrder = "brand_desc"
)

// ParseSort accepts the canonical names plus the short asc/desc price aliases.
// Anything else means no ordering.
func ParseSort(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "price_asc":
		return SortPriceAsc
	case "desc", "price_desc":
		return SortPriceDesc
	case "brand_asc":
		return SortBrandAsc
	case "brand_desc":
		return SortBrandDesc
	default:
		return SortNone
	}
}

// Availability is a tri-state stock filter.
type Availability int

const (
	AnyStock Availability = iota
	InStock
	OutOfStock
)

// ParseAvailability maps "true"/"available" and "false"/"unavailable".
func ParseAvailability(s string) Availability {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "available":
		return InStock
	case "false", "unavailable":
		return OutOfStock
	default:
		return AnyStock
	}
}

// ProductQuery describes one page of a filtered, sorted catalog listing.
type ProductQuery struct {
	Limit      int
	Page       int
	Sort       SortOrder
	Categories []string
	Brands     []string
	Sizes      []string
	Stock      Availability
	// Legacy is the old single "query" parameter. Normalize folds it into the
	// structured filters when none of them were supplied.
	Legacy string
}

// ParseProductQuery reads a listing request from URL query values.
func ParseProductQuery(v url.Values) ProductQuery {
	q := ProductQuery{
		Limit:      positiveOr(v.Get("limit"), DefaultLimit),
		Page:       positiveOr(v.Get("page"), DefaultPage),
		Sort:       ParseSort(v.Get("sort")),
		Categories: splitMulti(v["category"]),
		Brands:     splitMulti(v["brand"]),
		Sizes:      splitMulti(v["size"]),
		Stock:      ParseAvailability(v.Get("available")),
		Legacy:     strings.TrimSpace(v.Get("query")),
	}
	return q.Normalize()
}

// HasFilters reports whether any structured filter is set.
func (q ProductQuery) HasFilters() bool {
	return len(q.Categories) > 0 || len(q.Brands) > 0 || len(q.Sizes) > 0 || q.Stock != AnyStock
}

// Normalize applies defaults and resolves the legacy parameter. A page whose
// offset does not fit in an int falls back to the first page.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Page <= 0 || q.Page-1 > math.MaxInt/q.Limit {
		q.Page = DefaultPage
	}
	if q.Legacy != "" && !q.HasFilters() {
		switch ParseAvailability(q.Legacy) {
		case InStock:
			q.Stock = InStock
		case OutOfStock:
			q.Stock = OutOfStock
		default:
			q.Categories = []string{q.Legacy}
		}
	}
	q.Legacy = ""
	return q
}

// Offset is the number of matching documents before this page.
func (q ProductQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Matches reports whether p passes every filter of q.
func (q ProductQuery) Matches(p *Product) bool {
	if len(q.Categories) > 0 && !contains(q.Categories, p.Category) {
		return false
	}
	if len(q.Brands) > 0 && !contains(q.Brands, p.Brand) {
		return false
	}
	if len(q.Sizes) > 0 && !contains(q.Sizes, p.Size) {
		return false
	}
	switch q.Stock {
	case InStock:
		return p.Stock > 0
	case OutOfStock:
		return p.Stock <= 0
	}
	return true
}

// SortProducts orders products in place. Ties, including SortNone, fall back
// to ascending id so pages never overlap.
func SortProducts(products []*Product, order SortOrder) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortBrandAsc:
			if a.Brand != b.Brand {
				return a.Brand < b.Brand
			}
		case SortBrandDesc:
			if a.Brand != b.Brand {
				return a.Brand > b.Brand
			}
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// ApplyQuery filters, sorts and pages an in-memory catalog.
func ApplyQuery(products []*Product, q ProductQuery) *ProductPage {
	q = q.Normalize()
	matched := make([]*Product, 0, len(products))
	for _, p := range products {
		if q.Matches(p) {
			matched = append(matched, p)
		}
	}
	SortProducts(matched, q.Sort)

	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit < end-start {
		end = start + q.Limit
	}
	return NewProductPage(matched[start:end], len(matched), q)
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
