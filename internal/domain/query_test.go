package domain

import (
	"net/url"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var testBrands = []string{"Bridgestone", "Continental", "Michelin", "Pirelli"}

func catalogFromPrices(prices []int) []*Product {
	products := make([]*Product, 0, len(prices))
	for i, price := range prices {
		products = append(products, &Product{
			ID:       NewID(),
			Brand:    testBrands[i%len(testBrands)],
			Category: []string{"auto", "camioneta"}[i%2],
			Size:     "205/55 R16",
			Price:    float64(price),
			Stock:    i % 3,
		})
	}
	return products
}

func TestParseProductQuery_Defaults(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		limit int
		page  int
	}{
		{"empty", "", DefaultLimit, DefaultPage},
		{"valid", "limit=5&page=3", 5, 3},
		{"non-numeric", "limit=abc&page=x", DefaultLimit, DefaultPage},
		{"non-positive", "limit=0&page=-2", DefaultLimit, DefaultPage},
		{"offset overflow", "limit=4611686018427387904&page=4", 4611686018427387904, DefaultPage},
		{"page overflow", "page=9223372036854775807", DefaultLimit, DefaultPage},
		{"out of range", "limit=99999999999999999999", DefaultLimit, DefaultPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := url.ParseQuery(tt.raw)
			q := ParseProductQuery(v)
			assert.Equal(t, tt.limit, q.Limit)
			assert.Equal(t, tt.page, q.Page)
		})
	}
}

func TestApplyQuery_HugeLimit(t *testing.T) {
	products := catalogFromPrices([]int{30, 10, 20})
	v, _ := url.ParseQuery("limit=4611686018427387904&page=4")

	q := ParseProductQuery(v)
	assert.Zero(t, q.Offset())

	page := ApplyQuery(products, q)
	assert.Len(t, page.Docs, 3)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNextPage)
}

func TestParseProductQuery_Filters(t *testing.T) {
	v, _ := url.ParseQuery("brand=Pirelli,%20Michelin&brand=Fate&size=205/55%20R16&available=unavailable&sort=desc")
	q := ParseProductQuery(v)

	assert.Equal(t, []string{"Pirelli", "Michelin", "Fate"}, q.Brands)
	assert.Equal(t, []string{"205/55 R16"}, q.Sizes)
	assert.Equal(t, OutOfStock, q.Stock)
	assert.Equal(t, SortPriceDesc, q.Sort)
}

func TestParseProductQuery_LegacyQuery(t *testing.T) {
	v, _ := url.ParseQuery("query=available")
	assert.Equal(t, InStock, ParseProductQuery(v).Stock)

	v, _ = url.ParseQuery("query=camioneta")
	assert.Equal(t, []string{"camioneta"}, ParseProductQuery(v).Categories)

	v, _ = url.ParseQuery("query=camioneta&brand=Pirelli")
	q := ParseProductQuery(v)
	assert.Empty(t, q.Categories)
	assert.Equal(t, []string{"Pirelli"}, q.Brands)
}

func TestParseSort_Unknown(t *testing.T) {
	assert.Equal(t, SortNone, ParseSort("popularity"))
	assert.Equal(t, SortPriceAsc, ParseSort("ASC"))
	assert.Equal(t, SortBrandDesc, ParseSort("brand_desc"))
}

func TestProperty_TotalPagesIsCeiling(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("totalPages = max(1, ceil(N/L))", prop.ForAll(
		func(n, l int) bool {
			want := (n + l - 1) / l
			if want < 1 {
				want = 1
			}
			return TotalPages(n, l) == want
		},
		gen.IntRange(0, 10000),
		gen.IntRange(1, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PagesConcatenateToFullResult(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("walking every page reproduces the sorted set", prop.ForAll(
		func(prices []int, limit int, order SortOrder) bool {
			catalog := catalogFromPrices(prices)
			q := ProductQuery{Limit: limit, Page: 1, Sort: order}

			first := ApplyQuery(catalog, q)
			var walked []*Product
			for page := 1; page <= first.TotalPages; page++ {
				q.Page = page
				walked = append(walked, ApplyQuery(catalog, q).Docs...)
			}

			expected := append([]*Product{}, catalog...)
			SortProducts(expected, order)

			if len(walked) != len(expected) {
				return false
			}
			seen := make(map[string]bool)
			for i := range walked {
				if walked[i].ID != expected[i].ID || seen[walked[i].ID.Hex()] {
					return false
				}
				seen[walked[i].ID.Hex()] = true
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 50)),
		gen.IntRange(1, 7),
		gen.OneConstOf(SortNone, SortPriceAsc, SortPriceDesc, SortBrandAsc, SortBrandDesc),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_AvailabilityFilter(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("available filters on stock", prop.ForAll(
		func(prices []int) bool {
			catalog := catalogFromPrices(prices)

			in := ApplyQuery(catalog, ProductQuery{Limit: 1000, Stock: InStock})
			for _, p := range in.Docs {
				if p.Stock <= 0 {
					return false
				}
			}
			out := ApplyQuery(catalog, ProductQuery{Limit: 1000, Stock: OutOfStock})
			for _, p := range out.Docs {
				if p.Stock > 0 {
					return false
				}
			}
			return in.TotalDocs+out.TotalDocs == len(catalog)
		},
		gen.SliceOf(gen.IntRange(0, 500)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PriceDescIsNonIncreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("price_desc pages never increase in price", prop.ForAll(
		func(prices []int, limit int) bool {
			page := ApplyQuery(catalogFromPrices(prices), ProductQuery{Limit: limit, Sort: SortPriceDesc})
			for i := 1; i < len(page.Docs); i++ {
				if page.Docs[i].Price > page.Docs[i-1].Price {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewProductPage_Navigation(t *testing.T) {
	page := NewProductPage(nil, 25, ProductQuery{Limit: 10, Page: 2})

	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasPrevPage)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, 1, *page.PrevPage)
	assert.Equal(t, 3, *page.NextPage)
	assert.NotNil(t, page.Docs)

	last := NewProductPage(nil, 25, ProductQuery{Limit: 10, Page: 3})
	assert.False(t, last.HasNextPage)
	assert.Nil(t, last.NextPage)

	empty := NewProductPage(nil, 0, ProductQuery{Limit: 10, Page: 1})
	assert.Equal(t, 1, empty.TotalPages)
	assert.Nil(t, empty.PrevPage)
}
