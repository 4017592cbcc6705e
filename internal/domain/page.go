package domain

// ProductPage is the single result shape every product store returns for a listing.
type ProductPage struct {
	Docs        []*Product `json:"docs"`
	TotalDocs   int        `json:"totalDocs"`
	Limit       int        `json:"limit"`
	Page        int        `json:"page"`
	TotalPages  int        `json:"totalPages"`
	HasPrevPage bool       `json:"hasPrevPage"`
	HasNextPage bool       `json:"hasNextPage"`
	PrevPage    *int       `json:"prevPage"`
	NextPage    *int       `json:"nextPage"`
}

// TotalPages is ceil(total/limit), never less than one.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}

// NewProductPage fills in the navigation fields for one page of results.
func NewProductPage(docs []*Product, total int, q ProductQuery) *ProductPage {
	if docs == nil {
		docs = []*Product{}
	}
	totalPages := TotalPages(total, q.Limit)
	page := &ProductPage{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       q.Limit,
		Page:        q.Page,
		TotalPages:  totalPages,
		HasPrevPage: q.Page > 1,
		HasNextPage: q.Page < totalPages,
	}
	if page.HasPrevPage {
		prev := q.Page - 1
		page.PrevPage = &prev
	}
	if page.HasNextPage {
		next := q.Page + 1
		page.NextPage = &next
	}
	return page
}
