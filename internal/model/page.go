package model

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based pagination request
type Page struct {
	Number int `form:"pageNumber" json:"pageNumber"`
	Size   int `form:"pageSize" json:"pageSize"`
}

// Normalize applies defaults and bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// PageResult is one page of a listing. TotalRecords and TotalPages are authoritative.
type PageResult[T any] struct {
	Data         []T   `json:"data"`
	TotalRecords int64 `json:"totalRecords"`
	PageNumber   int   `json:"pageNumber"`
	PageSize     int   `json:"pageSize"`
	TotalPages   int   `json:"totalPages"`
}

// NewPageResult builds a PageResult for items fetched with p
func NewPageResult[T any](items []T, total int64, p Page) PageResult[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return PageResult[T]{
		Data:         items,
		TotalRecords: total,
		PageNumber:   p.Number,
		PageSize:     p.Size,
		TotalPages:   pages,
	}
}
