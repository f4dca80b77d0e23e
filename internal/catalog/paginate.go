package catalog

import "github.com/Skotchmaster/topspin/internal/models"

const (
	DefaultPageSize = 12
	ListingPageSize = 24
	MaxPageSize     = 100
)

type PageMeta struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Calculate turns a 1-indexed page into a slice offset. Sizes above
// MaxPageSize are clamped to it; non-positive sizes use DefaultPageSize.
func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return (page - 1) * size, size
}

func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	size = min(size, MaxPageSize)
	return (total + size - 1) / size
}

// ClampPage keeps page inside [1, TotalPages]. Callers clamp before
// Paginate; Paginate itself does not.
func ClampPage(page, total, size int) int {
	_, size = Calculate(1, size)
	pages := TotalPages(total, size)
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the page-th slice of size products. Pages past the end
// are empty.
func Paginate(products []models.Product, page, size int) []models.Product {
	offset, limit := Calculate(page, size)
	if offset >= len(products) {
		return []models.Product{}
	}
	end := min(offset+limit, len(products))
	return products[offset:end]
}

func Meta(page, size, total int) PageMeta {
	offset, limit := Calculate(page, size)
	return PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: TotalPages(total, limit),
		HasPrev:    page > 1,
		HasNext:    offset+limit < total,
	}
}
