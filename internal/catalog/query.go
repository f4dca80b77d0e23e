package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Skotchmaster/topspin/internal/models"
)

type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortName      SortKey = "name"
	SortNewest    SortKey = "newest"
	SortRating    SortKey = "rating"
)

// MinSearchLength is the shortest query that narrows results.
const MinSearchLength = 2

const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 500
)

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Query is the in-memory state that drives the product listing.
type Query struct {
	Search     string            `json:"search"`
	Categories []models.Category `json:"categories"`
	Brands     []string          `json:"brands"`
	Price      PriceRange        `json:"priceRange"`
	Sort       SortKey           `json:"sortBy"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
}

func DefaultQuery(pageSize int) Query {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Query{
		Categories: []models.Category{},
		Brands:     []string{},
		Price:      PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
		Sort:       SortFeatured,
		Page:       1,
		PageSize:   pageSize,
	}
}

// Filter returns the products of all that satisfy every active criterion of
// q. The input slice is not modified.
func Filter(all []models.Product, q Query) []models.Product {
	needle := ""
	if len([]rune(q.Search)) >= MinSearchLength {
		needle = strings.ToLower(q.Search)
	}

	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if needle != "" && !matchesText(p, needle) {
			continue
		}
		if len(q.Categories) > 0 && !slices.Contains(q.Categories, p.Category) {
			continue
		}
		if len(q.Brands) > 0 && !slices.Contains(q.Brands, p.Brand) {
			continue
		}
		if !q.Price.Contains(p.Price) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesText(p models.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.BrandDisplay), needle) ||
		strings.Contains(strings.ToLower(string(p.Category)), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Sort orders products in place and returns them. Ties keep their input
// order.
func Sort(products []models.Product, key SortKey) []models.Product {
	switch key {
	case SortPriceLow:
		slices.SortStableFunc(products, func(a, b models.Product) int { return cmp.Compare(a.Price, b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(products, func(a, b models.Product) int { return cmp.Compare(b.Price, a.Price) })
	case SortName:
		col := collate.New(language.English)
		slices.SortStableFunc(products, func(a, b models.Product) int { return col.CompareString(a.Name, b.Name) })
	case SortNewest:
		slices.SortStableFunc(products, func(a, b models.Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	case SortRating:
		slices.SortStableFunc(products, func(a, b models.Product) int { return cmp.Compare(b.Rating, a.Rating) })
	default:
		slices.SortStableFunc(products, func(a, b models.Product) int {
			if a.IsFeatured != b.IsFeatured {
				if a.IsFeatured {
					return -1
				}
				return 1
			}
			return cmp.Compare(b.Rating, a.Rating)
		})
	}
	return products
}

// Apply filters a copy of all and sorts it by q.Sort.
func Apply(all []models.Product, q Query) []models.Product {
	return Sort(Filter(all, q), q.Sort)
}

func ValidSortKey(key SortKey) bool {
	switch key {
	case SortFeatured, SortPriceLow, SortPriceHigh, SortName, SortNewest, SortRating:
		return true
	}
	return false
}
