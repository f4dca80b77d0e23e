package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Skotchmaster/topspin/internal/models"
)

var ErrNotFound = errors.New("product not found")

const DefaultHighlightLimit = 8

// Catalog is the immutable product list of a running shop. Accessors hand
// out copies so callers cannot mutate it.
type Catalog struct {
	products []models.Product
	byID     map[int]int
}

func New(products []models.Product) *Catalog {
	c := &Catalog{
		products: slices.Clone(products),
		byID:     make(map[int]int, len(products)),
	}
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

func (c *Catalog) Len() int { return len(c.products) }

func (c *Catalog) All() []models.Product {
	return slices.Clone(c.products)
}

func (c *Catalog) Product(id int) (models.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return c.products[i], nil
}

func (c *Catalog) Featured(limit int) []models.Product {
	out := c.where(func(p models.Product) bool { return p.IsFeatured })
	return truncate(out, limitOrDefault(limit))
}

// New arrivals, newest first.
func (c *Catalog) NewArrivals(limit int) []models.Product {
	out := c.where(func(p models.Product) bool { return p.IsNew })
	Sort(out, SortNewest)
	return truncate(out, limitOrDefault(limit))
}

// ByCategory returns every product of the category when limit is 0.
func (c *Catalog) ByCategory(category models.Category, limit int) []models.Product {
	return truncate(c.where(func(p models.Product) bool { return p.Category == category }), limit)
}

func (c *Catalog) ByBrand(brand string, limit int) []models.Product {
	return truncate(c.where(func(p models.Product) bool { return p.Brand == brand }), limit)
}

// Query runs the full pipeline and returns one page plus its metadata.
// Out-of-range pages are clamped to the nearest existing one.
func (c *Catalog) Query(q Query) ([]models.Product, PageMeta) {
	matched := Apply(c.products, q)
	page := ClampPage(q.Page, len(matched), q.PageSize)
	return Paginate(matched, page, q.PageSize), Meta(page, q.PageSize, len(matched))
}

type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

type Stats struct {
	TotalProducts    int                     `json:"totalProducts"`
	InStockProducts  int                     `json:"inStockProducts"`
	FeaturedProducts int                     `json:"featuredProducts"`
	NewProducts      int                     `json:"newProducts"`
	CategoryCounts   map[models.Category]int `json:"categoryCounts"`
	BrandCounts      map[string]int          `json:"brandCounts"`
	PriceRange       PriceStats              `json:"priceRange"`
}

func (c *Catalog) Stats() Stats {
	s := Stats{
		TotalProducts:  len(c.products),
		CategoryCounts: map[models.Category]int{},
		BrandCounts:    map[string]int{},
	}
	if len(c.products) == 0 {
		return s
	}

	var sum float64
	s.PriceRange.Min = math.Inf(1)
	s.PriceRange.Max = math.Inf(-1)
	for _, p := range c.products {
		if p.InStock {
			s.InStockProducts++
		}
		if p.IsFeatured {
			s.FeaturedProducts++
		}
		if p.IsNew {
			s.NewProducts++
		}
		s.CategoryCounts[p.Category]++
		s.BrandCounts[p.BrandDisplay]++
		s.PriceRange.Min = min(s.PriceRange.Min, p.Price)
		s.PriceRange.Max = max(s.PriceRange.Max, p.Price)
		sum += p.Price
	}
	s.PriceRange.Average = sum / float64(len(c.products))
	return s
}

type AvailableFilters struct {
	Categories []models.Category `json:"categories"`
	Brands     []string          `json:"brands"`
	PriceRange PriceRange        `json:"priceRange"`
}

// AvailableFilters lists categories and brands in first-seen order.
func (c *Catalog) AvailableFilters() AvailableFilters {
	f := AvailableFilters{Categories: []models.Category{}, Brands: []string{}}
	if len(c.products) == 0 {
		return f
	}
	f.PriceRange = PriceRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range c.products {
		if !slices.Contains(f.Categories, p.Category) {
			f.Categories = append(f.Categories, p.Category)
		}
		if !slices.Contains(f.Brands, p.Brand) {
			f.Brands = append(f.Brands, p.Brand)
		}
		f.PriceRange.Min = min(f.PriceRange.Min, p.Price)
		f.PriceRange.Max = max(f.PriceRange.Max, p.Price)
	}
	return f
}

// IDs of the products in ascending order.
func (c *Catalog) IDs() []int {
	ids := make([]int, 0, len(c.products))
	for _, p := range c.products {
		ids = append(ids, p.ID)
	}
	slices.SortFunc(ids, cmp.Compare[int])
	return ids
}

func (c *Catalog) where(keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultHighlightLimit
	}
	return limit
}

func truncate(products []models.Product, limit int) []models.Product {
	if limit > 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}
