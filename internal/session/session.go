// Package session holds the per-shopper state of the storefront: listing
// query, view preferences and the cart.
package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Skotchmaster/topspin/internal/cart"
	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/models"
)

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// Filters is a partial update of the listing filters; nil fields are left
// as they are.
type Filters struct {
	Categories *[]models.Category `json:"categories,omitempty"`
	Brands     *[]string          `json:"brands,omitempty"`
	MinPrice   *float64           `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice   *float64           `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
}

type ProductView struct {
	models.Product
	IsFavorited bool `json:"isFavorited"`
	IsInCart    bool `json:"isInCart"`
}

type Page struct {
	Products []ProductView    `json:"products"`
	Meta     catalog.PageMeta `json:"meta"`
	Query    catalog.Query    `json:"query"`
	ViewMode ViewMode         `json:"viewMode"`
}

// Session serialises every operation through its own mutex.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	catalog  *catalog.Catalog
	cart     *cart.Store
	query    catalog.Query
	viewMode ViewMode
}

func New(id uuid.UUID, cat *catalog.Catalog, c *cart.Store, pageSize int) *Session {
	return &Session{
		ID:       id,
		catalog:  cat,
		cart:     c,
		query:    catalog.DefaultQuery(pageSize),
		viewMode: ViewGrid,
	}
}

// WithCart runs fn while holding the session lock.
func (s *Session) WithCart(fn func(c *cart.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cart)
}

func (s *Session) Query() catalog.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQuery(s.query)
}

func (s *Session) Search(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Search = strings.TrimSpace(text)
	s.query.Page = 1
}

func (s *Session) ApplyFilters(f Filters) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", cart.ErrValidation, err)
	}
	if f.Categories != nil {
		for _, c := range *f.Categories {
			if !c.Valid() {
				return fmt.Errorf("unknown category %q: %w", c, cart.ErrValidation)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneQuery(s.query)
	if f.Categories != nil {
		next.Categories = slices.Clone(*f.Categories)
	}
	if f.Brands != nil {
		next.Brands = slices.Clone(*f.Brands)
	}
	if f.MinPrice != nil {
		next.Price.Min = *f.MinPrice
	}
	if f.MaxPrice != nil {
		next.Price.Max = *f.MaxPrice
	}
	if next.Price.Min > next.Price.Max {
		return fmt.Errorf("price range [%g, %g]: %w", next.Price.Min, next.Price.Max, cart.ErrValidation)
	}
	next.Page = 1
	s.query = next
	return nil
}

// ClearFilters resets categories, brands and price. Search and sort stay.
func (s *Session) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	def := catalog.DefaultQuery(s.query.PageSize)
	s.query.Categories = def.Categories
	s.query.Brands = def.Brands
	s.query.Price = def.Price
	s.query.Page = 1
}

// SetSort falls back to the featured order for unknown keys.
func (s *Session) SetSort(key catalog.SortKey) {
	if !catalog.ValidSortKey(key) {
		key = catalog.SortFeatured
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Sort = key
	s.query.Page = 1
}

// GoToPage moves to page n when it exists and reports whether it did.
func (s *Session) GoToPage(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(catalog.Filter(s.catalog.All(), s.query))
	if n < 1 || n > catalog.TotalPages(total, s.query.PageSize) {
		return false
	}
	s.query.Page = n
	return true
}

func (s *Session) SetViewMode(mode ViewMode) error {
	if mode != ViewGrid && mode != ViewList {
		return fmt.Errorf("view mode %q: %w", mode, cart.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewMode = mode
	return nil
}

// Page renders the current listing page with cart and favorite flags.
func (s *Session) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := catalog.Apply(s.catalog.All(), s.query)
	page := catalog.ClampPage(s.query.Page, len(matched), s.query.PageSize)
	products := catalog.Paginate(matched, page, s.query.PageSize)

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{
			Product:     p,
			IsFavorited: s.cart.IsFavorited(p.ID),
			IsInCart:    s.cart.IsInCart(p.ID),
		})
	}

	q := cloneQuery(s.query)
	q.Page = page
	return Page{
		Products: views,
		Meta:     catalog.Meta(page, s.query.PageSize, len(matched)),
		Query:    q,
		ViewMode: s.viewMode,
	}
}

func cloneQuery(q catalog.Query) catalog.Query {
	q.Categories = slices.Clone(q.Categories)
	q.Brands = slices.Clone(q.Brands)
	return q
}
