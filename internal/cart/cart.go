// Package cart keeps a shopper's cart and favorites and mirrors them into a
// key-value store after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/models"
	"github.com/Skotchmaster/topspin/internal/storage"
)

var (
	ErrValidation = errors.New("validation")
	ErrOutOfStock = errors.New("product is out of stock")
	ErrNotFound   = errors.New("not found")
)

const (
	MaxQuantity = 99

	cartKey      = "cart"
	favoritesKey = "favorites"
)

var validate = validator.New()

// Lookup resolves current product state, usually a *catalog.Catalog.
type Lookup interface {
	Product(id int) (models.Product, error)
}

type Options struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=99"`
}

type Config struct {
	// KV persists state; nil keeps everything in memory.
	KV      *storage.Store
	Catalog Lookup
	Pricing Pricing
	// Namespace is prepended to the storage keys so several carts can share
	// one store.
	Namespace string
	Now       func() time.Time
}

// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	kv        *storage.Store
	lookup    Lookup
	pricing   Pricing
	cartKey   string
	favKey    string
	now       func() time.Time
	items     []models.LineItem
	favorites []int
	persisted bool
}

func New(cfg Config) *Store {
	if cfg.Pricing == (Pricing{}) {
		cfg.Pricing = DefaultPricing()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		kv:        cfg.KV,
		lookup:    cfg.Catalog,
		pricing:   cfg.Pricing,
		cartKey:   cfg.Namespace + cartKey,
		favKey:    cfg.Namespace + favoritesKey,
		now:       cfg.Now,
		persisted: true,
	}
}

// Load replaces the in-memory state with what the store holds. Malformed
// entries are dropped and duplicate line items folded; the cleaned state is
// written back only when it differs. A failed read leaves the stored data
// alone and is returned.
func (s *Store) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	l := logging.FromContext(ctx)
	s.items, s.favorites = nil, nil

	var rawItems []json.RawMessage
	if _, err := s.kv.Get(ctx, s.cartKey, &rawItems); err != nil {
		l.Warn("cart_load_error", "error", err)
		s.persisted = false
		return fmt.Errorf("load cart: %w", err)
	}
	var rawFavs []json.RawMessage
	if _, err := s.kv.Get(ctx, s.favKey, &rawFavs); err != nil {
		l.Warn("favorites_load_error", "error", err)
		s.persisted = false
		return fmt.Errorf("load favorites: %w", err)
	}

	items, itemsDirty := sanitizeItems(rawItems)
	favs, favsDirty := sanitizeFavorites(rawFavs)
	s.items, s.favorites = items, favs

	if itemsDirty {
		s.saveCart(ctx)
	}
	if favsDirty {
		s.saveFavorites(ctx)
	}
	return nil
}

// sanitizeItems decodes stored line items and folds them. dirty reports
// whether anything was dropped, merged or capped.
func sanitizeItems(raw []json.RawMessage) (items []models.LineItem, dirty bool) {
	decoded := make([]models.LineItem, 0, len(raw))
	for _, r := range raw {
		var li models.LineItem
		if err := json.Unmarshal(r, &li); err != nil {
			dirty = true
			continue
		}
		decoded = append(decoded, li)
	}
	items, changed := foldItems(nil, decoded)
	return items, dirty || changed
}

func validItem(li models.LineItem) bool {
	return li.ID > 0 && li.Quantity > 0 && li.Name != "" && li.Price >= 0
}

// foldItems adds in to items keeping one line item per (id, size, color)
// key with quantities summed and capped at MaxQuantity. Invalid items are
// skipped. changed reports whether in was altered on the way.
func foldItems(items, in []models.LineItem) (out []models.LineItem, changed bool) {
	out = slices.Clone(items)
	if out == nil {
		out = make([]models.LineItem, 0, len(in))
	}
	for _, li := range in {
		if !validItem(li) {
			changed = true
			continue
		}
		if li.Quantity > MaxQuantity {
			changed = true
		}
		i := slices.IndexFunc(out, func(cur models.LineItem) bool {
			return cur.Matches(li.ID, li.SelectedSize, li.SelectedColor)
		})
		if i >= 0 {
			if i >= len(items) {
				changed = true
			}
			out[i].Quantity = min(out[i].Quantity+li.Quantity, MaxQuantity)
			continue
		}
		li.Quantity = min(li.Quantity, MaxQuantity)
		out = append(out, li)
	}
	return out, changed
}

func sanitizeFavorites(raw []json.RawMessage) (favs []int, dirty bool) {
	favs = make([]int, 0, len(raw))
	for _, r := range raw {
		var id int
		if err := json.Unmarshal(r, &id); err != nil || id <= 0 || slices.Contains(favs, id) {
			dirty = true
			continue
		}
		favs = append(favs, id)
	}
	return favs, dirty
}

// Persisted reports whether the last write to the store succeeded.
func (s *Store) Persisted() bool { return s.persisted }

func (s *Store) saveCart(ctx context.Context) {
	s.save(ctx, s.cartKey, s.items)
}

func (s *Store) saveFavorites(ctx context.Context) {
	s.save(ctx, s.favKey, s.favorites)
}

func (s *Store) save(ctx context.Context, key string, v any) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, key, v, 0); err != nil {
		logging.FromContext(ctx).Error("cart_persist_error", "key", key, "error", err)
		s.persisted = false
		return
	}
	s.persisted = true
}

func (s *Store) AddToCart(ctx context.Context, p models.Product, opts Options) (models.LineItem, error) {
	if p.ID <= 0 {
		return models.LineItem{}, fmt.Errorf("invalid product: %w", ErrValidation)
	}
	if err := validate.Struct(opts); err != nil {
		return models.LineItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !p.InStock {
		return models.LineItem{}, fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
	}

	qty := opts.Quantity
	if qty == 0 {
		qty = 1
	}
	size := opts.Size
	if size == "" && len(p.Sizes) > 0 {
		size = p.Sizes[0]
	}
	color := opts.Color
	if color == "" {
		color = p.Color
	}

	if i := slices.IndexFunc(s.items, func(li models.LineItem) bool { return li.Matches(p.ID, size, color) }); i >= 0 {
		s.items[i].Quantity = min(s.items[i].Quantity+qty, MaxQuantity)
		s.saveCart(ctx)
		return s.items[i], nil
	}

	li := models.LineItem{
		ID:            p.ID,
		Name:          p.Name,
		Brand:         p.BrandDisplay,
		Category:      p.Category,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Discount:      p.Discount,
		Image:         p.Image,
		SelectedSize:  size,
		SelectedColor: color,
		Quantity:      qty,
		InStock:       p.InStock,
		AddedAt:       s.now().UTC(),
	}
	s.items = append(s.items, li)
	s.saveCart(ctx)
	return li, nil
}

func (s *Store) AddToCartByID(ctx context.Context, id int, opts Options) (models.LineItem, error) {
	if s.lookup == nil {
		return models.LineItem{}, fmt.Errorf("product %d: no catalog: %w", id, ErrNotFound)
	}
	p, err := s.lookup.Product(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return models.LineItem{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return models.LineItem{}, err
	}
	return s.AddToCart(ctx, p, opts)
}

// selects reports whether li matches; empty size or color match anything.
func selects(li models.LineItem, id int, size, color string) bool {
	return li.ID == id &&
		(size == "" || li.SelectedSize == size) &&
		(color == "" || li.SelectedColor == color)
}

// UpdateQuantity sets the quantity of the first matching line item, capped
// at MaxQuantity, and returns it. A quantity of zero or less removes it; the
// returned item then carries quantity 0.
func (s *Store) UpdateQuantity(ctx context.Context, id int, size, color string, qty int) (models.LineItem, error) {
	i := slices.IndexFunc(s.items, func(li models.LineItem) bool { return selects(li, id, size, color) })
	if i < 0 {
		return models.LineItem{}, fmt.Errorf("line item %d: %w", id, ErrNotFound)
	}
	var li models.LineItem
	if qty <= 0 {
		li = s.items[i]
		li.Quantity = 0
		s.items = slices.Delete(s.items, i, i+1)
	} else {
		s.items[i].Quantity = min(qty, MaxQuantity)
		li = s.items[i]
	}
	s.saveCart(ctx)
	return li, nil
}

func (s *Store) RemoveFromCart(ctx context.Context, id int, size, color string) bool {
	n := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(li models.LineItem) bool { return selects(li, id, size, color) })
	if len(s.items) == n {
		return false
	}
	s.saveCart(ctx)
	return true
}

func (s *Store) ClearCart(ctx context.Context) {
	s.items = nil
	s.saveCart(ctx)
}

func (s *Store) AddFavorite(ctx context.Context, id int) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("favorite %d: %w", id, ErrValidation)
	}
	if slices.Contains(s.favorites, id) {
		return false, nil
	}
	s.favorites = append(s.favorites, id)
	s.saveFavorites(ctx)
	return true, nil
}

func (s *Store) RemoveFavorite(ctx context.Context, id int) bool {
	i := slices.Index(s.favorites, id)
	if i < 0 {
		return false
	}
	s.favorites = slices.Delete(s.favorites, i, i+1)
	s.saveFavorites(ctx)
	return true
}

// ToggleFavorite flips membership and returns whether id is now a favorite.
func (s *Store) ToggleFavorite(ctx context.Context, id int) (bool, error) {
	if s.IsFavorited(id) {
		s.RemoveFavorite(ctx, id)
		return false, nil
	}
	if _, err := s.AddFavorite(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ClearFavorites(ctx context.Context) {
	s.favorites = nil
	s.saveFavorites(ctx)
}

func (s *Store) Items() []models.LineItem {
	return slices.Clone(s.items)
}

func (s *Store) Favorites() []int {
	return slices.Clone(s.favorites)
}

func (s *Store) IsInCart(id int) bool {
	return slices.ContainsFunc(s.items, func(li models.LineItem) bool { return li.ID == id })
}

func (s *Store) IsFavorited(id int) bool {
	return slices.Contains(s.favorites, id)
}

func (s *Store) IsEmpty() bool { return len(s.items) == 0 }

func (s *Store) FavoritesCount() int { return len(s.favorites) }

func (s *Store) TotalItemCount() int {
	total := 0
	for _, li := range s.items {
		total += li.Quantity
	}
	return total
}
