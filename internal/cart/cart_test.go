package cart

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/mocknet"
	"github.com/Skotchmaster/topspin/internal/models"
	"github.com/Skotchmaster/topspin/internal/storage"
)

// unreadableBackend fails every read while writes still land.
type unreadableBackend struct {
	*storage.MemoryBackend
}

func (unreadableBackend) Read(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}

var testNow = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

func racket() models.Product {
	return models.Product{
		ID: 1, Name: "Wilson Pro Staff", Brand: "wilson", BrandDisplay: "Wilson",
		Category: models.Rackets, Price: 100, OriginalPrice: 100,
		Color: "Black", Sizes: []string{"Grip 2", "Grip 3"}, InStock: true,
	}
}

func shoe() models.Product {
	return models.Product{
		ID: 2, Name: "Nike Air Zoom", Brand: "nike", BrandDisplay: "Nike",
		Category: models.Shoes, Price: 50, OriginalPrice: 80, Discount: 38,
		Color: "White", Sizes: []string{"8", "9", "10"}, InStock: true,
	}
}

func balls() models.Product {
	return models.Product{
		ID: 3, Name: "Can of 3 Balls", Brand: "penn", BrandDisplay: "Penn",
		Category: models.Balls, Price: 4.99, OriginalPrice: 4.99, Color: "Yellow", InStock: true,
	}
}

func newTestCart(t *testing.T, lookup Lookup) (*Store, *storage.Store) {
	t.Helper()
	kv := storage.New(storage.NewMemoryBackend(0))
	return New(Config{KV: kv, Catalog: lookup, Now: func() time.Time { return testNow }}), kv
}

func TestAddToCart_SameKeyMerges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, kv := newTestCart(t, nil)

	_, err := s.AddToCart(ctx, shoe(), Options{Quantity: 1})
	require.NoError(t, err)
	li, err := s.AddToCart(ctx, shoe(), Options{Quantity: 2})
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, li.Quantity)
	assert.Equal(t, "8", items[0].SelectedSize)
	assert.Equal(t, "White", items[0].SelectedColor)
	assert.Equal(t, "Nike", items[0].Brand)
	assert.Equal(t, testNow, items[0].AddedAt)

	var stored []models.LineItem
	ok, err := kv.Get(ctx, "cart", &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, items, stored)
}

func TestAddToCart_DistinctVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)

	_, err := s.AddToCart(ctx, shoe(), Options{Size: "9"})
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, shoe(), Options{Size: "10"})
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, shoe(), Options{Size: "10", Color: "Black"})
	require.NoError(t, err)

	assert.Len(t, s.Items(), 3)
	assert.Equal(t, 3, s.TotalItemCount())
}

func TestAddToCart_Errors(t *testing.T) {
	t.Parallel()

	out := shoe()
	out.InStock = false

	tests := []struct {
		name    string
		product models.Product
		opts    Options
		wantErr error
	}{
		{name: "out of stock", product: out, wantErr: ErrOutOfStock},
		{name: "negative quantity", product: shoe(), opts: Options{Quantity: -1}, wantErr: ErrValidation},
		{name: "quantity over limit", product: shoe(), opts: Options{Quantity: 100}, wantErr: ErrValidation},
		{name: "missing id", product: models.Product{InStock: true}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, _ := newTestCart(t, nil)
			_, err := s.AddToCart(context.Background(), tt.product, tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, s.IsEmpty())
		})
	}
}

func TestAddToCart_CapsQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)
	_, err := s.AddToCart(ctx, racket(), Options{Quantity: 90})
	require.NoError(t, err)
	li, err := s.AddToCart(ctx, racket(), Options{Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, li.Quantity)
}

func TestAddToCartByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, catalog.New([]models.Product{racket(), shoe()}))

	li, err := s.AddToCartByID(ctx, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Grip 2", li.SelectedSize)

	_, err = s.AddToCartByID(ctx, 404, Options{})
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)
	_, err := s.AddToCart(ctx, shoe(), Options{Size: "9"})
	require.NoError(t, err)

	li, err := s.UpdateQuantity(ctx, 2, "9", "White", 150)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, li.Quantity)
	assert.Equal(t, MaxQuantity, s.Items()[0].Quantity)

	li, err = s.UpdateQuantity(ctx, 2, "9", "", 4)
	require.NoError(t, err)
	assert.Equal(t, "White", li.SelectedColor)
	assert.Equal(t, 4, s.Items()[0].Quantity)

	_, err = s.UpdateQuantity(ctx, 2, "10", "White", 1)
	require.ErrorIs(t, err, ErrNotFound)

	li, err = s.UpdateQuantity(ctx, 2, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "9", li.SelectedSize)
	assert.Zero(t, li.Quantity)
	assert.True(t, s.IsEmpty())
}

func TestRemoveFromCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)
	for _, size := range []string{"8", "9"} {
		_, err := s.AddToCart(ctx, shoe(), Options{Size: size})
		require.NoError(t, err)
	}
	_, err := s.AddToCart(ctx, racket(), Options{})
	require.NoError(t, err)

	assert.False(t, s.RemoveFromCart(ctx, 2, "11", ""))
	assert.True(t, s.RemoveFromCart(ctx, 2, "8", "White"))
	assert.Len(t, s.Items(), 2)

	assert.True(t, s.RemoveFromCart(ctx, 2, "", ""))
	assert.False(t, s.IsInCart(2))
	assert.True(t, s.IsInCart(1))

	s.ClearCart(ctx)
	assert.True(t, s.IsEmpty())
}

func TestToggleFavorite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, kv := newTestCart(t, nil)

	on, err := s.ToggleFavorite(ctx, 5)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []int{5}, s.Favorites())

	on, err = s.ToggleFavorite(ctx, 5)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Favorites())

	_, err = s.ToggleFavorite(ctx, 0)
	require.ErrorIs(t, err, ErrValidation)

	added, err := s.AddFavorite(ctx, 7)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddFavorite(ctx, 7)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, s.FavoritesCount())

	var stored []int
	_, err = kv.Get(ctx, "favorites", &stored)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, stored)

	s.ClearFavorites(ctx)
	assert.False(t, s.IsFavorited(7))
}

func TestTotals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)

	_, err := s.AddToCart(ctx, shoe(), Options{Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 50.0, s.Subtotal())
	assert.Equal(t, 30.0, s.TotalSavings())
	assert.Equal(t, DefaultShippingFee, s.ShippingCost())
	assert.Equal(t, 4.0, s.Tax())
	assert.Equal(t, 63.99, s.GrandTotal())

	sum := s.Summary()
	assert.False(t, sum.FreeShippingEligible)
	assert.Equal(t, 25.0, sum.FreeShippingRemaining)

	_, err = s.AddToCart(ctx, balls(), Options{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 74.95, s.Subtotal())
	assert.Equal(t, 6.0, s.Tax())

	_, err = s.AddToCart(ctx, balls(), Options{Quantity: 1})
	require.NoError(t, err)
	sum = s.Summary()
	assert.Equal(t, 79.94, sum.Subtotal)
	assert.Equal(t, 0.0, sum.Shipping)
	assert.True(t, sum.FreeShippingEligible)
	assert.Equal(t, 0.0, sum.FreeShippingRemaining)
	assert.Equal(t, 6.4, sum.Tax)
	assert.Equal(t, 86.34, sum.Total)
	assert.Equal(t, 7, sum.ItemCount)
}

func TestCustomPricing(t *testing.T) {
	t.Parallel()

	s := New(Config{Pricing: Pricing{TaxRate: 0.2, FreeShippingThreshold: 40, ShippingFee: 5}})
	_, err := s.AddToCart(context.Background(), shoe(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.ShippingCost())
	assert.Equal(t, 10.0, s.Tax())
	assert.Equal(t, 60.0, s.GrandTotal())
}

func TestValidateCheckout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, _ := newTestCart(t, nil)
	v := s.ValidateCheckout()
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Cart is empty"}, v.Errors)

	_, err := s.AddToCart(ctx, balls(), Options{})
	require.NoError(t, err)
	assert.True(t, s.ValidateCheckout().IsValid)

	sizeless := racket()
	sizeless.Sizes = nil
	_, err = s.AddToCart(ctx, sizeless, Options{})
	require.NoError(t, err)
	v = s.ValidateCheckout()
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Please select a size for Wilson Pro Staff"}, v.Errors)
}

func TestValidateCheckout_UsesCurrentStock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	soldOut := shoe()
	soldOut.InStock = false

	s, _ := newTestCart(t, catalog.New([]models.Product{soldOut}))
	_, err := s.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)

	v := s.ValidateCheckout()
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Nike Air Zoom is out of stock"}, v.Errors)
}

func TestLoad_DropsMalformedData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.New(storage.NewMemoryBackend(0))
	require.NoError(t, kv.Set(ctx, "cart", []any{
		map[string]any{"id": 1, "name": "Racket", "price": 100, "quantity": 1},
		map[string]any{"id": 2, "name": "", "price": 10, "quantity": 1},
		map[string]any{"id": 3, "name": "Bag", "price": 10, "quantity": 0},
		"garbage",
	}, 0))
	require.NoError(t, kv.Set(ctx, "favorites", []any{4, -1, "x", 4, 9}, 0))

	s := New(Config{KV: kv})
	require.NoError(t, s.Load(ctx))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, []int{4, 9}, s.Favorites())

	var stored []int
	_, err := kv.Get(ctx, "favorites", &stored)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 9}, stored)
}

func TestLoad_FoldsStoredDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.New(storage.NewMemoryBackend(0))
	item := map[string]any{"id": 1, "name": "Racket", "price": 100, "quantity": 60, "selectedSize": "Grip 2"}
	require.NoError(t, kv.Set(ctx, "cart", []any{item, item}, 0))

	s := New(Config{KV: kv})
	require.NoError(t, s.Load(ctx))
	require.Len(t, s.Items(), 1)
	assert.Equal(t, MaxQuantity, s.Items()[0].Quantity)

	var stored []models.LineItem
	_, err := kv.Get(ctx, "cart", &stored)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, MaxQuantity, stored[0].Quantity)
}

func TestLoad_CleanStateIsNotRewritten(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.New(storage.NewMemoryBackend(0))

	require.NoError(t, New(Config{KV: kv, Namespace: "fresh_"}).Load(ctx))
	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLoad_ReadFailureKeepsStoredData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := storage.NewMemoryBackend(0)
	good := storage.New(mem)
	seed := New(Config{KV: good})
	_, err := seed.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)
	_, err = seed.AddFavorite(ctx, 2)
	require.NoError(t, err)

	s := New(Config{KV: storage.New(unreadableBackend{mem})})
	err = s.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrStorage)
	assert.True(t, s.IsEmpty())
	assert.False(t, s.Persisted())

	reloaded := New(Config{KV: good})
	require.NoError(t, reloaded.Load(ctx))
	assert.Len(t, reloaded.Items(), 1)
	assert.Equal(t, []int{2}, reloaded.Favorites())
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.New(storage.NewMemoryBackend(0), storage.WithMaxSize(10))
	s := New(Config{KV: kv})

	_, err := s.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)
	assert.False(t, s.Persisted())
	assert.Len(t, s.Items(), 1)

	s.ClearCart(ctx)
	assert.True(t, s.Persisted())
}

func TestNamespaceIsolatesCarts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := storage.New(storage.NewMemoryBackend(0))
	a := New(Config{KV: kv, Namespace: "a_"})
	b := New(Config{KV: kv, Namespace: "b_"})

	_, err := a.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)
	require.NoError(t, b.Load(ctx))
	assert.True(t, b.IsEmpty())

	reloaded := New(Config{KV: kv, Namespace: "a_"})
	require.NoError(t, reloaded.Load(ctx))
	assert.Len(t, reloaded.Items(), 1)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)
	local, err := s.AddToCart(ctx, shoe(), Options{Quantity: 2})
	require.NoError(t, err)

	remote := local
	remote.Quantity = 3
	other := models.LineItem{ID: 9, Name: "Bag", Category: models.Bags, Price: 30, Quantity: 1, InStock: true}
	s.MergeCart(ctx, []models.LineItem{remote, other, {ID: 0, Name: "bad"}})

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 9, items[1].ID)

	_, err = s.AddFavorite(ctx, 1)
	require.NoError(t, err)
	s.MergeFavorites(ctx, []int{1, 2, 0, 2})
	assert.Equal(t, []int{1, 2}, s.Favorites())
}

func TestAnalyticsAndRecommendations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newTestCart(t, nil)
	assert.Empty(t, s.RecommendedCategories())
	assert.Zero(t, s.Analytics().AverageItemPrice)

	_, err := s.AddToCart(ctx, racket(), Options{})
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, shoe(), Options{Quantity: 2})
	require.NoError(t, err)

	a := s.Analytics()
	assert.Equal(t, map[models.Category]int{models.Rackets: 1, models.Shoes: 2}, a.CategoryDistribution)
	assert.Equal(t, map[string]int{"Wilson": 1, "Nike": 2}, a.BrandDistribution)
	assert.Equal(t, 200.0, a.TotalValue)
	assert.Equal(t, 60.0, a.TotalSavings)
	assert.Equal(t, 66.67, a.AverageItemPrice)

	assert.Equal(t, []models.Category{models.Balls, models.Bags}, s.RecommendedCategories())

	apparel, _ := newTestCart(t, nil)
	_, err = apparel.AddToCart(ctx, models.Product{ID: 4, Name: "Polo", Category: models.Shirts, Price: 40, Sizes: []string{"M"}, InStock: true}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.Shoes}, apparel.RecommendedCategories())
}

func TestExportImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src, _ := newTestCart(t, nil)
	_, err := src.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)
	_, err = src.AddFavorite(ctx, 2)
	require.NoError(t, err)

	b := src.Export()
	assert.Equal(t, BackupVersion, b.Version)
	assert.Equal(t, testNow, b.ExportedAt)

	dst, _ := newTestCart(t, nil)
	require.NoError(t, dst.Import(ctx, b))
	assert.Equal(t, src.Items(), dst.Items())
	assert.Equal(t, []int{2}, dst.Favorites())

	b.Version = "2.0"
	require.ErrorIs(t, dst.Import(ctx, b), ErrValidation)
}

func TestImport_FoldsDuplicatesAndCaps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	li := models.LineItem{ID: 2, Name: "Nike Air Zoom", Price: 50, SelectedSize: "9", SelectedColor: "White", Quantity: 500}
	other := li
	other.SelectedSize = "10"
	other.Quantity = 3

	s, _ := newTestCart(t, nil)
	require.NoError(t, s.Import(ctx, Backup{Version: BackupVersion, Cart: []models.LineItem{li, other, li}}))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, MaxQuantity, items[0].Quantity)
	assert.Equal(t, 3, items[1].Quantity)
	assert.Equal(t, MaxQuantity+3, s.TotalItemCount())

	added, err := s.AddToCart(ctx, shoe(), Options{Size: "10"})
	require.NoError(t, err)
	assert.Equal(t, 4, added.Quantity)
	assert.Len(t, s.Items(), 2)
}

func TestSyncRemote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	accounts := mocknet.NewAccounts(mocknet.New(0, 0, 0))
	accounts.Seed("ana", []models.LineItem{
		{ID: 2, Name: "Nike Air Zoom", Category: models.Shoes, Price: 50, SelectedSize: "8", SelectedColor: "White", Quantity: 1, InStock: true},
	}, []int{3})

	s, _ := newTestCart(t, nil)
	_, err := s.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)

	require.NoError(t, s.SyncRemote(ctx, accounts, "ana"))
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 2, s.Items()[0].Quantity)
	assert.Equal(t, []int{3}, s.Favorites())

	items, favs, err := accounts.FetchCart(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, []int{3}, favs)
}

func TestSyncRemote_NetworkError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	accounts := mocknet.NewAccounts(mocknet.New(0, 0, 1))

	s, _ := newTestCart(t, nil)
	_, err := s.AddToCart(ctx, shoe(), Options{})
	require.NoError(t, err)

	err = s.SyncRemote(ctx, accounts, "ana")
	require.ErrorIs(t, err, mocknet.ErrNetwork)
	assert.True(t, strings.HasPrefix(err.Error(), "fetch remote cart"))
	assert.Len(t, s.Items(), 1)
}
