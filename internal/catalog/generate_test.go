package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/topspin/internal/models"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	g := NewGenerator(seed)
	g.Now = func() time.Time { return fixedNow }
	return g
}

func TestGenerate_PriceInvariants(t *testing.T) {
	t.Parallel()

	for _, seed := range []int64{1, 2, 3, 42, 2026} {
		products := newTestGenerator(seed).Generate()
		require.NotEmpty(t, products)

		for _, p := range products {
			assert.LessOrEqual(t, p.Price, p.OriginalPrice, "product %d", p.ID)
			assert.Equal(t, p.Discount > 0, p.Price < p.OriginalPrice, "product %d", p.ID)
			assert.GreaterOrEqual(t, p.Discount, 0)
			assert.Less(t, p.Discount, 100)
			if p.Discount > 0 {
				assert.GreaterOrEqual(t, p.Discount, 10)
				assert.LessOrEqual(t, p.Discount, 39)
			}
		}
	}
}

func TestGenerate_CountAndIdentity(t *testing.T) {
	t.Parallel()

	products := newTestGenerator(7).Generate()

	assert.Len(t, products, MaxProducts)
	seen := map[int]bool{}
	for _, p := range products {
		assert.Positive(t, p.ID)
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
}

func TestGenerate_FieldRanges(t *testing.T) {
	t.Parallel()

	products := newTestGenerator(11).Generate()
	cutoff := fixedNow.AddDate(0, -3, 0)
	tables := DefaultTables()

	for _, p := range products {
		assert.GreaterOrEqual(t, p.Rating, 3.0)
		assert.LessOrEqual(t, p.Rating, 5.0)
		assert.InDelta(t, p.Rating, math.Round(p.Rating*10)/10, 1e-9)
		assert.GreaterOrEqual(t, p.ReviewCount, 10)
		assert.NotEmpty(t, p.Sizes)
		assert.Len(t, p.Features, 4)
		assert.Contains(t, p.Tags, "tennis")
		assert.True(t, p.Category.Valid())
		assert.False(t, p.CreatedAt.After(fixedNow))
		assert.True(t, p.CreatedAt.After(fixedNow.Add(-maxAge-time.Second)))
		if p.IsNew {
			assert.False(t, p.CreatedAt.Before(cutoff), "stale new product %d", p.ID)
		}

		if isApparel(p.Category) {
			assert.Contains(t, tables.ApparelBrands, p.BrandDisplay)
		} else {
			assert.Contains(t, tables.EquipmentBrands, p.BrandDisplay)
		}
	}
}

func TestGenerate_FeaturedAreTopRated(t *testing.T) {
	t.Parallel()

	products := newTestGenerator(5).Generate()

	var featured []models.Product
	lowestFeatured := 5.0
	for _, p := range products {
		if p.IsFeatured {
			featured = append(featured, p)
			lowestFeatured = math.Min(lowestFeatured, p.Rating)
		}
	}
	require.Len(t, featured, int(math.Ceil(float64(len(products))*0.05)))

	for _, p := range products {
		if !p.IsFeatured {
			assert.LessOrEqual(t, p.Rating, lowestFeatured)
		}
	}
}

func TestGenerate_SameSeedSameCatalog(t *testing.T) {
	t.Parallel()

	a := newTestGenerator(99).Generate()
	b := newTestGenerator(99).Generate()
	assert.Equal(t, a, b)
}

func TestGenerate_FillsWithVariants(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(13)
	g.Tables.Names = map[models.Category][]string{
		models.Rackets: {"Pro Staff", "Blade"},
		models.Balls:   {"Can of 3 Balls"},
	}

	products := g.Generate()
	require.Len(t, products, MinProducts)

	seen := map[int]bool{}
	for i, p := range products {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		assert.LessOrEqual(t, p.Price, p.OriginalPrice)
		assert.Equal(t, p.Discount > 0, p.Price < p.OriginalPrice)
		assert.GreaterOrEqual(t, p.OriginalPrice, float64(minVariantPrice))
		if i >= 12 {
			assert.Contains(t, p.SKU, "-")
			assert.Greater(t, len(p.Name), len(p.BrandDisplay))
		}
	}
}

func TestGenerate_EmptyTables(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(1)
	g.Tables.Names = nil
	assert.Empty(t, g.Generate())
}

func TestBasePriceFallbacks(t *testing.T) {
	t.Parallel()

	tables := DefaultTables()
	assert.Equal(t, 220, tables.basePrice(models.Rackets, "Wilson"))
	assert.Equal(t, 45, tables.basePrice(models.Shirts, "Fila"))
	assert.Equal(t, 50, tables.basePrice(models.Category("socks"), "Nike"))
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "new-balance", BrandCode("New Balance"))
	assert.Equal(t, "WIL-RAC-0007", skuFor("Wilson", models.Rackets, 7))
	assert.Equal(t, "ON-SHO-0120", skuFor("On", models.Shoes, 120))
	assert.Equal(t, 198, discountedPrice(220, 10))
	assert.Equal(t, 220, discountedPrice(220, 0))
}
