package catalog

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/Skotchmaster/topspin/internal/models"
)

const (
	MinProducts = 200
	MaxProducts = 250

	discountChance    = 0.3
	minDiscount       = 10
	discountSpread    = 30
	inStockChance     = 0.9
	variantStockRate  = 0.95
	newChance         = 0.2
	featuredShare     = 0.05
	priceJitter       = 15
	minVariantPrice   = 5
	maxAge            = 365 * 24 * time.Hour
	newArrivalsMonths = 3
)

type Generator struct {
	Tables      Tables
	Rand        *rand.Rand
	Now         func() time.Time
	MinProducts int
	MaxProducts int
}

// NewGenerator returns a generator over the default tables. A zero seed
// draws one from the runtime source.
func NewGenerator(seed int64) *Generator {
	s := uint64(seed)
	if seed == 0 {
		s = rand.Uint64()
	}
	return &Generator{
		Tables:      DefaultTables(),
		Rand:        rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
		Now:         time.Now,
		MinProducts: MinProducts,
		MaxProducts: MaxProducts,
	}
}

func (g *Generator) Generate() []models.Product {
	now := g.Now()
	products := make([]models.Product, 0, g.MaxProducts)

	id := 1
	for _, category := range models.Categories {
		names, ok := g.Tables.Names[category]
		if !ok {
			continue
		}
		for _, name := range names {
			for _, brand := range g.Tables.brandsFor(category) {
				products = append(products, g.product(id, category, name, brand, now))
				id++
			}
		}
	}

	products = g.adjustCount(products)
	markFeatured(products)
	expireNewFlags(products, now)
	return products
}

func (g *Generator) product(id int, category models.Category, name, brand string, now time.Time) models.Product {
	base := g.Tables.basePrice(category, brand)
	discount := 0
	if g.Rand.Float64() < discountChance {
		discount = g.Rand.IntN(discountSpread) + minDiscount
	}

	return models.Product{
		ID:            id,
		Name:          brand + " " + name,
		Brand:         BrandCode(brand),
		BrandDisplay:  brand,
		Category:      category,
		Price:         float64(discountedPrice(base, discount)),
		OriginalPrice: float64(base),
		Discount:      discount,
		Image:         imageFor(id, category),
		Rating:        math.Round((g.Rand.Float64()*2+3)*10) / 10,
		ReviewCount:   g.Rand.IntN(500) + 10,
		Color:         g.color(),
		Sizes:         sizesFor(category),
		Description:   descriptionFor(brand, name, category),
		Features:      featuresFor(category),
		InStock:       g.Rand.Float64() < inStockChance,
		IsNew:         g.Rand.Float64() < newChance,
		Tags:          tagsFor(category, brand),
		SKU:           skuFor(brand, category, id),
		CreatedAt:     now.Add(-time.Duration(g.Rand.Float64() * float64(maxAge))),
	}
}

func (g *Generator) color() string {
	if len(g.Tables.Colors) == 0 {
		return ""
	}
	return g.Tables.Colors[g.Rand.IntN(len(g.Tables.Colors))]
}

func (g *Generator) adjustCount(products []models.Product) []models.Product {
	if len(products) > g.MaxProducts {
		return products[:g.MaxProducts]
	}
	if len(products) >= g.MinProducts || len(products) == 0 {
		return products
	}

	nextID := slices.MaxFunc(products, func(a, b models.Product) int { return cmp.Compare(a.ID, b.ID) }).ID + 1
	originals := len(products)
	for i := 0; len(products) < g.MinProducts; i++ {
		products = append(products, g.variant(products[i%originals], nextID))
		nextID++
	}
	return products
}

// variant clones src under a new id. The price is re-derived from the
// perturbed original price so the discount stays consistent.
func (g *Generator) variant(src models.Product, id int) models.Product {
	v := src
	v.ID = id
	v.Sizes = slices.Clone(src.Sizes)
	v.Features = slices.Clone(src.Features)
	v.Tags = slices.Clone(src.Tags)
	if len(g.Tables.Variations) > 0 {
		v.Name = src.Name + " " + g.Tables.Variations[g.Rand.IntN(len(g.Tables.Variations))]
	}

	original := int(src.OriginalPrice) + g.Rand.IntN(2*priceJitter) - priceJitter
	if original < minVariantPrice {
		original = minVariantPrice
	}
	v.OriginalPrice = float64(original)
	v.Price = float64(discountedPrice(original, v.Discount))
	v.Color = g.color()
	v.SKU = skuFor(src.BrandDisplay, src.Category, id)
	v.Image = imageFor(id, src.Category)
	v.InStock = g.Rand.Float64() < variantStockRate
	return v
}

func markFeatured(products []models.Product) {
	if len(products) == 0 {
		return
	}
	order := make([]int, len(products))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(products[b].Rating, products[a].Rating)
	})

	n := int(math.Ceil(float64(len(products)) * featuredShare))
	for _, idx := range order[:n] {
		products[idx].IsFeatured = true
	}
}

func expireNewFlags(products []models.Product, now time.Time) {
	cutoff := now.AddDate(0, -newArrivalsMonths, 0)
	for i := range products {
		if products[i].IsNew && products[i].CreatedAt.Before(cutoff) {
			products[i].IsNew = false
		}
	}
}

func discountedPrice(base, discount int) int {
	if discount <= 0 {
		return base
	}
	return base * (100 - discount) / 100
}

// BrandCode turns a display name into the identifier used by brand filters.
func BrandCode(brand string) string {
	return strings.ToLower(strings.Replace(brand, " ", "-", 1))
}

func tagsFor(c models.Category, brand string) []string {
	tags := []string{"tennis", string(c), strings.ToLower(brand)}
	switch c {
	case models.Rackets:
		tags = append(tags, "equipment", "professional")
	case models.Shoes:
		tags = append(tags, "footwear", "court")
	case models.Shirts, models.Shorts, models.Jackets:
		tags = append(tags, "apparel", "clothing")
	}
	return tags
}

func skuFor(brand string, c models.Category, id int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix3(brand), prefix3(string(c)), id)
}

func prefix3(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}
