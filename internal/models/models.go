package models

import (
	"time"
)

type Category string

const (
	Rackets Category = "rackets"
	Shoes   Category = "shoes"
	Shirts  Category = "shirts"
	Shorts  Category = "shorts"
	Jackets Category = "jackets"
	Balls   Category = "balls"
	Bags    Category = "bags"
)

// Categories lists every category in catalog order.
var Categories = []Category{Rackets, Shoes, Shirts, Shorts, Jackets, Balls, Bags}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SizeRequired reports whether a line item of this category needs a size
// before checkout.
func (c Category) SizeRequired() bool {
	return c != Balls && c != Bags
}

type Product struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	BrandDisplay  string    `json:"brandDisplay"`
	Category      Category  `json:"category"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice"`
	Discount      int       `json:"discount"`
	Image         string    `json:"image"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	Color         string    `json:"color"`
	Sizes         []string  `json:"sizes"`
	Description   string    `json:"description"`
	Features      []string  `json:"features"`
	InStock       bool      `json:"inStock"`
	IsNew         bool      `json:"isNew"`
	IsFeatured    bool      `json:"isFeatured"`
	Tags          []string  `json:"tags"`
	SKU           string    `json:"sku"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LineItem is one cart entry. Product fields are a snapshot taken when the
// item was first added.
type LineItem struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Category      Category  `json:"category"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice"`
	Discount      int       `json:"discount"`
	Image         string    `json:"image"`
	SelectedSize  string    `json:"selectedSize"`
	SelectedColor string    `json:"selectedColor"`
	Quantity      int       `json:"quantity"`
	InStock       bool      `json:"inStock"`
	AddedAt       time.Time `json:"addedAt"`
}

func (li LineItem) Matches(id int, size, color string) bool {
	return li.ID == id && li.SelectedSize == size && li.SelectedColor == color
}
