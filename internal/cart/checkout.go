package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/topspin/internal/models"
)

type Validation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateCheckout lists every reason the cart cannot be checked out. Stock
// is taken from the catalog when one is attached.
func (s *Store) ValidateCheckout() Validation {
	errs := []string{}
	if len(s.items) == 0 {
		errs = append(errs, "Cart is empty")
	}

	for _, li := range s.items {
		if !s.inStock(li) {
			errs = append(errs, fmt.Sprintf("%s is out of stock", li.Name))
		}
		if li.Quantity <= 0 || li.Quantity > MaxQuantity {
			errs = append(errs, fmt.Sprintf("Invalid quantity for %s", li.Name))
		}
		if li.SelectedSize == "" && li.Category.SizeRequired() {
			errs = append(errs, fmt.Sprintf("Please select a size for %s", li.Name))
		}
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

func (s *Store) inStock(li models.LineItem) bool {
	if s.lookup == nil {
		return li.InStock
	}
	p, err := s.lookup.Product(li.ID)
	if err != nil {
		return false
	}
	return p.InStock
}

type Analytics struct {
	CategoryDistribution map[models.Category]int `json:"categoryDistribution"`
	BrandDistribution    map[string]int          `json:"brandDistribution"`
	TotalValue           float64                 `json:"totalValue"`
	TotalSavings         float64                 `json:"totalSavings"`
	AverageItemPrice     float64                 `json:"averageItemPrice"`
}

func (s *Store) Analytics() Analytics {
	a := Analytics{
		CategoryDistribution: map[models.Category]int{},
		BrandDistribution:    map[string]int{},
	}
	for _, li := range s.items {
		a.CategoryDistribution[li.Category] += li.Quantity
		a.BrandDistribution[li.Brand] += li.Quantity
	}

	value := s.subtotal()
	a.TotalValue = money(value)
	a.TotalSavings = money(s.savings())
	if n := s.TotalItemCount(); n > 0 {
		a.AverageItemPrice = money(value.Div(decimal.NewFromInt(int64(n))))
	}
	return a
}

// RecommendedCategories suggests categories that complement the cart.
func (s *Store) RecommendedCategories() []models.Category {
	has := map[models.Category]bool{}
	for _, li := range s.items {
		has[li.Category] = true
	}

	out := []models.Category{}
	if has[models.Rackets] && !has[models.Balls] {
		out = append(out, models.Balls)
	}
	if has[models.Rackets] && !has[models.Bags] {
		out = append(out, models.Bags)
	}
	if (has[models.Shirts] || has[models.Shorts]) && !has[models.Shoes] {
		out = append(out, models.Shoes)
	}
	return out
}
