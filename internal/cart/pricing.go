package cart

import (
	"github.com/shopspring/decimal"
)

const (
	DefaultTaxRate               = 0.08
	DefaultFreeShippingThreshold = 75.0
	DefaultShippingFee           = 9.99
)

type Pricing struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               DefaultTaxRate,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		ShippingFee:           DefaultShippingFee,
	}
}

type Summary struct {
	ItemCount             int     `json:"itemCount"`
	Subtotal              float64 `json:"subtotal"`
	Savings               float64 `json:"savings"`
	Shipping              float64 `json:"shipping"`
	Tax                   float64 `json:"tax"`
	Total                 float64 `json:"total"`
	FreeShippingEligible  bool    `json:"freeShippingEligible"`
	FreeShippingRemaining float64 `json:"freeShippingRemaining"`
}

func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func (s *Store) subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total
}

func (s *Store) savings() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.items {
		if li.OriginalPrice > li.Price {
			diff := decimal.NewFromFloat(li.OriginalPrice).Sub(decimal.NewFromFloat(li.Price))
			total = total.Add(diff.Mul(decimal.NewFromInt(int64(li.Quantity))))
		}
	}
	return total
}

func (s *Store) freeShipping(sub decimal.Decimal) bool {
	return sub.GreaterThanOrEqual(decimal.NewFromFloat(s.pricing.FreeShippingThreshold))
}

func (s *Store) shipping() decimal.Decimal {
	if s.freeShipping(s.subtotal()) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(s.pricing.ShippingFee)
}

func (s *Store) tax() decimal.Decimal {
	return s.subtotal().Mul(decimal.NewFromFloat(s.pricing.TaxRate)).Round(2)
}

func (s *Store) Subtotal() float64     { return money(s.subtotal()) }
func (s *Store) TotalSavings() float64 { return money(s.savings()) }

// ShippingCost is free once the subtotal reaches the threshold.
func (s *Store) ShippingCost() float64 { return money(s.shipping()) }

// Tax is the subtotal times the tax rate, rounded to cents.
func (s *Store) Tax() float64 { return money(s.tax()) }

func (s *Store) GrandTotal() float64 {
	return money(s.subtotal().Add(s.shipping()).Add(s.tax()))
}

func (s *Store) Summary() Summary {
	sub := s.subtotal()
	ship := s.shipping()
	remaining := decimal.NewFromFloat(s.pricing.FreeShippingThreshold).Sub(sub)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return Summary{
		ItemCount:             s.TotalItemCount(),
		Subtotal:              money(sub),
		Savings:               money(s.savings()),
		Shipping:              money(ship),
		Tax:                   s.Tax(),
		Total:                 s.GrandTotal(),
		FreeShippingEligible:  s.freeShipping(sub),
		FreeShippingRemaining: money(remaining),
	}
}
