// Package pricing computes effective unit prices and cart totals. It never
// touches storage.
package pricing

import (
	"github.com/shopspring/decimal"

	"kasirlokal/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns the wholesale price once qty reaches the product's
// wholesale minimum, and the regular price otherwise.
func EffectivePrice(product domain.Product, qty int) decimal.Decimal {
	if product.HasWholesaleTier() && qty >= *product.WholesaleMinQuantity {
		return product.WholesalePrice.Decimal
	}
	return product.Price
}

func LineTotal(product domain.Product, qty int) decimal.Decimal {
	return EffectivePrice(product, qty).Mul(decimal.NewFromInt(int64(qty)))
}

// Line is one priced cart entry.
type Line struct {
	Product   domain.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

func NewLine(product domain.Product, qty int) Line {
	return Line{
		Product:   product,
		Quantity:  qty,
		UnitPrice: EffectivePrice(product, qty),
		Total:     LineTotal(product, qty),
	}
}

type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
}

// CartTotals sums the line totals and applies a percentage discount. The
// percentage is clamped to [0, 100]; the discount is rounded to cents. Tax is
// always zero.
func CartTotals(lines []Line, discountPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total)
	}

	pct := ClampPercent(discountPercent)
	discount := subtotal.Mul(pct).Div(hundred).Round(2)

	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: pct,
		Discount:        discount,
		Tax:             decimal.Zero,
		Total:           subtotal.Sub(discount),
	}
}

func ClampPercent(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
