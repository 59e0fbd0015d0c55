package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirlokal/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func coke() domain.Product {
	minQty := 24
	return domain.Product{
		ID:                   "p-coke",
		Name:                 "Coke 330ml",
		SKU:                  "COKE-330",
		Price:                dec("1.50"),
		WholesalePrice:       decimal.NewNullDecimal(dec("1.20")),
		WholesaleMinQuantity: &minQty,
		Quantity:             100,
	}
}

func TestWholesaleThreshold(t *testing.T) {
	p := coke()

	line := NewLine(p, 24)
	assert.True(t, line.UnitPrice.Equal(dec("1.20")), "unit price at 24: %s", line.UnitPrice)
	assert.True(t, line.Total.Equal(dec("28.80")), "line total at 24: %s", line.Total)

	line = NewLine(p, 23)
	assert.True(t, line.UnitPrice.Equal(dec("1.50")), "unit price at 23: %s", line.UnitPrice)
	assert.True(t, line.Total.Equal(dec("34.50")), "line total at 23: %s", line.Total)
}

func TestEffectivePriceNeverExceedsRegularAboveThreshold(t *testing.T) {
	p := coke()
	for qty := *p.WholesaleMinQuantity; qty < 200; qty++ {
		require.True(t, EffectivePrice(p, qty).LessThanOrEqual(p.Price), "qty %d", qty)
	}
}

func TestEffectivePriceIgnoresHalfConfiguredTier(t *testing.T) {
	p := coke()
	p.WholesaleMinQuantity = nil
	assert.True(t, EffectivePrice(p, 500).Equal(p.Price))
}

func TestCartTotalsWithDiscount(t *testing.T) {
	lines := []Line{NewLine(coke(), 24), NewLine(domain.Product{ID: "p2", Price: dec("2.25")}, 2)}

	totals := CartTotals(lines, dec("10"))
	assert.True(t, totals.Subtotal.Equal(dec("33.30")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.Discount.Equal(dec("3.33")), "discount %s", totals.Discount)
	assert.True(t, totals.Total.Equal(dec("29.97")), "total %s", totals.Total)
	assert.True(t, totals.Tax.IsZero())

	again := CartTotals(lines, dec("10"))
	assert.True(t, again.Subtotal.Equal(totals.Subtotal))
	assert.True(t, again.Discount.Equal(totals.Discount))
	assert.True(t, again.Total.Equal(totals.Total))
}

func TestCartTotalsClampsPercent(t *testing.T) {
	lines := []Line{NewLine(domain.Product{ID: "p1", Price: dec("5")}, 2)}

	assert.True(t, CartTotals(lines, dec("150")).Total.IsZero())
	assert.True(t, CartTotals(lines, dec("-5")).Total.Equal(dec("10")))
}

func TestCartRepricesOnEveryQuantityChange(t *testing.T) {
	cart := NewCart()
	p := coke()

	require.NoError(t, cart.Add(p, 20))
	assert.True(t, cart.Lines()[0].UnitPrice.Equal(dec("1.50")))

	require.NoError(t, cart.Add(p, 4))
	require.Equal(t, 1, cart.Len())
	assert.Equal(t, 24, cart.Lines()[0].Quantity)
	assert.True(t, cart.Lines()[0].UnitPrice.Equal(dec("1.20")))

	require.NoError(t, cart.SetQuantity(p.ID, 23))
	assert.True(t, cart.Lines()[0].UnitPrice.Equal(dec("1.50")))
	assert.True(t, cart.Totals().Total.Equal(dec("34.50")))

	require.NoError(t, cart.SetQuantity(p.ID, 0))
	assert.Zero(t, cart.Len())
}

func TestCartRejectsNonPositiveAdd(t *testing.T) {
	cart := NewCart()
	require.ErrorIs(t, cart.Add(coke(), 0), ErrInvalidQuantity)
	require.ErrorIs(t, cart.SetQuantity("x", -1), ErrInvalidQuantity)
}

func TestCartSetQuantityOnMissingLine(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.Add(coke(), 2))
	require.ErrorIs(t, cart.SetQuantity("missing", 3), ErrLineNotFound)
	assert.Equal(t, 1, cart.Len())
}
