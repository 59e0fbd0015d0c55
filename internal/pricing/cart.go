package pricing

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"kasirlokal/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrLineNotFound    = errors.New("product is not in the cart")
)

// Cart is the in-progress sale. Unit prices are re-evaluated on every
// quantity change because the wholesale tier depends on quantity.
type Cart struct {
	lines           []Line
	discountPercent decimal.Decimal
}

func NewCart() *Cart {
	return &Cart{}
}

// Add puts qty more units of product in the cart, merging with an existing line.
func (c *Cart) Add(product domain.Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if idx := c.index(product.ID); idx >= 0 {
		c.lines[idx] = NewLine(product, c.lines[idx].Quantity+qty)
		return nil
	}
	c.lines = append(c.lines, NewLine(product, qty))
	return nil
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	idx := c.index(productID)
	if idx < 0 {
		return ErrLineNotFound
	}
	if qty == 0 {
		c.lines = slices.Delete(c.lines, idx, idx+1)
		return nil
	}
	c.lines[idx] = NewLine(c.lines[idx].Product, qty)
	return nil
}

func (c *Cart) Remove(productID string) {
	if idx := c.index(productID); idx >= 0 {
		c.lines = slices.Delete(c.lines, idx, idx+1)
	}
}

func (c *Cart) SetDiscount(pct decimal.Decimal) {
	c.discountPercent = ClampPercent(pct)
}

func (c *Cart) DiscountPercent() decimal.Decimal {
	return c.discountPercent
}

func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

func (c *Cart) Totals() Totals {
	return CartTotals(c.lines, c.discountPercent)
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Clear() {
	c.lines = nil
	c.discountPercent = decimal.Zero
}

func (c *Cart) index(productID string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.Product.ID == productID })
}
