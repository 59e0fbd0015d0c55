package service

import (
	"context"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

// StockCoordinator keeps product quantities in line with completed
// transactions. Quantities never go below zero; an oversell floors at zero.
type StockCoordinator struct {
	*base
}

// UpdateStock adds delta to the product's quantity in its own atomic update.
func (c *StockCoordinator) UpdateStock(ctx context.Context, productID string, delta int) (domain.Product, error) {
	var product domain.Product
	err := c.update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		existing, ok, err := tx.GetProduct(productID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("product", productID)
		}
		existing.Quantity = clampQuantity(existing.Quantity + delta)
		existing.UpdatedAt = c.now()
		product = existing
		return tx.PutProduct(existing)
	})
	return product, err
}

// StockDeltas returns the per-item quantity change a completed transaction of
// its type applies to its own items. Voids never move their own items.
func StockDeltas(t domain.Transaction) []ItemDelta {
	sign := stockSign(t.Type)
	if sign == 0 {
		return nil
	}
	deltas := make([]ItemDelta, 0, len(t.Items))
	for _, item := range t.Items {
		deltas = append(deltas, ItemDelta{ProductID: item.ProductID, Delta: sign * item.Quantity})
	}
	return deltas
}

type ItemDelta struct {
	ProductID string `json:"productId"`
	Delta     int    `json:"delta"`
}

// applyCompletion applies the stock effect of t reaching completed status.
// It must run inside an Update that declares products and transactions.
//
// A void that references a transaction cancels it and, when the referenced
// transaction was completed, reverses its stock effect.
func (c *StockCoordinator) applyCompletion(tx store.Tx, t domain.Transaction) error {
	if t.Type != domain.TransactionVoid {
		return c.applyDeltas(tx, t.ID, StockDeltas(t))
	}
	if t.RefundedTransactionID == "" {
		return nil
	}

	original, ok, err := tx.GetTransaction(t.RefundedTransactionID)
	if err != nil {
		return err
	}
	if !ok {
		return invalidInput("voided transaction %q does not exist", t.RefundedTransactionID)
	}
	if original.Type == domain.TransactionVoid {
		return invalidInput("transaction %q is a void and cannot be voided", original.ID)
	}
	if original.Status == domain.StatusCancelled {
		return invalidInput("transaction %q is already cancelled", original.ID)
	}

	if original.Status == domain.StatusCompleted {
		reversed := StockDeltas(original)
		for i := range reversed {
			reversed[i].Delta = -reversed[i].Delta
		}
		if err := c.applyDeltas(tx, t.ID, reversed); err != nil {
			return err
		}
	}

	original.Status = domain.StatusCancelled
	original.UpdatedAt = c.now()
	return tx.PutTransaction(original)
}

func (c *StockCoordinator) applyDeltas(tx store.Tx, transactionID string, deltas []ItemDelta) error {
	now := c.now()
	for _, d := range deltas {
		product, ok, err := tx.GetProduct(d.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			c.log.Warn("skipping stock update for missing product",
				"transaction_id", transactionID, "product_id", d.ProductID, "delta", d.Delta)
			continue
		}
		product.Quantity = clampQuantity(product.Quantity + d.Delta)
		product.UpdatedAt = now
		if err := tx.PutProduct(product); err != nil {
			return err
		}
	}
	return nil
}

func stockSign(t domain.TransactionType) int {
	switch t {
	case domain.TransactionSale:
		return -1
	case domain.TransactionRefund:
		return 1
	}
	return 0
}

func clampQuantity(q int) int {
	return max(q, 0)
}
