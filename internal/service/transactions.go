package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/pricing"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

type TransactionService struct {
	*base
	activity *ActivityLogService
	stock    *StockCoordinator
}

func (s *TransactionService) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.Transaction, error) { return tx.ListTransactions() })
}

func (s *TransactionService) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	var transaction domain.Transaction
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("transaction", id)
		}
		transaction = found
		return nil
	})
	return transaction, err
}

// GetByDateRange returns transactions created within [start, end], newest first.
func (s *TransactionService) GetByDateRange(ctx context.Context, start time.Time, end time.Time) ([]domain.Transaction, error) {
	if end.Before(start) {
		return nil, invalidInput("range end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return s.list(ctx, func(tx store.Tx) ([]domain.Transaction, error) { return tx.ListTransactionsBetween(start, end) })
}

// GetToday covers the current local calendar day.
func (s *TransactionService) GetToday(ctx context.Context) ([]domain.Transaction, error) {
	start, end := dayBounds(s.now())
	return s.GetByDateRange(ctx, start, end)
}

// GetSalesStats sums completed sales in the window. Refunds are summed
// regardless of status.
func (s *TransactionService) GetSalesStats(ctx context.Context, start time.Time, end time.Time) (domain.SalesStats, error) {
	transactions, err := s.GetByDateRange(ctx, start, end)
	if err != nil {
		return domain.SalesStats{}, err
	}
	return salesStats(transactions), nil
}

func (s *TransactionService) GetByCashier(ctx context.Context, cashierID string) ([]domain.Transaction, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.Transaction, error) { return tx.ListTransactionsByCashier(cashierID) })
}

func (s *TransactionService) GetByType(ctx context.Context, txType domain.TransactionType) ([]domain.Transaction, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.Transaction, error) { return tx.ListTransactionsByType(txType) })
}

// Create prices the items, writes the transaction and applies its stock
// effect in one atomic update. Sale lines are always priced from the
// product; a unit price is accepted only on refunds and voids.
func (s *TransactionService) Create(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	if req.Type == domain.TransactionSale {
		for i, item := range req.Items {
			if item.UnitPrice != nil {
				return domain.Transaction{}, invalidInput("item %d: a sale cannot carry a unitPrice", i)
			}
		}
	}
	return s.create(ctx, req)
}

func (s *TransactionService) create(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	if err := checkCreateRequest(&req); err != nil {
		return domain.Transaction{}, err
	}
	cashierID := strings.TrimSpace(req.CashierID)
	if cashierID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			cashierID = actor.UserID
		}
	}
	if cashierID == "" {
		return domain.Transaction{}, invalidInput("cashierId is required")
	}

	now := s.now()
	transaction := domain.Transaction{
		ID:                    strings.TrimSpace(req.ID),
		TransactionNumber:     xid.TransactionNumber(now),
		Type:                  req.Type,
		Status:                req.Status,
		PaymentMethod:         req.PaymentMethod,
		CashierID:             cashierID,
		RefundedTransactionID: strings.TrimSpace(req.RefundedTransactionID),
		Notes:                 strings.TrimSpace(req.Notes),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if transaction.ID == "" {
		transaction.ID = xid.New("trx")
	}

	err := s.update(ctx, []store.Kind{store.KindTransactions, store.KindProducts}, func(tx store.Tx) error {
		if _, exists, err := tx.GetTransaction(transaction.ID); err != nil {
			return err
		} else if exists {
			return duplicate("transaction", "id", transaction.ID)
		}
		cashier, ok, err := tx.GetUser(cashierID)
		if err != nil {
			return err
		}
		if !ok {
			return invalidInput("cashier %q does not exist", cashierID)
		}
		if !cashier.Active {
			return invalidInput("cashier %q is inactive", cashierID)
		}

		lines, items, err := priceItems(tx, transaction, req.Items)
		if err != nil {
			return err
		}
		totals := pricing.CartTotals(lines, req.DiscountPercent)
		transaction.Items = items
		transaction.Subtotal = totals.Subtotal
		transaction.DiscountPercent = totals.DiscountPercent
		transaction.Discount = totals.Discount
		transaction.Tax = totals.Tax
		transaction.Total = totals.Total

		if err := tx.PutTransaction(transaction); err != nil {
			return err
		}
		if transaction.Status == domain.StatusCompleted {
			return s.stock.applyCompletion(tx, transaction)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.activity.Record(ctx, "transaction_create", "transaction", transaction.ID,
		fmt.Sprintf("number=%s,type=%s,status=%s,total=%s", transaction.TransactionNumber, transaction.Type, transaction.Status, transaction.Total.StringFixed(2)))
	return transaction, nil
}

// Checkout records the cart as a completed sale and empties it on success.
// Lines keep the unit price the cart showed.
func (s *TransactionService) Checkout(ctx context.Context, cart *pricing.Cart, payment domain.PaymentMethod, cashierID string, notes string) (domain.Transaction, error) {
	if cart == nil || cart.Len() == 0 {
		return domain.Transaction{}, invalidInput("cart is empty")
	}
	req := domain.TransactionCreateRequest{
		Type:            domain.TransactionSale,
		Status:          domain.StatusCompleted,
		DiscountPercent: cart.DiscountPercent(),
		PaymentMethod:   payment,
		CashierID:       cashierID,
		Notes:           notes,
	}
	for _, line := range cart.Lines() {
		unitPrice := line.UnitPrice
		req.Items = append(req.Items, domain.TransactionItemRequest{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: &unitPrice,
		})
	}

	transaction, err := s.create(ctx, req)
	if err != nil {
		return domain.Transaction{}, err
	}
	cart.Clear()
	return transaction, nil
}

// Update changes notes at any time. Status only moves out of pending, and
// completing a pending transaction applies its stock effect.
func (s *TransactionService) Update(ctx context.Context, id string, req domain.TransactionUpdateRequest) (domain.Transaction, error) {
	var transaction domain.Transaction
	err := s.update(ctx, []store.Kind{store.KindTransactions, store.KindProducts}, func(tx store.Tx) error {
		existing, ok, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("transaction", id)
		}

		completing := false
		if req.Status != nil && *req.Status != existing.Status {
			if existing.Status != domain.StatusPending {
				return invalidInput("transaction %q is %s and its status cannot change", id, existing.Status)
			}
			switch *req.Status {
			case domain.StatusCompleted:
				completing = true
			case domain.StatusCancelled:
			default:
				return invalidInput("unknown status %q", *req.Status)
			}
			existing.Status = *req.Status
		}
		if req.Notes != nil {
			existing.Notes = strings.TrimSpace(*req.Notes)
		}
		existing.UpdatedAt = s.now()

		if err := tx.PutTransaction(existing); err != nil {
			return err
		}
		transaction = existing
		if completing {
			return s.stock.applyCompletion(tx, existing)
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.activity.Record(ctx, "transaction_update", "transaction", transaction.ID, "status="+string(transaction.Status))
	return transaction, nil
}

// Delete removes a pending or cancelled transaction. Completed transactions
// are corrected with a refund or a void instead.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	err := s.update(ctx, []store.Kind{store.KindTransactions}, func(tx store.Tx) error {
		existing, ok, err := tx.GetTransaction(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("transaction", id)
		}
		if existing.Status == domain.StatusCompleted {
			return fmt.Errorf("%w: transaction %q is completed", store.ErrInUse, id)
		}
		return tx.DeleteTransaction(id)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, "transaction_delete", "transaction", id, "")
	return nil
}

func (s *TransactionService) list(ctx context.Context, query func(tx store.Tx) ([]domain.Transaction, error)) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		transactions, err = query(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortTransactions(transactions), nil
}

func checkCreateRequest(req *domain.TransactionCreateRequest) error {
	switch req.Type {
	case domain.TransactionSale, domain.TransactionRefund, domain.TransactionVoid:
	default:
		return invalidInput("unknown transaction type %q", req.Type)
	}
	switch req.Status {
	case "":
		req.Status = domain.StatusCompleted
	case domain.StatusPending, domain.StatusCompleted:
	default:
		return invalidInput("a new transaction must be pending or completed, got %q", req.Status)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}

	voidByReference := req.Type == domain.TransactionVoid && strings.TrimSpace(req.RefundedTransactionID) != ""
	if len(req.Items) == 0 && !voidByReference {
		return invalidInput("a transaction needs at least one item")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return invalidInput("item %d has no productId", i)
		}
		if item.Quantity < 1 {
			return invalidInput("item %d quantity must be at least 1", i)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return invalidInput("item %d unit price must not be negative", i)
		}
	}
	return nil
}

// priceItems snapshots each requested item. A void given by reference with no
// items copies the voided transaction's lines.
func priceItems(tx store.Tx, t domain.Transaction, requested []domain.TransactionItemRequest) ([]pricing.Line, []domain.TransactionItem, error) {
	if len(requested) == 0 && t.Type == domain.TransactionVoid {
		original, ok, err := tx.GetTransaction(t.RefundedTransactionID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, invalidInput("voided transaction %q does not exist", t.RefundedTransactionID)
		}
		lines := make([]pricing.Line, 0, len(original.Items))
		for _, item := range original.Items {
			lines = append(lines, pricing.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice, Total: item.TotalPrice})
		}
		return lines, append([]domain.TransactionItem(nil), original.Items...), nil
	}

	lines := make([]pricing.Line, 0, len(requested))
	items := make([]domain.TransactionItem, 0, len(requested))
	for _, req := range requested {
		product, ok, err := tx.GetProduct(req.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if !ok && req.UnitPrice == nil {
			return nil, nil, invalidInput("product %q does not exist", req.ProductID)
		}
		if !ok {
			product = domain.Product{ID: req.ProductID}
		}

		line := pricing.NewLine(product, req.Quantity)
		if req.UnitPrice != nil {
			line.UnitPrice = *req.UnitPrice
			line.Total = req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		}
		lines = append(lines, line)
		items = append(items, domain.TransactionItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.Total,
		})
	}
	return lines, items, nil
}

func salesStats(transactions []domain.Transaction) domain.SalesStats {
	stats := domain.SalesStats{
		TotalSales:         decimal.Zero,
		AverageTransaction: decimal.Zero,
		TotalRefunds:       decimal.Zero,
	}
	for _, t := range transactions {
		switch {
		case t.Type == domain.TransactionSale && t.Status == domain.StatusCompleted:
			stats.TotalSales = stats.TotalSales.Add(t.Total)
			stats.TotalTransactions++
		case t.Type == domain.TransactionRefund:
			stats.TotalRefunds = stats.TotalRefunds.Add(t.Total)
		}
	}
	if stats.TotalTransactions > 0 {
		stats.AverageTransaction = stats.TotalSales.Div(decimal.NewFromInt(int64(stats.TotalTransactions))).Round(2)
	}
	return stats
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
