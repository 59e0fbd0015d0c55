// Package storetest is the behavioural contract every store.Store backend must satisfy.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

// Opener returns a fresh, empty store for one subtest.
type Opener func(t *testing.T) store.Store

var base = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func Run(t *testing.T, open Opener) {
	t.Run("GetMissingIsNotAnError", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("PutReplacesByPrimaryKey", func(t *testing.T) { testPutReplaces(t, open(t)) })
	t.Run("UpdateDiscardsWritesOnError", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("UpdateRejectsUndeclaredKinds", func(t *testing.T) { testScope(t, open(t)) })
	t.Run("ViewIsReadOnly", func(t *testing.T) { testViewReadOnly(t, open(t)) })
	t.Run("InvalidRecordsAreRejected", func(t *testing.T) { testValidation(t, open(t)) })
	t.Run("CaseInsensitiveLookups", func(t *testing.T) { testCaseInsensitive(t, open(t)) })
	t.Run("ProductIndexes", func(t *testing.T) { testProductIndexes(t, open(t)) })
	t.Run("TransactionIndexes", func(t *testing.T) { testTransactionIndexes(t, open(t)) })
	t.Run("ActivityLogIndexes", func(t *testing.T) { testActivityIndexes(t, open(t)) })
	t.Run("SettingsMetaCountClear", func(t *testing.T) { testSettingsMetaClear(t, open(t)) })
	t.Run("ConcurrentUpdatesDoNotLoseWrites", func(t *testing.T) { testConcurrentUpdates(t, open(t)) })
}

func Product(id string, sku string, categoryID string, qty int) domain.Product {
	return domain.Product{
		ID:            id,
		Name:          "Product " + id,
		SKU:           sku,
		Price:         decimal.RequireFromString("1.50"),
		Cost:          decimal.RequireFromString("0.90"),
		Quantity:      qty,
		MinStockLevel: 5,
		CategoryID:    categoryID,
		Active:        true,
		CreatedAt:     base,
		UpdatedAt:     base,
	}
}

func Transaction(id string, txType domain.TransactionType, cashierID string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:                id,
		TransactionNumber: "TXN-" + id,
		Type:              txType,
		Status:            domain.StatusCompleted,
		Items: []domain.TransactionItem{{
			ProductID:   "p1",
			ProductName: "Product p1",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("1.50"),
			TotalPrice:  decimal.RequireFromString("3.00"),
		}},
		Subtotal:      decimal.RequireFromString("3.00"),
		Total:         decimal.RequireFromString("3.00"),
		PaymentMethod: domain.PaymentCash,
		CashierID:     cashierID,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func update(t *testing.T, s store.Store, kinds []store.Kind, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), kinds, fn))
}

func view(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), fn))
}

func testGetMissing(t *testing.T, s store.Store) {
	view(t, s, func(tx store.Tx) error {
		_, ok, err := tx.GetProduct("nope")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = tx.GetSettings()
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = tx.GetMeta("nope")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func testPutReplaces(t *testing.T, s store.Store) {
	update(t, s, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(Product("p1", "COKE-330", "", 10))
	})
	replacement := Product("p1", "COKE-330", "", 4)
	replacement.Name = "Coke 330ml"
	update(t, s, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(replacement)
	})

	view(t, s, func(tx store.Tx) error {
		got, ok, err := tx.GetProduct("p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Coke 330ml", got.Name)
		assert.Equal(t, 4, got.Quantity)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("1.5")))

		count, err := tx.Count(store.KindProducts)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		return nil
	})
}

func testRollback(t *testing.T, s store.Store) {
	update(t, s, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(Product("p1", "A-1", "", 10))
	})

	boom := errors.New("boom")
	err := s.Update(context.Background(), []store.Kind{store.KindProducts, store.KindTransactions}, func(tx store.Tx) error {
		p := Product("p1", "A-1", "", 3)
		if err := tx.PutProduct(p); err != nil {
			return err
		}
		if err := tx.PutTransaction(Transaction("t1", domain.TransactionSale, "u1", base)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	view(t, s, func(tx store.Tx) error {
		got, ok, err := tx.GetProduct("p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 10, got.Quantity)

		_, ok, err = tx.GetTransaction("t1")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func testScope(t *testing.T, s store.Store) {
	err := s.Update(context.Background(), []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutCategory(domain.Category{ID: "c1", Name: "Drinks", CreatedAt: base, UpdatedAt: base})
	})
	require.ErrorIs(t, err, store.ErrKindNotInScope)
}

func testViewReadOnly(t *testing.T, s store.Store) {
	err := s.View(context.Background(), func(tx store.Tx) error {
		return tx.PutMeta("k", "v")
	})
	require.ErrorIs(t, err, store.ErrReadOnly)
}

func testValidation(t *testing.T, s store.Store) {
	bad := Product("p1", "A-1", "", -1)
	err := s.Update(context.Background(), []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(bad)
	})
	require.ErrorIs(t, err, store.ErrInvalidRecord)

	halfTier := Product("p2", "A-2", "", 1)
	halfTier.WholesalePrice = decimal.NewNullDecimal(decimal.RequireFromString("1.20"))
	err = s.Update(context.Background(), []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(halfTier)
	})
	require.ErrorIs(t, err, store.ErrInvalidRecord)

	foreign := domain.DefaultSettings(base)
	foreign.ID = "shop-1"
	err = s.Update(context.Background(), []store.Kind{store.KindSettings}, func(tx store.Tx) error {
		return tx.PutSettings(foreign)
	})
	require.ErrorIs(t, err, store.ErrInvalidRecord)

	view(t, s, func(tx store.Tx) error {
		count, err := tx.Count(store.KindProducts)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, ok, err := tx.GetSettings()
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func testCaseInsensitive(t *testing.T, s store.Store) {
	update(t, s, []store.Kind{store.KindProducts, store.KindUsers}, func(tx store.Tx) error {
		if err := tx.PutProduct(Product("p1", "COKE-330", "", 1)); err != nil {
			return err
		}
		return tx.PutUser(domain.User{
			ID:           "u1",
			Username:     "Admin",
			PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
			Role:         domain.RoleAdmin,
			Active:       true,
			CreatedAt:    base,
			UpdatedAt:    base,
		})
	})

	view(t, s, func(tx store.Tx) error {
		p, ok, err := tx.FindProductBySKU("coke-330")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "p1", p.ID)

		u, ok, err := tx.FindUserByUsername("ADMIN")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "u1", u.ID)
		return nil
	})
}

func testProductIndexes(t *testing.T, s store.Store) {
	tier := 24
	withTier := Product("p3", "C-3", "drinks", 100)
	withTier.WholesalePrice = decimal.NewNullDecimal(decimal.RequireFromString("1.20"))
	withTier.WholesaleMinQuantity = &tier

	update(t, s, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		for _, p := range []domain.Product{
			Product("p1", "A-1", "drinks", 0),
			Product("p2", "B-2", "snacks", 5),
			withTier,
		} {
			if err := tx.PutProduct(p); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx store.Tx) error {
		drinks, err := tx.ListProductsByCategory("drinks")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"p1", "p3"}, productIDs(drinks))

		count, err := tx.CountProductsByCategory("drinks")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		low, err := tx.ListProductsByMaxQuantity(5)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"p1", "p2"}, productIDs(low))

		got, ok, err := tx.GetProduct("p3")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, got.WholesalePrice.Valid)
		assert.True(t, got.WholesalePrice.Decimal.Equal(decimal.RequireFromString("1.2")))
		require.NotNil(t, got.WholesaleMinQuantity)
		assert.Equal(t, 24, *got.WholesaleMinQuantity)
		return nil
	})
}

func testTransactionIndexes(t *testing.T, s store.Store) {
	update(t, s, []store.Kind{store.KindTransactions}, func(tx store.Tx) error {
		for _, tr := range []domain.Transaction{
			Transaction("t1", domain.TransactionSale, "u1", base.Add(-time.Hour)),
			Transaction("t2", domain.TransactionSale, "u2", base),
			Transaction("t3", domain.TransactionRefund, "u1", base.Add(time.Hour)),
			Transaction("t4", domain.TransactionSale, "u1", base.Add(2*time.Hour)),
		} {
			if err := tx.PutTransaction(tr); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx store.Tx) error {
		between, err := tx.ListTransactionsBetween(base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"t2", "t3"}, transactionIDs(between))

		byCashier, err := tx.ListTransactionsByCashier("u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"t1", "t3", "t4"}, transactionIDs(byCashier))

		refunds, err := tx.ListTransactionsByType(domain.TransactionRefund)
		require.NoError(t, err)
		assert.Equal(t, []string{"t3"}, transactionIDs(refunds))

		count, err := tx.CountTransactionsByCashier("u2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got, ok, err := tx.GetTransaction("t1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)
		assert.True(t, got.Items[0].TotalPrice.Equal(decimal.RequireFromString("3")))
		assert.True(t, got.CreatedAt.Equal(base.Add(-time.Hour)))
		return nil
	})
}

func testActivityIndexes(t *testing.T, s store.Store) {
	entry := func(id string, userID string, entityType string, entityID string, at time.Time) domain.ActivityLog {
		return domain.ActivityLog{ID: id, UserID: userID, Action: "update", EntityType: entityType, EntityID: entityID, CreatedAt: at}
	}
	update(t, s, []store.Kind{store.KindActivityLogs}, func(tx store.Tx) error {
		for _, e := range []domain.ActivityLog{
			entry("a1", "u1", "product", "p1", base.AddDate(0, 0, -40)),
			entry("a2", "u1", "product", "p2", base.AddDate(0, 0, -10)),
			entry("a3", "u2", "category", "c1", base),
		} {
			if err := tx.PutActivityLog(e); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx store.Tx) error {
		byUser, err := tx.ListActivityLogsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, byUser, 2)

		allProducts, err := tx.ListActivityLogsByEntity("product", "")
		require.NoError(t, err)
		assert.Len(t, allProducts, 2)

		one, err := tx.ListActivityLogsByEntity("product", "p2")
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, "a2", one[0].ID)
		return nil
	})

	var deleted int
	update(t, s, []store.Kind{store.KindActivityLogs}, func(tx store.Tx) error {
		var err error
		deleted, err = tx.DeleteActivityLogsBefore(base.AddDate(0, 0, -30))
		return err
	})
	assert.Equal(t, 1, deleted)
}

func testSettingsMetaClear(t *testing.T, s store.Store) {
	settings := domain.DefaultSettings(base)
	settings.Printer.PaperWidth = 58
	update(t, s, []store.Kind{store.KindSettings, store.KindMeta, store.KindCategories}, func(tx store.Tx) error {
		if err := tx.PutSettings(settings); err != nil {
			return err
		}
		if err := tx.PutMeta(store.MetaMigrationCompleted, "2026-03-14T09:30:00Z"); err != nil {
			return err
		}
		return tx.PutCategory(domain.Category{ID: "c1", Name: "Drinks", CreatedAt: base, UpdatedAt: base})
	})

	view(t, s, func(tx store.Tx) error {
		got, ok, err := tx.GetSettings()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 58, got.Printer.PaperWidth)
		assert.Equal(t, settings.Currency, got.Currency)

		value, ok, err := tx.GetMeta(store.MetaMigrationCompleted)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2026-03-14T09:30:00Z", value)
		return nil
	})

	update(t, s, []store.Kind{store.KindCategories, store.KindMeta}, func(tx store.Tx) error {
		if err := tx.Clear(store.KindCategories); err != nil {
			return err
		}
		return tx.DeleteMeta(store.MetaMigrationCompleted)
	})

	view(t, s, func(tx store.Tx) error {
		count, err := tx.Count(store.KindCategories)
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = tx.Count(store.KindSettings)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, ok, err := tx.GetMeta(store.MetaMigrationCompleted)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func productIDs(products []domain.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func transactionIDs(transactions []domain.Transaction) []string {
	ids := make([]string, 0, len(transactions))
	for _, tr := range transactions {
		ids = append(ids, tr.ID)
	}
	return ids
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	update(t, s, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(Product("p1", "A-1", "", 50))
	})

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(context.Background(), []store.Kind{store.KindProducts}, func(tx store.Tx) error {
				p, ok, err := tx.GetProduct("p1")
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("p1 missing")
				}
				p.Quantity -= 2
				return tx.PutProduct(p)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view(t, s, func(tx store.Tx) error {
		got, ok, err := tx.GetProduct("p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 50-2*writers, got.Quantity)
		return nil
	})
}
