package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/pricing"
	"kasirlokal/internal/store"
	"kasirlokal/internal/store/memory"
	"kasirlokal/internal/store/sqlstore"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T, opts ...Option) (*Service, *testClock) {
	t.Helper()
	return newTestServiceOn(t, memory.New(), opts...)
}

func newTestServiceOn(t *testing.T, s store.Store, opts ...Option) (*Service, *testClock) {
	t.Helper()
	auth.Cost = bcrypt.MinCost
	clock := &testClock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)}
	t.Cleanup(func() { _ = s.Close() })
	return New(s, append([]Option{WithClock(clock.now)}, opts...)...), clock
}

// backends lists every store the cross-backend scenarios run against.
var backends = []struct {
	name string
	open func(t *testing.T) store.Store
}{
	{"memory", func(*testing.T) store.Store { return memory.New() }},
	{"sqlite", func(t *testing.T) store.Store {
		s, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"})
		require.NoError(t, err)
		return s
	}},
}

func mustUser(t *testing.T, svc *Service, username string) domain.User {
	t.Helper()
	user, err := svc.Users.Create(context.Background(), domain.UserCreateRequest{
		Username: username,
		Password: "kasir-secret",
		Role:     domain.RoleCashier,
	})
	require.NoError(t, err)
	return user
}

func mustProduct(t *testing.T, svc *Service, sku string, price string, qty int) domain.Product {
	t.Helper()
	product, err := svc.Products.Create(context.Background(), domain.ProductCreateRequest{
		Name:          "Product " + sku,
		SKU:           sku,
		Price:         dec(price),
		Cost:          decimal.Zero,
		Quantity:      qty,
		MinStockLevel: 5,
	})
	require.NoError(t, err)
	return product
}

func sell(t *testing.T, svc *Service, cashier domain.User, productID string, qty int) domain.Transaction {
	t.Helper()
	trx, err := svc.Transactions.Create(context.Background(), domain.TransactionCreateRequest{
		Type:          domain.TransactionSale,
		Items:         []domain.TransactionItemRequest{{ProductID: productID, Quantity: qty}},
		PaymentMethod: domain.PaymentCash,
		CashierID:     cashier.ID,
	})
	require.NoError(t, err)
	return trx
}

func quantityOf(t *testing.T, svc *Service, productID string) int {
	t.Helper()
	product, err := svc.Products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return product.Quantity
}

func TestSaleDecrementsStock(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	trx := sell(t, svc, cashier, product.ID, 3)

	assert.Equal(t, domain.StatusCompleted, trx.Status)
	assert.True(t, trx.Total.Equal(dec("10500")), "total %s", trx.Total)
	require.Len(t, trx.Items, 1)
	assert.Equal(t, "MIE-01", trx.Items[0].SKU)
	assert.Equal(t, 7, quantityOf(t, svc, product.ID))
}

func TestRefundIncrementsStock(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	_, err := svc.Transactions.Create(context.Background(), domain.TransactionCreateRequest{
		Type:      domain.TransactionRefund,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 4}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 14, quantityOf(t, svc, product.ID))
}

func TestStockClampsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 2)

	sell(t, svc, cashier, product.ID, 5)
	assert.Equal(t, 0, quantityOf(t, svc, product.ID))

	adjusted, err := svc.Stock.UpdateStock(context.Background(), product.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, adjusted.Quantity)

	adjusted, err = svc.Products.AdjustStock(context.Background(), product.ID, 6, "stock opname")
	require.NoError(t, err)
	assert.Equal(t, 6, adjusted.Quantity)
}

func TestUpdateStockUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Stock.UpdateStock(context.Background(), "nope", 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestVoidReversesCompletedSaleAndCancelsIt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)
	sale := sell(t, svc, cashier, product.ID, 3)

	void, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:                  domain.TransactionVoid,
		CashierID:             cashier.ID,
		RefundedTransactionID: sale.ID,
	})
	require.NoError(t, err)
	require.Len(t, void.Items, 1)
	assert.True(t, void.Total.Equal(sale.Total))
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))

	original, err := svc.Transactions.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, original.Status)

	_, err = svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:                  domain.TransactionVoid,
		CashierID:             cashier.ID,
		RefundedTransactionID: sale.ID,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))

	_, err = svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:                  domain.TransactionVoid,
		CashierID:             cashier.ID,
		RefundedTransactionID: void.ID,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestVoidWithoutReferenceMovesNoStock(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	_, err := svc.Transactions.Create(context.Background(), domain.TransactionCreateRequest{
		Type:      domain.TransactionVoid,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 2}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))
}

func TestCreateIsAllOrNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	_, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionSale,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 2}},
		CashierID: "ghost",
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	cashier := mustUser(t, svc, "kasir")
	_, err = svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type: domain.TransactionSale,
		Items: []domain.TransactionItemRequest{
			{ProductID: product.ID, Quantity: 2},
			{ProductID: "missing", Quantity: 1},
		},
		CashierID: cashier.ID,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	all, err := svc.Transactions.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))
}

func TestCashierDefaultsToActor(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)
	ctx := WithActor(context.Background(), domain.Actor{UserID: cashier.ID, Username: cashier.Username, Role: cashier.Role})

	trx, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:  domain.TransactionSale,
		Items: []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, cashier.ID, trx.CashierID)

	logs, err := svc.ActivityLogs.GetByEntity(ctx, "transaction", trx.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, cashier.ID, logs[0].UserID)
}

func TestRefundOfDeletedProductSkipsStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)
	require.NoError(t, svc.Products.Delete(ctx, product.ID))

	price := dec("3500")
	trx, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionRefund,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 1, UnitPrice: &price}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)
	assert.True(t, trx.Total.Equal(price))
}

func TestPendingTransactionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	trx, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionSale,
		Status:    domain.StatusPending,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 4}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))

	completed := domain.StatusCompleted
	trx, err = svc.Transactions.Update(ctx, trx.ID, domain.TransactionUpdateRequest{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, trx.Status)
	assert.Equal(t, 6, quantityOf(t, svc, product.ID))

	cancelled := domain.StatusCancelled
	_, err = svc.Transactions.Update(ctx, trx.ID, domain.TransactionUpdateRequest{Status: &cancelled})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	notes := "pelanggan tetap"
	trx, err = svc.Transactions.Update(ctx, trx.ID, domain.TransactionUpdateRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, trx.Notes)

	require.ErrorIs(t, svc.Transactions.Delete(ctx, trx.ID), store.ErrInUse)

	_, err = svc.Transactions.Update(ctx, "missing", domain.TransactionUpdateRequest{Notes: &notes})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCancelledPendingTransactionCanBeDeleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	trx, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionSale,
		Status:    domain.StatusPending,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 1}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)

	cancelled := domain.StatusCancelled
	_, err = svc.Transactions.Update(ctx, trx.ID, domain.TransactionUpdateRequest{Status: &cancelled})
	require.NoError(t, err)
	require.NoError(t, svc.Transactions.Delete(ctx, trx.ID))
	assert.Equal(t, 10, quantityOf(t, svc, product.ID))
}

func TestSalesStats(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			svc, clock := newTestServiceOn(t, b.open(t))
			testSalesStats(t, svc, clock)
		})
	}
}

func testSalesStats(t *testing.T, svc *Service, clock *testClock) {
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "TEH-01", "10.00", 10)

	sell(t, svc, cashier, product.ID, 1)
	refundPrice := dec("3.00")
	_, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionRefund,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 1, UnitPrice: &refundPrice}},
		CashierID: cashier.ID,
	})
	require.NoError(t, err)

	stats, err := svc.Transactions.GetSalesStats(ctx, clock.t.Add(-time.Hour), clock.t.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, stats.TotalSales.Equal(dec("10.00")), "totalSales %s", stats.TotalSales)
	assert.Equal(t, 1, stats.TotalTransactions)
	assert.True(t, stats.AverageTransaction.Equal(dec("10.00")), "average %s", stats.AverageTransaction)
	assert.True(t, stats.TotalRefunds.Equal(dec("3.00")), "refunds %s", stats.TotalRefunds)

	empty, err := svc.Transactions.GetSalesStats(ctx, clock.t.AddDate(0, 0, 1), clock.t.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Zero(t, empty.TotalTransactions)
	assert.True(t, empty.AverageTransaction.IsZero())
}

func TestDateRangeQueries(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			svc, clock := newTestServiceOn(t, b.open(t))
			testDateRangeQueries(t, svc, clock)
		})
	}
}

func testDateRangeQueries(t *testing.T, svc *Service, clock *testClock) {
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 100)

	today := clock.t
	clock.t = today.AddDate(0, 0, -1)
	yesterday := sell(t, svc, cashier, product.ID, 1)
	clock.t = today
	first := sell(t, svc, cashier, product.ID, 1)
	clock.t = today.Add(time.Minute)
	second := sell(t, svc, cashier, product.ID, 1)

	got, err := svc.Transactions.GetToday(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	got, err = svc.Transactions.GetByDateRange(ctx, yesterday.CreatedAt, first.CreatedAt)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, yesterday.ID, got[1].ID)

	_, err = svc.Transactions.GetByDateRange(ctx, today, yesterday.CreatedAt)
	require.ErrorIs(t, err, store.ErrInvalidInput)

	byCashier, err := svc.Transactions.GetByCashier(ctx, cashier.ID)
	require.NoError(t, err)
	assert.Len(t, byCashier, 3)

	refunds, err := svc.Transactions.GetByType(ctx, domain.TransactionRefund)
	require.NoError(t, err)
	assert.Empty(t, refunds)
}

func TestCheckoutUsesCartPrices(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	minQty := 24
	coke, err := svc.Products.Create(ctx, domain.ProductCreateRequest{
		Name:                 "Coke 330ml",
		SKU:                  "coke-330",
		Price:                dec("1.50"),
		Quantity:             100,
		WholesalePrice:       decimal.NewNullDecimal(dec("1.20")),
		WholesaleMinQuantity: &minQty,
	})
	require.NoError(t, err)
	assert.Equal(t, "COKE-330", coke.SKU)

	cart := newCart(t, coke, 24)
	trx, err := svc.Transactions.Checkout(ctx, cart, domain.PaymentCard, cashier.ID, "")
	require.NoError(t, err)
	assert.True(t, trx.Total.Equal(dec("28.80")), "total %s", trx.Total)
	assert.True(t, trx.Items[0].UnitPrice.Equal(dec("1.20")))
	assert.Equal(t, 76, quantityOf(t, svc, coke.ID))
	assert.Zero(t, cart.Len())

	_, err = svc.Transactions.Checkout(ctx, cart, domain.PaymentCash, cashier.ID, "")
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestLowStockQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	low := mustProduct(t, svc, "LOW", "1", 3)
	mustProduct(t, svc, "PLENTY", "1", 10)
	out := mustProduct(t, svc, "OUT", "1", 0)

	got, err := svc.Products.GetLowStock(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{low.ID, out.ID}, productIDs(got))

	threshold := 0
	got, err = svc.Products.GetLowStock(ctx, &threshold)
	require.NoError(t, err)
	assert.Equal(t, []string{out.ID}, productIDs(got))

	got, err = svc.Products.GetOutOfStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{out.ID}, productIDs(got))
}

func TestProductQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	category, err := svc.Categories.Create(ctx, domain.CategoryCreateRequest{Name: "Minuman"})
	require.NoError(t, err)

	inactive := false
	tea, err := svc.Products.Create(ctx, domain.ProductCreateRequest{
		Name: "Teh Celup", SKU: "TEH-01", Description: "isi 25", Price: dec("9800"), CategoryID: category.ID,
	})
	require.NoError(t, err)
	_, err = svc.Products.Create(ctx, domain.ProductCreateRequest{
		Name: "Air Mineral", SKU: "AIR-01", Price: dec("3900"), Active: &inactive,
	})
	require.NoError(t, err)

	found, err := svc.Products.GetBySKU(ctx, "teh-01")
	require.NoError(t, err)
	assert.Equal(t, tea.ID, found.ID)

	_, err = svc.Products.GetBySKU(ctx, "TEH")
	require.ErrorIs(t, err, store.ErrNotFound)

	matches, err := svc.Products.Search(ctx, "ISI")
	require.NoError(t, err)
	assert.Equal(t, []string{tea.ID}, productIDs(matches))

	active, err := svc.Products.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{tea.ID}, productIDs(active))

	inCategory, err := svc.Products.GetByCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tea.ID}, productIDs(inCategory))

	all, err := svc.Products.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Air Mineral", all[0].Name)
}

func TestProductWriteRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := mustProduct(t, svc, "MIE-01", "3500", 10)

	_, err := svc.Products.Create(ctx, domain.ProductCreateRequest{Name: "Copy", SKU: "mie-01", Price: dec("1")})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = svc.Products.Create(ctx, domain.ProductCreateRequest{ID: product.ID, Name: "Copy", SKU: "OTHER", Price: dec("1")})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = svc.Products.Create(ctx, domain.ProductCreateRequest{Name: "Lost", SKU: "LOST", Price: dec("1"), CategoryID: "nope"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.Products.Create(ctx, domain.ProductCreateRequest{Name: "Neg", SKU: "NEG", Price: dec("-1")})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	price := dec("3700")
	wholesale := dec("3300")
	minQty := 40
	updated, err := svc.Products.Update(ctx, product.ID, domain.ProductUpdateRequest{
		Price: &price, WholesalePrice: &wholesale, WholesaleMinQuantity: &minQty,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.True(t, updated.HasWholesaleTier())
	assert.Equal(t, 10, updated.Quantity)

	updated, err = svc.Products.Update(ctx, product.ID, domain.ProductUpdateRequest{ClearWholesale: true})
	require.NoError(t, err)
	assert.False(t, updated.HasWholesaleTier())

	_, err = svc.Products.Update(ctx, product.ID, domain.ProductUpdateRequest{WholesalePrice: &wholesale})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.Products.Update(ctx, "missing", domain.ProductUpdateRequest{Price: &price})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCategoryRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	drinks, err := svc.Categories.Create(ctx, domain.CategoryCreateRequest{ID: "cat-drinks", Name: "Minuman"})
	require.NoError(t, err)
	tea, err := svc.Categories.Create(ctx, domain.CategoryCreateRequest{Name: "Teh", ParentID: drinks.ID})
	require.NoError(t, err)

	_, err = svc.Categories.Create(ctx, domain.CategoryCreateRequest{ID: "cat-drinks", Name: "Again"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = svc.Categories.Create(ctx, domain.CategoryCreateRequest{Name: "Orphan", ParentID: "missing"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	self := drinks.ID
	_, err = svc.Categories.Update(ctx, drinks.ID, domain.CategoryUpdateRequest{ParentID: &self})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	child := tea.ID
	_, err = svc.Categories.Update(ctx, drinks.ID, domain.CategoryUpdateRequest{ParentID: &child})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.Products.Create(ctx, domain.ProductCreateRequest{Name: "Teh Celup", SKU: "TEH-01", Price: dec("9800"), CategoryID: tea.ID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Categories.Delete(ctx, tea.ID), store.ErrInUse)
	require.ErrorIs(t, svc.Categories.Delete(ctx, "missing"), store.ErrNotFound)

	all, err := svc.Categories.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Minuman", all[0].Name)
}

func TestUserRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "Kasir")
	assert.Equal(t, "kasir", cashier.Username)
	assert.True(t, auth.IsPasswordHash(cashier.PasswordHash))

	_, err := svc.Users.Create(ctx, domain.UserCreateRequest{Username: "KASIR", Password: "another-secret"})
	require.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = svc.Users.Create(ctx, domain.UserCreateRequest{Username: "ab", Password: "another-secret"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.Users.Create(ctx, domain.UserCreateRequest{Username: "budi", Password: "123"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	found, err := svc.Users.GetByUsername(ctx, " KASIR ")
	require.NoError(t, err)
	assert.Equal(t, cashier.ID, found.ID)

	disabled := false
	updated, err := svc.Users.Update(ctx, cashier.ID, domain.UserUpdateRequest{Active: &disabled})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, cashier.PasswordHash, updated.PasswordHash)

	product := mustProduct(t, svc, "MIE-01", "3500", 10)
	active := true
	_, err = svc.Users.Update(ctx, cashier.ID, domain.UserUpdateRequest{Active: &active})
	require.NoError(t, err)
	sell(t, svc, cashier, product.ID, 1)

	require.ErrorIs(t, svc.Users.Delete(ctx, cashier.ID), store.ErrInUse)

	other := mustUser(t, svc, "budi")
	require.NoError(t, svc.Users.Delete(ctx, other.ID))
	_, err = svc.Users.GetByID(ctx, other.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInactiveCashierCannotSell(t *testing.T) {
	svc, _ := newTestService(t)
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "MIE-01", "3500", 10)
	disabled := false
	_, err := svc.Users.Update(context.Background(), cashier.ID, domain.UserUpdateRequest{Active: &disabled})
	require.NoError(t, err)

	_, err = svc.Transactions.Create(context.Background(), domain.TransactionCreateRequest{
		Type:      domain.TransactionSale,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 1}},
		CashierID: cashier.ID,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestSettings(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	name := "Toko Maju"
	_, err := svc.Settings.Update(ctx, domain.SettingsUpdateRequest{StoreName: &name})
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Settings.Get(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	settings, err := svc.Settings.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SettingsID, settings.ID)
	assert.Equal(t, 10, settings.LowStockThreshold)
	assert.Equal(t, 80, settings.Printer.PaperWidth)
	assert.Equal(t, 1, settings.Printer.Copies)

	currency := "usd"
	settings, err = svc.Settings.Update(ctx, domain.SettingsUpdateRequest{StoreName: &name, Currency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "Toko Maju", settings.StoreName)
	assert.Equal(t, "USD", settings.Currency)

	printer, err := svc.Settings.UpdatePrinterSettings(ctx, domain.PrinterSettings{Enabled: true, PaperWidth: 58, Copies: 2})
	require.NoError(t, err)
	assert.Equal(t, 58, printer.PaperWidth)

	_, err = svc.Settings.UpdatePrinterSettings(ctx, domain.PrinterSettings{PaperWidth: 72, Copies: 1})
	require.ErrorIs(t, err, store.ErrInvalidRecord)

	printer, err = svc.Settings.GetPrinterSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, printer.Copies)
}

func TestActivityLogs(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	today := clock.t

	clock.t = today.AddDate(0, 0, -40)
	_, err := svc.ActivityLogs.Create(ctx, domain.ActivityLogCreateRequest{UserID: "u1", Action: "login", EntityType: "user", EntityID: "u1"})
	require.NoError(t, err)
	clock.t = today
	_, err = svc.ActivityLogs.Create(ctx, domain.ActivityLogCreateRequest{UserID: "u2", Action: "login", EntityType: "user", EntityID: "u2"})
	require.NoError(t, err)

	_, err = svc.ActivityLogs.Create(ctx, domain.ActivityLogCreateRequest{UserID: "u2"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	recent, err := svc.ActivityLogs.GetRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "u2", recent[0].UserID)

	byType, err := svc.ActivityLogs.GetByEntity(ctx, "user", "")
	require.NoError(t, err)
	assert.Len(t, byType, 2)

	byUser, err := svc.ActivityLogs.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	deleted, err := svc.ActivityLogs.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	all, err := svc.ActivityLogs.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSeedSampleData(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seeded, err := svc.SeedSampleData(ctx, SeedOptions{AdminPassword: "admin-pass", CashierPassword: "kasir-pass"})
	require.NoError(t, err)
	assert.True(t, seeded)

	products, err := svc.Products.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, len(sampleProducts))

	admin, err := svc.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, auth.VerifyPassword(admin.PasswordHash, "admin-pass"))

	seeded, err = svc.SeedSampleData(ctx, SeedOptions{})
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestSeedSkipsIntentionallyClearedStore(t *testing.T) {
	auth.Cost = bcrypt.MinCost
	s := memory.New()
	require.NoError(t, s.Update(context.Background(), []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.PutMeta(store.MetaDataCleared, "true")
	}))
	svc := New(s)

	seeded, err := svc.SeedSampleData(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.False(t, seeded)
}

func newCart(t *testing.T, product domain.Product, qty int) *pricing.Cart {
	t.Helper()
	cart := pricing.NewCart()
	require.NoError(t, cart.Add(product, qty))
	return cart
}

func productIDs(products []domain.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestSaleRejectsCallerUnitPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cashier := mustUser(t, svc, "kasir")
	product := mustProduct(t, svc, "TELUR-01", "26500", 20)

	free := decimal.Zero
	_, err := svc.Transactions.Create(ctx, domain.TransactionCreateRequest{
		Type:      domain.TransactionSale,
		Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 5, UnitPrice: &free}},
		CashierID: cashier.ID,
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Equal(t, 20, quantityOf(t, svc, product.ID))

	trx := sell(t, svc, cashier, product.ID, 5)
	assert.True(t, trx.Total.Equal(dec("132500")), "total %s", trx.Total)
}

func TestConcurrentSalesKeepStockExact(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			svc, _ := newTestServiceOn(t, b.open(t))
			cashier := mustUser(t, svc, "kasir")
			product := mustProduct(t, svc, "MIE-01", "3500", 100)

			const sales = 25
			var wg sync.WaitGroup
			errs := make(chan error, sales)
			for i := 0; i < sales; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Transactions.Create(context.Background(), domain.TransactionCreateRequest{
						Type:      domain.TransactionSale,
						Items:     []domain.TransactionItemRequest{{ProductID: product.ID, Quantity: 2}},
						CashierID: cashier.ID,
					})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}
			assert.Equal(t, 100-2*sales, quantityOf(t, svc, product.ID))
		})
	}
}
