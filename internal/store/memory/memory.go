package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

// Store keeps every kind in maps. Update works on a copy of the declared
// kinds and swaps it in only when fn succeeds.
type Store struct {
	mu     sync.RWMutex
	data   *dataset
	closed bool
}

type dataset struct {
	users        map[string]domain.User
	products     map[string]domain.Product
	categories   map[string]domain.Category
	transactions map[string]domain.Transaction
	activityLogs map[string]domain.ActivityLog
	settings     *domain.Settings
	meta         map[string]string
}

func New() *Store {
	return &Store{data: &dataset{
		users:        make(map[string]domain.User),
		products:     make(map[string]domain.Product),
		categories:   make(map[string]domain.Category),
		transactions: make(map[string]domain.Transaction),
		activityLogs: make(map[string]domain.ActivityLog),
		meta:         make(map[string]string),
	}}
}

func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrStorageUnavailable
	}
	return fn(store.Guard(&memTx{d: s.data}, nil, true))
}

func (s *Store) Update(ctx context.Context, kinds []store.Kind, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrStorageUnavailable
	}

	working := s.data.cloneKinds(kinds)
	if err := fn(store.Guard(&memTx{d: working}, kinds, false)); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// cloneKinds copies the maps of the given kinds. Other kinds stay shared
// with the committed dataset, which is safe because Guard rejects writes to them.
func (d *dataset) cloneKinds(kinds []store.Kind) *dataset {
	dup := *d
	for _, kind := range kinds {
		switch kind {
		case store.KindUsers:
			dup.users = maps.Clone(d.users)
		case store.KindProducts:
			dup.products = maps.Clone(d.products)
		case store.KindCategories:
			dup.categories = maps.Clone(d.categories)
		case store.KindTransactions:
			dup.transactions = maps.Clone(d.transactions)
		case store.KindActivityLogs:
			dup.activityLogs = maps.Clone(d.activityLogs)
		case store.KindSettings:
			if d.settings != nil {
				settings := *d.settings
				dup.settings = &settings
			}
		case store.KindMeta:
			dup.meta = maps.Clone(d.meta)
		}
	}
	return &dup
}

type memTx struct {
	d *dataset
}

func (t *memTx) GetUser(id string) (domain.User, bool, error) {
	user, ok := t.d.users[id]
	return user, ok, nil
}

func (t *memTx) FindUserByUsername(username string) (domain.User, bool, error) {
	for _, user := range t.d.users {
		if strings.EqualFold(user.Username, username) {
			return user, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (t *memTx) ListUsers() ([]domain.User, error) {
	return sortedValues(t.d.users, func(u domain.User) string { return u.ID }), nil
}

func (t *memTx) PutUser(user domain.User) error {
	t.d.users[user.ID] = user
	return nil
}

func (t *memTx) DeleteUser(id string) error {
	delete(t.d.users, id)
	return nil
}

func (t *memTx) GetProduct(id string) (domain.Product, bool, error) {
	product, ok := t.d.products[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	return cloneProduct(product), true, nil
}

func (t *memTx) FindProductBySKU(sku string) (domain.Product, bool, error) {
	for _, product := range t.d.products {
		if strings.EqualFold(product.SKU, sku) {
			return cloneProduct(product), true, nil
		}
	}
	return domain.Product{}, false, nil
}

func (t *memTx) ListProducts() ([]domain.Product, error) {
	return t.filterProducts(func(domain.Product) bool { return true }), nil
}

func (t *memTx) ListProductsByCategory(categoryID string) ([]domain.Product, error) {
	return t.filterProducts(func(p domain.Product) bool { return p.CategoryID == categoryID }), nil
}

func (t *memTx) ListProductsByMaxQuantity(max int) ([]domain.Product, error) {
	return t.filterProducts(func(p domain.Product) bool { return p.Quantity <= max }), nil
}

func (t *memTx) CountProductsByCategory(categoryID string) (int, error) {
	count := 0
	for _, product := range t.d.products {
		if product.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (t *memTx) PutProduct(product domain.Product) error {
	t.d.products[product.ID] = cloneProduct(product)
	return nil
}

func (t *memTx) DeleteProduct(id string) error {
	delete(t.d.products, id)
	return nil
}

func (t *memTx) filterProducts(keep func(domain.Product) bool) []domain.Product {
	products := make([]domain.Product, 0)
	for _, product := range t.d.products {
		if keep(product) {
			products = append(products, cloneProduct(product))
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int { return strings.Compare(a.ID, b.ID) })
	return products
}

func (t *memTx) GetCategory(id string) (domain.Category, bool, error) {
	category, ok := t.d.categories[id]
	return category, ok, nil
}

func (t *memTx) ListCategories() ([]domain.Category, error) {
	return sortedValues(t.d.categories, func(c domain.Category) string { return c.ID }), nil
}

func (t *memTx) PutCategory(category domain.Category) error {
	t.d.categories[category.ID] = category
	return nil
}

func (t *memTx) DeleteCategory(id string) error {
	delete(t.d.categories, id)
	return nil
}

func (t *memTx) GetTransaction(id string) (domain.Transaction, bool, error) {
	transaction, ok := t.d.transactions[id]
	if !ok {
		return domain.Transaction{}, false, nil
	}
	return cloneTransaction(transaction), true, nil
}

func (t *memTx) ListTransactions() ([]domain.Transaction, error) {
	return t.filterTransactions(func(domain.Transaction) bool { return true }), nil
}

func (t *memTx) ListTransactionsBetween(start time.Time, end time.Time) ([]domain.Transaction, error) {
	return t.filterTransactions(func(tx domain.Transaction) bool {
		return !tx.CreatedAt.Before(start) && !tx.CreatedAt.After(end)
	}), nil
}

func (t *memTx) ListTransactionsByCashier(cashierID string) ([]domain.Transaction, error) {
	return t.filterTransactions(func(tx domain.Transaction) bool { return tx.CashierID == cashierID }), nil
}

func (t *memTx) ListTransactionsByType(txType domain.TransactionType) ([]domain.Transaction, error) {
	return t.filterTransactions(func(tx domain.Transaction) bool { return tx.Type == txType }), nil
}

func (t *memTx) CountTransactionsByCashier(cashierID string) (int, error) {
	count := 0
	for _, transaction := range t.d.transactions {
		if transaction.CashierID == cashierID {
			count++
		}
	}
	return count, nil
}

func (t *memTx) PutTransaction(transaction domain.Transaction) error {
	t.d.transactions[transaction.ID] = cloneTransaction(transaction)
	return nil
}

func (t *memTx) DeleteTransaction(id string) error {
	delete(t.d.transactions, id)
	return nil
}

func (t *memTx) filterTransactions(keep func(domain.Transaction) bool) []domain.Transaction {
	transactions := make([]domain.Transaction, 0)
	for _, transaction := range t.d.transactions {
		if keep(transaction) {
			transactions = append(transactions, cloneTransaction(transaction))
		}
	}
	slices.SortFunc(transactions, func(a, b domain.Transaction) int { return strings.Compare(a.ID, b.ID) })
	return transactions
}

func (t *memTx) ListActivityLogs() ([]domain.ActivityLog, error) {
	return t.filterActivityLogs(func(domain.ActivityLog) bool { return true }), nil
}

func (t *memTx) ListActivityLogsByUser(userID string) ([]domain.ActivityLog, error) {
	return t.filterActivityLogs(func(entry domain.ActivityLog) bool { return entry.UserID == userID }), nil
}

func (t *memTx) ListActivityLogsByEntity(entityType string, entityID string) ([]domain.ActivityLog, error) {
	return t.filterActivityLogs(func(entry domain.ActivityLog) bool {
		return entry.EntityType == entityType && (entityID == "" || entry.EntityID == entityID)
	}), nil
}

func (t *memTx) PutActivityLog(entry domain.ActivityLog) error {
	t.d.activityLogs[entry.ID] = entry
	return nil
}

func (t *memTx) DeleteActivityLogsBefore(cutoff time.Time) (int, error) {
	deleted := 0
	for id, entry := range t.d.activityLogs {
		if entry.CreatedAt.Before(cutoff) {
			delete(t.d.activityLogs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (t *memTx) filterActivityLogs(keep func(domain.ActivityLog) bool) []domain.ActivityLog {
	entries := make([]domain.ActivityLog, 0)
	for _, entry := range t.d.activityLogs {
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	slices.SortFunc(entries, func(a, b domain.ActivityLog) int { return strings.Compare(a.ID, b.ID) })
	return entries
}

func (t *memTx) GetSettings() (domain.Settings, bool, error) {
	if t.d.settings == nil {
		return domain.Settings{}, false, nil
	}
	return *t.d.settings, true, nil
}

func (t *memTx) PutSettings(settings domain.Settings) error {
	t.d.settings = &settings
	return nil
}

func (t *memTx) GetMeta(key string) (string, bool, error) {
	value, ok := t.d.meta[key]
	return value, ok, nil
}

func (t *memTx) PutMeta(key string, value string) error {
	t.d.meta[key] = value
	return nil
}

func (t *memTx) DeleteMeta(key string) error {
	delete(t.d.meta, key)
	return nil
}

func (t *memTx) Count(kind store.Kind) (int, error) {
	switch kind {
	case store.KindUsers:
		return len(t.d.users), nil
	case store.KindProducts:
		return len(t.d.products), nil
	case store.KindCategories:
		return len(t.d.categories), nil
	case store.KindTransactions:
		return len(t.d.transactions), nil
	case store.KindActivityLogs:
		return len(t.d.activityLogs), nil
	case store.KindSettings:
		if t.d.settings == nil {
			return 0, nil
		}
		return 1, nil
	case store.KindMeta:
		return len(t.d.meta), nil
	}
	return 0, fmt.Errorf("unknown kind %q", kind)
}

func (t *memTx) Clear(kind store.Kind) error {
	switch kind {
	case store.KindUsers:
		clear(t.d.users)
	case store.KindProducts:
		clear(t.d.products)
	case store.KindCategories:
		clear(t.d.categories)
	case store.KindTransactions:
		clear(t.d.transactions)
	case store.KindActivityLogs:
		clear(t.d.activityLogs)
	case store.KindSettings:
		t.d.settings = nil
	case store.KindMeta:
		clear(t.d.meta)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
	return nil
}

func sortedValues[T any](src map[string]T, key func(T) string) []T {
	values := make([]T, 0, len(src))
	for _, value := range src {
		values = append(values, value)
	}
	slices.SortFunc(values, func(a, b T) int { return strings.Compare(key(a), key(b)) })
	return values
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	if src.WholesaleMinQuantity != nil {
		minQty := *src.WholesaleMinQuantity
		dup.WholesaleMinQuantity = &minQty
	}
	return dup
}

func cloneTransaction(src domain.Transaction) domain.Transaction {
	dup := src
	if src.Items != nil {
		dup.Items = slices.Clone(src.Items)
	}
	return dup
}
