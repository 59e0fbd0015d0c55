package store

import (
	"context"
	"errors"
	"time"

	"kasirlokal/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInUse              = errors.New("in use")
	ErrInvalidFormat      = errors.New("invalid format")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrReadOnly           = errors.New("write inside read-only view")
	ErrKindNotInScope     = errors.New("kind not declared for this transaction")
)

type Kind string

const (
	KindUsers        Kind = "users"
	KindProducts     Kind = "products"
	KindCategories   Kind = "categories"
	KindTransactions Kind = "transactions"
	KindActivityLogs Kind = "activityLogs"
	KindSettings     Kind = "settings"
	KindMeta         Kind = "meta"
)

// EntityKinds are the six record kinds that make up a backup snapshot.
var EntityKinds = []Kind{KindUsers, KindProducts, KindCategories, KindTransactions, KindActivityLogs, KindSettings}

// AllKinds also includes the internal meta kind.
var AllKinds = append(append([]Kind{}, EntityKinds...), KindMeta)

// Store is the entity persistence substrate. View runs fn against a
// read-only snapshot; Update runs fn atomically and may only write to the
// listed kinds. Returning an error from fn discards every write.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, kinds []Kind, fn func(tx Tx) error) error
	Close() error
}

// Tx is the per-kind access surface available inside View and Update.
// Get methods report a missing key with ok == false rather than an error.
// Put methods insert or replace by primary key.
type Tx interface {
	GetUser(id string) (domain.User, bool, error)
	FindUserByUsername(username string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	PutUser(user domain.User) error
	DeleteUser(id string) error

	GetProduct(id string) (domain.Product, bool, error)
	FindProductBySKU(sku string) (domain.Product, bool, error)
	ListProducts() ([]domain.Product, error)
	ListProductsByCategory(categoryID string) ([]domain.Product, error)
	ListProductsByMaxQuantity(max int) ([]domain.Product, error)
	CountProductsByCategory(categoryID string) (int, error)
	PutProduct(product domain.Product) error
	DeleteProduct(id string) error

	GetCategory(id string) (domain.Category, bool, error)
	ListCategories() ([]domain.Category, error)
	PutCategory(category domain.Category) error
	DeleteCategory(id string) error

	GetTransaction(id string) (domain.Transaction, bool, error)
	ListTransactions() ([]domain.Transaction, error)
	ListTransactionsBetween(start time.Time, end time.Time) ([]domain.Transaction, error)
	ListTransactionsByCashier(cashierID string) ([]domain.Transaction, error)
	ListTransactionsByType(txType domain.TransactionType) ([]domain.Transaction, error)
	CountTransactionsByCashier(cashierID string) (int, error)
	PutTransaction(transaction domain.Transaction) error
	DeleteTransaction(id string) error

	ListActivityLogs() ([]domain.ActivityLog, error)
	ListActivityLogsByUser(userID string) ([]domain.ActivityLog, error)
	ListActivityLogsByEntity(entityType string, entityID string) ([]domain.ActivityLog, error)
	PutActivityLog(entry domain.ActivityLog) error
	DeleteActivityLogsBefore(cutoff time.Time) (int, error)

	GetSettings() (domain.Settings, bool, error)
	PutSettings(settings domain.Settings) error

	GetMeta(key string) (string, bool, error)
	PutMeta(key string, value string) error
	DeleteMeta(key string) error

	Count(kind Kind) (int, error)
	Clear(kind Kind) error
}

// Meta keys shared by the services that keep bookkeeping state in the store.
const (
	MetaMigrationCompleted = "migration.completed"
	MetaLegacyBackup       = "migration.legacyBackup"
	MetaDataCleared        = "data.cleared"
	MetaSession            = "app.session"
)
