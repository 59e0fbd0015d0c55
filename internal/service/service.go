package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"kasirlokal/internal/cache"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Option func(*base)

func WithLogger(log *slog.Logger) Option {
	return func(b *base) {
		if log != nil {
			b.log = log
		}
	}
}

func WithCatalogCache(c *cache.Catalog) Option {
	return func(b *base) {
		if c != nil {
			b.catalog = c
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// base is shared by every per-kind service.
type base struct {
	store   store.Store
	log     *slog.Logger
	now     func() time.Time
	catalog *cache.Catalog
}

// Service bundles one service per entity kind plus the stock coordinator.
type Service struct {
	Users        *UserService
	Products     *ProductService
	Categories   *CategoryService
	Transactions *TransactionService
	ActivityLogs *ActivityLogService
	Settings     *SettingsService
	Stock        *StockCoordinator

	base *base
}

func New(s store.Store, opts ...Option) *Service {
	b := &base{
		store:   s,
		log:     slog.Default(),
		now:     time.Now,
		catalog: cache.NewCatalog(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With("component", "service")

	activity := &ActivityLogService{base: b}
	stock := &StockCoordinator{base: b}
	return &Service{
		Users:        &UserService{base: b, activity: activity},
		Products:     &ProductService{base: b, activity: activity, stock: stock},
		Categories:   &CategoryService{base: b, activity: activity},
		Transactions: &TransactionService{base: b, activity: activity, stock: stock},
		ActivityLogs: activity,
		Settings:     &SettingsService{base: b, activity: activity},
		Stock:        stock,
		base:         b,
	}
}

func (b *base) view(ctx context.Context, fn func(tx store.Tx) error) error {
	return b.store.View(ctx, fn)
}

func (b *base) update(ctx context.Context, kinds []store.Kind, fn func(tx store.Tx) error) error {
	return b.store.Update(ctx, kinds, fn)
}

func notFound(kind string, id string) error {
	return fmt.Errorf("%w: %s %q", store.ErrNotFound, kind, id)
}

func duplicate(kind string, field string, value string) error {
	return fmt.Errorf("%w: %s with %s %q already exists", store.ErrDuplicateKey, kind, field, value)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func byName[T any](name func(T) string, id func(T) string) func(a, b T) int {
	return func(a, b T) int {
		if c := strings.Compare(strings.ToLower(name(a)), strings.ToLower(name(b))); c != 0 {
			return c
		}
		return strings.Compare(id(a), id(b))
	}
}

func newestFirst[T any](createdAt func(T) time.Time, id func(T) string) func(a, b T) int {
	return func(a, b T) int {
		if c := createdAt(b).Compare(createdAt(a)); c != 0 {
			return c
		}
		return strings.Compare(id(b), id(a))
	}
}

func sortProducts(products []domain.Product) []domain.Product {
	slices.SortFunc(products, byName(
		func(p domain.Product) string { return p.Name },
		func(p domain.Product) string { return p.ID },
	))
	return products
}

func sortCategories(categories []domain.Category) []domain.Category {
	slices.SortFunc(categories, byName(
		func(c domain.Category) string { return c.Name },
		func(c domain.Category) string { return c.ID },
	))
	return categories
}

func sortTransactions(transactions []domain.Transaction) []domain.Transaction {
	slices.SortFunc(transactions, newestFirst(
		func(t domain.Transaction) time.Time { return t.CreatedAt },
		func(t domain.Transaction) string { return t.ID },
	))
	return transactions
}

func sortActivityLogs(entries []domain.ActivityLog) []domain.ActivityLog {
	slices.SortFunc(entries, newestFirst(
		func(e domain.ActivityLog) time.Time { return e.CreatedAt },
		func(e domain.ActivityLog) string { return e.ID },
	))
	return entries
}

func sortUsers(users []domain.User) []domain.User {
	slices.SortFunc(users, newestFirst(
		func(u domain.User) time.Time { return u.CreatedAt },
		func(u domain.User) string { return u.ID },
	))
	return users
}
