package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

// CatalogCache is a read-through view of the product catalog. The store
// stays the source of truth; a miss or a cache error falls back to it.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProducts(_ context.Context, _ []domain.Product) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}

// Catalog fronts a CatalogCache with a generation counter so a product list
// read before an invalidation is never written back after it.
type Catalog struct {
	mu    sync.Mutex
	gen   uint64
	cache CatalogCache
}

func NewCatalog(c CatalogCache) *Catalog {
	if c == nil {
		c = NoopCatalogCache{}
	}
	return &Catalog{cache: c}
}

func (c *Catalog) Get(ctx context.Context) ([]domain.Product, bool, error) {
	return c.cache.GetProducts(ctx)
}

// Generation is taken before reading the store; pass it to Fill.
func (c *Catalog) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Fill caches products only if nothing invalidated the catalog since gen.
func (c *Catalog) Fill(ctx context.Context, gen uint64, products []domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	return c.cache.SetProducts(ctx, products)
}

func (c *Catalog) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.cache.Invalidate(ctx)
}

// InvalidatingStore drops the cached catalog around every Update that
// declared the products kind, whoever issued it (services, restore,
// migration). Readers that overlap the write cannot refill it with the old
// list.
func InvalidatingStore(next store.Store, c *Catalog, log *slog.Logger) store.Store {
	if log == nil {
		log = slog.Default()
	}
	return &invalidatingStore{Store: next, catalog: c, log: log.With("component", "cache")}
}

type invalidatingStore struct {
	store.Store
	catalog *Catalog
	log     *slog.Logger
}

func (s *invalidatingStore) Update(ctx context.Context, kinds []store.Kind, fn func(tx store.Tx) error) error {
	if !slices.Contains(kinds, store.KindProducts) {
		return s.Store.Update(ctx, kinds, fn)
	}
	s.invalidate(ctx)
	if err := s.Store.Update(ctx, kinds, fn); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *invalidatingStore) invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn("failed to invalidate catalog cache", "error", err)
	}
}
