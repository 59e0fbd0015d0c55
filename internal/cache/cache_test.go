package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/store/memory"
	"kasirlokal/internal/store/storetest"
)

// mapCache keeps the catalog in memory and counts invalidations.
type mapCache struct {
	products      []domain.Product
	invalidations int
}

func (c *mapCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return c.products, c.products != nil, nil
}

func (c *mapCache) SetProducts(_ context.Context, products []domain.Product) error {
	c.products = products
	return nil
}

func (c *mapCache) Invalidate(_ context.Context) error {
	c.invalidations++
	c.products = nil
	return nil
}

func TestInvalidatingStoreDropsCatalogOnProductWrites(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{products: []domain.Product{{ID: "old"}}}
	s := InvalidatingStore(memory.New(), NewCatalog(c), nil)

	require.NoError(t, s.Update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(storetest.Product("p1", "A-1", "", 1))
	}))
	assert.Nil(t, c.products)
	invalidations := c.invalidations
	assert.Positive(t, invalidations)

	require.NoError(t, s.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.PutMeta("k", "v")
	}))
	assert.Equal(t, invalidations, c.invalidations, "meta writes leave the catalog alone")
}

func TestCatalogSkipsFillAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{}
	catalog := NewCatalog(c)
	s := InvalidatingStore(memory.New(), catalog, nil)
	require.NoError(t, s.Update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(storetest.Product("p0", "A-0", "", 1))
	}))

	gen := catalog.Generation()
	var stale []domain.Product
	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		var err error
		stale, err = tx.ListProducts()
		return err
	}))
	require.Len(t, stale, 1)

	require.NoError(t, s.Update(ctx, []store.Kind{store.KindProducts}, func(tx store.Tx) error {
		return tx.PutProduct(storetest.Product("p1", "A-1", "", 1))
	}))

	require.NoError(t, catalog.Fill(ctx, gen, stale))
	_, ok, err := catalog.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a list read before the write must not be cached")

	fresh := catalog.Generation()
	require.NoError(t, catalog.Fill(ctx, fresh, []domain.Product{{ID: "p1"}}))
	got, ok, err := catalog.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", got[0].ID)
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c CatalogCache = NoopCatalogCache{}
	require.NoError(t, c.SetProducts(context.Background(), []domain.Product{{ID: "p1"}}))
	_, ok, err := c.GetProducts(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
