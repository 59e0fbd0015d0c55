package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"kasirlokal/internal/domain"
)

const catalogKey = "kasirlokal:catalog:products"

type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCatalogCache(addr string, password string, db int, ttl time.Duration) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) GetProducts(ctx context.Context) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, catalogKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal(val, &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalogCache) SetProducts(ctx context.Context, products []domain.Product) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey, payload, c.ttl).Err()
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}
