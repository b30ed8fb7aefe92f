package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
)

const productKeyPrefix = "storefront:product:"

// ProductCache implements repository.ProductCache using Redis.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache creates a Redis-backed product cache.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// Get returns the cached product, or ok=false on a miss.
func (c *ProductCache) Get(ctx context.Context, productID string) (*domain.Product, bool, error) {
	data, err := c.client.Get(ctx, productKeyPrefix+productID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get product: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, true, nil
}

// Set stores a product with the configured TTL.
func (c *ProductCache) Set(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if err := c.client.Set(ctx, productKeyPrefix+p.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set product: %w", err)
	}
	return nil
}

// Delete evicts a product. Deleting an absent key is not an error.
func (c *ProductCache) Delete(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, productKeyPrefix+productID).Err(); err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}
