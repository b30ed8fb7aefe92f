package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// DefaultInstallmentPrefix namespaces installment plan keys.
const DefaultInstallmentPrefix = "storefront:installments:"

// InstallmentCache implements repository.InstallmentCache using Redis.
// Plans are keyed by brand and total in cents.
type InstallmentCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// InstallmentPrefixFor namespaces plans under the table's fingerprint so
// that a policy change never serves plans cached under the old table.
func InstallmentPrefixFor(table *domain.InstallmentTable) string {
	return DefaultInstallmentPrefix + table.Fingerprint() + ":"
}

// NewInstallmentCache creates a Redis-backed installment plan cache. An
// empty prefix selects DefaultInstallmentPrefix.
func NewInstallmentCache(client *redis.Client, prefix string, ttl time.Duration) *InstallmentCache {
	if prefix == "" {
		prefix = DefaultInstallmentPrefix
	}
	return &InstallmentCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *InstallmentCache) key(total decimal.Decimal, brand domain.CardBrand) string {
	return fmt.Sprintf("%s%s:%d", c.prefix, brand, domain.ToCents(total))
}

// Get returns the cached plan, or ok=false on a miss.
func (c *InstallmentCache) Get(ctx context.Context, total decimal.Decimal, brand domain.CardBrand) ([]domain.InstallmentOption, bool, error) {
	data, err := c.client.Get(ctx, c.key(total, brand)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get installments: %w", err)
	}

	var plan []domain.InstallmentOption
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false, fmt.Errorf("unmarshal installments: %w", err)
	}
	return plan, true, nil
}

// Set stores a plan with the configured TTL.
func (c *InstallmentCache) Set(ctx context.Context, total decimal.Decimal, brand domain.CardBrand, plan []domain.InstallmentOption) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal installments: %w", err)
	}
	if err := c.client.Set(ctx, c.key(total, brand), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set installments: %w", err)
	}
	return nil
}
