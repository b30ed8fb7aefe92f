package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// --- InstallmentCache ---

func TestInstallmentCache_MissThenHit(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewInstallmentCache(client, "", 5*time.Minute)
	ctx := context.Background()
	total := decimal.RequireFromString("134.70")

	_, ok, err := cache.Get(ctx, total, domain.BrandVisa)
	require.NoError(t, err)
	assert.False(t, ok)

	plan := domain.GenerateInstallments(total, domain.BrandVisa)
	require.NoError(t, cache.Set(ctx, total, domain.BrandVisa, plan))

	assert.True(t, mr.Exists("storefront:installments:visa:13470"))
	assert.Equal(t, 5*time.Minute, mr.TTL("storefront:installments:visa:13470"))

	got, ok, err := cache.Get(ctx, total, domain.BrandVisa)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, len(plan))
	assert.Equal(t, plan[12].N, got[12].N)
	assert.Equal(t, "11.86", got[12].PerInstallment.StringFixed(2))
	assert.Equal(t, plan[12].Label, got[12].Label)
}

func TestInstallmentCache_KeyedByBrandAndCents(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewInstallmentCache(client, "test:", time.Minute)
	ctx := context.Background()
	total := decimal.RequireFromString("100")

	require.NoError(t, cache.Set(ctx, total, domain.BrandElo, domain.GenerateInstallments(total, domain.BrandElo)))

	_, ok, err := cache.Get(ctx, total, domain.BrandVisa)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.Get(ctx, decimal.RequireFromString("100.001"), domain.BrandElo)
	require.NoError(t, err)
	assert.True(t, ok, "totals rounding to the same cent share a key")
}

func TestInstallmentCache_PolicyTablesDoNotShareEntries(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	total := decimal.RequireFromString("100")

	def := domain.DefaultInstallmentTable()
	tighter, err := domain.LoadInstallmentTable(strings.NewReader("brands:\n  visa: {max_installments: 6, interest_free_up_to: 3}\n"))
	require.NoError(t, err)

	before := NewInstallmentCache(client, InstallmentPrefixFor(def), time.Minute)
	after := NewInstallmentCache(client, InstallmentPrefixFor(tighter), time.Minute)

	require.NoError(t, before.Set(ctx, total, domain.BrandVisa, domain.NewInstallmentGenerator(def).Generate(total, domain.BrandVisa)))
	assert.True(t, mr.Exists("storefront:installments:"+def.Fingerprint()+":visa:10000"))

	_, ok, err := after.Get(ctx, total, domain.BrandVisa)
	require.NoError(t, err)
	assert.False(t, ok, "a new policy table must not read plans cached under the old one")

	require.NoError(t, after.Set(ctx, total, domain.BrandVisa, domain.NewInstallmentGenerator(tighter).Generate(total, domain.BrandVisa)))
	got, ok, err := after.Get(ctx, total, domain.BrandVisa)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 6)
}

func TestInstallmentCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewInstallmentCache(client, "", time.Minute)
	ctx := context.Background()
	total := decimal.NewFromInt(50)

	require.NoError(t, cache.Set(ctx, total, domain.BrandAmex, domain.GenerateInstallments(total, domain.BrandAmex)))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, total, domain.BrandAmex)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstallmentCache_CorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewInstallmentCache(client, "", time.Minute)

	require.NoError(t, mr.Set("storefront:installments:visa:1000", "{not json"))

	_, ok, err := cache.Get(context.Background(), decimal.NewFromInt(10), domain.BrandVisa)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "unmarshal installments")
}

func TestInstallmentCache_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewInstallmentCache(client, "", time.Minute)
	mr.Close()

	_, ok, err := cache.Get(context.Background(), decimal.NewFromInt(10), domain.BrandVisa)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "redis get installments")
}

// --- ProductCache ---

func sampleProduct() *domain.Product {
	return &domain.Product{
		ID:   "tenis-01",
		Name: "Tênis Corrida",
		Variants: []domain.Variant{
			{
				ID:         "tenis-01-42-azul",
				SKU:        "TEN-42-AZ",
				ListPrice:  decimal.RequireFromString("299.90"),
				SalePrice:  decimal.RequireFromString("249.90"),
				Stock:      3,
				Attributes: []domain.Attribute{{Key: "tamanho", Value: "42"}, {Key: "cor", Value: "azul"}},
			},
		},
	}
}

func TestProductCache_SetGetDelete(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewProductCache(client, 2*time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "tenis-01")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, sampleProduct()))
	assert.Equal(t, 2*time.Minute, mr.TTL("storefront:product:tenis-01"))

	got, ok, err := cache.Get(ctx, "tenis-01")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "249.90", got.Variants[0].SalePrice.StringFixed(2))
	v, _ := got.Variants[0].Attr("cor")
	assert.Equal(t, "azul", v)

	require.NoError(t, cache.Delete(ctx, "tenis-01"))
	assert.False(t, mr.Exists("storefront:product:tenis-01"))

	require.NoError(t, cache.Delete(ctx, "tenis-01"))
}

func TestProductCache_CorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewProductCache(client, time.Minute)
	require.NoError(t, mr.Set("storefront:product:p1", "[]"))

	_, ok, err := cache.Get(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, ok)
}
