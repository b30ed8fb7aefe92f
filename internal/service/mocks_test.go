package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storeapi"
)

// --- Mock CheckoutRepository ---

type mockCheckoutRepository struct {
	mock.Mock
}

func (m *mockCheckoutRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockCheckoutRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *mockCheckoutRepository) Update(ctx context.Context, session *domain.CheckoutSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockCheckoutRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.CheckoutSession, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CheckoutSession), args.Error(1)
}

// --- Mock StoreAPI ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockStore) QuoteShipping(ctx context.Context, zipCode string, items []domain.CartItem) ([]domain.ShippingQuote, error) {
	args := m.Called(ctx, zipCode, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ShippingQuote), args.Error(1)
}

func (m *mockStore) EvaluatePromotions(ctx context.Context, q storeapi.PromotionQuery) (*domain.PromotionResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromotionResult), args.Error(1)
}

func (m *mockStore) ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*storeapi.CouponValidation, error) {
	args := m.Called(ctx, code, cartTotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storeapi.CouponValidation), args.Error(1)
}

func (m *mockStore) SubmitOrder(ctx context.Context, order storeapi.OrderPayload) (*storeapi.OrderConfirmation, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storeapi.OrderConfirmation), args.Error(1)
}

func (m *mockStore) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// --- Mock EventPublisher ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishCheckoutInitiated(ctx context.Context, s *domain.CheckoutSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockEvents) PublishCheckoutCompleted(ctx context.Context, s *domain.CheckoutSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockEvents) PublishCheckoutFailed(ctx context.Context, s *domain.CheckoutSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockEvents) PublishCheckoutAbandoned(ctx context.Context, s *domain.CheckoutSession) error {
	return m.Called(ctx, s).Error(0)
}

// --- Mock caches ---

type mockInstallmentCache struct {
	mock.Mock
}

func (m *mockInstallmentCache) Get(ctx context.Context, total decimal.Decimal, brand domain.CardBrand) ([]domain.InstallmentOption, bool, error) {
	args := m.Called(ctx, total, brand)
	plan, _ := args.Get(0).([]domain.InstallmentOption)
	return plan, args.Bool(1), args.Error(2)
}

func (m *mockInstallmentCache) Set(ctx context.Context, total decimal.Decimal, brand domain.CardBrand, plan []domain.InstallmentOption) error {
	return m.Called(ctx, total, brand, plan).Error(0)
}

type mockProductCache struct {
	mock.Mock
}

func (m *mockProductCache) Get(ctx context.Context, productID string) (*domain.Product, bool, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Bool(1), args.Error(2)
}

func (m *mockProductCache) Set(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductCache) Delete(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

// --- helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
