package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// CheckoutRepository persists checkout sessions.
type CheckoutRepository interface {
	// Create inserts a new checkout session.
	Create(ctx context.Context, session *domain.CheckoutSession) error

	// GetByID retrieves a checkout session by id.
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)

	// Update overwrites an existing checkout session.
	Update(ctx context.Context, session *domain.CheckoutSession) error

	// ListExpired returns up to limit non-terminal sessions whose expiry is
	// before the given time, oldest first.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.CheckoutSession, error)
}

// InstallmentCache memoizes installment plans by (total, brand).
type InstallmentCache interface {
	Get(ctx context.Context, total decimal.Decimal, brand domain.CardBrand) ([]domain.InstallmentOption, bool, error)
	Set(ctx context.Context, total decimal.Decimal, brand domain.CardBrand, plan []domain.InstallmentOption) error
}

// ProductCache holds catalog products fetched from the store API.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, bool, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}
