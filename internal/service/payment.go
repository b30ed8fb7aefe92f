package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CardQuote is what the payment form needs while the shopper types.
type CardQuote struct {
	Brand        domain.CardBrand           `json:"brand"`
	CVCLength    int                        `json:"cvc_length"`
	Total        decimal.Decimal            `json:"total"`
	Installments []domain.InstallmentOption `json:"installments"`
}

// PaymentService quotes installment plans, memoizing them by (total, brand).
type PaymentService struct {
	gen    *domain.InstallmentGenerator
	cache  repository.InstallmentCache
	logger *slog.Logger
}

// NewPaymentService creates a payment quoting service. cache may be nil.
func NewPaymentService(gen *domain.InstallmentGenerator, cache repository.InstallmentCache, logger *slog.Logger) *PaymentService {
	if gen == nil {
		gen = domain.NewInstallmentGenerator(nil)
	}
	return &PaymentService{gen: gen, cache: cache, logger: logger}
}

// QuoteCard detects the brand of a (possibly partial) card number and
// returns its installment plan for total. An unrecognised number is quoted
// with the unknown brand's policy.
func (s *PaymentService) QuoteCard(ctx context.Context, cardNumber string, total decimal.Decimal) (*CardQuote, error) {
	if total.IsNegative() {
		return nil, apperrors.InvalidInput("total must not be negative")
	}
	total = domain.RoundMoney(total)
	brand := domain.DetectBrandFromInput(cardNumber)

	return &CardQuote{
		Brand:        brand,
		CVCLength:    domain.CVCLength(brand),
		Total:        total,
		Installments: s.plan(ctx, total, brand),
	}, nil
}

// plan serves from the cache when it can. Cache failures only cost the
// recomputation.
func (s *PaymentService) plan(ctx context.Context, total decimal.Decimal, brand domain.CardBrand) []domain.InstallmentOption {
	if s.cache == nil {
		return s.gen.Generate(total, brand)
	}

	cached, ok, err := s.cache.Get(ctx, total, brand)
	switch {
	case err != nil:
		cacheRequests.WithLabelValues(cacheInstallments, "error").Inc()
		s.logger.WarnContext(ctx, "installment cache read failed",
			slog.String("brand", string(brand)),
			slog.String("error", err.Error()),
		)
	case ok:
		cacheRequests.WithLabelValues(cacheInstallments, "hit").Inc()
		return cached
	default:
		cacheRequests.WithLabelValues(cacheInstallments, "miss").Inc()
	}

	plan := s.gen.Generate(total, brand)
	if err := s.cache.Set(ctx, total, brand, plan); err != nil {
		s.logger.WarnContext(ctx, "installment cache write failed",
			slog.String("brand", string(brand)),
			slog.String("error", err.Error()),
		)
	}
	return plan
}
