package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CatalogAPI fetches products from the store.
type CatalogAPI interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// ProductOptions describes a product's selectable attributes for a given
// selection.
type ProductOptions struct {
	ProductID string                    `json:"product_id"`
	All       domain.OptionSet          `json:"all_options"`
	Available domain.OptionSet          `json:"available_options"`
	Selection domain.AttributeSelection `json:"selection"`
	Variant   *domain.Variant           `json:"variant,omitempty"`
	Initial   domain.SelectionState     `json:"initial_state"`
}

// SelectionInput is a shopper's click on an attribute value. VariantID is
// the currently resolved variant, if any.
type SelectionInput struct {
	Selection domain.AttributeSelection `json:"selection"`
	VariantID string                    `json:"variant_id,omitempty"`
	Quantity  int                       `json:"quantity,omitempty"`
	Key       string                    `json:"key" validate:"required"`
	Value     string                    `json:"value" validate:"required"`
}

// SelectionResult is the state after a click plus what can be picked next.
type SelectionResult struct {
	State     domain.SelectionState `json:"state"`
	Available domain.OptionSet      `json:"available_options"`
}

// CatalogService resolves variant selections over a cached catalog.
type CatalogService struct {
	api    CatalogAPI
	cache  repository.ProductCache
	logger *slog.Logger
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(api CatalogAPI, cache repository.ProductCache, logger *slog.Logger) *CatalogService {
	return &CatalogService{api: api, cache: cache, logger: logger}
}

// GetProductOptions returns every option, the options still reachable from
// selection and the variant the selection resolves to, if exactly one.
func (s *CatalogService) GetProductOptions(ctx context.Context, productID string, selection domain.AttributeSelection) (*ProductOptions, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if selection == nil {
		selection = domain.AttributeSelection{}
	}

	all := domain.CollectOptions(product.Variants)
	out := &ProductOptions{
		ProductID: product.ID,
		All:       all,
		Available: domain.ResolveAvailableOptions(all, selection, product.Variants),
		Selection: selection,
		Initial:   domain.NewSelectionState(product.Variants),
	}
	if len(selection) > 0 {
		if matches := domain.MatchVariants(selection, product.Variants); len(matches) == 1 {
			out.Variant = &matches[0]
		}
	}
	return out, nil
}

// SelectAttribute applies one attribute click to the shopper's state.
func (s *CatalogService) SelectAttribute(ctx context.Context, productID string, in SelectionInput) (*SelectionResult, error) {
	if in.Key == "" || in.Value == "" {
		return nil, apperrors.InvalidInput("key and value are required")
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	state := domain.SelectionState{Selection: in.Selection, Quantity: in.Quantity}
	if state.Selection == nil {
		state.Selection = domain.AttributeSelection{}
	}
	if state.Quantity < 1 {
		state.Quantity = 1
	}
	if in.VariantID != "" {
		v, ok := product.Variant(in.VariantID)
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown variant %s", in.VariantID))
		}
		state.Variant = &v
	}

	all := domain.CollectOptions(product.Variants)
	next := domain.SelectAttribute(in.Key, in.Value, state, all, product.Variants)

	return &SelectionResult{
		State:     next,
		Available: domain.ResolveAvailableOptions(all, next.Selection, product.Variants),
	}, nil
}

// product reads through the cache. Cache failures fall back to the store.
func (s *CatalogService) product(ctx context.Context, productID string) (*domain.Product, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx, productID)
		switch {
		case err != nil:
			cacheRequests.WithLabelValues(cacheCatalog, "error").Inc()
			s.logger.WarnContext(ctx, "catalog cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		case ok:
			cacheRequests.WithLabelValues(cacheCatalog, "hit").Inc()
			return p, nil
		default:
			cacheRequests.WithLabelValues(cacheCatalog, "miss").Inc()
		}
	}

	p, err := s.api.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "catalog cache write failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}
