// Package storeapi is the client for the remote e-commerce API that owns
// carts, shipping quotes, promotions, coupons, catalog and orders.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

const serviceName = "store-api"

// CircuitOpenFallback answers for the store API while its breaker is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("store API is temporarily unavailable, please retry shortly")
}

// PromotionQuery is the context the promotion engine evaluates a cart in.
type PromotionQuery struct {
	CartID        string            `json:"cart_id"`
	Items         []domain.CartItem `json:"items"`
	ZipCode       string            `json:"zip_code,omitempty"`
	ShippingPrice decimal.Decimal   `json:"shipping_price"`
	CouponCode    string            `json:"coupon_code,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
}

// CouponValidation is the upstream verdict on a coupon code.
type CouponValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// OrderPayload is the order the storefront submits once checkout is placed.
type OrderPayload struct {
	CheckoutID      string                   `json:"checkout_id"`
	UserID          string                   `json:"user_id"`
	CartID          string                   `json:"cart_id"`
	Items           []domain.CartItem        `json:"items"`
	ShippingAddress *domain.Address          `json:"shipping_address"`
	ShippingQuoteID string                   `json:"shipping_quote_id"`
	CouponCode      string                   `json:"coupon_code,omitempty"`
	Payment         *domain.PaymentSelection `json:"payment"`
	Totals          domain.OrderTotals       `json:"totals"`
	Currency        string                   `json:"currency"`
}

// OrderConfirmation is returned by a successful order submission.
type OrderConfirmation struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Client calls the store API through a Doer, normally the circuit breaker
// wrapped around the retrying client.
type Client struct {
	doer    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

// New creates a store API client rooted at baseURL.
func New(doer httpclient.Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// GetCart fetches the cart snapshot.
func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/carts/"+url.PathEscape(cartID), nil, &cart); err != nil {
		return nil, fmt.Errorf("get cart %s: %w", cartID, err)
	}
	return &cart, nil
}

// QuoteShipping lists shipping options for the destination zip code.
func (c *Client) QuoteShipping(ctx context.Context, zipCode string, items []domain.CartItem) ([]domain.ShippingQuote, error) {
	req := struct {
		ZipCode string            `json:"zip_code"`
		Items   []domain.CartItem `json:"items"`
	}{ZipCode: zipCode, Items: items}

	var quotes []domain.ShippingQuote
	if err := c.do(ctx, http.MethodPost, "/shipping/quotes", req, &quotes); err != nil {
		return nil, fmt.Errorf("quote shipping: %w", err)
	}
	return quotes, nil
}

// EvaluatePromotions asks the promotion engine which discounts apply.
func (c *Client) EvaluatePromotions(ctx context.Context, q PromotionQuery) (*domain.PromotionResult, error) {
	var result domain.PromotionResult
	if err := c.do(ctx, http.MethodPost, "/promotions/evaluate", q, &result); err != nil {
		return nil, fmt.Errorf("evaluate promotions: %w", err)
	}
	return &result, nil
}

// ValidateCoupon checks a coupon code against the cart total.
func (c *Client) ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*CouponValidation, error) {
	req := struct {
		Code      string          `json:"code"`
		CartTotal decimal.Decimal `json:"cart_total"`
	}{Code: code, CartTotal: cartTotal}

	var v CouponValidation
	if err := c.do(ctx, http.MethodPost, "/coupons/validate", req, &v); err != nil {
		return nil, fmt.Errorf("validate coupon: %w", err)
	}
	return &v, nil
}

// GetProduct fetches a product with its variants.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, &p); err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return &p, nil
}

// SubmitOrder places the order upstream.
func (c *Client) SubmitOrder(ctx context.Context, order OrderPayload) (*OrderConfirmation, error) {
	var conf OrderConfirmation
	if err := c.do(ctx, http.MethodPost, "/orders", order, &conf); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	return &conf, nil
}

// do sends body as JSON and decodes the data envelope of a 2xx answer into
// out. Other statuses become AppErrors via httpclient.ParseResponseError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	if uid := logger.UserIDFromContext(ctx); uid != "" {
		req.Header.Set("X-User-ID", uid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return unavailable(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "store api returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", serviceName, err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("%s response has no data", serviceName)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", serviceName, err)
	}
	return nil
}

// unavailable turns a transport failure into a 503 AppError. AppErrors
// (the breaker fallback) and caller cancellation pass through.
func unavailable(ctx context.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || ctx.Err() != nil {
		return fmt.Errorf("call %s: %w", serviceName, err)
	}
	return &apperrors.AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: "store API is unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}
