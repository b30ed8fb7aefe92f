package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Checkout topics produced by the storefront.
var (
	TopicCheckoutInitiated = pkgkafka.Topic("checkout", "initiated")
	TopicCheckoutCompleted = pkgkafka.Topic("checkout", "completed")
	TopicCheckoutFailed    = pkgkafka.Topic("checkout", "failed")
	TopicCheckoutAbandoned = pkgkafka.Topic("checkout", "abandoned")
)

const (
	AggregateTypeCheckout = "checkout"
	SourceStorefront      = "storefront-checkout"
)

// Publisher is the subset of the Kafka producer the checkout events need.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CheckoutInitiatedData is the payload for checkout.initiated.
type CheckoutInitiatedData struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	CartID      string            `json:"cart_id"`
	Items       []domain.CartItem `json:"items"`
	ItemsTotal  decimal.Decimal   `json:"items_total"`
	PayableBase decimal.Decimal   `json:"payable_base"`
	Currency    string            `json:"currency"`
}

// CheckoutCompletedData is the payload for checkout.completed.
type CheckoutCompletedData struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"user_id"`
	OrderID               string          `json:"order_id"`
	PaymentMethod         string          `json:"payment_method"`
	CardBrand             string          `json:"card_brand,omitempty"`
	Installments          int             `json:"installments"`
	PayableBase           decimal.Decimal `json:"payable_base"`
	TotalWithInstallments decimal.Decimal `json:"total_with_installments"`
	CouponCode            string          `json:"coupon_code,omitempty"`
	Currency              string          `json:"currency"`
}

// CheckoutFailedData is the payload for checkout.failed.
type CheckoutFailedData struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	FailureReason string `json:"failure_reason"`
}

// CheckoutAbandonedData carries the last snapshot of a session that expired
// before an order was placed, for abandoned-cart recovery downstream.
type CheckoutAbandonedData struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	CartID      string             `json:"cart_id"`
	Items       []domain.CartItem  `json:"items"`
	CouponCode  string             `json:"coupon_code,omitempty"`
	Totals      domain.OrderTotals `json:"totals"`
	Currency    string             `json:"currency"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Producer publishes checkout domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a checkout event producer.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic string, s *domain.CheckoutSession, data any) error {
	evt, err := pkgkafka.NewEvent(topic, s.ID, AggregateTypeCheckout, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	evt.WithMetadata("user_id", s.UserID)

	if err := p.pub.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published checkout event",
		slog.String("topic", topic),
		slog.String("checkout_id", s.ID),
		slog.String("event_id", evt.EventID),
	)
	return nil
}

// PublishCheckoutInitiated publishes checkout.initiated.
func (p *Producer) PublishCheckoutInitiated(ctx context.Context, s *domain.CheckoutSession) error {
	return p.publish(ctx, TopicCheckoutInitiated, s, CheckoutInitiatedData{
		ID:          s.ID,
		UserID:      s.UserID,
		CartID:      s.CartID,
		Items:       s.Items,
		ItemsTotal:  s.Totals.ItemsTotal,
		PayableBase: s.Totals.PayableBase,
		Currency:    s.Currency,
	})
}

// PublishCheckoutCompleted publishes checkout.completed.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, s *domain.CheckoutSession) error {
	data := CheckoutCompletedData{
		ID:                    s.ID,
		UserID:                s.UserID,
		OrderID:               s.OrderID,
		Installments:          s.Totals.Installments,
		PayableBase:           s.Totals.PayableBase,
		TotalWithInstallments: s.Totals.TotalWithInstallments,
		Currency:              s.Currency,
	}
	if s.CouponApplied {
		data.CouponCode = s.CouponCode
	}
	if s.Payment != nil {
		data.PaymentMethod = s.Payment.Method
		if s.Payment.IsCard() {
			data.CardBrand = string(s.Payment.Brand)
		}
	}
	return p.publish(ctx, TopicCheckoutCompleted, s, data)
}

// PublishCheckoutFailed publishes checkout.failed.
func (p *Producer) PublishCheckoutFailed(ctx context.Context, s *domain.CheckoutSession) error {
	return p.publish(ctx, TopicCheckoutFailed, s, CheckoutFailedData{
		ID:            s.ID,
		UserID:        s.UserID,
		FailureReason: s.FailureReason,
	})
}

// PublishCheckoutAbandoned publishes checkout.abandoned.
func (p *Producer) PublishCheckoutAbandoned(ctx context.Context, s *domain.CheckoutSession) error {
	data := CheckoutAbandonedData{
		ID:          s.ID,
		UserID:      s.UserID,
		CartID:      s.CartID,
		Items:       s.Items,
		Totals:      s.Totals,
		Currency:    s.Currency,
		LastUpdated: s.UpdatedAt,
	}
	if s.CouponApplied {
		data.CouponCode = s.CouponCode
	}
	return p.publish(ctx, TopicCheckoutAbandoned, s, data)
}
