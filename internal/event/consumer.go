package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Product topics consumed to keep the catalog cache fresh.
var (
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// ProductEventData is the part of a product event the storefront reads.
type ProductEventData struct {
	ID string `json:"id"`
}

// ProductEvictor drops a product from the catalog cache.
type ProductEvictor interface {
	Delete(ctx context.Context, productID string) error
}

// Consumer invalidates cached products when the catalog changes.
type Consumer struct {
	cache  ProductEvictor
	logger *slog.Logger
}

// NewConsumer creates a product event consumer.
func NewConsumer(cache ProductEvictor, logger *slog.Logger) *Consumer {
	return &Consumer{cache: cache, logger: logger}
}

// Handle processes a product event. Unknown event types are skipped.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpdated, TopicProductDeleted:
		return c.evict(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) evict(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	id := data.ID
	if id == "" {
		id = event.AggregateID
	}
	if id == "" {
		c.logger.WarnContext(ctx, "product event without id, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.cache.Delete(ctx, id); err != nil {
		return fmt.Errorf("evict product %s: %w", id, err)
	}

	c.logger.InfoContext(ctx, "evicted product from catalog cache",
		slog.String("product_id", id),
		slog.String("event_type", event.EventType),
	)
	return nil
}
