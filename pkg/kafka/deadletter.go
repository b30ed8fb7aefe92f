package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DeadLetterPrefix namespaces parked-message topics.
const DeadLetterPrefix = TopicPrefix + ".deadletter"

// DeadLetterTopic is where messages from topic are parked.
func DeadLetterTopic(topic string) string {
	return DeadLetterPrefix + "." + topic
}

// DeadLetterSink receives messages a consumer gave up on.
type DeadLetterSink interface {
	Park(ctx context.Context, msg kafka.Message, cause error, group string) error
}

// DeadLetterProducer parks failed messages on DeadLetterTopic(msg.Topic),
// keeping the original key, value and headers.
type DeadLetterProducer struct {
	writer messageWriter
	logger *slog.Logger
}

func NewDeadLetterProducer(brokers []string, logger *slog.Logger) *DeadLetterProducer {
	return &DeadLetterProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              1,
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (d *DeadLetterProducer) Park(ctx context.Context, msg kafka.Message, cause error, group string) error {
	topic := DeadLetterTopic(msg.Topic)

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "deadletter.topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "deadletter.partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "deadletter.offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "deadletter.group", Value: []byte(group)},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: "deadletter.error", Value: []byte(cause.Error())})
	}

	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("park message on %s: %w", topic, err)
	}

	d.logger.Warn("message parked",
		slog.String("deadletter_topic", topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.String("group", group),
	)
	return nil
}

func (d *DeadLetterProducer) Close() error {
	return d.writer.Close()
}
