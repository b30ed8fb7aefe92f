package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consumerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_consumer_processed_total",
			Help: "Messages handled successfully.",
		},
		[]string{"topic", "group"},
	)

	consumerFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_consumer_failed_total",
			Help: "Messages skipped after exhausting handler retries.",
		},
		[]string{"topic", "group"},
	)

	consumerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_consumer_duplicates_total",
			Help: "Messages skipped because their event id was already processed.",
		},
		[]string{"topic"},
	)

	consumerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_kafka_consumer_duration_seconds",
			Help:    "Handler latency per message.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "group"},
	)

	producerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_producer_published_total",
			Help: "Events published.",
		},
		[]string{"topic"},
	)

	producerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_producer_errors_total",
			Help: "Publish failures.",
		},
		[]string{"topic"},
	)
)
