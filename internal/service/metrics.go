package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_transitions_total",
			Help: "Checkout sessions reaching a lifecycle status.",
		},
		[]string{"status"},
	)

	checkoutOrderValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_checkout_order_value_brl",
			Help:    "Payable base of placed orders in BRL.",
			Buckets: []float64{25, 50, 100, 200, 500, 1000, 2500, 5000},
		},
	)

	cacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_requests_total",
			Help: "Cache lookups by cache and result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)
)

const (
	cacheInstallments = "installments"
	cacheCatalog      = "catalog"
)
