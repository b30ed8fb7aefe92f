package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront-checkout"

// RouterConfig carries what the router mounts.
type RouterConfig struct {
	Checkout        CheckoutService
	Payments        PaymentService
	Catalog         CatalogService
	Health          *health.Handler
	Logger          *slog.Logger
	CORSOrigins     []string
	PprofCIDRs      []string
	CatalogCacheAge int
}

// NewRouter creates a chi router with every storefront route registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	checkout := NewCheckoutHandler(cfg.Checkout, cfg.Logger)
	payments := NewPaymentHandler(cfg.Payments, cfg.Logger)
	catalog := NewCatalogHandler(cfg.Catalog, cfg.Logger)

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Post("/", checkout.StartCheckout)
		r.Get("/{id}", checkout.GetCheckout)
		r.Put("/{id}/shipping-address", checkout.SetShippingAddress)
		r.Put("/{id}/shipping", checkout.SelectShipping)
		r.Post("/{id}/coupon", checkout.ApplyCoupon)
		r.Delete("/{id}/coupon", checkout.RemoveCoupon)
		r.Put("/{id}/payment", checkout.SetPayment)
		r.Post("/{id}/place", checkout.PlaceOrder)
		r.Post("/{id}/cancel", checkout.CancelCheckout)
	})

	r.With(middleware.NoStore).Post("/api/v1/payments/installments", payments.QuoteInstallments)

	r.Route("/api/v1/products/{id}", func(r chi.Router) {
		r.Use(middleware.CacheControl(cfg.CatalogCacheAge))

		r.Get("/options", catalog.GetOptions)
		r.Post("/selection", catalog.SelectAttribute)
	})

	return r
}
