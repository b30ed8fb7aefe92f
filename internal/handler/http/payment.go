package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// PaymentService quotes card installment plans.
type PaymentService interface {
	QuoteCard(ctx context.Context, cardNumber string, total decimal.Decimal) (*service.CardQuote, error)
}

// PaymentHandler serves installment quotes for the payment form.
type PaymentHandler struct {
	service PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: svc, logger: logger}
}

// QuoteInstallmentsRequest is the body of POST /api/v1/payments/installments.
// CardNumber may be partial; it is not stored or logged.
type QuoteInstallmentsRequest struct {
	CardNumber string          `json:"card_number" validate:"max=32"`
	Total      decimal.Decimal `json:"total" validate:"gte=0"`
}

// QuoteInstallments handles POST /api/v1/payments/installments.
func (h *PaymentHandler) QuoteInstallments(w http.ResponseWriter, r *http.Request) {
	var req QuoteInstallmentsRequest
	if !decode(w, r, &req) {
		return
	}

	quote, err := h.service.QuoteCard(r.Context(), req.CardNumber, req.Total)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, quote)
}
