package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// CheckoutService is the checkout flow the handler drives.
type CheckoutService interface {
	StartCheckout(ctx context.Context, userID, cartID string) (*domain.CheckoutSession, error)
	GetCheckout(ctx context.Context, id string) (*domain.CheckoutSession, error)
	InstallmentPlan(session *domain.CheckoutSession) []domain.InstallmentOption
	SetShippingAddress(ctx context.Context, id string, address *domain.Address) (*domain.CheckoutSession, error)
	SelectShipping(ctx context.Context, id, quoteID string) (*domain.CheckoutSession, error)
	ApplyCoupon(ctx context.Context, id, code string) (*domain.CheckoutSession, error)
	RemoveCoupon(ctx context.Context, id string) (*domain.CheckoutSession, error)
	SetPayment(ctx context.Context, id string, in service.PaymentInput) (*domain.CheckoutSession, error)
	PlaceOrder(ctx context.Context, id string) (*domain.CheckoutSession, error)
	CancelCheckout(ctx context.Context, id string) (*domain.CheckoutSession, error)
}

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// StartCheckoutRequest is the body of POST /api/v1/checkout.
type StartCheckoutRequest struct {
	CartID string `json:"cart_id" validate:"required"`
}

// AddressRequest is the body of PUT /api/v1/checkout/{id}/shipping-address.
type AddressRequest struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required,len=2"`
	ZipCode    string `json:"zip_code" validate:"required,cep"`
}

// SelectShippingRequest is the body of PUT /api/v1/checkout/{id}/shipping.
type SelectShippingRequest struct {
	QuoteID string `json:"quote_id" validate:"required"`
}

// CouponRequest is the body of POST /api/v1/checkout/{id}/coupon.
type CouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// CheckoutResponse is a session plus, for card payments, the plan the
// shopper can pick installments from.
type CheckoutResponse struct {
	*domain.CheckoutSession
	InstallmentPlan []domain.InstallmentOption `json:"installment_plan,omitempty"`
}

// --- Handlers ---

// StartCheckout handles POST /api/v1/checkout.
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req StartCheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.service.StartCheckout(r.Context(), userID, req.CartID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeSession(w, http.StatusCreated, session)
}

// GetCheckout handles GET /api/v1/checkout/{id}.
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	session, ok := h.owned(w, r)
	if !ok {
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// SetShippingAddress handles PUT /api/v1/checkout/{id}/shipping-address.
func (h *CheckoutHandler) SetShippingAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decode(w, r, &req) {
		return
	}

	h.mutate(w, r, func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
		return h.service.SetShippingAddress(ctx, id, &domain.Address{
			FullName:   req.FullName,
			Street:     req.Street,
			Number:     req.Number,
			Complement: req.Complement,
			District:   req.District,
			City:       req.City,
			State:      req.State,
			ZipCode:    req.ZipCode,
		})
	})
}

// SelectShipping handles PUT /api/v1/checkout/{id}/shipping.
func (h *CheckoutHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var req SelectShippingRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
		return h.service.SelectShipping(ctx, id, req.QuoteID)
	})
}

// ApplyCoupon handles POST /api/v1/checkout/{id}/coupon.
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
		return h.service.ApplyCoupon(ctx, id, req.Code)
	})
}

// RemoveCoupon handles DELETE /api/v1/checkout/{id}/coupon.
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.RemoveCoupon)
}

// SetPayment handles PUT /api/v1/checkout/{id}/payment.
func (h *CheckoutHandler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentInput
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, func(ctx context.Context, id string) (*domain.CheckoutSession, error) {
		return h.service.SetPayment(ctx, id, req)
	})
}

// PlaceOrder handles POST /api/v1/checkout/{id}/place.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.PlaceOrder)
}

// CancelCheckout handles POST /api/v1/checkout/{id}/cancel.
func (h *CheckoutHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.CancelCheckout)
}

// --- helpers ---

// mutate runs op on the caller's own session and writes the result.
func (h *CheckoutHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.CheckoutSession, error)) {
	current, ok := h.owned(w, r)
	if !ok {
		return
	}

	session, err := op(r.Context(), current.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// owned loads the session named in the path and checks it belongs to the
// caller.
func (h *CheckoutHandler) owned(w http.ResponseWriter, r *http.Request) (*domain.CheckoutSession, bool) {
	userID, ok := h.userID(w, r)
	if !ok {
		return nil, false
	}

	session, err := h.service.GetCheckout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return nil, false
	}
	if session.UserID != userID {
		httputil.WriteError(w, r, apperrors.Forbidden("checkout belongs to another user"), h.logger)
		return nil, false
	}
	return session, true
}

func (h *CheckoutHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(middleware.UserHeader)
	if userID == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized(middleware.UserHeader+" header is required"), h.logger)
		return "", false
	}
	return userID, true
}

func (h *CheckoutHandler) writeSession(w http.ResponseWriter, status int, session *domain.CheckoutSession) {
	httputil.WriteData(w, status, CheckoutResponse{
		CheckoutSession: session,
		InstallmentPlan: h.service.InstallmentPlan(session),
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
