package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/storeapi"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// expiryBatchSize caps how many sessions one sweep expires.
const expiryBatchSize = 100

// StoreAPI is the part of the remote store the checkout flow talks to.
type StoreAPI interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	QuoteShipping(ctx context.Context, zipCode string, items []domain.CartItem) ([]domain.ShippingQuote, error)
	EvaluatePromotions(ctx context.Context, q storeapi.PromotionQuery) (*domain.PromotionResult, error)
	ValidateCoupon(ctx context.Context, code string, cartTotal decimal.Decimal) (*storeapi.CouponValidation, error)
	SubmitOrder(ctx context.Context, order storeapi.OrderPayload) (*storeapi.OrderConfirmation, error)
}

// EventPublisher emits checkout lifecycle events.
type EventPublisher interface {
	PublishCheckoutInitiated(ctx context.Context, s *domain.CheckoutSession) error
	PublishCheckoutCompleted(ctx context.Context, s *domain.CheckoutSession) error
	PublishCheckoutFailed(ctx context.Context, s *domain.CheckoutSession) error
	PublishCheckoutAbandoned(ctx context.Context, s *domain.CheckoutSession) error
}

// PaymentInput is the shopper's payment choice. CardNumber and
// Installments only apply to credit cards; Installments defaults to 1.
type PaymentInput struct {
	Method       string `json:"method" validate:"required,oneof=credit_card pix boleto"`
	CardNumber   string `json:"card_number,omitempty"`
	Installments int    `json:"installments,omitempty" validate:"omitempty,min=1,max=21"`
}

// CheckoutService runs the checkout flow on top of the pricing core.
type CheckoutService struct {
	repo   repository.CheckoutRepository
	store  StoreAPI
	events EventPublisher
	gen    *domain.InstallmentGenerator
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCheckoutService creates a checkout service. Sessions expire ttl after
// their last change.
func NewCheckoutService(
	repo repository.CheckoutRepository,
	store StoreAPI,
	events EventPublisher,
	gen *domain.InstallmentGenerator,
	ttl time.Duration,
	logger *slog.Logger,
) *CheckoutService {
	if gen == nil {
		gen = domain.NewInstallmentGenerator(nil)
	}
	return &CheckoutService{
		repo:   repo,
		store:  store,
		events: events,
		gen:    gen,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// StartCheckout snapshots a cart into a new checkout session.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID, cartID string) (*domain.CheckoutSession, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if cartID == "" {
		return nil, apperrors.InvalidInput("cart_id is required")
	}

	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	now := s.now()
	session := &domain.CheckoutSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.StatusInitiated,
		CartID:    cart.ID,
		Items:     cart.Items,
		Currency:  domain.CurrencyBRL,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.CartID == "" {
		session.CartID = cartID
	}

	s.refreshPromotions(ctx, session)
	session.Recalculate(s.gen)

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	checkoutTransitions.WithLabelValues(domain.StatusInitiated).Inc()

	if err := s.events.PublishCheckoutInitiated(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.initiated event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout session started",
		slog.String("checkout_id", session.ID),
		slog.String("user_id", userID),
		slog.String("cart_id", session.CartID),
		slog.String("payable_base", session.Totals.PayableBase.StringFixed(2)),
	)
	return session, nil
}

// GetCheckout retrieves a checkout session by id.
func (s *CheckoutService) GetCheckout(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return session, nil
}

// InstallmentPlan is the plan the session's card payment can choose from,
// nil for other payment methods.
func (s *CheckoutService) InstallmentPlan(session *domain.CheckoutSession) []domain.InstallmentOption {
	return session.PaymentPlan(s.gen)
}

// SetShippingAddress stores the delivery address, fetches fresh shipping
// quotes for its zip code and drops any previously selected quote.
func (s *CheckoutService) SetShippingAddress(ctx context.Context, id string, address *domain.Address) (*domain.CheckoutSession, error) {
	if address == nil || strings.TrimSpace(address.ZipCode) == "" {
		return nil, apperrors.InvalidInput("shipping address with zip_code is required")
	}

	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	quotes, err := s.store.QuoteShipping(ctx, address.ZipCode, session.Items)
	if err != nil {
		return nil, fmt.Errorf("quote shipping: %w", err)
	}
	if len(quotes) == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("no shipping available for zip code %s", address.ZipCode))
	}

	session.ShippingAddress = address
	session.ShippingQuotes = quotes
	session.SelectedShipping = nil

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping address set",
		slog.String("checkout_id", session.ID),
		slog.String("zip_code", address.ZipCode),
		slog.Int("quotes", len(quotes)),
	)
	return session, nil
}

// SelectShipping picks one of the session's shipping quotes.
func (s *CheckoutService) SelectShipping(ctx context.Context, id, quoteID string) (*domain.CheckoutSession, error) {
	if quoteID == "" {
		return nil, apperrors.InvalidInput("quote_id is required")
	}

	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ShippingAddress == nil {
		return nil, apperrors.InvalidInput("shipping address must be set before selecting shipping")
	}

	quote, ok := session.FindQuote(quoteID)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown shipping quote %s", quoteID))
	}
	session.SelectedShipping = &quote

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping selected",
		slog.String("checkout_id", session.ID),
		slog.String("quote_id", quote.ID),
		slog.String("shipping_price", quote.Price.StringFixed(2)),
	)
	return session, nil
}

// ApplyCoupon validates a coupon upstream and marks it applied. The
// discount itself arrives through the promotion result.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, id, code string) (*domain.CheckoutSession, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	verdict, err := s.store.ValidateCoupon(ctx, code, session.Cart().ItemsTotal())
	if err != nil {
		return nil, fmt.Errorf("validate coupon: %w", err)
	}
	if !verdict.Valid {
		msg := verdict.Message
		if msg == "" {
			msg = fmt.Sprintf("coupon %s is not valid for this cart", code)
		}
		return nil, apperrors.InvalidInput(msg)
	}

	session.CouponCode = code
	session.CouponApplied = true

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon applied",
		slog.String("checkout_id", session.ID),
		slog.String("coupon_code", code),
		slog.String("product_discount", session.Totals.ProductDiscount.StringFixed(2)),
	)
	return session, nil
}

// RemoveCoupon clears the coupon and its discounts.
func (s *CheckoutService) RemoveCoupon(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	session.CouponCode = ""
	session.CouponApplied = false

	// The previous result still carries the removed coupon's discount.
	if !s.refreshPromotions(ctx, session) {
		session.Promotions = nil
	}
	session.Recalculate(s.gen)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "coupon removed", slog.String("checkout_id", session.ID))
	return session, nil
}

// SetPayment records the payment method. For cards the brand is detected
// from the number, only the last four digits are kept and the installment
// count must be one the brand's plan offers.
func (s *CheckoutService) SetPayment(ctx context.Context, id string, in PaymentInput) (*domain.CheckoutSession, error) {
	if !domain.IsValidPaymentMethod(in.Method) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported payment method %q", in.Method))
	}

	payment := &domain.PaymentSelection{Method: in.Method}
	if in.Method == domain.PaymentCreditCard {
		digits := domain.DigitsOnly(in.CardNumber)
		if len(digits) < 12 || len(digits) > 19 {
			return nil, apperrors.InvalidInput("card_number must have between 12 and 19 digits")
		}
		payment.Brand = domain.DetectBrand(digits)
		payment.LastFour = domain.LastFour(digits)
		payment.Installments = in.Installments
		if payment.Installments == 0 {
			payment.Installments = 1
		}
	}

	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Payment = payment

	// Promotions may depend on the payment method, so the plan is checked
	// against the refreshed payable base.
	s.refreshPromotions(ctx, session)
	if err := s.checkInstallments(session); err != nil {
		return nil, err
	}
	session.Recalculate(s.gen)

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment set",
		slog.String("checkout_id", session.ID),
		slog.String("method", payment.Method),
		slog.String("brand", string(payment.Brand)),
		slog.Int("installments", payment.Installments),
	)
	return session, nil
}

// PlaceOrder submits the order upstream with freshly evaluated promotions
// and totals. An upstream rejection fails the session; an unreachable
// upstream leaves it open so the shopper can retry.
func (s *CheckoutService) PlaceOrder(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case session.ShippingAddress == nil:
		return nil, apperrors.InvalidInput("shipping address must be set before placing the order")
	case session.SelectedShipping == nil:
		return nil, apperrors.InvalidInput("shipping must be selected before placing the order")
	case session.Payment == nil:
		return nil, apperrors.InvalidInput("payment must be set before placing the order")
	}

	promotions, err := s.store.EvaluatePromotions(ctx, promotionQuery(session))
	if err != nil {
		return nil, fmt.Errorf("evaluate promotions: %w", err)
	}
	session.Promotions = promotions
	// The policy table may have changed since the count was chosen.
	if err := s.checkInstallments(session); err != nil {
		return nil, err
	}
	session.Recalculate(s.gen)

	payload := storeapi.OrderPayload{
		CheckoutID:      session.ID,
		UserID:          session.UserID,
		CartID:          session.CartID,
		Items:           session.Items,
		ShippingAddress: session.ShippingAddress,
		ShippingQuoteID: session.SelectedShipping.ID,
		Payment:         session.Payment,
		Totals:          session.Totals,
		Currency:        session.Currency,
	}
	if session.CouponApplied {
		payload.CouponCode = session.CouponCode
	}

	confirmation, err := s.store.SubmitOrder(ctx, payload)
	if err != nil {
		if !orderRejected(err) {
			return nil, fmt.Errorf("submit order: %w", err)
		}
		session.Status = domain.StatusFailed
		session.FailureReason = err.Error()
		if uerr := s.repo.Update(ctx, session); uerr != nil {
			return nil, fmt.Errorf("update rejected checkout session: %w", uerr)
		}
		checkoutTransitions.WithLabelValues(domain.StatusFailed).Inc()
		s.publishFailed(ctx, session)
		s.logger.WarnContext(ctx, "order rejected by store",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("submit order: %w", err)
	}

	session.OrderID = confirmation.OrderID
	session.Status = domain.StatusCompleted
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update completed checkout session: %w", err)
	}
	checkoutTransitions.WithLabelValues(domain.StatusCompleted).Inc()
	checkoutOrderValue.Observe(session.Totals.PayableBase.InexactFloat64())

	if err := s.events.PublishCheckoutCompleted(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.completed event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("checkout_id", session.ID),
		slog.String("order_id", session.OrderID),
		slog.String("payable_base", session.Totals.PayableBase.StringFixed(2)),
		slog.String("total_with_installments", session.Totals.TotalWithInstallments.StringFixed(2)),
		slog.Int("installments", session.Totals.Installments),
	)
	return session, nil
}

// CancelCheckout abandons a session at the shopper's request.
func (s *CheckoutService) CancelCheckout(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.loadMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	session.Status = domain.StatusFailed
	session.FailureReason = "cancelled by shopper"
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update cancelled checkout session: %w", err)
	}
	checkoutTransitions.WithLabelValues(domain.StatusFailed).Inc()
	s.publishFailed(ctx, session)

	s.logger.InfoContext(ctx, "checkout cancelled", slog.String("checkout_id", session.ID))
	return session, nil
}

// ExpireStale marks open sessions whose expiry is before now as expired and
// announces each as abandoned. It returns how many sessions it expired.
func (s *CheckoutService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	sessions, err := s.repo.ListExpired(ctx, now, expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	expired := 0
	for i := range sessions {
		session := &sessions[i]
		if err := s.expire(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "failed to expire checkout session",
				slog.String("checkout_id", session.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// RunExpirySweeper calls ExpireStale every interval until ctx is done.
func (s *CheckoutService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireStale(ctx, s.now())
			if err != nil {
				s.logger.ErrorContext(ctx, "checkout expiry sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.InfoContext(ctx, "expired stale checkout sessions", slog.Int("expired", n))
			}
		}
	}
}

// loadMutable fetches a session that may still change. Terminal sessions
// are a conflict; sessions past expiry are expired on the spot and
// reported as gone.
func (s *CheckoutService) loadMutable(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	session, err := s.GetCheckout(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		if session.Status == domain.StatusExpired {
			return nil, apperrors.Gone("checkout session has expired")
		}
		return nil, apperrors.Conflict(fmt.Sprintf("checkout is already %s", session.Status))
	}
	if session.IsExpired(s.now()) {
		if err := s.expire(ctx, session); err != nil {
			return nil, err
		}
		return nil, apperrors.Gone("checkout session has expired")
	}
	return session, nil
}

func (s *CheckoutService) expire(ctx context.Context, session *domain.CheckoutSession) error {
	session.Status = domain.StatusExpired
	if err := s.repo.Update(ctx, session); err != nil {
		return fmt.Errorf("update expired checkout session: %w", err)
	}
	checkoutTransitions.WithLabelValues(domain.StatusExpired).Inc()

	if err := s.events.PublishCheckoutAbandoned(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.abandoned event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// save refreshes promotions, recomputes totals and persists.
func (s *CheckoutService) save(ctx context.Context, session *domain.CheckoutSession) error {
	s.refreshPromotions(ctx, session)
	session.Recalculate(s.gen)
	return s.persist(ctx, session)
}

// persist writes the session and slides its expiry forward.
func (s *CheckoutService) persist(ctx context.Context, session *domain.CheckoutSession) error {
	session.ExpiresAt = s.now().Add(s.ttl)
	if err := s.repo.Update(ctx, session); err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	return nil
}

// refreshPromotions re-evaluates promotions for the session's current
// state and reports whether it succeeded. When the promotion engine is
// unreachable the last result is kept.
func (s *CheckoutService) refreshPromotions(ctx context.Context, session *domain.CheckoutSession) bool {
	result, err := s.store.EvaluatePromotions(ctx, promotionQuery(session))
	if err != nil {
		s.logger.WarnContext(ctx, "promotion evaluation failed, keeping previous result",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	session.Promotions = result
	return true
}

// checkInstallments rejects a card count outside the plan for the
// session's current payable base.
func (s *CheckoutService) checkInstallments(session *domain.CheckoutSession) error {
	if session.Payment == nil || !session.Payment.IsCard() {
		return nil
	}
	plan := session.PaymentPlan(s.gen)
	if _, ok := domain.FindInstallment(plan, session.Payment.Installments); !ok {
		return apperrors.InvalidInput(fmt.Sprintf(
			"%s cards allow between 1 and %d installments", session.Payment.Brand, len(plan)))
	}
	return nil
}

func (s *CheckoutService) publishFailed(ctx context.Context, session *domain.CheckoutSession) {
	if err := s.events.PublishCheckoutFailed(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.failed event",
			slog.String("checkout_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

func promotionQuery(session *domain.CheckoutSession) storeapi.PromotionQuery {
	q := storeapi.PromotionQuery{
		CartID:        session.CartID,
		Items:         session.Items,
		ShippingPrice: session.ShippingPrice(),
	}
	if session.ShippingAddress != nil {
		q.ZipCode = session.ShippingAddress.ZipCode
	}
	if session.CouponApplied {
		q.CouponCode = session.CouponCode
	}
	if session.Payment != nil {
		q.PaymentMethod = session.Payment.Method
	}
	return q
}

// orderRejected reports whether the store refused the order itself, as
// opposed to being unreachable.
func orderRejected(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return httpclient.IsClientError(appErr.Status)
}
