package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Checkout session statuses.
const (
	StatusInitiated = "initiated"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// Payment methods.
const (
	PaymentCreditCard = "credit_card"
	PaymentPix        = "pix"
	PaymentBoleto     = "boleto"
)

// Address is the delivery address. Only ZipCode drives pricing.
type Address struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// PaymentSelection is the shopper's payment choice. Card fields are empty
// for pix and boleto. The full card number is never kept.
type PaymentSelection struct {
	Method       string    `json:"method"`
	Brand        CardBrand `json:"brand,omitempty"`
	LastFour     string    `json:"last_four,omitempty"`
	Installments int       `json:"installments,omitempty"`
}

// IsCard reports whether the selection pays by credit card.
func (p *PaymentSelection) IsCard() bool {
	return p != nil && p.Method == PaymentCreditCard
}

// CheckoutSession is a shopper's in-progress checkout.
type CheckoutSession struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Status           string            `json:"status"`
	CartID           string            `json:"cart_id"`
	Items            []CartItem        `json:"items"`
	ShippingAddress  *Address          `json:"shipping_address,omitempty"`
	ShippingQuotes   []ShippingQuote   `json:"shipping_quotes,omitempty"`
	SelectedShipping *ShippingQuote    `json:"selected_shipping,omitempty"`
	CouponCode       string            `json:"coupon_code,omitempty"`
	CouponApplied    bool              `json:"coupon_applied"`
	Promotions       *PromotionResult  `json:"promotions,omitempty"`
	Payment          *PaymentSelection `json:"payment,omitempty"`
	Totals           OrderTotals       `json:"totals"`
	Currency         string            `json:"currency"`
	OrderID          string            `json:"order_id,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	ExpiresAt        time.Time         `json:"expires_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// IsExpired reports whether now is past the session's expiry.
func (s *CheckoutSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsTerminal returns true once the session can no longer change.
func (s *CheckoutSession) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed || s.Status == StatusExpired
}

// Cart rebuilds the cart snapshot the totals are computed from.
func (s *CheckoutSession) Cart() *Cart {
	return &Cart{ID: s.CartID, Items: s.Items}
}

// ShippingPrice is the selected quote's price, zero when none is selected.
func (s *CheckoutSession) ShippingPrice() decimal.Decimal {
	if s.SelectedShipping == nil {
		return decimal.Zero
	}
	return s.SelectedShipping.Price
}

// FindQuote looks up a shipping quote by id.
func (s *CheckoutSession) FindQuote(id string) (ShippingQuote, bool) {
	for _, q := range s.ShippingQuotes {
		if q.ID == id {
			return q, true
		}
	}
	return ShippingQuote{}, false
}

// PaymentPlan generates the installment plan for the session's current
// payable base and card brand. It is nil for non-card payments.
func (s *CheckoutSession) PaymentPlan(gen *InstallmentGenerator) []InstallmentOption {
	if !s.Payment.IsCard() {
		return nil
	}
	base := ComputeOrderTotals(s.Cart(), s.ShippingPrice(), s.Promotions, nil).PayableBase
	return gen.Generate(base, s.Payment.Brand)
}

// Recalculate refreshes Totals from the current items, shipping,
// promotions and payment. Call it after every change to any of them.
func (s *CheckoutSession) Recalculate(gen *InstallmentGenerator) {
	var selected *InstallmentOption
	if s.Payment.IsCard() && s.Payment.Installments > 0 {
		if opt, ok := FindInstallment(s.PaymentPlan(gen), s.Payment.Installments); ok {
			selected = &opt
		}
	}
	s.Totals = ComputeOrderTotals(s.Cart(), s.ShippingPrice(), s.Promotions, selected)
}

// ValidStatuses returns every checkout status.
func ValidStatuses() []string {
	return []string{StatusInitiated, StatusCompleted, StatusFailed, StatusExpired}
}

// IsValidPaymentMethod reports whether m is an accepted payment method.
func IsValidPaymentMethod(m string) bool {
	return m == PaymentCreditCard || m == PaymentPix || m == PaymentBoleto
}
