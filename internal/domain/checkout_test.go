package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWithItems() *CheckoutSession {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &CheckoutSession{
		ID:     "chk-1",
		UserID: "user-1",
		Status: StatusInitiated,
		CartID: "cart-1",
		Items: []CartItem{
			{ProductID: "camiseta", Price: dec("49.90"), Quantity: 2},
			{ProductID: "meia", Price: dec("19.90"), Quantity: 1},
		},
		ShippingQuotes: []ShippingQuote{
			{ID: "sedex", Carrier: "correios", Price: dec("15")},
			{ID: "pac", Carrier: "correios", Price: dec("9.90")},
		},
		Currency:  CurrencyBRL,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCheckoutSession_IsExpired(t *testing.T) {
	s := sessionWithItems()
	assert.False(t, s.IsExpired(s.CreatedAt))
	assert.False(t, s.IsExpired(s.ExpiresAt))
	assert.True(t, s.IsExpired(s.ExpiresAt.Add(time.Second)))
}

func TestCheckoutSession_IsTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		StatusInitiated: false,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusExpired:   true,
	} {
		s := &CheckoutSession{Status: status}
		assert.Equal(t, want, s.IsTerminal(), status)
	}
}

func TestCheckoutSession_FindQuote(t *testing.T) {
	s := sessionWithItems()
	q, ok := s.FindQuote("pac")
	require.True(t, ok)
	assertMoney(t, "9.90", q.Price)

	_, ok = s.FindQuote("motoboy")
	assert.False(t, ok)
}

func TestCheckoutSession_RecalculateWithoutShippingOrPayment(t *testing.T) {
	s := sessionWithItems()
	s.Recalculate(NewInstallmentGenerator(nil))

	assertMoney(t, "119.70", s.Totals.ItemsTotal)
	assertMoney(t, "119.70", s.Totals.PayableBase)
	assertMoney(t, "119.70", s.Totals.TotalWithInstallments)
}

func TestCheckoutSession_RecalculateWithCardInstallments(t *testing.T) {
	s := sessionWithItems()
	quote, _ := s.FindQuote("sedex")
	s.SelectedShipping = &quote
	s.Payment = &PaymentSelection{Method: PaymentCreditCard, Brand: BrandMastercard, LastFour: "0004", Installments: 13}

	s.Recalculate(NewInstallmentGenerator(nil))

	assertMoney(t, "134.70", s.Totals.PayableBase)
	assert.Equal(t, 13, s.Totals.Installments)
	assertMoney(t, "11.86", s.Totals.PerInstallment)
	assertMoney(t, "154.18", s.Totals.TotalWithInstallments)
}

func TestCheckoutSession_RecalculateIgnoresInstallmentsForPix(t *testing.T) {
	s := sessionWithItems()
	s.Payment = &PaymentSelection{Method: PaymentPix, Installments: 5}
	s.Recalculate(NewInstallmentGenerator(nil))

	assert.Nil(t, s.PaymentPlan(NewInstallmentGenerator(nil)))
	assert.Equal(t, 1, s.Totals.Installments)
	assertMoney(t, "119.70", s.Totals.TotalWithInstallments)
}

func TestCheckoutSession_RecalculateIgnoresInstallmentsOutsidePlan(t *testing.T) {
	s := sessionWithItems()
	s.Payment = &PaymentSelection{Method: PaymentCreditCard, Brand: BrandUnknown, Installments: 18}
	s.Recalculate(NewInstallmentGenerator(nil))

	assert.Len(t, s.PaymentPlan(NewInstallmentGenerator(nil)), 12)
	assert.Equal(t, 1, s.Totals.Installments)
}

func TestIsValidPaymentMethod(t *testing.T) {
	assert.True(t, IsValidPaymentMethod(PaymentCreditCard))
	assert.True(t, IsValidPaymentMethod(PaymentPix))
	assert.True(t, IsValidPaymentMethod(PaymentBoleto))
	assert.False(t, IsValidPaymentMethod("cheque"))
	assert.Len(t, ValidStatuses(), 4)
}
