package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestPromotionResult_Discounts(t *testing.T) {
	flat := []PromotionDetail{
		{ID: "frete10", Type: PromotionShipping, Discount: dec("5")},
		{ID: "camisa", Type: PromotionProduct, Discount: dec("7.5")},
		{ID: "kit", Type: "bundle", Discount: dec("2.5")},
	}

	tests := []struct {
		name         string
		result       *PromotionResult
		wantProduct  string
		wantShipping string
	}{
		{"nil result", nil, "0.00", "0.00"},
		{"empty result", &PromotionResult{}, "0.00", "0.00"},
		{"derived from flat list", &PromotionResult{Promotions: flat}, "10.00", "5.00"},
		{
			"explicit split wins over the list",
			&PromotionResult{Promotions: flat, ProductDiscount: ptr("1"), ShippingDiscount: ptr("2")},
			"1.00", "2.00",
		},
		{
			"explicit total minus derived shipping",
			&PromotionResult{Promotions: flat, TotalDiscount: ptr("20")},
			"15.00", "5.00",
		},
		{
			"explicit total minus explicit shipping",
			&PromotionResult{TotalDiscount: ptr("12"), ShippingDiscount: ptr("4.5")},
			"7.50", "4.50",
		},
		{
			"negative values clamp to zero",
			&PromotionResult{ProductDiscount: ptr("-3"), ShippingDiscount: ptr("-1")},
			"0.00", "0.00",
		},
		{
			"negative promotion entries are ignored",
			&PromotionResult{Promotions: []PromotionDetail{{Type: PromotionProduct, Discount: dec("-9")}}},
			"0.00", "0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, shipping := tt.result.Discounts()
			assertMoney(t, tt.wantProduct, product)
			assertMoney(t, tt.wantShipping, shipping)
		})
	}
}
