package domain

import "github.com/shopspring/decimal"

// PromotionType scopes a discount to products or to shipping.
type PromotionType string

const (
	PromotionProduct  PromotionType = "product"
	PromotionShipping PromotionType = "shipping"
)

// PromotionDetail is a discount the promotion engine decided to apply.
type PromotionDetail struct {
	ID       string          `json:"id"`
	Name     string          `json:"name,omitempty"`
	Type     PromotionType   `json:"type"`
	Discount decimal.Decimal `json:"discount"`
}

// SkippedPromotion explains why a promotion did not apply.
type SkippedPromotion struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PromotionResult is the promotion engine's answer for a cart. The engine
// may or may not report the product/shipping split explicitly.
type PromotionResult struct {
	Promotions       []PromotionDetail  `json:"promotions"`
	Skipped          []SkippedPromotion `json:"skipped,omitempty"`
	ProductDiscount  *decimal.Decimal   `json:"product_discount,omitempty"`
	ShippingDiscount *decimal.Decimal   `json:"shipping_discount,omitempty"`
	TotalDiscount    *decimal.Decimal   `json:"total_discount,omitempty"`
}

// Discounts splits the result into product and shipping discounts.
//
// Explicit numeric fields win. Without them the shipping discount is the
// sum of shipping-type promotions and the product discount is the total
// (explicit, or the sum of every promotion) minus the shipping discount.
// Both values are rounded to cents and never negative. A nil result has
// no discounts.
func (r *PromotionResult) Discounts() (product, shipping decimal.Decimal) {
	if r == nil {
		return decimal.Zero, decimal.Zero
	}

	if r.ShippingDiscount != nil {
		shipping = *r.ShippingDiscount
	} else {
		shipping = r.sum(func(p PromotionDetail) bool { return p.Type == PromotionShipping })
	}

	switch {
	case r.ProductDiscount != nil:
		product = *r.ProductDiscount
	case r.TotalDiscount != nil:
		product = r.TotalDiscount.Sub(shipping)
	default:
		product = r.sum(func(PromotionDetail) bool { return true }).Sub(shipping)
	}

	return RoundMoney(NonNegative(product)), RoundMoney(NonNegative(shipping))
}

func (r *PromotionResult) sum(keep func(PromotionDetail) bool) decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Promotions {
		if keep(p) {
			total = total.Add(NonNegative(p.Discount))
		}
	}
	return total
}
