package domain

import "github.com/shopspring/decimal"

// Dimensions are the physical measures the shipping quote needs.
type Dimensions struct {
	WeightKg decimal.Decimal `json:"weight_kg"`
	HeightCm decimal.Decimal `json:"height_cm"`
	WidthCm  decimal.Decimal `json:"width_cm"`
	LengthCm decimal.Decimal `json:"length_cm"`
}

// CartItem is a cart line. Price is the unit price captured when the item
// was added.
type CartItem struct {
	ProductID  string          `json:"product_id"`
	VariantID  string          `json:"variant_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	SKU        string          `json:"sku,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Dimensions *Dimensions     `json:"dimensions,omitempty"`
}

// LineTotal is price × quantity, with negative inputs read as zero.
func (i CartItem) LineTotal() decimal.Decimal {
	if i.Quantity <= 0 {
		return decimal.Zero
	}
	return RoundMoney(NonNegative(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// Cart is the snapshot fetched from the store API.
type Cart struct {
	ID           string          `json:"id,omitempty"`
	Items        []CartItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

// ItemsTotal sums the line totals. A nil cart totals zero.
func (c *Cart) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return RoundMoney(total)
}

// ShippingQuote is one shipping option for the destination zip code.
type ShippingQuote struct {
	ID            string          `json:"id"`
	Carrier       string          `json:"carrier"`
	Service       string          `json:"service"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
}

// OrderTotals is the aggregator's output.
type OrderTotals struct {
	ItemsTotal            decimal.Decimal `json:"items_total"`
	ProductDiscount       decimal.Decimal `json:"product_discount"`
	ShippingPrice         decimal.Decimal `json:"shipping_price"`
	ShippingDiscount      decimal.Decimal `json:"shipping_discount"`
	PayableBase           decimal.Decimal `json:"payable_base"`
	Installments          int             `json:"installments"`
	PerInstallment        decimal.Decimal `json:"per_installment"`
	TotalWithInstallments decimal.Decimal `json:"total_with_installments"`
}

// ComputeOrderTotals combines the cart, the selected shipping price, the
// promotion result and the chosen installment option. Each derived amount
// is rounded to cents as it is produced. Without an installment option
// (non-card payments) the total is the payable base paid at once.
func ComputeOrderTotals(cart *Cart, shippingPrice decimal.Decimal, promotions *PromotionResult, selected *InstallmentOption) OrderTotals {
	items := cart.ItemsTotal()
	productDiscount, shippingDiscount := promotions.Discounts()
	shipping := RoundMoney(NonNegative(shippingPrice))

	payable := RoundMoney(items.Sub(productDiscount).Add(shipping).Sub(shippingDiscount))
	payable = NonNegative(payable)

	totals := OrderTotals{
		ItemsTotal:            items,
		ProductDiscount:       productDiscount,
		ShippingPrice:         shipping,
		ShippingDiscount:      shippingDiscount,
		PayableBase:           payable,
		Installments:          1,
		PerInstallment:        payable,
		TotalWithInstallments: payable,
	}
	if selected != nil && selected.N >= 1 {
		totals.Installments = selected.N
		totals.PerInstallment = selected.PerInstallment
		totals.TotalWithInstallments = selected.Total()
	}
	return totals
}
