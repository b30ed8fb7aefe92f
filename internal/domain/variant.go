package domain

import "github.com/shopspring/decimal"

// Attribute is one (key, value) pair distinguishing a variant, e.g.
// ("color", "azul").
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Variant is one purchasable SKU of a product.
type Variant struct {
	ID            string           `json:"id"`
	SKU           string           `json:"sku"`
	ListPrice     decimal.Decimal  `json:"price_of"`
	SalePrice     decimal.Decimal  `json:"price_per"`
	Stock         int              `json:"stock"`
	Attributes    []Attribute      `json:"attributes"`
	Images        []string         `json:"images,omitempty"`
	MainPromotion *PromotionDetail `json:"main_promotion,omitempty"`
}

// Attr returns the variant's value for key.
func (v Variant) Attr(key string) (string, bool) {
	for _, a := range v.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether the variant carries (key, value).
func (v Variant) HasAttribute(key, value string) bool {
	got, ok := v.Attr(key)
	return ok && got == value
}

// Selection is the variant's full attribute set as a selection.
func (v Variant) Selection() AttributeSelection {
	sel := make(AttributeSelection, len(v.Attributes))
	for _, a := range v.Attributes {
		sel[a.Key] = a.Value
	}
	return sel
}

// InStock reports whether at least one unit is available.
func (v Variant) InStock() bool {
	return v.Stock > 0
}

// Product is the catalog view needed for variant selection.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug,omitempty"`
	Variants []Variant `json:"variants"`
}

// Variant looks up a variant by id.
func (p *Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// OptionSet maps an attribute key to its values, in first-seen order.
type OptionSet map[string][]string

// Contains reports whether value is listed under key.
func (o OptionSet) Contains(key, value string) bool {
	for _, v := range o[key] {
		if v == value {
			return true
		}
	}
	return false
}

// AttributeSelection maps attribute keys to chosen values. It may be
// partial. Treat it as immutable: With returns a modified copy.
type AttributeSelection map[string]string

// With returns a copy of s with key set to value.
func (s AttributeSelection) With(key, value string) AttributeSelection {
	out := make(AttributeSelection, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[key] = value
	return out
}

// Matches reports whether v carries every pair in s.
func (s AttributeSelection) Matches(v Variant) bool {
	for k, want := range s {
		if !v.HasAttribute(k, want) {
			return false
		}
	}
	return true
}

// CollectOptions is the union of attribute values across variants.
func CollectOptions(variants []Variant) OptionSet {
	all := make(OptionSet)
	for _, v := range variants {
		for _, a := range v.Attributes {
			if !all.Contains(a.Key, a.Value) {
				all[a.Key] = append(all[a.Key], a.Value)
			}
		}
	}
	return all
}

// ResolveAvailableOptions returns, for every key in all, the values that
// some variant still offers given the other selected keys. A key's own
// current selection never restricts its alternatives.
func ResolveAvailableOptions(all OptionSet, selected AttributeSelection, variants []Variant) OptionSet {
	available := make(OptionSet, len(all))
	for key, values := range all {
		reachable := make([]string, 0, len(values))
		for _, value := range values {
			if valueReachable(key, value, selected, variants) {
				reachable = append(reachable, value)
			}
		}
		available[key] = reachable
	}
	return available
}

func valueReachable(key, value string, selected AttributeSelection, variants []Variant) bool {
	for _, v := range variants {
		if !v.HasAttribute(key, value) {
			continue
		}
		compatible := true
		for k, want := range selected {
			if k == key {
				continue
			}
			if !v.HasAttribute(k, want) {
				compatible = false
				break
			}
		}
		if compatible {
			return true
		}
	}
	return false
}

// MatchVariants returns the variants consistent with every key in sel.
func MatchVariants(sel AttributeSelection, variants []Variant) []Variant {
	var out []Variant
	for _, v := range variants {
		if sel.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// SelectionState is the product-detail selection: chosen attributes, the
// resolved variant (if any), quantity and gallery position.
type SelectionState struct {
	Selection  AttributeSelection `json:"selection"`
	Variant    *Variant           `json:"variant,omitempty"`
	Quantity   int                `json:"quantity"`
	ImageIndex int                `json:"image_index"`
}

// NewSelectionState starts on the first in-stock variant, or the first
// variant when none has stock. A product without variants starts empty.
func NewSelectionState(variants []Variant) SelectionState {
	if len(variants) == 0 {
		return SelectionState{Selection: AttributeSelection{}, Quantity: 1}
	}
	chosen := variants[0]
	for _, v := range variants {
		if v.InStock() {
			chosen = v
			break
		}
	}
	return SelectionState{Selection: chosen.Selection(), Variant: &chosen, Quantity: 1}
}

// SelectAttribute applies a shopper's click on (key, value).
//
// A value that is not currently available is ignored and state is
// returned unchanged. Otherwise the pair is merged into the selection; if
// exactly one variant matches, the selection becomes that variant's full
// attribute set and quantity and image index reset. With zero or several
// matches only the partial selection changes.
func SelectAttribute(key, value string, state SelectionState, all OptionSet, variants []Variant) SelectionState {
	available := ResolveAvailableOptions(all, state.Selection, variants)
	if !available.Contains(key, value) {
		return state
	}

	tentative := state.Selection.With(key, value)
	matches := MatchVariants(tentative, variants)
	if len(matches) == 1 {
		v := matches[0]
		return SelectionState{
			Selection:  v.Selection(),
			Variant:    &v,
			Quantity:   1,
			ImageIndex: 0,
		}
	}

	return SelectionState{
		Selection:  tentative,
		Variant:    state.Variant,
		Quantity:   state.Quantity,
		ImageIndex: state.ImageIndex,
	}
}
