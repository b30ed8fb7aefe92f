package domain

import (
	"regexp"
	"strings"
)

// CardBrand identifies a card network by the leading digits of the PAN.
type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandElo        CardBrand = "elo"
	BrandHipercard  CardBrand = "hipercard"
	BrandDiners     CardBrand = "diners"
	BrandDiscover   CardBrand = "discover"
	BrandJCB        CardBrand = "jcb"
	BrandMaestro    CardBrand = "maestro"
	BrandAura       CardBrand = "aura"
	BrandUnknown    CardBrand = "unknown"
)

type brandPattern struct {
	brand   CardBrand
	pattern *regexp.Regexp
}

// brandPatterns is evaluated top to bottom and the first match wins.
// Narrow prefixes (Elo, Hipercard, Aura, Maestro) come before the broad
// network ranges they overlap with, and the bare "4" of Visa comes last.
var brandPatterns = []brandPattern{
	{BrandElo, regexp.MustCompile(`^(4011|4312|438935|451416|457393|457631|504175|5067|5090|627780|636297|636368)`)},
	{BrandHipercard, regexp.MustCompile(`^(606282|384100|384140|384160)`)},
	{BrandAura, regexp.MustCompile(`^50(42|43)`)},
	{BrandMaestro, regexp.MustCompile(`^(5018|5020|5038|6304|6759|676[1-3])`)},
	{BrandAmex, regexp.MustCompile(`^3[47]`)},
	{BrandJCB, regexp.MustCompile(`^35(?:2[89]|[3-8]\d)`)},
	{BrandDiners, regexp.MustCompile(`^3(?:0[0-5]|[68])`)},
	{BrandDiscover, regexp.MustCompile(`^(6011|65|64[4-9])`)},
	{BrandMastercard, regexp.MustCompile(`^(5[1-5]|2(2[2-9]|[3-6]\d|7[01]|720))`)},
	{BrandVisa, regexp.MustCompile(`^4`)},
}

// DetectBrand maps a digits-only card number to its brand. Empty or
// unrecognised input yields BrandUnknown.
func DetectBrand(digits string) CardBrand {
	if digits == "" {
		return BrandUnknown
	}
	for _, bp := range brandPatterns {
		if bp.pattern.MatchString(digits) {
			return bp.brand
		}
	}
	return BrandUnknown
}

// DetectBrandFromInput strips separators from user-typed input before
// detection.
func DetectBrandFromInput(raw string) CardBrand {
	return DetectBrand(DigitsOnly(raw))
}

// DigitsOnly drops every non-digit rune.
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastFour returns the trailing four digits, or all of them if shorter.
func LastFour(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// CVCLength is 4 for Amex and 3 for every other brand.
func CVCLength(brand CardBrand) int {
	if brand == BrandAmex {
		return 4
	}
	return 3
}

// AllBrands lists every known brand followed by BrandUnknown.
func AllBrands() []CardBrand {
	return []CardBrand{
		BrandVisa, BrandMastercard, BrandAmex, BrandElo, BrandHipercard,
		BrandDiners, BrandDiscover, BrandJCB, BrandMaestro, BrandAura, BrandUnknown,
	}
}

// ParseCardBrand normalises s and returns BrandUnknown for anything that
// is not a known brand.
func ParseCardBrand(s string) CardBrand {
	b := CardBrand(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllBrands() {
		if b == known {
			return b
		}
	}
	return BrandUnknown
}
