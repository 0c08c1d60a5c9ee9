// Package pricing applies automatic promotions and promo codes to cart lines
// and assembles the quote shown in the cart and charged at checkout.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/shipping"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// Scope decides which lines a discount reaches.
type Scope string

const (
	ScopeGlobal     Scope = "global"
	ScopeCategories Scope = "categories"
)

// Discount sources recorded on priced lines.
const (
	SourcePromotion = "promotion"
	SourceCode      = "code"
)

// Promotion is an automatically applied percent-off discount.
type Promotion struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PercentOff    int      `json:"percentOff"`
	Scope         Scope    `json:"scope"`
	CategorySlugs []string `json:"categorySlugs,omitempty"`
}

// PromoCode is a customer-entered code with its own discount and/or free
// shipping.
type PromoCode struct {
	Code               string   `json:"code"`
	PercentOffOverride *int     `json:"percentOffOverride,omitempty"`
	Scope              Scope    `json:"scope"`
	CategorySlugs      []string `json:"categorySlugs,omitempty"`
	FreeShipping       bool     `json:"freeShippingApplied"`
}

// Line is one cart line before discounts.
type Line struct {
	ProductID      string   `json:"productId"`
	Name           string   `json:"name"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents Money    `json:"unitPriceCents"`
	Category       string   `json:"category,omitempty"`
	Categories     []string `json:"categories,omitempty"`
}

// PricedLine is a line after discounts. The embedded Line keeps the list
// price.
type PricedLine struct {
	Line
	AppliedPercent      int    `json:"appliedPercent"`
	ListUnitPriceCents  Money  `json:"listUnitPriceCents"`
	DiscountedUnitCents Money  `json:"discountedUnitPriceCents"`
	LineTotalCents      Money  `json:"lineTotalCents"`
	DiscountSource      string `json:"discountSource,omitempty"`
}

// Quote aggregates priced lines and shipping.
type Quote struct {
	Lines                 []PricedLine `json:"lines"`
	SubtotalCents         Money        `json:"subtotalCents"`
	ShippingCents         Money        `json:"shippingCents"`
	ResolvedShippingCents Money        `json:"resolvedShippingCents"`
	ShippingSource        string       `json:"shippingSource"`
	FreeShippingApplied   bool         `json:"freeShippingApplied"`
	TotalCents            Money        `json:"totalCents"`
	Promotion             *Promotion   `json:"promotion,omitempty"`
	Code                  *PromoCode   `json:"promoCode,omitempty"`
}

// CategoryKeys returns the normalized primary and secondary category labels
// of a line.
func CategoryKeys(line Line) []string {
	labels := shipping.Labels(line.Category, line.Categories)
	keys := make([]string, 0, len(labels))
	for _, label := range labels {
		if key := catalog.NormalizeKey(label); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Eligible reports whether a discount with the given scope reaches a line
// with the given category keys. Unknown scopes reach nothing.
func Eligible(scope Scope, slugs []string, keys []string) bool {
	switch scope {
	case ScopeGlobal:
		return true
	case ScopeCategories:
	default:
		return false
	}
	for _, slug := range slugs {
		want := catalog.NormalizeKey(slug)
		if want == "" {
			continue
		}
		for _, key := range keys {
			if key == want {
				return true
			}
		}
	}
	return false
}

// DiscountedUnitCents applies percent off to a unit price, rounding half up
// on the exact decimal result. The result is never negative.
func DiscountedUnitCents(unit Money, percent int) Money {
	if unit <= 0 {
		return 0
	}
	percent = clampPercent(percent)
	v := decimal.NewFromInt(unit).
		Mul(decimal.NewFromInt(int64(100 - percent))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	if v < 0 {
		return 0
	}
	return v
}

// PriceLine applies the best eligible discount to a line. A promo code and
// the automatic promotion never stack; the larger percent wins.
func PriceLine(line Line, promo *Promotion, code *PromoCode) PricedLine {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	keys := CategoryKeys(line)

	applied, source := 0, ""
	if promo != nil && Eligible(promo.Scope, promo.CategorySlugs, keys) {
		if p := clampPercent(promo.PercentOff); p > applied {
			applied, source = p, SourcePromotion
		}
	}
	if code != nil && code.PercentOffOverride != nil && Eligible(code.Scope, code.CategorySlugs, keys) {
		if p := clampPercent(*code.PercentOffOverride); p > applied {
			applied, source = p, SourceCode
		}
	}

	unit := DiscountedUnitCents(line.UnitPriceCents, applied)
	return PricedLine{
		Line:                line,
		AppliedPercent:      applied,
		ListUnitPriceCents:  max(line.UnitPriceCents, 0),
		DiscountedUnitCents: unit,
		LineTotalCents:      unit * Money(line.Quantity),
		DiscountSource:      source,
	}
}

// BuildQuote prices every line and resolves shipping for the order. Free
// shipping from a promo code zeroes the charged fee after resolution; the
// resolver's amount is kept in ResolvedShippingCents.
func BuildQuote(lines []Line, items []shipping.Item, table catalog.ShippingTable, promo *Promotion, code *PromoCode) Quote {
	q := Quote{
		Lines:     make([]PricedLine, 0, len(lines)),
		Promotion: promo,
		Code:      code,
	}
	for _, line := range lines {
		priced := PriceLine(line, promo, code)
		q.Lines = append(q.Lines, priced)
		q.SubtotalCents += priced.LineTotalCents
	}

	res := shipping.Resolve(items, table)
	q.ResolvedShippingCents = res.Cents
	q.ShippingSource = res.Source
	q.ShippingCents = res.Cents
	if code != nil && code.FreeShipping {
		q.ShippingCents = 0
		q.FreeShippingApplied = true
	}
	q.TotalCents = q.SubtotalCents + q.ShippingCents
	return q
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
