// Package totals turns the untrusted money facts of an order (the local row,
// the gateway session and its line items) into one canonical breakdown.
package totals

import (
	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/payment"
)

// ShippingSource records which strategy produced a shipping amount.
type ShippingSource string

const (
	SourceContext        ShippingSource = "context"
	SourceSessionDetails ShippingSource = "session.total_details.amount_shipping"
	SourceDerived        ShippingSource = "derived_total_minus_subtotal_plus_discount_minus_tax"
	SourceLineItems      ShippingSource = "shipping_line_items"
	SourceFallbackZero   ShippingSource = "fallback_zero"
)

// ShippingInput is everything the deriver may look at.
type ShippingInput struct {
	ContextCents *float64
	Session      *payment.Session
	LineItems    []payment.LineItem
}

// ShippingResult is a derived shipping amount and the strategy that won.
type ShippingResult struct {
	Cents  int64          `json:"cents"`
	Source ShippingSource `json:"source"`
}

type shippingStrategy struct {
	source ShippingSource
	pred   money.Predicate
	value  func(ShippingInput) money.Source
}

// strategies are tried in order; the first accepted value wins.
var strategies = []shippingStrategy{
	{SourceContext, positive, func(in ShippingInput) money.Source {
		return money.Value(in.ContextCents)
	}},
	{SourceSessionDetails, money.Finite, func(in ShippingInput) money.Source {
		if in.Session == nil || in.Session.TotalDetails == nil {
			return nil
		}
		return money.Value(in.Session.TotalDetails.AmountShipping)
	}},
	{SourceDerived, money.Present, func(in ShippingInput) money.Source {
		return func() (float64, bool) { return derivedFromSession(in.Session) }
	}},
	{SourceLineItems, money.Present, func(in ShippingInput) money.Source {
		return func() (float64, bool) { return shippingLineSum(in.LineItems), true }
	}},
}

// DeriveShipping determines the shipping amount actually charged for a
// session. The result is always a whole, non-negative number of cents.
func DeriveShipping(in ShippingInput) ShippingResult {
	for _, s := range strategies {
		if cents, ok := money.First(s.pred, s.value(in)); ok {
			return ShippingResult{Cents: cents, Source: s.source}
		}
	}
	return ShippingResult{Cents: 0, Source: SourceFallbackZero}
}

func positive(v float64) bool {
	return money.Finite(v) && v > 0
}

// derivedFromSession computes total - subtotal + discount - tax. Missing
// discount or tax count as zero.
func derivedFromSession(s *payment.Session) (float64, bool) {
	if s == nil {
		return 0, false
	}
	total, ok := money.Deref(s.AmountTotal)
	if !ok {
		return 0, false
	}
	subtotal, ok := money.Deref(s.AmountSubtotal)
	if !ok {
		return 0, false
	}
	var discount, tax float64
	if d := s.TotalDetails; d != nil {
		discount, _ = money.Deref(d.AmountDiscount)
		tax, _ = money.Deref(d.AmountTax)
	}
	return total - subtotal + discount - tax, true
}

func shippingLineSum(lines []payment.LineItem) float64 {
	var sum float64
	for _, line := range lines {
		if line.IsShipping {
			sum += line.Total()
		}
	}
	return sum
}
