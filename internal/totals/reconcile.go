package totals

import (
	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/payment"
)

// OrderFacts are the persisted money columns of an order. Any of them may be
// missing or stale depending on which code path wrote the row.
type OrderFacts struct {
	TotalCents          *float64 `json:"total_cents,omitempty"`
	SubtotalCents       *float64 `json:"subtotal_cents,omitempty"`
	AmountSubtotalCents *float64 `json:"amount_subtotal_cents,omitempty"`
	AmountCents         *float64 `json:"amount_cents,omitempty"`
	ShippingCents       *float64 `json:"shipping_cents,omitempty"`
	ShippingAmount      *float64 `json:"shipping_amount,omitempty"`
}

// Canonical is the only money breakdown receipts, emails and admin views
// should display. It is recomputed on every read.
type Canonical struct {
	ItemsSubtotalCents int64          `json:"itemsSubtotalCents"`
	ShippingCents      int64          `json:"shippingCents"`
	TotalCents         int64          `json:"totalCents"`
	ShippingSource     ShippingSource `json:"shippingSource"`
}

// ReconcileInput bundles the facts available for one order.
type ReconcileInput struct {
	Facts                *OrderFacts
	Session              *payment.Session
	LineItems            []payment.LineItem
	ContextShippingCents *float64
}

// Reconcile combines the order row, the session and its line items into
// canonical totals. Negative and non-finite values are ignored at every step,
// and a total of exactly zero never shadows a later positive candidate.
func Reconcile(in ReconcileInput) Canonical {
	facts := in.Facts
	if facts == nil {
		facts = &OrderFacts{}
	}
	var sessionTotal, sessionSubtotal *float64
	if in.Session != nil {
		sessionTotal = in.Session.AmountTotal
		sessionSubtotal = in.Session.AmountSubtotal
	}

	derived := DeriveShipping(ShippingInput{
		ContextCents: in.ContextShippingCents,
		Session:      in.Session,
		LineItems:    in.LineItems,
	})
	shipping, _ := money.First(money.Present,
		money.Known(derived.Cents, true),
		money.Value(facts.ShippingCents),
		money.Value(facts.ShippingAmount),
	)

	lineSubtotal, lineKnown := itemsSubtotal(in.LineItems)
	subtotal, subtotalKnown := money.First(money.Present,
		money.Known(lineSubtotal, lineKnown),
		money.Value(facts.SubtotalCents),
		money.Value(facts.AmountSubtotalCents),
		money.Value(facts.AmountCents),
		money.Value(sessionSubtotal),
	)

	total, _ := money.First(money.NonZero,
		money.Value(facts.TotalCents),
		money.Value(sessionTotal),
		money.Known(subtotal+shipping, subtotalKnown),
	)

	if !subtotalKnown {
		subtotal = money.Max(0, total-shipping)
	}

	return Canonical{
		ItemsSubtotalCents: subtotal,
		ShippingCents:      shipping,
		TotalCents:         total,
		ShippingSource:     derived.Source,
	}
}

// itemsSubtotal sums the merchandise lines, rounding each line. An empty list
// is unknown rather than zero.
func itemsSubtotal(lines []payment.LineItem) (int64, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	var sum int64
	for _, line := range lines {
		if line.IsShipping {
			continue
		}
		if v := line.Total(); money.Finite(v) {
			sum += money.Round(v)
		}
	}
	return sum, true
}
