package totals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/payment"
)

func TestDeriveShipping(t *testing.T) {
	cases := []struct {
		name   string
		in     ShippingInput
		cents  int64
		source ShippingSource
	}{
		{
			name: "context beats session declared",
			in: ShippingInput{
				ContextCents: money.Ptr(800),
				Session:      &payment.Session{TotalDetails: &payment.TotalDetails{AmountShipping: money.Ptr(1200)}},
			},
			cents:  800,
			source: SourceContext,
		},
		{
			name:   "context rounds half up",
			in:     ShippingInput{ContextCents: money.Ptr(799.5)},
			cents:  800,
			source: SourceContext,
		},
		{
			name: "zero context falls through",
			in: ShippingInput{
				ContextCents: money.Ptr(0),
				Session:      &payment.Session{TotalDetails: &payment.TotalDetails{AmountShipping: money.Ptr(1200)}},
			},
			cents:  1200,
			source: SourceSessionDetails,
		},
		{
			name: "declared zero is accepted",
			in: ShippingInput{
				Session: &payment.Session{
					AmountTotal:    money.Ptr(1500),
					AmountSubtotal: money.Ptr(1300),
					TotalDetails:   &payment.TotalDetails{AmountShipping: money.Ptr(0)},
				},
			},
			cents:  0,
			source: SourceSessionDetails,
		},
		{
			name: "declared negative is clamped",
			in: ShippingInput{
				Session: &payment.Session{TotalDetails: &payment.TotalDetails{AmountShipping: money.Ptr(-50)}},
			},
			cents:  0,
			source: SourceSessionDetails,
		},
		{
			name: "subtraction fallback",
			in: ShippingInput{
				Session: &payment.Session{AmountTotal: money.Ptr(1500), AmountSubtotal: money.Ptr(1300)},
			},
			cents:  200,
			source: SourceDerived,
		},
		{
			name: "subtraction uses discount and tax",
			in: ShippingInput{
				Session: &payment.Session{
					AmountTotal:    money.Ptr(1500),
					AmountSubtotal: money.Ptr(1300),
					TotalDetails:   &payment.TotalDetails{AmountDiscount: money.Ptr(100), AmountTax: money.Ptr(50)},
				},
			},
			cents:  250,
			source: SourceDerived,
		},
		{
			name: "negative subtraction falls to line items",
			in: ShippingInput{
				Session: &payment.Session{AmountTotal: money.Ptr(1000), AmountSubtotal: money.Ptr(1300)},
				LineItems: []payment.LineItem{
					{AmountTotal: money.Ptr(300), IsShipping: true},
				},
			},
			cents:  300,
			source: SourceLineItems,
		},
		{
			name: "line item sum",
			in: ShippingInput{
				Session: &payment.Session{},
				LineItems: []payment.LineItem{
					{AmountTotal: money.Ptr(2000)},
					{AmountTotal: money.Ptr(600), IsShipping: true},
				},
			},
			cents:  600,
			source: SourceLineItems,
		},
		{
			name: "line item unit times quantity",
			in: ShippingInput{
				LineItems: []payment.LineItem{
					{UnitAmount: money.Ptr(250), Quantity: money.Ptr(2), IsShipping: true},
				},
			},
			cents:  500,
			source: SourceLineItems,
		},
		{
			name:   "empty line items sum to zero",
			in:     ShippingInput{},
			cents:  0,
			source: SourceLineItems,
		},
		{
			name: "non-finite line sum falls back to zero",
			in: ShippingInput{
				LineItems: []payment.LineItem{
					{UnitAmount: money.Ptr(math.MaxFloat64), Quantity: money.Ptr(10), IsShipping: true},
				},
			},
			cents:  0,
			source: SourceFallbackZero,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveShipping(tc.in)
			assert.Equal(t, tc.cents, got.Cents)
			assert.Equal(t, tc.source, got.Source)
		})
	}
}

func TestDeriveShippingIgnoresNonFiniteContext(t *testing.T) {
	got := DeriveShipping(ShippingInput{
		ContextCents: money.Ptr(math.Inf(1)),
		Session:      &payment.Session{TotalDetails: &payment.TotalDetails{AmountShipping: money.Ptr(450)}},
	})
	require.Equal(t, ShippingResult{Cents: 450, Source: SourceSessionDetails}, got)
}
