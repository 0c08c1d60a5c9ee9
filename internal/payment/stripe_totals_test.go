package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/noah-isme/storefront/internal/payment"
	"github.com/noah-isme/storefront/internal/totals"
)

// A session opened with a fixed shipping rate keeps shipping out of the line
// items and amount_subtotal, and reports it in total_details.
func TestStripeSessionReconcilesChargedShipping(t *testing.T) {
	gw := payment.NewStripeWithSession(&stripe.CheckoutSession{
		ID:             "cs_paid",
		Currency:       stripe.CurrencyUSD,
		PaymentStatus:  stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:    2600,
		AmountSubtotal: 2000,
		TotalDetails:   &stripe.CheckoutSessionTotalDetails{AmountShipping: 600},
		ShippingCost:   &stripe.CheckoutSessionShippingCost{AmountSubtotal: 600, AmountTotal: 600},
		LineItems: &stripe.LineItemList{Data: []*stripe.LineItem{
			{
				Description:    "Vase",
				Quantity:       1,
				AmountTotal:    2000,
				AmountSubtotal: 2000,
				Price: &stripe.Price{ID: "price_vase", UnitAmount: 2000, Product: &stripe.Product{
					ID: "prod_vase", Name: "Vase", Metadata: map[string]string{payment.MetaProductID: "vase"},
				}},
			},
		}},
	})

	snap, err := gw.GetSession(context.Background(), "cs_paid")
	require.NoError(t, err)

	got := totals.Reconcile(totals.ReconcileInput{Session: &snap.Session, LineItems: snap.LineItems})
	require.Equal(t, totals.Canonical{
		ItemsSubtotalCents: 2000,
		ShippingCents:      600,
		TotalCents:         2600,
		ShippingSource:     totals.SourceSessionDetails,
	}, got)
	require.Equal(t, got.TotalCents, got.ItemsSubtotalCents+got.ShippingCents)
}
