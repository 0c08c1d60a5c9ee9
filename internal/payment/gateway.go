package payment

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when the gateway does not know the session id.
var ErrSessionNotFound = errors.New("checkout session not found")

// Snapshot is a checkout session fetched from the gateway together with its
// line items.
type Snapshot struct {
	ID            string            `json:"id"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Session       Session           `json:"session"`
	LineItems     []LineItem        `json:"line_items"`
}

// CheckoutLine is one line sent to the gateway when a session is created.
type CheckoutLine struct {
	Name       string
	Quantity   int64
	UnitAmount int64
	Metadata   map[string]string
}

// CheckoutRequest captures what is charged for a new checkout session.
type CheckoutRequest struct {
	Currency       string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	Lines          []CheckoutLine
	// ShippingCents is charged as the session's shipping rate, not as a
	// line, so the gateway reports it in total_details.amount_shipping.
	ShippingCents int64
	ShippingLabel string
	Metadata      map[string]string
}

// CreatedSession identifies a newly created gateway session.
type CreatedSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Gateway is the payment gateway as seen by the storefront.
type Gateway interface {
	GetSession(ctx context.Context, id string) (Snapshot, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CreatedSession, error)
}
