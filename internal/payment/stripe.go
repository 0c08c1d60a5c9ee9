package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront/internal/resilience"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeConfig configures the Stripe gateway.
type StripeConfig struct {
	APIKey    string
	AccountID string
	Timeout   time.Duration
	Logger    zerolog.Logger
	// Breaker guards outgoing calls. A breaker targeting "stripe" is
	// created when nil.
	Breaker *resilience.Breaker

	sessions stripeSessionAPI
}

// Stripe implements Gateway on Stripe Checkout.
type Stripe struct {
	sessions stripeSessionAPI
	account  string
	logger   zerolog.Logger
}

// NewStripe constructs a Stripe gateway. Outgoing calls are traced through
// an otelhttp transport and pass a circuit breaker.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	sessions := cfg.sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		breaker := cfg.Breaker
		if breaker == nil {
			breaker = resilience.NewBreaker(resilience.BreakerConfig{Target: "stripe", Logger: cfg.Logger})
		}
		httpClient := &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(&resilience.Transport{Base: http.DefaultTransport, Breaker: breaker}),
		}
		backendCfg := &stripe.BackendConfig{HTTPClient: httpClient}
		backends := &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
		}
		sessions = client.New(apiKey, backends).CheckoutSessions
	}
	return &Stripe{
		sessions: sessions,
		account:  strings.TrimSpace(cfg.AccountID),
		logger:   cfg.Logger,
	}, nil
}

// GetSession fetches a checkout session with its line items and products
// expanded.
func (s *Stripe) GetSession(ctx context.Context, id string) (Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Snapshot{}, ErrSessionNotFound
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	if s.account != "" {
		params.SetStripeAccount(s.account)
	}

	sess, err := s.sessions.Get(id, params)
	if err != nil {
		if isStripeNotFound(err) {
			return Snapshot{}, ErrSessionNotFound
		}
		return Snapshot{}, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	snap := snapshotFromStripe(sess)
	s.logger.Debug().
		Str("session_id", snap.ID).
		Int("line_items", len(snap.LineItems)).
		Msg("stripe session fetched")
	return snap, nil
}

// CreateCheckoutSession creates a payment-mode Checkout session with inline
// price data for every line.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CreatedSession, error) {
	if len(req.Lines) == 0 {
		return CreatedSession{}, errors.New("stripe: checkout session needs at least one line")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if s.account != "" {
		params.SetStripeAccount(s.account)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = copyMeta(req.Metadata)
	}

	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		item := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(qty),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		}
		if len(line.Metadata) > 0 {
			item.PriceData.ProductData.Metadata = copyMeta(line.Metadata)
		}
		lines = append(lines, item)
	}
	params.LineItems = lines
	if req.ShippingCents > 0 {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			shippingOption(req.ShippingLabel, req.ShippingCents, currency),
		}
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		return CreatedSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	s.logger.Info().
		Str("session_id", sess.ID).
		Str("currency", currency).
		Int("lines", len(lines)).
		Msg("stripe session created")
	return CreatedSession{ID: sess.ID, URL: sess.URL}, nil
}

func shippingOption(label string, cents int64, currency string) *stripe.CheckoutSessionShippingOptionParams {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Shipping"
	}
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type:        stripe.String(string(stripe.ShippingRateTypeFixedAmount)),
			DisplayName: stripe.String(label),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(cents),
				Currency: stripe.String(currency),
			},
		},
	}
}

func snapshotFromStripe(sess *stripe.CheckoutSession) Snapshot {
	snap := Snapshot{
		ID:            sess.ID,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
		Session: Session{
			AmountTotal:    centsPtr(sess.AmountTotal),
			AmountSubtotal: centsPtr(sess.AmountSubtotal),
		},
	}
	if sess.CustomerDetails != nil {
		snap.CustomerEmail = sess.CustomerDetails.Email
	}
	if td := sess.TotalDetails; td != nil {
		snap.Session.TotalDetails = &TotalDetails{
			AmountShipping: centsPtr(td.AmountShipping),
			AmountDiscount: centsPtr(td.AmountDiscount),
			AmountTax:      centsPtr(td.AmountTax),
		}
	}
	if sess.LineItems != nil {
		snap.LineItems = make([]LineItem, 0, len(sess.LineItems.Data))
		for _, li := range sess.LineItems.Data {
			if li == nil {
				continue
			}
			snap.LineItems = append(snap.LineItems, lineItemFromStripe(li))
		}
	}
	return snap
}

func lineItemFromStripe(li *stripe.LineItem) LineItem {
	out := LineItem{
		Description:    li.Description,
		Quantity:       centsPtr(li.Quantity),
		AmountTotal:    centsPtr(li.AmountTotal),
		AmountSubtotal: centsPtr(li.AmountSubtotal),
	}
	if price := li.Price; price != nil {
		out.PriceRef = price.ID
		out.UnitAmount = centsPtr(price.UnitAmount)
		if product := price.Product; product != nil {
			out.ProductRef = product.ID
			out.ProductName = product.Name
			out.Metadata = product.Metadata
		}
	}
	if ref := strings.TrimSpace(out.Metadata[MetaProductID]); ref != "" {
		out.ProductRef = ref
	}
	out.IsShipping = IsShippingLine(out)
	return out
}

func isStripeNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing
}

func centsPtr(v int64) *float64 {
	f := float64(v)
	return &f
}

func copyMeta(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
