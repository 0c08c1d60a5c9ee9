package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/payment"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/shipping"
	"github.com/noah-isme/storefront/internal/totals"
)

// Catalog is the catalog surface checkout depends on.
type Catalog interface {
	ShippingTable(ctx context.Context) (catalog.ShippingTable, []catalog.Category, error)
	Products(ctx context.Context, ids []string) (map[string]catalog.Product, error)
	MatchProductRefs(ctx context.Context, refs []string) (map[string]string, error)
}

// Promos resolves the discounts in effect and counts code usage.
type Promos interface {
	ActivePromotion(ctx context.Context) (*pricing.Promotion, error)
	LookupCode(ctx context.Context, code string) (*pricing.PromoCode, error)
	RedeemCode(ctx context.Context, code string) error
	ReleaseCode(ctx context.Context, code string)
}

// RequestItem is one cart line as submitted by the storefront. Prices and
// categories always come from the catalog.
type RequestItem struct {
	ProductID   string `json:"productId" validate:"required,max=128"`
	Quantity    int    `json:"quantity" validate:"min=1,max=99"`
	OptionValue string `json:"optionValue,omitempty" validate:"max=128"`
}

// Request is a cart submitted for preview or checkout.
type Request struct {
	Items     []RequestItem `json:"items" validate:"required,min=1,max=100,dive"`
	PromoCode string        `json:"promoCode,omitempty" validate:"max=64"`
}

// SessionResult is returned after creating a gateway checkout session.
type SessionResult struct {
	SessionID string        `json:"sessionId"`
	URL       string        `json:"url"`
	Quote     pricing.Quote `json:"quote"`
}

// SummaryLine is one line of a completed session as shown on the
// confirmation page.
type SummaryLine struct {
	Name             string `json:"name"`
	Quantity         int64  `json:"quantity"`
	UnitAmountCents  int64  `json:"unitAmountCents"`
	LineTotalCents   int64  `json:"lineTotalCents"`
	IsShipping       bool   `json:"isShipping"`
	ProductID        string `json:"productId,omitempty"`
	OptionGroupLabel string `json:"optionGroupLabel,omitempty"`
	OptionValue      string `json:"optionValue,omitempty"`
}

// Summary is the confirmation view of a checkout session.
type Summary struct {
	SessionID     string           `json:"sessionId"`
	PaymentStatus string           `json:"paymentStatus"`
	Currency      string           `json:"currency"`
	CustomerEmail string           `json:"customerEmail,omitempty"`
	Totals        totals.Canonical `json:"totals"`
	Lines         []SummaryLine    `json:"lines"`
}

// Service prices carts and creates gateway checkout sessions from the same
// quote.
type Service struct {
	Catalog    Catalog
	Promos     Promos
	Gateway    payment.Gateway
	Currency   string
	SuccessURL string
	CancelURL  string
	Logger     zerolog.Logger
}

type resolvedItem struct {
	product     catalog.Product
	quantity    int
	optionLabel string
	optionValue string
}

// Preview prices the cart exactly as CreateSession would charge it.
func (s *Service) Preview(ctx context.Context, req Request) (pricing.Quote, error) {
	quote, _, err := s.quote(ctx, req)
	return quote, err
}

// CreateSession prices the cart and opens a gateway checkout session whose
// unit amounts are the discounted unit prices of the quote. Shipping is sent
// as a fixed shipping rate so the session reports it as amount_shipping.
func (s *Service) CreateSession(ctx context.Context, req Request, idempotencyKey string) (SessionResult, error) {
	if s.Gateway == nil {
		return SessionResult{}, errors.New("checkout gateway not configured")
	}
	quote, items, err := s.quote(ctx, req)
	if err != nil {
		return SessionResult{}, err
	}

	lines := make([]payment.CheckoutLine, 0, len(quote.Lines))
	for i, pl := range quote.Lines {
		meta := map[string]string{payment.MetaProductID: pl.ProductID}
		if items[i].optionLabel != "" && items[i].optionValue != "" {
			meta[payment.MetaOptionGroupLabel] = items[i].optionLabel
			meta[payment.MetaOptionValue] = items[i].optionValue
		}
		lines = append(lines, payment.CheckoutLine{
			Name:       pl.Name,
			Quantity:   int64(pl.Quantity),
			UnitAmount: pl.DiscountedUnitCents,
			Metadata:   meta,
		})
	}

	meta := map[string]string{
		"shipping_source":         quote.ShippingSource,
		"resolved_shipping_cents": strconv.FormatInt(quote.ResolvedShippingCents, 10),
		"free_shipping":           strconv.FormatBool(quote.FreeShippingApplied),
	}
	if quote.Code != nil {
		meta["promo_code"] = quote.Code.Code
	}
	if quote.Promotion != nil {
		meta["promotion_id"] = quote.Promotion.ID
	}

	// A code use is taken before the session exists and given back when the
	// gateway refuses it.
	if quote.Code != nil {
		if err := s.Promos.RedeemCode(ctx, quote.Code.Code); err != nil {
			return SessionResult{}, err
		}
	}

	created, err := s.Gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Currency:       s.Currency,
		SuccessURL:     s.SuccessURL,
		CancelURL:      s.CancelURL,
		IdempotencyKey: idempotencyKey,
		Lines:          lines,
		ShippingCents:  quote.ShippingCents,
		ShippingLabel:  "Shipping",
		Metadata:       meta,
	})
	obs.RecordGatewayRequest("create_session", err)
	if err != nil {
		if quote.Code != nil {
			s.Promos.ReleaseCode(ctx, quote.Code.Code)
		}
		return SessionResult{}, common.NewAppError("GATEWAY_ERROR", "unable to start checkout", http.StatusBadGateway, err)
	}
	s.Logger.Info().
		Str("session_id", created.ID).
		Int64("total_cents", quote.TotalCents).
		Str("shipping_source", quote.ShippingSource).
		Msg("checkout session created")
	obs.AnnotateSession(ctx, created.ID)
	return SessionResult{SessionID: created.ID, URL: created.URL, Quote: quote}, nil
}

// SessionSummary loads a session from the gateway and reconciles its totals
// for the confirmation page.
func (s *Service) SessionSummary(ctx context.Context, id string) (Summary, error) {
	if s.Gateway == nil {
		return Summary{}, errors.New("checkout gateway not configured")
	}
	snap, err := s.Gateway.GetSession(ctx, id)
	obs.RecordGatewayRequest("get_session", err)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return Summary{}, common.NewAppError("NOT_FOUND", "checkout session not found", http.StatusNotFound, err)
		}
		return Summary{}, common.NewAppError("GATEWAY_ERROR", "unable to load checkout session", http.StatusBadGateway, err)
	}

	lineItems := snap.LineItems
	matched := map[string]string{}
	if refs := payment.ShippingRefs(lineItems); len(refs) > 0 && s.Catalog != nil {
		if matched, err = s.Catalog.MatchProductRefs(ctx, refs); err != nil {
			s.Logger.Warn().Err(err).Str("session_id", snap.ID).Msg("match session products")
			matched = map[string]string{}
		}
		lineItems = payment.UnflagMatched(lineItems, matched)
	}

	canonical := totals.Reconcile(totals.ReconcileInput{Session: &snap.Session, LineItems: lineItems})
	obs.RecordShippingResolution(string(canonical.ShippingSource))
	obs.AnnotateSession(ctx, snap.ID)
	obs.AnnotateTotals(ctx, string(canonical.ShippingSource), canonical.ShippingCents, canonical.TotalCents)
	if canonical.ShippingSource == totals.SourceFallbackZero && canonical.TotalCents > 0 {
		s.Logger.Warn().
			Str("session_id", snap.ID).
			Int64("items_subtotal_cents", canonical.ItemsSubtotalCents).
			Int64("total_cents", canonical.TotalCents).
			Msg("session shipping could not be derived")
	}

	out := Summary{
		SessionID:     snap.ID,
		PaymentStatus: snap.PaymentStatus,
		Currency:      snap.Currency,
		CustomerEmail: snap.CustomerEmail,
		Totals:        canonical,
		Lines:         make([]SummaryLine, 0, len(lineItems)),
	}
	for _, li := range lineItems {
		qty := int64(1)
		if q, ok := money.Deref(li.Quantity); ok && q >= 1 {
			qty = money.Round(q)
		}
		unit, _ := money.First(money.Present, money.Value(li.UnitAmount))
		productID := li.Metadata[payment.MetaProductID]
		if productID == "" {
			productID = matched[li.ProductRef]
		}
		out.Lines = append(out.Lines, SummaryLine{
			Name:             li.Name(),
			Quantity:         qty,
			UnitAmountCents:  unit,
			LineTotalCents:   money.Clamp(li.Total()),
			IsShipping:       li.IsShipping,
			ProductID:        productID,
			OptionGroupLabel: li.Metadata[payment.MetaOptionGroupLabel],
			OptionValue:      li.Metadata[payment.MetaOptionValue],
		})
	}
	return out, nil
}

func (s *Service) quote(ctx context.Context, req Request) (pricing.Quote, []resolvedItem, error) {
	if s == nil || s.Catalog == nil || s.Promos == nil {
		return pricing.Quote{}, nil, errors.New("checkout service not configured")
	}
	if len(req.Items) == 0 {
		return pricing.Quote{}, nil, invalid("cart is empty", nil)
	}

	table, categories, err := s.Catalog.ShippingTable(ctx)
	if err != nil {
		return pricing.Quote{}, nil, err
	}
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, strings.TrimSpace(it.ProductID))
	}
	products, err := s.Catalog.Products(ctx, ids)
	if err != nil {
		return pricing.Quote{}, nil, fmt.Errorf("load cart products: %w", err)
	}

	items := make([]resolvedItem, 0, len(req.Items))
	var missing []string
	for i, it := range req.Items {
		p, ok := products[ids[i]]
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		item := resolvedItem{product: p, quantity: max(it.Quantity, 1)}
		if value := strings.TrimSpace(it.OptionValue); value != "" {
			cat, found := catalog.FindCategory(categories, p.Category)
			if !found || cat.OptionGroupLabel == nil || !slices.Contains(cat.OptionGroupOptions, value) {
				return pricing.Quote{}, nil, invalid("invalid option for product", map[string]any{"productId": p.ID, "optionValue": value})
			}
			item.optionLabel = *cat.OptionGroupLabel
			item.optionValue = value
		}
		items = append(items, item)
	}
	if len(missing) > 0 {
		return pricing.Quote{}, nil, invalid("unknown products in cart", map[string]any{"productIds": missing})
	}

	promotion, err := s.Promos.ActivePromotion(ctx)
	if err != nil {
		return pricing.Quote{}, nil, err
	}
	code, err := s.Promos.LookupCode(ctx, req.PromoCode)
	if err != nil {
		return pricing.Quote{}, nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	shipItems := make([]shipping.Item, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{
			ProductID:      it.product.ID,
			Name:           it.product.Name,
			Quantity:       it.quantity,
			UnitPriceCents: it.product.PriceCents,
			Category:       it.product.Category,
			Categories:     it.product.Categories,
		})
		shipItems = append(shipItems, shippingItem(it.product))
	}

	quote := pricing.BuildQuote(lines, shipItems, table, promotion, code)
	obs.RecordCheckoutQuote(quote.ShippingSource, quote.FreeShippingApplied)
	obs.AnnotateTotals(ctx, quote.ShippingSource, quote.ShippingCents, quote.TotalCents)
	return quote, items, nil
}

func shippingItem(p catalog.Product) shipping.Item {
	item := shipping.Item{
		Category:        p.Category,
		Categories:      p.Categories,
		OverrideEnabled: shipping.Flag(p.ShippingOverrideEnabled),
	}
	if p.ShippingOverrideAmountCents != nil {
		item.OverrideAmountCents = money.NewLoose(*p.ShippingOverrideAmountCents)
	}
	return item
}

func invalid(message string, details any) *common.AppError {
	return &common.AppError{Code: "INVALID_CART", Message: message, HTTPStatus: http.StatusUnprocessableEntity, Details: details}
}
