package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/payment"
	"github.com/noah-isme/storefront/internal/totals"
)

// ProductMatcher resolves gateway product refs to catalog products.
type ProductMatcher interface {
	MatchProductRefs(ctx context.Context, refs []string) (map[string]string, error)
}

// Service derives canonical totals for stored orders.
type Service struct {
	Store   Store
	Gateway payment.Gateway
	Catalog ProductMatcher
	Logger  zerolog.Logger
}

// Totals is the canonical breakdown of one order.
type Totals struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId,omitempty"`
	Currency  string `json:"currency,omitempty"`
	totals.Canonical
}

// Totals recomputes the order's totals from its row and, when available, its
// gateway session. The result is never cached so later edits to the row are
// always reflected.
func (s *Service) Totals(ctx context.Context, id string) (Totals, error) {
	if s == nil || s.Store == nil {
		return Totals{}, errors.New("order service not configured")
	}
	obs.AnnotateOrder(ctx, id)
	rec, err := s.Store.GetFacts(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Totals{}, common.NewAppError("NOT_FOUND", "order not found", http.StatusNotFound, err)
		}
		return Totals{}, fmt.Errorf("load order %s: %w", id, err)
	}

	facts := rec.Facts
	in := totals.ReconcileInput{Facts: &facts}
	if snap, ok := s.snapshot(ctx, rec); ok {
		in.Session = &snap.Session
		in.LineItems = s.unflagProducts(ctx, snap.LineItems)
		if rec.Currency == "" {
			rec.Currency = snap.Currency
		}
	} else {
		// Without a session the stored shipping columns are the only
		// evidence of what was charged.
		in.ContextShippingCents = storedShipping(facts)
	}

	canonical := totals.Reconcile(in)
	obs.RecordShippingResolution(string(canonical.ShippingSource))
	obs.AnnotateTotals(ctx, string(canonical.ShippingSource), canonical.ShippingCents, canonical.TotalCents)
	if rec.SessionID != "" {
		obs.AnnotateSession(ctx, rec.SessionID)
	}
	evt := s.Logger.Debug()
	if canonical.ShippingSource == totals.SourceFallbackZero && canonical.TotalCents > 0 {
		evt = s.Logger.Warn()
	}
	evt.Str("order_id", rec.ID).
		Str("shipping_source", string(canonical.ShippingSource)).
		Int64("items_subtotal_cents", canonical.ItemsSubtotalCents).
		Int64("shipping_cents", canonical.ShippingCents).
		Int64("total_cents", canonical.TotalCents).
		Msg("order totals reconciled")

	return Totals{OrderID: rec.ID, SessionID: rec.SessionID, Currency: rec.Currency, Canonical: canonical}, nil
}

func (s *Service) snapshot(ctx context.Context, rec Record) (payment.Snapshot, bool) {
	if rec.SessionID == "" || s.Gateway == nil {
		return payment.Snapshot{}, false
	}
	snap, err := s.Gateway.GetSession(ctx, rec.SessionID)
	obs.RecordGatewayRequest("get_session", err)
	if err != nil {
		s.Logger.Warn().Err(err).Str("order_id", rec.ID).Str("session_id", rec.SessionID).
			Msg("session unavailable, using stored facts")
		return payment.Snapshot{}, false
	}
	return snap, true
}

func (s *Service) unflagProducts(ctx context.Context, lines []payment.LineItem) []payment.LineItem {
	refs := payment.ShippingRefs(lines)
	if len(refs) == 0 || s.Catalog == nil {
		return lines
	}
	matched, err := s.Catalog.MatchProductRefs(ctx, refs)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("match session products")
		return lines
	}
	return payment.UnflagMatched(lines, matched)
}

func storedShipping(f totals.OrderFacts) *float64 {
	if cents, ok := money.First(money.Present, money.Value(f.ShippingCents), money.Value(f.ShippingAmount)); ok {
		return money.FromCents(cents)
	}
	return nil
}
