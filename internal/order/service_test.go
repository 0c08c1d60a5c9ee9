package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/money"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/payment"
	"github.com/noah-isme/storefront/internal/totals"
)

type stubStore struct {
	records map[string]order.Record
	err     error
}

func (s *stubStore) GetFacts(_ context.Context, id string) (order.Record, error) {
	if s.err != nil {
		return order.Record{}, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return order.Record{}, order.ErrNotFound
	}
	return rec, nil
}

type stubGateway struct {
	snap  payment.Snapshot
	err   error
	calls int
}

func (g *stubGateway) GetSession(context.Context, string) (payment.Snapshot, error) {
	g.calls++
	return g.snap, g.err
}

func (g *stubGateway) CreateCheckoutSession(context.Context, payment.CheckoutRequest) (payment.CreatedSession, error) {
	return payment.CreatedSession{}, errors.New("not used")
}

type stubMatcher map[string]string

func (m stubMatcher) MatchProductRefs(_ context.Context, refs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, ref := range refs {
		if id, ok := m[ref]; ok {
			out[ref] = id
		}
	}
	return out, nil
}

func TestTotalsFromSession(t *testing.T) {
	store := &stubStore{records: map[string]order.Record{
		"o1": {ID: "o1", SessionID: "cs_1", Facts: totals.OrderFacts{TotalCents: money.Ptr(0)}},
	}}
	gw := &stubGateway{snap: payment.Snapshot{
		ID:       "cs_1",
		Currency: "usd",
		Session:  payment.Session{AmountTotal: money.Ptr(4500)},
		LineItems: []payment.LineItem{
			{ProductRef: "prod_ring", AmountTotal: money.Ptr(3700)},
			{ProductRef: "prod_ship", AmountTotal: money.Ptr(800), IsShipping: true},
		},
	}}
	svc := &order.Service{Store: store, Gateway: gw, Logger: zerolog.Nop()}

	got, err := svc.Totals(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), got.TotalCents)
	assert.Equal(t, int64(3700), got.ItemsSubtotalCents)
	assert.Equal(t, int64(800), got.ShippingCents)
	assert.Equal(t, totals.SourceLineItems, got.ShippingSource)
	assert.Equal(t, "usd", got.Currency)
}

func TestTotalsMatchedProductIsNotShipping(t *testing.T) {
	store := &stubStore{records: map[string]order.Record{
		"o2": {ID: "o2", SessionID: "cs_2"},
	}}
	gw := &stubGateway{snap: payment.Snapshot{
		LineItems: []payment.LineItem{
			{ProductRef: "prod_label", ProductName: "Shipping label sticker", AmountTotal: money.Ptr(500), IsShipping: true},
			{ProductRef: "prod_fee", AmountTotal: money.Ptr(700), IsShipping: true},
		},
	}}
	svc := &order.Service{Store: store, Gateway: gw, Catalog: stubMatcher{"prod_label": "p9"}, Logger: zerolog.Nop()}

	got, err := svc.Totals(context.Background(), "o2")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.ItemsSubtotalCents)
	assert.Equal(t, int64(700), got.ShippingCents)
	assert.Equal(t, int64(1200), got.TotalCents)
}

func TestTotalsGatewayFailureUsesStoredFacts(t *testing.T) {
	store := &stubStore{records: map[string]order.Record{
		"o3": {ID: "o3", SessionID: "cs_3", Facts: totals.OrderFacts{
			SubtotalCents:  money.Ptr(3000),
			ShippingCents:  money.Ptr(-1),
			ShippingAmount: money.Ptr(600),
		}},
	}}
	gw := &stubGateway{err: errors.New("stripe down")}
	svc := &order.Service{Store: store, Gateway: gw, Logger: zerolog.Nop()}

	got, err := svc.Totals(context.Background(), "o3")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, int64(600), got.ShippingCents)
	assert.Equal(t, totals.SourceContext, got.ShippingSource)
	assert.Equal(t, int64(3600), got.TotalCents)
}

func TestTotalsReflectsEditsOnEveryRead(t *testing.T) {
	rec := order.Record{ID: "o4", Facts: totals.OrderFacts{TotalCents: money.Ptr(1000)}}
	store := &stubStore{records: map[string]order.Record{"o4": rec}}
	svc := &order.Service{Store: store, Logger: zerolog.Nop()}

	first, err := svc.Totals(context.Background(), "o4")
	require.NoError(t, err)
	require.Equal(t, int64(1000), first.TotalCents)

	rec.Facts.TotalCents = money.Ptr(1250)
	store.records["o4"] = rec
	second, err := svc.Totals(context.Background(), "o4")
	require.NoError(t, err)
	require.Equal(t, int64(1250), second.TotalCents)
}

func TestTotalsHandler(t *testing.T) {
	const id = "3f2c4a8e-5d1b-4c7a-9e0f-1a2b3c4d5e6f"
	store := &stubStore{records: map[string]order.Record{
		id: {ID: id, Facts: totals.OrderFacts{SubtotalCents: money.Ptr(2000), ShippingCents: money.Ptr(500)}},
	}}
	h := &order.Handler{Svc: &order.Service{Store: store, Logger: zerolog.Nop()}}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}/totals", h.Totals)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id+"/totals", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id, body["orderId"])
	assert.EqualValues(t, 2500, body["totalCents"])
	assert.EqualValues(t, 500, body["shippingCents"])
	assert.Equal(t, "context", body["shippingSource"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d/totals", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid/totals", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
