package obs

import (
	"context"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Route groups used as metric and span labels.
const (
	GroupCatalog    = "catalog"
	GroupPromotions = "promotions"
	GroupOrders     = "orders"
	GroupCheckout   = "checkout"
	GroupHealth     = "health"
	GroupOps        = "ops"
	GroupOther      = "other"
)

// Span attribute keys for the money facts of a request.
const (
	AttrRouteGroup     = attribute.Key("storefront.route_group")
	AttrOrderID        = attribute.Key("storefront.order_id")
	AttrSessionID      = attribute.Key("storefront.session_id")
	AttrShippingSource = attribute.Key("storefront.shipping_source")
	AttrShippingCents  = attribute.Key("storefront.shipping_cents")
	AttrTotalCents     = attribute.Key("storefront.total_cents")
)

type routePatternKey struct{}

type factsKey struct{}

// WithRoutePattern pins the route pattern on the context. Without it the
// pattern is read from chi's routing context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the matched route pattern. chi fills its
// pattern while routing, so middleware must call this after the handler ran.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok && v != "" {
		return v
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// RouteGroup maps a route pattern or path onto its API area.
func RouteGroup(route string) string {
	route = strings.TrimPrefix(route, "/api/v1")
	switch {
	case strings.HasPrefix(route, "/checkout"):
		return GroupCheckout
	case strings.HasPrefix(route, "/orders"):
		return GroupOrders
	case strings.HasPrefix(route, "/categories"):
		return GroupCatalog
	case strings.HasPrefix(route, "/promotions"):
		return GroupPromotions
	case strings.HasPrefix(route, "/health"):
		return GroupHealth
	case strings.HasPrefix(route, "/metrics"), strings.HasPrefix(route, "/debug"):
		return GroupOps
	default:
		return GroupOther
	}
}

// Facts are the money facts a handler resolved for its request.
type Facts struct {
	OrderID        string
	SessionID      string
	ShippingSource string
	ShippingCents  int64
	TotalCents     int64
	HasTotals      bool
}

type factsHolder struct {
	mu    sync.Mutex
	facts Facts
}

// WithFacts installs an empty facts holder on the context.
func WithFacts(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, factsKey{}, &factsHolder{})
}

// FactsFromContext returns the facts recorded so far.
func FactsFromContext(ctx context.Context) Facts {
	h := holder(ctx)
	if h == nil {
		return Facts{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.facts
}

// AnnotateOrder records the order a request works on.
func AnnotateOrder(ctx context.Context, orderID string) {
	update(ctx, func(f *Facts) { f.OrderID = orderID })
	trace.SpanFromContext(ctx).SetAttributes(AttrOrderID.String(orderID))
}

// AnnotateSession records the checkout session a request works on.
func AnnotateSession(ctx context.Context, sessionID string) {
	update(ctx, func(f *Facts) { f.SessionID = sessionID })
	trace.SpanFromContext(ctx).SetAttributes(AttrSessionID.String(sessionID))
}

// AnnotateTotals records the shipping decision and total of a request.
func AnnotateTotals(ctx context.Context, shippingSource string, shippingCents, totalCents int64) {
	update(ctx, func(f *Facts) {
		f.ShippingSource = shippingSource
		f.ShippingCents = shippingCents
		f.TotalCents = totalCents
		f.HasTotals = true
	})
	trace.SpanFromContext(ctx).SetAttributes(
		AttrShippingSource.String(shippingSource),
		AttrShippingCents.Int64(shippingCents),
		AttrTotalCents.Int64(totalCents),
	)
}

func holder(ctx context.Context) *factsHolder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(factsKey{}).(*factsHolder)
	return h
}

func update(ctx context.Context, fn func(*Facts)) {
	if h := holder(ctx); h != nil {
		h.mu.Lock()
		fn(&h.facts)
		h.mu.Unlock()
	}
}
