package obs

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ShippingResolutionTotal counts reconciled order totals by the shipping source that won.
	ShippingResolutionTotal *prometheus.CounterVec
	// CheckoutQuoteTotal counts priced quotes by resolver source and free-shipping outcome.
	CheckoutQuoteTotal *prometheus.CounterVec
	// GatewayRequestTotal counts payment gateway calls by operation and outcome.
	GatewayRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ShippingResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_resolution_total",
			Help:      "Count of reconciled order totals by shipping source.",
		}, []string{"source"})
		CheckoutQuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_quote_total",
			Help:      "Count of checkout quotes by shipping source and free-shipping outcome.",
		}, []string{"shipping_source", "free_shipping"})
		GatewayRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_gateway_requests_total",
			Help:      "Count of payment gateway calls by operation and result.",
		}, []string{"op", "result"})

		mustRegisterCollector(reg, ShippingResolutionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ShippingResolutionTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutQuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutQuoteTotal = v
			}
		})
		mustRegisterCollector(reg, GatewayRequestTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GatewayRequestTotal = v
			}
		})
	})
}

// RecordShippingResolution increments ShippingResolutionTotal when registered.
func RecordShippingResolution(source string) {
	if ShippingResolutionTotal != nil {
		ShippingResolutionTotal.WithLabelValues(source).Inc()
	}
}

// RecordCheckoutQuote increments CheckoutQuoteTotal when registered.
func RecordCheckoutQuote(shippingSource string, freeShipping bool) {
	if CheckoutQuoteTotal != nil {
		CheckoutQuoteTotal.WithLabelValues(shippingSource, strconv.FormatBool(freeShipping)).Inc()
	}
}

// RecordGatewayRequest increments GatewayRequestTotal when registered.
func RecordGatewayRequest(op string, err error) {
	if GatewayRequestTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	GatewayRequestTotal.WithLabelValues(op, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
