package obs

import "github.com/prometheus/client_golang/prometheus"

// PricingMetrics tracks quotes and orders produced by the pricing engine.
// A nil *PricingMetrics is valid and records nothing.
type PricingMetrics struct {
	Quotes             *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	OrdersPlaced       *prometheus.CounterVec
	OrderGrandTotal    *prometheus.HistogramVec
}

// NewPricingMetrics initialises and registers the pricing collectors. Collectors that are
// already registered on reg are reused.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PricingMetrics{
		Quotes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of cart quotes by effective billing mode.",
		}, []string{"mode"})),
		ValidationFailures: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_validation_failures_total",
			Help:      "Count of rejected quotes by reason.",
		}, []string{"reason"})),
		OrdersPlaced: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of orders placed by billing mode.",
		}, []string{"mode"})),
		OrderGrandTotal: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_grand_total",
			Help:      "Grand total of placed orders in the store currency.",
			Buckets:   []float64{500, 1000, 2500, 4999, 7500, 10000, 25000, 50000, 100000},
		}, []string{"mode"})),
	}
}

// ObserveQuote counts a successful quote.
func (m *PricingMetrics) ObserveQuote(mode string) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(mode).Inc()
}

// ObserveValidationFailure counts a rejected quote.
func (m *PricingMetrics) ObserveValidationFailure(reason string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(reason).Inc()
}

// ObserveOrder records a placed order and its grand total.
func (m *PricingMetrics) ObserveOrder(mode string, grandTotal float64) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(mode).Inc()
	m.OrderGrandTotal.WithLabelValues(mode).Observe(grandTotal)
}
