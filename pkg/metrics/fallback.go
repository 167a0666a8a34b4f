package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fallback reasons.
const (
	ReasonMock      = "mock"
	ReasonTransport = "transport"
)

// ClientMetrics records how often the storefront client served substitute
// data instead of a real API response.
type ClientMetrics struct {
	fallbacks *prometheus.CounterVec
	degraded  *prometheus.CounterVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_client_fallback_total",
		Help: "Responses synthesized locally instead of fetched from the API.",
	}, []string{"service", "operation", "reason"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_degraded_lines_total",
		Help: "Cart lines that could not be resolved against the catalogue.",
	}, []string{"operation"})
	reg.MustRegister(fallbacks, degraded)
	return &ClientMetrics{
		fallbacks: fallbacks,
		degraded:  degraded,
	}
}

// IncFallback counts one synthesized response.
func (c *ClientMetrics) IncFallback(service, operation, reason string) {
	if c == nil || c.fallbacks == nil {
		return
	}
	c.fallbacks.WithLabelValues(normalizeLabel(service), normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

// AddDegradedLines counts unresolved cart lines.
func (c *ClientMetrics) AddDegradedLines(operation string, n int) {
	if c == nil || c.degraded == nil || n <= 0 {
		return
	}
	c.degraded.WithLabelValues(normalizeLabel(operation)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
