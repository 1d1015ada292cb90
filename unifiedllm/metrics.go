package unifiedllm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records backend traffic as Prometheus series. Each instance
// registers with its own registerer so tests and separate runs never collide
// on the global registry.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoauditor_llm_requests_total",
				Help: "Total number of backend chat requests by provider, model, status, and error kind",
			},
			[]string{"provider", "model", "status", "error_kind"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yoauditor_llm_request_duration_seconds",
				Help:    "Duration of backend chat requests in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"provider", "model"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yoauditor_llm_tool_calls_total",
				Help: "Total number of tool calls requested by the model, by tool name",
			},
			[]string{"model", "tool"},
		),
	}
}

// Middleware returns a Middleware that observes every request passing
// through it.
func (m *Metrics) Middleware() Middleware {
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		m.ObserveRequest(req.Provider, req.Model, err, time.Since(start))
		if resp != nil {
			for _, tc := range resp.ToolCalls() {
				m.toolCallsTotal.WithLabelValues(req.Model, tc.Name).Inc()
			}
		}
		return resp, err
	}
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(provider, model string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(provider, model, status, ErrorKind(err)).Inc()
	m.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}
