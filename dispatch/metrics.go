package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the dispatcher. All metrics are optional; a nil
// Metrics on the Dispatcher disables collection.
type Metrics struct {
	// Attempts counts render passes, including reload retries.
	Attempts prometheus.Counter
	// Reloads counts reload signals acted upon.
	Reloads prometheus.Counter
	// Denials counts component references suppressed by access checks.
	Denials prometheus.Counter
	// Exhaustions counts renders that ran out of reload attempts.
	Exhaustions prometheus.Counter
	// Duration observes successful end-to-end render time in seconds.
	Duration prometheus.Histogram
}

// NewMetrics registers dispatcher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyk_render_attempts_total",
			Help: "Render passes, including reload retries.",
		}),
		Reloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyk_render_reloads_total",
			Help: "Reload signals acted upon by the dispatcher.",
		}),
		Denials: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyk_render_denials_total",
			Help: "Component references suppressed by access checks.",
		}),
		Exhaustions: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyk_render_exhaustions_total",
			Help: "Renders that exhausted the reload retry budget.",
		}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kyk_render_duration_seconds",
			Help:    "End-to-end duration of successful renders.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
