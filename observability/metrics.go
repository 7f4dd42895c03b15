package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// FeedMetrics aggregates the Prometheus collectors tracking publish cycles,
// broadcast attempts, and signing-session churn.
type FeedMetrics struct {
	PublishCycles      *prometheus.CounterVec
	PublishLatency     prometheus.Histogram
	BroadcastAttempts  *prometheus.CounterVec
	SessionRecreations prometheus.Counter
	PriceQuote         *prometheus.GaugeVec
}

var (
	feedOnce sync.Once
	feedReg  *FeedMetrics
)

// Feed returns the lazily-initialised feed metrics registry. Collectors are
// registered with the default registerer exactly once.
func Feed() *FeedMetrics {
	feedOnce.Do(func() {
		feedReg = &FeedMetrics{
			PublishCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "feedd",
				Subsystem: "publish",
				Name:      "cycles_total",
				Help:      "Total publish cycles segmented by outcome.",
			}, []string{"outcome"}),
			PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "feedd",
				Subsystem: "publish",
				Name:      "cycle_duration_seconds",
				Help:      "Latency distribution for full publish cycles.",
				Buckets:   prometheus.DefBuckets,
			}),
			BroadcastAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "feedd",
				Subsystem: "broadcast",
				Name:      "attempts_total",
				Help:      "Broadcast attempts segmented by endpoint and outcome.",
			}, []string{"endpoint", "outcome"}),
			SessionRecreations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "feedd",
				Subsystem: "wallet",
				Name:      "session_creations_total",
				Help:      "Signing session container creations, including the initial bootstrap.",
			}),
			PriceQuote: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "feedd",
				Subsystem: "oracle",
				Name:      "price_quote",
				Help:      "Latest aggregated price per pair.",
			}, []string{"pair"}),
		}
		prometheus.MustRegister(
			feedReg.PublishCycles,
			feedReg.PublishLatency,
			feedReg.BroadcastAttempts,
			feedReg.SessionRecreations,
			feedReg.PriceQuote,
		)
	})
	return feedReg
}
