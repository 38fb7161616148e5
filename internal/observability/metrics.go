package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	Stimuli           *prometheus.CounterVec
	Replies           *prometheus.CounterVec
	ContextCache      *prometheus.CounterVec
	CommandsHandled   *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
	PurgedTurns       prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Stimuli: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stimuli_total",
			Help:      "Incoming gateway stimuli by decision.",
		}, []string{"decision"}),
		Replies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Delivered replies by outcome (generated, filler, apology).",
		}, []string{"outcome"}),
		ContextCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_cache_total",
			Help:      "Context assembler cache lookups by result.",
		}, []string{"result"}),
		CommandsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_handled_total",
			Help:      "Auxiliary commands handled by name.",
		}, []string{"command"}),
		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Latency of completion-service calls in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		}),
		PurgedTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_turns_total",
			Help:      "User turns removed by the retention sweep.",
		}),
	}
}

func (m *Metrics) ObserveCompletionLatency(d time.Duration) {
	m.CompletionLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
