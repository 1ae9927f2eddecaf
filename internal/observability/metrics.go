package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions      prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	AdmissionDecisions  *prometheus.CounterVec
	AdmissionReleases   *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	AgentErrors         *prometheus.CounterVec
	AmbientTriggers     *prometheus.CounterVec
	MixerClippedSamples prometheus.Counter
	MixerSources        prometheus.Gauge
	TurnDuration        prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers every instrument against reg. Tests pass
// a fresh registry so instruments never collide across constructions.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		AdmissionDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by outcome.",
		}, []string{"outcome"}),
		AdmissionReleases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_releases_total",
			Help:      "Admission slot releases by teardown path.",
		}, []string{"path"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		AgentErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_errors_total",
			Help:      "Agent runtime errors by role and code.",
		}, []string{"role", "code"}),
		AmbientTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ambient_triggers_total",
			Help:      "Ambient commentary trigger evaluations by result.",
		}, []string{"result"}),
		MixerClippedSamples: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mixer_clipped_samples_total",
			Help:      "Samples pushed through the soft clipper above full scale.",
		}),
		MixerSources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mixer_sources",
			Help:      "Registered mixer sources across live sessions.",
		}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_ms",
			Help:      "Completed turn duration in milliseconds.",
			Buckets:   []float64{500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
	}
}

func (m *Metrics) ObserveTurnDuration(d time.Duration) {
	m.TurnDuration.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
