// Package prometheus records relay metrics with the Prometheus client
// library and serves them for scraping.
package prometheus

import (
	"net/http"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "docchat"
	subsystem = "relay"
)

// Metrics holds the relay's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsTotal          *prometheus.CounterVec
	ActiveSessions         prometheus.Gauge
	RejectionsTotal        *prometheus.CounterVec
	FragmentsTotal         prometheus.Counter
	BytesTotal             prometheus.Counter
	KeepAlivesTotal        prometheus.Counter
	ClientDisconnectsTotal prometheus.Counter
	TimeToFirstFragment    prometheus.Histogram
	SessionDurationSeconds *prometheus.HistogramVec
}

// New registers the relay collectors, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_total",
			Help:      "Streaming sessions by outcome",
		}, []string{"outcome"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Sessions currently streaming",
		}),
		RejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejections_total",
			Help:      "Requests rejected before streaming, by error code",
		}, []string{"code"}),
		FragmentsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fragments_total",
			Help:      "Fragments forwarded to clients",
		}),
		BytesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fragment_bytes_total",
			Help:      "Bytes of fragment text forwarded to clients",
		}),
		KeepAlivesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "keepalives_total",
			Help:      "Keep-alive comments written",
		}),
		ClientDisconnectsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "client_disconnects_total",
			Help:      "Sessions ended because the client went away",
		}),
		TimeToFirstFragment: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "time_to_first_fragment_seconds",
			Help:      "Time from request to the first forwarded fragment",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SessionDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_duration_seconds",
			Help:      "Streaming session duration by outcome",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionStarted marks a session as streaming.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionEnded records a finished session. It must pair with SessionStarted.
func (m *Metrics) SessionEnded(outcome docchat.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.SessionsTotal.WithLabelValues(string(outcome)).Inc()
	m.SessionDurationSeconds.WithLabelValues(string(outcome)).Observe(d.Seconds())
	if outcome == docchat.OutcomeCanceled {
		m.ClientDisconnectsTotal.Inc()
	}
}

// Rejected records a request refused before streaming began.
func (m *Metrics) Rejected(code string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(code).Inc()
}

// Fragment records a forwarded fragment. first reports whether it opened the
// session, in which case since is the time elapsed from the request.
func (m *Metrics) Fragment(f docchat.Fragment, first bool, since time.Duration) {
	if m == nil {
		return
	}
	m.FragmentsTotal.Inc()
	m.BytesTotal.Add(float64(len(f.Text)))
	if first {
		m.TimeToFirstFragment.Observe(since.Seconds())
	}
}

// KeepAlive records a keep-alive comment.
func (m *Metrics) KeepAlive() {
	if m == nil {
		return
	}
	m.KeepAlivesTotal.Inc()
}
