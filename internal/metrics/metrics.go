// Package metrics records run and stream activity with Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mattxander12/forex-trader/internal/types"
)

const namespace = "forex_trader"

// Recorder holds the application's collectors. It implements hub.Observer.
type Recorder struct {
	jobsSubmitted   *prometheus.CounterVec
	jobsFinished    *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	gateRejections  *prometheus.CounterVec
	tradesClosed    *prometheus.CounterVec
	eventsEmitted   *prometheus.CounterVec
	liveSubscribers prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight *prometheus.GaugeVec
}

// New registers the collectors with reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Recorder{
		jobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_submitted_total",
				Help:      "Jobs submitted by kind",
			},
			[]string{"kind"},
		),
		jobsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_finished_total",
				Help:      "Jobs finished by kind and final status",
			},
			[]string{"kind", "status"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time of finished jobs",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		gateRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_rejections_total",
				Help:      "Bars rejected by the decision gate, by reason",
			},
			[]string{"reason"},
		),
		tradesClosed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_closed_total",
				Help:      "Paper trades settled, by status",
			},
			[]string{"status"},
		),
		eventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_emitted_total",
				Help:      "Stream events emitted, by name",
			},
			[]string{"event"},
		),
		liveSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_subscribers",
				Help:      "Currently connected stream subscribers",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
		httpInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests",
			},
			[]string{"route", "method"},
		),
	}
}

func (r *Recorder) JobSubmitted(kind types.JobKind) {
	r.jobsSubmitted.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) JobFinished(kind types.JobKind, status types.JobStatus, seconds float64) {
	r.jobsFinished.WithLabelValues(string(kind), string(status)).Inc()
	r.jobDuration.WithLabelValues(string(kind)).Observe(seconds)
}

// GateRejections adds a run's rejection counts.
func (r *Recorder) GateRejections(rejections map[string]int) {
	for reason, n := range rejections {
		if n > 0 {
			r.gateRejections.WithLabelValues(reason).Add(float64(n))
		}
	}
}

func (r *Recorder) TradeClosed(status types.TradeStatus) {
	r.tradesClosed.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) EventEmitted(name string) {
	r.eventsEmitted.WithLabelValues(name).Inc()
}

func (r *Recorder) SubscriberConnected() {
	r.liveSubscribers.Inc()
}

func (r *Recorder) SubscriberDropped() {
	r.liveSubscribers.Dec()
}

// HTTPRequestStarted marks a request as in flight. The returned func records
// its outcome and must be called once.
func (r *Recorder) HTTPRequestStarted(route, method string) func(status int) {
	r.httpInFlight.WithLabelValues(route, method).Inc()
	start := time.Now()

	return func(status int) {
		r.httpInFlight.WithLabelValues(route, method).Dec()
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		r.httpDuration.WithLabelValues(route, method, StatusClass(status)).Observe(time.Since(start).Seconds())
	}
}

// StatusClass groups an HTTP status code into 1xx..5xx.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
