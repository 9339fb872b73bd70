// Package metrics exposes prometheus metrics of the agent and the classifier service.
package metrics

import (
	"net/http"
	"time"

	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/sample"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wqm"

// Agent holds the metrics of the monitoring agent.
type Agent struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	requests *prometheus.HistogramVec
	reading  *prometheus.GaugeVec
}

// NewAgent creates the agent metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewAgent(reg prometheus.Registerer) *Agent {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	a := &Agent{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed trigger cycles by resulting label.",
		}, []string{"label"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a trigger cycle from reading to rendering.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_request_seconds",
			Help:      "Latency of classifier requests by resulting label.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"label"}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last calibrated reading per channel.",
		}, []string{"channel"}),
	}

	reg.MustRegister(a.cycles, a.duration, a.requests, a.reading)

	return a
}

// ObserveCycle records a completed cycle.
func (a *Agent) ObserveCycle(r sample.Reading, label classify.Label, elapsed time.Duration) {
	a.cycles.WithLabelValues(label.String()).Inc()
	a.duration.Observe(elapsed.Seconds())
	a.reading.WithLabelValues("chlorine").Set(float64(r.Chlorine))
	a.reading.WithLabelValues("turbidity").Set(float64(r.Turbidity))
	a.reading.WithLabelValues("conductivity").Set(float64(r.Conductivity))
	a.reading.WithLabelValues("ph").Set(float64(r.PH))
}

// ObserveRequest records one classifier request. It matches classify.Client.OnRequest.
func (a *Agent) ObserveRequest(label classify.Label, elapsed time.Duration) {
	a.requests.WithLabelValues(label.String()).Observe(elapsed.Seconds())
}

// Service holds the metrics of the classifier service.
type Service struct {
	predictions *prometheus.CounterVec
	rejected    prometheus.Counter
	storeErrors prometheus.Counter
}

// NewService creates the service metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewService(reg prometheus.Registerer) *Service {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &Service{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Verdicts returned by the classifier service.",
		}, []string{"label"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Classification requests rejected for missing or invalid parameters.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Readings that could not be persisted.",
		}),
	}

	reg.MustRegister(s.predictions, s.rejected, s.storeErrors)

	return s
}

// ObservePrediction counts a returned verdict.
func (s *Service) ObservePrediction(label classify.Label) {
	s.predictions.WithLabelValues(label.String()).Inc()
}

// ObserveRejected counts a rejected request.
func (s *Service) ObserveRejected() {
	s.rejected.Inc()
}

// ObserveStoreError counts a failed save.
func (s *Service) ObserveStoreError() {
	s.storeErrors.Inc()
}

// Handler serves the metrics gathered by g. A nil g uses the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
