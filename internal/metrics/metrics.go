package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stage labels.
const (
	StageValidate   = "validate"
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageQuestions  = "questions"
)

// Metrics holds the service's Prometheus instruments. All instruments
// register against the injected registry so tests can use isolated ones.
type Metrics struct {
	RequestsTotal    prometheus.Counter
	RequestsInFlight prometheus.Gauge
	RequestsFailed   *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubescribe_requests_total",
			Help: "Total number of transcription requests received",
		}),
		RequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tubescribe_requests_in_flight",
			Help: "Number of transcription requests currently being processed",
		}),
		RequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tubescribe_requests_failed_total",
			Help: "Total number of failed requests by pipeline stage",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tubescribe_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5 minutes
		}, []string{"stage"}),
	}
}
