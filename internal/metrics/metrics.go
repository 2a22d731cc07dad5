package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LinesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_lines_processed_total",
			Help: "Total number of raw log lines normalized",
		},
		[]string{"variant"},
	)

	LinesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_lines_skipped_total",
			Help: "Total number of log lines without model input",
		},
		[]string{"variant"},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_predictions_total",
			Help: "Total number of predictions by label",
		},
		[]string{"variant", "label"},
	)

	AttacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_attacks_total",
			Help: "Total number of predictions outside the normal label",
		},
		[]string{"variant"},
	)

	ClassifierErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_classifier_errors_total",
			Help: "Total number of failed classifier calls",
		},
		[]string{"variant"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webattack_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	ClassifyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webattack_classify_latency_seconds",
			Help:    "Latency of a single classifier call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(LinesProcessedTotal)
		prometheus.MustRegister(LinesSkippedTotal)
		prometheus.MustRegister(PredictionsTotal)
		prometheus.MustRegister(AttacksTotal)
		prometheus.MustRegister(ClassifierErrorsTotal)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(ClassifyLatency)
	})
}
