package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsProcessed *prometheus.CounterVec
	Issues           *prometheus.CounterVec
	APIErrors        *prometheus.CounterVec
	RequestSeconds   *prometheus.HistogramVec
	StageSeconds     *prometheus.HistogramVec
	StagePassed      *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		RecordsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "capitals_records_processed_total",
			Help: "Total number of records processed by a pipeline stage.",
		}, []string{"stage", "status"}),
		Issues: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "capitals_validation_issues_total",
			Help: "Total number of validation issues reported by a pipeline stage.",
		}, []string{"stage", "kind"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "capitals_geocoding_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}, []string{"provider"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capitals_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		StageSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "capitals_stage_duration_seconds",
			Help:    "Wall time of a pipeline stage.",
			Buckets: []float64{0.01, 0.1, 1, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		StagePassed: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "capitals_stage_passed",
			Help: "1 if the last run of the stage passed its checks, 0 otherwise.",
		}, []string{"stage"}),
		gatherer: reg,
	}
}

// SetPassed records the outcome of a stage.
func (m *Metrics) SetPassed(stage string, passed bool) {
	value := 0.0
	if passed {
		value = 1
	}
	m.StagePassed.WithLabelValues(stage).Set(value)
}

// WriteTextfile dumps every collected metric to path in the text exposition format,
// the way node_exporter's textfile collector expects it.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
