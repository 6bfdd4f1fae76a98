package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BatchSummary collects end-of-run gauges and dumps them in the prometheus
// textfile-collector format, the scrape model that fits a batch job.
type BatchSummary struct {
	registry *prometheus.Registry

	rows         *prometheus.GaugeVec
	stageSeconds *prometheus.GaugeVec
	labeled      prometheus.Gauge
	excludedNew  prometheus.Gauge
	churnRate    prometheus.Gauge
	warnings     prometheus.Gauge
}

func NewBatchSummary() *BatchSummary {
	registry := prometheus.NewRegistry()

	s := &BatchSummary{
		registry: registry,
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "churnpipe_table_rows",
			Help: "Rows per table in the last run.",
		}, []string{"table"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "churnpipe_stage_duration_seconds",
			Help: "Stage wall time of the last run.",
		}, []string{"stage"}),
		labeled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "churnpipe_labeled_customers",
			Help: "Customers assigned a churn label in the last run.",
		}),
		excludedNew: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "churnpipe_excluded_new_customers",
			Help: "Customers excluded from labeling for insufficient tenure.",
		}),
		churnRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "churnpipe_churn_rate",
			Help: "Fraction of labeled customers marked churned.",
		}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "churnpipe_validation_warnings",
			Help: "Soft validation warnings emitted by the last run.",
		}),
	}

	registry.MustRegister(s.rows, s.stageSeconds, s.labeled, s.excludedNew, s.churnRate, s.warnings)
	return s
}

func (s *BatchSummary) SetTableRows(table string, n int) {
	s.rows.WithLabelValues(table).Set(float64(n))
}

func (s *BatchSummary) ObserveStage(stage string, seconds float64) {
	s.stageSeconds.WithLabelValues(stage).Set(seconds)
}

func (s *BatchSummary) SetLabelStats(labeled, excludedNew int, churnRate float64) {
	s.labeled.Set(float64(labeled))
	s.excludedNew.Set(float64(excludedNew))
	s.churnRate.Set(churnRate)
}

func (s *BatchSummary) SetWarnings(n int) {
	s.warnings.Set(float64(n))
}

// WriteTo dumps the summary to path, atomically replacing a previous dump.
func (s *BatchSummary) WriteTo(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
