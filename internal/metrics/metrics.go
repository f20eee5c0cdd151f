// Package metrics records enrichment run metrics on a private Prometheus
// registry and writes them for the node-exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// Recorder holds the run metrics. Gauges describe the most recent run;
// counters and the histogram accumulate across runs in one process.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge

	Records          *prometheus.GaugeVec
	RecordsByStatus  *prometheus.GaugeVec
	Integrity        *prometheus.GaugeVec
	DepartmentHours  *prometheus.GaugeVec
	DepartmentCost   *prometheus.GaugeVec
	NPTHours         prometheus.Gauge
	NeedsReview      prometheus.Gauge
	MalformedTokens  prometheus.Gauge
	BulkOperations   *prometheus.GaugeVec
	BulkVolumeBbls   prometheus.Gauge
	VolumeMismatches prometheus.Gauge
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enrich_runs_total",
			Help: "Enrichment runs by outcome",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrich_run_duration_seconds",
			Help:    "Wall time of enrichment runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),

		Records: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_records",
			Help: "Enriched records in the last run by source kind",
		}, []string{"kind"}),
		RecordsByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_records_by_mapping_status",
			Help: "Enriched records in the last run by LC mapping status",
		}, []string{"mapping_status"}),
		Integrity: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_records_by_integrity",
			Help: "Enriched records in the last run by data integrity",
		}, []string{"integrity"}),
		DepartmentHours: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_department_hours",
			Help: "Allocated hours in the last run by department",
		}, []string{"department"}),
		DepartmentCost: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_department_cost",
			Help: "Vessel cost in the last run by department",
		}, []string{"department"}),
		NPTHours: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_npt_hours",
			Help: "Non-productive hours in the last run",
		}),
		NeedsReview: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_needs_review",
			Help: "Records and bulk operations flagged for review in the last run",
		}),
		MalformedTokens: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_malformed_lc_tokens",
			Help: "Allocation tokens skipped as malformed in the last run",
		}),
		BulkOperations: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enrich_bulk_operations",
			Help: "Consolidated bulk operations in the last run by fluid category",
		}, []string{"category"}),
		BulkVolumeBbls: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_bulk_volume_bbls",
			Help: "Reconciled bulk volume in the last run, in barrels",
		}),
		VolumeMismatches: f.NewGauge(prometheus.GaugeOpts{
			Name: "enrich_bulk_volume_mismatches",
			Help: "Bulk operations whose load and discharge volumes disagree",
		}),
	}
}

// Registry exposes the private registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a completed run.
func (r *Recorder) Observe(report *model.QualityReport, elapsed time.Duration) {
	r.finish(model.RunStatusComplete, elapsed)

	for _, vec := range []*prometheus.GaugeVec{
		r.Records, r.RecordsByStatus, r.Integrity, r.DepartmentHours, r.DepartmentCost, r.BulkOperations,
	} {
		vec.Reset()
	}

	for kind, n := range report.ByKind {
		r.Records.WithLabelValues(string(kind)).Set(float64(n))
	}
	for status, n := range report.ByMappingStatus {
		r.RecordsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
	for status, n := range report.ByIntegrity {
		r.Integrity.WithLabelValues(string(status)).Set(float64(n))
	}
	for dept, totals := range report.ByDepartment {
		r.DepartmentHours.WithLabelValues(string(dept)).Set(totals.Hours)
		r.DepartmentCost.WithLabelValues(string(dept)).Set(totals.Cost)
	}
	for cat, n := range report.BulkByCategory {
		r.BulkOperations.WithLabelValues(string(cat)).Set(float64(n))
	}

	r.NPTHours.Set(report.NPTHours)
	r.NeedsReview.Set(float64(report.NeedsReview()))
	r.MalformedTokens.Set(float64(report.MalformedLCTokens))
	r.BulkVolumeBbls.Set(report.ReconciledVolumeBbls)
	r.VolumeMismatches.Set(float64(report.VolumeMismatches))
}

// ObserveFailure records a run that ended in error. Last-run gauges keep
// the values of the previous successful run.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	r.finish(model.RunStatusFailed, elapsed)
}

func (r *Recorder) finish(status model.RunStatus, elapsed time.Duration) {
	r.RunsTotal.WithLabelValues(string(status)).Inc()
	r.RunDuration.Observe(elapsed.Seconds())
	r.LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}
