package model

import (
	"fmt"
	"sort"
	"strings"
)

// DepartmentTotals accumulates hours and cost attributed to one department.
type DepartmentTotals struct {
	Records int     `json:"records"`
	Hours   float64 `json:"hours"`
	Cost    float64 `json:"cost"`
}

// QualityReport aggregates data-quality counters for one enrichment run.
type QualityReport struct {
	TotalRecords    int                             `json:"total_records"`
	ByKind          map[RecordKind]int              `json:"by_kind"`
	ByMappingStatus map[MappingStatus]int           `json:"by_mapping_status"`
	ByIntegrity     map[DataIntegrity]int           `json:"by_integrity"`
	ByDepartment    map[Department]DepartmentTotals `json:"by_department"`

	NPTEvents             int     `json:"npt_events"`
	NPTHours              float64 `json:"npt_hours"`
	NeedsReviewActivities int     `json:"needs_review_activities"`

	MalformedLCTokens     int `json:"malformed_lc_tokens"`
	NormalizedAllocations int `json:"normalized_allocations"`

	BulkRecords            int                   `json:"bulk_records"`
	ConsolidatedOperations int                   `json:"consolidated_operations"`
	DuplicatesCollapsed    int                   `json:"duplicates_collapsed"`
	ReconciledVolumeBbls   float64               `json:"reconciled_volume_bbls"`
	VolumeMismatches       int                   `json:"volume_mismatches"`
	BulkWarnings           int                   `json:"bulk_warnings"`
	BulkByCategory         map[FluidCategory]int `json:"bulk_by_category"`
}

// NewQualityReport returns a report with all maps initialised.
func NewQualityReport() *QualityReport {
	return &QualityReport{
		ByKind:          make(map[RecordKind]int),
		ByMappingStatus: make(map[MappingStatus]int),
		ByIntegrity:     make(map[DataIntegrity]int),
		ByDepartment:    make(map[Department]DepartmentTotals),
		BulkByCategory:  make(map[FluidCategory]int),
	}
}

// NeedsReview counts enriched records and bulk operations a reviewer should
// look at.
func (r *QualityReport) NeedsReview() int {
	n := r.NeedsReviewActivities + r.BulkWarnings
	for status, count := range r.ByIntegrity {
		if status.NeedsReview() {
			n += count
		}
	}
	return n
}

// Summary renders a one-paragraph human readable summary.
func (r *QualityReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d records need review", r.NeedsReview())
	fmt.Fprintf(&b, " (%d enriched rows, %d bulk operations from %d bulk rows)",
		r.TotalRecords, r.ConsolidatedOperations, r.BulkRecords)

	if len(r.ByIntegrity) > 0 {
		keys := make([]string, 0, len(r.ByIntegrity))
		for k := range r.ByIntegrity {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, r.ByIntegrity[DataIntegrity(k)]))
		}
		fmt.Fprintf(&b, "; integrity: %s", strings.Join(parts, ", "))
	}
	if r.NPTEvents > 0 {
		fmt.Fprintf(&b, "; NPT: %d events, %.2f hrs", r.NPTEvents, r.NPTHours)
	}
	if r.MalformedLCTokens > 0 {
		fmt.Fprintf(&b, "; malformed LC tokens: %d", r.MalformedLCTokens)
	}
	if r.VolumeMismatches > 0 {
		fmt.Fprintf(&b, "; volume mismatches: %d", r.VolumeMismatches)
	}
	return b.String()
}
