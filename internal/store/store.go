// Package store persists enrichment runs, their enriched records and their
// consolidated bulk operations. SQLite serves local use; Postgres serves
// shared deployments.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// Store defines the persistence interface for enrichment runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source model.RunSource) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, report *model.QualityReport) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outputs. Saving the same output for a run twice is idempotent.
	SaveRecords(ctx context.Context, runID string, records []model.EnrichedRecord) (int64, error)
	SaveOperations(ctx context.Context, runID string, ops []model.ConsolidatedOperation) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var recordColumns = []string{
	"run_id", "seq", "kind", "source_index", "split_index", "vessel", "location",
	"record_date", "allocation_code", "percentage", "department", "final_hours",
	"total_cost", "activity", "mapping_status", "data_integrity", "payload",
}

func recordRow(runID string, seq int, r model.EnrichedRecord) ([]any, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal record")
	}
	return []any{
		runID, seq, string(r.Kind), r.SourceIndex, r.SplitIndex, r.Vessel, r.Location,
		r.Date.UTC(), r.Allocation.Code, r.Allocation.Percentage, string(r.Department), r.FinalHours,
		r.TotalCost, string(r.Activity), string(r.MappingStatus), string(r.DataIntegrity), string(payload),
	}, nil
}

var operationColumns = []string{
	"run_id", "op_id", "vessel", "start_at", "end_at", "fluid_type", "category",
	"volume_bbls", "department", "integrity", "payload",
}

func operationRow(runID string, op model.ConsolidatedOperation) ([]any, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal operation")
	}
	return []any{
		runID, op.ID, op.Vessel, op.Start.UTC(), op.End.UTC(), op.FluidType, string(op.Category),
		op.VolumeBbls, string(op.Department), string(op.Integrity), string(payload),
	}, nil
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func decodeRun(r *model.Run, source []byte, report *string) error {
	if err := json.Unmarshal(source, &r.Source); err != nil {
		return eris.Wrap(err, "store: unmarshal source")
	}
	if report != nil && *report != "" {
		r.Report = model.NewQualityReport()
		if err := json.Unmarshal([]byte(*report), r.Report); err != nil {
			return eris.Wrap(err, "store: unmarshal report")
		}
	}
	return nil
}
