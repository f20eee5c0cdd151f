// Package enrich drives allocation splitting, department classification,
// vessel costing, activity labelling and bulk consolidation over one batch
// and aggregates the quality report.
package enrich

import (
	"context"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ancientfall/logistics-enrich/internal/activity"
	"github.com/ancientfall/logistics-enrich/internal/allocation"
	"github.com/ancientfall/logistics-enrich/internal/bulk"
	"github.com/ancientfall/logistics-enrich/internal/cost"
	"github.com/ancientfall/logistics-enrich/internal/department"
	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference"
)

// DefaultChunkSize is the number of source rows handled by one worker task.
const DefaultChunkSize = 500

// Options configures an Engine.
type Options struct {
	Workers          int
	ChunkSize        int
	PercentTolerance float64
	Bulk             bulk.Options
}

// Batch is one set of already-parsed source rows.
type Batch struct {
	Events    []model.RawEventRecord
	Manifests []model.RawManifestRecord
	Costs     []model.RawCostRecord
	Bulk      []model.BulkTransferRecord
}

// Size returns the number of source rows in the batch.
func (b Batch) Size() int {
	return len(b.Events) + len(b.Manifests) + len(b.Costs) + len(b.Bulk)
}

// Result is the output of one run. Records follow input order: events,
// then manifests, then costs, each source row expanded into its splits.
type Result struct {
	Records    []model.EnrichedRecord        `json:"records"`
	Operations []model.ConsolidatedOperation `json:"operations"`
	Report     *model.QualityReport          `json:"report"`
}

// Engine is a pure batch transform over immutable reference data. It is safe
// for concurrent use.
type Engine struct {
	opts       Options
	parser     allocation.Parser
	department *department.Classifier
	cost       *cost.Calculator
	activity   *activity.Classifier
	bulk       *bulk.Engine
}

// NewEngine wires the classifiers over idx.
func NewEngine(idx *reference.Index, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Engine{
		opts:       opts,
		parser:     allocation.NewParser(opts.PercentTolerance),
		department: department.NewClassifier(idx),
		cost:       cost.NewCalculator(idx),
		activity:   activity.NewClassifier(),
		bulk:       bulk.NewEngine(idx, opts.Bulk),
	}
}

// source is one row of pass A, normalised across the three record kinds.
type source struct {
	kind        model.RecordKind
	index       int
	vessel      string
	voyage      string
	parentEvent string
	event       string
	location    string
	date        time.Time
	hours       float64
	allocation  string
	remarks     string
	amount      float64
}

// rowResult is what one source row contributes to the run.
type rowResult struct {
	records    []model.EnrichedRecord
	malformed  int
	normalized bool
}

// Run enriches b. The only error is cancellation of ctx between chunks.
func (e *Engine) Run(ctx context.Context, b Batch) (*Result, error) {
	started := time.Now()
	sources := collect(b)
	rows := make([]rowResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers + 1)

	var ops []model.ConsolidatedOperation
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		ops = e.bulk.Consolidate(b.Bulk)
		return nil
	})

	for lo := 0; lo < len(sources); lo += e.opts.ChunkSize {
		hi := min(lo+e.opts.ChunkSize, len(sources))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				rows[i] = e.enrich(sources[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "enrich: run")
	}

	res := &Result{Operations: ops, Report: model.NewQualityReport()}
	n := 0
	for _, r := range rows {
		n += len(r.records)
	}
	res.Records = make([]model.EnrichedRecord, 0, n)
	for _, r := range rows {
		res.Records = append(res.Records, r.records...)
		res.Report.MalformedLCTokens += r.malformed
		if r.normalized {
			res.Report.NormalizedAllocations++
		}
	}
	aggregate(res.Report, res.Records, len(b.Bulk), ops)

	zap.L().Debug("enrich: run complete",
		zap.String("component", "enrich"),
		zap.Int("source_rows", len(sources)),
		zap.Int("records", len(res.Records)),
		zap.Int("operations", len(ops)),
		zap.Int("needs_review", res.Report.NeedsReview()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func collect(b Batch) []source {
	out := make([]source, 0, len(b.Events)+len(b.Manifests)+len(b.Costs))
	for i, ev := range b.Events {
		out = append(out, source{
			kind:        model.KindEvent,
			index:       i,
			vessel:      ev.Vessel,
			voyage:      ev.VoyageNumber,
			parentEvent: ev.ParentEvent,
			event:       ev.Event,
			location:    ev.Location,
			date:        ev.Start,
			hours:       eventHours(ev),
			allocation:  ev.CostDedicatedTo,
			remarks:     ev.Remarks,
		})
	}
	for i, m := range b.Manifests {
		out = append(out, source{
			kind:       model.KindManifest,
			index:      i,
			vessel:     m.Vessel,
			voyage:     m.VoyageNumber,
			event:      m.CargoType,
			location:   m.OffshoreLocation,
			date:       m.ManifestDate,
			allocation: m.CostCode,
			remarks:    m.Remarks,
		})
	}
	for i, c := range b.Costs {
		out = append(out, source{
			kind:       model.KindCost,
			index:      i,
			event:      c.Description,
			location:   c.Location,
			date:       c.PeriodStart,
			hours:      c.Hours(),
			allocation: c.LCNumber,
			amount:     c.Amount,
		})
	}
	return out
}

// eventHours prefers the exported hours column and falls back to the
// start/end span when it is missing.
func eventHours(ev model.RawEventRecord) float64 {
	if ev.Hours > 0 {
		return ev.Hours
	}
	if !ev.Start.IsZero() && ev.End.After(ev.Start) {
		return ev.End.Sub(ev.Start).Hours()
	}
	return 0
}

func (e *Engine) enrich(s source) rowResult {
	parsed := e.parser.Parse(s.allocation, s.hours)
	out := rowResult{
		records:    make([]model.EnrichedRecord, len(parsed.Shares)),
		malformed:  parsed.Malformed,
		normalized: parsed.Normalized,
	}

	var label activity.Label
	if s.kind == model.KindEvent {
		label = e.activity.Classify(s.parentEvent, s.event, s.remarks)
	}
	amounts := splitAmount(s.amount, parsed.Shares)

	for i, share := range parsed.Shares {
		d := e.department.Classify(department.Input{
			Code:         share.Split.Code,
			Location:     s.location,
			ParentEvent:  s.parentEvent,
			Event:        s.event,
			ParserStatus: share.Split.MappingStatus,
		})

		split := share.Split
		split.ResolvedLocation = d.ResolvedLocation
		split.IsSpecialCase = d.IsSpecialCase
		split.MappingStatus = d.MappingStatus

		rec := model.EnrichedRecord{
			Kind:           s.kind,
			SourceIndex:    s.index,
			SplitIndex:     i,
			SplitCount:     len(parsed.Shares),
			Vessel:         s.vessel,
			VoyageNumber:   s.voyage,
			ParentEvent:    s.parentEvent,
			Event:          s.event,
			Location:       s.location,
			Date:           s.date,
			RawHours:       s.hours,
			AllocationText: s.allocation,
			Remarks:        s.remarks,
			Allocation:     split,
			Department:     d.Department,
			ParentFacility: d.ParentFacility,
			Region:         d.Region,
			FinalHours:     share.Hours,
			Activity:       label.Category,
			ActivityReason: label.Reason,
			MappingStatus:  d.MappingStatus,
			DataIntegrity:  d.DataIntegrity,
		}

		switch {
		case s.kind == model.KindEvent && share.Hours > 0:
			c := e.cost.Compute(s.vessel, s.date, share.Hours)
			rec.HourlyRate = c.Hourly
			rec.TotalCost = c.Total
			rec.RatePeriod = c.Period
			rec.CostBasis = c.Basis
		case s.kind == model.KindCost:
			rec.TotalCost = amounts[i]
		}
		out.records[i] = rec
	}
	return out
}

// splitAmount apportions a ledger amount by share percentage in cents, with
// the rounding remainder on the last share.
func splitAmount(amount float64, shares []allocation.Share) []float64 {
	out := make([]float64, len(shares))
	if amount == 0 || len(shares) == 0 {
		return out
	}
	total := cost.Cents(amount)
	var used float64
	for i, s := range shares {
		if i == len(shares)-1 {
			out[i] = cost.Cents(total - used)
			break
		}
		out[i] = cost.Cents(amount * s.Split.Percentage / 100)
		used += out[i]
	}
	return out
}

func aggregate(r *model.QualityReport, records []model.EnrichedRecord, bulkRows int, ops []model.ConsolidatedOperation) {
	for _, rec := range records {
		r.TotalRecords++
		r.ByKind[rec.Kind]++
		r.ByMappingStatus[rec.MappingStatus]++
		r.ByIntegrity[rec.DataIntegrity]++

		t := r.ByDepartment[rec.Department]
		t.Records++
		t.Hours = allocation.Round2(t.Hours + rec.FinalHours)
		t.Cost = cost.Cents(t.Cost + rec.TotalCost)
		r.ByDepartment[rec.Department] = t

		switch rec.Activity {
		case model.ActivityNonProductive:
			if rec.SplitIndex == 0 {
				r.NPTEvents++
			}
			r.NPTHours = allocation.Round2(r.NPTHours + rec.FinalHours)
		case model.ActivityNeedsReview:
			if rec.SplitIndex == 0 {
				r.NeedsReviewActivities++
			}
		}
	}

	r.BulkRecords = bulkRows
	r.ConsolidatedOperations = len(ops)
	r.DuplicatesCollapsed = bulkRows - len(ops)
	var volume float64
	for _, op := range ops {
		volume += op.VolumeBbls
		r.BulkByCategory[op.Category]++
		if op.HasFlag(model.FlagVolumeMismatch) {
			r.VolumeMismatches++
		}
		if op.Integrity == model.BulkIntegrityWarning {
			r.BulkWarnings++
		}
	}
	r.ReconciledVolumeBbls = allocation.Round2(volume)
}
