// Package bulk reconstructs physical bulk fluid movements from transfer
// records that may be duplicated or reported from both the origin and the
// destination side.
package bulk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ancientfall/logistics-enrich/internal/department"
	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference"
)

// Defaults for Options.
const (
	DefaultWindow             = 4 * time.Hour
	DefaultVolumeTolerancePct = 5.0
)

// Options tunes grouping and volume reconciliation.
type Options struct {
	// Window is the maximum time between the first record of a group and any
	// later record joining it.
	Window time.Duration

	// VolumeTolerancePct is the allowed disagreement between two volumes of
	// one transfer, as a percentage of the larger one. It applies between
	// origin and destination, and between records reported from the same
	// side, which only merge as re-uploads when they agree.
	VolumeTolerancePct float64

	// DefaultDensity (kg/m3) converts mass units when a record has none.
	DefaultDensity float64
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.VolumeTolerancePct <= 0 {
		o.VolumeTolerancePct = DefaultVolumeTolerancePct
	}
	if o.DefaultDensity <= 0 {
		o.DefaultDensity = DefaultDensityKgPerM3
	}
	return o
}

// Engine groups, consolidates and classifies bulk transfer records. It holds
// no per-batch state and is safe for concurrent use.
type Engine struct {
	opts       Options
	idx        *reference.Index
	classifier *department.Classifier
}

// NewEngine creates an Engine over idx.
func NewEngine(idx *reference.Index, opts Options) *Engine {
	return &Engine{
		opts:       opts.withDefaults(),
		idx:        idx,
		classifier: department.NewClassifier(idx),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// group is a candidate set of records describing one physical transfer.
type group struct {
	anchor  time.Time
	tank    string
	fluid   string
	members []int

	// side holds the first non-zero barrel volume seen on the origin (0)
	// and destination (1) side.
	side [2]float64
}

// Consolidate turns a batch of transfer records into consolidated
// operations. Every input index appears in exactly one operation.
func (e *Engine) Consolidate(records []model.BulkTransferRecord) []model.ConsolidatedOperation {
	groups := e.group(records)
	ops := make([]model.ConsolidatedOperation, len(groups))
	for i, g := range groups {
		ops[i] = e.consolidate(fmt.Sprintf("op-%05d", i+1), g, records)
	}
	return ops
}

// group sorts the batch by (vessel, start, index) and assigns each record to
// the most recent open group on its vessel and route that it is compatible
// with. A record whose volume disagrees with a same-side member starts its
// own group, so distinct transfers are never merged away.
func (e *Engine) group(records []model.BulkTransferRecord) []*group {
	order := make([]int, len(records))
	vessels := make([]string, len(records))
	for i := range records {
		order[i] = i
		vessels[i] = reference.NormalizeName(records[i].Vessel)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := order[a], order[b]
		if vessels[ra] != vessels[rb] {
			return vessels[ra] < vessels[rb]
		}
		if !records[ra].Start.Equal(records[rb].Start) {
			return records[ra].Start.Before(records[rb].Start)
		}
		return ra < rb
	})

	var groups []*group
	open := make(map[string][]*group)
	for _, i := range order {
		r := records[i]
		key := vessels[i] + "|" + reference.NormalizeName(r.Origin) + "|" + reference.NormalizeName(r.Destination)
		tank := reference.NormalizeName(r.Tank)
		fluid := reference.NormalizeName(r.FluidType)
		side := sideOf(r.Action)
		bbls := convert(r.Quantity, r.Unit, r.Density, e.opts.DefaultDensity).bbls

		var target *group
		candidates := open[key]
		for j := len(candidates) - 1; j >= 0; j-- {
			g := candidates[j]
			if r.Start.Sub(g.anchor) > e.opts.Window {
				break
			}
			if compatible(g.tank, tank) && compatible(g.fluid, fluid) &&
				e.agree(g.side[side], bbls) {
				target = g
				break
			}
		}

		if target == nil {
			target = &group{anchor: r.Start}
			groups = append(groups, target)
			open[key] = append(open[key], target)
		}
		if target.tank == "" {
			target.tank = tank
		}
		if target.fluid == "" {
			target.fluid = fluid
		}
		if target.side[side] == 0 {
			target.side[side] = bbls
		}
		target.members = append(target.members, i)
	}
	return groups
}

func sideOf(a model.BulkAction) int {
	if a == model.BulkDischarge {
		return 1
	}
	return 0
}

// agree reports whether two volumes are within VolumeTolerancePct of the
// larger one. A zero volume agrees with anything.
func (e *Engine) agree(a, b float64) bool {
	if a <= 0 || b <= 0 {
		return true
	}
	return math.Abs(a-b) <= math.Max(a, b)*e.opts.VolumeTolerancePct/100
}

// compatible reports whether two optional attributes can describe the same
// transfer: they are equal or at least one is missing.
func compatible(a, b string) bool {
	return a == "" || b == "" || a == b
}

func (e *Engine) consolidate(id string, g *group, records []model.BulkTransferRecord) model.ConsolidatedOperation {
	first := records[g.members[0]]
	op := model.ConsolidatedOperation{
		ID:            id,
		SourceIndexes: append([]int(nil), g.members...),
		Vessel:        first.Vessel,
		Start:         first.Start,
		End:           first.Start,
		Origin:        first.Origin,
		Destination:   first.Destination,
	}
	sort.Ints(op.SourceIndexes)

	flags := make(map[model.BulkFlag]bool)
	var originBbls, destBbls float64
	for _, i := range g.members {
		r := records[i]
		if r.Start.After(op.End) {
			op.End = r.Start
		}
		if op.Tank == "" {
			op.Tank = r.Tank
		}
		if op.FluidType == "" {
			op.FluidType = r.FluidType
		}
		if op.Description == "" {
			op.Description = r.Description
		}

		c := convert(r.Quantity, r.Unit, r.Density, e.opts.DefaultDensity)
		for _, f := range c.flags {
			flags[f] = true
		}
		if r.Action == model.BulkDischarge {
			destBbls = math.Max(destBbls, c.bbls)
		} else {
			originBbls = math.Max(originBbls, c.bbls)
		}
	}

	op.OriginVolumeBbls = round3(originBbls)
	op.DestinationVolumeBbls = round3(destBbls)
	larger := math.Max(originBbls, destBbls)
	if !e.agree(originBbls, destBbls) {
		flags[model.FlagVolumeMismatch] = true
	}
	op.VolumeBbls = round3(larger)

	op.Category = Classify(e.idx.Taxonomy(), op.FluidType, op.Description)
	op.IsDrillingFluid = op.Category == model.FluidDrilling
	op.IsCompletionFluid = op.Category == model.FluidCompletion
	op.Department = e.department(op)

	op.Integrity = model.BulkIntegrityValid
	for _, f := range []model.BulkFlag{
		model.FlagVolumeMismatch, model.FlagUnknownUnit,
		model.FlagMissingQuantity, model.FlagDensityDefaulted,
	} {
		if !flags[f] {
			continue
		}
		op.Flags = append(op.Flags, f)
		if f != model.FlagDensityDefaulted {
			op.Integrity = model.BulkIntegrityWarning
		}
	}
	return op
}

// department attributes the operation to the destination facility, or the
// origin when the destination is not a known facility.
func (e *Engine) department(op model.ConsolidatedOperation) model.Department {
	text := op.FluidType + " " + op.Description
	for _, loc := range []string{op.Destination, op.Origin} {
		if _, ok := e.idx.MatchFacility(loc); !ok {
			continue
		}
		return e.classifier.Classify(department.Input{Location: loc, Event: text}).Department
	}
	return model.DepartmentNone
}

// Classify maps fluid text to a category; the first taxonomy rule with a
// keyword on word boundaries wins.
func Classify(taxonomy []reference.FluidCategoryRule, fluidType, description string) model.FluidCategory {
	text := reference.NormalizeName(fluidType + " " + description)
	for _, rule := range taxonomy {
		for _, k := range rule.Keywords {
			if reference.ContainsWord(text, k) {
				return rule.Category
			}
		}
	}
	return model.FluidOther
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
