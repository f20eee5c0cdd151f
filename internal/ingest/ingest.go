// Package ingest maps spreadsheet exports onto the raw record types. Column
// headers are matched by alias, so the same code reads the variants different
// offices export. Rows are never dropped: a cell that cannot be parsed leaves
// the zero value in place and is reported as an Issue.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ancientfall/logistics-enrich/internal/fetcher"
	"github.com/ancientfall/logistics-enrich/internal/model"
)

// Source names an export kind.
type Source string

const (
	SourceEvents    Source = "events"
	SourceManifests Source = "manifests"
	SourceCosts     Source = "costs"
	SourceBulk      Source = "bulk"
)

// Issue is a cell that could not be parsed.
type Issue struct {
	Source  Source `json:"source"`
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s row %d, %s %q: %s", i.Source, i.Row, i.Column, i.Value, i.Message)
}

var (
	colVessel       = col("vessel", "vessel name", "ship")
	colVoyage       = col("voyage number", "voyage", "voyage #", "voyage no", "voyage id")
	colParentEvent  = col("parent event", "parent event name", "event category")
	colEvent        = col("event", "event name", "activity")
	colLocation     = col("location", "offshore location", "site")
	colStart        = col("start", "from", "start time", "event start", "start date")
	colEnd          = col("end", "to", "end time", "event end", "end date")
	colHours        = col("hours", "duration", "duration hrs", "final hours")
	colCostDedTo    = col("cost dedicated to", "cost dedicated", "lc allocation", "allocation")
	colRemarks      = col("remarks", "comments", "notes")
	colManifest     = col("manifest number", "manifest", "manifest #", "manifest no")
	colOffshoreLoc  = col("offshore location", "destination", "location", "install")
	colCostCode     = col("cost code", "lc number", "lc", "cost centre", "cost center")
	colManifestDate = col("manifest date", "date", "sailing date")
	colDeckTons     = col("deck tons", "deck tons metric", "deck t")
	colRTTons       = col("rt tons", "revenue tons", "rt")
	colLifts        = col("lifts", "lift count", "no of lifts")
	colCargoType    = col("cargo type", "cargo", "type")
	colLCNumber     = col("lc number", "lc", "cost code", "lc no")
	colCostLocation = col("location", "rig location", "facility")
	colDescription  = col("description", "rig reference", "details")
	colPeriodStart  = col("period start", "month", "period", "date")
	colAllocDays    = col("allocated days", "days", "total allocated days")
	colAmount       = col("amount", "total cost", "cost", "allocated cost")
	colBulkStart    = col("start date", "start", "date", "transfer date")
	colPortType     = col("port type", "port")
	colAction       = col("action", "bulk action", "operation")
	colQuantity     = col("qty", "quantity", "volume", "amount transferred")
	colUnit         = col("unit", "uom", "units", "unit of measure")
	colFluidType    = col("fluid type", "bulk type", "fluid", "product")
	colBulkDesc     = col("bulk description", "description", "fluid description")
	colOrigin       = col("origin", "from", "at port", "source")
	colDestination  = col("destination", "to", "destination port", "delivered to")
	colTank         = col("tank", "tank number", "tank no")
	colDensity      = col("density", "density kg m3", "density kgm3")
)

// Events maps a voyage events export.
func Events(t *fetcher.Table) ([]model.RawEventRecord, []Issue, error) {
	cols := mapColumns(t.Header)
	if err := requireColumns(cols, SourceEvents, colVessel); err != nil {
		return nil, nil, err
	}
	if !cols.has(colHours) && !(cols.has(colStart) && cols.has(colEnd)) {
		return nil, nil, eris.Errorf("ingest: %s: need %q or both %q and %q columns",
			SourceEvents, colHours.name, colStart.name, colEnd.name)
	}

	var issues []Issue
	out := make([]model.RawEventRecord, len(t.Rows))
	for i, cells := range t.Rows {
		r := newRow(SourceEvents, t, i, cells, cols, &issues)
		out[i] = model.RawEventRecord{
			Vessel:          r.text(colVessel),
			VoyageNumber:    r.text(colVoyage),
			ParentEvent:     r.text(colParentEvent),
			Event:           r.text(colEvent),
			Location:        r.text(colLocation),
			Start:           r.time(colStart),
			End:             r.time(colEnd),
			Hours:           r.number(colHours),
			CostDedicatedTo: r.text(colCostDedTo),
			Remarks:         r.text(colRemarks),
		}
	}
	return out, issues, nil
}

// Manifests maps a cargo manifests export.
func Manifests(t *fetcher.Table) ([]model.RawManifestRecord, []Issue, error) {
	cols := mapColumns(t.Header)
	if err := requireColumns(cols, SourceManifests, colVessel, colOffshoreLoc); err != nil {
		return nil, nil, err
	}

	var issues []Issue
	out := make([]model.RawManifestRecord, len(t.Rows))
	for i, cells := range t.Rows {
		r := newRow(SourceManifests, t, i, cells, cols, &issues)
		out[i] = model.RawManifestRecord{
			Vessel:           r.text(colVessel),
			VoyageNumber:     r.text(colVoyage),
			ManifestNumber:   r.text(colManifest),
			OffshoreLocation: r.text(colOffshoreLoc),
			CostCode:         r.text(colCostCode),
			ManifestDate:     r.time(colManifestDate),
			DeckTons:         r.number(colDeckTons),
			RTTons:           r.number(colRTTons),
			Lifts:            r.integer(colLifts),
			CargoType:        r.text(colCargoType),
			Remarks:          r.text(colRemarks),
		}
	}
	return out, issues, nil
}

// Costs maps a cost-allocation ledger export.
func Costs(t *fetcher.Table) ([]model.RawCostRecord, []Issue, error) {
	cols := mapColumns(t.Header)
	if err := requireColumns(cols, SourceCosts, colLCNumber); err != nil {
		return nil, nil, err
	}

	var issues []Issue
	out := make([]model.RawCostRecord, len(t.Rows))
	for i, cells := range t.Rows {
		r := newRow(SourceCosts, t, i, cells, cols, &issues)
		out[i] = model.RawCostRecord{
			LCNumber:      r.text(colLCNumber),
			Location:      r.text(colCostLocation),
			Description:   r.text(colDescription),
			PeriodStart:   r.time(colPeriodStart),
			AllocatedDays: r.number(colAllocDays),
			Amount:        r.number(colAmount),
		}
	}
	return out, issues, nil
}

// Bulk maps a bulk fluid actions export.
func Bulk(t *fetcher.Table) ([]model.BulkTransferRecord, []Issue, error) {
	cols := mapColumns(t.Header)
	if err := requireColumns(cols, SourceBulk, colVessel, colQuantity, colFluidType); err != nil {
		return nil, nil, err
	}

	var issues []Issue
	out := make([]model.BulkTransferRecord, len(t.Rows))
	for i, cells := range t.Rows {
		r := newRow(SourceBulk, t, i, cells, cols, &issues)
		out[i] = model.BulkTransferRecord{
			Vessel:      r.text(colVessel),
			Start:       r.time(colBulkStart),
			PortType:    r.text(colPortType),
			Action:      r.action(colAction),
			Quantity:    r.number(colQuantity),
			Unit:        r.text(colUnit),
			FluidType:   r.text(colFluidType),
			Description: r.text(colBulkDesc),
			Origin:      r.text(colOrigin),
			Destination: r.text(colDestination),
			Tank:        r.text(colTank),
			Density:     r.number(colDensity),
		}
	}
	return out, issues, nil
}

func requireColumns(cols columns, src Source, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if !cols.has(f) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("ingest: %s: missing columns: %s", src, strings.Join(missing, ", "))
	}
	return nil
}

// row reads typed cells from one data row, appending parse failures.
type row struct {
	src    Source
	n      int
	cells  []string
	cols   columns
	issues *[]Issue
}

func newRow(src Source, t *fetcher.Table, i int, cells []string, cols columns, issues *[]Issue) row {
	return row{src: src, n: t.Line(i), cells: cells, cols: cols, issues: issues}
}

func (r row) text(f field) string {
	i, ok := r.cols.index(f)
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) report(f field, value, msg string) {
	*r.issues = append(*r.issues, Issue{Source: r.src, Row: r.n, Column: f.name, Value: value, Message: msg})
}

func (r row) number(f field) float64 {
	s := r.text(f)
	if s == "" {
		return 0
	}
	v, ok := parseNumber(s)
	if !ok {
		r.report(f, s, "not a number")
	}
	return v
}

func (r row) integer(f field) int {
	v := r.number(f)
	if v != float64(int(v)) {
		r.report(f, r.text(f), "not a whole number")
	}
	return int(v)
}

func (r row) time(f field) time.Time {
	s := r.text(f)
	if s == "" {
		return time.Time{}
	}
	t, ok := parseTime(s)
	if !ok {
		r.report(f, s, "not a recognised date")
	}
	return t
}

var actionAliases = map[string]model.BulkAction{
	"load":        model.BulkLoad,
	"loaded":      model.BulkLoad,
	"loading":     model.BulkLoad,
	"backload":    model.BulkLoad,
	"discharge":   model.BulkDischarge,
	"discharged":  model.BulkDischarge,
	"offload":     model.BulkDischarge,
	"offloaded":   model.BulkDischarge,
	"delivered":   model.BulkDischarge,
	"transfer":    model.BulkTransfer,
	"transfered":  model.BulkTransfer,
	"transferred": model.BulkTransfer,
}

func (r row) action(f field) model.BulkAction {
	s := r.text(f)
	if s == "" {
		return ""
	}
	a, ok := actionAliases[strings.ToLower(s)]
	if !ok {
		r.report(f, s, "unknown bulk action")
	}
	return a
}
