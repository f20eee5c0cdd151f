package enrich

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference/reftest"
)

var day = time.Date(2024, 6, 15, 6, 0, 0, 0, time.UTC)

func fixtureBatch() Batch {
	return Batch{
		Events: []model.RawEventRecord{
			{
				Vessel: "V1", VoyageNumber: "V1-001", ParentEvent: "Cargo Ops", Event: "Offloading",
				Location: "Thunder Horse", Start: day, Hours: 10, CostDedicatedTo: "10052-60,10053",
			},
			{
				Vessel: "Pelican", ParentEvent: "Cargo Ops", Event: "Standby", Remarks: "waiting on weather",
				Location: "Atlantis", Start: day, Hours: 5,
			},
			{
				Vessel: "Skiff", Location: "Nowhere", Start: day, End: day.Add(3 * time.Hour),
				CostDedicatedTo: "ZZ-abc",
			},
		},
		Manifests: []model.RawManifestRecord{
			{Vessel: "Pelican", ManifestNumber: "M-1", OffshoreLocation: "Ocean BlackLion", CostCode: "10070", ManifestDate: day, DeckTons: 40},
		},
		Costs: []model.RawCostRecord{
			{LCNumber: "10080/10053", Location: "Atlantis", PeriodStart: day, AllocatedDays: 1, Amount: 1000},
		},
		Bulk: []model.BulkTransferRecord{
			{Vessel: "V1", Start: day, Action: model.BulkLoad, Quantity: 420, Unit: "gal", FluidType: "Drill Water", Origin: "Port Fourchon", Destination: "Ocean BlackLion"},
			{Vessel: "V1", Start: day.Add(2 * time.Hour), Action: model.BulkDischarge, Quantity: 10, Unit: "bbl", FluidType: "Drill Water", Origin: "Port Fourchon", Destination: "Ocean BlackLion"},
		},
	}
}

func TestRun_Fixture(t *testing.T) {
	t.Parallel()
	e := NewEngine(reftest.Index(t), Options{Workers: 2, ChunkSize: 2})

	res, err := e.Run(context.Background(), fixtureBatch())
	require.NoError(t, err)
	require.Len(t, res.Records, 7)

	ev0a, ev0b := res.Records[0], res.Records[1]
	assert.Equal(t, model.KindEvent, ev0a.Kind)
	assert.Equal(t, 0, ev0a.SourceIndex)
	assert.Equal(t, 2, ev0a.SplitCount)
	assert.Equal(t, "10052", ev0a.Allocation.Code)
	assert.Equal(t, model.DepartmentDrilling, ev0a.Department)
	assert.Equal(t, model.MappingLCMapped, ev0a.MappingStatus)
	assert.InDelta(t, 6.0, ev0a.FinalHours, 1e-9)
	assert.InDelta(t, 1375.0, ev0a.HourlyRate, 1e-9)
	assert.InDelta(t, 8250.0, ev0a.TotalCost, 1e-9)
	assert.Equal(t, model.CostBasisSchedule, ev0a.CostBasis)
	assert.Equal(t, model.ActivityProductive, ev0a.Activity)
	assert.Equal(t, "Thunder Horse PDQ", ev0a.Allocation.ResolvedLocation)
	assert.Equal(t, "Mississippi Canyon", ev0a.Region)

	assert.Equal(t, "10053", ev0b.Allocation.Code)
	assert.Equal(t, model.DepartmentProduction, ev0b.Department)
	assert.InDelta(t, 4.0, ev0b.FinalHours, 1e-9)
	assert.InDelta(t, 5500.0, ev0b.TotalCost, 1e-9)

	ev1 := res.Records[2]
	assert.Equal(t, model.ActivityNonProductive, ev1.Activity)
	assert.Equal(t, "npt-keyword: waiting", ev1.ActivityReason)
	assert.Equal(t, model.DepartmentProduction, ev1.Department)
	assert.Equal(t, model.MappingNoLCInfo, ev1.MappingStatus)
	assert.Equal(t, model.IntegrityMissingLC, ev1.DataIntegrity)
	assert.InDelta(t, 4583.35, ev1.TotalCost, 1e-9)

	ev2 := res.Records[3]
	assert.InDelta(t, 3.0, ev2.RawHours, 1e-9, "hours derived from start and end")
	assert.Equal(t, model.MappingError, ev2.MappingStatus)
	assert.Equal(t, model.IntegrityError, ev2.DataIntegrity)
	assert.Equal(t, model.DepartmentNone, ev2.Department)
	assert.Equal(t, model.ActivityNeedsReview, ev2.Activity)
	assert.Equal(t, model.CostBasisDefaultTier, ev2.CostBasis)
	assert.InDelta(t, 1875.0, ev2.TotalCost, 1e-9)

	man := res.Records[4]
	assert.Equal(t, model.KindManifest, man.Kind)
	assert.Equal(t, model.DepartmentDrilling, man.Department)
	assert.Empty(t, man.Activity)
	assert.Zero(t, man.TotalCost)

	c0, c1 := res.Records[5], res.Records[6]
	assert.Equal(t, model.KindCost, c0.Kind)
	assert.InDelta(t, 12.0, c0.FinalHours, 1e-9)
	assert.InDelta(t, 500.0, c0.TotalCost, 1e-9)
	assert.InDelta(t, 500.0, c1.TotalCost, 1e-9)
	assert.Equal(t, model.DepartmentProduction, c1.Department)
	assert.Zero(t, c0.HourlyRate)

	require.Len(t, res.Operations, 1)
	op := res.Operations[0]
	assert.Equal(t, []int{0, 1}, op.SourceIndexes)
	assert.InDelta(t, 10.0, op.VolumeBbls, 1e-9)
	assert.Equal(t, model.FluidDrilling, op.Category)
	assert.Equal(t, model.DepartmentDrilling, op.Department)

	r := res.Report
	assert.Equal(t, 7, r.TotalRecords)
	assert.Equal(t, map[model.RecordKind]int{model.KindEvent: 4, model.KindManifest: 1, model.KindCost: 2}, r.ByKind)
	assert.Equal(t, 5, r.ByIntegrity[model.IntegrityValid])
	assert.Equal(t, 1, r.ByIntegrity[model.IntegrityMissingLC])
	assert.Equal(t, 1, r.ByIntegrity[model.IntegrityError])
	assert.Equal(t, 1, r.ByMappingStatus[model.MappingError])
	assert.Equal(t, 1, r.NPTEvents)
	assert.InDelta(t, 5.0, r.NPTHours, 1e-9)
	assert.Equal(t, 1, r.NeedsReviewActivities)
	assert.Equal(t, 1, r.MalformedLCTokens)
	assert.Zero(t, r.NormalizedAllocations)
	assert.Equal(t, 2, r.BulkRecords)
	assert.Equal(t, 1, r.ConsolidatedOperations)
	assert.Equal(t, 1, r.DuplicatesCollapsed)
	assert.InDelta(t, 10.0, r.ReconciledVolumeBbls, 1e-9)
	assert.Equal(t, 1, r.BulkByCategory[model.FluidDrilling])

	assert.Equal(t, model.DepartmentTotals{Records: 2, Hours: 6, Cost: 8250}, r.ByDepartment[model.DepartmentDrilling])
	prod := r.ByDepartment[model.DepartmentProduction]
	assert.Equal(t, 4, prod.Records)
	assert.InDelta(t, 33.0, prod.Hours, 1e-9)
	assert.InDelta(t, 11083.35, prod.Cost, 1e-9)

	assert.Equal(t, 3, r.NeedsReview())
	assert.True(t, strings.HasPrefix(r.Summary(), "3 records need review"), r.Summary())
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()
	res, err := NewEngine(reftest.Index(t), Options{}).Run(context.Background(), Batch{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Operations)
	assert.Zero(t, res.Report.TotalRecords)
	assert.Zero(t, res.Report.NeedsReview())
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(reftest.Index(t), Options{}).Run(ctx, fixtureBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich: run")
}

func randomBatch(rng *rand.Rand, n int) Batch {
	vessels := []string{"V1", "Pelican", "Skiff", "Unknown"}
	locations := []string{"Thunder Horse", "Mad Dog", "Atlantis", "Fourchon", "BlackLion", "Open Water", ""}
	codes := []string{"10052", "10053", "10060", "10061", "10070", "10080", "99999", "bad-x"}
	events := []string{"Cargo Ops", "Waiting on weather", "Transit", "Drilling support", ""}

	alloc := func() string {
		k := rng.Intn(4)
		parts := make([]string, k)
		for i := range parts {
			parts[i] = codes[rng.Intn(len(codes))]
			if rng.Intn(2) == 0 {
				parts[i] += fmt.Sprintf("-%d", rng.Intn(70))
			}
		}
		return strings.Join(parts, ",")
	}

	var b Batch
	for i := 0; i < n; i++ {
		b.Events = append(b.Events, model.RawEventRecord{
			Vessel:          vessels[rng.Intn(len(vessels))],
			Event:           events[rng.Intn(len(events))],
			Location:        locations[rng.Intn(len(locations))],
			Start:           day.Add(time.Duration(rng.Intn(24*400)) * time.Hour),
			Hours:           float64(rng.Intn(2400)) / 100,
			CostDedicatedTo: alloc(),
		})
		if i%3 == 0 {
			b.Costs = append(b.Costs, model.RawCostRecord{
				LCNumber:      alloc(),
				Location:      locations[rng.Intn(len(locations))],
				AllocatedDays: float64(rng.Intn(300)) / 10,
				Amount:        float64(rng.Intn(1000000)) / 100,
			})
		}
		if i%2 == 0 {
			b.Bulk = append(b.Bulk, model.BulkTransferRecord{
				Vessel:      vessels[rng.Intn(len(vessels))],
				Start:       day.Add(time.Duration(rng.Intn(600)) * time.Minute),
				Action:      model.BulkAction([]string{"load", "discharge"}[rng.Intn(2)]),
				Quantity:    float64(rng.Intn(1000)),
				Unit:        "bbl",
				FluidType:   "Diesel",
				Origin:      "Fourchon",
				Destination: locations[rng.Intn(3)],
			})
		}
	}
	return b
}

func TestRun_DeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)
	batch := randomBatch(rand.New(rand.NewSource(11)), 300)

	serial, err := NewEngine(idx, Options{Workers: 1, ChunkSize: 1000}).Run(context.Background(), batch)
	require.NoError(t, err)

	for _, opts := range []Options{
		{Workers: 4, ChunkSize: 7},
		{Workers: 16, ChunkSize: 1},
		{ChunkSize: 50},
	} {
		parallel, err := NewEngine(idx, opts).Run(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, serial.Records, parallel.Records, "%+v", opts)
		assert.Equal(t, serial.Operations, parallel.Operations, "%+v", opts)
		assert.Equal(t, serial.Report, parallel.Report, "%+v", opts)
	}
}

// Splitting never gains or loses hours, and ledger amounts are conserved.
func TestRun_HoursConserved(t *testing.T) {
	t.Parallel()
	batch := randomBatch(rand.New(rand.NewSource(23)), 200)
	res, err := NewEngine(reftest.Index(t), Options{Workers: 3, ChunkSize: 16}).Run(context.Background(), batch)
	require.NoError(t, err)

	type key struct {
		kind  model.RecordKind
		index int
	}
	hours := make(map[key]float64)
	amounts := make(map[key]float64)
	for _, rec := range res.Records {
		k := key{rec.Kind, rec.SourceIndex}
		hours[k] += rec.FinalHours
		if rec.Kind == model.KindCost {
			amounts[k] += rec.TotalCost
		}
	}

	for i, ev := range batch.Events {
		assert.InDelta(t, ev.Hours, hours[key{model.KindEvent, i}], 0.01, "event %d", i)
	}
	for i, c := range batch.Costs {
		assert.InDelta(t, c.Hours(), hours[key{model.KindCost, i}], 0.01, "cost %d", i)
		assert.InDelta(t, c.Amount, amounts[key{model.KindCost, i}], 0.01, "cost %d", i)
	}

	seen := make(map[int]int)
	for _, op := range res.Operations {
		for _, idx := range op.SourceIndexes {
			seen[idx]++
		}
	}
	assert.Len(t, seen, len(batch.Bulk))
	for idx, n := range seen {
		assert.Equal(t, 1, n, "bulk record %d", idx)
	}
	assert.Equal(t, len(batch.Bulk)-len(res.Operations), res.Report.DuplicatesCollapsed)
}

func TestBatch_Size(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 7, fixtureBatch().Size())
}
