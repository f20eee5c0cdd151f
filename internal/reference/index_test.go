package reference_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference"
	"github.com/ancientfall/logistics-enrich/internal/reference/reftest"
)

func TestCompile_Fixture(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)

	assert.Len(t, idx.Facilities(), 6)
	assert.Len(t, idx.Tiers(), 4)
	assert.NotEmpty(t, idx.Taxonomy())
}

func TestMatchFacility(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)

	tests := []struct {
		location string
		want     string
		ok       bool
	}{
		{"Thunder Horse PDQ", "Thunder Horse PDQ", true},
		{"  thunder   HORSE ", "Thunder Horse PDQ", true},
		{"Mad Dog Drilling", "Mad Dog", true},
		{"Fourchon dock 3", "Port Fourchon", true},
		{"BlackLion", "Ocean BlackLion", true},
		{"Atlantisville", "", false},
		{"", "", false},
		{"Somewhere Else", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			t.Parallel()
			f, ok := idx.MatchFacility(tt.location)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, f.Name)
			}
		})
	}
}

func TestCode(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)

	owner, ok := idx.Code(" 10053 ")
	require.True(t, ok)
	assert.Equal(t, model.DepartmentProduction, owner.Department)
	assert.Equal(t, "Thunder Horse PDQ", owner.Facility.Name)

	owner, ok = idx.Code("10070")
	require.True(t, ok)
	assert.Equal(t, model.DepartmentDrilling, owner.Department)

	_, ok = idx.Code("99999")
	assert.False(t, ok)
}

func TestRegion_InheritedFromParent(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)

	f, ok := idx.Facility("Deepwater Asgard")
	require.True(t, ok)
	assert.Equal(t, "Green Canyon", idx.Region(f))

	parent, ok := idx.Parent(f)
	require.True(t, ok)
	assert.Equal(t, "Mad Dog", parent.Name)
}

func TestVessel_Alias(t *testing.T) {
	t.Parallel()
	idx := reftest.Index(t)

	v, ok := idx.Vessel("m/v pelican")
	require.True(t, ok)
	assert.Equal(t, "PSV-Medium", v.Class)
}

func TestCompile_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*reference.Tables)
		wantErr string
	}{
		{
			name: "overlapping rate entries",
			mutate: func(tb *reference.Tables) {
				tb.Rates = append(tb.Rates, reference.RateScheduleEntry{
					Class: "fsv-large", EffectiveStart: reftest.Date(2024, 6, 1),
					EffectiveEnd: reftest.DatePtr(2024, 9, 1), DailyRate: 30000,
				})
			},
			wantErr: "overlap",
		},
		{
			name: "two open-ended entries",
			mutate: func(tb *reference.Tables) {
				tb.Rates = append(tb.Rates, reference.RateScheduleEntry{
					Class: "FSV-Large", EffectiveStart: reftest.Date(2026, 1, 1), DailyRate: 36000,
				})
			},
			wantErr: "overlap",
		},
		{
			name: "end before start",
			mutate: func(tb *reference.Tables) {
				tb.Rates = append(tb.Rates, reference.RateScheduleEntry{
					Class: "PSV-Medium", EffectiveStart: reftest.Date(2024, 6, 1),
					EffectiveEnd: reftest.DatePtr(2024, 5, 1), DailyRate: 20000,
				})
			},
			wantErr: "ends before it starts",
		},
		{
			name: "integrated without production capability",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[0].ProductionCapable = false
			},
			wantErr: "is integrated but not both",
		},
		{
			name: "base claiming drilling capability",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[5].DrillingCapable = true
			},
			wantErr: "is a base",
		},
		{
			name: "code listed as drilling and production",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[4].ProductionCodes = append(tb.Facilities[4].ProductionCodes, "10070")
			},
			wantErr: "listed as both",
		},
		{
			name: "duplicate alias across facilities",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[4].Aliases = append(tb.Facilities[4].Aliases, "Fourchon")
			},
			wantErr: "used by both",
		},
		{
			name: "unknown parent",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[3].ParentFacility = "Nowhere"
			},
			wantErr: "unknown parent",
		},
		{
			name: "parent cycle",
			mutate: func(tb *reference.Tables) {
				tb.Facilities[1].ParentFacility = "Deepwater Asgard"
			},
			wantErr: "parent cycle",
		},
		{
			name: "unknown fluid category",
			mutate: func(tb *reference.Tables) {
				tb.FluidTaxonomy = append(tb.FluidTaxonomy, reference.FluidCategoryRule{
					Category: "Slurry", Keywords: []string{"slurry"},
				})
			},
			wantErr: "unknown category",
		},
		{
			name: "duplicate tier threshold",
			mutate: func(tb *reference.Tables) {
				tb.DefaultTiers = append(tb.DefaultTiers, reference.SizeTier{MinLengthFt: 200, DailyRate: 1, Label: "dup"})
			},
			wantErr: "repeat length threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tb := reftest.Tables()
			tt.mutate(&tb)
			_, err := reference.Compile(tb)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompile_AdjacentRatesDoNotOverlap(t *testing.T) {
	t.Parallel()
	tb := reftest.Tables()
	tb.Rates = []reference.RateScheduleEntry{
		{Class: "PSV", EffectiveStart: reftest.Date(2024, 1, 1), EffectiveEnd: reftest.DatePtr(2024, 7, 1), DailyRate: 20000},
		{Class: "PSV", EffectiveStart: reftest.Date(2024, 7, 1), EffectiveEnd: reftest.DatePtr(2025, 1, 1), DailyRate: 21000},
	}
	_, err := reference.Compile(tb)
	assert.NoError(t, err)
}

func TestRateScheduleEntry_Contains(t *testing.T) {
	t.Parallel()
	e := reference.RateScheduleEntry{
		EffectiveStart: reftest.Date(2024, 1, 1),
		EffectiveEnd:   reftest.DatePtr(2024, 12, 31),
	}
	assert.True(t, e.Contains(reftest.Date(2024, 1, 1)))
	assert.True(t, e.Contains(reftest.Date(2024, 6, 15)))
	assert.False(t, e.Contains(reftest.Date(2024, 12, 31)))
	assert.False(t, e.Contains(reftest.Date(2023, 12, 31)))

	open := reference.RateScheduleEntry{EffectiveStart: reftest.Date(2025, 1, 1)}
	assert.True(t, open.Contains(reftest.Date(2030, 1, 1)))
}

const sampleYAML = `
facilities:
  - name: Thunder Horse PDQ
    type: integrated
    drilling_capable: true
    production_capable: true
    drilling_codes: ["10052"]
    production_codes: ["10053"]
  - name: Port Fourchon
    type: base
vessels:
  - name: V1
    class: FSV-Large
    length_ft: 280
rates:
  - class: FSV-Large
    effective_start: 2024-01-01
    effective_end: 2024-12-31
    daily_rate: 33000
`

func TestLoadAndCompile_YAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reference.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	idx, err := reference.LoadAndCompile(path)
	require.NoError(t, err)

	rates := idx.Rates("fsv-large")
	require.Len(t, rates, 1)
	assert.InDelta(t, 33000, rates[0].DailyRate, 0.001)
	require.NotNil(t, rates[0].EffectiveEnd)
	assert.Equal(t, reftest.Date(2024, 12, 31), rates[0].EffectiveEnd.UTC())

	// Empty sections fall back to the built-in defaults.
	assert.Len(t, idx.Tiers(), 4)
	assert.Equal(t, model.FluidCompletion, idx.Taxonomy()[0].Category)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := reference.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference: read file")
}

func TestParse_BadYAML(t *testing.T) {
	t.Parallel()
	_, err := reference.Parse([]byte("facilities: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference: unmarshal yaml")
}
