// Package reftest provides shared reference-table fixtures for tests.
package reftest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancientfall/logistics-enrich/internal/reference"
)

// Date returns midnight UTC on the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to Date(y, m, d).
func DatePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}

// Tables returns a small Gulf of Mexico style reference set: two integrated
// facilities, two rigs, one production platform and one shore base.
func Tables() reference.Tables {
	t := reference.DefaultTables()
	t.Facilities = []reference.FacilityProfile{
		{
			Name:               "Thunder Horse PDQ",
			Aliases:            []string{"Thunder Horse", "THPDQ"},
			Type:               reference.FacilityIntegrated,
			DrillingCapable:    true,
			ProductionCapable:  true,
			Region:             "Mississippi Canyon",
			DrillingCodes:      []string{"10052"},
			ProductionCodes:    []string{"10053"},
			DrillingKeywords:   []string{"drilling", "spud", "casing", "rig move"},
			ProductionKeywords: []string{"production", "hook-up", "chemical injection"},
		},
		{
			Name:               "Mad Dog",
			Aliases:            []string{"Mad Dog Spar"},
			Type:               reference.FacilityIntegrated,
			DrillingCapable:    true,
			ProductionCapable:  true,
			Region:             "Green Canyon",
			DrillingCodes:      []string{"10060"},
			ProductionCodes:    []string{"10061"},
			DrillingKeywords:   []string{"drilling", "completion"},
			ProductionKeywords: []string{"production", "topsides"},
		},
		{
			Name:            "Ocean BlackLion",
			Aliases:         []string{"BlackLion"},
			Type:            reference.FacilityRig,
			DrillingCapable: true,
			Region:          "Green Canyon",
			DrillingCodes:   []string{"10070"},
		},
		{
			Name:            "Deepwater Asgard",
			Type:            reference.FacilityRig,
			DrillingCapable: true,
			ParentFacility:  "Mad Dog",
		},
		{
			Name:              "Atlantis PQ",
			Aliases:           []string{"Atlantis"},
			Type:              reference.FacilityProduction,
			ProductionCapable: true,
			Region:            "Green Canyon",
			ProductionCodes:   []string{"10080"},
		},
		{
			Name:    "Port Fourchon",
			Aliases: []string{"Fourchon", "C-Port"},
			Type:    reference.FacilityBase,
			Region:  "Louisiana",
		},
	}
	t.Vessels = []reference.VesselProfile{
		{Name: "V1", Class: "FSV-Large", LengthFt: 280},
		{Name: "Pelican", Aliases: []string{"M/V Pelican"}, Class: "PSV-Medium", LengthFt: 220},
		{Name: "Skiff", LengthFt: 150},
	}
	t.Rates = []reference.RateScheduleEntry{
		{Class: "FSV-Large", EffectiveStart: Date(2024, 1, 1), EffectiveEnd: DatePtr(2024, 12, 31), DailyRate: 33000, Description: "2024 term charter"},
		{Class: "FSV-Large", EffectiveStart: Date(2025, 1, 1), DailyRate: 35000, Description: "2025 term charter"},
	}
	return t
}

// Index compiles Tables and fails the test on configuration errors.
func Index(t testing.TB) *reference.Index {
	t.Helper()
	idx, err := reference.Compile(Tables())
	require.NoError(t, err)
	return idx
}
