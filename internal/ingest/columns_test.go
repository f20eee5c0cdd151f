package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"Cost Dedicated To":   "costdedicatedto",
		"cost_dedicated_to":   "costdedicatedto",
		" COST DEDICATED TO:": "costdedicatedto",
		"Voyage #":            "voyage",
		"Density (kg/m3)":     "densitykgm3",
	} {
		assert.Equal(t, want, normalizeHeader(in), in)
	}
}

func TestMapColumns_FirstHeaderWins(t *testing.T) {
	t.Parallel()

	cols := mapColumns([]string{"Location", "", "location"})
	i, ok := cols.index(colLocation)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = cols.index(col("site", "offshore location", "Location"))
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = cols.index(colVessel)
	assert.False(t, ok)
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "2024-06-15", want: "2024-06-15 00:00", ok: true},
		{in: "2024-06-15 08:30", want: "2024-06-15 08:30", ok: true},
		{in: "2024-06-15T08:30:00Z", want: "2024-06-15 08:30", ok: true},
		{in: "6/15/2024", want: "2024-06-15 00:00", ok: true},
		{in: "06/15/2024 14:05", want: "2024-06-15 14:05", ok: true},
		{in: "6/15/2024 2:05 PM", want: "2024-06-15 14:05", ok: true},
		{in: "15-Jun-2024", want: "2024-06-15 00:00", ok: true},
		{in: "Jun 2024", want: "2024-06-01 00:00", ok: true},
		{in: "45458", want: "2024-06-15 00:00", ok: true},
		{in: "", ok: false},
		{in: "soon", ok: false},
		{in: "-3", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02 15:04"))
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestParseTime_ExcelSerialIsUTC(t *testing.T) {
	t.Parallel()

	got, ok := parseTime("45458")
	assert.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "12", want: 12, ok: true},
		{in: " 12.5 ", want: 12.5, ok: true},
		{in: "1,250.00", want: 1250, ok: true},
		{in: "$3,052.51", want: 3052.51, ok: true},
		{in: "(150.25)", want: -150.25, ok: true},
		{in: "", ok: false},
		{in: "n/a", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
