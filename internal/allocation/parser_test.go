package allocation

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

func TestParse_ExplicitAndRemainder(t *testing.T) {
	t.Parallel()
	res := Parser{}.Parse("10052-60,10053", 100)

	require.Len(t, res.Shares, 2)
	assert.Equal(t, "10052", res.Shares[0].Split.Code)
	assert.InDelta(t, 60, res.Shares[0].Split.Percentage, 0.0001)
	assert.InDelta(t, 60.0, res.Shares[0].Hours, 0.0001)
	assert.Equal(t, "10053", res.Shares[1].Split.Code)
	assert.InDelta(t, 40, res.Shares[1].Split.Percentage, 0.0001)
	assert.InDelta(t, 40.0, res.Shares[1].Hours, 0.0001)
	assert.Zero(t, res.Malformed)
	assert.False(t, res.Normalized)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"", "   ", ",;/"} {
		res := Parser{}.Parse(text, 50)
		require.Len(t, res.Shares, 1, "text %q", text)
		s := res.Shares[0]
		assert.Equal(t, "", s.Split.Code)
		assert.InDelta(t, 100, s.Split.Percentage, 0.0001)
		assert.InDelta(t, 50.0, s.Hours, 0.0001)
		assert.Equal(t, model.MappingNoLCInfo, s.Split.MappingStatus)
	}
}

func TestParse_Separators(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		text  string
		codes []string
		pcts  []float64
	}{
		{"comma", "A,B", []string{"A", "B"}, []float64{50, 50}},
		{"slash", "A/B/C/D", []string{"A", "B", "C", "D"}, []float64{25, 25, 25, 25}},
		{"semicolon with spaces", " A - 30 ; B-70% ", []string{"A", "B"}, []float64{30, 70}},
		{"mixed", "A-50,B/C", []string{"A", "B", "C"}, []float64{50, 25, 25}},
		{"single code", "10070", []string{"10070"}, []float64{100}},
		{"decimal percentages", "A-33.5,B-66.5", []string{"A", "B"}, []float64{33.5, 66.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Parser{}.Parse(tt.text, 10)
			require.Len(t, res.Shares, len(tt.codes))
			for i, s := range res.Shares {
				assert.Equal(t, tt.codes[i], s.Split.Code)
				assert.InDelta(t, tt.pcts[i], s.Split.Percentage, 0.0001)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	res := Parser{}.Parse("A-abc,B-40,-20", 10)
	assert.Equal(t, 2, res.Malformed)
	require.Len(t, res.Shares, 1)
	assert.Equal(t, "B", res.Shares[0].Split.Code)
	assert.InDelta(t, 100, res.Shares[0].Split.Percentage, 0.0001)
	assert.True(t, res.Normalized, "a lone 40 percent share is rescaled to 100")

	res = Parser{}.Parse("X-foo;-;Y-", 8)
	assert.Equal(t, 3, res.Malformed)
	require.Len(t, res.Shares, 1)
	assert.Equal(t, model.MappingError, res.Shares[0].Split.MappingStatus)
	assert.Equal(t, "", res.Shares[0].Split.Code)
	assert.InDelta(t, 8.0, res.Shares[0].Hours, 0.0001)
}

func TestParse_NoisyPercentages(t *testing.T) {
	t.Parallel()

	within := NewParser(0.5).Parse("A-50,B-49.8", 10)
	assert.False(t, within.Normalized)
	assert.InDelta(t, 100, within.TotalPercentage(), 0.01)

	over := NewParser(0.5).Parse("A-60,B-60", 10)
	assert.True(t, over.Normalized)
	assert.InDelta(t, 50, over.Shares[0].Split.Percentage, 0.0001)

	exhausted := Parser{}.Parse("A-60,B-40,C", 30)
	require.Len(t, exhausted.Shares, 3)
	assert.False(t, exhausted.Normalized)
	assert.InDelta(t, 100, exhausted.TotalPercentage(), 0.01)
	assert.InDelta(t, 30, exhausted.TotalHours(), 0.0001)
	assert.InDelta(t, 60, exhausted.Shares[0].Split.Percentage, 0.0001)
	assert.InDelta(t, 40, exhausted.Shares[1].Split.Percentage, 0.0001)
	assert.InDelta(t, 0, exhausted.Shares[2].Split.Percentage, 0.0001)
	assert.InDelta(t, 18, exhausted.Shares[0].Hours, 0.0001)
	assert.InDelta(t, 0, exhausted.Shares[2].Hours, 0.0001)

	overspent := Parser{}.Parse("A-70,B-50,C", 12)
	require.Len(t, overspent.Shares, 3)
	assert.True(t, overspent.Normalized)
	assert.InDelta(t, 100, overspent.TotalPercentage(), 0.01)
	assert.InDelta(t, 0, overspent.Shares[2].Split.Percentage, 0.0001)
	assert.InDelta(t, 7, overspent.Shares[0].Hours, 0.0001)

	zeros := Parser{}.Parse("A-0,B-0", 4)
	assert.True(t, zeros.Normalized)
	assert.InDelta(t, 2.0, zeros.Shares[0].Hours, 0.0001)
}

func TestParse_RoundingRemainderConserved(t *testing.T) {
	t.Parallel()
	res := Parser{}.Parse("A,B,C", 10)
	require.Len(t, res.Shares, 3)
	assert.InDelta(t, 3.33, res.Shares[0].Hours, 0.0001)
	assert.InDelta(t, 3.33, res.Shares[1].Hours, 0.0001)
	assert.InDelta(t, 3.34, res.Shares[2].Hours, 0.0001)
	assert.InDelta(t, 10, res.TotalHours(), 0.0001)
}

// Well-formed inputs always produce percentages summing to 100 and hours
// summing to the raw hours.
func TestParse_Properties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(5)
		parts := make([]string, n)
		for j := range parts {
			code := fmt.Sprintf("%d", 10000+rng.Intn(500))
			if rng.Intn(2) == 0 {
				parts[j] = fmt.Sprintf("%s-%d", code, rng.Intn(80))
			} else {
				parts[j] = code
			}
		}
		sep := []string{",", "/", ";"}[rng.Intn(3)]
		text := strings.Join(parts, sep)
		hours := float64(rng.Intn(100000)) / 100

		res := Parser{}.Parse(text, hours)
		require.Zero(t, res.Malformed, text)
		assert.InDelta(t, 100, res.TotalPercentage(), 0.01, text)
		assert.InDelta(t, hours, res.TotalHours(), 0.01, text)
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.23, Round2(1.234), 1e-9)
	assert.InDelta(t, 1.24, Round2(1.236), 1e-9)
	assert.InDelta(t, 0, Round2(0.004), 1e-9)
}
