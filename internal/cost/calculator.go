package cost

import (
	"fmt"
	"math"
	"time"

	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference"
)

// Rate is the day-rate that applies to a vessel on a date.
type Rate struct {
	Class  string
	Daily  float64
	Hourly float64
	Basis  model.CostBasis

	// Period describes where the rate came from, e.g. the schedule entry
	// description or the default tier label.
	Period string
}

// Cost is a computed vessel cost for a number of hours.
type Cost struct {
	Rate
	Hours float64
	Total float64
}

// Calculator computes vessel costs from the rate schedule, falling back to
// length-based default tiers.
type Calculator struct {
	idx *reference.Index
}

// NewCalculator creates a Calculator over the given reference index.
func NewCalculator(idx *reference.Index) *Calculator {
	return &Calculator{idx: idx}
}

// DayRate resolves the rate for vessel on date.
func (c *Calculator) DayRate(vessel string, date time.Time) Rate {
	class := reference.NormalizeName(vessel)
	var length float64
	if v, ok := c.idx.Vessel(vessel); ok {
		if v.Class != "" {
			class = v.Class
		}
		length = v.LengthFt
	}

	for _, e := range c.idx.Rates(class) {
		if e.Contains(date) {
			return Rate{
				Class:  class,
				Daily:  e.DailyRate,
				Hourly: Cents(e.DailyRate / 24),
				Basis:  model.CostBasisSchedule,
				Period: schedulePeriod(e),
			}
		}
	}

	tier := c.tier(length)
	return Rate{
		Class:  class,
		Daily:  tier.DailyRate,
		Hourly: Cents(tier.DailyRate / 24),
		Basis:  model.CostBasisDefaultTier,
		Period: fmt.Sprintf("tier applied: default, no explicit schedule entry (%s)", tier.Label),
	}
}

// Compute returns the cost of finalHours of vessel time on date.
func (c *Calculator) Compute(vessel string, date time.Time, finalHours float64) Cost {
	r := c.DayRate(vessel, date)
	return Cost{
		Rate:  r,
		Hours: finalHours,
		Total: Cents(r.Hourly * finalHours),
	}
}

// tier picks the highest tier whose threshold the length reaches. Unknown
// lengths (zero) fall into the lowest tier.
func (c *Calculator) tier(length float64) reference.SizeTier {
	tiers := c.idx.Tiers()
	if len(tiers) == 0 {
		return reference.SizeTier{Label: "no default tiers"}
	}
	best := tiers[0]
	for _, t := range tiers[1:] {
		if length >= t.MinLengthFt {
			best = t
		}
	}
	return best
}

func schedulePeriod(e reference.RateScheduleEntry) string {
	end := "open"
	if e.EffectiveEnd != nil {
		end = e.EffectiveEnd.Format("2006-01-02")
	}
	period := e.EffectiveStart.Format("2006-01-02") + " to " + end
	if e.Description != "" {
		period = e.Description + " (" + period + ")"
	}
	return period
}

// Cents rounds an amount to whole cents.
func Cents(v float64) float64 {
	return math.Round(v*100) / 100
}
