// Package allocation parses free-text "cost dedicated to" fields into
// percentage splits across allocation codes and apportions hours.
package allocation

import (
	"math"
	"strconv"
	"strings"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// DefaultPercentTolerance is how far (in percentage points) the parsed
// percentages may drift from 100 before the result is marked Normalized.
const DefaultPercentTolerance = 0.5

// Share is one parsed split with its apportioned hours.
type Share struct {
	Split model.AllocationSplit
	Hours float64
}

// Result is the outcome of parsing one allocation field.
type Result struct {
	Shares    []Share
	Malformed int // tokens skipped as unparseable

	// Normalized is set when the raw percentages missed 100 by more than
	// the parser tolerance and were rescaled.
	Normalized bool
}

// TotalPercentage sums the percentages of all shares.
func (r Result) TotalPercentage() float64 {
	var sum float64
	for _, s := range r.Shares {
		sum += s.Split.Percentage
	}
	return sum
}

// TotalHours sums the apportioned hours of all shares.
func (r Result) TotalHours() float64 {
	var sum float64
	for _, s := range r.Shares {
		sum += s.Hours
	}
	return sum
}

// Parser splits allocation text. The zero value uses DefaultPercentTolerance.
type Parser struct {
	PercentTolerance float64
}

// NewParser returns a Parser with the given tolerance; non-positive values
// select the default.
func NewParser(tolerance float64) Parser {
	if tolerance <= 0 {
		tolerance = DefaultPercentTolerance
	}
	return Parser{PercentTolerance: tolerance}
}

type token struct {
	code   string
	pct    float64
	hasPct bool
}

// Parse splits text on ',', '/' or ';' into code[-percentage] tokens and
// apportions rawHours across them.
func (p Parser) Parse(text string, rawHours float64) Result {
	tol := p.PercentTolerance
	if tol <= 0 {
		tol = DefaultPercentTolerance
	}

	if strings.TrimSpace(text) == "" {
		return single(model.MappingNoLCInfo, rawHours, 0)
	}

	var (
		tokens    []token
		malformed int
	)
	for _, raw := range strings.FieldsFunc(text, isSeparator) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tok, ok := parseToken(raw)
		if !ok {
			malformed++
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		// Only separators is the same as no information at all.
		if malformed == 0 {
			return single(model.MappingNoLCInfo, rawHours, 0)
		}
		return single(model.MappingError, rawHours, malformed)
	}

	pcts := assign(tokens)
	sum := 0.0
	for _, v := range pcts {
		sum += v
	}

	res := Result{Malformed: malformed}
	if math.Abs(sum-100) > tol {
		res.Normalized = true
	}
	if sum > 0 {
		for i := range pcts {
			pcts[i] = pcts[i] * 100 / sum
		}
	} else {
		// Every token carried an explicit zero; fall back to an even split.
		for i := range pcts {
			pcts[i] = 100 / float64(len(pcts))
		}
		res.Normalized = true
	}

	hours := apportion(rawHours, pcts)
	res.Shares = make([]Share, len(tokens))
	for i, tok := range tokens {
		res.Shares[i] = Share{
			Split: model.AllocationSplit{
				Code:       tok.code,
				Percentage: round(pcts[i], 4),
			},
			Hours: hours[i],
		}
	}
	return res
}

func single(status model.MappingStatus, rawHours float64, malformed int) Result {
	return Result{
		Shares: []Share{{
			Split: model.AllocationSplit{Percentage: 100, MappingStatus: status},
			Hours: Round2(rawHours),
		}},
		Malformed: malformed,
	}
}

func isSeparator(r rune) bool {
	return r == ',' || r == '/' || r == ';'
}

// parseToken reads "<code>" or "<code>-<pct>[%]". The last '-' separates the
// percentage, so a dash followed by anything non-numeric is malformed.
func parseToken(raw string) (token, bool) {
	i := strings.LastIndex(raw, "-")
	if i < 0 {
		code := strings.TrimSpace(raw)
		return token{code: code}, code != ""
	}

	code := strings.TrimSpace(raw[:i])
	pctText := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw[i+1:]), "%"))
	if code == "" {
		return token{}, false
	}
	pct, err := strconv.ParseFloat(pctText, 64)
	if err != nil || pct < 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
		return token{}, false
	}
	return token{code: code, pct: pct, hasPct: true}, true
}

// assign fills in percentages for tokens without one. Unassigned tokens
// share whatever budget the explicit tokens left and get nothing once it is
// spent; explicit percentages are kept as written.
func assign(tokens []token) []float64 {
	pcts := make([]float64, len(tokens))
	var explicitSum float64
	var unassigned int
	for i, t := range tokens {
		if t.hasPct {
			pcts[i] = t.pct
			explicitSum += t.pct
		} else {
			unassigned++
		}
	}
	if unassigned == 0 {
		return pcts
	}

	share := math.Max(100-explicitSum, 0) / float64(unassigned)
	for i, t := range tokens {
		if !t.hasPct {
			pcts[i] = share
		}
	}
	return pcts
}

// apportion splits hours by percentage, rounding each share to 2 decimals
// and assigning the rounding remainder to the last share so the total is
// conserved.
func apportion(rawHours float64, pcts []float64) []float64 {
	out := make([]float64, len(pcts))
	total := Round2(rawHours)
	var used float64
	for i, p := range pcts {
		if i == len(pcts)-1 {
			out[i] = Round2(total - used)
			break
		}
		out[i] = Round2(rawHours * p / 100)
		used += out[i]
	}
	return out
}

// Round2 rounds to the 2-decimal precision of the source hours columns.
func Round2(f float64) float64 {
	return round(f, 2)
}

func round(f float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Round(f*m) / m
}
