package ingest

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tealeg/xlsx/v2"
)

// field is one logical column and the header spellings it is exported under.
type field struct {
	name    string
	aliases []string
}

func col(name string, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...)}
}

// columns maps a normalized header to its index.
type columns map[string]int

// normalizeHeader lowercases and keeps only letters and digits, so
// "Cost Dedicated To", "cost_dedicated_to" and "COST DEDICATED TO:" agree.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mapColumns(header []string) columns {
	m := make(columns, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// index returns the first alias of f present in the header.
func (c columns) index(f field) (int, bool) {
	for _, a := range f.aliases {
		if i, ok := c[normalizeHeader(a)]; ok {
			return i, true
		}
	}
	return 0, false
}

func (c columns) has(f field) bool {
	_, ok := c.index(f)
	return ok
}

// dateLayouts are tried in order after the Excel serial check.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2006",
	"January 2006",
	"2006-01",
}

// Excel serials outside this range are not treated as dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

// parseTime accepts the layouts above and Excel serial day numbers.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < minExcelSerial || v > maxExcelSerial {
			return time.Time{}, false
		}
		return xlsx.TimeFromExcelTime(v, false).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts thousands separators, a leading currency sign and
// accounting-style parentheses for negatives.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
