// Package reference loads, validates and indexes the reference tables the
// enrichment engine consults: facilities, vessels, day-rate schedules,
// default size tiers and the bulk fluid taxonomy.
package reference

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// FacilityType is the operational role of a location.
type FacilityType string

const (
	FacilityRig        FacilityType = "rig"
	FacilityProduction FacilityType = "production"
	FacilityIntegrated FacilityType = "integrated"
	FacilityBase       FacilityType = "base"
)

// FacilityProfile describes one offshore or shore location.
type FacilityProfile struct {
	Name              string       `yaml:"name" json:"name"`
	Aliases           []string     `yaml:"aliases" json:"aliases,omitempty"`
	Type              FacilityType `yaml:"type" json:"type"`
	DrillingCapable   bool         `yaml:"drilling_capable" json:"drilling_capable"`
	ProductionCapable bool         `yaml:"production_capable" json:"production_capable"`
	ParentFacility    string       `yaml:"parent_facility" json:"parent_facility,omitempty"`
	Region            string       `yaml:"region" json:"region,omitempty"`
	DrillingCodes     []string     `yaml:"drilling_codes" json:"drilling_codes,omitempty"`
	ProductionCodes   []string     `yaml:"production_codes" json:"production_codes,omitempty"`

	// Keyword lists used to tell drilling from production work at an
	// integrated facility.
	DrillingKeywords   []string `yaml:"drilling_keywords" json:"drilling_keywords,omitempty"`
	ProductionKeywords []string `yaml:"production_keywords" json:"production_keywords,omitempty"`
}

// VesselProfile maps a vessel to its rate class and size.
type VesselProfile struct {
	Name     string   `yaml:"name" json:"name"`
	Aliases  []string `yaml:"aliases" json:"aliases,omitempty"`
	Class    string   `yaml:"class" json:"class,omitempty"`
	LengthFt float64  `yaml:"length_ft" json:"length_ft,omitempty"`
}

// RateScheduleEntry is a contracted day-rate for a vessel class over the
// half-open interval [EffectiveStart, EffectiveEnd). A nil end is open-ended.
type RateScheduleEntry struct {
	Class          string     `yaml:"class" json:"class"`
	EffectiveStart time.Time  `yaml:"effective_start" json:"effective_start"`
	EffectiveEnd   *time.Time `yaml:"effective_end" json:"effective_end,omitempty"`
	DailyRate      float64    `yaml:"daily_rate" json:"daily_rate"`
	Description    string     `yaml:"description" json:"description,omitempty"`
}

// Contains reports whether t falls inside the entry's effective interval.
func (e RateScheduleEntry) Contains(t time.Time) bool {
	if t.Before(e.EffectiveStart) {
		return false
	}
	return e.EffectiveEnd == nil || t.Before(*e.EffectiveEnd)
}

// SizeTier is a fallback day-rate for vessels at or above MinLengthFt.
type SizeTier struct {
	MinLengthFt float64 `yaml:"min_length_ft" json:"min_length_ft"`
	DailyRate   float64 `yaml:"daily_rate" json:"daily_rate"`
	Label       string  `yaml:"label" json:"label"`
}

// FluidCategoryRule maps free-text keywords to a fluid category.
type FluidCategoryRule struct {
	Category model.FluidCategory `yaml:"category" json:"category"`
	Keywords []string            `yaml:"keywords" json:"keywords"`
}

// Tables is the serialisable form of all reference data for one run.
type Tables struct {
	Facilities    []FacilityProfile   `yaml:"facilities" json:"facilities"`
	Vessels       []VesselProfile     `yaml:"vessels" json:"vessels"`
	Rates         []RateScheduleEntry `yaml:"rates" json:"rates"`
	DefaultTiers  []SizeTier          `yaml:"default_tiers" json:"default_tiers"`
	FluidTaxonomy []FluidCategoryRule `yaml:"fluid_taxonomy" json:"fluid_taxonomy"`
}

// DefaultSizeTiers returns the four length-based fallback day-rates.
func DefaultSizeTiers() []SizeTier {
	return []SizeTier{
		{MinLengthFt: 0, DailyRate: 15000, Label: "Tier 1: under 200 ft"},
		{MinLengthFt: 200, DailyRate: 22000, Label: "Tier 2: 200-249 ft"},
		{MinLengthFt: 250, DailyRate: 28000, Label: "Tier 3: 250-299 ft"},
		{MinLengthFt: 300, DailyRate: 33000, Label: "Tier 4: 300 ft and over"},
	}
}

// DefaultFluidTaxonomy returns the built-in keyword taxonomy. Order matters:
// the first category with a keyword hit wins, so "drill water" lands in
// Drilling before the generic "water" Utility keyword is consulted.
func DefaultFluidTaxonomy() []FluidCategoryRule {
	return []FluidCategoryRule{
		{Category: model.FluidCompletion, Keywords: []string{
			"completion", "brine", "calcium chloride", "cacl2", "calcium bromide", "cabr2",
			"zinc bromide", "znbr2", "sodium bromide", "nabr", "packer fluid", "workover",
			"intervention", "kill fluid", "formate",
		}},
		{Category: model.FluidDrilling, Keywords: []string{
			"drill water", "drilling fluid", "drilling mud", "mud", "obm", "sbm", "wbm",
			"barite", "bentonite", "cement", "spacer", "lcm", "base oil",
		}},
		{Category: model.FluidProductionChemical, Keywords: []string{
			"methanol", "glycol", "meg", "teg", "corrosion inhibitor", "scale inhibitor",
			"biocide", "demulsifier", "paraffin", "asphaltene", "hydrate inhibitor",
			"h2s scavenger", "chemical",
		}},
		{Category: model.FluidPetroleum, Keywords: []string{
			"diesel", "fuel", "gasoline", "lube", "lubricant", "hydraulic oil", "jet a",
		}},
		{Category: model.FluidUtility, Keywords: []string{
			"potable water", "fresh water", "freshwater", "water", "nitrogen", "waste",
		}},
	}
}

// DefaultTables returns tables holding only the built-in tiers and taxonomy.
// Facilities, vessels and rates are always caller supplied.
func DefaultTables() Tables {
	return Tables{
		DefaultTiers:  DefaultSizeTiers(),
		FluidTaxonomy: DefaultFluidTaxonomy(),
	}
}

// withDefaults fills empty tier and taxonomy sections.
func (t Tables) withDefaults() Tables {
	if len(t.DefaultTiers) == 0 {
		t.DefaultTiers = DefaultSizeTiers()
	}
	if len(t.FluidTaxonomy) == 0 {
		t.FluidTaxonomy = DefaultFluidTaxonomy()
	}
	return t
}

// Parse decodes YAML reference tables and fills default sections.
func Parse(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, eris.Wrap(err, "reference: unmarshal yaml")
	}
	return t.withDefaults(), nil
}

// LoadFile reads YAML reference tables from path.
func LoadFile(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, eris.Wrap(err, "reference: read file")
	}
	t, err := Parse(data)
	if err != nil {
		return Tables{}, eris.Wrapf(err, "reference: parse %s", path)
	}
	return t, nil
}

// LoadAndCompile reads, validates and indexes the tables at path.
func LoadAndCompile(path string) (*Index, error) {
	t, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Compile(t)
}
