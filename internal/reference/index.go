package reference

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// Facility is a validated facility with its keyword lists normalised.
type Facility struct {
	FacilityProfile
	drillingKeywords   []string
	productionKeywords []string
}

// DrillingKeywords returns the normalised drilling vocabulary.
func (f *Facility) DrillingKeywords() []string { return f.drillingKeywords }

// ProductionKeywords returns the normalised production vocabulary.
func (f *Facility) ProductionKeywords() []string { return f.productionKeywords }

// CodeOwner is the facility and department a known allocation code maps to.
type CodeOwner struct {
	Facility   *Facility
	Department model.Department
}

type aliasEntry struct {
	alias    string
	facility *Facility
}

// Index is the compiled, read-only view of Tables. It is safe for
// concurrent use.
type Index struct {
	facilities []*Facility
	byName     map[string]*Facility
	aliases    []aliasEntry // longest first
	codes      map[string]CodeOwner
	vessels    map[string]*VesselProfile
	rates      map[string][]RateScheduleEntry
	tiers      []SizeTier
	taxonomy   []FluidCategoryRule
}

// Compile validates t and builds lookup indexes. Every configuration error
// is reported in a single error so the caller can fix the tables in one pass.
func Compile(t Tables) (*Index, error) {
	t = t.withDefaults()
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	idx := &Index{
		byName:  make(map[string]*Facility),
		codes:   make(map[string]CodeOwner),
		vessels: make(map[string]*VesselProfile),
		rates:   make(map[string][]RateScheduleEntry),
	}

	idx.compileFacilities(t.Facilities, fail)
	idx.compileVessels(t.Vessels, fail)
	idx.compileRates(t.Rates, fail)
	idx.compileTiers(t.DefaultTiers, fail)
	idx.compileTaxonomy(t.FluidTaxonomy, fail)

	if len(errs) > 0 {
		return nil, eris.Errorf("reference: invalid tables: %s", strings.Join(errs, "; "))
	}
	return idx, nil
}

func (idx *Index) compileFacilities(profiles []FacilityProfile, fail func(string, ...any)) {
	seenAlias := make(map[string]string)
	codeSeen := make(map[string]string)

	for i := range profiles {
		p := profiles[i]
		name := NormalizeName(p.Name)
		if name == "" {
			fail("facility #%d has no name", i)
			continue
		}

		switch p.Type {
		case FacilityIntegrated:
			if !p.DrillingCapable || !p.ProductionCapable {
				fail("facility %q is integrated but not both drilling and production capable", p.Name)
			}
		case FacilityRig:
			if !p.DrillingCapable {
				fail("facility %q is a rig but not drilling capable", p.Name)
			}
		case FacilityProduction:
			if !p.ProductionCapable {
				fail("facility %q is a production platform but not production capable", p.Name)
			}
		case FacilityBase:
			if p.DrillingCapable || p.ProductionCapable {
				fail("facility %q is a base but claims drilling or production capability", p.Name)
			}
		default:
			fail("facility %q has unknown type %q", p.Name, p.Type)
		}

		f := &Facility{
			FacilityProfile:    p,
			drillingKeywords:   lowerAll(p.DrillingKeywords),
			productionKeywords: lowerAll(p.ProductionKeywords),
		}
		idx.facilities = append(idx.facilities, f)

		for _, a := range append([]string{p.Name}, p.Aliases...) {
			na := NormalizeName(a)
			if na == "" {
				continue
			}
			if owner, dup := seenAlias[na]; dup {
				if owner != p.Name {
					fail("facility name or alias %q used by both %q and %q", a, owner, p.Name)
				}
				continue
			}
			seenAlias[na] = p.Name
			idx.byName[na] = f
			idx.aliases = append(idx.aliases, aliasEntry{alias: na, facility: f})
		}

		addCodes := func(codes []string, dept model.Department) {
			for _, c := range codes {
				nc := NormalizeCode(c)
				if nc == "" {
					continue
				}
				key := string(dept) + "|" + p.Name
				if prev, dup := codeSeen[nc]; dup {
					prevDept := strings.SplitN(prev, "|", 2)[0]
					if prevDept != string(dept) {
						fail("allocation code %q is listed as both %s and %s", c, prevDept, dept)
					} else if prev != key {
						fail("allocation code %q is listed under two facilities", c)
					}
					continue
				}
				codeSeen[nc] = key
				idx.codes[nc] = CodeOwner{Facility: f, Department: dept}
			}
		}
		addCodes(p.ProductionCodes, model.DepartmentProduction)
		addCodes(p.DrillingCodes, model.DepartmentDrilling)
	}

	// Parent references must resolve and must not form a cycle.
	for _, f := range idx.facilities {
		if f.ParentFacility == "" {
			continue
		}
		if _, ok := idx.byName[NormalizeName(f.ParentFacility)]; !ok {
			fail("facility %q has unknown parent %q", f.Name, f.ParentFacility)
			continue
		}
		seen := map[*Facility]bool{f: true}
		for cur := f; cur.ParentFacility != ""; {
			next, ok := idx.byName[NormalizeName(cur.ParentFacility)]
			if !ok {
				break
			}
			if seen[next] {
				fail("facility %q has a parent cycle", f.Name)
				break
			}
			seen[next] = true
			cur = next
		}
	}

	sort.SliceStable(idx.aliases, func(i, j int) bool {
		if len(idx.aliases[i].alias) != len(idx.aliases[j].alias) {
			return len(idx.aliases[i].alias) > len(idx.aliases[j].alias)
		}
		return idx.aliases[i].alias < idx.aliases[j].alias
	})
}

func (idx *Index) compileVessels(vessels []VesselProfile, fail func(string, ...any)) {
	for i := range vessels {
		v := vessels[i]
		if NormalizeName(v.Name) == "" {
			fail("vessel #%d has no name", i)
			continue
		}
		if v.LengthFt < 0 {
			fail("vessel %q has negative length", v.Name)
		}
		for _, a := range append([]string{v.Name}, v.Aliases...) {
			na := NormalizeName(a)
			if na == "" {
				continue
			}
			if prev, dup := idx.vessels[na]; dup {
				if prev.Name != v.Name {
					fail("vessel name or alias %q used by both %q and %q", a, prev.Name, v.Name)
				}
				continue
			}
			idx.vessels[na] = &v
		}
	}
}

func (idx *Index) compileRates(entries []RateScheduleEntry, fail func(string, ...any)) {
	for _, e := range entries {
		class := NormalizeName(e.Class)
		if class == "" {
			fail("rate entry starting %s has no class", e.EffectiveStart.Format(time.DateOnly))
			continue
		}
		if e.DailyRate <= 0 {
			fail("rate entry for %q starting %s has non-positive daily rate", e.Class, e.EffectiveStart.Format(time.DateOnly))
		}
		if e.EffectiveEnd != nil && !e.EffectiveEnd.After(e.EffectiveStart) {
			fail("rate entry for %q starting %s ends before it starts", e.Class, e.EffectiveStart.Format(time.DateOnly))
		}
		idx.rates[class] = append(idx.rates[class], e)
	}

	classes := make([]string, 0, len(idx.rates))
	for class := range idx.rates {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	for _, class := range classes {
		list := idx.rates[class]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].EffectiveStart.Before(list[j].EffectiveStart)
		})
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if prev.EffectiveEnd == nil || cur.EffectiveStart.Before(*prev.EffectiveEnd) {
				fail("rate entries for %q overlap: %s and %s", class,
					describeInterval(prev), describeInterval(cur))
			}
		}
		idx.rates[class] = list
	}
}

func describeInterval(e RateScheduleEntry) string {
	end := "open"
	if e.EffectiveEnd != nil {
		end = e.EffectiveEnd.Format(time.DateOnly)
	}
	return e.EffectiveStart.Format(time.DateOnly) + ".." + end
}

func (idx *Index) compileTiers(tiers []SizeTier, fail func(string, ...any)) {
	seen := make(map[float64]bool)
	for _, t := range tiers {
		if t.DailyRate <= 0 {
			fail("default tier %q has non-positive daily rate", t.Label)
		}
		if t.MinLengthFt < 0 || math.IsNaN(t.MinLengthFt) {
			fail("default tier %q has invalid length threshold", t.Label)
		}
		if seen[t.MinLengthFt] {
			fail("default tiers repeat length threshold %.0f ft", t.MinLengthFt)
		}
		seen[t.MinLengthFt] = true
		idx.tiers = append(idx.tiers, t)
	}
	sort.SliceStable(idx.tiers, func(i, j int) bool {
		return idx.tiers[i].MinLengthFt < idx.tiers[j].MinLengthFt
	})
}

func (idx *Index) compileTaxonomy(rules []FluidCategoryRule, fail func(string, ...any)) {
	for _, r := range rules {
		if !r.Category.Valid() {
			fail("fluid taxonomy names unknown category %q", r.Category)
			continue
		}
		kws := lowerAll(r.Keywords)
		if len(kws) == 0 {
			fail("fluid taxonomy category %q has no keywords", r.Category)
			continue
		}
		idx.taxonomy = append(idx.taxonomy, FluidCategoryRule{Category: r.Category, Keywords: kws})
	}
}

// Facilities returns all facilities in table order.
func (idx *Index) Facilities() []*Facility { return idx.facilities }

// Facility looks up a facility by exact normalised name or alias.
func (idx *Index) Facility(name string) (*Facility, bool) {
	f, ok := idx.byName[NormalizeName(name)]
	return f, ok
}

// MatchFacility resolves free-text location to a facility: an exact name or
// alias match first, otherwise the longest alias found on word boundaries
// inside the text.
func (idx *Index) MatchFacility(location string) (*Facility, bool) {
	loc := NormalizeName(location)
	if loc == "" {
		return nil, false
	}
	if f, ok := idx.byName[loc]; ok {
		return f, true
	}
	for _, a := range idx.aliases {
		if ContainsWord(loc, a.alias) {
			return a.facility, true
		}
	}
	return nil, false
}

// Parent returns the parent facility of f, if any.
func (idx *Index) Parent(f *Facility) (*Facility, bool) {
	if f == nil || f.ParentFacility == "" {
		return nil, false
	}
	return idx.Facility(f.ParentFacility)
}

// Region returns f's region, inherited from the nearest ancestor when unset.
func (idx *Index) Region(f *Facility) string {
	for cur := f; cur != nil; {
		if cur.Region != "" {
			return cur.Region
		}
		next, ok := idx.Parent(cur)
		if !ok {
			break
		}
		cur = next
	}
	return ""
}

// Code looks up a known allocation code.
func (idx *Index) Code(code string) (CodeOwner, bool) {
	c, ok := idx.codes[NormalizeCode(code)]
	return c, ok
}

// Vessel looks up a vessel by normalised name or alias.
func (idx *Index) Vessel(name string) (*VesselProfile, bool) {
	v, ok := idx.vessels[NormalizeName(name)]
	return v, ok
}

// Rates returns the schedule entries for class sorted by start date.
func (idx *Index) Rates(class string) []RateScheduleEntry {
	return idx.rates[NormalizeName(class)]
}

// Tiers returns the default size tiers sorted by ascending length threshold.
func (idx *Index) Tiers() []SizeTier { return idx.tiers }

// Taxonomy returns the fluid taxonomy with normalised keywords.
func (idx *Index) Taxonomy() []FluidCategoryRule { return idx.taxonomy }
