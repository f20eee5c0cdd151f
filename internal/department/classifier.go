// Package department resolves records to an operating department through an
// ordered cascade of allocation-code and location rules.
package department

import (
	"strings"

	"github.com/ancientfall/logistics-enrich/internal/model"
	"github.com/ancientfall/logistics-enrich/internal/reference"
)

// Input is everything the cascade looks at for one allocation split.
type Input struct {
	Code        string
	Location    string
	ParentEvent string
	Event       string

	// ParserStatus is the status the allocation parser assigned, if any
	// (No-LC-Info or Error).
	ParserStatus model.MappingStatus
}

// Decision is the classifier output for one split.
type Decision struct {
	Department       model.Department
	MappingStatus    model.MappingStatus
	DataIntegrity    model.DataIntegrity
	ResolvedLocation string
	IsSpecialCase    bool
	ParentFacility   string
	Region           string
	Rule             string
}

// Rule is one step of the cascade. Apply reports whether the rule matched.
type Rule interface {
	Name() string
	Apply(in Input, m *Match) (Decision, bool)
}

// Match carries the lookups shared by every rule for one input.
type Match struct {
	idx      *reference.Index
	Owner    reference.CodeOwner
	HasOwner bool
	Facility *reference.Facility
}

// Classifier evaluates the department cascade. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	idx   *reference.Index
	rules []Rule
}

// NewClassifier builds the standard seven-rule cascade over idx.
func NewClassifier(idx *reference.Index) *Classifier {
	return &Classifier{
		idx: idx,
		rules: []Rule{
			codeRule{name: "production-code", dept: model.DepartmentProduction},
			codeRule{name: "drilling-code", dept: model.DepartmentDrilling},
			integratedRule{},
			facilityRule{name: "rig-facility", typ: reference.FacilityRig, dept: model.DepartmentDrilling},
			facilityRule{name: "production-facility", typ: reference.FacilityProduction, dept: model.DepartmentProduction},
			facilityRule{name: "base-facility", typ: reference.FacilityBase, dept: model.DepartmentLogistics},
			unmappedRule{},
		},
	}
}

// Rules returns the cascade in evaluation order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Prepare performs the code and location lookups for in.
func (c *Classifier) Prepare(in Input) *Match {
	m := &Match{idx: c.idx}
	if strings.TrimSpace(in.Code) != "" {
		m.Owner, m.HasOwner = c.idx.Code(in.Code)
	}
	if f, ok := c.idx.MatchFacility(in.Location); ok {
		m.Facility = f
	}
	return m
}

// Classify runs the cascade; the first matching rule wins.
func (c *Classifier) Classify(in Input) Decision {
	m := c.Prepare(in)
	for _, r := range c.rules {
		if d, ok := r.Apply(in, m); ok {
			d.Rule = r.Name()
			if in.ParserStatus == model.MappingError {
				d.DataIntegrity = model.IntegrityError
				if !d.IsSpecialCase {
					d.MappingStatus = model.MappingError
				}
			}
			return d
		}
	}
	// unmappedRule always matches; this is unreachable with the standard
	// cascade.
	return Decision{Department: model.DepartmentNone, MappingStatus: model.MappingLCUnmapped, DataIntegrity: model.IntegrityUnknownLC}
}

func hasCode(in Input) bool {
	return strings.TrimSpace(in.Code) != ""
}

func (m *Match) facilityDecision(f *reference.Facility) Decision {
	d := Decision{ResolvedLocation: f.Name, Region: m.idx.Region(f)}
	if p, ok := m.idx.Parent(f); ok {
		d.ParentFacility = p.Name
	}
	return d
}

// codeRule matches a known allocation code owned by dept.
type codeRule struct {
	name string
	dept model.Department
}

func (r codeRule) Name() string { return r.name }

func (r codeRule) Apply(_ Input, m *Match) (Decision, bool) {
	if !m.HasOwner || m.Owner.Department != r.dept {
		return Decision{}, false
	}
	d := m.facilityDecision(m.Owner.Facility)
	d.Department = r.dept
	d.MappingStatus = model.MappingLCMapped
	d.DataIntegrity = model.IntegrityValid
	return d, true
}

// integratedRule handles co-located drilling and production facilities by
// looking for drilling or production vocabulary in the event text.
type integratedRule struct{}

func (integratedRule) Name() string { return "integrated-facility" }

func (integratedRule) Apply(in Input, m *Match) (Decision, bool) {
	f := m.Facility
	if f == nil || f.Type != reference.FacilityIntegrated {
		return Decision{}, false
	}
	d := m.facilityDecision(f)
	d.Department = Disambiguate(f, in.ParentEvent, in.Event)
	d.IsSpecialCase = true
	d.MappingStatus = model.MappingSpecialCase
	d.DataIntegrity = model.IntegrityValidSpecialCase
	return d, true
}

// Disambiguate picks Drilling or Production for work at an integrated
// facility. Drilling wins whenever drilling vocabulary appears or nothing
// matches at all.
func Disambiguate(f *reference.Facility, parentEvent, event string) model.Department {
	text := reference.NormalizeName(parentEvent + " " + event)
	if containsAny(text, f.DrillingKeywords()) {
		return model.DepartmentDrilling
	}
	if containsAny(text, f.ProductionKeywords()) {
		return model.DepartmentProduction
	}
	return model.DepartmentDrilling
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// facilityRule maps a facility type to a department.
type facilityRule struct {
	name string
	typ  reference.FacilityType
	dept model.Department
}

func (r facilityRule) Name() string { return r.name }

func (r facilityRule) Apply(in Input, m *Match) (Decision, bool) {
	f := m.Facility
	if f == nil || f.Type != r.typ {
		return Decision{}, false
	}
	d := m.facilityDecision(f)
	d.Department = r.dept
	if hasCode(in) {
		d.MappingStatus = model.MappingLCUnmapped
		d.DataIntegrity = model.IntegrityValid
	} else {
		d.MappingStatus = model.MappingNoLCInfo
		d.DataIntegrity = model.IntegrityMissingLC
	}
	return d, true
}

// unmappedRule is the catch-all at the end of the cascade.
type unmappedRule struct{}

func (unmappedRule) Name() string { return "unmapped" }

func (unmappedRule) Apply(in Input, _ *Match) (Decision, bool) {
	d := Decision{
		Department:       model.DepartmentNone,
		ResolvedLocation: strings.TrimSpace(in.Location),
	}
	if hasCode(in) {
		d.MappingStatus = model.MappingLCUnmapped
		d.DataIntegrity = model.IntegrityUnknownLC
	} else {
		d.MappingStatus = model.MappingNoLCInfo
		d.DataIntegrity = model.IntegrityMissingLC
	}
	return d, true
}
