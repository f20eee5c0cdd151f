// Package model defines the record types shared by the enrichment engine,
// the ingest layer and the run store.
package model

import "time"

// Department is the operating department a record is attributed to.
type Department string

const (
	DepartmentDrilling   Department = "Drilling"
	DepartmentProduction Department = "Production"
	DepartmentLogistics  Department = "Logistics"
	DepartmentNone       Department = "None"
)

// MappingStatus describes how an allocation code was resolved.
type MappingStatus string

const (
	MappingLCMapped    MappingStatus = "LC-Mapped"
	MappingSpecialCase MappingStatus = "Special-Case"
	MappingNoLCInfo    MappingStatus = "No-LC-Info"
	MappingLCUnmapped  MappingStatus = "LC-Unmapped"
	MappingError       MappingStatus = "Error"
)

// DataIntegrity is the data-quality verdict for an enriched record.
type DataIntegrity string

const (
	IntegrityValid            DataIntegrity = "Valid"
	IntegrityValidSpecialCase DataIntegrity = "Valid-Special-Case"
	IntegrityMissingLC        DataIntegrity = "Missing-LC"
	IntegrityUnknownLC        DataIntegrity = "Unknown-LC"
	IntegrityError            DataIntegrity = "Error"
)

// NeedsReview reports whether the integrity value should be surfaced to a
// reviewer.
func (d DataIntegrity) NeedsReview() bool {
	return d != IntegrityValid && d != IntegrityValidSpecialCase
}

// ActivityCategory labels voyage events as productive or not.
type ActivityCategory string

const (
	ActivityProductive    ActivityCategory = "Productive"
	ActivityNonProductive ActivityCategory = "Non-Productive"
	ActivityNeedsReview   ActivityCategory = "Needs-Review"
)

// RecordKind identifies which export a record came from.
type RecordKind string

const (
	KindEvent    RecordKind = "event"
	KindManifest RecordKind = "manifest"
	KindCost     RecordKind = "cost"
)

// CostBasis records where a day-rate came from.
type CostBasis string

const (
	CostBasisSchedule    CostBasis = "schedule"
	CostBasisDefaultTier CostBasis = "default-tier"
)

// RawEventRecord is one row of the voyage events export.
type RawEventRecord struct {
	Vessel          string    `json:"vessel"`
	VoyageNumber    string    `json:"voyage_number"`
	ParentEvent     string    `json:"parent_event"`
	Event           string    `json:"event"`
	Location        string    `json:"location"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Hours           float64   `json:"hours"`
	CostDedicatedTo string    `json:"cost_dedicated_to"`
	Remarks         string    `json:"remarks,omitempty"`
}

// RawManifestRecord is one row of the cargo manifests export.
type RawManifestRecord struct {
	Vessel           string    `json:"vessel"`
	VoyageNumber     string    `json:"voyage_number"`
	ManifestNumber   string    `json:"manifest_number"`
	OffshoreLocation string    `json:"offshore_location"`
	CostCode         string    `json:"cost_code"`
	ManifestDate     time.Time `json:"manifest_date"`
	DeckTons         float64   `json:"deck_tons"`
	RTTons           float64   `json:"rt_tons"`
	Lifts            int       `json:"lifts"`
	CargoType        string    `json:"cargo_type,omitempty"`
	Remarks          string    `json:"remarks,omitempty"`
}

// RawCostRecord is one row of the cost-allocation ledger.
type RawCostRecord struct {
	LCNumber      string    `json:"lc_number"`
	Location      string    `json:"location"`
	Description   string    `json:"description,omitempty"`
	PeriodStart   time.Time `json:"period_start"`
	AllocatedDays float64   `json:"allocated_days"`
	Amount        float64   `json:"amount"`
}

// Hours returns the ledger allocation expressed in hours.
func (c RawCostRecord) Hours() float64 {
	return c.AllocatedDays * 24
}

// AllocationSplit is one (code, percentage) share of a source record.
// An empty Code means the source carried no allocation code.
type AllocationSplit struct {
	Code             string        `json:"code"`
	Percentage       float64       `json:"percentage"`
	ResolvedLocation string        `json:"resolved_location"`
	IsSpecialCase    bool          `json:"is_special_case"`
	MappingStatus    MappingStatus `json:"mapping_status"`
}

// EnrichedRecord is one split of a source record with every derived field
// filled in. A source record with N splits produces N enriched records.
type EnrichedRecord struct {
	Kind        RecordKind `json:"kind"`
	SourceIndex int        `json:"source_index"`
	SplitIndex  int        `json:"split_index"`
	SplitCount  int        `json:"split_count"`

	Vessel         string    `json:"vessel,omitempty"`
	VoyageNumber   string    `json:"voyage_number,omitempty"`
	ParentEvent    string    `json:"parent_event,omitempty"`
	Event          string    `json:"event,omitempty"`
	Location       string    `json:"location"`
	Date           time.Time `json:"date"`
	RawHours       float64   `json:"raw_hours"`
	AllocationText string    `json:"allocation_text"`
	Remarks        string    `json:"remarks,omitempty"`

	Allocation     AllocationSplit `json:"allocation"`
	Department     Department      `json:"department"`
	ParentFacility string          `json:"parent_facility,omitempty"`
	Region         string          `json:"region,omitempty"`
	FinalHours     float64         `json:"final_hours"`

	Activity       ActivityCategory `json:"activity,omitempty"`
	ActivityReason string           `json:"activity_reason,omitempty"`

	HourlyRate float64   `json:"hourly_rate"`
	TotalCost  float64   `json:"total_cost"`
	RatePeriod string    `json:"rate_period,omitempty"`
	CostBasis  CostBasis `json:"cost_basis,omitempty"`

	MappingStatus MappingStatus `json:"mapping_status"`
	DataIntegrity DataIntegrity `json:"data_integrity"`
}
