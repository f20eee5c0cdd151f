package model

import "time"

// BulkAction is the direction of a bulk fluid movement as recorded by one side.
type BulkAction string

const (
	BulkLoad      BulkAction = "load"
	BulkDischarge BulkAction = "discharge"
	BulkTransfer  BulkAction = "transfer"
)

// FluidCategory is the business classification of a bulk fluid.
type FluidCategory string

const (
	FluidProductionChemical FluidCategory = "Production-Chemical"
	FluidDrilling           FluidCategory = "Drilling"
	FluidCompletion         FluidCategory = "Completion/Intervention"
	FluidUtility            FluidCategory = "Utility"
	FluidPetroleum          FluidCategory = "Petroleum"
	FluidOther              FluidCategory = "Other"
)

// FluidCategories lists every category in display order.
var FluidCategories = []FluidCategory{
	FluidProductionChemical,
	FluidDrilling,
	FluidCompletion,
	FluidUtility,
	FluidPetroleum,
	FluidOther,
}

// Valid reports whether c is a known category.
func (c FluidCategory) Valid() bool {
	for _, k := range FluidCategories {
		if k == c {
			return true
		}
	}
	return false
}

// BulkIntegrity is the overall verdict on a consolidated operation.
type BulkIntegrity string

const (
	BulkIntegrityValid   BulkIntegrity = "Valid"
	BulkIntegrityWarning BulkIntegrity = "Warning"
)

// BulkFlag marks a specific data-quality issue on a consolidated operation.
type BulkFlag string

const (
	FlagVolumeMismatch   BulkFlag = "volume-mismatch"
	FlagUnknownUnit      BulkFlag = "unknown-unit"
	FlagMissingQuantity  BulkFlag = "missing-quantity"
	FlagDensityDefaulted BulkFlag = "density-defaulted"
)

// BulkTransferRecord is one row of the bulk actions export.
type BulkTransferRecord struct {
	Vessel      string     `json:"vessel"`
	Start       time.Time  `json:"start"`
	PortType    string     `json:"port_type,omitempty"`
	Action      BulkAction `json:"action"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	FluidType   string     `json:"fluid_type"`
	Description string     `json:"description,omitempty"`
	Origin      string     `json:"origin,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Tank        string     `json:"tank,omitempty"`
	Density     float64    `json:"density,omitempty"` // kg/m3; 0 when not supplied
}

// ConsolidatedOperation is one physical bulk movement reconstructed from one
// or more transfer records. SourceIndexes point into the input batch.
type ConsolidatedOperation struct {
	ID            string    `json:"id"`
	SourceIndexes []int     `json:"source_indexes"`
	Vessel        string    `json:"vessel"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Origin        string    `json:"origin,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	Tank          string    `json:"tank,omitempty"`
	FluidType     string    `json:"fluid_type"`
	Description   string    `json:"description,omitempty"`

	VolumeBbls            float64 `json:"volume_bbls"`
	OriginVolumeBbls      float64 `json:"origin_volume_bbls"`
	DestinationVolumeBbls float64 `json:"destination_volume_bbls"`

	Category          FluidCategory `json:"category"`
	IsDrillingFluid   bool          `json:"is_drilling_fluid"`
	IsCompletionFluid bool          `json:"is_completion_fluid"`
	Department        Department    `json:"department"`

	Integrity BulkIntegrity `json:"integrity"`
	Flags     []BulkFlag    `json:"flags,omitempty"`
}

// HasFlag reports whether the operation carries flag f.
func (o ConsolidatedOperation) HasFlag(f BulkFlag) bool {
	for _, x := range o.Flags {
		if x == f {
			return true
		}
	}
	return false
}
