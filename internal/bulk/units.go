package bulk

import (
	"strings"

	"github.com/ancientfall/logistics-enrich/internal/model"
)

// Conversion factors to US oil barrels.
const (
	GallonsPerBarrel      = 42.0
	BarrelsPerCubicMetre  = 6.28981
	LitresPerBarrel       = 158.987
	KilogramsPerPound     = 0.45359237
	DefaultDensityKgPerM3 = 1000.0
)

type unitKind int

const (
	unitUnknown unitKind = iota
	unitVolume
	unitMass
)

type unit struct {
	kind unitKind
	// factor converts one unit to barrels (volume) or kilograms (mass).
	factor float64
}

var units = map[string]unit{
	"bbl":          {unitVolume, 1},
	"bbls":         {unitVolume, 1},
	"barrel":       {unitVolume, 1},
	"barrels":      {unitVolume, 1},
	"gal":          {unitVolume, 1 / GallonsPerBarrel},
	"gals":         {unitVolume, 1 / GallonsPerBarrel},
	"gallon":       {unitVolume, 1 / GallonsPerBarrel},
	"gallons":      {unitVolume, 1 / GallonsPerBarrel},
	"m3":           {unitVolume, BarrelsPerCubicMetre},
	"m³":           {unitVolume, BarrelsPerCubicMetre},
	"cbm":          {unitVolume, BarrelsPerCubicMetre},
	"cubic meter":  {unitVolume, BarrelsPerCubicMetre},
	"cubic meters": {unitVolume, BarrelsPerCubicMetre},
	"l":            {unitVolume, 1 / LitresPerBarrel},
	"ltr":          {unitVolume, 1 / LitresPerBarrel},
	"litre":        {unitVolume, 1 / LitresPerBarrel},
	"litres":       {unitVolume, 1 / LitresPerBarrel},
	"liter":        {unitVolume, 1 / LitresPerBarrel},
	"liters":       {unitVolume, 1 / LitresPerBarrel},
	"kg":           {unitMass, 1},
	"kgs":          {unitMass, 1},
	"lb":           {unitMass, KilogramsPerPound},
	"lbs":          {unitMass, KilogramsPerPound},
	"t":            {unitMass, 1000},
	"mt":           {unitMass, 1000},
	"tonne":        {unitMass, 1000},
	"tonnes":       {unitMass, 1000},
}

// conversion is the barrel volume of one record plus any flags raised while
// converting it.
type conversion struct {
	bbls  float64
	flags []model.BulkFlag
}

// ToBarrels converts quantity in unit to barrels. Mass units are converted
// through density (kg/m3); a non-positive density uses defaultDensity and
// raises density-defaulted. Unknown units yield zero and unknown-unit.
func ToBarrels(quantity float64, unitName string, density, defaultDensity float64) (float64, []model.BulkFlag) {
	c := convert(quantity, unitName, density, defaultDensity)
	return c.bbls, c.flags
}

func convert(quantity float64, unitName string, density, defaultDensity float64) conversion {
	if quantity <= 0 {
		return conversion{flags: []model.BulkFlag{model.FlagMissingQuantity}}
	}
	u, ok := units[strings.ToLower(strings.TrimSpace(unitName))]
	if !ok {
		return conversion{flags: []model.BulkFlag{model.FlagUnknownUnit}}
	}
	if u.kind == unitVolume {
		return conversion{bbls: quantity * u.factor}
	}

	var c conversion
	if density <= 0 {
		density = defaultDensity
		c.flags = append(c.flags, model.FlagDensityDefaulted)
	}
	kg := quantity * u.factor
	c.bbls = kg / density * BarrelsPerCubicMetre
	return c
}
