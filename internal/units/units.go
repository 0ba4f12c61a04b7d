// Package units converts physical quantities between units of the same
// family. Units are grouped into disjoint families (energy, volume, weight,
// distance); each family has one base unit and every member stores a
// multiplier to that base. The tables are fixed, versioned vocabulary:
// changing them is a breaking change for downstream consumers.
package units

import (
	"fmt"
	"math"
	"strings"
)

// VocabularyVersion is the semantic version of the unit vocabulary. Factor
// datasets record the version they were authored against; a major-version
// mismatch means unit semantics may have changed underneath the dataset.
const VocabularyVersion = "1.0.0"

// Family identifies a group of mutually convertible units.
type Family int

const (
	// FamilyEnergy covers electrical and thermal energy units (base kWh).
	FamilyEnergy Family = iota

	// FamilyVolume covers liquid and gas volume units (base liter).
	FamilyVolume

	// FamilyWeight covers mass units (base kilogram).
	FamilyWeight

	// FamilyDistance covers travel distance units (base kilometer).
	FamilyDistance
)

// String returns a human-readable family name.
func (f Family) String() string {
	switch f {
	case FamilyEnergy:
		return "energy"
	case FamilyVolume:
		return "volume"
	case FamilyWeight:
		return "weight"
	case FamilyDistance:
		return "distance"
	default:
		return fmt.Sprintf("Family(%d)", f)
	}
}

// unitDef binds a unit to its family and its multiplier to the family base.
type unitDef struct {
	family Family
	toBase float64
}

// unitTable maps canonical unit spellings to their definitions. Common
// aliases (plural forms, long names) map to the same definition. The table
// is read-only after package initialization.
//
//nolint:gochecknoglobals // Immutable vocabulary table, never mutated.
var unitTable = map[string]unitDef{
	// Energy (base kWh)
	"wh":  {FamilyEnergy, 0.001},
	"kwh": {FamilyEnergy, 1},
	"mwh": {FamilyEnergy, 1000},
	"gwh": {FamilyEnergy, 1e6},
	"mj":  {FamilyEnergy, 1.0 / 3.6},
	"gj":  {FamilyEnergy, 1000.0 / 3.6},
	"tj":  {FamilyEnergy, 1e6 / 3.6},

	// Volume (base liter)
	"ml":      {FamilyVolume, 0.001},
	"l":       {FamilyVolume, 1},
	"liter":   {FamilyVolume, 1},
	"liters":  {FamilyVolume, 1},
	"litre":   {FamilyVolume, 1},
	"litres":  {FamilyVolume, 1},
	"m3":      {FamilyVolume, 1000},
	"gal":     {FamilyVolume, 3.785411784},
	"gallon":  {FamilyVolume, 3.785411784},
	"gallons": {FamilyVolume, 3.785411784},
	"bbl":     {FamilyVolume, 158.987294928},
	"barrel":  {FamilyVolume, 158.987294928},

	// Weight (base kg)
	"g":         {FamilyWeight, 0.001},
	"gram":      {FamilyWeight, 0.001},
	"grams":     {FamilyWeight, 0.001},
	"kg":        {FamilyWeight, 1},
	"kilogram":  {FamilyWeight, 1},
	"kilograms": {FamilyWeight, 1},
	"t":         {FamilyWeight, 1000},
	"ton":       {FamilyWeight, 1000},
	"tonne":     {FamilyWeight, 1000},
	"tonnes":    {FamilyWeight, 1000},
	"kt":        {FamilyWeight, 1e6},
	"lb":        {FamilyWeight, 0.45359237},
	"lbs":       {FamilyWeight, 0.45359237},
	"pound":     {FamilyWeight, 0.45359237},
	"pounds":    {FamilyWeight, 0.45359237},

	// Distance (base km)
	"m":          {FamilyDistance, 0.001},
	"meter":      {FamilyDistance, 0.001},
	"meters":     {FamilyDistance, 0.001},
	"km":         {FamilyDistance, 1},
	"kilometer":  {FamilyDistance, 1},
	"kilometers": {FamilyDistance, 1},
	"mi":         {FamilyDistance, 1.609344},
	"mile":       {FamilyDistance, 1.609344},
	"miles":      {FamilyDistance, 1.609344},
	"nmi":        {FamilyDistance, 1.852},
}

// baseUnits names the base unit per family.
//
//nolint:gochecknoglobals // Immutable vocabulary table, never mutated.
var baseUnits = map[Family]string{
	FamilyEnergy:   "kwh",
	FamilyVolume:   "l",
	FamilyWeight:   "kg",
	FamilyDistance: "km",
}

// canonical lower-cases and trims a unit spelling.
func canonical(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// FamilyOf returns the family a unit belongs to and whether the unit is in
// the vocabulary. Matching is case-insensitive with surrounding whitespace
// ignored.
func FamilyOf(unit string) (Family, bool) {
	def, ok := unitTable[canonical(unit)]
	return def.family, ok
}

// BaseUnit returns the designated base unit of a family.
func BaseUnit(f Family) string {
	return baseUnits[f]
}

// IsRecognized reports whether unit is part of the unit vocabulary.
func IsRecognized(unit string) bool {
	_, ok := FamilyOf(unit)
	return ok
}

// Convert converts value from one unit to another within the same family.
//
// Identical units (case-insensitive, trimmed) short-circuit to value
// unchanged, even when the spelling is not in the vocabulary. Otherwise both
// units must be recognized and share a family or ErrUnsupportedConversion is
// returned. Non-finite inputs and results return ErrCalculationOverflow.
func Convert(value float64, from, to string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}

	cf, ct := canonical(from), canonical(to)
	if cf == ct {
		return value, nil
	}

	fromDef, ok := unitTable[cf]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrUnsupportedConversion, from)
	}
	toDef, ok := unitTable[ct]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrUnsupportedConversion, to)
	}
	if fromDef.family != toDef.family {
		return 0, fmt.Errorf("%w: %q is %s, %q is %s",
			ErrUnsupportedConversion, from, fromDef.family, to, toDef.family)
	}

	result := value * fromDef.toBase / toDef.toBase
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, ErrCalculationOverflow
	}
	return result, nil
}
