package scope

import "strings"

// Input carries the lower-cased classification signals. Classify builds it;
// predicates only ever see lower-case text.
type Input struct {
	Activity    string
	Fuel        string
	Unit        string
	Description string
}

// Rule pairs a predicate with the scope it assigns. Rules are evaluated in
// table order, first match wins. The order is load-bearing: categories
// overlap (e.g. "company vehicle transport" matches both the fleet rule and
// the transport rule) and reordering changes classification outcomes.
type Rule struct {
	// ID names the rule for logging and regression tests.
	ID string

	// Scope is assigned when Match returns true.
	Scope Scope

	// Match evaluates the rule against lower-cased input.
	Match func(in Input) bool
}

// Vocabulary tables. These are fixed, versioned classification vocabulary
// (see units.VocabularyVersion); changing them is a breaking change.
//
//nolint:gochecknoglobals // Immutable vocabulary tables, never mutated.
var (
	// electricitySynonyms includes Dutch spellings used in NL utility
	// invoices alongside the English terms.
	electricitySynonyms = []string{
		"electricity", "elektriciteit", "stroom", "netstroom", "elektra",
		"power", "grid",
	}

	generationPhrases = []string{
		"electricity generation", "main activity electricity",
		"energy industries", "power plant",
	}

	combustionIntensityUnits = []string{
		"tj/kt", "kg/tj", "g/kg", "g/mj", "t/tj", "kg/gj",
	}

	vehicleKeywords = []string{"vehicle", "car", "truck", "van"}

	transportKeywords = []string{
		"transport", "travel", "flight", "passenger", "aviation",
	}

	purchasedEnergyKeywords = []string{
		"district heat", "stadsverwarming", "purchased steam",
		"purchased cooling", "district cooling", "purchased heat",
	}

	wasteKeywords = []string{"waste", "recycl", "landfill", "afval"}
)

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// matchesAny reports whether any of the strings contains any substring.
func matchesAny(subs []string, fields ...string) bool {
	for _, f := range fields {
		if containsAny(f, subs) {
			return true
		}
	}
	return false
}

// isElectricityIntensityUnit recognizes per-kWh/per-MWh factor units such as
// "kg co2e/kwh" or "g/mwh".
func isElectricityIntensityUnit(unit string) bool {
	return strings.Contains(unit, "/kwh") || strings.Contains(unit, "/mwh") ||
		strings.Contains(unit, "per kwh") || strings.Contains(unit, "per mwh")
}

// rules is the ordered classification table. Evaluation is strictly
// first-match-wins; see the package tests for the locked ordering.
//
//nolint:gochecknoglobals // Immutable rule table, never mutated.
var rules = []Rule{
	{
		// Producer-side direct generation: the reporting company makes the
		// energy, it does not buy it.
		ID:    "scope1-generation",
		Scope: Scope1,
		Match: func(in Input) bool {
			return containsAny(in.Activity, generationPhrases)
		},
	},
	{
		// Direct on-site combustion reported in intensity units. "purchased"
		// or "grid" in the description means the energy came from elsewhere,
		// which disqualifies the direct-combustion reading.
		ID:    "scope1-combustion",
		Scope: Scope1,
		Match: func(in Input) bool {
			burns := strings.Contains(in.Description, "combust") ||
				strings.Contains(in.Description, "burn")
			purchased := strings.Contains(in.Description, "purchased") ||
				strings.Contains(in.Description, "grid")
			return burns && !purchased && containsAny(in.Unit, combustionIntensityUnits)
		},
	},
	{
		// Company-owned transport and equipment.
		ID:    "scope1-fleet",
		Scope: Scope1,
		Match: func(in Input) bool {
			if strings.Contains(in.Activity, "company owned") ||
				strings.Contains(in.Activity, "company-owned") ||
				strings.Contains(in.Activity, "fleet") {
				return true
			}
			return containsAny(in.Activity, vehicleKeywords) &&
				strings.Contains(in.Description, "company")
		},
	},
	{
		// Purchased electricity. The per-kWh unit clause requires an
		// electricity fuel: the source heuristic mixed ||/&& without
		// grouping, and the AND reading is implemented here (see
		// TestClassify_ElectricityIntensityUnitRequiresElectricityFuel).
		ID:    "scope2-electricity",
		Scope: Scope2,
		Match: func(in Input) bool {
			if matchesAny(electricitySynonyms, in.Fuel, in.Description) {
				return true
			}
			return isElectricityIntensityUnit(in.Unit) &&
				containsAny(in.Fuel, electricitySynonyms)
		},
	},
	{
		// Other purchased energy: district heat, steam, cooling.
		ID:    "scope2-purchased-energy",
		Scope: Scope2,
		Match: func(in Input) bool {
			return matchesAny(purchasedEnergyKeywords, in.Activity, in.Fuel, in.Description)
		},
	},
	{
		// Transport and travel not performed with company-owned vehicles.
		ID:    "scope3-transport",
		Scope: Scope3,
		Match: func(in Input) bool {
			if matchesAny(transportKeywords, in.Activity, in.Fuel, in.Description) {
				return true
			}
			return containsAny(in.Activity, vehicleKeywords) &&
				!strings.Contains(in.Description, "company")
		},
	},
	{
		ID:    "scope3-waste",
		Scope: Scope3,
		Match: func(in Input) bool {
			return matchesAny(wasteKeywords, in.Activity, in.Fuel, in.Description)
		},
	},
	{
		// Default: assume direct fuel combustion.
		ID:    "scope1-default",
		Scope: Scope1,
		Match: func(Input) bool { return true },
	},
}

// Classify assigns a scope from the activity signals. It is deterministic,
// total, and never fails: the final rule matches everything.
func Classify(activity, fuel, unit, description string) Scope {
	s, _ := ClassifyWithRule(activity, fuel, unit, description)
	return s
}

// ClassifyWithRule is Classify plus the ID of the rule that fired, for
// logging and tests.
func ClassifyWithRule(activity, fuel, unit, description string) (Scope, string) {
	in := Input{
		Activity:    strings.ToLower(activity),
		Fuel:        strings.ToLower(fuel),
		Unit:        strings.ToLower(unit),
		Description: strings.ToLower(description),
	}
	for _, r := range rules {
		if r.Match(in) {
			return r.Scope, r.ID
		}
	}
	// Unreachable: the default rule always matches.
	return Scope1, "scope1-default"
}

// RuleIDs returns the rule IDs in evaluation order. Exposed so tests can
// lock the ordering.
func RuleIDs() []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}
