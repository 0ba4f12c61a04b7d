package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/scope"
)

// EmissionsUnit is the unit every calculation result is expressed in.
const EmissionsUnit = "kgCO2e"

// BackendKind identifies which calculation backend produced a result.
type BackendKind int

const (
	// BackendVectorMatch is dataset lookup by token similarity.
	BackendVectorMatch BackendKind = iota + 1

	// BackendAssistant is the external structured-reasoning service.
	BackendAssistant

	// BackendDemo is the built-in keyword table. It always answers.
	BackendDemo
)

// String returns the wire name of the backend kind.
func (k BackendKind) String() string {
	switch k {
	case BackendVectorMatch:
		return "VECTOR_MATCH"
	case BackendAssistant:
		return "ASSISTANT"
	case BackendDemo:
		return "DEMO"
	default:
		return fmt.Sprintf("BACKEND(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k BackendKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BackendKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "VECTOR_MATCH":
		*k = BackendVectorMatch
	case "ASSISTANT":
		*k = BackendAssistant
	case "DEMO":
		*k = BackendDemo
	default:
		return fmt.Errorf("unknown backend kind %q", text)
	}
	return nil
}

// Result is a completed emission calculation.
type Result struct {
	// ID is a ULID assigned by the engine.
	ID string `json:"id"`

	// TotalEmissions is the calculated emission total in EmissionsUnit.
	TotalEmissions decimal.Decimal `json:"total_emissions"`

	// EmissionsUnit is always "kgCO2e".
	EmissionsUnit string `json:"emissions_unit"`

	// Breakdown splits the total per gas when the factor provides one.
	Breakdown *factors.GasBreakdown `json:"breakdown,omitempty"`

	// Scope is the GHG Protocol scope classification.
	Scope scope.Scope `json:"scope"`

	// Confidence combines parse confidence with match quality, in [0,1].
	Confidence float64 `json:"confidence"`

	// MatchedFactor is the factor the total was computed from, when the
	// backend used one.
	MatchedFactor *factors.Record `json:"matched_factor,omitempty"`

	// Alternatives are lower-ranked candidates the matcher also considered.
	Alternatives []factors.Candidate `json:"alternatives,omitempty"`

	// Backend names the backend that produced this result.
	Backend BackendKind `json:"backend"`

	// ProcessingTimeMs is wall time from request receipt to result.
	ProcessingTimeMs int64 `json:"processing_time_ms"`

	// Activity echoes the normalized activity the result was computed for.
	Activity activity.ParsedActivity `json:"activity"`
}
