// Package factors holds the read-only emission factor reference dataset and
// answers similarity queries against it. The engine never mutates factor
// records; concurrent requests read the dataset in parallel without locking.
package factors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carbonledger/carbonledger/internal/scope"
	"github.com/carbonledger/carbonledger/internal/units"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for dataset loading. Compare with errors.Is().
var (
	// ErrInvalidDataset indicates a dataset file that fails validation.
	ErrInvalidDataset = constError("invalid factor dataset")

	// ErrVocabularyMismatch indicates the dataset was authored against an
	// incompatible unit/scope vocabulary major version.
	ErrVocabularyMismatch = constError("dataset vocabulary version mismatch")
)

// GasBreakdown splits a factor value per greenhouse gas, each expressed in
// kgCO2e per factor unit. The parts need not sum exactly to the factor value
// because GWP rounding in published datasets loses precision.
type GasBreakdown struct {
	CO2 float64 `json:"co2" yaml:"co2"`
	CH4 float64 `json:"ch4" yaml:"ch4"`
	N2O float64 `json:"n2o" yaml:"n2o"`
}

// Record is one emission factor from the reference dataset. Value is kgCO2e
// per Unit of activity. Records are immutable after load.
type Record struct {
	ID        string          `json:"id"`
	Activity  string          `json:"activity"`
	Fuel      string          `json:"fuel,omitempty"`
	Region    string          `json:"region,omitempty"`
	Source    string          `json:"source,omitempty"`
	Unit      string          `json:"unit"`
	Value     decimal.Decimal `json:"value"`
	Scope     *scope.Scope    `json:"scope,omitempty"`
	Breakdown *GasBreakdown   `json:"ghg_breakdown,omitempty"`
}

// validate checks one record's invariants.
func (r Record) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: record is missing an id", ErrInvalidDataset)
	}
	if strings.TrimSpace(r.Activity) == "" {
		return fmt.Errorf("%w: record %s has no activity", ErrInvalidDataset, r.ID)
	}
	if !units.IsRecognized(r.Unit) {
		return fmt.Errorf("%w: record %s uses unit %q outside the unit vocabulary",
			ErrInvalidDataset, r.ID, r.Unit)
	}
	if r.Value.IsNegative() || r.Value.IsZero() {
		return fmt.Errorf("%w: record %s has non-positive value %s",
			ErrInvalidDataset, r.ID, r.Value)
	}
	if r.Scope != nil && !r.Scope.IsValid() {
		return fmt.Errorf("%w: record %s has invalid scope", ErrInvalidDataset, r.ID)
	}
	return nil
}

// matchText returns the text the similarity vector is built from.
func (r Record) matchText() string {
	return strings.Join([]string{r.Activity, r.Fuel, r.Region}, " ")
}

// Candidate is a factor record scored against an activity query.
type Candidate struct {
	Record     Record  `json:"factor"`
	Similarity float64 `json:"similarity"`
}
