package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/assistant"
	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/logging"
	"github.com/carbonledger/carbonledger/internal/match"
	"github.com/carbonledger/carbonledger/internal/scope"
	"github.com/carbonledger/carbonledger/internal/units"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrRejected indicates a backend declined the request and the next backend
// in the chain should be tried.
var ErrRejected = constError("backend rejected request")

// Rejection is a backend refusal. It carries hints the next backend can use
// to do better, e.g. the unit the matcher could not convert.
type Rejection struct {
	Backend BackendKind
	Reason  string
	Hints   []string

	// Err optionally names the underlying cause, e.g. match.ErrNoMatch.
	Err error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.Backend, r.Reason)
}

// Is makes every Rejection match ErrRejected under errors.Is.
func (r *Rejection) Is(target error) bool {
	return target == ErrRejected
}

// Unwrap exposes the underlying cause to errors.Is.
func (r *Rejection) Unwrap() error { return r.Err }

// reject builds a Rejection for the given backend.
func reject(kind BackendKind, reason string, hints ...string) error {
	return &Rejection{Backend: kind, Reason: reason, Hints: hints}
}

// BackendRequest is the input a backend calculates from.
type BackendRequest struct {
	// Activity is the normalized activity.
	Activity activity.ParsedActivity

	// Hints accumulate across the chain from earlier rejections.
	Hints []string
}

// Backend is a single emission calculation strategy. Calculate returns a
// Rejection (matching ErrRejected) to pass the request down the chain; any
// other error is terminal.
type Backend interface {
	Kind() BackendKind
	Calculate(ctx context.Context, req BackendRequest) (*Result, error)
}

// maxAlternatives caps the alternative candidates surfaced alongside the
// best match.
const maxAlternatives = 3

// VectorMatchBackend computes emissions from the reference dataset using
// token similarity matching.
type VectorMatchBackend struct {
	matcher *match.Matcher
}

// NewVectorMatchBackend creates the dataset-backed backend.
func NewVectorMatchBackend(matcher *match.Matcher) *VectorMatchBackend {
	return &VectorMatchBackend{matcher: matcher}
}

// Kind implements Backend.
func (b *VectorMatchBackend) Kind() BackendKind { return BackendVectorMatch }

// Calculate matches the activity against the dataset, converts the quantity
// into the factor's unit, and multiplies. Rejects when no factor clears the
// similarity floor or the unit cannot be converted.
func (b *VectorMatchBackend) Calculate(ctx context.Context, req BackendRequest) (*Result, error) {
	log := logging.FromContext(ctx)
	a := req.Activity

	candidates := b.matcher.Match(a, maxAlternatives+1)
	if len(candidates) == 0 {
		return nil, &Rejection{
			Backend: BackendVectorMatch,
			Reason:  "no factor above similarity floor",
			Err:     match.ErrNoMatch,
		}
	}

	best := candidates[0]
	converted, err := units.Convert(a.Quantity, a.Unit, best.Record.Unit)
	if err != nil {
		// The unit hint lets the assistant reason about the conversion the
		// dataset could not express.
		return nil, reject(BackendVectorMatch,
			fmt.Sprintf("cannot convert %q to factor unit %q", a.Unit, best.Record.Unit),
			"unit:"+strings.ToLower(strings.TrimSpace(a.Unit)))
	}

	qty := decimal.NewFromFloat(converted)
	total := qty.Mul(best.Record.Value)

	var breakdown *factors.GasBreakdown
	if bd := best.Record.Breakdown; bd != nil {
		breakdown = &factors.GasBreakdown{
			CO2: bd.CO2 * converted,
			CH4: bd.CH4 * converted,
			N2O: bd.N2O * converted,
		}
	}

	var sc scope.Scope
	if best.Record.Scope != nil {
		sc = *best.Record.Scope
	}

	log.Debug().
		Str("component", "engine").
		Str("factor", best.Record.ID).
		Float64("similarity", best.Similarity).
		Msg("vector match hit")

	rec := best.Record
	return &Result{
		TotalEmissions: total,
		EmissionsUnit:  EmissionsUnit,
		Breakdown:      breakdown,
		Scope:          sc,
		Confidence:     a.Confidence * best.Similarity,
		MatchedFactor:  &rec,
		Alternatives:   candidates[1:],
		Backend:        BackendVectorMatch,
		Activity:       a,
	}, nil
}

// AssistantBackend delegates calculation to the external assistant service.
type AssistantBackend struct {
	client *assistant.Client
}

// NewAssistantBackend creates the assistant-backed backend.
func NewAssistantBackend(client *assistant.Client) *AssistantBackend {
	return &AssistantBackend{client: client}
}

// Kind implements Backend.
func (b *AssistantBackend) Kind() BackendKind { return BackendAssistant }

// Calculate sends the activity and accumulated hints to the assistant.
// Unavailability is a rejection, not a failure.
func (b *AssistantBackend) Calculate(ctx context.Context, req BackendRequest) (*Result, error) {
	if b.client == nil || !b.client.Enabled() {
		return nil, reject(BackendAssistant, "assistant not configured")
	}

	a := req.Activity
	payload, err := b.client.StructuredCalculate(ctx, describeActivity(a), req.Hints)
	if err != nil {
		if errors.Is(err, assistant.ErrUnavailable) {
			return nil, reject(BackendAssistant, err.Error())
		}
		return nil, err
	}

	var sc scope.Scope
	if payload.Scope != "" {
		if parsed, perr := scope.Parse(payload.Scope); perr == nil {
			sc = parsed
		}
	}

	return &Result{
		TotalEmissions: decimal.NewFromFloat(payload.TotalEmissions),
		EmissionsUnit:  EmissionsUnit,
		Breakdown:      payload.Breakdown,
		Scope:          sc,
		Confidence:     a.Confidence * clamp01(payload.Confidence),
		MatchedFactor:  payload.Factor,
		Backend:        BackendAssistant,
		Activity:       a,
	}, nil
}

// describeActivity flattens the activity into the prose description the
// assistant calculates from.
func describeActivity(a activity.ParsedActivity) string {
	parts := []string{
		fmt.Sprintf("%g %s", a.Quantity, a.Unit),
		a.Category,
	}
	if a.Subcategory != "" {
		parts = append(parts, a.Subcategory)
	}
	if a.FuelType != "" {
		parts = append(parts, a.FuelType)
	}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	return strings.Join(parts, " ")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// demoFactor is one row of the demo keyword table.
type demoFactor struct {
	keywords []string
	unit     string
	value    decimal.Decimal
	scope    scope.Scope
}

// demoConfidenceFactor discounts demo results so they never look like a
// real match.
const demoConfidenceFactor = 0.3

// demoTable maps coarse activity keywords to representative factors. First
// match wins; the final row is the catch-all.
//
//nolint:gochecknoglobals // Immutable demo lookup table.
var demoTable = []demoFactor{
	{
		keywords: []string{"electricity", "elektriciteit", "stroom", "power", "grid"},
		unit:     "kwh",
		value:    decimal.NewFromFloat(0.45),
		scope:    scope.Scope2,
	},
	{
		keywords: []string{"heating", "natural gas", "gas", "verwarming"},
		unit:     "m3",
		value:    decimal.NewFromFloat(1.88),
		scope:    scope.Scope1,
	},
	{
		keywords: []string{"fuel", "petrol", "diesel", "lpg", "benzine"},
		unit:     "liter",
		value:    decimal.NewFromFloat(2.68),
		scope:    scope.Scope1,
	},
	{
		keywords: []string{"travel", "transport", "flight", "commute"},
		unit:     "km",
		value:    decimal.NewFromFloat(0.255),
		scope:    scope.Scope3,
	},
	{
		keywords: []string{"water"},
		unit:     "m3",
		value:    decimal.NewFromFloat(0.344),
		scope:    scope.Scope3,
	},
	{
		keywords: []string{"waste", "afval"},
		unit:     "kg",
		value:    decimal.NewFromFloat(0.511),
		scope:    scope.Scope3,
	},
	{
		keywords: nil, // catch-all
		unit:     "",
		value:    decimal.NewFromFloat(1.0),
		scope:    scope.Scope1,
	},
}

// DemoBackend produces rough estimates from a keyword table. It never
// rejects; it is the terminal fallback.
type DemoBackend struct{}

// NewDemoBackend creates the terminal fallback backend.
func NewDemoBackend() *DemoBackend { return &DemoBackend{} }

// Kind implements Backend.
func (b *DemoBackend) Kind() BackendKind { return BackendDemo }

// Calculate picks the first demo factor whose keywords appear in the
// activity. Quantities are converted into the table unit when the unit
// vocabulary allows it; otherwise the raw quantity is used as-is.
func (b *DemoBackend) Calculate(ctx context.Context, req BackendRequest) (*Result, error) {
	a := req.Activity
	text := strings.ToLower(strings.Join([]string{
		a.Category, a.Subcategory, a.FuelType, a.Description,
	}, " "))

	row := demoTable[len(demoTable)-1]
	for _, candidate := range demoTable {
		if containsAnyKeyword(text, candidate.keywords) {
			row = candidate
			break
		}
	}

	qty := a.Quantity
	if row.unit != "" {
		if converted, err := units.Convert(a.Quantity, a.Unit, row.unit); err == nil {
			qty = converted
		}
	}

	logging.FromContext(ctx).Debug().
		Str("component", "engine").
		Str("unit", row.unit).
		Msg("demo estimate")

	return &Result{
		TotalEmissions: decimal.NewFromFloat(qty).Mul(row.value),
		EmissionsUnit:  EmissionsUnit,
		Scope:          row.scope,
		Confidence:     a.Confidence * demoConfidenceFactor,
		Backend:        BackendDemo,
		Activity:       a,
	}, nil
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
