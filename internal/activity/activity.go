// Package activity defines the canonical activity record the engine
// calculates emissions for, and the normalizer that produces it from raw
// text or caller-supplied structured fields.
package activity

import (
	"context"
	"fmt"
	"strings"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrValidation indicates malformed or missing required fields in an
// activity. It is surfaced to the caller immediately; no fallback applies.
var ErrValidation = constError("activity validation failed")

// ParsedActivity is the canonical representation of a physical activity.
// It is a value type and treated as immutable once produced.
type ParsedActivity struct {
	// Category is the activity category, e.g. "fuel" or "electricity".
	Category string `json:"category" yaml:"category"`

	// Subcategory refines the category, e.g. "petrol". Optional.
	Subcategory string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`

	// FuelType names the fuel involved, if any. Optional.
	FuelType string `json:"fuel_type,omitempty" yaml:"fuel_type,omitempty"`

	// Quantity is the measured amount. Must be positive.
	Quantity float64 `json:"quantity" yaml:"quantity"`

	// Unit is the measurement unit of Quantity. Must be non-empty.
	Unit string `json:"unit" yaml:"unit"`

	// Description carries free-form context used for matching and scope
	// classification.
	Description string `json:"description" yaml:"description"`

	// Confidence is the parse reliability in [0,1]. Structured input from a
	// trusted caller defaults to 1.0.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Validate checks the required-field invariants. All violations wrap
// ErrValidation.
func (a ParsedActivity) Validate() error {
	if strings.TrimSpace(a.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if a.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %g", ErrValidation, a.Quantity)
	}
	if strings.TrimSpace(a.Unit) == "" {
		return fmt.Errorf("%w: unit is required", ErrValidation)
	}
	return nil
}

// clampConfidence forces c into [0,1].
func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// TextParser turns free text into canonical activity fields. The engine's
// implementation delegates to the external assistant backend; tests supply
// fakes.
type TextParser interface {
	Parse(ctx context.Context, raw string) (ParsedActivity, error)
}

// Normalizer validates activities on their way into the engine.
type Normalizer struct {
	parser TextParser
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTextParser sets the free-text parser backend. Without one,
// NormalizeText rejects all input.
func WithTextParser(p TextParser) Option {
	return func(n *Normalizer) {
		n.parser = p
	}
}

// NewNormalizer creates a Normalizer with the given options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeText parses raw free text through the configured parser backend
// and validates the result. Confidence reported by the parser is clamped to
// [0,1]. Parser output that fails validation is rejected with ErrValidation:
// the engine never calculates on malformed activities.
func (n *Normalizer) NormalizeText(ctx context.Context, raw string) (ParsedActivity, error) {
	if strings.TrimSpace(raw) == "" {
		return ParsedActivity{}, fmt.Errorf("%w: input text is empty", ErrValidation)
	}
	if n.parser == nil {
		return ParsedActivity{}, fmt.Errorf("%w: free-text input requires a parser backend", ErrValidation)
	}

	parsed, err := n.parser.Parse(ctx, raw)
	if err != nil {
		return ParsedActivity{}, fmt.Errorf("parse activity text: %w", err)
	}

	parsed.Confidence = clampConfidence(parsed.Confidence)
	if parsed.Description == "" {
		parsed.Description = raw
	}
	if err := parsed.Validate(); err != nil {
		return ParsedActivity{}, err
	}
	return parsed, nil
}

// NormalizeStructured validates caller-supplied structured fields. Trusted
// input defaults to confidence 1.0 when the caller left it unset (zero);
// supplied values are clamped to [0,1].
func (n *Normalizer) NormalizeStructured(a ParsedActivity) (ParsedActivity, error) {
	if a.Confidence == 0 {
		a.Confidence = 1.0
	}
	a.Confidence = clampConfidence(a.Confidence)
	if err := a.Validate(); err != nil {
		return ParsedActivity{}, err
	}
	return a, nil
}
