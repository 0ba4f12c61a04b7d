// Package persist stores completed calculations. The engine treats
// persistence as best-effort: a failed save is reported as a warning, never
// as a failed calculation.
package persist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carbonledger/carbonledger/internal/engine"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrPersistence wraps all storage failures.
var ErrPersistence = constError("persistence failed")

// Record is a calculation with its attribution, ready for storage.
type Record struct {
	// Result is the completed calculation.
	Result *engine.Result

	// CompanyID attributes the calculation to a company. Optional.
	CompanyID uuid.UUID
}

// Sink stores calculation records.
type Sink interface {
	// Save persists one record.
	Save(ctx context.Context, rec Record) error

	// Close releases the sink's resources.
	Close() error
}

// ParseCompanyID validates an optional company identifier. Empty input
// yields the nil UUID, meaning unattributed.
func ParseCompanyID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid company id %q: %w", raw, err)
	}
	return id, nil
}

// Discard is a Sink that drops everything. It backs runs without a
// configured database.
type Discard struct{}

// NewDiscard creates the no-op sink.
func NewDiscard() Discard { return Discard{} }

// Save implements Sink.
func (Discard) Save(context.Context, Record) error { return nil }

// Close implements Sink.
func (Discard) Close() error { return nil }
