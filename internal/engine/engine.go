// Package engine orchestrates emission calculations. A request is
// normalized into a canonical activity, then handed to an ordered chain of
// calculation backends. Each backend either answers or rejects; rejections
// carry hints forward and the final backend always answers, so a valid
// activity always produces a result.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/logging"
	"github.com/carbonledger/carbonledger/internal/scope"
)

// Request is a single calculation request. Exactly one of RawInput or
// Structured must be set.
type Request struct {
	// RawInput is free text describing the activity, parsed by the
	// assistant backend.
	RawInput string

	// Structured is a caller-supplied activity, trusted after validation.
	Structured *activity.ParsedActivity

	// CompanyID optionally attributes the calculation to a company.
	CompanyID string

	// DemoMode skips the real backends and answers from the demo table.
	DemoMode bool
}

// Engine runs the backend chain.
type Engine struct {
	normalizer *activity.Normalizer
	chain      []Backend
	metrics    *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine over the given backend chain. Backends are tried in
// the order given; the last one must never reject.
func New(normalizer *activity.Normalizer, chain []Backend, opts ...Option) *Engine {
	e := &Engine{
		normalizer: normalizer,
		chain:      chain,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate runs one request through normalization, the backend chain, and
// scope classification. Validation failures surface immediately; backend
// rejections fall through the chain.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	a, err := e.normalize(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := e.runChain(ctx, req, a)
	if err != nil {
		return nil, err
	}

	// Backends leave the scope unset when the factor carried none; the rule
	// table fills the gap.
	if !result.Scope.IsValid() {
		result.Scope = scope.Classify(a.Category, a.FuelType, a.Unit, a.Description)
	}

	result.ID = ulid.Make().String()
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	e.metrics.observeCalculation(result.Backend, time.Since(start).Seconds())
	log.Info().
		Str("component", "engine").
		Str("id", result.ID).
		Str("backend", result.Backend.String()).
		Str("scope", result.Scope.String()).
		Float64("confidence", result.Confidence).
		Msg("calculation complete")
	return result, nil
}

// normalize produces the canonical activity from the request input.
func (e *Engine) normalize(ctx context.Context, req Request) (activity.ParsedActivity, error) {
	if req.Structured != nil {
		return e.normalizer.NormalizeStructured(*req.Structured)
	}
	return e.normalizer.NormalizeText(ctx, req.RawInput)
}

// runChain tries each backend in order, accumulating rejection hints.
func (e *Engine) runChain(ctx context.Context, req Request, a activity.ParsedActivity) (*Result, error) {
	log := logging.FromContext(ctx)
	backendReq := BackendRequest{Activity: a}

	for _, backend := range e.chain {
		if req.DemoMode && backend.Kind() != BackendDemo {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := backend.Calculate(ctx, backendReq)
		if err == nil {
			return result, nil
		}

		rej, ok := asRejection(err)
		if !ok {
			return nil, fmt.Errorf("%s backend: %w", backend.Kind(), err)
		}

		e.metrics.observeRejection(backend.Kind())
		backendReq.Hints = append(backendReq.Hints, rej.Hints...)
		log.Debug().
			Str("component", "engine").
			Str("backend", backend.Kind().String()).
			Str("reason", rej.Reason).
			Msg("backend rejected, falling through")
	}

	return nil, fmt.Errorf("%w: all backends rejected", ErrRejected)
}

// asRejection extracts the Rejection from a backend error.
func asRejection(err error) (*Rejection, bool) {
	rej, ok := err.(*Rejection)
	return rej, ok
}
