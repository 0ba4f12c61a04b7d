// Package batch runs many calculation requests through the engine in
// chunks. Items fail individually without aborting the run, chunks are
// separated by a pause to avoid hammering the assistant backend, and items
// within a chunk run concurrently up to a limit.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/logging"
)

// Defaults and bounds for batch configuration.
const (
	// DefaultChunkSize is the number of items per chunk.
	DefaultChunkSize = 20

	// MaxChunkSize is the largest allowed chunk.
	MaxChunkSize = 1000

	// DefaultPause separates consecutive chunks.
	DefaultPause = 200 * time.Millisecond

	// DefaultConcurrency is the per-chunk worker limit.
	DefaultConcurrency = 4
)

// Common batch errors.
var (
	ErrInvalidChunkSize = errors.New("chunk size must be between 1 and 1000")
	ErrEmptyBatch       = errors.New("batch contains no items")
)

// Config tunes a batch run. The zero value picks all defaults.
type Config struct {
	// ChunkSize is the number of items per chunk.
	ChunkSize int

	// Pause is the delay between chunks.
	Pause time.Duration

	// Concurrency limits simultaneous calculations within a chunk.
	Concurrency int
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Pause == 0 {
		c.Pause = DefaultPause
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Calculator is the engine surface the processor needs. *engine.Engine
// implements it; tests supply fakes.
type Calculator interface {
	Calculate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// ItemError records the failure of a single batch item.
type ItemError struct {
	// Index is the item's position in the input slice.
	Index int

	// Err is the calculation failure.
	Err error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e ItemError) Unwrap() error { return e.Err }

// Report is the outcome of a batch run. Results is index-aligned with the
// input; failed items have a nil result and an entry in Errors.
type Report struct {
	Results []*engine.Result
	Errors  []ItemError
}

// Succeeded returns the number of items that produced a result.
func (r *Report) Succeeded() int {
	return len(r.Results) - len(r.Errors)
}

// ProgressFunc receives a progress snapshot after every finished chunk.
type ProgressFunc func(snapshot Snapshot)

// Processor runs batches against a Calculator.
type Processor struct {
	calc       Calculator
	cfg        Config
	onProgress ProgressFunc
}

// Option configures a Processor.
type Option func(*Processor)

// WithProgress sets the per-chunk progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) {
		p.onProgress = fn
	}
}

// NewProcessor creates a Processor with the given configuration.
func NewProcessor(calc Calculator, cfg Config, opts ...Option) (*Processor, error) {
	cfg = cfg.withDefaults()
	if cfg.ChunkSize < 1 || cfg.ChunkSize > MaxChunkSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, cfg.ChunkSize)
	}

	p := &Processor{calc: calc, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs all requests and reports per-item outcomes. Only context
// cancellation aborts the run; individual failures are collected.
func (p *Processor) Process(ctx context.Context, reqs []engine.Request) (*Report, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}

	log := logging.FromContext(ctx)
	progress := newProgress(len(reqs), p.cfg.ChunkSize)
	report := &Report{Results: make([]*engine.Result, len(reqs))}

	var mu sync.Mutex

	for start := 0; start < len(reqs); start += p.cfg.ChunkSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.Pause):
			}
		}

		end := start + p.cfg.ChunkSize
		if end > len(reqs) {
			end = len(reqs)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				result, err := p.calc.Calculate(gctx, reqs[i])
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					// Cancellation is the one failure that aborts the run.
					if gctx.Err() != nil {
						return gctx.Err()
					}
					report.Errors = append(report.Errors, ItemError{Index: i, Err: err})
					return nil
				}
				report.Results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		progress.addChunk(end - start)
		if p.onProgress != nil {
			p.onProgress(progress.snapshot())
		}
	}

	log.Info().
		Str("component", "batch").
		Int("total", len(reqs)).
		Int("failed", len(report.Errors)).
		Msg("batch complete")
	return report, nil
}
