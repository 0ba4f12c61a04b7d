package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/engine"
)

var errBoom = errors.New("boom")

// fakeCalculator answers from a fixed function and counts calls.
type fakeCalculator struct {
	calls atomic.Int32
	fn    func(req engine.Request) (*engine.Result, error)
}

func (f *fakeCalculator) Calculate(_ context.Context, req engine.Request) (*engine.Result, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(req)
	}
	return &engine.Result{TotalEmissions: decimal.NewFromInt(1)}, nil
}

func requests(n int) []engine.Request {
	reqs := make([]engine.Request, n)
	for i := range reqs {
		reqs[i] = engine.Request{Structured: &activity.ParsedActivity{
			Category: "fuel",
			Quantity: float64(i + 1),
			Unit:     "liter",
		}}
	}
	return reqs
}

func TestProcess(t *testing.T) {
	calc := &fakeCalculator{}
	p, err := NewProcessor(calc, Config{ChunkSize: 3, Pause: time.Millisecond})
	require.NoError(t, err)

	report, err := p.Process(context.Background(), requests(8))
	require.NoError(t, err)

	assert.Equal(t, int32(8), calc.calls.Load())
	assert.Len(t, report.Results, 8)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 8, report.Succeeded())
	for i, r := range report.Results {
		require.NotNil(t, r, "result %d", i)
	}
}

func TestProcess_FailuresAreIsolated(t *testing.T) {
	calc := &fakeCalculator{fn: func(req engine.Request) (*engine.Result, error) {
		if req.Structured.Quantity == 3 {
			return nil, errBoom
		}
		return &engine.Result{}, nil
	}}
	p, err := NewProcessor(calc, Config{ChunkSize: 2, Pause: time.Millisecond})
	require.NoError(t, err)

	report, err := p.Process(context.Background(), requests(5))
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Index)
	assert.ErrorIs(t, report.Errors[0], errBoom)
	assert.Nil(t, report.Results[2])
	assert.NotNil(t, report.Results[3], "later items still run")
	assert.Equal(t, 4, report.Succeeded())
}

func TestProcess_EmptyBatch(t *testing.T) {
	p, err := NewProcessor(&fakeCalculator{}, Config{})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestProcess_ContextCancellation(t *testing.T) {
	calc := &fakeCalculator{}
	p, err := NewProcessor(calc, Config{ChunkSize: 1, Pause: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.Process(ctx, requests(3))
		assert.ErrorIs(t, err, context.Canceled)
	}()

	// Let the first chunk finish, then cancel during the inter-chunk pause.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not stop on cancellation")
	}
	assert.Equal(t, int32(1), calc.calls.Load())
}

func TestProcess_ProgressCallback(t *testing.T) {
	var snapshots []Snapshot
	calc := &fakeCalculator{}
	p, err := NewProcessor(calc, Config{ChunkSize: 4, Pause: time.Millisecond},
		WithProgress(func(s Snapshot) { snapshots = append(snapshots, s) }))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), requests(10))
	require.NoError(t, err)

	require.Len(t, snapshots, 3)
	assert.Equal(t, 4, snapshots[0].ProcessedItems)
	assert.Equal(t, 8, snapshots[1].ProcessedItems)
	assert.Equal(t, 10, snapshots[2].ProcessedItems)
	assert.InDelta(t, 100.0, snapshots[2].PercentComplete, 1e-9)
	assert.True(t, snapshots[2].Complete())
	assert.False(t, snapshots[0].Complete())
}

func TestNewProcessor_Validation(t *testing.T) {
	_, err := NewProcessor(&fakeCalculator{}, Config{ChunkSize: -1})
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewProcessor(&fakeCalculator{}, Config{ChunkSize: MaxChunkSize + 1})
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	p, err := NewProcessor(&fakeCalculator{}, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, p.cfg.ChunkSize)
	assert.Equal(t, DefaultPause, p.cfg.Pause)
	assert.Equal(t, DefaultConcurrency, p.cfg.Concurrency)
}
