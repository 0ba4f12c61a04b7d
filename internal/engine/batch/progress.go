package batch

import (
	"sync"
	"time"
)

// percentMultiplier converts a ratio to a percentage (0-100).
const percentMultiplier = 100

// progress tracks a running batch. Access goes through addChunk and
// snapshot; callers only ever see immutable Snapshot values.
type progress struct {
	mu sync.Mutex

	totalItems      int
	processedItems  int
	processedChunks int
	chunkSize       int
	startTime       time.Time
}

func newProgress(totalItems, chunkSize int) *progress {
	return &progress{
		totalItems: totalItems,
		chunkSize:  chunkSize,
		startTime:  time.Now(),
	}
}

// addChunk records a finished chunk of the given size.
func (p *progress) addChunk(items int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processedItems += items
	p.processedChunks++
}

// snapshot returns the current state as an immutable value.
func (p *progress) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	s := Snapshot{
		TotalItems:      p.totalItems,
		ProcessedItems:  p.processedItems,
		ProcessedChunks: p.processedChunks,
		ChunkSize:       p.chunkSize,
		Elapsed:         elapsed,
	}
	if p.totalItems > 0 {
		s.PercentComplete = float64(p.processedItems) / float64(p.totalItems) * percentMultiplier
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.ItemsPerSecond = float64(p.processedItems) / secs
	}
	return s
}

// Snapshot is a point-in-time view of batch progress, safe to hand to
// callbacks and log as-is.
type Snapshot struct {
	TotalItems      int
	ProcessedItems  int
	ProcessedChunks int
	ChunkSize       int
	PercentComplete float64
	Elapsed         time.Duration
	ItemsPerSecond  float64
}

// Complete reports whether every item has been processed.
func (s Snapshot) Complete() bool {
	return s.ProcessedItems >= s.TotalItems
}
