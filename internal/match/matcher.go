// Package match ranks emission factor candidates against a parsed activity.
// It builds a text query from the activity's semantic fields, asks the
// reference dataset for scored candidates, and applies the tie-breaking
// rules: similarity descending, preferred source on equal similarity, then
// dataset insertion order.
package match

import (
	"sort"
	"strings"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/factors"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrNoMatch indicates no factor cleared the similarity floor. It triggers
// backend fallback, never a terminal failure.
var ErrNoMatch = constError("no emission factor matched")

// DefaultFloor is the minimum similarity a candidate must clear to be
// considered at all.
const DefaultFloor = 0.6

// Finder answers scored candidate queries against a reference dataset.
// *factors.Store implements it; tests supply fakes.
type Finder interface {
	FindCandidates(query string, minSimilarity float64, maxResults int) []factors.Candidate
}

// Matcher ranks factor candidates for activities.
type Matcher struct {
	finder          Finder
	floor           float64
	preferredSource string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithFloor overrides the minimum similarity floor.
func WithFloor(floor float64) Option {
	return func(m *Matcher) {
		m.floor = floor
	}
}

// WithPreferredSource prefers factors from the given source on similarity
// ties. Matching is case-insensitive.
func WithPreferredSource(source string) Option {
	return func(m *Matcher) {
		m.preferredSource = strings.ToLower(source)
	}
}

// New creates a Matcher over the given finder.
func New(finder Finder, opts ...Option) *Matcher {
	m := &Matcher{
		finder: finder,
		floor:  DefaultFloor,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Floor returns the configured similarity floor.
func (m *Matcher) Floor() float64 {
	return m.floor
}

// queryText builds the similarity query from the activity's semantic fields.
func queryText(a activity.ParsedActivity) string {
	return strings.Join([]string{
		a.Category, a.Subcategory, a.FuelType, a.Description,
	}, " ")
}

// Match returns candidates ordered best-first. The best match is the first
// element; the rest are surfaced as alternatives. Returns an empty slice
// when nothing clears the floor. maxResults limits the result count; zero
// or negative means no limit.
func (m *Matcher) Match(a activity.ParsedActivity, maxResults int) []factors.Candidate {
	// Fetch everything above the floor so preferred-source tie-breaking sees
	// all contenders before truncation.
	candidates := m.finder.FindCandidates(queryText(a), m.floor, 0)
	if len(candidates) == 0 {
		return nil
	}

	if m.preferredSource != "" {
		preferred := m.preferredSource
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Similarity != candidates[j].Similarity {
				return candidates[i].Similarity > candidates[j].Similarity
			}
			pi := strings.ToLower(candidates[i].Record.Source) == preferred
			pj := strings.ToLower(candidates[j].Record.Source) == preferred
			return pi && !pj
		})
	}

	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}
