package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/match"
	"github.com/carbonledger/carbonledger/internal/scope"
)

const engineDataset = `
version: "test"
vocabulary_version: "1.0.0"
factors:
  - id: petrol-nl
    activity: Petrol (Euro 95)
    fuel: petrol
    region: Netherlands
    source: co2emissiefactoren.nl
    unit: liter
    value: "2.78"
    scope: SCOPE_1
    ghg_breakdown:
      co2: 2.74
      ch4: 0.02
      n2o: 0.02
  - id: electricity-nl
    activity: Purchased electricity grid mix
    fuel: electricity
    region: Netherlands
    source: co2emissiefactoren.nl
    unit: kWh
    value: "0.328"
    scope: SCOPE_2
  - id: water-nl
    activity: Drinking water supply
    region: Netherlands
    source: co2emissiefactoren.nl
    unit: m3
    value: "0.344"
`

func testStore(t *testing.T) *factors.Store {
	t.Helper()
	store, err := factors.LoadReader(strings.NewReader(engineDataset))
	require.NoError(t, err)
	return store
}

func testEngine(t *testing.T, extra ...Backend) *Engine {
	t.Helper()
	chain := []Backend{NewVectorMatchBackend(match.New(testStore(t)))}
	chain = append(chain, extra...)
	chain = append(chain, NewDemoBackend())
	return New(activity.NewNormalizer(), chain)
}

func structured(a activity.ParsedActivity) Request {
	return Request{Structured: &a}
}

// stubBackend records the request it received and returns a canned answer
// or rejection.
type stubBackend struct {
	kind    BackendKind
	result  *Result
	err     error
	lastReq BackendRequest
	calls   int
}

func (s *stubBackend) Kind() BackendKind { return s.kind }

func (s *stubBackend) Calculate(_ context.Context, req BackendRequest) (*Result, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestCalculate_VectorMatch(t *testing.T) {
	e := testEngine(t)

	got, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "fuel",
		Subcategory: "petrol",
		FuelType:    "petrol",
		Quantity:    50,
		Unit:        "liters",
		Description: "petrol euro 95 netherlands",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendVectorMatch, got.Backend)
	assert.Equal(t, "kgCO2e", got.EmissionsUnit)
	assert.InDelta(t, 139.0, got.TotalEmissions.InexactFloat64(), 1e-9)
	assert.Equal(t, scope.Scope1, got.Scope)
	require.NotNil(t, got.MatchedFactor)
	assert.Equal(t, "petrol-nl", got.MatchedFactor.ID)
	require.NotNil(t, got.Breakdown)
	assert.InDelta(t, 137.0, got.Breakdown.CO2, 1e-9)
	assert.NotEmpty(t, got.ID)
	assert.GreaterOrEqual(t, got.ProcessingTimeMs, int64(0))
}

func TestCalculate_UnitConversionBeforeMultiply(t *testing.T) {
	e := testEngine(t)

	// 2 MWh against a kWh factor: 2000 * 0.328.
	got, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "electricity",
		FuelType:    "electricity",
		Quantity:    2,
		Unit:        "MWh",
		Description: "purchased electricity grid mix netherlands",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendVectorMatch, got.Backend)
	assert.InDelta(t, 656.0, got.TotalEmissions.InexactFloat64(), 1e-9)
	assert.Equal(t, scope.Scope2, got.Scope)
}

func TestCalculate_FallsBackToDemo(t *testing.T) {
	e := testEngine(t)

	got, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "office",
		Quantity:    10,
		Unit:        "kg",
		Description: "miscellaneous procurement nothing in the dataset",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendDemo, got.Backend)
	assert.InDelta(t, demoConfidenceFactor, got.Confidence, 1e-9)
}

func TestCalculate_DemoConfidenceBelowMatch(t *testing.T) {
	e := testEngine(t)

	matched, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "fuel",
		FuelType:    "petrol",
		Quantity:    10,
		Unit:        "liter",
		Description: "petrol euro 95 netherlands",
	}))
	require.NoError(t, err)

	demo, err := e.Calculate(context.Background(), Request{
		Structured: &activity.ParsedActivity{
			Category: "fuel",
			FuelType: "petrol",
			Quantity: 10,
			Unit:     "liter",
		},
		DemoMode: true,
	})
	require.NoError(t, err)

	assert.Greater(t, matched.Confidence, demo.Confidence)
}

func TestCalculate_DemoMode(t *testing.T) {
	vector := &stubBackend{kind: BackendVectorMatch}
	e := New(activity.NewNormalizer(), []Backend{vector, NewDemoBackend()})

	got, err := e.Calculate(context.Background(), Request{
		Structured: &activity.ParsedActivity{
			Category: "electricity",
			Quantity: 100,
			Unit:     "kWh",
		},
		DemoMode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, BackendDemo, got.Backend)
	assert.Zero(t, vector.calls, "demo mode must not touch real backends")
	assert.InDelta(t, 45.0, got.TotalEmissions.InexactFloat64(), 1e-9)
	assert.Equal(t, scope.Scope2, got.Scope)
}

func TestCalculate_HintsFlowDownTheChain(t *testing.T) {
	next := &stubBackend{
		kind: BackendAssistant,
		err:  reject(BackendAssistant, "not configured"),
	}
	e := testEngine(t, next)

	// "pax" is outside the unit vocabulary, so the matcher rejects with a
	// unit hint after finding the water factor.
	got, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "water",
		Quantity:    3,
		Unit:        "pax",
		Description: "drinking water supply netherlands",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendDemo, got.Backend)
	assert.Equal(t, []string{"unit:pax"}, next.lastReq.Hints)
}

func TestCalculate_ValidationErrorsAreTerminal(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty raw input", Request{RawInput: "  "}},
		{"missing category", structured(activity.ParsedActivity{Quantity: 1, Unit: "kg"})},
		{"zero quantity", structured(activity.ParsedActivity{Category: "fuel", Unit: "liter"})},
		{"negative quantity", structured(activity.ParsedActivity{Category: "fuel", Quantity: -5, Unit: "liter"})},
		{"missing unit", structured(activity.ParsedActivity{Category: "fuel", Quantity: 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Calculate(context.Background(), tt.req)
			assert.ErrorIs(t, err, activity.ErrValidation)
		})
	}
}

func TestCalculate_TerminalBackendErrorStopsChain(t *testing.T) {
	boom := &stubBackend{kind: BackendVectorMatch, err: context.DeadlineExceeded}
	demo := &stubBackend{kind: BackendDemo}
	e := New(activity.NewNormalizer(), []Backend{boom, demo})

	_, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category: "fuel",
		Quantity: 1,
		Unit:     "liter",
	}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
	assert.Zero(t, demo.calls)
}

func TestCalculate_ContextCancellation(t *testing.T) {
	e := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Calculate(ctx, structured(activity.ParsedActivity{
		Category: "fuel",
		Quantity: 1,
		Unit:     "liter",
	}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculate_ScopeFilledByClassifier(t *testing.T) {
	e := testEngine(t)

	// The water factor carries no scope, so the rule table decides.
	got, err := e.Calculate(context.Background(), structured(activity.ParsedActivity{
		Category:    "water",
		Quantity:    3,
		Unit:        "m3",
		Description: "drinking water supply netherlands",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendVectorMatch, got.Backend)
	assert.True(t, got.Scope.IsValid())
}

func TestVectorMatchBackend_NoMatchRejection(t *testing.T) {
	backend := NewVectorMatchBackend(match.New(testStore(t)))

	_, err := backend.Calculate(context.Background(), BackendRequest{
		Activity: activity.ParsedActivity{
			Category:    "office",
			Quantity:    1,
			Unit:        "kg",
			Description: "nothing the dataset knows about",
			Confidence:  1,
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, match.ErrNoMatch)
}

func TestBackendKindString(t *testing.T) {
	assert.Equal(t, "VECTOR_MATCH", BackendVectorMatch.String())
	assert.Equal(t, "ASSISTANT", BackendAssistant.String())
	assert.Equal(t, "DEMO", BackendDemo.String())
}

func TestDemoBackend_NeverRejects(t *testing.T) {
	demo := NewDemoBackend()

	tests := []struct {
		name      string
		act       activity.ParsedActivity
		wantScope scope.Scope
	}{
		{
			name:      "electricity keyword",
			act:       activity.ParsedActivity{Category: "electricity", Quantity: 100, Unit: "kWh", Confidence: 1},
			wantScope: scope.Scope2,
		},
		{
			name:      "fuel keyword",
			act:       activity.ParsedActivity{Category: "fuel", FuelType: "diesel", Quantity: 10, Unit: "liter", Confidence: 1},
			wantScope: scope.Scope1,
		},
		{
			name:      "travel keyword",
			act:       activity.ParsedActivity{Category: "travel", Quantity: 250, Unit: "km", Confidence: 1},
			wantScope: scope.Scope3,
		},
		{
			name:      "unknown falls to catch-all",
			act:       activity.ParsedActivity{Category: "consulting", Quantity: 1, Unit: "kg", Confidence: 1},
			wantScope: scope.Scope1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := demo.Calculate(context.Background(), BackendRequest{Activity: tt.act})
			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, got.Scope)
			assert.True(t, got.TotalEmissions.IsPositive())
			assert.InDelta(t, demoConfidenceFactor, got.Confidence, 1e-9)
		})
	}
}
