package factors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonledger/carbonledger/internal/scope"
)

const testDataset = `
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
  - id: diesel-nl
    activity: Diesel
    fuel: diesel
    region: Netherlands
    source: co2emissiefactoren.nl
    unit: liter
    value: "3.26"
  - id: electricity-nl
    activity: Purchased electricity grid mix
    fuel: electricity
    region: Netherlands
    source: co2emissiefactoren.nl
    unit: kWh
    value: "0.328"
    scope: SCOPE_2
`

func TestLoadReader(t *testing.T) {
	store, err := LoadReader(strings.NewReader(testDataset))
	require.NoError(t, err)

	assert.Equal(t, "test", store.Version())
	assert.Equal(t, 3, store.Len())

	records := store.Records()
	assert.Equal(t, "petrol-nl", records[0].ID)
	require.NotNil(t, records[0].Scope)
	assert.Equal(t, scope.Scope1, *records[0].Scope)
	assert.Nil(t, records[1].Scope)
	assert.Equal(t, "2.78", records[0].Value.String())
}

func TestLoadReader_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "empty dataset",
			yaml:    "version: \"x\"\nvocabulary_version: \"1.0.0\"\nfactors: []\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name:    "missing vocabulary version",
			yaml:    "version: \"x\"\nfactors:\n  - id: a\n    activity: A\n    unit: kg\n    value: \"1\"\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name: "vocabulary major mismatch",
			yaml: "vocabulary_version: \"2.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: kg\n    value: \"1\"\n",
			wantErr: ErrVocabularyMismatch,
		},
		{
			name: "unknown unit",
			yaml: "vocabulary_version: \"1.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: parsec\n    value: \"1\"\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name: "non-positive value",
			yaml: "vocabulary_version: \"1.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: kg\n    value: \"0\"\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name: "unparseable value",
			yaml: "vocabulary_version: \"1.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: kg\n    value: \"lots\"\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name: "duplicate id",
			yaml: "vocabulary_version: \"1.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: kg\n    value: \"1\"\n" +
				"  - id: a\n    activity: B\n    unit: kg\n    value: \"2\"\n",
			wantErr: ErrInvalidDataset,
		},
		{
			name: "bad scope",
			yaml: "vocabulary_version: \"1.0.0\"\nfactors:\n" +
				"  - id: a\n    activity: A\n    unit: kg\n    value: \"1\"\n    scope: SCOPE_9\n",
			wantErr: ErrInvalidDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultDatasetIsValid(t *testing.T) {
	store := Default()
	assert.Greater(t, store.Len(), 10)

	// Every record with a breakdown stays close to its total value.
	for _, rec := range store.Records() {
		if rec.Breakdown == nil {
			continue
		}
		sum := rec.Breakdown.CO2 + rec.Breakdown.CH4 + rec.Breakdown.N2O
		assert.InDelta(t, rec.Value.InexactFloat64(), sum, rec.Value.InexactFloat64()*0.05,
			"breakdown of %s drifts from total", rec.ID)
	}
}

func TestFindCandidates(t *testing.T) {
	store, err := LoadReader(strings.NewReader(testDataset))
	require.NoError(t, err)

	t.Run("ordered by similarity descending", func(t *testing.T) {
		got := store.FindCandidates("petrol euro 95 netherlands", 0.1, 0)
		require.NotEmpty(t, got)
		assert.Equal(t, "petrol-nl", got[0].Record.ID)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Similarity, got[i].Similarity)
		}
	})

	t.Run("floor excludes weak candidates", func(t *testing.T) {
		all := store.FindCandidates("petrol euro 95 netherlands", 0, 0)
		strong := store.FindCandidates("petrol euro 95 netherlands", 0.6, 0)
		assert.Less(t, len(strong), len(all))
		for _, c := range strong {
			assert.GreaterOrEqual(t, c.Similarity, 0.6)
		}
	})

	t.Run("max results truncates", func(t *testing.T) {
		got := store.FindCandidates("netherlands", 0, 1)
		assert.Len(t, got, 1)
	})

	t.Run("no usable query tokens", func(t *testing.T) {
		assert.Empty(t, store.FindCandidates("  ! ", 0, 0))
	})

	t.Run("similarity within unit interval", func(t *testing.T) {
		got := store.FindCandidates("diesel netherlands diesel", 0, 0)
		for _, c := range got {
			assert.GreaterOrEqual(t, c.Similarity, 0.0)
			assert.LessOrEqual(t, c.Similarity, 1.0)
		}
	})
}
