package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		from    string
		to      string
		want    float64
		wantErr error
	}{
		{
			name:  "kWh to MWh",
			value: 1000,
			from:  "kWh",
			to:    "MWh",
			want:  1.0,
		},
		{
			name:  "MWh to kWh",
			value: 1000,
			from:  "MWh",
			to:    "kWh",
			want:  1_000_000,
		},
		{
			name:  "kg to tonnes",
			value: 5,
			from:  "kg",
			to:    "tonnes",
			want:  0.005,
		},
		{
			name:  "liters to m3",
			value: 500,
			from:  "liters",
			to:    "m3",
			want:  0.5,
		},
		{
			name:  "miles to km",
			value: 100,
			from:  "miles",
			to:    "km",
			want:  160.9344,
		},
		{
			name:  "GJ to kWh",
			value: 3.6,
			from:  "GJ",
			to:    "kWh",
			want:  1000,
		},
		{
			name:  "identity with different casing",
			value: 42.5,
			from:  " Liters ",
			to:    "liters",
			want:  42.5,
		},
		{
			name:  "identity short-circuits unknown units",
			value: 7,
			from:  "widgets",
			to:    "widgets",
			want:  7,
		},
		{
			name:    "cross family volume to energy",
			value:   10,
			from:    "liters",
			to:      "kWh",
			wantErr: ErrUnsupportedConversion,
		},
		{
			name:    "cross family weight to distance",
			value:   10,
			from:    "kg",
			to:      "km",
			wantErr: ErrUnsupportedConversion,
		},
		{
			name:    "unknown source unit",
			value:   10,
			from:    "parsec",
			to:      "km",
			wantErr: ErrUnsupportedConversion,
		},
		{
			name:    "unknown target unit",
			value:   10,
			from:    "km",
			to:      "lightyear",
			wantErr: ErrUnsupportedConversion,
		},
		{
			name:    "NaN input",
			value:   math.NaN(),
			from:    "kg",
			to:      "g",
			wantErr: ErrCalculationOverflow,
		},
		{
			name:    "infinite input",
			value:   math.Inf(1),
			from:    "kg",
			to:      "g",
			wantErr: ErrCalculationOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, math.Abs(tt.want)*1e-9)
		})
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	pairs := []struct {
		from, to string
	}{
		{"kWh", "MJ"},
		{"MWh", "GJ"},
		{"liters", "gallons"},
		{"m3", "ml"},
		{"kg", "lb"},
		{"tonnes", "g"},
		{"km", "miles"},
		{"m", "nmi"},
	}

	for _, p := range pairs {
		t.Run(p.from+"_"+p.to, func(t *testing.T) {
			const value = 123.456

			there, err := Convert(value, p.from, p.to)
			require.NoError(t, err)

			back, err := Convert(there, p.to, p.from)
			require.NoError(t, err)

			assert.InDelta(t, value, back, 1e-9)
		})
	}
}

func TestConvert_Idempotent(t *testing.T) {
	first, err := Convert(250, "liters", "m3")
	require.NoError(t, err)

	second, err := Convert(250, "liters", "m3")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		unit   string
		family Family
		ok     bool
	}{
		{"kWh", FamilyEnergy, true},
		{"TJ", FamilyEnergy, true},
		{"liters", FamilyVolume, true},
		{"barrel", FamilyVolume, true},
		{"tonnes", FamilyWeight, true},
		{"lb", FamilyWeight, true},
		{"miles", FamilyDistance, true},
		{"", 0, false},
		{"bananas", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			family, ok := FamilyOf(tt.unit)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.family, family)
			}
		})
	}
}

func TestBaseUnit(t *testing.T) {
	assert.Equal(t, "kwh", BaseUnit(FamilyEnergy))
	assert.Equal(t, "l", BaseUnit(FamilyVolume))
	assert.Equal(t, "kg", BaseUnit(FamilyWeight))
	assert.Equal(t, "km", BaseUnit(FamilyDistance))
}
