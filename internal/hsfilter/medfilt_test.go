package hsfilter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/deltasnow/pkg/deltasnow"
)

func TestMedFilt(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		data     []float64
		kernel   int
		expected []float64
	}{
		{
			name:     "kernel of one is identity",
			data:     []float64{1, 5, 2},
			kernel:   1,
			expected: []float64{1, 5, 2},
		},
		{
			name:     "single spike removed",
			data:     []float64{1, 1, 9, 1, 1},
			kernel:   3,
			expected: []float64{1, 1, 1, 1, 1},
		},
		{
			name:     "edges are replicated",
			data:     []float64{5, 1, 1},
			kernel:   3,
			expected: []float64{5, 1, 1},
		},
		{
			name:     "wide kernel",
			data:     []float64{3, 1, 4, 1, 5, 9, 2},
			kernel:   5,
			expected: []float64{3, 3, 3, 4, 4, 2, 2},
		},
		{
			name:     "missing values are skipped",
			data:     []float64{1, nan, 3},
			kernel:   3,
			expected: []float64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MedFilt(tt.data, tt.kernel)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMedFiltAllMissing(t *testing.T) {
	got, err := MedFilt([]float64{math.NaN(), math.NaN()}, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestMedFiltInvalidKernel(t *testing.T) {
	for _, k := range []int{0, -3, 2, 4} {
		_, err := MedFilt([]float64{1, 2, 3}, k)
		assert.Error(t, err, "kernel %d", k)
	}

	got, err := MedFilt(nil, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDespike(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	hs := []float64{0, 0.3, 0.31, 0.9, 0.32, math.NaN(), 0.3, 0}
	obs := make([]deltasnow.Observation, len(hs))
	for i, v := range hs {
		obs[i] = deltasnow.Observation{Date: start.AddDate(0, 0, i), HS: v}
	}

	out, err := Despike(obs, 3)
	require.NoError(t, err)
	require.Len(t, out, len(obs))

	assert.Equal(t, 0.0, out[0].HS, "snow free stays snow free")
	assert.Equal(t, 0.0, out[7].HS)
	assert.Equal(t, 0.32, out[3].HS, "spike replaced by the median")
	assert.True(t, out[5].Missing(), "missing stays missing")
	assert.Equal(t, obs[3].Date, out[3].Date)
	assert.Equal(t, 0.9, obs[3].HS, "input is not modified")

	same, err := Despike(obs, 1)
	require.NoError(t, err)
	assert.Equal(t, obs[3].HS, same[3].HS)

	_, err = Despike(obs, 2)
	require.Error(t, err)
}
