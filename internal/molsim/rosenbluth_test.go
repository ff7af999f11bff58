package molsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoltzmann(t *testing.T) {
	tests := []struct {
		name    string
		u       float64
		want    float64
		wantErr bool
	}{
		{"zero energy", 0, 2, false},
		{"positive energy", 1, 2 * math.Exp(-0.5), false},
		{"overlap", math.Inf(1), 0, false},
		{"nan", math.NaN(), 0, true},
		{"negative infinity", math.Inf(-1), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Boltzmann(0.5, tt.u, 2)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeight)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, w, 1e-12)
		})
	}
}

func TestRosenbluthAccumulator(t *testing.T) {
	var acc RosenbluthAccumulator
	acc.Reset()
	require.NoError(t, acc.Accumulate(2))
	require.NoError(t, acc.Accumulate(3))
	assert.InDelta(t, 6, acc.Weight(), 1e-12)
	assert.False(t, acc.Dead())

	require.NoError(t, acc.Accumulate(0))
	assert.True(t, acc.Dead())
	assert.Equal(t, 0.0, acc.Weight())

	acc.Reset()
	assert.Equal(t, 1.0, acc.Weight())
	assert.ErrorIs(t, acc.Accumulate(-1), ErrInvalidWeight)
	assert.ErrorIs(t, acc.Accumulate(math.NaN()), ErrInvalidWeight)
}

func TestRosenbluthAccumulator_EvaluateAppliesPrefactorToAnchorsOnly(t *testing.T) {
	acc := RosenbluthAccumulator{Beta: 1, Energy: HarmonicField{K: 2}, AnchorPrefactor: 5}
	mol := &Chain{}
	trials := []GrowthTrial{{Position: r3.Vec{X: 1}}, {Position: r3.Vec{}}}

	sum, err := acc.Evaluate(mol, trials, false)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-1)+1, sum, 1e-12)
	assert.True(t, trials[0].Valid)

	sum, err = acc.Evaluate(mol, trials, true)
	require.NoError(t, err)
	assert.InDelta(t, 5*(math.Exp(-1)+1), sum, 1e-12)
}

func TestRosenbluthAccumulator_EvaluateMarksOverlapsInvalid(t *testing.T) {
	bad := r3.Vec{X: 1}
	acc := RosenbluthAccumulator{Beta: 1, Energy: forbidden{bad: true}}
	trials := []GrowthTrial{{Position: bad}, {Position: r3.Vec{}}}

	sum, err := acc.Evaluate(&Chain{}, trials, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum)
	assert.False(t, trials[0].Valid)
	assert.True(t, trials[1].Valid)
}

func TestSelectTrial(t *testing.T) {
	trials := []GrowthTrial{
		{Weight: 1, Valid: true},
		{Weight: 0, Valid: false},
		{Weight: 3, Valid: true},
	}

	t.Run("proportional", func(t *testing.T) {
		rng := NewRandom(11)
		counts := make([]int, 3)
		const n = 40000
		for range n {
			counts[selectTrial(rng, trials, 4, SelectProportional)]++
		}
		assert.Equal(t, 0, counts[1])
		assert.InDelta(t, 0.25, float64(counts[0])/n, 0.01)
		assert.InDelta(t, 0.75, float64(counts[2])/n, 0.01)
	})

	t.Run("max weight", func(t *testing.T) {
		assert.Equal(t, 2, selectTrial(NewRandom(1), trials, 4, SelectMaxWeight))
	})
}
