package molsim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDecide_DrawsOnlyInsideUnitInterval(t *testing.T) {
	tests := []struct {
		ratio     float64
		wantDraws int
	}{
		{2, 0},
		{1, 0},
		{0, 0},
		{-1, 0},
		{0.5, 1},
		{1e-300, 1},
	}
	for _, tt := range tests {
		rng := &countingRandom{RandomSource: NewRandom(1)}
		got := decide(rng, tt.ratio)
		assert.Equal(t, tt.wantDraws, rng.uniforms, "ratio %g", tt.ratio)
		if tt.ratio >= 1 {
			assert.True(t, got)
		}
		if tt.ratio <= 0 {
			assert.False(t, got)
		}
	}
}

func TestMetropolis(t *testing.T) {
	r, err := metropolis(2, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-1), r, 1e-12)

	r, err = metropolis(2, math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	_, err = metropolis(2, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidWeight)
	_, err = metropolis(2, math.Inf(-1))
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestVerifyCommit(t *testing.T) {
	g := NewRigidGeometry(1, TetrahedralAngle)
	good := &Chain{ID: "good", Geometry: g, Positions: ZigZag(4, 1, TetrahedralAngle, r3.Vec{})}
	assert.NoError(t, verifyCommit(good, ZeroEnergy{}))

	broken := &Chain{ID: "broken", Geometry: g, Positions: []r3.Vec{{}, {X: 2}}}
	assert.ErrorIs(t, verifyCommit(broken, ZeroEnergy{}), ErrCorruptState)

	assert.ErrorIs(t, verifyCommit(good, forbidden(positionSet(good))), ErrCorruptState)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "accepted", OutcomeAccepted.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "zero_new_weight", OutcomeZeroNewWeight.String())
	assert.Equal(t, "zero_old_weight", OutcomeZeroOldWeight.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
