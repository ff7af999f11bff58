package molsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveTracker_Counts(t *testing.T) {
	tr := NewMoveTracker()
	assert.Equal(t, 0.0, tr.AcceptanceRate())

	tr.Record(MoveResult{Outcome: OutcomeAccepted, Ratio: 2})
	tr.Record(MoveResult{Outcome: OutcomeRejected, Ratio: 0.5})
	tr.Record(MoveResult{Outcome: OutcomeZeroNewWeight})
	tr.Record(MoveResult{Outcome: OutcomeZeroOldWeight})

	s := tr.Stats("cbmc")
	assert.Equal(t, "cbmc", s.Move)
	assert.Equal(t, int64(4), s.Attempts)
	assert.Equal(t, int64(1), s.Accepted)
	assert.Equal(t, int64(1), s.ZeroNewWeight)
	assert.Equal(t, int64(1), s.ZeroOldWeight)
	assert.Equal(t, 0.25, s.AcceptanceRate)
	// ratios above 1 are clamped
	assert.InDelta(t, 1.5/4, s.RecentMeanProb, 1e-12)
	assert.Positive(t, s.RecentStdDevProb)
}

func TestMoveTracker_WindowAndReset(t *testing.T) {
	tr := NewMoveTracker()
	for range trackerWindow {
		tr.Record(MoveResult{Outcome: OutcomeRejected, Ratio: 0})
	}
	for range trackerWindow {
		tr.Record(MoveResult{Outcome: OutcomeAccepted, Ratio: 1})
	}
	s := tr.Stats("x")
	assert.Equal(t, int64(2*trackerWindow), s.Attempts)
	assert.Equal(t, 1.0, s.RecentMeanProb)
	assert.Equal(t, 0.0, s.RecentStdDevProb)

	tr.Reset()
	s = tr.Stats("x")
	assert.Zero(t, s.Attempts)
	assert.Zero(t, s.RecentMeanProb)
}
