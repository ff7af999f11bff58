package molsim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// trackerWindow is the number of recent acceptance probabilities kept per move.
const trackerWindow = 1000

// MoveStats is a point-in-time summary of a move's tracker.
type MoveStats struct {
	Move             string  `json:"move"`
	Attempts         int64   `json:"attempts"`
	Accepted         int64   `json:"accepted"`
	ZeroNewWeight    int64   `json:"zero_new_weight"`
	ZeroOldWeight    int64   `json:"zero_old_weight"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
	RecentMeanProb   float64 `json:"recent_mean_probability"`
	RecentStdDevProb float64 `json:"recent_stddev_probability"`
}

// MoveTracker accumulates acceptance statistics for one move.
type MoveTracker struct {
	attempts      int64
	accepted      int64
	zeroNewWeight int64
	zeroOldWeight int64

	recent []float64
	next   int
}

// NewMoveTracker creates an empty tracker.
func NewMoveTracker() *MoveTracker {
	return &MoveTracker{recent: make([]float64, 0, trackerWindow)}
}

// Record adds one attempt.
func (t *MoveTracker) Record(res MoveResult) {
	t.attempts++
	switch res.Outcome {
	case OutcomeAccepted:
		t.accepted++
	case OutcomeZeroNewWeight:
		t.zeroNewWeight++
	case OutcomeZeroOldWeight:
		t.zeroOldWeight++
	}
	p := math.Min(1, res.Ratio)
	if len(t.recent) < trackerWindow {
		t.recent = append(t.recent, p)
		return
	}
	t.recent[t.next] = p
	t.next = (t.next + 1) % trackerWindow
}

// AcceptanceRate returns accepted/attempts, 0 before the first attempt.
func (t *MoveTracker) AcceptanceRate() float64 {
	if t.attempts == 0 {
		return 0
	}
	return float64(t.accepted) / float64(t.attempts)
}

// Reset clears all counters.
func (t *MoveTracker) Reset() {
	*t = MoveTracker{recent: t.recent[:0]}
}

// Stats summarizes the tracker under the given move name.
func (t *MoveTracker) Stats(name string) MoveStats {
	s := MoveStats{
		Move:           name,
		Attempts:       t.attempts,
		Accepted:       t.accepted,
		ZeroNewWeight:  t.zeroNewWeight,
		ZeroOldWeight:  t.zeroOldWeight,
		AcceptanceRate: t.AcceptanceRate(),
	}
	if len(t.recent) > 0 {
		s.RecentMeanProb = stat.Mean(t.recent, nil)
	}
	if len(t.recent) > 1 {
		s.RecentStdDevProb = stat.StdDev(t.recent, nil)
	}
	return s
}
