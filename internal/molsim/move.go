package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Outcome classifies how a move attempt ended.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejected
	// OutcomeZeroNewWeight means every trial of some growth step had zero weight.
	OutcomeZeroNewWeight
	// OutcomeZeroOldWeight means the current configuration re-evaluated to zero
	// weight. It should never happen in a self-consistent run.
	OutcomeZeroOldWeight
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeZeroNewWeight:
		return "zero_new_weight"
	case OutcomeZeroOldWeight:
		return "zero_old_weight"
	default:
		return "unknown"
	}
}

// MoveResult describes one completed move attempt.
type MoveResult struct {
	Move     string     `json:"move"`
	Molecule MoleculeID `json:"molecule"`
	Outcome  Outcome    `json:"outcome"`
	// Ratio is the acceptance ratio before clamping to 1.
	Ratio float64 `json:"ratio"`
}

// Accepted reports whether the move was kept.
func (r MoveResult) Accepted() bool { return r.Outcome == OutcomeAccepted }

// Move is a Monte Carlo move. Attempt proposes, evaluates and accepts or rejects
// in one call; a rejected attempt leaves every position exactly as it was.
// Returned errors are fatal for the run.
type Move interface {
	Name() string
	Attempt() (MoveResult, error)
}

// BetaSetter is implemented by moves whose acceptance depends on temperature.
type BetaSetter interface {
	SetBeta(beta float64)
}

// MoveState is the snapshot of one attempt.
type MoveState struct {
	Molecule  *Chain
	Old       []r3.Vec
	Direction int
	Start     int
	Trials    int
}

func (s *MoveState) save(mol *Chain) {
	s.Molecule = mol
	s.Old = append(s.Old[:0], mol.Positions...)
}

func (s *MoveState) restore() {
	if s.Molecule != nil {
		copy(s.Molecule.Positions, s.Old)
	}
}

// StartPolicy decides where a CBMC regrowth begins.
type StartPolicy int

const (
	// StartInterior picks a uniformly random cut point, keeping at least one atom
	// in place as the growth reference.
	StartInterior StartPolicy = iota
	// StartTerminus regrows the whole chain from one end; the first atom follows
	// the anchor policy.
	StartTerminus
)

func (p StartPolicy) String() string {
	switch p {
	case StartInterior:
		return "interior"
	case StartTerminus:
		return "terminus"
	default:
		return "unknown"
	}
}

// ParseStartPolicy maps "interior" or "terminus" to a policy.
func ParseStartPolicy(s string) (StartPolicy, error) {
	switch s {
	case "interior":
		return StartInterior, nil
	case "terminus":
		return StartTerminus, nil
	}
	return 0, fmt.Errorf("unknown start policy: %s", s)
}

// moveConfig collects the options shared by all moves.
type moveConfig struct {
	name            string
	trials          int
	start           StartPolicy
	anchor          AnchorPolicy
	selection       SelectionPolicy
	anchorPrefactor float64
	verify          bool
	logger          Logger
}

func newMoveConfig(name string, opts []MoveOption) moveConfig {
	c := moveConfig{
		name:            name,
		trials:          10,
		start:           StartInterior,
		anchor:          AnchorRandom,
		selection:       SelectProportional,
		anchorPrefactor: 1,
		verify:          true,
		logger:          NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// MoveOption customizes a move at construction.
type MoveOption func(*moveConfig)

// WithName overrides the move name reported in results and statistics.
func WithName(name string) MoveOption {
	return func(c *moveConfig) { c.name = name }
}

// WithTrials sets the number of trials k per growth step.
func WithTrials(k int) MoveOption {
	return func(c *moveConfig) { c.trials = k }
}

// WithStartPolicy sets where CBMC regrowth begins.
func WithStartPolicy(p StartPolicy) MoveOption {
	return func(c *moveConfig) { c.start = p }
}

// WithAnchorPolicy sets how atoms without placed neighbors are handled.
func WithAnchorPolicy(p AnchorPolicy) MoveOption {
	return func(c *moveConfig) { c.anchor = p }
}

// WithSelection sets the trial selection policy.
func WithSelection(p SelectionPolicy) MoveOption {
	return func(c *moveConfig) { c.selection = p }
}

// WithAnchorPrefactor sets the factor applied to anchor trial weights.
func WithAnchorPrefactor(f float64) MoveOption {
	return func(c *moveConfig) { c.anchorPrefactor = f }
}

// WithVerifyCommit toggles the geometry and overlap check of accepted configurations.
func WithVerifyCommit(verify bool) MoveOption {
	return func(c *moveConfig) { c.verify = verify }
}

// WithLogger injects a logger.
func WithLogger(logger Logger) MoveOption {
	return func(c *moveConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func (c moveConfig) validate() error {
	if c.trials < 1 {
		return fmt.Errorf("move %s: trials must be at least 1, got %d", c.name, c.trials)
	}
	if math.IsNaN(c.anchorPrefactor) || c.anchorPrefactor <= 0 {
		return fmt.Errorf("move %s: anchor prefactor must be positive, got %g", c.name, c.anchorPrefactor)
	}
	return nil
}

// metropolis turns an energy difference into an acceptance ratio.
func metropolis(beta, du float64) (float64, error) {
	switch {
	case math.IsNaN(du):
		return 0, fmt.Errorf("energy difference %g: %w", du, ErrInvalidWeight)
	case math.IsInf(du, 1):
		return 0, nil
	case math.IsInf(du, -1):
		return 0, fmt.Errorf("energy difference %g: %w", du, ErrInvalidWeight)
	}
	return math.Exp(-beta * du), nil
}

// decide accepts with probability min(1, ratio). A single uniform is drawn only
// when 0 < ratio < 1.
func decide(rng RandomSource, ratio float64) bool {
	if ratio >= 1 {
		return true
	}
	if ratio <= 0 {
		return false
	}
	return rng.NextUniform() < ratio
}

// verifyCommit checks an accepted chain. Any failure here is data corruption.
func verifyCommit(mol *Chain, energy EnergyEvaluator) error {
	if err := mol.Validate(); err != nil {
		return fmt.Errorf("accepted configuration: %w: %w", ErrCorruptState, err)
	}
	u := energy.MoleculeEnergy(mol)
	if math.IsNaN(u) || math.IsInf(u, 0) {
		return fmt.Errorf("accepted configuration of %s has energy %g: %w", mol.ID, u, ErrCorruptState)
	}
	return nil
}
