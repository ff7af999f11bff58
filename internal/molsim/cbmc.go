package molsim

import (
	"fmt"
	"math"
)

// CBMCMove regrows part of a chain atom by atom with k trials per atom, biased
// toward low external energy, and corrects the bias with Rosenbluth weights:
// the move is accepted with probability min(1, wNew/wOld).
type CBMCMove struct {
	cfg    moveConfig
	source MoleculeSource
	energy EnergyEvaluator
	rng    RandomSource
	beta   float64

	gen   *TrialGenerator
	wOld  RosenbluthAccumulator
	wNew  RosenbluthAccumulator
	state MoveState

	chi     float64
	outcome Outcome
	pending bool
}

// NewCBMCMove creates a CBMC regrowth move. Defaults: 10 trials, interior start,
// random anchor placement, proportional selection, commit verification on.
func NewCBMCMove(source MoleculeSource, energy EnergyEvaluator, boundary Boundary, rng RandomSource, beta float64, opts ...MoveOption) (*CBMCMove, error) {
	cfg := newMoveConfig("cbmc", opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if source == nil || energy == nil || boundary == nil || rng == nil {
		return nil, fmt.Errorf("move %s: source, energy, boundary and random source are required", cfg.name)
	}
	if cfg.selection == SelectMaxWeight {
		cfg.logger.Warnf("move %s uses max-weight trial selection; sampling is approximate", cfg.name)
	}
	m := &CBMCMove{
		cfg:    cfg,
		source: source,
		energy: energy,
		rng:    rng,
		gen:    NewTrialGenerator(boundary, cfg.anchor, cfg.trials),
	}
	m.wOld = RosenbluthAccumulator{Energy: energy, AnchorPrefactor: cfg.anchorPrefactor}
	m.wNew = RosenbluthAccumulator{Energy: energy, AnchorPrefactor: cfg.anchorPrefactor}
	m.SetBeta(beta)
	return m, nil
}

func (m *CBMCMove) Name() string { return m.cfg.name }

// SetBeta sets 1/(kB*T).
func (m *CBMCMove) SetBeta(beta float64) {
	m.beta = beta
	m.wOld.Beta = beta
	m.wNew.Beta = beta
}

// Trials returns k.
func (m *CBMCMove) Trials() int { return m.cfg.trials }

// State returns the snapshot of the current attempt.
func (m *CBMCMove) State() *MoveState { return &m.state }

// Attempt runs one full trial and decides it.
func (m *CBMCMove) Attempt() (MoveResult, error) {
	if err := m.DoTrial(); err != nil {
		return MoveResult{Move: m.cfg.name}, err
	}
	chi := m.Chi()
	res := MoveResult{Move: m.cfg.name, Molecule: m.state.Molecule.ID, Ratio: chi, Outcome: m.outcome}
	if m.outcome == OutcomeAccepted && decide(m.rng, chi) {
		if err := m.Accept(); err != nil {
			return res, err
		}
		return res, nil
	}
	if res.Outcome == OutcomeAccepted {
		res.Outcome = OutcomeRejected
	}
	m.Reject()
	return res, nil
}

// DoTrial selects a molecule, snapshots it, computes wOld on the current
// configuration and grows a new one into the live chain while computing wNew.
// The trial must be finished with Accept or Reject. On error the chain is
// already restored.
func (m *CBMCMove) DoTrial() error {
	mol, err := m.source.RandomMolecule(m.rng)
	if err != nil {
		return fmt.Errorf("move %s: %w", m.cfg.name, err)
	}
	n := mol.Len()
	if n == 0 || (m.cfg.start == StartInterior && n < 2) {
		return fmt.Errorf("move %s on %s with %d atoms: %w", m.cfg.name, mol.ID, n, ErrChainTooShort)
	}

	m.state.save(mol)
	m.state.Trials = m.cfg.trials
	m.state.Direction = 1
	if !m.rng.NextBoolean() {
		m.state.Direction = -1
	}
	m.state.Start = m.chooseStart(n, m.state.Direction)
	m.pending = true

	oldW, err := m.walk(&m.wOld, mol, m.state.Direction, m.state.Start, false)
	if err != nil {
		m.Reject()
		return err
	}
	newW, err := m.walk(&m.wNew, mol, m.state.Direction, m.state.Start, true)
	if err != nil {
		m.Reject()
		return err
	}

	switch {
	case newW == 0:
		m.chi, m.outcome = 0, OutcomeZeroNewWeight
	case oldW == 0:
		m.cfg.logger.Warnf("move %s: current configuration of %s has zero Rosenbluth weight (direction=%d start=%d)",
			m.cfg.name, mol.ID, m.state.Direction, m.state.Start)
		m.chi, m.outcome = 0, OutcomeZeroOldWeight
	default:
		m.chi, m.outcome = newW/oldW, OutcomeAccepted
		if math.IsNaN(m.chi) || math.IsInf(m.chi, 0) {
			m.Reject()
			return fmt.Errorf("move %s: ratio %g/%g: %w", m.cfg.name, newW, oldW, ErrInvalidWeight)
		}
	}
	return nil
}

// Chi returns the acceptance ratio wNew/wOld of the last trial, 0 when either
// weight vanished.
func (m *CBMCMove) Chi() float64 { return m.chi }

// Outcome returns the classification of the last trial before the decision.
// OutcomeAccepted here means the trial is eligible for acceptance.
func (m *CBMCMove) Outcome() Outcome { return m.outcome }

// Accept keeps the grown configuration.
func (m *CBMCMove) Accept() error {
	if !m.pending {
		return nil
	}
	m.pending = false
	if m.cfg.verify {
		if err := verifyCommit(m.state.Molecule, m.energy); err != nil {
			return fmt.Errorf("move %s: %w", m.cfg.name, err)
		}
	}
	m.cfg.logger.Debugf("move %s accepted on %s (chi=%g)", m.cfg.name, m.state.Molecule.ID, m.chi)
	return nil
}

// Reject restores the snapshot.
func (m *CBMCMove) Reject() {
	if !m.pending {
		return
	}
	m.pending = false
	m.state.restore()
}

// RosenbluthWeight evaluates the Rosenbluth factor of the current configuration
// of mol for a regrowth in direction from start, without modifying it.
func (m *CBMCMove) RosenbluthWeight(mol *Chain, direction, start int) (float64, error) {
	acc := RosenbluthAccumulator{Beta: m.beta, Energy: m.energy, AnchorPrefactor: m.cfg.anchorPrefactor}
	return m.walk(&acc, mol, direction, start, false)
}

func (m *CBMCMove) chooseStart(n, step int) int {
	if m.cfg.start == StartTerminus {
		if step > 0 {
			return 0
		}
		return n - 1
	}
	// interior: at least one atom stays behind as reference
	if step > 0 {
		return 1 + m.rng.NextInt(n-1)
	}
	return m.rng.NextInt(n - 1)
}

// walk visits atoms start, start+step, ... to the chain end. For the old walk
// the current position is one of the k trials and the chain is not changed; for
// the new walk all trials are fresh and the selected one is committed. A step
// whose weights all vanish ends the walk with weight 0.
func (m *CBMCMove) walk(acc *RosenbluthAccumulator, mol *Chain, step, start int, grow bool) (float64, error) {
	acc.Reset()
	for i := start; i >= 0 && i < mol.Len(); i += step {
		trials, anchor, err := m.gen.Generate(m.rng, m.beta, mol, i, step, m.cfg.trials, !grow)
		if err != nil {
			return 0, fmt.Errorf("move %s: %w", m.cfg.name, err)
		}
		sumW, err := acc.Evaluate(mol, trials, anchor)
		if err != nil {
			return 0, fmt.Errorf("move %s atom %d: %w", m.cfg.name, i, err)
		}
		if err := acc.Accumulate(sumW); err != nil {
			return 0, fmt.Errorf("move %s atom %d: %w", m.cfg.name, i, err)
		}
		if acc.Dead() {
			return 0, nil
		}
		if grow {
			j := selectTrial(m.rng, trials, sumW, m.cfg.selection)
			mol.Positions[i] = trials[j].Position
		}
	}
	return acc.Weight(), nil
}
