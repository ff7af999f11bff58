package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ReptationMove slides a chain one bond along its own backbone: the trailing atom
// is dropped, every other atom takes its neighbor's position and a single fresh
// bonded position is sampled for the leading end. Forward and reverse proposals
// are symmetric, so acceptance is plain Metropolis on the external energy change.
type ReptationMove struct {
	cfg    moveConfig
	source MoleculeSource
	energy EnergyEvaluator
	rng    RandomSource
	beta   float64

	state MoveState
	refs  []r3.Vec
}

// NewReptationMove creates a reptation move.
func NewReptationMove(source MoleculeSource, energy EnergyEvaluator, rng RandomSource, beta float64, opts ...MoveOption) (*ReptationMove, error) {
	cfg := newMoveConfig("reptation", opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if source == nil || energy == nil || rng == nil {
		return nil, fmt.Errorf("move %s: source, energy and random source are required", cfg.name)
	}
	return &ReptationMove{
		cfg:    cfg,
		source: source,
		energy: energy,
		rng:    rng,
		beta:   beta,
		refs:   make([]r3.Vec, 0, 3),
	}, nil
}

func (m *ReptationMove) Name() string { return m.cfg.name }

// SetBeta sets 1/(kB*T).
func (m *ReptationMove) SetBeta(beta float64) { m.beta = beta }

// Attempt reptates a random chain in a random direction.
func (m *ReptationMove) Attempt() (MoveResult, error) {
	mol, err := m.source.RandomMolecule(m.rng)
	if err != nil {
		return MoveResult{Move: m.cfg.name}, fmt.Errorf("move %s: %w", m.cfg.name, err)
	}
	step := 1
	if !m.rng.NextBoolean() {
		step = -1
	}
	return m.Reptate(mol, step)
}

// Reptate shifts mol by one bond in direction step (+1 moves atoms toward the
// high-index end, which becomes the new leading atom).
func (m *ReptationMove) Reptate(mol *Chain, step int) (MoveResult, error) {
	res := MoveResult{Move: m.cfg.name, Molecule: mol.ID}
	n := mol.Len()
	if n < 2 {
		return res, fmt.Errorf("move %s on %s with %d atoms: %w", m.cfg.name, mol.ID, n, ErrChainTooShort)
	}

	uOld := m.energy.MoleculeEnergy(mol)
	if math.IsNaN(uOld) || math.IsInf(uOld, 0) {
		return res, fmt.Errorf("move %s: current configuration of %s has energy %g: %w", m.cfg.name, mol.ID, uOld, ErrCorruptState)
	}

	m.state.save(mol)
	m.state.Direction = step
	m.state.Trials = 1

	lead := n - 1
	if step < 0 {
		lead = 0
	}
	m.state.Start = lead
	for i := range n {
		if i != lead {
			mol.Positions[i] = m.state.Old[i+step]
		}
	}
	m.refs = References(mol.Positions, lead, step, m.refs)
	pos, err := mol.Geometry.Place(m.rng, m.beta, m.refs)
	if err != nil {
		m.state.restore()
		return res, fmt.Errorf("move %s: %w", m.cfg.name, err)
	}
	mol.Positions[lead] = pos

	uNew := m.energy.MoleculeEnergy(mol)
	chi, err := metropolis(m.beta, uNew-uOld)
	if err != nil {
		m.state.restore()
		return res, fmt.Errorf("move %s: %w", m.cfg.name, err)
	}
	res.Ratio = chi

	if !decide(m.rng, chi) {
		m.state.restore()
		res.Outcome = OutcomeRejected
		return res, nil
	}
	if m.cfg.verify {
		if err := verifyCommit(mol, m.energy); err != nil {
			return res, fmt.Errorf("move %s: %w", m.cfg.name, err)
		}
	}
	res.Outcome = OutcomeAccepted
	m.cfg.logger.Debugf("move %s accepted on %s (du=%g)", m.cfg.name, mol.ID, uNew-uOld)
	return res, nil
}
