package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxDisplacement is the default half-width of a rigid translation step.
const DefaultMaxDisplacement = 0.5

// RigidTranslationMove displaces a whole chain by a vector drawn uniformly from
// [-MaxDisplacement, MaxDisplacement]^3. The conformation is unchanged, so the
// proposal is symmetric and acceptance is Metropolis on the external energy.
// It moves the chain center, which CombinedTranslationMove keeps fixed.
type RigidTranslationMove struct {
	cfg             moveConfig
	source          MoleculeSource
	energy          EnergyEvaluator
	rng             RandomSource
	beta            float64
	maxDisplacement float64

	state MoveState
}

// NewRigidTranslationMove creates a rigid translation move.
func NewRigidTranslationMove(source MoleculeSource, energy EnergyEvaluator, rng RandomSource, beta, maxDisplacement float64, opts ...MoveOption) (*RigidTranslationMove, error) {
	cfg := newMoveConfig("translate", opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if source == nil || energy == nil || rng == nil {
		return nil, fmt.Errorf("move %s: source, energy and random source are required", cfg.name)
	}
	if !(maxDisplacement > 0) || math.IsInf(maxDisplacement, 1) {
		return nil, fmt.Errorf("move %s: max displacement must be positive, got %g", cfg.name, maxDisplacement)
	}
	return &RigidTranslationMove{
		cfg:             cfg,
		source:          source,
		energy:          energy,
		rng:             rng,
		beta:            beta,
		maxDisplacement: maxDisplacement,
	}, nil
}

func (m *RigidTranslationMove) Name() string { return m.cfg.name }

// SetBeta sets 1/(kB*T).
func (m *RigidTranslationMove) SetBeta(beta float64) { m.beta = beta }

// MaxDisplacement returns the half-width of the displacement cube.
func (m *RigidTranslationMove) MaxDisplacement() float64 { return m.maxDisplacement }

func (m *RigidTranslationMove) component() float64 {
	return m.maxDisplacement * (2*m.rng.NextUniform() - 1)
}

// Attempt translates a random chain.
func (m *RigidTranslationMove) Attempt() (MoveResult, error) {
	mol, err := m.source.RandomMolecule(m.rng)
	if err != nil {
		return MoveResult{Move: m.cfg.name}, fmt.Errorf("move %s: %w", m.cfg.name, err)
	}
	x := m.component()
	y := m.component()
	z := m.component()
	return m.Displace(mol, r3.Vec{X: x, Y: y, Z: z})
}

// Displace proposes moving mol by delta and accepts or rejects it.
func (m *RigidTranslationMove) Displace(mol *Chain, delta r3.Vec) (MoveResult, error) {
	res := MoveResult{Move: m.cfg.name, Molecule: mol.ID}
	uOld := m.energy.MoleculeEnergy(mol)
	if math.IsNaN(uOld) || math.IsInf(uOld, 0) {
		return res, fmt.Errorf("move %s: current configuration of %s has energy %g: %w", m.cfg.name, mol.ID, uOld, ErrCorruptState)
	}

	m.state.save(mol)
	m.state.Trials = 1
	mol.Translate(delta)

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
	return res, nil
}
