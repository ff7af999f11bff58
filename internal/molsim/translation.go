package molsim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// CombinedTranslationMove performs a CBMC regrowth and then translates the chain
// so its geometric center returns to where it was before the move. The regrowth
// changes conformation only; center-of-mass diffusion is left to other moves.
// The acceptance ratio is chi_cbmc * exp(-beta*dU_translation).
type CombinedTranslationMove struct {
	name     string
	cbmc     *CBMCMove
	energy   EnergyEvaluator
	boundary Boundary
	rng      RandomSource
	beta     float64
	logger   Logger
}

// NewCombinedTranslationMove wraps a CBMC move. The wrapped move may also be
// registered with the integrator on its own.
func NewCombinedTranslationMove(cbmc *CBMCMove, energy EnergyEvaluator, boundary Boundary, rng RandomSource, beta float64, opts ...MoveOption) (*CombinedTranslationMove, error) {
	if cbmc == nil || energy == nil || boundary == nil || rng == nil {
		return nil, fmt.Errorf("combined translation: cbmc move, energy, boundary and random source are required")
	}
	cfg := newMoveConfig("cbmc_translation", opts)
	return &CombinedTranslationMove{
		name:     cfg.name,
		cbmc:     cbmc,
		energy:   energy,
		boundary: boundary,
		rng:      rng,
		beta:     beta,
		logger:   cfg.logger,
	}, nil
}

func (m *CombinedTranslationMove) Name() string { return m.name }

// SetBeta sets 1/(kB*T) here and on the wrapped CBMC move.
func (m *CombinedTranslationMove) SetBeta(beta float64) {
	m.beta = beta
	m.cbmc.SetBeta(beta)
}

// Attempt runs the regrowth, recenters and decides both as one move.
func (m *CombinedTranslationMove) Attempt() (MoveResult, error) {
	res := MoveResult{Move: m.name}
	if err := m.cbmc.DoTrial(); err != nil {
		return res, fmt.Errorf("move %s: %w", m.name, err)
	}
	state := m.cbmc.State()
	mol := state.Molecule
	res.Molecule = mol.ID

	if m.cbmc.Outcome() != OutcomeAccepted {
		res.Outcome = m.cbmc.Outcome()
		m.cbmc.Reject()
		return res, nil
	}

	oldCenter := GeometricCenter(state.Old, m.boundary)
	uGrown := m.energy.MoleculeEnergy(mol)
	newCenter := GeometricCenter(mol.Positions, m.boundary)
	mol.Translate(m.boundary.NearestImage(r3.Sub(oldCenter, newCenter)))
	uMoved := m.energy.MoleculeEnergy(mol)

	factor, err := metropolis(m.beta, uMoved-uGrown)
	if err != nil {
		m.cbmc.Reject()
		return res, fmt.Errorf("move %s: %w", m.name, err)
	}
	res.Ratio = m.cbmc.Chi() * factor

	if !decide(m.rng, res.Ratio) {
		m.cbmc.Reject()
		res.Outcome = OutcomeRejected
		return res, nil
	}
	if err := m.cbmc.Accept(); err != nil {
		return res, fmt.Errorf("move %s: %w", m.name, err)
	}
	res.Outcome = OutcomeAccepted
	return res, nil
}
