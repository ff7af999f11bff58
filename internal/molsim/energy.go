package molsim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// EnergyEvaluator computes external energies: interactions of atoms with
// everything outside their own molecule. Calls must not have side effects and
// may be made for hypothetical positions.
type EnergyEvaluator interface {
	// AtomEnergy returns the external energy of an atom of mol placed at pos.
	// Intramolecular interactions are excluded.
	AtomEnergy(mol *Chain, pos r3.Vec) float64
	// MoleculeEnergy returns the external energy of mol in its current positions.
	MoleculeEnergy(mol *Chain) float64
}

// moleculeEnergy sums AtomEnergy over the positions of mol.
func moleculeEnergy(e EnergyEvaluator, mol *Chain) float64 {
	var u float64
	for _, p := range mol.Positions {
		u += e.AtomEnergy(mol, p)
		if math.IsInf(u, 1) {
			return u
		}
	}
	return u
}

// ZeroEnergy is an evaluator with no external interactions.
type ZeroEnergy struct{}

func (ZeroEnergy) AtomEnergy(*Chain, r3.Vec) float64 { return 0 }
func (ZeroEnergy) MoleculeEnergy(*Chain) float64     { return 0 }

// PairPotential is a spherically symmetric pair interaction.
type PairPotential interface {
	// Energy returns the pair energy at squared separation r2.
	Energy(r2 float64) float64
}

// HardSphere is infinite below Sigma and zero beyond.
type HardSphere struct {
	Sigma float64
}

func (h HardSphere) Energy(r2 float64) float64 {
	if r2 < h.Sigma*h.Sigma {
		return math.Inf(1)
	}
	return 0
}

// LennardJones is the 12-6 potential truncated (not shifted) at Cutoff. A zero
// Cutoff means no truncation.
type LennardJones struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64
}

func (lj LennardJones) Energy(r2 float64) float64 {
	if lj.Cutoff > 0 && r2 > lj.Cutoff*lj.Cutoff {
		return 0
	}
	if r2 == 0 {
		return math.Inf(1)
	}
	s2 := lj.Sigma * lj.Sigma / r2
	s6 := s2 * s2 * s2
	return 4 * lj.Epsilon * (s6*s6 - s6)
}

// PairEvaluator sums a pair potential between an atom and every atom of every
// other chain in the system, using nearest images.
type PairEvaluator struct {
	System *System
	Pair   PairPotential
}

func (p *PairEvaluator) AtomEnergy(mol *Chain, pos r3.Vec) float64 {
	var u float64
	for _, other := range p.System.Chains() {
		if other == mol {
			continue
		}
		for _, q := range other.Positions {
			d := p.System.Boundary.NearestImage(r3.Sub(pos, q))
			u += p.Pair.Energy(r3.Norm2(d))
			if math.IsInf(u, 1) {
				return u
			}
		}
	}
	return u
}

func (p *PairEvaluator) MoleculeEnergy(mol *Chain) float64 { return moleculeEnergy(p, mol) }

// HarmonicField is an external one-body potential
// U = K/2 * sum_a Mask_a (pos_a - Center_a)^2. A zero Mask selects all three axes.
type HarmonicField struct {
	K      float64
	Center r3.Vec
	Mask   r3.Vec
}

func (h HarmonicField) AtomEnergy(_ *Chain, pos r3.Vec) float64 {
	m := h.Mask
	if m == (r3.Vec{}) {
		m = r3.Vec{X: 1, Y: 1, Z: 1}
	}
	d := r3.Sub(pos, h.Center)
	return 0.5 * h.K * (m.X*d.X*d.X + m.Y*d.Y*d.Y + m.Z*d.Z*d.Z)
}

func (h HarmonicField) MoleculeEnergy(mol *Chain) float64 { return moleculeEnergy(h, mol) }

// SumEnergy adds the contributions of several evaluators.
type SumEnergy []EnergyEvaluator

func (s SumEnergy) AtomEnergy(mol *Chain, pos r3.Vec) float64 {
	var u float64
	for _, e := range s {
		u += e.AtomEnergy(mol, pos)
	}
	return u
}

func (s SumEnergy) MoleculeEnergy(mol *Chain) float64 {
	var u float64
	for _, e := range s {
		u += e.MoleculeEnergy(mol)
	}
	return u
}
