package molsim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// GrowthTrial is one candidate position for the atom being grown, with its
// unnormalized Boltzmann factor. Trials live in the generator's arena and are
// overwritten by the next call to Generate.
type GrowthTrial struct {
	Position r3.Vec
	Weight   float64
	Valid    bool
}

// AnchorPolicy decides how an atom with no placed neighbors gets its trials.
type AnchorPolicy int

const (
	// AnchorRandom draws trial positions uniformly in the box.
	AnchorRandom AnchorPolicy = iota
	// AnchorRetain keeps the atom where it is; its single trial is the current position.
	AnchorRetain
)

func (p AnchorPolicy) String() string {
	switch p {
	case AnchorRandom:
		return "random"
	case AnchorRetain:
		return "retain"
	default:
		return "unknown"
	}
}

// ParseAnchorPolicy maps "random" or "retain" to a policy.
func ParseAnchorPolicy(s string) (AnchorPolicy, error) {
	switch s {
	case "random":
		return AnchorRandom, nil
	case "retain":
		return AnchorRetain, nil
	}
	return 0, fmt.Errorf("unknown anchor policy: %s", s)
}

// TrialGenerator produces the candidate positions of one growth step.
type TrialGenerator struct {
	Boundary Boundary
	Anchor   AnchorPolicy

	arena []GrowthTrial
	refs  []r3.Vec
}

// NewTrialGenerator returns a generator with an arena sized for k trials.
func NewTrialGenerator(boundary Boundary, anchor AnchorPolicy, k int) *TrialGenerator {
	return &TrialGenerator{
		Boundary: boundary,
		Anchor:   anchor,
		arena:    make([]GrowthTrial, k),
		refs:     make([]r3.Vec, 0, 3),
	}
}

// References collects the placed neighbors of atom index when growing in
// direction step (+1 or -1): index-step, index-2*step and index-3*step, as far
// as they exist in the chain.
func References(positions []r3.Vec, index, step int, refs []r3.Vec) []r3.Vec {
	refs = refs[:0]
	for j := 1; j <= 3; j++ {
		at := index - j*step
		if at < 0 || at >= len(positions) {
			break
		}
		refs = append(refs, positions[at])
	}
	return refs
}

// Generate fills k trials for atom index of mol growing in direction step. With
// keepCurrent, slot 0 holds the atom's current position and k-1 trials are
// fresh. The anchor result reports whether the atom had no references; a
// retained anchor always yields exactly one trial.
func (g *TrialGenerator) Generate(rng RandomSource, beta float64, mol *Chain, index, step, k int, keepCurrent bool) ([]GrowthTrial, bool, error) {
	if k < 1 {
		return nil, false, fmt.Errorf("trial count %d must be positive", k)
	}
	g.refs = References(mol.Positions, index, step, g.refs)
	anchor := len(g.refs) == 0
	if anchor && g.Anchor == AnchorRetain {
		k = 1
		keepCurrent = true
	}
	if cap(g.arena) < k {
		g.arena = make([]GrowthTrial, k)
	}
	trials := g.arena[:k]

	first := 0
	if keepCurrent {
		trials[0] = GrowthTrial{Position: mol.Positions[index], Valid: true}
		first = 1
	}
	for j := first; j < k; j++ {
		var pos r3.Vec
		if anchor {
			pos = g.Boundary.RandomPosition(rng)
		} else {
			var err error
			pos, err = mol.Geometry.Place(rng, beta, g.refs)
			if err != nil {
				return nil, anchor, fmt.Errorf("atom %d of %s: %w", index, mol.ID, err)
			}
		}
		trials[j] = GrowthTrial{Position: pos, Valid: true}
	}
	return trials, anchor, nil
}
