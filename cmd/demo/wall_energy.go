package main

import (
	"math"

	"github.com/daniacca/molsim/internal/molsim"
	"gonum.org/v1/gonum/spatial/r3"
)

// WallEnergy confines atoms to a slab |z| < HalfWidth with a hard wall and a
// short ranged attraction of depth Epsilon within Range of either wall.
type WallEnergy struct {
	HalfWidth float64
	Range     float64
	Epsilon   float64
}

func NewWallEnergy() *WallEnergy {
	return &WallEnergy{HalfWidth: 2, Range: 0.3, Epsilon: 0.5}
}

func (w *WallEnergy) AtomEnergy(_ *molsim.Chain, pos r3.Vec) float64 {
	d := w.HalfWidth - math.Abs(pos.Z)
	switch {
	case d <= 0:
		return math.Inf(1)
	case d < w.Range:
		return -w.Epsilon
	}
	return 0
}

func (w *WallEnergy) MoleculeEnergy(mol *molsim.Chain) float64 {
	var u float64
	for _, p := range mol.Positions {
		u += w.AtomEnergy(mol, p)
	}
	return u
}
