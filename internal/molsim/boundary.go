package molsim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Boundary supplies trial positions for unanchored atoms and the minimum image
// convention used by energy evaluators.
type Boundary interface {
	// RandomPosition returns a point uniformly distributed in the box.
	RandomPosition(rng RandomSource) r3.Vec
	// NearestImage maps a separation vector onto its nearest periodic image.
	NearestImage(v r3.Vec) r3.Vec
	// Dimensions returns the box edge lengths.
	Dimensions() r3.Vec
}

// OpenBoundary has no periodic images. Random positions are drawn from a box of
// the given dimensions centered on the origin.
type OpenBoundary struct {
	Size r3.Vec
}

func (b OpenBoundary) RandomPosition(rng RandomSource) r3.Vec {
	return r3.Vec{
		X: (rng.NextUniform() - 0.5) * b.Size.X,
		Y: (rng.NextUniform() - 0.5) * b.Size.Y,
		Z: (rng.NextUniform() - 0.5) * b.Size.Z,
	}
}

func (b OpenBoundary) NearestImage(v r3.Vec) r3.Vec { return v }

func (b OpenBoundary) Dimensions() r3.Vec { return b.Size }

// PeriodicBox is a rectangular box with periodic images on every axis, spanning
// [-L/2, L/2) on each axis.
type PeriodicBox struct {
	Size r3.Vec
}

func (b PeriodicBox) RandomPosition(rng RandomSource) r3.Vec {
	return r3.Vec{
		X: (rng.NextUniform() - 0.5) * b.Size.X,
		Y: (rng.NextUniform() - 0.5) * b.Size.Y,
		Z: (rng.NextUniform() - 0.5) * b.Size.Z,
	}
}

func (b PeriodicBox) NearestImage(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: v.X - b.Size.X*math.Round(v.X/b.Size.X),
		Y: v.Y - b.Size.Y*math.Round(v.Y/b.Size.Y),
		Z: v.Z - b.Size.Z*math.Round(v.Z/b.Size.Z),
	}
}

func (b PeriodicBox) Dimensions() r3.Vec { return b.Size }
