package molsim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// RandomSource is the only source of randomness used by moves, geometries and
// the integrator. It is passed explicitly so runs are reproducible from a seed.
type RandomSource interface {
	// NextUniform returns a value in [0, 1).
	NextUniform() float64
	NextBoolean() bool
	// NextInt returns a value in [0, n). It panics if n <= 0.
	NextInt(n int) int
	// NextUnitSphereDirection returns a unit vector uniformly distributed on the sphere.
	NextUnitSphereDirection() r3.Vec
}

// pcgSource is the default seeded RandomSource.
type pcgSource struct {
	r *rand.Rand
}

// NewRandom returns a replicable RandomSource seeded with seed.
func NewRandom(seed uint64) RandomSource {
	return &pcgSource{r: rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))}
}

func (s *pcgSource) NextUniform() float64 { return s.r.Float64() }

func (s *pcgSource) NextBoolean() bool { return s.r.Uint64()&1 == 1 }

func (s *pcgSource) NextInt(n int) int { return s.r.IntN(n) }

// NextUnitSphereDirection uses Marsaglia's method: pick a point uniformly in the
// unit disk and lift it onto the sphere.
func (s *pcgSource) NextUnitSphereDirection() r3.Vec {
	for {
		u := 2*s.r.Float64() - 1
		v := 2*s.r.Float64() - 1
		q := u*u + v*v
		if q >= 1 || q == 0 {
			continue
		}
		f := 2 * math.Sqrt(1-q)
		return r3.Vec{X: u * f, Y: v * f, Z: 1 - 2*q}
	}
}
