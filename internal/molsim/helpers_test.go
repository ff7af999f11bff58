package molsim

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// countingRandom counts uniform draws of a wrapped source.
type countingRandom struct {
	RandomSource
	uniforms int
}

func (c *countingRandom) NextUniform() float64 {
	c.uniforms++
	return c.RandomSource.NextUniform()
}

// forbidden gives infinite energy at every listed position and zero elsewhere.
type forbidden map[r3.Vec]bool

func (f forbidden) AtomEnergy(_ *Chain, pos r3.Vec) float64 {
	if f[pos] {
		return math.Inf(1)
	}
	return 0
}

func (f forbidden) MoleculeEnergy(mol *Chain) float64 { return moleculeEnergy(f, mol) }

// allowedOnly gives infinite energy everywhere except the listed positions.
type allowedOnly map[r3.Vec]bool

func (a allowedOnly) AtomEnergy(_ *Chain, pos r3.Vec) float64 {
	if a[pos] {
		return 0
	}
	return math.Inf(1)
}

func (a allowedOnly) MoleculeEnergy(mol *Chain) float64 { return moleculeEnergy(a, mol) }

// poisoned gives zero energy at the listed positions and Value elsewhere.
type poisoned struct {
	known map[r3.Vec]bool
	Value float64
}

func (p poisoned) AtomEnergy(_ *Chain, pos r3.Vec) float64 {
	if p.known[pos] {
		return 0
	}
	return p.Value
}

func (p poisoned) MoleculeEnergy(mol *Chain) float64 { return moleculeEnergy(p, mol) }

func positionSet(chains ...*Chain) map[r3.Vec]bool {
	set := make(map[r3.Vec]bool)
	for _, c := range chains {
		for _, p := range c.Positions {
			set[p] = true
		}
	}
	return set
}

// recordingLogger keeps warnings for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}
func (l *recordingLogger) Errorf(string, ...any) {}
func (l *recordingLogger) Warnf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// newRigidSystem builds count tetrahedral chains of the given size on a grid.
func newRigidSystem(boundary Boundary, count, atoms int, spacing float64) *System {
	sys := NewSystem(boundary)
	g := NewRigidGeometry(DefaultBondLength, TetrahedralAngle)
	if err := sys.BuildChains("alkane", g, atoms, GridOrigins(count, spacing)); err != nil {
		panic(err)
	}
	return sys
}

func copyPositions(c *Chain) []r3.Vec {
	return append([]r3.Vec(nil), c.Positions...)
}
