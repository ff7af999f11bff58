package molsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxPlacementAttempts bounds the rejection loops used to place a bonded atom.
const DefaultMaxPlacementAttempts = 1_000_000

// Geometry tolerances used by Validate.
const (
	LengthTolerance = 1e-9
	AngleTolerance  = 1e-6
)

// TetrahedralAngle is the sp3 bond angle, 109.47 degrees.
const TetrahedralAngle = 109.47 * math.Pi / 180

// ChainGeometry describes the bonded constraints of a chain and samples new
// bonded positions that satisfy them.
type ChainGeometry interface {
	BondLength() float64
	// BondAngle returns the fixed (rigid) or nominal (flexible) bond angle in radians.
	BondAngle() float64
	// Place returns one position bonded to refs[0]. refs[1] and refs[2], when
	// present, are the next atoms along the chain and fix the bond angle and the
	// torsion respectively. len(refs) must be between 1 and 3.
	Place(rng RandomSource, beta float64, refs []r3.Vec) (r3.Vec, error)
	// Validate checks a whole chain against the constraints.
	Validate(positions []r3.Vec) error
}

// BendPotential is the intramolecular energy of a bond angle.
type BendPotential interface {
	Energy(theta float64) float64
}

// TorsionPotential is the intramolecular energy of a torsion angle.
type TorsionPotential interface {
	Energy(phi float64) float64
}

// HarmonicBend is U = K/2 (theta - Theta0)^2.
type HarmonicBend struct {
	K      float64
	Theta0 float64
}

func (h HarmonicBend) Energy(theta float64) float64 {
	d := theta - h.Theta0
	return 0.5 * h.K * d * d
}

// FourierTorsion is the TraPPE/OPLS series
// U = C0 + C1(1+cos phi) + C2(1-cos 2phi) + C3(1+cos 3phi), with phi = pi for trans.
type FourierTorsion struct {
	C0, C1, C2, C3 float64
}

func (f FourierTorsion) Energy(phi float64) float64 {
	return f.C0 + f.C1*(1+math.Cos(phi)) + f.C2*(1-math.Cos(2*phi)) + f.C3*(1+math.Cos(3*phi))
}

// RigidGeometry has a fixed bond length and bond angle. Torsions are free inside
// the window [TorsionMin, TorsionMax] on |phi| and forbidden outside it.
type RigidGeometry struct {
	Length      float64
	Angle       float64
	TorsionMin  float64
	TorsionMax  float64
	MaxAttempts int
}

// NewRigidGeometry returns a rigid geometry with an unrestricted torsion window.
func NewRigidGeometry(length, angle float64) *RigidGeometry {
	return &RigidGeometry{
		Length:     length,
		Angle:      angle,
		TorsionMin: 0,
		TorsionMax: math.Pi,
	}
}

func (g *RigidGeometry) BondLength() float64 { return g.Length }
func (g *RigidGeometry) BondAngle() float64  { return g.Angle }

// Place puts the new atom on the cone of fixed bond angle around the bond to
// refs[1], with a uniform azimuth. With a torsion partner the azimuth is redrawn
// until the torsion falls inside the window.
func (g *RigidGeometry) Place(rng RandomSource, beta float64, refs []r3.Vec) (r3.Vec, error) {
	if len(refs) == 0 {
		return r3.Vec{}, fmt.Errorf("rigid placement needs a bonded reference: %w", ErrGeometryViolation)
	}
	if len(refs) == 1 {
		return r3.Add(refs[0], r3.Scale(g.Length, rng.NextUnitSphereDirection())), nil
	}

	u := r3.Unit(r3.Sub(refs[1], refs[0]))
	e1, e2 := perpendicularBasis(u)
	cosT, sinT := math.Cos(g.Angle), math.Sin(g.Angle)

	for attempt := 0; attempt < maxAttempts(g.MaxAttempts); attempt++ {
		psi := 2 * math.Pi * rng.NextUniform()
		ring := r3.Add(r3.Scale(math.Cos(psi), e1), r3.Scale(math.Sin(psi), e2))
		d := r3.Add(r3.Scale(cosT, u), r3.Scale(sinT, ring))
		pos := r3.Add(refs[0], r3.Scale(g.Length, d))
		if len(refs) < 3 || g.torsionAllowed(Dihedral(refs[2], refs[1], refs[0], pos)) {
			return pos, nil
		}
	}
	return r3.Vec{}, fmt.Errorf("rigid torsion window [%g, %g]: %w", g.TorsionMin, g.TorsionMax, ErrPlacementExhausted)
}

func (g *RigidGeometry) torsionAllowed(phi float64) bool {
	a := math.Abs(phi)
	return a >= g.TorsionMin-AngleTolerance && a <= g.TorsionMax+AngleTolerance
}

// Validate checks bond lengths, bond angles and torsion windows.
func (g *RigidGeometry) Validate(positions []r3.Vec) error {
	if err := validateLengths(positions, g.Length); err != nil {
		return err
	}
	for i := 2; i < len(positions); i++ {
		theta := BendAngle(positions[i-2], positions[i-1], positions[i])
		if math.Abs(theta-g.Angle) > AngleTolerance {
			return fmt.Errorf("angle %d-%d-%d is %g, want %g: %w", i-2, i-1, i, theta, g.Angle, ErrGeometryViolation)
		}
	}
	for i := 3; i < len(positions); i++ {
		phi := Dihedral(positions[i-3], positions[i-2], positions[i-1], positions[i])
		if !g.torsionAllowed(phi) {
			return fmt.Errorf("torsion %d-%d is %g outside [%g, %g]: %w", i-3, i, phi, g.TorsionMin, g.TorsionMax, ErrGeometryViolation)
		}
	}
	return nil
}

// FlexibleGeometry has a fixed bond length; bond angles and torsions are drawn
// from their intramolecular Boltzmann distributions by rejection sampling.
type FlexibleGeometry struct {
	Length      float64
	Angle       float64
	Bend        BendPotential
	Torsion     TorsionPotential
	MaxAttempts int

	torsionShift float64
}

// NewFlexibleGeometry returns a flexible geometry. A nil potential means that
// degree of freedom is free. The torsion potential is shifted so its minimum is 0,
// which keeps every acceptance probability at or below 1.
func NewFlexibleGeometry(length, angle float64, bend BendPotential, torsion TorsionPotential) *FlexibleGeometry {
	g := &FlexibleGeometry{
		Length:  length,
		Angle:   angle,
		Bend:    bend,
		Torsion: torsion,
	}
	if torsion != nil {
		g.torsionShift = math.Inf(1)
		const n = 3600
		for i := 0; i <= n; i++ {
			phi := -math.Pi + 2*math.Pi*float64(i)/n
			g.torsionShift = math.Min(g.torsionShift, torsion.Energy(phi))
		}
	}
	return g
}

func (g *FlexibleGeometry) BondLength() float64 { return g.Length }
func (g *FlexibleGeometry) BondAngle() float64  { return g.Angle }

// InternalEnergy returns the shifted bend plus torsion energy of placing an atom
// at pos given its references.
func (g *FlexibleGeometry) InternalEnergy(pos r3.Vec, refs []r3.Vec) float64 {
	var u float64
	if len(refs) >= 2 && g.Bend != nil {
		u += g.Bend.Energy(BendAngle(refs[1], refs[0], pos))
	}
	if len(refs) >= 3 && g.Torsion != nil {
		u += g.Torsion.Energy(Dihedral(refs[2], refs[1], refs[0], pos)) - g.torsionShift
	}
	return u
}

// Place draws uniform directions until one is accepted with probability
// exp(-beta*U_internal).
func (g *FlexibleGeometry) Place(rng RandomSource, beta float64, refs []r3.Vec) (r3.Vec, error) {
	if len(refs) == 0 {
		return r3.Vec{}, fmt.Errorf("flexible placement needs a bonded reference: %w", ErrGeometryViolation)
	}
	for attempt := 0; attempt < maxAttempts(g.MaxAttempts); attempt++ {
		pos := r3.Add(refs[0], r3.Scale(g.Length, rng.NextUnitSphereDirection()))
		if len(refs) == 1 {
			return pos, nil
		}
		u := g.InternalEnergy(pos, refs)
		if u <= 0 || rng.NextUniform() < math.Exp(-beta*u) {
			return pos, nil
		}
	}
	return r3.Vec{}, fmt.Errorf("flexible placement: %w", ErrPlacementExhausted)
}

// Validate checks bond lengths only; angles and torsions are sampled.
func (g *FlexibleGeometry) Validate(positions []r3.Vec) error {
	return validateLengths(positions, g.Length)
}

func validateLengths(positions []r3.Vec, length float64) error {
	tol := LengthTolerance * math.Max(1, length)
	for i := 1; i < len(positions); i++ {
		d := r3.Norm(r3.Sub(positions[i], positions[i-1]))
		if math.Abs(d-length) > tol {
			return fmt.Errorf("bond %d-%d has length %g, want %g: %w", i-1, i, d, length, ErrGeometryViolation)
		}
	}
	return nil
}

func maxAttempts(n int) int {
	if n <= 0 {
		return DefaultMaxPlacementAttempts
	}
	return n
}

// ZigZag returns an all-trans planar chain of n atoms starting at origin, lying in
// the xy plane along +x.
func ZigZag(n int, length, angle float64, origin r3.Vec) []r3.Vec {
	out := make([]r3.Vec, n)
	dx := length * math.Sin(angle/2)
	dy := length * math.Cos(angle/2)
	for i := range n {
		out[i] = r3.Add(origin, r3.Vec{X: float64(i) * dx, Y: float64(i%2) * dy})
	}
	return out
}

// TorsionChain returns a chain of n atoms with every bond angle equal to angle
// and every torsion equal to phi. The first three atoms are those of ZigZag, so
// phi = pi reproduces ZigZag.
func TorsionChain(n int, length, angle, phi float64, origin r3.Vec) []r3.Vec {
	out := ZigZag(min(n, 3), length, angle, origin)
	along := -length * math.Cos(angle)
	across := length * math.Sin(angle)
	for i := 3; i < n; i++ {
		a, b, c := out[i-3], out[i-2], out[i-1]
		bc := r3.Unit(r3.Sub(c, b))
		normal := r3.Unit(r3.Cross(r3.Sub(b, a), bc))
		inPlane := r3.Cross(normal, bc)
		d := r3.Add(r3.Scale(along, bc), r3.Add(
			r3.Scale(across*math.Cos(phi), inPlane),
			r3.Scale(across*math.Sin(phi), normal)))
		out = append(out, r3.Add(c, d))
	}
	return out
}

// InitialConformation returns a starting chain of n atoms that satisfies g:
// all-trans when trans is allowed, otherwise a constant torsion at the middle of
// the rigid torsion window.
func InitialConformation(g ChainGeometry, n int, origin r3.Vec) []r3.Vec {
	if rg, ok := g.(*RigidGeometry); ok && !rg.torsionAllowed(math.Pi) {
		return TorsionChain(n, g.BondLength(), g.BondAngle(), (rg.TorsionMin+rg.TorsionMax)/2, origin)
	}
	return ZigZag(n, g.BondLength(), g.BondAngle(), origin)
}
