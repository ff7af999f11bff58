package molsim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BendAngle returns the angle at vertex b formed by the bonds b->a and b->c, in radians.
func BendAngle(a, b, c r3.Vec) float64 {
	u := r3.Unit(r3.Sub(a, b))
	v := r3.Unit(r3.Sub(c, b))
	return math.Acos(clamp(r3.Dot(u, v), -1, 1))
}

// Dihedral returns the torsion angle of p0-p1-p2-p3 in (-pi, pi]. Cis is 0,
// trans is pi.
func Dihedral(p0, p1, p2, p3 r3.Vec) float64 {
	b1 := r3.Sub(p1, p0)
	b2 := r3.Sub(p2, p1)
	b3 := r3.Sub(p3, p2)
	n1 := r3.Cross(b1, b2)
	n2 := r3.Cross(b2, b3)
	y := r3.Norm(b2) * r3.Dot(b1, n2)
	x := r3.Dot(n1, n2)
	return math.Atan2(y, x)
}

// perpendicularBasis returns two unit vectors that together with the unit vector
// u form a right-handed orthonormal basis.
func perpendicularBasis(u r3.Vec) (r3.Vec, r3.Vec) {
	axis := r3.Vec{X: 1}
	if math.Abs(u.X) > 0.9 {
		axis = r3.Vec{Y: 1}
	}
	e1 := r3.Unit(r3.Cross(u, axis))
	e2 := r3.Cross(u, e1)
	return e1, e2
}

// GeometricCenter returns the mean position of the atoms, unwrapping each atom
// to the nearest image of the first one.
func GeometricCenter(positions []r3.Vec, boundary Boundary) r3.Vec {
	if len(positions) == 0 {
		return r3.Vec{}
	}
	origin := positions[0]
	var sum r3.Vec
	for _, p := range positions[1:] {
		sum = r3.Add(sum, boundary.NearestImage(r3.Sub(p, origin)))
	}
	return r3.Add(origin, r3.Scale(1/float64(len(positions)), sum))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
