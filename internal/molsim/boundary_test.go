package molsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPeriodicBox_NearestImage(t *testing.T) {
	box := PeriodicBox{Size: r3.Vec{X: 10, Y: 10, Z: 10}}

	tests := []struct {
		in, want r3.Vec
	}{
		{r3.Vec{X: 6, Y: -6, Z: 4}, r3.Vec{X: -4, Y: 4, Z: 4}},
		{r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 2, Z: 3}},
		{r3.Vec{X: 21, Y: -19, Z: 0}, r3.Vec{X: 1, Y: 1, Z: 0}},
	}
	for _, tt := range tests {
		got := box.NearestImage(tt.in)
		assert.InDelta(t, tt.want.X, got.X, 1e-12)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
		assert.InDelta(t, tt.want.Z, got.Z, 1e-12)
	}
}

func TestBoundary_RandomPositionInsideBox(t *testing.T) {
	rng := NewRandom(9)
	size := r3.Vec{X: 4, Y: 6, Z: 8}
	for _, b := range []Boundary{PeriodicBox{Size: size}, OpenBoundary{Size: size}} {
		assert.Equal(t, size, b.Dimensions())
		for range 500 {
			p := b.RandomPosition(rng)
			assert.True(t, p.X >= -2 && p.X < 2, "x=%g", p.X)
			assert.True(t, p.Y >= -3 && p.Y < 3, "y=%g", p.Y)
			assert.True(t, p.Z >= -4 && p.Z < 4, "z=%g", p.Z)
		}
	}
}

func TestOpenBoundary_NoImages(t *testing.T) {
	b := OpenBoundary{Size: r3.Vec{X: 1, Y: 1, Z: 1}}
	v := r3.Vec{X: 7, Y: -9, Z: 3}
	assert.Equal(t, v, b.NearestImage(v))
}

func TestGeometricCenter_AcrossBoundary(t *testing.T) {
	box := PeriodicBox{Size: r3.Vec{X: 10, Y: 10, Z: 10}}
	c := GeometricCenter([]r3.Vec{{X: 4.9}, {X: -4.9}}, box)
	assert.InDelta(t, 5.0, c.X, 1e-12)

	open := GeometricCenter([]r3.Vec{{X: 1}, {X: 3, Y: 2}}, OpenBoundary{})
	assert.Equal(t, r3.Vec{X: 2, Y: 1}, open)
	assert.Equal(t, r3.Vec{}, GeometricCenter(nil, box))
}
