package airspace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadingConvention(t *testing.T) {
	cases := []struct {
		vx, vy, want float64
	}{
		{1, 0, 0},
		{0, 1, 90},
		{-1, 0, 180},
		{0, -1, 270},
	}
	for _, c := range cases {
		v := Velocity{VX: c.vx, VY: c.vy}
		assert.InDelta(t, c.want, v.Heading(), 1e-9)
	}
}

func TestFromSpeedAndHeadingRoundTrip(t *testing.T) {
	for _, heading := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		v := FromSpeedAndHeading(250, heading, 0)
		assert.InDelta(t, 250, v.HorizontalSpeed(), 1e-6)
		assert.InDelta(t, heading, v.Heading(), 1e-6)
	}
}

func TestNormalizeHeading(t *testing.T) {
	assert.InDelta(t, 0, NormalizeHeading(360), 1e-9)
	assert.InDelta(t, 350, NormalizeHeading(-10), 1e-9)
	assert.InDelta(t, 10, NormalizeHeading(370), 1e-9)
}

func TestInBounds(t *testing.T) {
	assert.True(t, InBounds(Position{X: 0, Y: 0, Z: ZMin}))
	assert.True(t, InBounds(Position{X: XMax, Y: YMax, Z: ZMax}))
	assert.False(t, InBounds(Position{X: -1, Y: 0, Z: ZMin}))
	assert.False(t, InBounds(Position{X: 0, Y: 0, Z: ZMin - 1}))
}

func TestIntegrateConstantVelocity(t *testing.T) {
	p := Position{X: 0, Y: 0, Z: 20000}
	v := Velocity{VX: 100, VY: 0, VZ: 0}
	next := Integrate(p, v, 10)
	assert.InDelta(t, 1000, next.X, 1e-9)
	assert.InDelta(t, 0, next.Y, 1e-9)
	assert.InDelta(t, 20000, next.Z, 1e-9)
}

func TestSeparationHelpers(t *testing.T) {
	a := Position{X: 0, Y: 0, Z: 20000}
	b := Position{X: 3, Y: 4, Z: 20500}
	assert.InDelta(t, 5, HorizontalSeparation(a, b), 1e-9)
	assert.InDelta(t, 500, VerticalSeparation(a, b), 1e-9)
}

func TestMidpoint(t *testing.T) {
	a := Position{X: 0, Y: 0, Z: 0}
	b := Position{X: 10, Y: 20, Z: 30}
	m := Midpoint(a, b)
	assert.Equal(t, Position{X: 5, Y: 10, Z: 15}, m)
}

func TestSpeedMatchesPythagorean(t *testing.T) {
	v := Velocity{VX: 3, VY: 4, VZ: 0}
	assert.InDelta(t, 5, v.Speed(), 1e-9)
	assert.InDelta(t, math.Hypot(3, 4), v.HorizontalSpeed(), 1e-9)
}
