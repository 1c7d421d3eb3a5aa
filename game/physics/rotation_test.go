package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRotation2D(t *testing.T) {
	tests := []struct {
		name     string
		angle    float64
		in       mgl64.Vec2
		expected mgl64.Vec2
	}{
		{"zero", 0, mgl64.Vec2{1, 0}, mgl64.Vec2{1, 0}},
		{"quarter turn", math.Pi / 2, mgl64.Vec2{1, 0}, mgl64.Vec2{0, 1}},
		{"half turn", math.Pi, mgl64.Vec2{1, 0}, mgl64.Vec2{-1, 0}},
		{"negative quarter", -math.Pi / 2, mgl64.Vec2{1, 0}, mgl64.Vec2{0, -1}},
		{"y axis quarter", math.Pi / 2, mgl64.Vec2{0, 1}, mgl64.Vec2{-1, 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Rotation2D(test.angle).Mul2x1(test.in)
			if !got.ApproxEqualThreshold(test.expected, 1e-12) {
				t.Errorf("Rotation2D(%f) * %v: expected %v, got %v", test.angle, test.in, test.expected, got)
			}
		})
	}
}

func TestRotation2D_Layout(t *testing.T) {
	m := Rotation2D(0.3)
	c, s := math.Cos(0.3), math.Sin(0.3)

	expected := mgl64.Mat2{c, s, -s, c}
	if !m.ApproxEqualThreshold(expected, 1e-15) {
		t.Errorf("Expected %v, got %v", expected, m)
	}
}

func TestRotation2D_PreservesLength(t *testing.T) {
	v := mgl64.Vec2{3, 4}
	for _, angle := range []float64{0.1, 1, 2.5, -4, 100} {
		if l := Rotation2D(angle).Mul2x1(v).Len(); math.Abs(l-5) > 1e-12 {
			t.Errorf("Rotation by %f changed length to %f", angle, l)
		}
	}
}
