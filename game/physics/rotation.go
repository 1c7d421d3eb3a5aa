package physics

import "github.com/go-gl/mathgl/mgl64"

// Rotation2D returns the matrix that rotates a vector by angle radians,
// counter-clockwise for positive angles. Elements are cos, sin, -sin, cos in
// column-major order.
func Rotation2D(angle float64) mgl64.Mat2 {
	return mgl64.Rotate2D(angle)
}
