package physics

import "github.com/go-gl/mathgl/mgl64"

// SurfaceClassifier answers whether a world point lies on the road surface.
// Implementations must be cheap and free of side effects; Advance calls
// IsInside once per frame.
type SurfaceClassifier interface {
	IsInside(position mgl64.Vec2) bool
}

// SurfaceFunc adapts an ordinary function to SurfaceClassifier.
type SurfaceFunc func(position mgl64.Vec2) bool

// IsInside calls f(position).
func (f SurfaceFunc) IsInside(position mgl64.Vec2) bool {
	return f(position)
}

// Everywhere and Nowhere are uniform surfaces, all road and all ground.
var (
	Everywhere SurfaceClassifier = SurfaceFunc(func(mgl64.Vec2) bool { return true })
	Nowhere    SurfaceClassifier = SurfaceFunc(func(mgl64.Vec2) bool { return false })
)
