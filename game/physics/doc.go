// Package physics provides the per-frame vehicle dynamics for VRaze.
//
// The model is planar and single-body: a car has a 2D position, a unit heading,
// a signed scalar speed and a traction force that charges while the throttle is
// held and decays otherwise. Each frame, Advance integrates position with the
// previous frame's speed, turns the heading with a bicycle-model yaw rate that
// is damped at high speed, and integrates speed from traction, braking, drag and
// surface friction.
//
// Surface friction is chosen through a SurfaceClassifier, a single boolean
// "is this point on the road" query supplied by the caller:
//
//	car := physics.NewCar(mgl64.Vec2{0, 0}, track)
//	for range frames {
//		car.Advance(dt, throttle, brake, wheel)
//	}
//	pos, dir := car.Position(), car.Direction()
//
// Numeric edge cases:
//
// A zero effective steering angle leaves the heading untouched. Steering angles
// whose sine is close to but not exactly zero produce very large turn radii and
// therefore negligible yaw; this is accepted floating-point behaviour and is not
// clamped. The quadratic drag term is -DragRatio*speed*speed and does not change
// sign when the car reverses, which is part of the tuned handling.
//
// Concurrency:
//
// A Car is not safe for concurrent use. Distinct cars share no state and can be
// advanced from different goroutines without synchronisation.
package physics
