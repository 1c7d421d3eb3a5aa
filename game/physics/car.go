package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// VehicleState is the kinematic state of a car. Direction is a unit vector and
// Traction stays within the car's [MinTraction, MaxTraction].
type VehicleState struct {
	Position  mgl64.Vec2 `json:"position"`
	Direction mgl64.Vec2 `json:"direction"`
	Speed     float64    `json:"speed"`
	Traction  float64    `json:"traction"`
}

// Car integrates the motion of a single vehicle. The surface classifier is
// borrowed and must outlive the car.
type Car struct {
	state   VehicleState
	params  Params
	surface SurfaceClassifier
}

// NewCar creates a car at rest at position, heading along +X, using the
// default tuning.
func NewCar(position mgl64.Vec2, surface SurfaceClassifier) *Car {
	return NewCarWithParams(position, surface, DefaultParams())
}

// NewCarWithParams creates a car at rest at position with the given tuning.
func NewCarWithParams(position mgl64.Vec2, surface SurfaceClassifier, params Params) *Car {
	return &Car{
		state: VehicleState{
			Position:  position,
			Direction: mgl64.Vec2{1, 0},
			Speed:     0,
			Traction:  params.MinTraction,
		},
		params:  params,
		surface: surface,
	}
}

// restoreTolerance is how far a restored heading may be from unit length
// before it is re-normalised. Headings within it are kept bit for bit.
const restoreTolerance = 1e-9

// RestoreCar rebuilds a car from a previously captured state. Traction is
// clamped into bounds and the heading is re-normalised; a zero or non-finite
// heading falls back to +X.
func RestoreCar(state VehicleState, surface SurfaceClassifier, params Params) *Car {
	switch l := state.Direction.Len(); {
	case l == 0 || math.IsNaN(l) || math.IsInf(l, 0):
		state.Direction = mgl64.Vec2{1, 0}
	case math.Abs(l-1) > restoreTolerance:
		state.Direction = state.Direction.Normalize()
	}
	state.Traction = mgl64.Clamp(state.Traction, params.MinTraction, params.MaxTraction)

	return &Car{
		state:   state,
		params:  params,
		surface: surface,
	}
}

// Advance moves the car forward by deltaTime seconds under the given driver
// inputs. Accelerating and braking may both be set; steeringWheelAngle is the
// wheel angle in radians, not a yaw rate.
func (c *Car) Advance(deltaTime float64, accelerating, braking bool, steeringWheelAngle float64) {
	// Translation uses the speed and heading from the previous frame.
	c.state.Position = c.state.Position.Add(c.state.Direction.Mul(c.state.Speed * deltaTime))

	c.updateDirection(deltaTime, steeringWheelAngle)
	c.updateSpeed(deltaTime, accelerating, braking)
}

func (c *Car) updateDirection(deltaTime, steeringWheelAngle float64) {
	steeringAngle := steeringWheelAngle * c.params.SteeringRatio
	if steeringAngle == 0 {
		return
	}

	turnRadius := c.params.Length / math.Sin(steeringAngle)
	w := c.state.Speed / turnRadius
	w /= 1 + math.Abs(c.state.Speed)*c.params.SteeringSpeedCompensationRatio

	c.state.Direction = Rotation2D(w * deltaTime).Mul2x1(c.state.Direction).Normalize()
}

func (c *Car) updateSpeed(deltaTime float64, accelerating, braking bool) {
	speed := c.state.Speed
	force := -c.params.DragRatio*speed*speed - c.friction()*speed

	if accelerating {
		c.state.Traction = math.Min(c.state.Traction+deltaTime*c.params.TractionIncrease, c.params.MaxTraction)
		force += c.state.Traction
	} else {
		c.state.Traction = math.Max(c.state.Traction-deltaTime*c.params.TractionIncrease, c.params.MinTraction)
	}

	if braking {
		force -= c.params.Braking
	}

	c.state.Speed += force / c.params.Weight * deltaTime
}

func (c *Car) friction() float64 {
	if c.surface != nil && c.surface.IsInside(c.state.Position) {
		return c.params.RoadFriction
	}
	return c.params.GroundFriction
}

// OnRoad reports whether the car currently sits on the road surface.
func (c *Car) OnRoad() bool {
	return c.surface != nil && c.surface.IsInside(c.state.Position)
}

// Position returns the current world position.
func (c *Car) Position() mgl64.Vec2 {
	return c.state.Position
}

// Direction returns the current unit heading.
func (c *Car) Direction() mgl64.Vec2 {
	return c.state.Direction
}

// Heading returns the heading angle in radians measured from +X.
func (c *Car) Heading() float64 {
	return math.Atan2(c.state.Direction.Y(), c.state.Direction.X())
}

// Speed returns the signed speed along the heading; negative is reversing.
func (c *Car) Speed() float64 {
	return c.state.Speed
}

// Traction returns the current engine force.
func (c *Car) Traction() float64 {
	return c.state.Traction
}

// State returns a copy of the kinematic state.
func (c *Car) State() VehicleState {
	return c.state
}

// Params returns the tuning the car was built with.
func (c *Car) Params() Params {
	return c.params
}
