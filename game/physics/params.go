package physics

import (
	"errors"
	"fmt"
	"math"
)

// Default tuning of the arcade car.
const (
	DefaultWeight                         = 1500.0
	DefaultLength                         = 2.5
	DefaultMinTraction                    = 1000.0
	DefaultMaxTraction                    = 25000.0
	DefaultTractionIncrease               = 2500.0
	DefaultDragRatio                      = 8.0
	DefaultRoadFriction                   = 300.0
	DefaultGroundFriction                 = 2000.0
	DefaultBraking                        = 2000.0
	DefaultSteeringRatio                  = 0.15
	DefaultSteeringSpeedCompensationRatio = 0.12
)

var ErrInvalidParams = errors.New("invalid physics parameters")

// Params holds the tuning constants used by Advance. Zero-valued fields are
// not filled in automatically; use DefaultParams as the starting point.
type Params struct {
	Weight                         float64 `json:"weight"`
	Length                         float64 `json:"length"`
	MinTraction                    float64 `json:"min_traction"`
	MaxTraction                    float64 `json:"max_traction"`
	TractionIncrease               float64 `json:"traction_increase"`
	DragRatio                      float64 `json:"drag_ratio"`
	RoadFriction                   float64 `json:"road_friction"`
	GroundFriction                 float64 `json:"ground_friction"`
	Braking                        float64 `json:"braking"`
	SteeringRatio                  float64 `json:"steering_ratio"`
	SteeringSpeedCompensationRatio float64 `json:"steering_speed_compensation_ratio"`
}

// DefaultParams returns the stock arcade tuning.
func DefaultParams() Params {
	return Params{
		Weight:                         DefaultWeight,
		Length:                         DefaultLength,
		MinTraction:                    DefaultMinTraction,
		MaxTraction:                    DefaultMaxTraction,
		TractionIncrease:               DefaultTractionIncrease,
		DragRatio:                      DefaultDragRatio,
		RoadFriction:                   DefaultRoadFriction,
		GroundFriction:                 DefaultGroundFriction,
		Braking:                        DefaultBraking,
		SteeringRatio:                  DefaultSteeringRatio,
		SteeringSpeedCompensationRatio: DefaultSteeringSpeedCompensationRatio,
	}
}

// Validate reports whether p can drive a car. It is meant for tuning loaded
// from configuration files. Tunings whose reverse speed never settles, where
// friction² < 4·DragRatio·Braking, are accepted.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"weight", p.Weight},
		{"length", p.Length},
		{"min_traction", p.MinTraction},
		{"max_traction", p.MaxTraction},
		{"traction_increase", p.TractionIncrease},
		{"drag_ratio", p.DragRatio},
		{"road_friction", p.RoadFriction},
		{"ground_friction", p.GroundFriction},
		{"braking", p.Braking},
		{"steering_ratio", p.SteeringRatio},
		{"steering_speed_compensation_ratio", p.SteeringSpeedCompensationRatio},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParams, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidParams, f.name, f.value)
		}
	}

	if p.Weight == 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidParams)
	}
	if p.Length == 0 {
		return fmt.Errorf("%w: length must be positive", ErrInvalidParams)
	}
	if p.MinTraction > p.MaxTraction {
		return fmt.Errorf("%w: min_traction (%g) exceeds max_traction (%g)", ErrInvalidParams, p.MinTraction, p.MaxTraction)
	}
	return nil
}
