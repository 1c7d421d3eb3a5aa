package engine

import (
	"fmt"

	"github.com/andialuis/VRaze/game/physics"
	"github.com/andialuis/VRaze/game/track"
)

// Engine provides the main interface for race operations
type Engine interface {
	// Race state management
	GetState() *RaceState
	SetState(state *RaceState) error
	Reset() *RaceState
	IsFinished() bool
	GetVehicle() VehicleSnapshot

	// Driving
	Step(controls Controls, deltaTime float64) FrameEntry
	Run(controls Controls, deltaTime float64, frames int) []FrameEntry

	// Configuration
	GetConfig() *RaceConfig
	GetTrack() *track.Track

	// History
	GetFrameHistory() []FrameEntry
	GetLastFrame() *FrameEntry

	// Checkpoints
	GetTotalCheckpoints() int
	GetVisitedCheckpoints() map[string]bool
	GetRemainingCheckpoints() int
}

// RaceEngine implements the Engine interface. It is not safe for concurrent
// use; the service layer serialises access per session.
type RaceEngine struct {
	state  *RaceState
	config *RaceConfig
	track  *track.Track
	car    *physics.Car
}

// NewEngine creates a new race engine with the provided configuration
func NewEngine(config *RaceConfig) (*RaceEngine, error) {
	if err := ValidateRaceConfig(config); err != nil {
		return nil, err
	}

	e := &RaceEngine{}
	if err := e.load(config); err != nil {
		return nil, err
	}
	return e, nil
}

// load builds the track and a fresh car for config.
func (e *RaceEngine) load(config *RaceConfig) error {
	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		return fmt.Errorf("failed to build track: %w", err)
	}

	e.config = config
	e.track = t
	e.car = physics.NewCarWithParams(t.Start(), t, config.PhysicsParams())
	e.state = InitRaceState(config, t, e.car)
	return nil
}

// GetState returns the current race state
func (e *RaceEngine) GetState() *RaceState {
	return e.state
}

// SetState sets the race state (used for persistence loading). The car is
// rebuilt from the vehicle snapshot.
func (e *RaceEngine) SetState(state *RaceState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.VisitedCheckpoints == nil {
		state.VisitedCheckpoints = make(map[string]bool)
	}
	if state.FrameHistory == nil {
		state.FrameHistory = []FrameEntry{}
	}

	e.car = physics.RestoreCar(physics.VehicleState{
		Position:  state.Vehicle.Position.Vec(),
		Direction: state.Vehicle.Direction.Vec(),
		Speed:     state.Vehicle.Speed,
		Traction:  state.Vehicle.Traction,
	}, e.track, e.config.PhysicsParams())

	e.state = state
	e.state.TotalCheckpoints = len(e.track.Checkpoints())
	e.state.syncVehicle(e.car, e.track)
	return nil
}

// Reset puts the car back on the start cell
func (e *RaceEngine) Reset() *RaceState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.FrameHistory
	prevTotal := e.state.TotalFrames

	e.car = physics.NewCarWithParams(e.track.Start(), e.track, e.config.PhysicsParams())
	e.state = InitRaceState(e.config, e.track, e.car)

	e.state.FrameHistory = prevHistory
	e.state.TotalFrames = prevTotal
	e.state.SegmentFrames = 0

	return e.state
}

// IsFinished returns whether every checkpoint has been visited
func (e *RaceEngine) IsFinished() bool {
	return e.state.Finished
}

// GetVehicle returns the current car snapshot
func (e *RaceEngine) GetVehicle() VehicleSnapshot {
	return e.state.Vehicle
}

// GetCar exposes the physics car, e.g. for renderers that want mathgl vectors.
func (e *RaceEngine) GetCar() *physics.Car {
	return e.car
}

// GetConfig returns the current track configuration
func (e *RaceEngine) GetConfig() *RaceConfig {
	return e.config
}

// GetTrack returns the track the car drives on
func (e *RaceEngine) GetTrack() *track.Track {
	return e.track
}

// GetFrameHistory returns the retained frame history
func (e *RaceEngine) GetFrameHistory() []FrameEntry {
	return e.state.FrameHistory
}

// GetLastFrame returns the last frame driven, or nil if none
func (e *RaceEngine) GetLastFrame() *FrameEntry {
	if len(e.state.FrameHistory) == 0 {
		return nil
	}
	return &e.state.FrameHistory[len(e.state.FrameHistory)-1]
}

// GetTotalCheckpoints returns the number of checkpoints on the track
func (e *RaceEngine) GetTotalCheckpoints() int {
	return e.state.TotalCheckpoints
}

// GetVisitedCheckpoints returns the map of visited checkpoints
func (e *RaceEngine) GetVisitedCheckpoints() map[string]bool {
	return e.state.VisitedCheckpoints
}

// GetRemainingCheckpoints returns the number of checkpoints not yet visited
func (e *RaceEngine) GetRemainingCheckpoints() int {
	return e.GetTotalCheckpoints() - len(e.state.VisitedCheckpoints)
}

// DescribeSurface reports the track under a world position
func (e *RaceEngine) DescribeSurface(p Point) SurfaceInfo {
	return DescribeSurface(e.track, e.state, p)
}
