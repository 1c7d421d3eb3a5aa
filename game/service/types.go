package service

import (
	"fmt"
	"math"
	"time"

	"github.com/andialuis/VRaze/game/engine"
)

// SessionInfo provides information about a race session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	RaceState      *engine.RaceState  `json:"race_state"`
	RaceConfig     *engine.RaceConfig `json:"race_config"`
}

// DriveInput holds one set of controls for a number of frames. Zero
// DeltaTime and Frames mean one frame of DefaultDeltaTime.
type DriveInput struct {
	Accelerate bool    `json:"accelerate"`
	Brake      bool    `json:"brake"`
	Steering   float64 `json:"steering"`
	DeltaTime  float64 `json:"delta_time,omitempty"`
	Frames     int     `json:"frames,omitempty"`
}

// DefaultDeltaTime is the frame duration used when an input omits it.
const DefaultDeltaTime = 1.0 / 60

// Controls returns the engine controls of the input.
func (in DriveInput) Controls() engine.Controls {
	return engine.Controls{Accelerate: in.Accelerate, Brake: in.Brake, Steering: in.Steering}
}

// withDefaults fills omitted timing fields.
func (in DriveInput) withDefaults() DriveInput {
	if in.DeltaTime == 0 {
		in.DeltaTime = DefaultDeltaTime
	}
	if in.Frames == 0 {
		in.Frames = 1
	}
	return in
}

// Validate checks the input against the frame limit of a track.
func (in DriveInput) Validate(maxDeltaTime float64) error {
	if math.IsNaN(in.Steering) || math.IsInf(in.Steering, 0) {
		return fmt.Errorf("%w: steering must be finite", ErrInvalidInput)
	}
	if math.IsNaN(in.DeltaTime) || in.DeltaTime <= 0 || in.DeltaTime > maxDeltaTime {
		return fmt.Errorf("%w: delta_time must be in (0, %g], got %g", ErrInvalidInput, maxDeltaTime, in.DeltaTime)
	}
	if in.Frames < 1 || in.Frames > engine.MaxFramesPerDrive {
		return fmt.Errorf("%w: frames must be between 1 and %d, got %d", ErrInvalidInput, engine.MaxFramesPerDrive, in.Frames)
	}
	return nil
}

// DriveResult contains the result of a drive operation
type DriveResult struct {
	Success   bool              `json:"success"`
	RaceState *engine.RaceState `json:"race_state"`
	Message   string            `json:"message"`
	Events    []RaceEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
}

// BulkDriveResult contains the result of several drive inputs
type BulkDriveResult struct {
	// Summary
	InputsExecuted  int               `json:"inputs_executed"`
	RequestedInputs int               `json:"requested_inputs"`
	FramesExecuted  int               `json:"frames_executed"`
	Success         bool              `json:"success"`
	RaceState       *engine.RaceState `json:"race_state"`
	Events          []RaceEvent       `json:"events"`
	StoppedReason   string            `json:"stopped_reason,omitempty"`
	StopReasonCode  string            `json:"stop_reason_code,omitempty"` // finished
	StoppedOnInput  int               `json:"stopped_on_input,omitempty"` // 1-based
	Truncated       bool              `json:"truncated,omitempty"`
	Limit           int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPosition    engine.Point `json:"start_position"`
	EndPosition      engine.Point `json:"end_position"`
	StartSpeed       float64      `json:"start_speed"`
	EndSpeed         float64      `json:"end_speed"`
	DistanceDelta    float64      `json:"distance_delta"`
	CheckpointsDelta int          `json:"checkpoints_delta"`

	// Per-input compact trace
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	Finished      bool   `json:"finished"`
	Message       string `json:"message,omitempty"`
	DrivingStatus string `json:"driving_status,omitempty"`
}

// StepInfo is a compact record of one executed drive input
type StepInfo struct {
	Idx         int          `json:"idx"`
	Input       DriveInput   `json:"input"`
	From        engine.Point `json:"from"`
	To          engine.Point `json:"to"`
	SpeedBefore float64      `json:"speed_before"`
	SpeedAfter  float64      `json:"speed_after"`
	Surface     string       `json:"surface"`
	OnRoad      bool         `json:"on_road"`
	Checkpoints []string     `json:"checkpoints,omitempty"`
	Finished    bool         `json:"finished,omitempty"`
	Frames      int          `json:"frames"`
	LastFrame   int          `json:"last_frame"`
	Heading     float64      `json:"heading"`
	Direction   engine.Point `json:"direction"`
}

// RaceEvent represents an event that occurred while driving
type RaceEvent struct {
	Type      string        `json:"type"` // "reset", "drive", "checkpoint", "finished", "off_road", "on_road"
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Position  *engine.Point `json:"position,omitempty"`
	Frame     int           `json:"frame,omitempty"`
}

// TelemetryOptions configures frame history retrieval
type TelemetryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// TelemetryResponse contains paginated frame history
type TelemetryResponse struct {
	Frames         []engine.FrameEntry `json:"frames"`
	TotalFrames    int                 `json:"total_frames"`
	RetainedFrames int                 `json:"retained_frames"`
	Page           int                 `json:"page"`
	PageSize       int                 `json:"page_size"`
	TotalPages     int                 `json:"total_pages"`
	HasNext        bool                `json:"has_next"`
	HasPrevious    bool                `json:"has_previous"`
}

// ConfigInfo provides information about a track configuration
type ConfigInfo struct {
	Filename    string  `json:"filename"`
	ConfigID    string  `json:"config_id"` // The identifier to use for session creation
	Name        string  `json:"name"`      // Display name
	Description string  `json:"description"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	CellSize    float64 `json:"cell_size"`
	Checkpoints int     `json:"checkpoints"`
}
