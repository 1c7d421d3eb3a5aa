package engine

import (
	"github.com/andialuis/VRaze/game/physics"
	"github.com/andialuis/VRaze/game/track"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// Validation constants
	MinGridSize         = 5
	MaxGridSize         = 200
	MinCellSize         = 1.0
	MaxCellSize         = 100.0
	DefaultMaxDeltaTime = 0.25
	MaxFramesPerDrive   = 600
	MaxBulkInputs       = 50
	MaxFrameHistory     = 5000
	WebSocketBufferSize = 256
)

// Point is a world-space position or direction.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointFromVec converts a mathgl vector.
func PointFromVec(v mgl64.Vec2) Point {
	return Point{X: v.X(), Y: v.Y()}
}

// Vec converts p to a mathgl vector.
func (p Point) Vec() mgl64.Vec2 {
	return mgl64.Vec2{p.X, p.Y}
}

// Controls are the driver inputs held for a frame. Steering is the steering
// wheel angle in radians; positive turns the heading counter-clockwise in
// world coordinates (toward +Y).
type Controls struct {
	Accelerate bool    `json:"accelerate"`
	Brake      bool    `json:"brake"`
	Steering   float64 `json:"steering"`
}

// RaceMessages are the player-facing texts of a track.
type RaceMessages struct {
	Welcome    string `json:"welcome"`
	Checkpoint string `json:"checkpoint"`
	Finished   string `json:"finished"`
	OffRoad    string `json:"off_road"`
	OnRoad     string `json:"on_road"`
}

// RaceConfig represents a track configuration loaded from JSON
type RaceConfig struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CellSize     float64           `json:"cell_size"`
	Layout       []string          `json:"layout"`
	Legend       map[string]string `json:"legend"`
	MaxDeltaTime float64           `json:"max_delta_time,omitempty"`
	Physics      *physics.Params   `json:"physics,omitempty"`
	Messages     RaceMessages      `json:"messages"`
}

// VehicleSnapshot is the serialisable state of the car.
type VehicleSnapshot struct {
	Position  Point   `json:"position"`
	Direction Point   `json:"direction"`
	Speed     float64 `json:"speed"`
	Traction  float64 `json:"traction"`
	Heading   float64 `json:"heading"` // radians from +X
}

// RaceState represents the complete race state
type RaceState struct {
	Vehicle            VehicleSnapshot `json:"vehicle"`
	OnRoad             bool            `json:"on_road"`
	Surface            track.CellType  `json:"surface"`
	ElapsedTime        float64         `json:"elapsed_time"`
	Distance           float64         `json:"distance"`
	OffRoadTime        float64         `json:"off_road_time"`
	TopSpeed           float64         `json:"top_speed"`
	VisitedCheckpoints map[string]bool `json:"visited_checkpoints"`
	TotalCheckpoints   int             `json:"total_checkpoints"`
	Finished           bool            `json:"finished"`
	FinishTime         float64         `json:"finish_time,omitempty"`
	Message            string          `json:"message"`
	ConfigName         string          `json:"config_name"`

	// FrameHistory keeps the most recent MaxFrameHistory frames across resets.
	// TotalFrames counts every frame ever driven.
	FrameHistory []FrameEntry `json:"frame_history"`
	TotalFrames  int          `json:"total_frames"`

	// SegmentFrames counts frames since the last reset.
	SegmentFrames int `json:"segment_frames"`

	// Computed helper views (not required for core race logic)
	NearestCheckpoint *CheckpointHint `json:"nearest_checkpoint,omitempty"`
	DrivingStatus     string          `json:"driving_status,omitempty"`
}

// FrameEntry records one integrated frame.
type FrameEntry struct {
	FrameNumber int      `json:"frame_number"`
	Controls    Controls `json:"controls"`
	DeltaTime   float64  `json:"delta_time"`
	From        Point    `json:"from"`
	To          Point    `json:"to"`
	Speed       float64  `json:"speed"`
	Traction    float64  `json:"traction"`
	OnRoad      bool     `json:"on_road"`
	Checkpoints []string `json:"checkpoints,omitempty"` // reached this frame, in order
	Timestamp   int64    `json:"timestamp"`
}

// CheckpointHint points at the closest unvisited checkpoint.
type CheckpointHint struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
	Distance float64 `json:"distance"`
	Bearing  float64 `json:"bearing"` // radians from the car heading, counter-clockwise positive like Steering
}

// SurfaceInfo describes the track under a world position.
type SurfaceInfo struct {
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Col        int            `json:"col"`
	Row        int            `json:"row"`
	InGrid     bool           `json:"in_grid"`
	Type       track.CellType `json:"type"`
	Char       string         `json:"char"`
	OnRoad     bool           `json:"on_road"`
	Checkpoint string         `json:"checkpoint,omitempty"`
	Visited    bool           `json:"visited,omitempty"`
}

// Clone returns a deep copy of the state that shares nothing with rs.
func (rs *RaceState) Clone() *RaceState {
	if rs == nil {
		return nil
	}
	c := *rs
	c.VisitedCheckpoints = make(map[string]bool, len(rs.VisitedCheckpoints))
	for id, v := range rs.VisitedCheckpoints {
		c.VisitedCheckpoints[id] = v
	}
	if rs.FrameHistory != nil {
		c.FrameHistory = make([]FrameEntry, len(rs.FrameHistory))
		for i, f := range rs.FrameHistory {
			f.Checkpoints = append([]string(nil), f.Checkpoints...)
			c.FrameHistory[i] = f
		}
	}
	if rs.NearestCheckpoint != nil {
		hint := *rs.NearestCheckpoint
		c.NearestCheckpoint = &hint
	}
	return &c
}
