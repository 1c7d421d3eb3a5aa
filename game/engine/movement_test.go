package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/andialuis/VRaze/game/physics"
)

func TestStep_Odometer(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	frames := engine.Run(throttle, 0.1, 40)

	state := engine.GetState()
	travelled := state.Vehicle.Position.X - 15
	if math.Abs(state.Distance-travelled) > 1e-9 {
		t.Errorf("Expected distance %v on a straight line, got %v", travelled, state.Distance)
	}
	if state.TopSpeed != frames[len(frames)-1].Speed {
		t.Errorf("Expected top speed to be the latest speed while accelerating, got %v", state.TopSpeed)
	}
	if state.OffRoadTime != 0 {
		t.Errorf("Expected no off-road time, got %v", state.OffRoadTime)
	}
}

func TestStep_SurfaceTransitions(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	engine.Run(throttle, 0.1, 71)

	state := engine.GetState()
	if state.OnRoad {
		t.Fatal("Expected car to have left the strip")
	}
	if state.Surface != "ground" {
		t.Errorf("Expected ground surface, got %q", state.Surface)
	}
	if math.Abs(state.OffRoadTime-0.1) > 1e-9 {
		t.Errorf("Expected 0.1s off road, got %v", state.OffRoadTime)
	}

	// Reverse back onto the strip
	engine.SetState(&RaceState{
		Vehicle: VehicleSnapshot{
			Position:  Point{X: 91, Y: 15},
			Direction: Point{X: -1, Y: 0},
			Speed:     20,
			Traction:  1000,
		},
		VisitedCheckpoints: state.VisitedCheckpoints,
	})
	engine.Step(Controls{}, 0.1)
	if !engine.GetState().OnRoad {
		t.Fatal("Expected car back on the road")
	}
	if engine.GetState().Message != "On road!" {
		t.Errorf("Expected on-road message, got %q", engine.GetState().Message)
	}
}

func TestStep_CheckpointRecordedOnce(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	frames := engine.Run(throttle, 0.1, 52)

	hits := 0
	for _, f := range frames {
		if len(f.Checkpoints) == 1 && f.Checkpoints[0] == "checkpoint_0" {
			hits++
			if f.FrameNumber != 46 {
				t.Errorf("Expected checkpoint_0 on frame 46, got %d", f.FrameNumber)
			}
		}
	}
	if hits != 1 {
		t.Errorf("Expected checkpoint_0 to be recorded once, got %d", hits)
	}
}

func TestRun_ZeroFrames(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())

	frames := engine.Run(throttle, 0.1, 0)
	if len(frames) != 0 {
		t.Errorf("Expected no frames, got %d", len(frames))
	}
	if engine.GetState().TotalFrames != 0 {
		t.Error("Expected state untouched")
	}
}

func TestAddFrameToHistory(t *testing.T) {
	state := &RaceState{}

	for i := 1; i <= MaxFrameHistory+10; i++ {
		state.AddFrameToHistory(FrameEntry{FrameNumber: i})
	}

	if len(state.FrameHistory) != MaxFrameHistory {
		t.Errorf("Expected history capped at %d, got %d", MaxFrameHistory, len(state.FrameHistory))
	}
	if state.FrameHistory[0].FrameNumber != 11 {
		t.Errorf("Expected oldest retained frame 11, got %d", state.FrameHistory[0].FrameNumber)
	}
	if state.TotalFrames != MaxFrameHistory+10 {
		t.Errorf("Expected total frames %d, got %d", MaxFrameHistory+10, state.TotalFrames)
	}
	if state.SegmentFrames != MaxFrameHistory+10 {
		t.Errorf("Expected segment frames %d, got %d", MaxFrameHistory+10, state.SegmentFrames)
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}); d != 5 {
		t.Errorf("Expected 5, got %v", d)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFindNearestUnvisitedCheckpoint(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())

	hint, ok := FindNearestUnvisitedCheckpoint(engine.GetTrack(), engine.GetState())
	if !ok {
		t.Fatal("Expected a checkpoint hint")
	}
	if hint.ID != "checkpoint_0" {
		t.Errorf("Expected checkpoint_0, got %s", hint.ID)
	}
	if hint.Distance != 30 {
		t.Errorf("Expected distance 30, got %v", hint.Distance)
	}
	if hint.Bearing != 0 {
		t.Errorf("Expected dead-ahead bearing, got %v", hint.Bearing)
	}

	engine.GetState().VisitedCheckpoints["checkpoint_0"] = true
	hint, _ = FindNearestUnvisitedCheckpoint(engine.GetTrack(), engine.GetState())
	if hint.ID != "checkpoint_1" {
		t.Errorf("Expected checkpoint_1 once checkpoint_0 is visited, got %s", hint.ID)
	}

	engine.GetState().VisitedCheckpoints["checkpoint_1"] = true
	if _, ok := FindNearestUnvisitedCheckpoint(engine.GetTrack(), engine.GetState()); ok {
		t.Error("Expected no hint when every checkpoint is visited")
	}
}

func TestCheckpointBearingSign(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	state := engine.GetState()

	// Facing +Y, checkpoint_0 at (45,15) lies clockwise of the heading
	state.Vehicle.Direction = Point{X: 0, Y: 1}
	state.Vehicle.Heading = math.Pi / 2

	hint, ok := FindNearestUnvisitedCheckpoint(engine.GetTrack(), state)
	if !ok {
		t.Fatal("Expected a hint")
	}
	if math.Abs(hint.Bearing+math.Pi/2) > 1e-12 {
		t.Errorf("Expected bearing -pi/2, got %v", hint.Bearing)
	}

	// Facing -Y it lies counter-clockwise
	state.Vehicle.Heading = -math.Pi / 2
	hint, _ = FindNearestUnvisitedCheckpoint(engine.GetTrack(), state)
	if math.Abs(hint.Bearing-math.Pi/2) > 1e-12 {
		t.Errorf("Expected bearing pi/2, got %v", hint.Bearing)
	}
}

func TestDescribeSurface(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	tr := engine.GetTrack()

	tests := []struct {
		name   string
		p      Point
		typ    string
		char   string
		onRoad bool
		inGrid bool
	}{
		{"start", Point{X: 15, Y: 15}, "start", "S", true, true},
		{"road", Point{X: 25, Y: 19.9}, "road", "R", true, true},
		{"checkpoint", Point{X: 40, Y: 10}, "checkpoint", "C", true, true},
		{"ground", Point{X: 5, Y: 5}, "ground", ".", false, true},
		{"outside", Point{X: -1, Y: 5}, "ground", ".", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DescribeSurface(tr, nil, tt.p)
			if string(info.Type) != tt.typ || info.Char != tt.char {
				t.Errorf("Expected %s/%s, got %s/%s", tt.typ, tt.char, info.Type, info.Char)
			}
			if info.OnRoad != tt.onRoad {
				t.Errorf("Expected on_road=%v, got %v", tt.onRoad, info.OnRoad)
			}
			if info.InGrid != tt.inGrid {
				t.Errorf("Expected in_grid=%v, got %v", tt.inGrid, info.InGrid)
			}
		})
	}
}

func TestDrivingStatus(t *testing.T) {
	tests := []struct {
		name  string
		state RaceState
		want  string
	}{
		{"finished", RaceState{Finished: true}, "FINISHED: All checkpoints visited"},
		{"stuck", RaceState{}, "STUCK: Off the road and nearly stopped"},
		{"off road", RaceState{Vehicle: VehicleSnapshot{Speed: 10}}, "OFF ROAD: Ground friction is slowing the car"},
		{"stopped", RaceState{OnRoad: true}, "STOPPED: Accelerate to get moving"},
		{"reversing", RaceState{OnRoad: true, Vehicle: VehicleSnapshot{Speed: -3}}, "REVERSING: Speed is negative"},
		{"driving", RaceState{OnRoad: true, Vehicle: VehicleSnapshot{Speed: 3}}, "DRIVING: On the road"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DrivingStatus(&tt.state); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRefreshComputedViews(t *testing.T) {
	engine, _ := NewEngine(createTestConfig())
	state := engine.GetState()

	RefreshComputedViews(engine.GetTrack(), state)
	if state.NearestCheckpoint == nil || state.NearestCheckpoint.ID != "checkpoint_0" {
		t.Errorf("Expected nearest checkpoint_0, got %+v", state.NearestCheckpoint)
	}
	if state.DrivingStatus == "" {
		t.Error("Expected a driving status")
	}

	engine.Run(throttle, 0.1, 67)
	RefreshComputedViews(engine.GetTrack(), engine.GetState())
	if engine.GetState().NearestCheckpoint != nil {
		t.Error("Expected no nearest checkpoint after finishing")
	}
}

func TestStep_FastCarCannotSkipCheckpoint(t *testing.T) {
	row := []byte("." + strings.Repeat("R", 77) + ".")
	row[1] = 'S'
	row[67] = 'C'
	ground := strings.Repeat(".", 79)

	engine, err := NewEngine(&RaceConfig{
		Name:        "Narrow cells",
		Description: "One-unit cells",
		CellSize:    1,
		Layout:      []string{ground, ground, string(row), ground, ground},
		Legend:      DefaultLegend(),
		Messages:    DefaultMessages(),
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	var hit *FrameEntry
	for i := 0; i < 40 && hit == nil; i++ {
		f := engine.Step(throttle, DefaultMaxDeltaTime)
		if len(f.Checkpoints) > 0 {
			hit = &f
		}
	}
	if hit == nil {
		t.Fatal("Expected the checkpoint to be reached")
	}
	if hit.Checkpoints[0] != "checkpoint_0" {
		t.Errorf("Expected checkpoint_0, got %v", hit.Checkpoints)
	}
	if hit.From.X >= 67 || hit.To.X-hit.From.X <= 1 {
		t.Errorf("Expected a frame spanning several cells into the checkpoint, got %.2f -> %.2f", hit.From.X, hit.To.X)
	}
	if !engine.IsFinished() {
		t.Error("Expected the race to be finished")
	}
}

func TestStep_RunawayReverseStaysBounded(t *testing.T) {
	params := physics.DefaultParams()
	params.Braking = 20000
	params.GroundFriction = 300

	config := createTestConfig()
	config.Physics = &params
	if err := ValidateRaceConfig(config); err != nil {
		t.Fatalf("Expected runaway tuning to be accepted: %v", err)
	}
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 60; i++ {
			engine.Step(Controls{Brake: true}, DefaultMaxDeltaTime)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected 60 braking frames to finish within 5s")
	}
}
