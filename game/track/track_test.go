package track

import (
	"errors"
	"math"
	"testing"

	"github.com/andialuis/VRaze/game/physics"
	"github.com/go-gl/mathgl/mgl64"
)

var testLayout = []string{
	".....",
	".SRC.",
	".R.R.",
	".CRR.",
	".....",
}

func newTestTrack(t *testing.T) *Track {
	t.Helper()
	tr, err := New(testLayout, 10)
	if err != nil {
		t.Fatalf("Failed to build track: %v", err)
	}
	return tr
}

func TestNew_Dimensions(t *testing.T) {
	tr := newTestTrack(t)

	if tr.Width() != 5 || tr.Height() != 5 {
		t.Errorf("Expected 5x5 grid, got %dx%d", tr.Width(), tr.Height())
	}
	if tr.CellSize() != 10 {
		t.Errorf("Expected cell size 10, got %f", tr.CellSize())
	}
	_, max := tr.Bounds()
	if max != (mgl64.Vec2{50, 50}) {
		t.Errorf("Expected bounds (50,50), got %v", max)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name     string
		layout   []string
		cellSize float64
	}{
		{"empty layout", nil, 10},
		{"empty row", []string{""}, 10},
		{"ragged rows", []string{"SRR", "RR"}, 10},
		{"no start", []string{"RRR", "RRR"}, 10},
		{"two starts", []string{"SRS", "RRR"}, 10},
		{"bad character", []string{"SRX", "RRR"}, 10},
		{"zero cell size", []string{"SRR"}, 0},
		{"negative cell size", []string{"SRR"}, -1},
		{"NaN cell size", []string{"SRR"}, math.NaN()},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.layout, test.cellSize)
			if !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("Expected ErrInvalidLayout, got %v", err)
			}
		})
	}
}

func TestIsInside(t *testing.T) {
	tr := newTestTrack(t)

	tests := []struct {
		name     string
		p        mgl64.Vec2
		expected bool
	}{
		{"start cell", mgl64.Vec2{15, 15}, true},
		{"road cell", mgl64.Vec2{25, 12}, true},
		{"checkpoint cell", mgl64.Vec2{35, 15}, true},
		{"ground cell", mgl64.Vec2{25, 25}, false},
		{"cell edge belongs to next cell", mgl64.Vec2{20, 20}, false},
		{"negative coordinates", mgl64.Vec2{-1, 15}, false},
		{"beyond grid", mgl64.Vec2{51, 15}, false},
		{"NaN", mgl64.Vec2{math.NaN(), 0}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := tr.IsInside(test.p); got != test.expected {
				t.Errorf("IsInside(%v): expected %v, got %v", test.p, test.expected, got)
			}
		})
	}
}

func TestStartAndCheckpoints(t *testing.T) {
	tr := newTestTrack(t)

	if tr.Start() != (mgl64.Vec2{15, 15}) {
		t.Errorf("Expected start at (15,15), got %v", tr.Start())
	}

	cps := tr.Checkpoints()
	if len(cps) != 2 {
		t.Fatalf("Expected 2 checkpoints, got %d", len(cps))
	}
	if cps[0].ID != "checkpoint_0" || cps[0].Cell != (Cell{Col: 3, Row: 1}) {
		t.Errorf("Unexpected first checkpoint: %+v", cps[0])
	}
	if cps[1].ID != "checkpoint_1" || cps[1].Cell != (Cell{Col: 1, Row: 3}) {
		t.Errorf("Unexpected second checkpoint: %+v", cps[1])
	}

	id, ok := tr.CheckpointAt(mgl64.Vec2{15, 35})
	if !ok || id != "checkpoint_1" {
		t.Errorf("Expected checkpoint_1 at (15,35), got %q (%v)", id, ok)
	}
	if _, ok := tr.CheckpointAt(tr.Start()); ok {
		t.Error("Start cell should not be a checkpoint")
	}
}

func TestCountType(t *testing.T) {
	tr := newTestTrack(t)

	if n := tr.CountType(Road); n != 5 {
		t.Errorf("Expected 5 road cells, got %d", n)
	}
	if n := tr.CountType(Ground); n != 17 {
		t.Errorf("Expected 17 ground cells, got %d", n)
	}
}

func TestTrackDrivesCar(t *testing.T) {
	tr := newTestTrack(t)
	var _ physics.SurfaceClassifier = tr

	car := physics.NewCar(tr.Start(), tr)
	for i := 0; i < 10; i++ {
		car.Advance(0.1, true, false, 0)
	}
	if car.Position().X() <= tr.Start().X() {
		t.Errorf("Expected car to move forward from %v, got %v", tr.Start(), car.Position())
	}
	if !car.OnRoad() {
		t.Errorf("Expected car at %v to still be on the road", car.Position())
	}
}

func TestCheckpointsAlong(t *testing.T) {
	tr := newTestTrack(t)

	tests := []struct {
		name     string
		from, to mgl64.Vec2
		want     []string
	}{
		{"ends on checkpoint", mgl64.Vec2{15, 15}, mgl64.Vec2{35, 15}, []string{"checkpoint_0"}},
		{"passes over checkpoint", mgl64.Vec2{15, 15}, mgl64.Vec2{45, 15}, []string{"checkpoint_0"}},
		{"reversing over checkpoint", mgl64.Vec2{45, 15}, mgl64.Vec2{5, 15}, []string{"checkpoint_0"}},
		{"standing still", mgl64.Vec2{35, 15}, mgl64.Vec2{35, 15}, []string{"checkpoint_0"}},
		{"diagonal through both", mgl64.Vec2{35, 15}, mgl64.Vec2{15, 35}, []string{"checkpoint_0", "checkpoint_1"}},
		{"road only", mgl64.Vec2{15, 15}, mgl64.Vec2{25, 15}, nil},
		{"outside the grid", mgl64.Vec2{-20, -20}, mgl64.Vec2{-5, -5}, nil},
		{"NaN end", mgl64.Vec2{15, 15}, mgl64.Vec2{math.NaN(), 15}, nil},
		{"runaway segment across the grid", mgl64.Vec2{-1e15, 15}, mgl64.Vec2{1e15, 15}, []string{"checkpoint_0"}},
		{"runaway segment beside the grid", mgl64.Vec2{-1e15, -1e15}, mgl64.Vec2{-1e15, 1e15}, nil},
		{"entering from outside", mgl64.Vec2{-100, 15}, mgl64.Vec2{35, 15}, []string{"checkpoint_0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.CheckpointsAlong(tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}
