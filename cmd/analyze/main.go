// Command analyze prints quick, human-readable heuristics about the track
// files in the project's configs directory: dimensions, road share, the
// surroundings of the start cell, road distances to each checkpoint and how
// far the car gets when driven flat out along its initial heading.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/physics"
	"github.com/andialuis/VRaze/game/track"
)

// straightRunStep is the timestep of the flat-out straight-line run.
const straightRunStep = 0.1

// CheckpointDistance is the shortest road path from the start to a checkpoint.
type CheckpointDistance struct {
	ID        string
	Cell      track.Cell
	Cells     int // -1 when unreachable
	Manhattan int
}

// StraightRun is the outcome of holding full throttle from the start.
type StraightRun struct {
	Frames   int
	Time     float64
	Distance float64
	TopSpeed float64
	LeftRoad bool
}

// TrackAnalysis summarizes one track config.
type TrackAnalysis struct {
	Name          string
	Width, Height int
	CellSize      float64
	RoadCells     int
	TotalCells    int
	Start         track.Cell
	OpenSides     []string
	AheadCells    int
	Checkpoints   []CheckpointDistance
	Run           StraightRun
}

// RoadRatio is the share of drivable cells.
func (a *TrackAnalysis) RoadRatio() float64 {
	if a.TotalCells == 0 {
		return 0
	}
	return float64(a.RoadCells) / float64(a.TotalCells)
}

// Unreachable lists checkpoints with no road path from the start.
func (a *TrackAnalysis) Unreachable() []CheckpointDistance {
	var out []CheckpointDistance
	for _, cp := range a.Checkpoints {
		if cp.Cells < 0 {
			out = append(out, cp)
		}
	}
	return out
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		var err error
		files, err = filepath.Glob(filepath.Join("configs", "*.json"))
		if err != nil || len(files) == 0 {
			fmt.Println("No track configs found in configs/")
			os.Exit(1)
		}
		sort.Strings(files)
	}

	for _, configFile := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(configFile))
		analysis, err := analyzeConfig(configFile)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analysis)
	}
}

func analyzeConfig(path string) (*TrackAnalysis, error) {
	config, err := engine.LoadRaceConfig(path)
	if err != nil {
		return nil, err
	}
	return analyzeTrack(config)
}

func analyzeTrack(config *engine.RaceConfig) (*TrackAnalysis, error) {
	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		return nil, err
	}

	a := &TrackAnalysis{
		Name:       config.Name,
		Width:      t.Width(),
		Height:     t.Height(),
		CellSize:   t.CellSize(),
		TotalCells: t.Width() * t.Height(),
		Start:      t.StartCell(),
	}
	a.RoadCells = a.TotalCells - t.CountType(track.Ground)

	sides := []struct {
		name string
		dc   int
		dr   int
	}{
		{"east", 1, 0},
		{"south", 0, 1},
		{"west", -1, 0},
		{"north", 0, -1},
	}
	for _, s := range sides {
		if t.Type(track.Cell{Col: a.Start.Col + s.dc, Row: a.Start.Row + s.dr}) != track.Ground {
			a.OpenSides = append(a.OpenSides, s.name)
		}
	}

	// The car starts heading +X.
	for c := a.Start.Col + 1; t.Type(track.Cell{Col: c, Row: a.Start.Row}) != track.Ground; c++ {
		a.AheadCells++
	}

	dist := roadDistances(t)
	for _, cp := range t.Checkpoints() {
		cells, ok := dist[cp.Cell]
		if !ok {
			cells = -1
		}
		a.Checkpoints = append(a.Checkpoints, CheckpointDistance{
			ID:        cp.ID,
			Cell:      cp.Cell,
			Cells:     cells,
			Manhattan: abs(cp.Cell.Col-a.Start.Col) + abs(cp.Cell.Row-a.Start.Row),
		})
	}

	a.Run = straightRun(t, config.PhysicsParams())
	return a, nil
}

// roadDistances runs a breadth-first search over drivable cells from the start.
func roadDistances(t *track.Track) map[track.Cell]int {
	dist := map[track.Cell]int{t.StartCell(): 0}
	queue := []track.Cell{t.StartCell()}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range []track.Cell{
			{Col: cur.Col + 1, Row: cur.Row},
			{Col: cur.Col - 1, Row: cur.Row},
			{Col: cur.Col, Row: cur.Row + 1},
			{Col: cur.Col, Row: cur.Row - 1},
		} {
			if _, seen := dist[next]; seen || t.Type(next) == track.Ground {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// straightRun holds the throttle until the car leaves the road or the frame
// budget of one drive request is spent.
func straightRun(t *track.Track, params physics.Params) StraightRun {
	car := physics.NewCarWithParams(t.Start(), t, params)
	start := car.Position()

	var run StraightRun
	for run.Frames < engine.MaxFramesPerDrive {
		car.Advance(straightRunStep, true, false, 0)
		run.Frames++
		if car.Speed() > run.TopSpeed {
			run.TopSpeed = car.Speed()
		}
		if !car.OnRoad() {
			run.LeftRoad = true
			break
		}
	}
	run.Time = float64(run.Frames) * straightRunStep
	run.Distance = car.Position().Sub(start).Len()
	return run
}

func printAnalysis(w io.Writer, a *TrackAnalysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid: %d x %d cells of %g units (%g x %g world)\n",
		a.Width, a.Height, a.CellSize, float64(a.Width)*a.CellSize, float64(a.Height)*a.CellSize)
	fmt.Fprintf(w, "Road: %d/%d cells (%.1f%%)\n", a.RoadCells, a.TotalCells, 100*a.RoadRatio())
	fmt.Fprintf(w, "Start: (%d, %d), open sides: %v\n", a.Start.Col, a.Start.Row, a.OpenSides)

	if a.AheadCells == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: no road ahead of the start, the car must turn before gaining speed\n")
	} else {
		fmt.Fprintf(w, "Straight road ahead of start: %d cells\n", a.AheadCells)
	}

	fmt.Fprintf(w, "Checkpoints: %d\n", len(a.Checkpoints))
	for _, cp := range a.Checkpoints {
		if cp.Cells < 0 {
			fmt.Fprintf(w, "   %s at (%d, %d): unreachable by road\n", cp.ID, cp.Cell.Col, cp.Cell.Row)
			continue
		}
		fmt.Fprintf(w, "   %s at (%d, %d): %d cells by road, %d direct\n", cp.ID, cp.Cell.Col, cp.Cell.Row, cp.Cells, cp.Manhattan)
	}

	if unreachable := a.Unreachable(); len(unreachable) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: %d checkpoints are unreachable from the start!\n", len(unreachable))
	} else {
		fmt.Fprintf(w, "✅ All checkpoints are reachable by road\n")
	}

	run := a.Run
	if run.LeftRoad {
		fmt.Fprintf(w, "Flat out: leaves the road after %.1fs, %.1f units, top speed %.1f\n", run.Time, run.Distance, run.TopSpeed)
	} else {
		fmt.Fprintf(w, "Flat out: still on road after %.1fs, %.1f units, top speed %.1f\n", run.Time, run.Distance, run.TopSpeed)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
