package engine

import (
	"math"

	"github.com/andialuis/VRaze/game/track"
)

func abs(v float64) float64 {
	return math.Abs(v)
}

// Distance returns the straight-line distance between two points
func Distance(from, to Point) float64 {
	return to.Vec().Sub(from.Vec()).Len()
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// FindNearestUnvisitedCheckpoint finds the closest unvisited checkpoint to the
// car. The bool is false once every checkpoint has been visited.
func FindNearestUnvisitedCheckpoint(t *track.Track, state *RaceState) (CheckpointHint, bool) {
	var best CheckpointHint
	found := false

	car := state.Vehicle.Position
	for _, cp := range t.Checkpoints() {
		if state.VisitedCheckpoints[cp.ID] {
			continue
		}
		pos := PointFromVec(t.Center(cp.Cell))
		d := Distance(car, pos)
		if !found || d < best.Distance {
			best = CheckpointHint{ID: cp.ID, Position: pos, Distance: d}
			found = true
		}
	}
	if !found {
		return CheckpointHint{}, false
	}

	target := math.Atan2(best.Position.Y-car.Y, best.Position.X-car.X)
	best.Bearing = NormalizeAngle(target - state.Vehicle.Heading)
	return best, true
}

// DescribeSurface reports the track under a world position. state may be nil.
func DescribeSurface(t *track.Track, state *RaceState, p Point) SurfaceInfo {
	v := p.Vec()
	info := SurfaceInfo{
		X:    p.X,
		Y:    p.Y,
		Col:  int(math.Floor(p.X / t.CellSize())),
		Row:  int(math.Floor(p.Y / t.CellSize())),
		Type: t.CellTypeAt(v),
	}
	_, info.InGrid = t.CellAt(v)
	info.Char = string(track.Char(info.Type))
	info.OnRoad = t.IsInside(v)

	if id, ok := t.CheckpointAt(v); ok {
		info.Checkpoint = id
		if state != nil {
			info.Visited = state.VisitedCheckpoints[id]
		}
	}
	return info
}

// DrivingStatus summarises the car's situation in one line
func DrivingStatus(state *RaceState) string {
	speed := abs(state.Vehicle.Speed)
	switch {
	case state.Finished:
		return "FINISHED: All checkpoints visited"
	case !state.OnRoad && speed < 0.5:
		return "STUCK: Off the road and nearly stopped"
	case !state.OnRoad:
		return "OFF ROAD: Ground friction is slowing the car"
	case speed < 0.5:
		return "STOPPED: Accelerate to get moving"
	case state.Vehicle.Speed < 0:
		return "REVERSING: Speed is negative"
	default:
		return "DRIVING: On the road"
	}
}

// RefreshComputedViews fills the helper fields of state that are derived
// from the track rather than stored.
func RefreshComputedViews(t *track.Track, state *RaceState) {
	if hint, ok := FindNearestUnvisitedCheckpoint(t, state); ok {
		state.NearestCheckpoint = &hint
	} else {
		state.NearestCheckpoint = nil
	}
	state.DrivingStatus = DrivingStatus(state)
}
