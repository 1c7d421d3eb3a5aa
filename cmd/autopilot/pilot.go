package main

import (
	"fmt"
	"math"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/service"
	"github.com/andialuis/VRaze/game/track"
	"github.com/go-gl/mathgl/mgl64"
)

// Tuning of the waypoint follower.
type Tuning struct {
	SteerGain   float64 // wheel radians per radian of bearing
	MaxSteer    float64
	CruiseSpeed float64
	CornerSpeed float64
	CornerAngle float64 // bearing beyond which the car slows to CornerSpeed
	Reach       float64 // fraction of a cell at which a waypoint counts as reached
	DeltaTime   float64
	Frames      int
}

func DefaultTuning() Tuning {
	return Tuning{
		SteerGain:   8,
		MaxSteer:    6,
		CruiseSpeed: 14,
		CornerSpeed: 6,
		CornerAngle: 0.5,
		Reach:       0.75,
		DeltaTime:   0.05,
		Frames:      2,
	}
}

// Pilot follows a route through the centres of road cells that visits every
// checkpoint.
type Pilot struct {
	track  *track.Track
	tuning Tuning
	route  []mgl64.Vec2
	order  []string
	next   int
}

// NewPilot plans a route on the track of config.
func NewPilot(config *engine.RaceConfig, tuning Tuning) (*Pilot, error) {
	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		return nil, err
	}

	p := &Pilot{track: t, tuning: tuning}
	if err := p.plan(); err != nil {
		return nil, err
	}
	return p, nil
}

// plan orders the checkpoints greedily by road distance and joins the
// shortest cell paths between them.
func (p *Pilot) plan() error {
	remaining := map[track.Cell]string{}
	for _, cp := range p.track.Checkpoints() {
		remaining[cp.Cell] = cp.ID
	}

	current := p.track.StartCell()
	for len(remaining) > 0 {
		prev := bfs(p.track, current)

		best, bestLen := track.Cell{}, -1
		for cell := range remaining {
			path := walkBack(prev, current, cell)
			if path == nil {
				continue
			}
			if bestLen < 0 || len(path) < bestLen || (len(path) == bestLen && less(cell, best)) {
				best, bestLen = cell, len(path)
			}
		}
		if bestLen < 0 {
			return fmt.Errorf("%d checkpoints cannot be reached by road", len(remaining))
		}

		for _, cell := range walkBack(prev, current, best) {
			p.route = append(p.route, p.track.Center(cell))
		}
		p.order = append(p.order, remaining[best])
		delete(remaining, best)
		current = best
	}
	return nil
}

func less(a, b track.Cell) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// bfs returns the predecessor of every drivable cell reachable from start.
func bfs(t *track.Track, start track.Cell) map[track.Cell]track.Cell {
	prev := map[track.Cell]track.Cell{start: start}
	queue := []track.Cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range []track.Cell{
			{Col: cur.Col + 1, Row: cur.Row},
			{Col: cur.Col, Row: cur.Row + 1},
			{Col: cur.Col - 1, Row: cur.Row},
			{Col: cur.Col, Row: cur.Row - 1},
		} {
			if _, seen := prev[next]; seen || t.Type(next) == track.Ground {
				continue
			}
			prev[next] = cur
			queue = append(queue, next)
		}
	}
	return prev
}

// walkBack returns the cells after from up to and including to, or nil.
func walkBack(prev map[track.Cell]track.Cell, from, to track.Cell) []track.Cell {
	if _, ok := prev[to]; !ok {
		return nil
	}
	var path []track.Cell
	for c := to; c != from; c = prev[c] {
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Reset restarts the route from the first waypoint.
func (p *Pilot) Reset() {
	p.next = 0
}

// Route returns the planned waypoints.
func (p *Pilot) Route() []mgl64.Vec2 {
	return p.route
}

// Order returns the checkpoint ids in planned visiting order.
func (p *Pilot) Order() []string {
	return p.order
}

// Target returns the waypoint the car is heading for.
func (p *Pilot) Target() mgl64.Vec2 {
	return p.route[p.next]
}

// advance moves the target past waypoints the car has reached, allowing it
// to skip a few when it cuts a corner.
func (p *Pilot) advance(pos mgl64.Vec2) {
	reach := p.tuning.Reach * p.track.CellSize()

	closest, closestDist := p.next, math.Inf(1)
	for i := p.next; i < len(p.route) && i <= p.next+3; i++ {
		if d := p.route[i].Sub(pos).Len(); d < closestDist {
			closest, closestDist = i, d
		}
	}
	if closestDist < reach {
		p.next = closest + 1
	}
	if p.next >= len(p.route) {
		p.next = len(p.route) - 1
	}
}

// Decide picks the controls for the next request from the current state.
func (p *Pilot) Decide(state *engine.RaceState) service.DriveInput {
	pos := state.Vehicle.Position.Vec()
	p.advance(pos)

	toTarget := p.Target().Sub(pos)
	bearing := engine.NormalizeAngle(math.Atan2(toTarget.Y(), toTarget.X()) - state.Vehicle.Heading)

	tn := p.tuning
	steering := mgl64.Clamp(tn.SteerGain*bearing, -tn.MaxSteer, tn.MaxSteer)

	targetSpeed := tn.CruiseSpeed
	if math.Abs(bearing) > tn.CornerAngle {
		targetSpeed = tn.CornerSpeed
	}
	speed := state.Vehicle.Speed

	return service.DriveInput{
		Accelerate: speed < targetSpeed,
		Brake:      speed > targetSpeed+3,
		Steering:   steering,
		DeltaTime:  tn.DeltaTime,
		Frames:     tn.Frames,
	}
}
