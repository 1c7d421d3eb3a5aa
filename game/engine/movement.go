package engine

import (
	"fmt"
	"time"

	"github.com/andialuis/VRaze/game/physics"
	"github.com/andialuis/VRaze/game/track"
)

// Step advances the race by one frame of deltaTime seconds. Inputs are not
// validated here; callers bound deltaTime with RaceConfig.DeltaTimeLimit.
func (e *RaceEngine) Step(controls Controls, deltaTime float64) FrameEntry {
	from := e.car.Position()
	wasOnRoad := e.state.OnRoad

	e.car.Advance(deltaTime, controls.Accelerate, controls.Brake, controls.Steering)

	to := e.car.Position()
	s := e.state
	s.ElapsedTime += deltaTime
	s.Distance += to.Sub(from).Len()
	s.syncVehicle(e.car, e.track)

	if !s.OnRoad {
		s.OffRoadTime += deltaTime
	}
	if speed := abs(s.Vehicle.Speed); speed > s.TopSpeed {
		s.TopSpeed = speed
	}

	switch {
	case wasOnRoad && !s.OnRoad:
		s.Message = e.config.Messages.OffRoad
	case !wasOnRoad && s.OnRoad:
		s.Message = e.config.Messages.OnRoad
	}

	var checkpoints []string
	for _, id := range e.track.CheckpointsAlong(from, to) {
		if s.VisitedCheckpoints[id] {
			continue
		}
		s.VisitedCheckpoints[id] = true
		checkpoints = append(checkpoints, id)
		if e.config.Messages.Checkpoint != "" {
			s.Message = fmt.Sprintf(e.config.Messages.Checkpoint, len(s.VisitedCheckpoints), s.TotalCheckpoints)
		}
	}
	if len(checkpoints) > 0 && !s.Finished && len(s.VisitedCheckpoints) == s.TotalCheckpoints {
		s.Finished = true
		s.FinishTime = s.ElapsedTime
		s.Message = fmt.Sprintf(e.config.Messages.Finished, s.FinishTime)
	}

	entry := FrameEntry{
		FrameNumber: s.TotalFrames + 1,
		Controls:    controls,
		DeltaTime:   deltaTime,
		From:        PointFromVec(from),
		To:          PointFromVec(to),
		Speed:       s.Vehicle.Speed,
		Traction:    s.Vehicle.Traction,
		OnRoad:      s.OnRoad,
		Checkpoints: checkpoints,
		Timestamp:   time.Now().Unix(),
	}
	s.AddFrameToHistory(entry)

	return entry
}

// Run drives frames consecutive frames with the same controls.
func (e *RaceEngine) Run(controls Controls, deltaTime float64, frames int) []FrameEntry {
	entries := make([]FrameEntry, 0, max(frames, 0))
	for i := 0; i < frames; i++ {
		entries = append(entries, e.Step(controls, deltaTime))
	}
	return entries
}

// AddFrameToHistory appends a frame, dropping the oldest entries beyond
// MaxFrameHistory.
func (rs *RaceState) AddFrameToHistory(entry FrameEntry) {
	rs.FrameHistory = append(rs.FrameHistory, entry)
	if over := len(rs.FrameHistory) - MaxFrameHistory; over > 0 {
		rs.FrameHistory = append(rs.FrameHistory[:0:0], rs.FrameHistory[over:]...)
	}
	rs.TotalFrames++
	rs.SegmentFrames++
}

// syncVehicle copies the car's kinematic state into the snapshot.
func (rs *RaceState) syncVehicle(car *physics.Car, t *track.Track) {
	st := car.State()
	rs.Vehicle = VehicleSnapshot{
		Position:  PointFromVec(st.Position),
		Direction: PointFromVec(st.Direction),
		Speed:     st.Speed,
		Traction:  st.Traction,
		Heading:   car.Heading(),
	}
	rs.OnRoad = t.IsInside(st.Position)
	rs.Surface = t.CellTypeAt(st.Position)
}
