package mcp

import (
	"fmt"
	"math"
	"strings"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/service"
	"github.com/andialuis/VRaze/game/track"
)

const raceInstructions = `VRaze - Driving Instructions

OBJECTIVE:
Cross every checkpoint (C) on the track. Order does not matter. The race
finishes on the frame the last checkpoint is crossed and the elapsed race
time is your result.

TRACK:
The track is a grid of square cells, cell_size world units wide. World X
grows with the column, world Y grows with the row, so row 0 is printed at
the top and +Y points down the map.
• R - Road
• S - Start (road)
• C - Checkpoint (road)
• . - Ground (off-road, heavy friction)
Everything outside the grid is ground.

CAR MODEL:
• Each frame the car first moves along its heading at its current speed,
  then turns, then updates speed.
• Throttle builds traction (engine force) gradually; releasing the throttle
  lets it decay back to the minimum. Short throttle taps are weak.
• Drag grows with the square of speed, so top speed is limited.
• Ground friction is several times road friction. Leaving the road costs a
  lot of speed.
• Brake applies a constant backward force. Holding it at rest reverses.
• Steering is a wheel angle in radians. Turn rate grows with speed but is
  damped at high speed, so tight corners need a lower entry speed.
• Positive steering rotates the heading toward +Y, which is a right turn on
  the printed map; negative steering turns left.
• The wheel angle is scaled by the steering ratio (0.15) before it reaches
  the wheels, so useful values are roughly 1 to 6 radians.

CONTROLS:
• drive: {accelerate, brake, steering, delta_time, frames}
  The controls are held for 'frames' frames of 'delta_time' seconds.
  delta_time defaults to 1/60 and is capped by the track.
• bulk_drive: a list of such inputs executed in order. Stops early once
  the race is finished.

STRATEGY:
1. Read the map with race_state and plan the order of checkpoints.
2. Use describe_point to check whether a coordinate is road before turning.
3. Accelerate on straights, lift and steer before corners.
4. Use telemetry to see where you left the road and adjust.
5. reset_race (or reset on drive) puts you back on the start.

HINTS IN race_state:
• nearest: closest unvisited checkpoint with distance and bearing. Bearing
  is relative to the heading; positive means steer positive.
• status: DRIVING, STOPPED, REVERSING, OFF ROAD, STUCK or FINISHED.

Good luck and drive fast!`

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatRaceState(session.RaceState),
		formatRaceMap(session.RaceState, session.RaceConfig))
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func formatRaceState(state *engine.RaceState) string {
	if state == nil {
		return "No race state available"
	}

	var b strings.Builder
	v := state.Vehicle
	fmt.Fprintf(&b, "Position: (%.2f,%.2f) | Heading: %.1f° | Speed: %.2f | Traction: %.0f\n",
		v.Position.X, v.Position.Y, degrees(v.Heading), v.Speed, v.Traction)
	fmt.Fprintf(&b, "Surface: %s | Checkpoints: %d/%d | Time: %.2fs | Frames: %d\n",
		state.Surface, len(state.VisitedCheckpoints), state.TotalCheckpoints, state.ElapsedTime, state.TotalFrames)

	if state.DrivingStatus != "" {
		fmt.Fprintf(&b, "Status: %s\n", state.DrivingStatus)
	}
	if n := state.NearestCheckpoint; n != nil {
		fmt.Fprintf(&b, "Nearest: %s at (%.1f,%.1f), %.1f away, bearing %+.1f°\n",
			n.ID, n.Position.X, n.Position.Y, n.Distance, degrees(n.Bearing))
	}

	if state.Finished {
		fmt.Fprintf(&b, "\n🏁 FINISHED in %.2fs", state.FinishTime)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

// carGlyph picks an arrow for the heading as seen on the printed map.
func carGlyph(direction engine.Point) byte {
	if math.Abs(direction.X) >= math.Abs(direction.Y) {
		if direction.X >= 0 {
			return '>'
		}
		return '<'
	}
	if direction.Y > 0 {
		return 'v'
	}
	return '^'
}

// formatRaceMap prints the layout with the car and visited checkpoints
// marked. It returns an empty string when the layout cannot be parsed.
func formatRaceMap(state *engine.RaceState, config *engine.RaceConfig) string {
	if state == nil || config == nil {
		return ""
	}
	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		return ""
	}

	rows := make([][]byte, t.Height())
	for r := range rows {
		rows[r] = make([]byte, t.Width())
		for c := range rows[r] {
			rows[r][c] = track.Char(t.Type(track.Cell{Col: c, Row: r}))
		}
	}
	for _, cp := range t.Checkpoints() {
		if state.VisitedCheckpoints[cp.ID] {
			rows[cp.Cell.Row][cp.Cell.Col] = '*'
		}
	}

	carOnMap := false
	if cell, ok := t.CellAt(state.Vehicle.Position.Vec()); ok {
		rows[cell.Row][cell.Col] = carGlyph(state.Vehicle.Direction)
		carOnMap = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Map (%dx%d, cell %g, * = visited checkpoint):\n", t.Width(), t.Height(), t.CellSize())
	for _, row := range rows {
		b.Write(row)
		b.WriteByte('\n')
	}
	if !carOnMap {
		b.WriteString("Car is outside the grid\n")
	}
	return b.String()
}

func formatEvents(b *strings.Builder, events []service.RaceEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		if event.Frame > 0 {
			fmt.Fprintf(b, "- %s (frame %d): %s\n", event.Type, event.Frame, event.Message)
		} else {
			fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
		}
	}
}

func formatStepLine(s service.StepInfo) string {
	controls := []string{}
	if s.Input.Accelerate {
		controls = append(controls, "throttle")
	}
	if s.Input.Brake {
		controls = append(controls, "brake")
	}
	if s.Input.Steering != 0 {
		controls = append(controls, fmt.Sprintf("steer %+.2f", s.Input.Steering))
	}
	if len(controls) == 0 {
		controls = append(controls, "coast")
	}

	line := fmt.Sprintf("%d. %s ×%d: (%.1f,%.1f)→(%.1f,%.1f) speed %.2f→%.2f %s",
		s.Idx, strings.Join(controls, "+"), s.Frames,
		s.From.X, s.From.Y, s.To.X, s.To.Y, s.SpeedBefore, s.SpeedAfter, s.Surface)
	if len(s.Checkpoints) > 0 {
		line += " cp=" + strings.Join(s.Checkpoints, ",")
	}
	if s.Finished {
		line += " 🏁"
	}
	return line + "\n"
}

func formatDriveResult(result *service.DriveResult) string {
	var b strings.Builder
	if result.Step != nil {
		b.WriteString(formatStepLine(*result.Step))
	}
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(formatRaceState(result.RaceState))
	return b.String()
}

func formatBulkDriveResult(sessionID string, result *service.BulkDriveResult) string {
	var b strings.Builder

	configName := ""
	if result.RaceState != nil {
		configName = result.RaceState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s\n", sessionID, configName)
	fmt.Fprintf(&b, "Executed %d/%d inputs (%d frames)\n", result.InputsExecuted, result.RequestedInputs, result.FramesExecuted)
	if result.Truncated {
		fmt.Fprintf(&b, "Truncated to the first %d inputs\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped before input %d: %s\n", result.StoppedOnInput, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Moved (%.1f,%.1f)→(%.1f,%.1f), distance %.1f, speed %.2f→%.2f, checkpoints +%d\n",
		result.StartPosition.X, result.StartPosition.Y, result.EndPosition.X, result.EndPosition.Y,
		result.DistanceDelta, result.StartSpeed, result.EndSpeed, result.CheckpointsDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\n")
		formatEvents(&b, result.Events)
	}

	b.WriteString("\n")
	b.WriteString(formatRaceState(result.RaceState))
	return b.String()
}

func formatTelemetry(t *service.TelemetryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Telemetry page %d/%d (%d frames driven, %d retained)\n\n",
		t.Page, t.TotalPages, t.TotalFrames, t.RetainedFrames)

	for _, f := range t.Frames {
		surface := "road"
		if !f.OnRoad {
			surface = "ground"
		}
		fmt.Fprintf(&b, "#%d dt=%.3f acc=%t brk=%t steer=%+.2f (%.2f,%.2f) v=%.2f trac=%.0f %s",
			f.FrameNumber, f.DeltaTime, f.Controls.Accelerate, f.Controls.Brake, f.Controls.Steering,
			f.To.X, f.To.Y, f.Speed, f.Traction, surface)
		if len(f.Checkpoints) > 0 {
			fmt.Fprintf(&b, " cp=%s", strings.Join(f.Checkpoints, ","))
		}
		b.WriteString("\n")
	}

	if t.HasNext {
		fmt.Fprintf(&b, "\nMore frames on page %d", t.Page+1)
	}
	return b.String()
}

func formatSurface(info *engine.SurfaceInfo) string {
	if !info.InGrid {
		return fmt.Sprintf("Point (%.2f,%.2f) is outside the grid: ground (off-road)", info.X, info.Y)
	}

	drivable := "off-road"
	if info.OnRoad {
		drivable = "drivable road"
	}
	result := fmt.Sprintf("Point (%.2f,%.2f) → cell col %d, row %d: '%s' %s (%s)",
		info.X, info.Y, info.Col, info.Row, info.Char, info.Type, drivable)
	if info.Checkpoint != "" {
		status := "not yet visited"
		if info.Visited {
			status = "visited"
		}
		result += fmt.Sprintf("\nCheckpoint %s, %s", info.Checkpoint, status)
	}
	return result
}
