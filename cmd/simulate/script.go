package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/andialuis/VRaze/game/engine"
)

var ErrInvalidScript = errors.New("invalid drive script")

// Step holds one set of controls for a number of frames.
type Step struct {
	Controls engine.Controls
	Frames   int
}

// parseScript reads a comma separated list of segments such as
// "throttle:40,throttle+right:12,brake:5,steer=-0.2:10". Controls within a
// segment are joined with '+'; the frame count defaults to 1. "left" and
// "right" use steerAngle and refer to the printed map, where rows grow
// downward. Positive steering is counter-clockwise in world coordinates,
// which is a right turn on that map.
func parseScript(script string, steerAngle float64) ([]Step, error) {
	var steps []Step
	for i, segment := range strings.Split(script, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		step := Step{Frames: 1}
		controls := segment
		if idx := strings.LastIndex(segment, ":"); idx >= 0 {
			controls = segment[:idx]
			frames, err := strconv.Atoi(segment[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("%w: segment %d: bad frame count %q", ErrInvalidScript, i+1, segment[idx+1:])
			}
			if frames < 1 || frames > engine.MaxFramesPerDrive {
				return nil, fmt.Errorf("%w: segment %d: frames must be between 1 and %d", ErrInvalidScript, i+1, engine.MaxFramesPerDrive)
			}
			step.Frames = frames
		}

		for _, token := range strings.Split(controls, "+") {
			token = strings.ToLower(strings.TrimSpace(token))
			switch {
			case token == "throttle" || token == "gas" || token == "accelerate":
				step.Controls.Accelerate = true
			case token == "brake":
				step.Controls.Brake = true
			case token == "coast" || token == "":
			case token == "left":
				step.Controls.Steering = -steerAngle
			case token == "right":
				step.Controls.Steering = steerAngle
			case strings.HasPrefix(token, "steer="):
				angle, err := strconv.ParseFloat(strings.TrimPrefix(token, "steer="), 64)
				if err != nil || math.IsNaN(angle) || math.IsInf(angle, 0) {
					return nil, fmt.Errorf("%w: segment %d: bad steering %q", ErrInvalidScript, i+1, token)
				}
				step.Controls.Steering = angle
			default:
				return nil, fmt.Errorf("%w: segment %d: unknown control %q", ErrInvalidScript, i+1, token)
			}
		}
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: script is empty", ErrInvalidScript)
	}
	return steps, nil
}

// Options controls a headless run.
type Options struct {
	DeltaTime    float64
	MaxTime      float64 // simulated seconds; only used without a script
	StopOnFinish bool
}

// Result is the trajectory of a headless run.
type Result struct {
	Track  string              `json:"track"`
	Frames []engine.FrameEntry `json:"frames"`
	Final  *engine.RaceState   `json:"final_state"`
}

// simulate drives the steps on a fresh engine. Without steps the car holds
// the throttle until MaxTime or the finish.
func simulate(config *engine.RaceConfig, steps []Step, opts Options) (*Result, error) {
	limit := config.DeltaTimeLimit()
	if !(opts.DeltaTime > 0) || opts.DeltaTime > limit {
		return nil, fmt.Errorf("delta time must be in (0, %g], got %g", limit, opts.DeltaTime)
	}

	e, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		if !(opts.MaxTime > 0) {
			return nil, fmt.Errorf("duration must be positive without a script")
		}
		frames := int(math.Ceil(opts.MaxTime/opts.DeltaTime - 1e-9))
		steps = []Step{{Controls: engine.Controls{Accelerate: true}, Frames: frames}}
	}

	result := &Result{Track: config.Name}
	for _, step := range steps {
		for i := 0; i < step.Frames; i++ {
			if opts.StopOnFinish && e.IsFinished() {
				result.Final = e.GetState()
				return result, nil
			}
			result.Frames = append(result.Frames, e.Step(step.Controls, opts.DeltaTime))
		}
	}

	result.Final = e.GetState()
	return result, nil
}

var csvHeader = []string{"frame", "time", "x", "y", "speed", "traction", "on_road", "checkpoint", "accelerate", "brake", "steering"}

func writeCSV(w io.Writer, frames []engine.FrameEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	elapsed := 0.0
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, frame := range frames {
		elapsed += frame.DeltaTime
		record := []string{
			strconv.Itoa(frame.FrameNumber),
			f(elapsed),
			f(frame.To.X),
			f(frame.To.Y),
			f(frame.Speed),
			f(frame.Traction),
			strconv.FormatBool(frame.OnRoad),
			strings.Join(frame.Checkpoints, ";"),
			strconv.FormatBool(frame.Controls.Accelerate),
			strconv.FormatBool(frame.Controls.Brake),
			f(frame.Controls.Steering),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, result *Result) error {
	// The final state already repeats the capped frame history.
	final := *result.Final
	final.FrameHistory = nil

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(&Result{Track: result.Track, Frames: result.Frames, Final: &final})
}

func writeSummary(w io.Writer, result *Result) error {
	s := result.Final
	_, err := fmt.Fprintf(w, "Track: %s\nFrames: %d\nElapsed: %.2fs\nDistance: %.1f\nTop speed: %.1f\nOff-road time: %.2fs\nCheckpoints: %d/%d\nPosition: (%.1f, %.1f) heading %.0f°\n",
		result.Track, len(result.Frames), s.ElapsedTime, s.Distance, s.TopSpeed, s.OffRoadTime,
		len(s.VisitedCheckpoints), s.TotalCheckpoints,
		s.Vehicle.Position.X, s.Vehicle.Position.Y, s.Vehicle.Heading*180/math.Pi)
	if err != nil {
		return err
	}
	if s.Finished {
		_, err = fmt.Fprintf(w, "Finished in %.2fs\n", s.FinishTime)
	} else {
		_, err = fmt.Fprintf(w, "Not finished: %s\n", s.Message)
	}
	return err
}
