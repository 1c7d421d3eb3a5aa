package main

import (
	"fmt"
	"math"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/track"
	"github.com/gdamore/tcell/v2"
)

// Terminals report key presses but not releases, so a press keeps its
// control engaged for holdTime seconds of race time. Key repeat extends it.
const (
	holdTime     = 0.3
	steerStep    = 0.5
	maxSteer     = 8.0
	cellColumns  = 2
	defaultSteer = 3.0
)

var (
	groundStyle     = tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	roadStyle       = tcell.StyleDefault.Background(tcell.ColorDimGray)
	startStyle      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDimGray)
	checkpointStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
	visitedStyle    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	carStyle        = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	hudStyle        = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	messageStyle    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Driver runs one race in a terminal.
type Driver struct {
	screen tcell.Screen
	race   *engine.RaceEngine
	track  *track.Track

	clock         float64
	throttleUntil float64
	brakeUntil    float64
	steerUntil    float64
	steerSign     float64
	steerAngle    float64
	paused        bool
}

// NewDriver builds a race on config drawn to screen. The screen must already
// be initialised.
func NewDriver(screen tcell.Screen, config *engine.RaceConfig) (*Driver, error) {
	race, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}
	return &Driver{
		screen:     screen,
		race:       race,
		track:      race.GetTrack(),
		steerAngle: defaultSteer,
	}, nil
}

// Controls returns the controls engaged at the current race time.
func (d *Driver) Controls() engine.Controls {
	c := engine.Controls{
		Accelerate: d.clock < d.throttleUntil,
		Brake:      d.clock < d.brakeUntil,
	}
	if d.clock < d.steerUntil {
		c.Steering = d.steerSign * d.steerAngle
	}
	return c
}

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (d *Driver) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			d.throttleUntil = d.clock + holdTime
		case tcell.KeyDown:
			d.brakeUntil = d.clock + holdTime
		case tcell.KeyLeft:
			d.steer(-1)
		case tcell.KeyRight:
			d.steer(1)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'w':
				d.throttleUntil = d.clock + holdTime
			case 's':
				d.brakeUntil = d.clock + holdTime
			case 'a':
				d.steer(-1)
			case 'd':
				d.steer(1)
			case 'p':
				d.paused = !d.paused
			case 'r', ' ':
				d.reset()
			case '+', '=':
				d.steerAngle = math.Min(d.steerAngle+steerStep, maxSteer)
			case '-':
				d.steerAngle = math.Max(d.steerAngle-steerStep, steerStep)
			}
		}

	case *tcell.EventResize:
		d.screen.Sync()
	}

	return true
}

// Rows grow downward on screen, so a right turn is positive steering.
func (d *Driver) steer(sign float64) {
	d.steerSign = sign
	d.steerUntil = d.clock + holdTime
}

func (d *Driver) reset() {
	d.race.Reset()
	d.throttleUntil, d.brakeUntil, d.steerUntil = 0, 0, 0
	d.clock = 0
}

// Tick advances the race by dt unless paused or finished.
func (d *Driver) Tick(dt float64) {
	if d.paused || d.race.IsFinished() {
		return
	}
	d.race.Step(d.Controls(), dt)
	d.clock += dt
}

// Draw renders the track, the car and the status lines.
func (d *Driver) Draw() {
	d.screen.Clear()
	state := d.race.GetState()

	for row := 0; row < d.track.Height(); row++ {
		for col := 0; col < d.track.Width(); col++ {
			cell := track.Cell{Col: col, Row: row}
			ch, style := d.cellLook(cell, state)
			for i := 0; i < cellColumns; i++ {
				d.screen.SetContent(col*cellColumns+i, row, ch, nil, style)
			}
		}
	}

	if x, y, ok := d.carScreenPosition(); ok {
		_, _, under, _ := d.screen.GetContent(x, y)
		_, bg, _ := under.Decompose()
		d.screen.SetContent(x, y, carGlyph(state.Vehicle.Heading), nil, carStyle.Background(bg))
	}

	top := d.track.Height() + 1
	lines := d.hud(state)
	for i, line := range lines {
		style := hudStyle
		if i == len(lines)-1 {
			style = messageStyle
		}
		d.drawText(0, top+i, style, line)
	}

	d.screen.Show()
}

func (d *Driver) cellLook(cell track.Cell, state *engine.RaceState) (rune, tcell.Style) {
	switch d.track.Type(cell) {
	case track.Road:
		return ' ', roadStyle
	case track.Start:
		return 'S', startStyle
	case track.Checkpoint:
		for _, cp := range d.track.Checkpoints() {
			if cp.Cell == cell && state.VisitedCheckpoints[cp.ID] {
				return '*', visitedStyle
			}
		}
		return 'C', checkpointStyle
	default:
		return '.', groundStyle
	}
}

// carScreenPosition maps the car to a terminal cell with half-cell
// horizontal resolution.
func (d *Driver) carScreenPosition() (x, y int, ok bool) {
	pos := d.race.GetCar().Position()
	if _, inGrid := d.track.CellAt(pos); !inGrid {
		return 0, 0, false
	}
	size := d.track.CellSize()
	x = int(math.Floor(pos.X() / size * cellColumns))
	y = int(math.Floor(pos.Y() / size))
	return x, y, true
}

func (d *Driver) hud(state *engine.RaceState) []string {
	c := d.Controls()
	status := "racing"
	switch {
	case state.Finished:
		status = fmt.Sprintf("FINISHED in %.2fs", state.FinishTime)
	case d.paused:
		status = "paused"
	case !state.OnRoad:
		status = "off road"
	}

	pedals := ""
	if c.Accelerate {
		pedals += " THROTTLE"
	}
	if c.Brake {
		pedals += " BRAKE"
	}
	if c.Steering != 0 {
		pedals += fmt.Sprintf(" STEER %+.1f", c.Steering)
	}

	lines := []string{
		fmt.Sprintf("%s | t=%.1fs speed %.1f | checkpoints %d/%d | %s",
			state.ConfigName, state.ElapsedTime, state.Vehicle.Speed,
			len(state.VisitedCheckpoints), state.TotalCheckpoints, status),
		fmt.Sprintf("controls:%s", pedals),
		fmt.Sprintf("steer angle %.1f rad  (+/- to change)", d.steerAngle),
		"arrows/wasd drive, p pause, r reset, q quit",
	}
	if !d.inGrid() {
		lines[len(lines)-1] += " | car is outside the grid"
	}
	return append(lines, state.Message)
}

func (d *Driver) inGrid() bool {
	_, ok := d.track.CellAt(d.race.GetCar().Position())
	return ok
}

func (d *Driver) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// carGlyph picks one of eight arrows for a heading in world radians. Screen
// rows grow with +Y, so +Y points down.
func carGlyph(heading float64) rune {
	arrows := []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}
	octant := int(math.Round(engine.NormalizeAngle(heading)/(math.Pi/4))) % 8
	if octant < 0 {
		octant += 8
	}
	return arrows[octant]
}
