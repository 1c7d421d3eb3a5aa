// Command drive races a car on a track in the terminal.
//
//	drive -track classic
//	drive -file configs/rally.json -dt 0.03
//
// Arrows or WASD drive, p pauses, r resets, q quits.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/andialuis/VRaze/game/config"
	"github.com/andialuis/VRaze/game/engine"
	"github.com/gdamore/tcell/v2"
)

var (
	configDir = flag.String("config-dir", "configs", "Directory containing track configurations")
	trackID   = flag.String("track", "", "Track id (default track when empty)")
	trackFile = flag.String("file", "", "Path to a track JSON file, overrides -track")
	frameTime = flag.Float64("dt", 0.05, "Seconds of race time per frame")
)

func loadTrack() (*engine.RaceConfig, error) {
	if *trackFile != "" {
		return engine.LoadRaceConfig(*trackFile)
	}
	manager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, err
	}
	if *trackID != "" {
		return manager.LoadConfig(*trackID)
	}
	return manager.GetDefault(), nil
}

// run drives the event loop until the user quits. Each tick advances the
// race by dt and redraws.
func run(screen tcell.Screen, d *Driver, dt float64) {
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	d.Draw()
	for {
		select {
		case ev := <-eventChan:
			if !d.HandleEvent(ev) {
				return
			}
		case <-ticker.C:
			d.Tick(dt)
			d.Draw()
		}
	}
}

func main() {
	flag.Parse()

	raceConfig, err := loadTrack()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load track: %v\n", err)
		os.Exit(1)
	}
	if limit := raceConfig.DeltaTimeLimit(); !(*frameTime > 0) || *frameTime > limit {
		fmt.Fprintf(os.Stderr, "-dt must be in (0, %g]\n", limit)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	d, err := NewDriver(screen, raceConfig)
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Failed to start race: %v\n", err)
		os.Exit(1)
	}

	run(screen, d, *frameTime)
	screen.Fini()

	state := d.race.GetState()
	if state.Finished {
		fmt.Printf("%s: finished in %.2fs\n", state.ConfigName, state.FinishTime)
	} else {
		fmt.Printf("%s: %d/%d checkpoints after %.2fs\n", state.ConfigName, len(state.VisitedCheckpoints), state.TotalCheckpoints, state.ElapsedTime)
	}
}
