// Package engine provides the race logic for VRaze.
//
// The engine package implements the game mechanics including:
//   - Frame-by-frame driving through the physics core
//   - Surface tracking (road vs ground) and off-road timing
//   - Checkpoint collection and race completion
//   - Race state management and persistence hooks
//   - Track configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for race operations,
// implemented by RaceEngine. RaceState is the JSON-serialisable view of a race,
// while RaceConfig defines the track layout, tuning and messages loaded from
// JSON files.
//
// Usage:
//
//	config, err := engine.LoadConfigByName("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	raceEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Hold the throttle for one second at 60 fps
//	raceEngine.Run(engine.Controls{Accelerate: true}, 1.0/60, 60)
//	state := raceEngine.GetState()
//
// Race Rules:
//
// The car starts at rest on the start cell heading along +X. Driving over a
// checkpoint cell marks it visited; the race is finished once every checkpoint
// has been visited. Leaving the road is allowed but the ground is much
// grippier, so the car slows down sharply.
package engine
