// Command autopilot drives a race session on a running server through the
// REST API. It plans a route over road cells through every checkpoint and
// steers toward the next waypoint, retrying from the start on failure.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/service"
)

// Attempt is the outcome of one run from the start.
type Attempt struct {
	Requests int
	Frames   int
	State    *engine.RaceState
}

// runAttempt resets the session and drives until the race finishes or the
// request budget is spent.
func runAttempt(client *Client, pilot *Pilot, maxRequests int, delay time.Duration, verbose bool) (*Attempt, error) {
	state, err := client.Reset()
	if err != nil {
		return nil, err
	}
	pilot.Reset()

	attempt := &Attempt{State: state}
	for !state.Finished && attempt.Requests < maxRequests {
		input := pilot.Decide(state)
		result, err := client.Drive(input)
		if err != nil {
			return attempt, err
		}
		state = result.RaceState
		attempt.State = state
		attempt.Requests++
		attempt.Frames += input.Frames

		if verbose && attempt.Requests%50 == 0 {
			log.Printf("t=%.1fs pos=(%.1f,%.1f) speed=%.1f checkpoints=%d/%d %s",
				state.ElapsedTime, state.Vehicle.Position.X, state.Vehicle.Position.Y,
				state.Vehicle.Speed, len(state.VisitedCheckpoints), state.TotalCheckpoints, state.DrivingStatus)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return attempt, nil
}

// tuningForAttempt slows the car down a little on every retry.
func tuningForAttempt(base Tuning, attempt int) Tuning {
	t := base
	scale := 1.0
	for i := 1; i < attempt; i++ {
		scale *= 0.85
	}
	t.CruiseSpeed *= scale
	t.CornerSpeed *= scale
	return t
}

func openSession(client *Client, continueID, sessionFile, configID string) (*service.SessionInfo, error) {
	savedSessionID := continueID
	if savedSessionID == "" && sessionFile != "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	if savedSessionID != "" {
		client.sessionID = savedSessionID
		log.Printf("Resuming session: %s", client.sessionID)
		session, err := client.GetSession()
		if err == nil && (configID == "" || session.ConfigName == configID) {
			return session, nil
		}
		if err != nil {
			log.Printf("Failed to resume session (may be expired): %v", err)
		}
		log.Printf("Creating new session...")
	}

	session, err := client.CreateSession(configID)
	if err != nil {
		return nil, err
	}
	log.Printf("Session created: %s on %s", session.ID, session.ConfigName)

	if sessionFile != "" {
		if err := os.WriteFile(sessionFile, []byte(session.ID), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}
	return session, nil
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Race server URL")
	configID := flag.String("track", "", "Track id (server default when empty)")
	continueSession := flag.String("continue", "", "Resume an existing session by ID")
	sessionFile := flag.String("session-file", ".session", "File remembering the last session ID (empty to disable)")
	maxRequests := flag.Int("max-requests", 3000, "Maximum drive requests per attempt")
	maxAttempts := flag.Int("max-attempts", 5, "Maximum attempts before giving up")
	frames := flag.Int("frames", 2, "Frames per drive request")
	dt := flag.Float64("dt", 0.05, "Seconds per frame")
	verbose := flag.Bool("v", false, "Verbose output")
	delayMs := flag.Int("delay", 0, "Delay between requests in milliseconds (0 = no delay)")
	flag.Parse()

	log.Printf("Connecting to race server at %s", *serverURL)
	client := NewClient(*serverURL)

	session, err := openSession(client, *continueSession, *sessionFile, *configID)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}

	base := DefaultTuning()
	base.Frames = *frames
	base.DeltaTime = *dt

	for attemptNum := 1; attemptNum <= *maxAttempts; attemptNum++ {
		pilot, err := NewPilot(session.RaceConfig, tuningForAttempt(base, attemptNum))
		if err != nil {
			log.Fatalf("Failed to plan route: %v", err)
		}
		if attemptNum == 1 {
			log.Printf("Route: %d waypoints, checkpoint order %v", len(pilot.Route()), pilot.Order())
		}

		log.Printf("=== Attempt %d/%d ===", attemptNum, *maxAttempts)
		attempt, err := runAttempt(client, pilot, *maxRequests, time.Duration(*delayMs)*time.Millisecond, *verbose)
		if err != nil {
			log.Printf("Attempt %d failed: %v", attemptNum, err)
			continue
		}

		st := attempt.State
		log.Printf("Attempt %d: requests=%d frames=%d checkpoints=%d/%d off-road=%.1fs",
			attemptNum, attempt.Requests, attempt.Frames, len(st.VisitedCheckpoints), st.TotalCheckpoints, st.OffRoadTime)

		if st.Finished {
			fmt.Printf("Finished %s in %.2fs (session %s)\n", session.ConfigName, st.FinishTime, client.sessionID)
			os.Exit(0)
		}
	}

	log.Printf("Failed to finish after %d attempts", *maxAttempts)
	log.Printf("Session: %s", client.sessionID)
	os.Exit(1)
}
