package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/andialuis/VRaze/game/engine"
)

const (
	defaultTelemetryLimit = 50
	maxTelemetryLimit     = 500
)

// raceServiceImpl implements the RaceService interface
type raceServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewRaceService creates a new race service instance
func NewRaceService(sessions SessionManager, configs ConfigManager) RaceService {
	return &raceServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new race session on the named track, or the
// default track when configName is empty.
func (s *raceServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.RaceConfig
	configID := configName
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: config '%s' not found. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: config '%s' not found. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.GetDefaultID()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *raceServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	engine.RefreshComputedViews(sess.Engine.GetTrack(), sess.Engine.GetState())
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *raceServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *raceServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return nil
}

// Drive holds one input for its frame count
func (s *raceServiceImpl) Drive(ctx context.Context, sessionID string, input DriveInput, reset bool) (*DriveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	input = input.withDefaults()
	if err := input.Validate(sess.Config.DeltaTimeLimit()); err != nil {
		return nil, err
	}

	events := []RaceEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	step, stepEvents := runInput(sess.Engine, 1, input)
	state := sess.Engine.GetState()
	engine.RefreshComputedViews(sess.Engine.GetTrack(), state)
	state = state.Clone()

	result := &DriveResult{
		Success:   true,
		RaceState: state,
		Message:   state.Message,
		Events:    append(events, stepEvents...),
		Step:      &step,
	}

	s.save(sessionID, "drive")
	return result, nil
}

// BulkDrive executes several inputs in sequence. Every input is validated
// before any is driven; driving stops early once the race is finished.
func (s *raceServiceImpl) BulkDrive(ctx context.Context, sessionID string, inputs []DriveInput, reset bool) (*BulkDriveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkDriveResult{
		RequestedInputs: len(inputs),
		Events:          make([]RaceEvent, 0),
		Success:         true,
	}

	// Limit inputs to prevent abuse
	if len(inputs) > engine.MaxBulkInputs {
		result.Truncated = true
		result.Limit = engine.MaxBulkInputs
		inputs = inputs[:engine.MaxBulkInputs]
	}

	limit := sess.Config.DeltaTimeLimit()
	prepared := make([]DriveInput, len(inputs))
	for i, in := range inputs {
		prepared[i] = in.withDefaults()
		if err := prepared[i].Validate(limit); err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	start := *sess.Engine.GetState()
	startVisited := len(start.VisitedCheckpoints)
	result.StartPosition = start.Vehicle.Position
	result.StartSpeed = start.Vehicle.Speed

	for i, in := range prepared {
		if sess.Engine.IsFinished() {
			result.StoppedReason = "race finished"
			result.StopReasonCode = "finished"
			result.StoppedOnInput = i + 1
			break
		}

		step, events := runInput(sess.Engine, i+1, in)
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, events...)
		result.InputsExecuted++
		result.FramesExecuted += step.Frames
	}

	end := sess.Engine.GetState()
	engine.RefreshComputedViews(sess.Engine.GetTrack(), end)

	result.RaceState = end.Clone()
	result.EndPosition = end.Vehicle.Position
	result.EndSpeed = end.Vehicle.Speed
	result.DistanceDelta = end.Distance - start.Distance
	result.CheckpointsDelta = len(end.VisitedCheckpoints) - startVisited
	result.Finished = end.Finished
	result.Message = end.Message
	result.DrivingStatus = end.DrivingStatus

	s.save(sessionID, "bulk drive")
	return result, nil
}

// Reset puts a session's car back on the start cell
func (s *raceServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.RaceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	engine.RefreshComputedViews(sess.Engine.GetTrack(), state)

	s.save(sessionID, "reset")
	return state.Clone(), nil
}

// GetRaceState retrieves the current race state
func (s *raceServiceImpl) GetRaceState(ctx context.Context, sessionID string) (*engine.RaceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	engine.RefreshComputedViews(sess.Engine.GetTrack(), state)
	return state.Clone(), nil
}

// GetTelemetry returns paginated frame history
func (s *raceServiceImpl) GetTelemetry(ctx context.Context, sessionID string, opts TelemetryOptions) (*TelemetryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	history := sess.Engine.GetFrameHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultTelemetryLimit
	}
	if opts.Limit > maxTelemetryLimit {
		opts.Limit = maxTelemetryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	frames := []engine.FrameEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				frames = append(frames, history[i])
			}
		} else {
			frames = append(frames, history[start:end]...)
		}
	}

	return &TelemetryResponse{
		Frames:         frames,
		TotalFrames:    sess.Engine.GetState().TotalFrames,
		RetainedFrames: total,
		Page:           opts.Page,
		PageSize:       opts.Limit,
		TotalPages:     totalPages,
		HasNext:        opts.Page < totalPages,
		HasPrevious:    opts.Page > 1,
	}, nil
}

// DescribeSurface reports the track under a world position of a session
func (s *raceServiceImpl) DescribeSurface(ctx context.Context, sessionID string, x, y float64) (*engine.SurfaceInfo, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return nil, fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	info := sess.Engine.DescribeSurface(engine.Point{X: x, Y: y})
	return &info, nil
}

// ListConfigs returns available track configurations
func (s *raceServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific track configuration
func (s *raceServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.RaceConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a track configuration to disk
func (s *raceServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.RaceConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// getSession looks a session up and marks it accessed. Callers hold s.mu.
func (s *raceServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *raceServiceImpl) save(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s after %s: %v\n", sessionID, after, err)
	}
}

// sessionInfo copies the session's state; callers hold s.mu.
func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		RaceState:      sess.Engine.GetState().Clone(),
		RaceConfig:     sess.Config,
	}
}

func resetEvent() RaceEvent {
	return RaceEvent{
		Type:      "reset",
		Message:   "Car returned to the start",
		Timestamp: time.Now(),
	}
}

// runInput drives one input and derives its step record and events.
func runInput(eng *engine.RaceEngine, idx int, in DriveInput) (StepInfo, []RaceEvent) {
	before := eng.GetState()
	from := before.Vehicle.Position
	speedBefore := before.Vehicle.Speed
	onRoad := before.OnRoad
	wasFinished := before.Finished
	visited := len(before.VisitedCheckpoints)

	frames := eng.Run(in.Controls(), in.DeltaTime, in.Frames)
	state := eng.GetState()
	now := time.Now()

	step := StepInfo{
		Idx:         idx,
		Input:       in,
		From:        from,
		To:          state.Vehicle.Position,
		SpeedBefore: speedBefore,
		SpeedAfter:  state.Vehicle.Speed,
		Surface:     string(state.Surface),
		OnRoad:      state.OnRoad,
		Finished:    state.Finished,
		Frames:      len(frames),
		Heading:     state.Vehicle.Heading,
		Direction:   state.Vehicle.Direction,
	}
	if len(frames) > 0 {
		step.LastFrame = frames[len(frames)-1].FrameNumber
	}

	to := state.Vehicle.Position
	events := []RaceEvent{{
		Type:      "drive",
		Message:   fmt.Sprintf("Drove %d frames to (%.2f,%.2f) at %.2f u/s", len(frames), to.X, to.Y, state.Vehicle.Speed),
		Timestamp: now,
		Position:  &to,
	}}

	for _, f := range frames {
		pos := f.To
		if f.OnRoad != onRoad {
			ev := RaceEvent{Type: "off_road", Message: "Left the road", Timestamp: now, Position: &pos, Frame: f.FrameNumber}
			if f.OnRoad {
				ev.Type, ev.Message = "on_road", "Back on the road"
			}
			events = append(events, ev)
			onRoad = f.OnRoad
		}
		for _, id := range f.Checkpoints {
			visited++
			step.Checkpoints = append(step.Checkpoints, id)
			events = append(events, RaceEvent{
				Type:      "checkpoint",
				Message:   fmt.Sprintf("Checkpoint %s reached (%d/%d)", id, visited, state.TotalCheckpoints),
				Timestamp: now,
				Position:  &pos,
				Frame:     f.FrameNumber,
			})
		}
	}

	if !wasFinished && state.Finished {
		events = append(events, RaceEvent{
			Type:      "finished",
			Message:   fmt.Sprintf("Race finished in %.2fs", state.FinishTime),
			Timestamp: now,
			Position:  &to,
		})
	}

	return step, events
}
