package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.RaceConfig) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return errors.New("session not found")
}

func (m *MockSessionManager) Save(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.RaceConfig
}

// stripConfig is a straight strip: start at column 1, checkpoints at columns
// 4 and 8, ground from column 9. Full throttle at dt=0.1 reaches the first
// checkpoint on frame 46, finishes on frame 67 and leaves the road on 71.
func stripConfig() *engine.RaceConfig {
	return &engine.RaceConfig{
		Name:        "Strip",
		Description: "Straight test strip",
		CellSize:    10,
		Layout: []string{
			"..........",
			".SRRCRRRC.",
			"..........",
			"..........",
			"..........",
		},
		Legend:   engine.DefaultLegend(),
		Messages: engine.DefaultMessages(),
	}
}

func NewMockConfigManager() *MockConfigManager {
	strip := stripConfig()
	return &MockConfigManager{
		configs: map[string]*engine.RaceConfig{
			"strip":   strip,
			"default": engine.DefaultRaceConfig(),
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.RaceConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, service.ErrConfigNotFound
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".json",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.RaceConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) GetDefaultID() string {
	return "default"
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.RaceConfig) error {
	if err := engine.ValidateRaceConfig(config); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidConfig, err)
	}
	m.configs[name] = config
	return nil
}

func newTestService(t *testing.T) (service.RaceService, *MockSessionManager, string) {
	t.Helper()
	sessions := NewMockSessionManager()
	svc := service.NewRaceService(sessions, NewMockConfigManager())

	info, err := svc.CreateSession(context.Background(), "strip")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return svc, sessions, info.ID
}

var throttle = service.DriveInput{Accelerate: true, DeltaTime: 0.1}

func TestRaceService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc := service.NewRaceService(NewMockSessionManager(), NewMockConfigManager())

	tests := []struct {
		name       string
		configName string
		wantID     string
		wantErr    error
	}{
		{"create with default config", "", "default", nil},
		{"create with specific config", "strip", "strip", nil},
		{"create with unknown config", "nonexistent", "", service.ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.configName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateSession() error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), "Available configs") {
					t.Errorf("Expected available configs in error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			if info.ConfigName != tt.wantID {
				t.Errorf("Expected config id %q, got %q", tt.wantID, info.ConfigName)
			}
			if info.RaceState == nil || info.RaceConfig == nil {
				t.Error("Expected state and config in session info")
			}
		})
	}
}

func TestRaceService_Drive(t *testing.T) {
	ctx := context.Background()
	svc, sessions, id := newTestService(t)

	result, err := svc.Drive(ctx, id, service.DriveInput{Accelerate: true, DeltaTime: 0.1, Frames: 46}, false)
	if err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	if !result.Success || result.Step == nil {
		t.Fatalf("Expected success with step info, got %+v", result)
	}
	if result.Step.Frames != 46 || result.Step.LastFrame != 46 {
		t.Errorf("Expected 46 frames ending at frame 46, got %d/%d", result.Step.Frames, result.Step.LastFrame)
	}
	if len(result.Step.Checkpoints) != 1 || result.Step.Checkpoints[0] != "checkpoint_0" {
		t.Errorf("Expected checkpoint_0 in step, got %v", result.Step.Checkpoints)
	}
	if result.Message != "Checkpoint 1/2 reached!" {
		t.Errorf("Unexpected message %q", result.Message)
	}

	types := eventTypes(result.Events)
	if types != "drive,checkpoint" {
		t.Errorf("Expected drive,checkpoint events, got %s", types)
	}
	if result.RaceState.NearestCheckpoint == nil || result.RaceState.NearestCheckpoint.ID != "checkpoint_1" {
		t.Errorf("Expected nearest checkpoint_1, got %+v", result.RaceState.NearestCheckpoint)
	}
	if sessions.saves != 1 {
		t.Errorf("Expected session to be saved once, got %d", sessions.saves)
	}

	// Finish and run off the end of the strip
	result, err = svc.Drive(ctx, id, service.DriveInput{Accelerate: true, DeltaTime: 0.1, Frames: 25}, false)
	if err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	if got := eventTypes(result.Events); got != "drive,checkpoint,off_road,finished" {
		t.Errorf("Expected drive,checkpoint,off_road,finished events, got %s", got)
	}
	if !result.RaceState.Finished || !result.Step.Finished {
		t.Error("Expected race to be finished")
	}

	// Reset in the same call
	result, err = svc.Drive(ctx, id, service.DriveInput{}, true)
	if err != nil {
		t.Fatalf("Drive() with reset error = %v", err)
	}
	if result.Events[0].Type != "reset" {
		t.Errorf("Expected reset event first, got %s", result.Events[0].Type)
	}
	if result.Step.Input.DeltaTime != service.DefaultDeltaTime || result.Step.Input.Frames != 1 {
		t.Errorf("Expected defaults to be applied, got %+v", result.Step.Input)
	}
	if result.RaceState.SegmentFrames != 1 {
		t.Errorf("Expected one frame since reset, got %d", result.RaceState.SegmentFrames)
	}
}

func TestRaceService_DriveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	tests := []struct {
		name  string
		input service.DriveInput
	}{
		{"negative delta", service.DriveInput{DeltaTime: -0.1}},
		{"delta above track limit", service.DriveInput{DeltaTime: engine.DefaultMaxDeltaTime * 2}},
		{"NaN delta", service.DriveInput{DeltaTime: math.NaN()}},
		{"negative frames", service.DriveInput{Frames: -1}},
		{"too many frames", service.DriveInput{Frames: engine.MaxFramesPerDrive + 1}},
		{"NaN steering", service.DriveInput{Steering: math.NaN()}},
		{"infinite steering", service.DriveInput{Steering: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Drive(ctx, id, tt.input, false)
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}

	state, _ := svc.GetRaceState(ctx, id)
	if state.TotalFrames != 0 {
		t.Errorf("Rejected inputs must not drive the car, got %d frames", state.TotalFrames)
	}

	if _, err := svc.Drive(ctx, "nonexistent", throttle, false); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRaceService_BulkDrive(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	inputs := []service.DriveInput{
		{Accelerate: true, DeltaTime: 0.1, Frames: 40},
		{Accelerate: true, DeltaTime: 0.1, Frames: 40},
		{Brake: true, DeltaTime: 0.1, Frames: 10},
	}

	result, err := svc.BulkDrive(ctx, id, inputs, false)
	if err != nil {
		t.Fatalf("BulkDrive() error = %v", err)
	}

	// The race finishes during the second input; the brake input is skipped
	if result.InputsExecuted != 2 || result.FramesExecuted != 80 {
		t.Errorf("Expected 2 inputs and 80 frames, got %d/%d", result.InputsExecuted, result.FramesExecuted)
	}
	if result.StopReasonCode != "finished" || result.StoppedOnInput != 3 {
		t.Errorf("Expected stop on input 3 with code finished, got %q/%d", result.StopReasonCode, result.StoppedOnInput)
	}
	if result.RequestedInputs != 3 || !result.Finished || !result.Success {
		t.Errorf("Unexpected summary %+v", result)
	}
	if result.CheckpointsDelta != 2 {
		t.Errorf("Expected 2 new checkpoints, got %d", result.CheckpointsDelta)
	}
	if result.StartPosition != (engine.Point{X: 15, Y: 15}) {
		t.Errorf("Expected start at (15,15), got %+v", result.StartPosition)
	}
	if math.Abs(result.DistanceDelta-(result.EndPosition.X-15)) > 1e-9 {
		t.Errorf("Expected distance delta %v, got %v", result.EndPosition.X-15, result.DistanceDelta)
	}
	if len(result.Steps) != 2 || result.Steps[1].Idx != 2 || result.Steps[1].LastFrame != 80 {
		t.Errorf("Unexpected steps %+v", result.Steps)
	}
}

func TestRaceService_BulkDriveValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	t.Run("one bad input rejects the batch", func(t *testing.T) {
		inputs := []service.DriveInput{throttle, {DeltaTime: 5}}
		_, err := svc.BulkDrive(ctx, id, inputs, false)
		if !errors.Is(err, service.ErrInvalidInput) || !strings.Contains(err.Error(), "input 2") {
			t.Errorf("Expected ErrInvalidInput for input 2, got %v", err)
		}
		state, _ := svc.GetRaceState(ctx, id)
		if state.TotalFrames != 0 {
			t.Error("No input may run when the batch is rejected")
		}
	})

	t.Run("truncated to the limit", func(t *testing.T) {
		inputs := make([]service.DriveInput, engine.MaxBulkInputs+5)
		result, err := svc.BulkDrive(ctx, id, inputs, true)
		if err != nil {
			t.Fatalf("BulkDrive() error = %v", err)
		}
		if !result.Truncated || result.Limit != engine.MaxBulkInputs {
			t.Errorf("Expected truncation at %d, got %+v", engine.MaxBulkInputs, result)
		}
		if result.InputsExecuted != engine.MaxBulkInputs || result.RequestedInputs != engine.MaxBulkInputs+5 {
			t.Errorf("Expected %d executed of %d requested, got %d/%d",
				engine.MaxBulkInputs, engine.MaxBulkInputs+5, result.InputsExecuted, result.RequestedInputs)
		}
		if result.Events[0].Type != "reset" {
			t.Errorf("Expected reset event first, got %s", result.Events[0].Type)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		result, err := svc.BulkDrive(ctx, id, nil, false)
		if err != nil {
			t.Fatalf("BulkDrive() error = %v", err)
		}
		if result.InputsExecuted != 0 || result.RaceState == nil {
			t.Errorf("Unexpected result %+v", result)
		}
	})

	t.Run("invalid session", func(t *testing.T) {
		if _, err := svc.BulkDrive(ctx, "nonexistent", []service.DriveInput{throttle}, false); !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestRaceService_GetTelemetry(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	if _, err := svc.Drive(ctx, id, service.DriveInput{Accelerate: true, DeltaTime: 0.1, Frames: 25}, false); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		opts       service.TelemetryOptions
		wantFirst  int
		wantCount  int
		wantPages  int
		wantNext   bool
		wantPrev   bool
		wantLength int
	}{
		{"default options", service.TelemetryOptions{}, 25, 25, 1, false, false, 50},
		{"ascending page 1", service.TelemetryOptions{Page: 1, Limit: 10, Order: "asc"}, 1, 10, 3, true, false, 10},
		{"ascending page 3", service.TelemetryOptions{Page: 3, Limit: 10, Order: "asc"}, 21, 5, 3, false, true, 10},
		{"descending page 2", service.TelemetryOptions{Page: 2, Limit: 10, Order: "desc"}, 15, 10, 3, true, true, 10},
		{"past the end", service.TelemetryOptions{Page: 9, Limit: 10}, 0, 0, 3, false, true, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetTelemetry(ctx, id, tt.opts)
			if err != nil {
				t.Fatalf("GetTelemetry() error = %v", err)
			}
			if len(resp.Frames) != tt.wantCount {
				t.Fatalf("Expected %d frames, got %d", tt.wantCount, len(resp.Frames))
			}
			if tt.wantCount > 0 && resp.Frames[0].FrameNumber != tt.wantFirst {
				t.Errorf("Expected first frame %d, got %d", tt.wantFirst, resp.Frames[0].FrameNumber)
			}
			if resp.TotalPages != tt.wantPages || resp.HasNext != tt.wantNext || resp.HasPrevious != tt.wantPrev {
				t.Errorf("Unexpected paging %+v", resp)
			}
			if resp.PageSize != tt.wantLength {
				t.Errorf("Expected page size %d, got %d", tt.wantLength, resp.PageSize)
			}
			if resp.TotalFrames != 25 || resp.RetainedFrames != 25 {
				t.Errorf("Expected 25 total and retained frames, got %d/%d", resp.TotalFrames, resp.RetainedFrames)
			}
		})
	}

	if _, err := svc.GetTelemetry(ctx, "nonexistent", service.TelemetryOptions{}); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRaceService_DescribeSurface(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	info, err := svc.DescribeSurface(ctx, id, 45, 15)
	if err != nil {
		t.Fatalf("DescribeSurface() error = %v", err)
	}
	if info.Checkpoint != "checkpoint_0" || !info.OnRoad {
		t.Errorf("Expected checkpoint_0 on road, got %+v", info)
	}

	if _, err := svc.DescribeSurface(ctx, id, math.NaN(), 0); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.DescribeSurface(ctx, "nonexistent", 0, 0); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRaceService_ListSessions(t *testing.T) {
	ctx := context.Background()
	svc := service.NewRaceService(NewMockSessionManager(), NewMockConfigManager())

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateSession(ctx, "strip"); err != nil {
			t.Fatalf("Failed to create session %d: %v", i, err)
		}
	}

	sessionList, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessionList) != 3 {
		t.Errorf("ListSessions() returned %d sessions, want 3", len(sessionList))
	}
}

func TestRaceService_DeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	if err := svc.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := svc.GetSession(ctx, id); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := svc.DeleteSession(ctx, id); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestRaceService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	if _, err := svc.Drive(ctx, id, service.DriveInput{Accelerate: true, DeltaTime: 0.1, Frames: 50}, false); err != nil {
		t.Fatalf("Failed to drive: %v", err)
	}

	state, err := svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if state.Vehicle.Position != (engine.Point{X: 15, Y: 15}) || state.Vehicle.Speed != 0 {
		t.Errorf("Expected car at rest on the start, got %+v", state.Vehicle)
	}
	if len(state.VisitedCheckpoints) != 0 {
		t.Error("Expected checkpoints to be cleared")
	}
	if state.DrivingStatus == "" || state.NearestCheckpoint == nil {
		t.Error("Expected computed views on the reset state")
	}
}

// Run with -race: results must stay readable while other goroutines drive
// the same session.
func TestRaceService_ConcurrentDrivesReturnCopies(t *testing.T) {
	ctx := context.Background()
	svc, _, id := newTestService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				var state *engine.RaceState
				switch g % 2 {
				case 0:
					res, err := svc.Drive(ctx, id, service.DriveInput{Accelerate: true, DeltaTime: 0.1, Frames: 2}, false)
					if err != nil {
						errs <- err
						return
					}
					state = res.RaceState
				default:
					info, err := svc.GetSession(ctx, id)
					if err != nil {
						errs <- err
						return
					}
					state = info.RaceState
				}
				if _, err := json.Marshal(state); err != nil {
					errs <- err
					return
				}
				for range state.VisitedCheckpoints {
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Concurrent use failed: %v", err)
	}

	state, err := svc.GetRaceState(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if state.TotalFrames != 2*25*2 {
		t.Errorf("Expected 100 frames driven, got %d", state.TotalFrames)
	}

	state.VisitedCheckpoints["checkpoint_9"] = true
	state.FrameHistory = nil
	again, _ := svc.GetRaceState(ctx, id)
	if again.VisitedCheckpoints["checkpoint_9"] || len(again.FrameHistory) != 100 {
		t.Error("Expected returned states to be independent copies")
	}
}

func TestRaceService_Configs(t *testing.T) {
	ctx := context.Background()
	svc := service.NewRaceService(NewMockSessionManager(), NewMockConfigManager())

	configs, err := svc.ListConfigs(ctx)
	if err != nil || len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d (%v)", len(configs), err)
	}

	custom := stripConfig()
	custom.Name = "Custom"
	if err := svc.SaveConfig(ctx, "custom", custom); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	loaded, err := svc.LoadConfig(ctx, "custom")
	if err != nil || loaded.Name != "Custom" {
		t.Errorf("Expected saved config back, got %v (%v)", loaded, err)
	}

	custom.Name = ""
	if err := svc.SaveConfig(ctx, "broken", custom); !errors.Is(err, service.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func eventTypes(events []service.RaceEvent) string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return strings.Join(types, ",")
}
