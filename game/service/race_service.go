package service

import (
	"context"
	"errors"
	"time"

	"github.com/andialuis/VRaze/game/engine"
)

var (
	// ErrSessionNotFound is returned when no session has the requested id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfigNotFound is returned when no track config has the requested id.
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrInvalidConfig wraps track config validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidInput wraps rejected driving inputs.
	ErrInvalidInput = errors.New("invalid input")
)

// RaceService defines all race-related operations
type RaceService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Driving
	Drive(ctx context.Context, sessionID string, input DriveInput, reset bool) (*DriveResult, error)
	BulkDrive(ctx context.Context, sessionID string, inputs []DriveInput, reset bool) (*BulkDriveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.RaceState, error)

	// Race State
	GetRaceState(ctx context.Context, sessionID string) (*engine.RaceState, error)
	GetTelemetry(ctx context.Context, sessionID string, opts TelemetryOptions) (*TelemetryResponse, error)
	DescribeSurface(ctx context.Context, sessionID string, x, y float64) (*engine.SurfaceInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.RaceConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.RaceConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.RaceConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles track configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.RaceConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.RaceConfig
	GetDefaultID() string
	SaveConfig(name string, config *engine.RaceConfig) error
}

// Session represents an active race session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.RaceEngine
	Config         *engine.RaceConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
