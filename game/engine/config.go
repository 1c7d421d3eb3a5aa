package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/andialuis/VRaze/game/physics"
	"github.com/andialuis/VRaze/game/track"
)

// ValidateRaceConfig validates a track configuration for correctness and drivability
func ValidateRaceConfig(config *RaceConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate cell size
	if math.IsNaN(config.CellSize) || config.CellSize < MinCellSize || config.CellSize > MaxCellSize {
		return fmt.Errorf("config validation: cell_size must be between %g and %g, got %g", MinCellSize, MaxCellSize, config.CellSize)
	}

	// Validate layout dimensions
	if len(config.Layout) < MinGridSize || len(config.Layout) > MaxGridSize {
		return fmt.Errorf("config validation: layout must have between %d and %d rows, got %d",
			MinGridSize, MaxGridSize, len(config.Layout))
	}
	width := len(config.Layout[0])
	if width < MinGridSize || width > MaxGridSize {
		return fmt.Errorf("config validation: layout rows must have between %d and %d characters, got %d",
			MinGridSize, MaxGridSize, width)
	}

	starts := 0
	checkpoints := 0
	for i, row := range config.Layout {
		if len(row) != width {
			return fmt.Errorf("config validation: row %d must have %d characters to match row 1, got %d",
				i+1, width, len(row))
		}

		for j, char := range row {
			switch char {
			case track.RoadChar, track.GroundChar:
			case track.StartChar:
				starts++
			case track.CheckpointChar:
				checkpoints++
			default:
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	if starts != 1 {
		return fmt.Errorf("config validation: layout must contain exactly one start (S) cell, found %d", starts)
	}
	if checkpoints == 0 {
		return fmt.Errorf("config validation: layout must contain at least one checkpoint (C) cell")
	}

	// Validate legend
	requiredLegend := map[string]string{
		"R": string(track.Road),
		".": string(track.Ground),
		"S": string(track.Start),
		"C": string(track.Checkpoint),
	}
	for key, expectedValue := range requiredLegend {
		if value, ok := config.Legend[key]; !ok || value != expectedValue {
			return fmt.Errorf("config validation: legend['%s'] must be '%s', got '%s'", key, expectedValue, value)
		}
	}

	// Validate timestep limit
	if config.MaxDeltaTime != 0 && (math.IsNaN(config.MaxDeltaTime) || config.MaxDeltaTime < 0 || config.MaxDeltaTime > 1) {
		return fmt.Errorf("config validation: max_delta_time must be in (0, 1], got %g", config.MaxDeltaTime)
	}

	// Validate physics override
	if config.Physics != nil {
		if err := config.Physics.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.Finished == "" {
		return fmt.Errorf("config validation: messages.finished is required")
	}

	// Validate format strings
	if config.Messages.Checkpoint != "" && !sameVerbs(config.Messages.Checkpoint, "%d", "%d") {
		return fmt.Errorf("config validation: messages.checkpoint must contain exactly two %%d for visited and total checkpoints")
	}
	if !sameVerbs(config.Messages.Finished, "%.2f") {
		return fmt.Errorf("config validation: messages.finished must contain exactly one %%.2f for the finish time")
	}

	// The start must touch the road, otherwise the car begins boxed in by ground
	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	start := t.StartCell()
	neighbours := []track.Cell{
		{Col: start.Col + 1, Row: start.Row},
		{Col: start.Col - 1, Row: start.Row},
		{Col: start.Col, Row: start.Row + 1},
		{Col: start.Col, Row: start.Row - 1},
	}
	connected := false
	for _, n := range neighbours {
		if t.Type(n) != track.Ground {
			connected = true
			break
		}
	}
	if !connected {
		return fmt.Errorf("config validation: start cell at (%d, %d) is not connected to any road", start.Col+1, start.Row+1)
	}

	return nil
}

// PhysicsParams returns the tuning of a config, defaults when not overridden.
func (c *RaceConfig) PhysicsParams() physics.Params {
	if c == nil || c.Physics == nil {
		return physics.DefaultParams()
	}
	return *c.Physics
}

// DeltaTimeLimit returns the largest accepted frame duration for the config.
func (c *RaceConfig) DeltaTimeLimit() float64 {
	if c == nil || c.MaxDeltaTime <= 0 {
		return DefaultMaxDeltaTime
	}
	return c.MaxDeltaTime
}

// LoadRaceConfig loads a track configuration from a JSON file
func LoadRaceConfig(filename string) (*RaceConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		// If filename starts with "configs/", replace with CONFIG_DIR
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config RaceConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Validate the loaded configuration
	if err := ValidateRaceConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigByName loads a track configuration by name from the configs directory
func LoadConfigByName(configName string) (*RaceConfig, error) {
	// Add .json extension if not present
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	configDir := "configs"
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		configDir = dir
	}
	configPath := filepath.Join(configDir, configName)

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configName, err)
	}

	var config RaceConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", configName, err)
	}

	if err := ValidateRaceConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}

	return &config, nil
}

// DefaultLegend returns the legend every track config must carry.
func DefaultLegend() map[string]string {
	return map[string]string{
		"R": string(track.Road),
		".": string(track.Ground),
		"S": string(track.Start),
		"C": string(track.Checkpoint),
	}
}

// DefaultMessages returns the stock player-facing texts.
func DefaultMessages() RaceMessages {
	return RaceMessages{
		Welcome:    "Engine started. Visit every checkpoint to finish the race!",
		Checkpoint: "Checkpoint %d/%d reached!",
		Finished:   "Race finished in %.2fs!",
		OffRoad:    "Off the road! The ground slows you down.",
		OnRoad:     "Back on the road.",
	}
}

// DefaultRaceConfig returns the built-in circuit used when no config is given.
func DefaultRaceConfig() *RaceConfig {
	return &RaceConfig{
		Name:        "default",
		Description: "Built-in rectangular circuit",
		CellSize:    10,
		Layout: []string{
			"..............",
			".SRRRRCRRRRRR.",
			".R..........R.",
			".R..........R.",
			".C..........C.",
			".R..........R.",
			".RRRRRRCRRRRR.",
			"..............",
		},
		Legend:   DefaultLegend(),
		Messages: DefaultMessages(),
	}
}

// InitRaceState creates the initial race state for a config with the car
// parked at rest on the start cell.
func InitRaceState(config *RaceConfig, t *track.Track, car *physics.Car) *RaceState {
	state := &RaceState{
		VisitedCheckpoints: make(map[string]bool),
		TotalCheckpoints:   len(t.Checkpoints()),
		Message:            config.Messages.Welcome,
		ConfigName:         config.Name,
		FrameHistory:       []FrameEntry{},
	}
	state.syncVehicle(car, t)
	return state
}

// sameVerbs reports whether the fmt verbs of format are exactly want, in
// order. "%%" is a literal and not a verb.
func sameVerbs(format string, want ...string) bool {
	var verbs []string
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("+-# 0123456789.*[]", format[j]) >= 0 {
			j++
		}
		if j == len(format) {
			return false
		}
		if format[j] != '%' || j != i+1 {
			verbs = append(verbs, format[i:j+1])
		}
		i = j
	}

	if len(verbs) != len(want) {
		return false
	}
	for i := range verbs {
		if verbs[i] != want[i] {
			return false
		}
	}
	return true
}
