package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/andialuis/VRaze/game/engine"
)

func createValidConfig() *engine.RaceConfig {
	return &engine.RaceConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		CellSize:    10,
		Layout: []string{
			".......",
			".SRRRC.",
			".R...R.",
			".RRCRR.",
			".......",
		},
		Legend:   engine.DefaultLegend(),
		Messages: engine.DefaultMessages(),
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.RaceConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic is preferred", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"alpha", "classic"} {
			config := createValidConfig()
			config.Name = name
			writeConfigFile(t, dir, name, config)
		}

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefaultID() != "classic" {
			t.Errorf("Expected default id 'classic', got %q", manager.GetDefaultID())
		}
		if manager.GetDefault().Name != "classic" {
			t.Errorf("Expected classic as default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("first valid config without classic", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"zeta", "beta"} {
			config := createValidConfig()
			config.Name = name
			writeConfigFile(t, dir, name, config)
		}

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefaultID() != "beta" {
			t.Errorf("Expected default id 'beta', got %q", manager.GetDefaultID())
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}

		defaultConfig := manager.GetDefault()
		if defaultConfig == nil {
			t.Fatal("Expected default config to be available")
		}
		if err := engine.ValidateRaceConfig(defaultConfig); err != nil {
			t.Errorf("Built-in fallback must be valid: %v", err)
		}
		if manager.GetDefaultID() != "default" {
			t.Errorf("Expected default id 'default', got %q", manager.GetDefaultID())
		}

		// The fallback is loadable by its id so persisted sessions can restore
		if _, err := manager.LoadConfig("default"); err != nil {
			t.Errorf("Expected fallback to be loadable, got %v", err)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	classic := createValidConfig()
	classic.Name = "Classic"
	writeConfigFile(t, dir, "classic", classic)

	sprint := createValidConfig()
	sprint.Name = "Sprint"
	sprint.CellSize = 20
	writeConfigFile(t, dir, "sprint", sprint)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("sprint")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Sprint" || config.CellSize != 20 {
			t.Errorf("Unexpected config %q with cell size %v", config.Name, config.CellSize)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("sprint.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Sprint" {
			t.Errorf("Expected config name 'Sprint', got '%s'", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("sprint")
		config2, err := manager.LoadConfig("sprint")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		for _, name := range []string{"../classic", "a/b", "..", ""} {
			if _, err := manager.LoadConfig(name); !errors.Is(err, ErrConfigNotFound) {
				t.Errorf("LoadConfig(%q): expected ErrConfigNotFound, got %v", name, err)
			}
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": ""}`), 0644); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": "Malformed", invalid json}`), 0644); err != nil {
			t.Fatalf("Failed to write malformed config: %v", err)
		}

		if _, err := manager.LoadConfig("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	names := []string{"classic", "sprint", "rally"}
	for _, name := range names {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, name, config)
	}

	// Ignored: non-JSON and invalid files
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{}`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 3 {
		t.Fatalf("Expected 3 configs, got %d", len(configList))
	}

	wantOrder := []string{"classic", "rally", "sprint"}
	for i, info := range configList {
		if info.ConfigID != wantOrder[i] {
			t.Errorf("Expected config %d to be %q, got %q", i, wantOrder[i], info.ConfigID)
		}
		if info.Filename != info.ConfigID+".json" {
			t.Errorf("Unexpected filename %q", info.Filename)
		}
		if info.Width != 7 || info.Height != 5 || info.Checkpoints != 2 || info.CellSize != 10 {
			t.Errorf("Unexpected summary %+v", info)
		}
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	other := createValidConfig()
	other.Name = "Other"
	writeConfigFile(t, dir, "other", other)

	manager, _ := NewManager(dir)

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Other" || manager.GetDefaultID() != "other" {
		t.Errorf("Expected 'other' as default, got %q/%q", manager.GetDefaultID(), manager.GetDefault().Name)
	}

	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	config := createValidConfig()
	config.Name = "Saved"
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}

	// A fresh manager reads it back from disk
	fresh, _ := NewManager(dir)
	loaded, err := fresh.LoadConfig("saved")
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Name != "Saved" {
		t.Errorf("Expected 'Saved', got %q", loaded.Name)
	}

	bad := createValidConfig()
	bad.Layout[1] = ".RRRRC."
	if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for path id, got %v", err)
	}
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()

	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "classic", config)
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.CellSize != 10 {
		t.Errorf("Expected initial cell size 10, got %v", loaded.CellSize)
	}

	config.CellSize = 15
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.CellSize != 15 {
		t.Errorf("Expected reloaded cell size 15, got %v", reloaded.CellSize)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	manager, _ := NewManager(dir)

	changed := createValidConfig()
	changed.Name = "Classic v2"
	writeConfigFile(t, dir, "classic", changed)

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "Classic v2" {
		t.Errorf("Expected refreshed default, got %q", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	manager.RefreshCache()

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() < 6 {
		t.Errorf("Expected at least 6 configs in cache, got %d", manager.Count())
	}
}

// Test-only helpers

func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, name)
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
