// Command validate checks the track configuration JSON files in a
// directory (../configs by default). For every file it reports:
//   - JSON structure and the rules enforced by engine.ValidateRaceConfig
//   - Connectivity: every checkpoint can be reached from the start over road
//   - A short summary of the track (grid, road share, checkpoints, tuning)
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/track"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single track file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config engine.RaceConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := engine.ValidateRaceConfig(&config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	t, err := track.New(config.Layout, config.CellSize)
	if err != nil {
		result.fail("Invalid layout: %v", err)
		return result
	}

	reachability := validateConnectivity(t)
	if !reachability.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, reachability.Errors...)
	if !result.Valid {
		return result
	}

	cells := t.Width() * t.Height()
	drivable := cells - t.CountType(track.Ground)
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d cells of %g units", t.Width(), t.Height(), t.CellSize()))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Road: %d/%d cells (%.0f%%)", drivable, cells, 100*float64(drivable)/float64(cells)))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Checkpoints: %d", len(t.Checkpoints())))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Max delta time: %gs", config.DeltaTimeLimit()))
	if config.Physics != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Custom physics: weight %g, max traction %g", config.Physics.Weight, config.Physics.MaxTraction))
	} else {
		result.Errors = append(result.Errors, "✓ Physics: defaults")
	}

	return result
}

// validateConnectivity ensures every checkpoint is reachable from the start
// cell by 4-directional steps over drivable cells.
func validateConnectivity(t *track.Track) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	checkpoints := t.Checkpoints()
	if len(checkpoints) == 0 {
		result.fail("No checkpoints found for connectivity test")
		return result
	}

	visited := map[track.Cell]bool{t.StartCell(): true}
	queue := []track.Cell{t.StartCell()}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range []track.Cell{
			{Col: current.Col - 1, Row: current.Row},
			{Col: current.Col + 1, Row: current.Row},
			{Col: current.Col, Row: current.Row - 1},
			{Col: current.Col, Row: current.Row + 1},
		} {
			if visited[next] || t.Type(next) == track.Ground {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	var unreachable []string
	for _, cp := range checkpoints {
		if !visited[cp.Cell] {
			unreachable = append(unreachable, fmt.Sprintf("%s at (%d,%d)", cp.ID, cp.Cell.Col+1, cp.Cell.Row+1))
		}
	}

	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d/%d checkpoints unreachable from start", len(unreachable), len(checkpoints))
		for _, cp := range unreachable {
			result.Errors = append(result.Errors, "Unreachable: "+cp)
		}
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: All %d checkpoints reachable from start", len(checkpoints)))
	}

	return result
}

// main validates every *.json file in the directory given as the first
// argument (../configs when omitted) and exits non-zero if any is invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No track configs found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All track configurations are valid!")
	} else {
		fmt.Println("❌ Some track configurations have errors")
		os.Exit(1)
	}
}
