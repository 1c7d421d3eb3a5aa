// Package config manages the track configurations of the racing server.
//
// Track configurations are JSON files in a configs directory; the file name
// without extension is the config id used to create sessions. Each file
// defines:
//   - A layout of R (road), . (ground), S (start) and C (checkpoint) cells
//   - The world size of one cell
//   - An optional per-track physics tuning and frame duration limit
//   - Player-facing messages
//
// The manager caches parsed configs, picks "classic" as default when it
// exists, and falls back to a built-in circuit when the directory holds no
// valid track.
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sprint, err := manager.LoadConfig("sprint")
package config
