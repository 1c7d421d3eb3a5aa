// Package session keeps the race sessions of the server.
//
// Manager is a thread-safe map of sessions keyed by case-insensitive id.
// Each session owns its own race engine; the manager only guards the map, so
// callers serialise driving of a single session themselves.
//
// Session Identifiers:
//
// Generated ids are 4 hex characters from crypto/rand, retried until free
// in memory and on disk.
//
// Persistence:
//
// With a SessionPersistence attached, sessions are written through on
// creation and on every Save, loaded lazily by Get, and removed by Delete.
// FilePersistence stores one JSON file per session holding the config id and
// the full race state; the car is rebuilt from the state on load.
//
//	persistence, _ := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	sess, err := manager.Create("", "classic", raceConfig)
package session
