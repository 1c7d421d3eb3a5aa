// Package mcp exposes the race API as Model Context Protocol tools.
//
// Client is a thin proxy: every tool call becomes a REST request against a
// running API server and the JSON reply is rendered as text for the model.
// Race state responses include an ASCII map of the track with the car drawn
// as an arrow in its heading.
//
// Tools: create_session, list_sessions, get_session, race_state, drive,
// bulk_drive, reset_race, telemetry, list_configs, race_instructions and
// describe_point.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
