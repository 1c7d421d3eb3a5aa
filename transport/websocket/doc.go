// Package websocket streams live race updates to browser and bot clients.
//
// A central Hub tracks the clients watching each session. Every client gets
// a read pump and a write pump goroutine; the write pump batches queued
// messages and keeps the connection alive with pings.
//
// Clients connect with ?session=<id>. After each drive, bulk drive or reset
// the API broadcasts the new race state:
//
//	{"session_id":"a1b2","event":"state_update","race_state":{...}}
//
// The race events of the drive (checkpoint, finished, off_road, on_road,
// reset) are sent just before that state, one message each:
//
//	{"session_id":"a1b2","event":"checkpoint","data":{"type":"checkpoint","message":"...","frame":46}}
//
// Clients may also drive the car live by sending control frames:
//
//	{"type":"input","accelerate":true,"steering":3,"delta_time":0.016,"frames":1}
//
// Input frames are handed to the InputHandler installed with
// SetInputHandler. Failures come back to the sending client only as an
// "error" event.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	hub.SetInputHandler(apiServer)
package websocket
