// Package api exposes the race service over HTTP.
//
// Routes (all JSON):
//
//	GET    /api/health
//	POST   /api/sessions                    {"config_id": "classic"}
//	GET    /api/sessions                    ?sort=created|accessed&order=asc|desc&limit=N
//	GET    /api/sessions/unified            ?sessionIds=a,b or ?configName=classic
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/state
//	POST   /api/sessions/{id}/drive         {"accelerate":true,"steering":3,"delta_time":0.05,"frames":20,"reset":false}
//	POST   /api/sessions/{id}/bulk-drive    {"inputs":[...],"reset":false}
//	POST   /api/sessions/{id}/reset
//	GET    /api/sessions/{id}/telemetry     ?page=1&limit=50&order=desc
//	GET    /api/sessions/{id}/surface       ?x=12.5&y=40
//	GET    /api/configs
//	POST   /api/configs                     ?id=oval, body is a race config
//	GET    /api/configs/{name}
//	GET    /ws                              ?session={id}
//
// Errors come back as {"error": "..."}. Unknown sessions and configs map to
// 404, rejected inputs and configs to 400.
//
// Every drive, bulk drive and reset is broadcast to the session's websocket
// watchers, and logged as a one-line [DRIVE] or [BULK] summary.
package api
