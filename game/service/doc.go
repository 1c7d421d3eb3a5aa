// Package service provides the business logic layer of the racing server.
//
// The service package implements:
//   - Multi-session race management
//   - Drive input validation and execution
//   - Event extraction (checkpoints, finish, surface changes)
//   - Frame telemetry paging
//
// Core Interfaces:
//
// RaceService is the main service interface providing high-level race operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages track configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// race engine. Each session owns its own engine, and therefore its own car;
// the service serialises access so a car is only ever advanced by one
// goroutine at a time.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	raceService := service.NewRaceService(sessionMgr, configMgr)
//
//	info, err := raceService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Full throttle for one second at 60 fps
//	result, err := raceService.Drive(ctx, info.ID, service.DriveInput{
//		Accelerate: true,
//		DeltaTime:  1.0 / 60,
//		Frames:     60,
//	}, false)
package service
