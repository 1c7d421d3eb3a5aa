package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andialuis/VRaze/game/engine"
	"github.com/andialuis/VRaze/game/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"VRaze",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`VRaze - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Drive the car over every checkpoint (C) on the track. The race finishes when
the last checkpoint is crossed; the finish time is the score.

AVAILABLE TOOLS:
- race_state: Current car state and a map of the track
- drive: Hold one set of controls for a number of frames - requires intent explanation
- bulk_drive: Several control inputs in sequence - requires intent explanation
- reset_race: Put the car back on the start
- telemetry: Paginated per-frame history
- create_session / get_session / list_sessions: Session management
- list_configs: Available tracks
- race_instructions: Driving model and strategy notes
- describe_point: Surface under a world coordinate

NOTE: The 'intent' parameter on drive/bulk_drive serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func integerProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func controlProps() map[string]interface{} {
	return map[string]interface{}{
		"accelerate": boolProp("Hold the throttle"),
		"brake":      boolProp("Hold the brake (slows down, then reverses)"),
		"steering":   numberProp("Steering wheel angle in radians. Positive turns the heading counter-clockwise in world coordinates, toward +Y (a right turn on the printed map). Useful values are roughly ±1 to ±6"),
		"delta_time": numberProp("Seconds per frame (default 1/60, capped by the track's max_delta_time)"),
		"frames":     integerProp(fmt.Sprintf("Frames to hold the controls (default 1, max %d)", engine.MaxFramesPerDrive)),
	}
}

func (c *Client) registerTools() {
	sessionOnly := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"session_id": stringProp("Session ID")},
		Required:   []string{"session_id"},
	}
	noArgs := mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new race session with optional track selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("Track config id from list_configs (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active race sessions",
		InputSchema: noArgs,
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly,
	}, c.handleGetSession)

	// Race operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "race_state",
		Description: "Get the car state, checkpoint progress and a map of the track",
		InputSchema: sessionOnly,
	}, c.handleRaceState)

	driveProps := controlProps()
	driveProps["session_id"] = stringProp("Session ID")
	driveProps["intent"] = stringProp("Brief explanation of the intent behind this input (serves as a rubber duck to help explain your reasoning)")
	driveProps["reset"] = boolProp("Reset before driving")
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drive",
		Description: "Hold one set of controls for a number of frames",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: driveProps,
			Required:   []string{"session_id"},
		},
	}, c.handleDrive)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_drive",
		Description: fmt.Sprintf("Execute up to %d control inputs in sequence", engine.MaxBulkInputs),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"inputs": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":       "object",
						"properties": controlProps(),
					},
					"description": "Control inputs, each held for its frames",
				},
				"intent": stringProp("Brief explanation of the intent behind this sequence (serves as a rubber duck to help explain your reasoning)"),
				"reset":  boolProp("Reset before driving"),
			},
			Required: []string{"session_id", "inputs"},
		},
	}, c.handleBulkDrive)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_race",
		Description: "Put the car back on the start and clear checkpoint progress",
		InputSchema: sessionOnly,
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "telemetry",
		Description: "Get per-frame telemetry for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"page":       integerProp("Page number"),
				"limit":      integerProp("Frames per page"),
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "asc for oldest first, desc (default) for newest first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTelemetry)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available track configurations",
		InputSchema: noArgs,
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "race_instructions",
		Description: "Get the driving model, controls and strategy notes",
		InputSchema: noArgs,
	}, c.handleRaceInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_point",
		Description: "Describe the surface under a world coordinate: grid cell, road or ground, checkpoint id and whether it was visited",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"x":          numberProp("World X coordinate"),
				"y":          numberProp("World Y coordinate"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribePoint)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

func sessionPath(args map[string]interface{}, suffix string) string {
	sessionID, _ := args["session_id"].(string)
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// driveInput reads control fields from a tool argument object. JSON numbers
// arrive as float64.
func driveInput(raw map[string]interface{}) service.DriveInput {
	var in service.DriveInput
	in.Accelerate, _ = raw["accelerate"].(bool)
	in.Brake, _ = raw["brake"].(bool)
	in.Steering, _ = raw["steering"].(float64)
	in.DeltaTime, _ = raw["delta_time"].(float64)
	if frames, ok := raw["frames"].(float64); ok {
		in.Frames = int(frames)
	}
	return in
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		session.ID, session.ConfigName, formatRaceMap(session.RaceState, session.RaceConfig))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		progress := ""
		if s.RaceState != nil {
			progress = fmt.Sprintf(", Checkpoints: %d/%d", len(s.RaceState.VisitedCheckpoints), s.RaceState.TotalCheckpoints)
			if s.RaceState.Finished {
				progress += fmt.Sprintf(", Finished in %.2fs", s.RaceState.FinishTime)
			}
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s%s)\n", s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), progress)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

// handleRaceState fetches the whole session so the map can be drawn from the
// track layout.
func (c *Client) handleRaceState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatRaceState(session.RaceState) + "\n" + formatRaceMap(session.RaceState, session.RaceConfig)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDrive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	reset, _ := args["reset"].(bool)

	in := driveInput(args)
	body := map[string]interface{}{
		"accelerate": in.Accelerate,
		"brake":      in.Brake,
		"steering":   in.Steering,
		"delta_time": in.DeltaTime,
		"frames":     in.Frames,
		"reset":      reset,
	}

	var result service.DriveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/drive"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDriveResult(&result)), nil
}

func (c *Client) handleBulkDrive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	rawInputs, _ := args["inputs"].([]interface{})
	reset, _ := args["reset"].(bool)

	inputs := make([]service.DriveInput, 0, len(rawInputs))
	for _, raw := range rawInputs {
		if obj, ok := raw.(map[string]interface{}); ok {
			inputs = append(inputs, driveInput(obj))
		}
	}

	body := map[string]interface{}{
		"inputs": inputs,
		"reset":  reset,
	}

	var result service.BulkDriveResult
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/bulk-drive"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkDriveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Message string            `json:"message"`
		State   *engine.RaceState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatRaceState(response.State))), nil
}

func (c *Client) handleTelemetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	if order, ok := args["order"].(string); ok {
		params.Set("order", order)
	}

	path := sessionPath(args, "/telemetry")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var telemetry service.TelemetryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &telemetry); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTelemetry(&telemetry)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (id: %s)\n  %s\n  Grid: %dx%d cells of %g units, Checkpoints: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.CellSize, config.Checkpoints)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRaceInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(raceInstructions), nil
}

func (c *Client) handleDescribePoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y must be numbers"), nil
	}

	path := sessionPath(args, "/surface") + "?" + url.Values{
		"x": {fmt.Sprint(x)},
		"y": {fmt.Sprint(y)},
	}.Encode()

	var info engine.SurfaceInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSurface(&info)), nil
}
