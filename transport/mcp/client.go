package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/service"
)

// Client exposes the game service as MCP tools
type Client struct {
	service   service.GameService
	mcpServer *server.MCPServer
}

// NewClient creates a new MCP client backed by svc
func NewClient(svc service.GameService) *Client {
	c := &Client{
		service: svc,
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Scribble Client",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Scribble Client - MCP Interface

This client holds one realtime connection to a scribble game server.
Players join a room, take turns drawing, and chat to guess the word.

AVAILABLE TOOLS:
- connection_status: Connection state, client id and last room request
- connect: Open the connection (restarts it if already open)
- disconnect: Close the connection and stop reconnecting
- join_room: Join a room under a player name
- send_chat: Send a chat line (guesses go through chat)
- draw_stroke: Send one stroke of points
- game_state: Players, scores, round and current drawer
- recent_events: Recent joins, chat lines, strokes and errors
- list_profiles: Saved connection profiles

Actions fail with "not connected" while the connection is down. The client
reconnects on its own after a drop; check connection_status and retry.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Connection
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "connection_status",
		Description: "Get the connection state, client id and last room request",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "connect",
		Description: "Connect to the game server. An open connection is closed and replaced.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleConnect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "disconnect",
		Description: "Close the connection and cancel any pending reconnect",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDisconnect)

	// Game actions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join a game room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room to join",
				},
				"player_name": map[string]interface{}{
					"type":        "string",
					"description": "Name shown to other players",
				},
			},
			Required: []string{"room_id", "player_name"},
		},
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_chat",
		Description: "Send a chat line to the room. Guesses are chat lines.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Message text",
				},
			},
			Required: []string{"text"},
		},
	}, c.handleSendChat)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw_stroke",
		Description: "Draw one continuous stroke",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"points": map[string]interface{}{
					"type":        "array",
					"description": "Points of the stroke in order",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x": map[string]interface{}{"type": "number"},
							"y": map[string]interface{}{"type": "number"},
						},
						"required": []string{"x", "y"},
					},
				},
				"color": map[string]interface{}{
					"type":        "string",
					"description": "Stroke color, e.g. #000000",
				},
				"width": map[string]interface{}{
					"type":        "number",
					"description": "Stroke width in pixels",
				},
			},
			Required: []string{"points", "color", "width"},
		},
	}, c.handleDrawStroke)

	// Game state
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the latest game state snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "recent_events",
		Description: "Get recent events with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default: 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Events per page (default: 20)",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Only events of this type (chat, stroke, player_joined, ...)",
				},
			},
		},
	}, c.handleRecentEvents)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_profiles",
		Description: "List saved connection profiles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListProfiles)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// arguments returns the tool arguments, or an empty map when none were sent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := c.service.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStatus(status)), nil
}

func (c *Client) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := c.service.Connect(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Connection requested\n\n" + formatStatus(status)), nil
}

func (c *Client) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := c.service.Disconnect(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Disconnected\n\n" + formatStatus(status)), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	roomID, _ := args["room_id"].(string)
	playerName, _ := args["player_name"].(string)

	if err := c.service.JoinRoom(ctx, roomID, playerName); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✓ Join requested: room %s as %s", roomID, playerName)), nil
}

func (c *Client) handleSendChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	text, _ := args["text"].(string)

	if err := c.service.SendChat(ctx, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("✓ Chat sent"), nil
}

func (c *Client) handleDrawStroke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	stroke, err := parseStroke(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.service.SendStroke(ctx, stroke); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("✓ Stroke sent (%d points)", len(stroke.Points))), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := c.service.GameState(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(state)), nil
}

func (c *Client) handleRecentEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	opts := service.EventsOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}
	if page, ok := args["page"].(float64); ok && page > 0 {
		opts.Page = int(page)
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		opts.Limit = int(limit)
	}
	opts.Type, _ = args["type"].(string)

	events, err := c.service.RecentEvents(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEvents(events)), nil
}

func (c *Client) handleListProfiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profiles, err := c.service.ListProfiles(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(profiles) == 0 {
		return mcp.NewToolResultText("No profiles found"), nil
	}

	result := "Available Profiles:\n\n"
	for _, p := range profiles {
		result += fmt.Sprintf("• %s (%s)\n  %s\n\n", p.Name, p.Filename, p.URL)
	}
	return mcp.NewToolResultText(result), nil
}

// parseStroke converts loosely typed tool arguments into a stroke. Range
// checks are left to the service.
func parseStroke(args map[string]interface{}) (protocol.DrawStroke, error) {
	var stroke protocol.DrawStroke

	rawPoints, ok := args["points"].([]interface{})
	if !ok {
		return stroke, fmt.Errorf("points must be an array of {x, y} objects")
	}

	stroke.Points = make([]protocol.Point, 0, len(rawPoints))
	for i, raw := range rawPoints {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return stroke, fmt.Errorf("point %d must be an object", i)
		}
		x, okX := obj["x"].(float64)
		y, okY := obj["y"].(float64)
		if !okX || !okY {
			return stroke, fmt.Errorf("point %d needs numeric x and y", i)
		}
		stroke.Points = append(stroke.Points, protocol.Point{X: x, Y: y})
	}

	stroke.Color, _ = args["color"].(string)
	stroke.Width, _ = args["width"].(float64)
	return stroke, nil
}

// Formatting helpers

func formatStatus(status *service.StatusInfo) string {
	if status == nil {
		return "No status available"
	}

	var result strings.Builder
	connected := "no"
	if status.Connected {
		connected = "yes"
	}
	result.WriteString(fmt.Sprintf("Connected: %s | State: %s\n", connected, status.State))
	result.WriteString(fmt.Sprintf("Server: %s\n", status.URL))
	result.WriteString(fmt.Sprintf("Client ID: %s\n", status.ClientID))
	if status.RoomID != "" {
		result.WriteString(fmt.Sprintf("Room: %s as %s\n", status.RoomID, status.PlayerName))
	}
	return result.String()
}

func formatGameState(state *protocol.GameStateData) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Round: %g | Players: %d\n", state.Round, len(state.Players)))

	if state.CurrentDrawer == nil {
		result.WriteString("Drawer: none\n")
	} else if p, ok := state.Player(*state.CurrentDrawer); ok {
		result.WriteString(fmt.Sprintf("Drawer: %s (%s)\n", p.Name, p.ID))
	} else {
		result.WriteString(fmt.Sprintf("Drawer: %s (not in player list)\n", *state.CurrentDrawer))
	}

	if len(state.Players) == 0 {
		result.WriteString("\n(no players)")
		return result.String()
	}

	players := make([]protocol.Player, len(state.Players))
	copy(players, state.Players)
	sort.SliceStable(players, func(i, j int) bool {
		return scoreOf(state, players[i]) > scoreOf(state, players[j])
	})

	result.WriteString("\nScoreboard:\n")
	for i, p := range players {
		marker := ""
		if state.CurrentDrawer != nil && *state.CurrentDrawer == p.ID {
			marker = " ✎"
		}
		result.WriteString(fmt.Sprintf("%d. %s [%g]%s\n", i+1, p.Name, scoreOf(state, p), marker))
	}
	return result.String()
}

// scoreOf prefers the scores map over the per-player score
func scoreOf(state *protocol.GameStateData, p protocol.Player) float64 {
	if score, ok := state.Scores[p.ID]; ok {
		return score
	}
	return p.Score
}

func formatEvents(events *service.EventsResponse) string {
	if events == nil {
		return "No events available"
	}

	result := fmt.Sprintf("Recent Events (Page %d/%d) - Total: %d\n\n",
		events.Page, events.TotalPages, events.TotalEvents)

	if len(events.Events) == 0 {
		return result + "(no events)"
	}

	for i, ev := range events.Events {
		num := (events.Page-1)*events.PageSize + i + 1
		result += fmt.Sprintf("%d. [%s] %s %s\n",
			num, ev.Timestamp.Format("15:04:05"), ev.Type, ev.Message)
	}
	return result
}
