package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/service"
)

// mockService implements service.GameService for testing
type mockService struct {
	status   service.StatusInfo
	state    protocol.GameStateData
	events   []service.GameEvent
	profiles []*config.ProfileInfo
	sendErr  error

	connects    int
	disconnects int
	joined      [2]string
	chats       []string
	strokes     []protocol.DrawStroke
	lastOpts    service.EventsOptions
}

func newMockService() *mockService {
	return &mockService{
		status: service.StatusInfo{State: "idle", URL: "ws://game.test/ws", ClientID: "client-1"},
		state:  protocol.InitialGameState(),
	}
}

func (m *mockService) Connect(ctx context.Context) (*service.StatusInfo, error) {
	m.connects++
	m.status.State = "connecting"
	s := m.status
	return &s, nil
}

func (m *mockService) Disconnect(ctx context.Context) (*service.StatusInfo, error) {
	m.disconnects++
	m.status.State = "idle"
	m.status.Connected = false
	s := m.status
	return &s, nil
}

func (m *mockService) Status(ctx context.Context) (*service.StatusInfo, error) {
	s := m.status
	return &s, nil
}

func (m *mockService) JoinRoom(ctx context.Context, roomID, playerName string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.joined = [2]string{roomID, playerName}
	return nil
}

func (m *mockService) SendChat(ctx context.Context, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.chats = append(m.chats, text)
	return nil
}

func (m *mockService) SendStroke(ctx context.Context, stroke protocol.DrawStroke) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.strokes = append(m.strokes, stroke)
	return nil
}

func (m *mockService) GameState(ctx context.Context) (*protocol.GameStateData, error) {
	state := m.state.Clone()
	return &state, nil
}

func (m *mockService) RecentEvents(ctx context.Context, opts service.EventsOptions) (*service.EventsResponse, error) {
	m.lastOpts = opts
	return &service.EventsResponse{
		Events:      m.events,
		TotalEvents: len(m.events),
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  1,
	}, nil
}

func (m *mockService) ListProfiles(ctx context.Context) ([]*config.ProfileInfo, error) {
	return m.profiles, nil
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()

	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned an empty result", name)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s: expected text content, got %T", name, result.Content[0])
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.service != svc {
		t.Error("Expected the service to be kept")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_ConnectionTools(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	text, isErr := callTool(t, client.handleConnect, "connect", nil)
	if isErr || !strings.Contains(text, "State: connecting") {
		t.Errorf("Unexpected connect result: %s", text)
	}
	if svc.connects != 1 {
		t.Errorf("Expected 1 connect, got %d", svc.connects)
	}

	svc.status.Connected = true
	svc.status.State = "open"
	svc.status.RoomID = "abc"
	svc.status.PlayerName = "Ann"

	text, _ = callTool(t, client.handleStatus, "connection_status", map[string]interface{}{})
	for _, want := range []string{"Connected: yes", "State: open", "ws://game.test/ws", "client-1", "Room: abc as Ann"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in status, got: %s", want, text)
		}
	}

	text, _ = callTool(t, client.handleDisconnect, "disconnect", nil)
	if !strings.Contains(text, "Connected: no") || svc.disconnects != 1 {
		t.Errorf("Unexpected disconnect result: %s", text)
	}
}

func TestClient_JoinRoom(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	text, isErr := callTool(t, client.handleJoinRoom, "join_room", map[string]interface{}{
		"room_id":     "abc",
		"player_name": "Ann",
	})
	if isErr {
		t.Fatalf("Unexpected error result: %s", text)
	}
	if svc.joined != [2]string{"abc", "Ann"} {
		t.Errorf("Expected join of abc/Ann, got %v", svc.joined)
	}
	if !strings.Contains(text, "room abc as Ann") {
		t.Errorf("Unexpected result: %s", text)
	}
}

func TestClient_ActionsWhileDisconnected(t *testing.T) {
	svc := newMockService()
	svc.sendErr = service.ErrNotConnected
	client := NewClient(svc)

	text, isErr := callTool(t, client.handleSendChat, "send_chat", map[string]interface{}{"text": "hi"})
	if !isErr {
		t.Error("Expected an error result")
	}
	if !strings.Contains(text, "not connected") {
		t.Errorf("Expected not connected message, got: %s", text)
	}
}

func TestClient_SendChat(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	if _, isErr := callTool(t, client.handleSendChat, "send_chat", map[string]interface{}{"text": "is it a cat?"}); isErr {
		t.Fatal("Unexpected error result")
	}
	if len(svc.chats) != 1 || svc.chats[0] != "is it a cat?" {
		t.Errorf("Unexpected chats %v", svc.chats)
	}
}

func TestClient_DrawStroke(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError string
	}{
		{
			name: "valid stroke",
			args: map[string]interface{}{
				"points": []interface{}{
					map[string]interface{}{"x": 1.0, "y": 2.0},
					map[string]interface{}{"x": 3.5, "y": 4.0},
				},
				"color": "#ff0000",
				"width": 3.0,
			},
		},
		{
			name:      "points missing",
			args:      map[string]interface{}{"color": "#000", "width": 1.0},
			wantError: "points must be an array",
		},
		{
			name: "point not an object",
			args: map[string]interface{}{
				"points": []interface{}{"1,2"},
				"color":  "#000",
				"width":  1.0,
			},
			wantError: "point 0 must be an object",
		},
		{
			name: "non numeric coordinate",
			args: map[string]interface{}{
				"points": []interface{}{map[string]interface{}{"x": "1", "y": 2.0}},
				"color":  "#000",
				"width":  1.0,
			},
			wantError: "point 0 needs numeric x and y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockService()
			client := NewClient(svc)

			text, isErr := callTool(t, client.handleDrawStroke, "draw_stroke", tt.args)
			if tt.wantError != "" {
				if !isErr || !strings.Contains(text, tt.wantError) {
					t.Errorf("Expected error %q, got: %s", tt.wantError, text)
				}
				if len(svc.strokes) != 0 {
					t.Error("Expected no stroke to be sent")
				}
				return
			}

			if isErr {
				t.Fatalf("Unexpected error result: %s", text)
			}
			if len(svc.strokes) != 1 {
				t.Fatalf("Expected 1 stroke, got %d", len(svc.strokes))
			}
			got := svc.strokes[0]
			if len(got.Points) != 2 || got.Points[1] != (protocol.Point{X: 3.5, Y: 4}) || got.Color != "#ff0000" || got.Width != 3 {
				t.Errorf("Unexpected stroke %#v", got)
			}
			if !strings.Contains(text, "2 points") {
				t.Errorf("Unexpected result: %s", text)
			}
		})
	}
}

func TestClient_ServiceValidationError(t *testing.T) {
	svc := newMockService()
	svc.sendErr = errors.Join(service.ErrInvalidInput, errors.New("color is required"))
	client := NewClient(svc)

	text, isErr := callTool(t, client.handleDrawStroke, "draw_stroke", map[string]interface{}{
		"points": []interface{}{map[string]interface{}{"x": 1.0, "y": 1.0}},
		"width":  1.0,
	})
	if !isErr || !strings.Contains(text, "color is required") {
		t.Errorf("Expected validation error, got: %s", text)
	}
}

func TestClient_GameState(t *testing.T) {
	svc := newMockService()
	drawer := "p2"
	svc.state = protocol.GameStateData{
		Players: []protocol.Player{
			{ID: "p1", Name: "Ann", Score: 1},
			{ID: "p2", Name: "Bob", Score: 0},
		},
		CurrentDrawer: &drawer,
		Round:         3,
		Scores:        map[string]float64{"p1": 1, "p2": 7},
	}
	client := NewClient(svc)

	text, _ := callTool(t, client.handleGameState, "game_state", nil)

	for _, want := range []string{"Round: 3", "Players: 2", "Drawer: Bob (p2)", "1. Bob [7] ✎", "2. Ann [1]"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in game state, got: %s", want, text)
		}
	}
}

func TestFormatGameState_FractionalScores(t *testing.T) {
	state := protocol.GameStateData{
		Players: []protocol.Player{{ID: "p1", Name: "Ann", Score: 2.5}},
		Round:   1,
		Scores:  map[string]float64{"p1": 2.5},
	}
	result := formatGameState(&state)

	for _, want := range []string{"Round: 1", "1. Ann [2.5]"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q, got: %s", want, result)
		}
	}
}

func TestFormatGameState_Initial(t *testing.T) {
	state := protocol.InitialGameState()
	result := formatGameState(&state)

	for _, want := range []string{"Round: 0", "Drawer: none", "(no players)"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q, got: %s", want, result)
		}
	}

	if formatGameState(nil) != "No game state available" {
		t.Error("Expected placeholder for nil state")
	}
}

func TestFormatGameState_UnknownDrawer(t *testing.T) {
	drawer := "ghost"
	state := protocol.GameStateData{
		Players:       []protocol.Player{{ID: "p1", Name: "Ann"}},
		CurrentDrawer: &drawer,
	}

	result := formatGameState(&state)
	if !strings.Contains(result, "Drawer: ghost (not in player list)") {
		t.Errorf("Expected unknown drawer note, got: %s", result)
	}
}

func TestClient_RecentEvents(t *testing.T) {
	svc := newMockService()
	ts := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	svc.events = []service.GameEvent{
		{Type: service.EventChat, Message: "Ann: hello", Timestamp: ts},
		{Type: service.EventPlayerJoined, Message: "Bob joined", Timestamp: ts},
	}
	client := NewClient(svc)

	text, _ := callTool(t, client.handleRecentEvents, "recent_events", map[string]interface{}{
		"page":  2.0,
		"limit": 5.0,
		"type":  "chat",
	})

	if svc.lastOpts.Page != 2 || svc.lastOpts.Limit != 5 || svc.lastOpts.Type != "chat" || svc.lastOpts.Order != "desc" {
		t.Errorf("Unexpected options %#v", svc.lastOpts)
	}
	for _, want := range []string{"Page 2/1", "Total: 2", "6. [15:04:05] chat Ann: hello", "7. [15:04:05] player_joined Bob joined"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in events, got: %s", want, text)
		}
	}
}

func TestClient_RecentEventsDefaults(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	text, _ := callTool(t, client.handleRecentEvents, "recent_events", nil)
	if svc.lastOpts.Page != 1 || svc.lastOpts.Limit != 20 {
		t.Errorf("Unexpected default options %#v", svc.lastOpts)
	}
	if !strings.Contains(text, "(no events)") {
		t.Errorf("Expected empty marker, got: %s", text)
	}
}

func TestClient_ListProfiles(t *testing.T) {
	svc := newMockService()
	client := NewClient(svc)

	text, _ := callTool(t, client.handleListProfiles, "list_profiles", nil)
	if text != "No profiles found" {
		t.Errorf("Unexpected result: %s", text)
	}

	svc.profiles = []*config.ProfileInfo{{Filename: "local.json", Name: "local", URL: "ws://localhost:3000/ws"}}
	text, _ = callTool(t, client.handleListProfiles, "list_profiles", nil)
	if !strings.Contains(text, "• local (local.json)") || !strings.Contains(text, "ws://localhost:3000/ws") {
		t.Errorf("Unexpected result: %s", text)
	}
}
