// Package api provides the local HTTP control API for the scribble client.
//
// The api package implements:
//   - Connection control (connect, disconnect, status)
//   - Game actions (join a room, chat, draw)
//   - Read access to the game state snapshot and recent events
//   - The websocket endpoint local UIs attach to
//
// Endpoints:
//
// Connection:
//   - GET /api/status - Connection state, client id and last room request
//   - POST /api/connect - Start a connection attempt
//   - POST /api/disconnect - Close the connection and stop reconnecting
//
// Game Actions:
//   - POST /api/join - {"room_id": "abc", "player_name": "Ann"}
//   - POST /api/chat - {"text": "hello"}
//   - POST /api/draw - {"points": [{"x": 1, "y": 2}], "color": "#000", "width": 2}
//
// Game State:
//   - GET /api/state - Last GameState snapshot
//   - GET /api/events - Recent events (page, limit, order, type)
//   - GET /api/profiles - Connection profiles
//
// WebSocket:
//   - GET /ws - Live Connected and GameState pushes; accepts client actions
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status code:
//
//	{"error": "not connected to game server"}
//
// 400 for invalid input, 409 when the client is not connected, 500 otherwise.
package api
