// Package mcp exposes the scribble client to AI agents over the Model Context
// Protocol.
//
// Tools call the game service in-process, so an agent sees the same
// connection, store and event log as the HTTP API and local UIs.
//
// MCP Tools:
//   - connection_status: Connection state and last room request
//   - connect / disconnect: Connection control
//   - join_room: Join a room under a player name
//   - send_chat: Send a chat line
//   - draw_stroke: Send one stroke
//   - game_state: Scoreboard, round and current drawer
//   - recent_events: Paginated event log
//   - list_profiles: Saved connection profiles
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp, answered with GetMCPServer().HandleMessage
//
// Usage:
//
//	client := mcp.NewClient(gameService)
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
