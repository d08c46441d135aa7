// Package service provides the operations UIs and agents use to play through
// the scribble client.
//
// The service package implements:
//   - Connection control over the websocket manager
//   - Validated game actions (join a room, chat, draw)
//   - Read access to the last game state snapshot
//   - A bounded log of recent game events
//
// Core Interfaces:
//
// GameService is the interface the control API and the MCP tools depend on.
// Client implements it over a Connection (websocket.Manager), a MessageFeed
// (websocket.Router) and the shared store.
//
// Unlike the manager, which drops messages it cannot send and only logs,
// the service reports ErrNotConnected and ErrInvalidInput so callers get
// feedback.
//
// Usage:
//
//	svc := service.NewClient(manager, router, st, cfg.URL)
//	defer svc.Close()
//
//	if _, err := svc.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	err := svc.JoinRoom(ctx, "abc", "Ann")
//
// Events:
//
// The client registers router handlers for PlayerJoined, Chat, DrawStroke and
// Error and observes the store for connection and round changes. The last 100
// events are kept in memory and served page by page through RecentEvents.
package service
