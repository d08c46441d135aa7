// Package websocket keeps the scribble client connected to its game server
// and relays what it learns to local UIs.
//
// The package implements:
//   - A Manager that owns the single server connection and reconnects after
//     the configured delay whenever it drops
//   - A Router that decodes inbound frames and dispatches them by type
//   - A Hub that mirrors the state store to browser clients and forwards
//     their actions to the server
//
// Architecture:
//
// Each server connection runs a read pump and a write pump. The pumps never
// touch manager state; they push events (opened, frame, errored, closed)
// onto one queue that Manager.Run drains in order. Reconnect timers push onto
// the same queue. Every event carries the generation of the attempt that
// produced it, so a late close from a replaced connection cannot schedule a
// reconnect or flip the connected flag.
//
// Lifecycle:
//
//	Idle --Connect--> Connecting --dial ok--> Open
//	Open/Connecting --close or dial error--> Closed --delay--> Connecting
//	any --Disconnect--> Idle
//
// Message Protocol:
//
// Every frame is a JSON object {"type": ..., "data": ...}. The client sends
// Draw, Chat and JoinRoom. The server sends DrawStroke, GameState,
// PlayerJoined, Error and relayed Chat. A GameState replaces the stored
// snapshot whether or not a handler is registered for it.
//
// Usage:
//
//	st := store.NewStateStore()
//	router := websocket.NewRouter(st)
//	manager := websocket.NewManager(cfg, router, st)
//	go manager.Run(ctx)
//	manager.Connect()
//
//	hub := websocket.NewHub(st, router, manager)
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", hub.ServeWS)
package websocket
