// Package protocol defines the wire contract between the scribble client and
// the game server.
//
// The protocol package provides:
//   - Drawing primitives (Point, DrawStroke)
//   - The shared game snapshot (Player, GameStateData)
//   - Client-to-server messages (Draw, Chat, JoinRoom)
//   - Server-to-client messages (DrawStroke, GameState, PlayerJoined, Error, Chat)
//
// Wire Format:
//
// Every frame in both directions is a UTF-8 JSON object with exactly two
// top-level fields:
//
//	{"type": "GameState", "data": {"players": [], "currentDrawer": null, "round": 0, "scores": {}}}
//
// The "type" field is the discriminator and "data" carries the variant
// payload. There is no version field, message id or extra framing.
//
// Usage:
//
//	frame, err := protocol.Chat("hello").Encode()
//
//	msg, err := protocol.DecodeServerMessage(frame)
//	if err != nil {
//		// malformed frame, drop it
//	}
//	if state, ok := msg.Data.(protocol.GameStateData); ok {
//		...
//	}
//
// Decoding:
//
// DecodeServerMessage rejects frames that are not UTF-8, not a JSON object,
// lack a "type", or whose "data" does not fit a known variant. Frames with
// an unknown "type" decode successfully and keep their payload as
// json.RawMessage so callers can still route them.
package protocol
