package protocol

import (
	"fmt"
	"sort"
)

// MessageType is the "type" discriminator of a wire message.
type MessageType string

const (
	// Client to server
	TypeDraw     MessageType = "Draw"
	TypeJoinRoom MessageType = "JoinRoom"

	// Both directions: clients send chat, the server relays it to the room
	TypeChat MessageType = "Chat"

	// Server to client
	TypeDrawStroke   MessageType = "DrawStroke"
	TypeGameState    MessageType = "GameState"
	TypePlayerJoined MessageType = "PlayerJoined"
	TypeError        MessageType = "Error"
)

// Point is a single sampled coordinate on a drawing surface
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawStroke is one continuous pen gesture
type DrawStroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// Player is identified by ID; Name and Score may change between snapshots
type Player struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// GameStateData is the authoritative snapshot the server sends. It is always
// replaced as a whole, never patched.
type GameStateData struct {
	Players       []Player           `json:"players"`
	CurrentDrawer *string            `json:"currentDrawer"`
	Round         float64            `json:"round"`
	Scores        map[string]float64 `json:"scores"`
}

// ChatData is the payload of a chat line
type ChatData struct {
	Text string `json:"text"`
}

// JoinRoomData asks the server to place the player in a room
type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// PlayerJoinedData announces a new player in the room
type PlayerJoinedData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorData carries a server-side error description
type ErrorData struct {
	Message string `json:"message"`
}

// InitialGameState returns the snapshot a client holds before the server has
// sent anything.
func InitialGameState() GameStateData {
	return GameStateData{
		Players:       []Player{},
		CurrentDrawer: nil,
		Round:         0,
		Scores:        map[string]float64{},
	}
}

// Player returns the player with the given id.
func (g GameStateData) Player(id string) (Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Clone returns a deep copy of the snapshot.
func (g GameStateData) Clone() GameStateData {
	out := GameStateData{
		Players: make([]Player, len(g.Players)),
		Round:   g.Round,
		Scores:  make(map[string]float64, len(g.Scores)),
	}
	copy(out.Players, g.Players)
	for id, score := range g.Scores {
		out.Scores[id] = score
	}
	if g.CurrentDrawer != nil {
		drawer := *g.CurrentDrawer
		out.CurrentDrawer = &drawer
	}
	return out
}

// Validate reports references to players that are not part of the snapshot:
// a currentDrawer or a scores key with no matching Player.ID. The server does
// not guarantee this, so callers decide what to do with the error.
func (g GameStateData) Validate() error {
	known := make(map[string]bool, len(g.Players))
	for _, p := range g.Players {
		known[p.ID] = true
	}

	if g.CurrentDrawer != nil && !known[*g.CurrentDrawer] {
		return fmt.Errorf("%w: current drawer %q is not a player", ErrInconsistentState, *g.CurrentDrawer)
	}

	var unknown []string
	for id := range g.Scores {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: scores for unknown players %v", ErrInconsistentState, unknown)
	}
	return nil
}
