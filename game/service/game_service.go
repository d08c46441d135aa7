package service

import (
	"context"
	"errors"

	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/transport/websocket"
)

var (
	ErrNotConnected = errors.New("not connected to game server")
	ErrInvalidInput = errors.New("invalid input")
)

// GameService defines the client operations exposed to the control API and
// the MCP tools
type GameService interface {
	// Connection
	Connect(ctx context.Context) (*StatusInfo, error)
	Disconnect(ctx context.Context) (*StatusInfo, error)
	Status(ctx context.Context) (*StatusInfo, error)

	// Game actions
	JoinRoom(ctx context.Context, roomID, playerName string) error
	SendChat(ctx context.Context, text string) error
	SendStroke(ctx context.Context, stroke protocol.DrawStroke) error

	// Game state
	GameState(ctx context.Context) (*protocol.GameStateData, error)
	RecentEvents(ctx context.Context, opts EventsOptions) (*EventsResponse, error)

	// Configuration
	ListProfiles(ctx context.Context) ([]*config.ProfileInfo, error)
}

// Connection is the part of websocket.Manager the service drives
type Connection interface {
	Connect()
	Disconnect()
	TrySend(msg protocol.ClientMessage) error
	State() websocket.State
	ClientID() string
}

// MessageFeed is the part of websocket.Router the service listens on. The
// service subscribes as a listener, so it never takes a type's handler slot.
type MessageFeed interface {
	Subscribe(fn websocket.Listener) (unsubscribe func())
}

// ProfileLister lists the available connection profiles
type ProfileLister interface {
	List() ([]*config.ProfileInfo, error)
}
