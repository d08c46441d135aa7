package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/store"
	"github.com/wricardo/scribble-client/transport/websocket"
)

const (
	maxNameLength   = 32
	maxRoomLength   = 64
	maxChatLength   = 500
	maxStrokePoints = 10000
)

var _ GameService = (*Client)(nil)

// Client implements GameService over one connection manager, its router and
// the shared store
type Client struct {
	conn     Connection
	store    *store.StateStore
	profiles ProfileLister
	url      string
	log      log15.Logger
	now      func() time.Time

	mu          sync.RWMutex
	events      []GameEvent
	roomID      string
	playerName  string
	connected   bool
	round       float64
	unsubscribe []func()
}

// Option configures a Client
type Option func(*Client)

// WithLogger replaces the package logger
func WithLogger(logger log15.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithProfiles enables ListProfiles
func WithProfiles(profiles ProfileLister) Option {
	return func(c *Client) {
		c.profiles = profiles
	}
}

// NewClient creates the service. It listens on feed for PlayerJoined, Chat,
// DrawStroke and Error and observes the store to keep the recent events log.
// Call Close to stop listening.
func NewClient(conn Connection, feed MessageFeed, st *store.StateStore, url string, opts ...Option) *Client {
	c := &Client{
		conn:  conn,
		store: st,
		url:   url,
		log:   log15.New("module", "service"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	c.connected = st.Connected.Get()
	c.round = st.GameState.Get().Round
	c.mu.Unlock()

	c.unsubscribe = append(c.unsubscribe,
		feed.Subscribe(c.onMessage),
		st.Connected.Subscribe(c.onConnected),
		st.GameState.Subscribe(c.onGameState),
	)

	return c
}

// onMessage turns server messages into events. GameState is covered by the
// store observer.
func (c *Client) onMessage(msg protocol.ServerMessage) {
	switch p := msg.Data.(type) {
	case protocol.PlayerJoinedData:
		c.record(GameEvent{
			Type:     EventPlayerJoined,
			Message:  fmt.Sprintf("%s joined the room", p.Name),
			PlayerID: p.ID,
			Data:     p,
		})
	case protocol.ChatData:
		c.record(GameEvent{Type: EventChat, Message: p.Text})
	case protocol.DrawStroke:
		c.record(GameEvent{
			Type:    EventStroke,
			Message: fmt.Sprintf("stroke with %d points", len(p.Points)),
		})
	case protocol.ErrorData:
		c.log.Warn("server reported an error", "message", p.Message)
		c.record(GameEvent{Type: EventServerError, Message: p.Message})
	}
}

// Close stops listening to the router and the store
func (c *Client) Close() {
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
}

// Connect starts a connection attempt. The returned status is taken right
// after the attempt starts, so it usually reports "connecting".
func (c *Client) Connect(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.conn.Connect()
	return c.Status(ctx)
}

// Disconnect closes the connection and cancels any pending reconnect
func (c *Client) Disconnect(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.conn.Disconnect()
	return c.Status(ctx)
}

// Status reports the connection state and the last room request
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &StatusInfo{
		Connected:  c.store.Connected.Get(),
		State:      c.conn.State().String(),
		ClientID:   c.conn.ClientID(),
		URL:        c.url,
		RoomID:     c.roomID,
		PlayerName: c.playerName,
	}, nil
}

// JoinRoom asks the server to place playerName in roomID
func (c *Client) JoinRoom(ctx context.Context, roomID, playerName string) error {
	roomID = strings.TrimSpace(roomID)
	playerName = strings.TrimSpace(playerName)

	if roomID == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(roomID) > maxRoomLength {
		return fmt.Errorf("%w: room id longer than %d characters", ErrInvalidInput, maxRoomLength)
	}
	if playerName == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(playerName) > maxNameLength {
		return fmt.Errorf("%w: player name longer than %d characters", ErrInvalidInput, maxNameLength)
	}

	if err := c.send(ctx, protocol.JoinRoom(roomID, playerName)); err != nil {
		return err
	}

	c.mu.Lock()
	c.roomID = roomID
	c.playerName = playerName
	c.mu.Unlock()

	c.log.Info("join requested", "room", roomID, "player", playerName)
	return nil
}

// SendChat sends a chat line to the room
func (c *Client) SendChat(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: chat text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		return fmt.Errorf("%w: chat text longer than %d characters", ErrInvalidInput, maxChatLength)
	}
	return c.send(ctx, protocol.Chat(text))
}

// SendStroke sends a finished stroke
func (c *Client) SendStroke(ctx context.Context, stroke protocol.DrawStroke) error {
	if err := validateStroke(stroke); err != nil {
		return err
	}
	return c.send(ctx, protocol.Draw(stroke))
}

// GameState returns a copy of the last snapshot the server sent
func (c *Client) GameState(ctx context.Context) (*protocol.GameStateData, error) {
	state := c.store.GameState.Get().Clone()
	return &state, nil
}

// RecentEvents returns a page of the recent events log
func (c *Client) RecentEvents(ctx context.Context, opts EventsOptions) (*EventsResponse, error) {
	c.mu.RLock()
	var history []GameEvent
	for _, ev := range c.events {
		if opts.Type == "" || ev.Type == opts.Type {
			history = append(history, ev)
		}
	}
	c.mu.RUnlock()

	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > maxEvents {
		opts.Limit = maxEvents
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	if opts.Order != "asc" && opts.Order != "desc" {
		return nil, fmt.Errorf("%w: order must be asc or desc", ErrInvalidInput)
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []GameEvent{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &EventsResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListProfiles returns the connection profiles found in the profile directory
func (c *Client) ListProfiles(ctx context.Context) ([]*config.ProfileInfo, error) {
	if c.profiles == nil {
		return []*config.ProfileInfo{}, nil
	}
	return c.profiles.List()
}

func (c *Client) send(ctx context.Context, msg protocol.ClientMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.conn.TrySend(msg); err != nil {
		if errors.Is(err, websocket.ErrNotConnected) {
			return ErrNotConnected
		}
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

func (c *Client) onConnected(connected bool) {
	c.mu.Lock()
	changed := connected != c.connected
	c.connected = connected
	c.mu.Unlock()

	if !changed {
		return
	}
	if connected {
		c.record(GameEvent{Type: EventConnected, Message: "connected to " + c.url})
	} else {
		c.record(GameEvent{Type: EventDisconnected, Message: "disconnected from " + c.url})
	}
}

func (c *Client) onGameState(state protocol.GameStateData) {
	c.mu.Lock()
	changed := state.Round != c.round
	c.round = state.Round
	c.mu.Unlock()

	if !changed {
		return
	}

	msg := fmt.Sprintf("round %g started", state.Round)
	if state.CurrentDrawer != nil {
		if p, ok := state.Player(*state.CurrentDrawer); ok {
			msg = fmt.Sprintf("round %g started, %s is drawing", state.Round, p.Name)
		}
	}
	c.record(GameEvent{Type: EventRound, Message: msg, Data: state.Round})
}

// record appends to the events log, dropping the oldest entry when full
func (c *Client) record(ev GameEvent) {
	ev.Timestamp = c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
	if len(c.events) > maxEvents {
		c.events = append(c.events[:0:0], c.events[len(c.events)-maxEvents:]...)
	}
}

func validateStroke(stroke protocol.DrawStroke) error {
	if len(stroke.Points) == 0 {
		return fmt.Errorf("%w: stroke needs at least one point", ErrInvalidInput)
	}
	if len(stroke.Points) > maxStrokePoints {
		return fmt.Errorf("%w: stroke has more than %d points", ErrInvalidInput, maxStrokePoints)
	}
	if strings.TrimSpace(stroke.Color) == "" {
		return fmt.Errorf("%w: stroke color is required", ErrInvalidInput)
	}
	if stroke.Width <= 0 || math.IsNaN(stroke.Width) || math.IsInf(stroke.Width, 0) {
		return fmt.Errorf("%w: stroke width must be a positive number", ErrInvalidInput)
	}
	for i, p := range stroke.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: point %d is not a finite coordinate", ErrInvalidInput, i)
		}
	}
	return nil
}
