package mirror

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/store"
)

// Snapshot is what the mirror stores under StateKey
type Snapshot struct {
	Connected bool                   `json:"connected"`
	GameState protocol.GameStateData `json:"game_state"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Event is what the mirror publishes on EventsChannel
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types
const (
	EventConnected = "Connected"
	EventGameState = "GameState"
)

// Mirror copies store changes to a Sink from its own goroutine
type Mirror struct {
	sink    Sink
	log     log15.Logger
	timeout time.Duration
	now     func() time.Time
	wake    chan struct{}

	mu               sync.Mutex
	snapshot         Snapshot
	connectedDirty   bool
	gameStateDirty   bool
	unsubscribeFuncs []func()
}

// Option configures a Mirror
type Option func(*Mirror)

// WithLogger replaces the package logger
func WithLogger(logger log15.Logger) Option {
	return func(m *Mirror) {
		m.log = logger
	}
}

// WithTimeout bounds each sink write
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) {
		m.timeout = d
	}
}

// New creates a mirror writing to sink
func New(sink Sink, opts ...Option) *Mirror {
	m := &Mirror{
		sink:    sink,
		log:     log15.New("module", "mirror"),
		timeout: 5 * time.Second,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach observes both cells of st. The current values are exported on the
// next flush.
func (m *Mirror) Attach(st *store.StateStore) {
	unsubConnected := st.Connected.Subscribe(func(connected bool) {
		m.mu.Lock()
		m.snapshot.Connected = connected
		m.connectedDirty = true
		m.mu.Unlock()
		m.poke()
	})
	unsubState := st.GameState.Subscribe(func(state protocol.GameStateData) {
		m.mu.Lock()
		m.snapshot.GameState = state
		m.gameStateDirty = true
		m.mu.Unlock()
		m.poke()
	})

	m.mu.Lock()
	m.unsubscribeFuncs = append(m.unsubscribeFuncs, unsubConnected, unsubState)
	m.mu.Unlock()
}

// Run writes pending changes until ctx is done, then detaches from the
// store, flushes once more and closes the sink.
func (m *Mirror) Run(ctx context.Context) error {
	defer func() {
		if err := m.sink.Close(); err != nil {
			m.log.Warn("failed to close sink", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.detach()
			m.flush(context.Background())
			return nil

		case <-m.wake:
			m.flush(ctx)
		}
	}
}

func (m *Mirror) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) detach() {
	m.mu.Lock()
	funcs := m.unsubscribeFuncs
	m.unsubscribeFuncs = nil
	m.mu.Unlock()

	for _, unsubscribe := range funcs {
		unsubscribe()
	}
}

// flush writes the latest snapshot and one event per changed cell
func (m *Mirror) flush(ctx context.Context) {
	m.mu.Lock()
	if !m.connectedDirty && !m.gameStateDirty {
		m.mu.Unlock()
		return
	}
	snapshot := m.snapshot
	snapshot.UpdatedAt = m.now()
	connectedDirty, gameStateDirty := m.connectedDirty, m.gameStateDirty
	m.connectedDirty, m.gameStateDirty = false, false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err != nil {
		m.log.Error("failed to encode snapshot", "err", err)
		return
	}
	if err := m.sink.Store(ctx, StateKey, data); err != nil {
		m.log.Warn("failed to store snapshot", "err", err)
	}

	if connectedDirty {
		m.publish(ctx, Event{Type: EventConnected, Data: snapshot.Connected, Timestamp: snapshot.UpdatedAt})
	}
	if gameStateDirty {
		m.publish(ctx, Event{Type: EventGameState, Data: snapshot.GameState, Timestamp: snapshot.UpdatedAt})
	}
}

func (m *Mirror) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		m.log.Error("failed to encode event", "type", ev.Type, "err", err)
		return
	}
	if err := m.sink.Publish(ctx, EventsChannel, data); err != nil {
		m.log.Warn("failed to publish event", "type", ev.Type, "err", err)
	}
}
