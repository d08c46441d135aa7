package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
	"github.com/jpillora/backoff"
	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/store"
)

var (
	ErrNotConnected   = errors.New("websocket not connected")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrAlreadyRunning = errors.New("manager is already running")
)

// ClientIDHeader carries the manager's client id on every handshake
const ClientIDHeader = "X-Client-Id"

// Size of the event queue between connection goroutines and the event loop.
const eventQueueSize = 256

// Manager owns the single server connection, its open/close transitions and
// the reconnection policy.
//
// Connection goroutines and timers never touch manager state directly: they
// push events onto one queue and Run consumes it in order. That keeps frame
// routing, store writes and lifecycle transitions on a single goroutine.
type Manager struct {
	cfg      *config.Config
	router   *Router
	store    *store.StateStore
	dialer   *websocket.Dialer
	header   http.Header
	clientID string
	log      log15.Logger

	events chan event
	wake   chan struct{}
	done   chan struct{}

	mu         sync.Mutex
	running    bool
	state      State
	gen        uint64
	conn       *conn
	cancelDial context.CancelFunc
	timer      *time.Timer
	backoff    *backoff.Backoff
}

// NewManager creates an idle manager. Start its event loop with Run, then
// call Connect.
func NewManager(cfg *config.Config, router *Router, st *store.StateStore, opts ...Option) *Manager {
	o := buildOptions("manager", opts)
	clientID := uuid.NewString()

	header := http.Header{}
	header.Set(ClientIDHeader, clientID)

	return &Manager{
		cfg:    cfg,
		router: router,
		store:  st,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout.Std(),
		},
		header:   header,
		clientID: clientID,
		log:      o.logger.New("client", clientID),
		events:   make(chan event, eventQueueSize),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		backoff: &backoff.Backoff{
			Min:    cfg.ReconnectDelay.Std(),
			Max:    cfg.MaxReconnectDelay.Std(),
			Factor: cfg.ReconnectFactor,
		},
	}
}

// ClientID identifies this manager in handshakes and logs
func (m *Manager) ClientID() string {
	return m.clientID
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run processes connection events until ctx is done. It must be running for
// the manager to make progress and may only be called once.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil

		case ev := <-m.events:
			m.handle(ev)

		case <-m.wake:
		}

		m.publishConnected()
	}
}

// Connect starts a new connection attempt and returns at once. A live
// connection, an attempt in flight or a pending reconnect is abandoned first.
func (m *Manager) Connect() {
	m.mu.Lock()
	prev := m.state
	m.startLocked()
	m.mu.Unlock()

	m.log.Info("connecting", "url", m.cfg.URL, "previous", prev)
	m.poke()
}

// Disconnect closes the connection, cancels any scheduled reconnect and
// leaves the manager idle until the next Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.state
	m.retireLocked()
	m.state = StateIdle
	m.mu.Unlock()

	if prev != StateIdle {
		m.log.Info("disconnected by client", "previous", prev)
	}
	m.poke()
}

// Send transmits msg if the connection is open. Otherwise, or if the
// message cannot be queued, it logs a warning and drops the message.
func (m *Manager) Send(msg protocol.ClientMessage) {
	if err := m.TrySend(msg); err != nil {
		m.log.Warn("message dropped", "type", msg.Type, "err", err)
	}
}

// TrySend is Send for callers that want to know whether the message left.
// It never blocks and never changes the store.
func (m *Manager) TrySend(msg protocol.ClientMessage) error {
	m.mu.Lock()
	c := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || c == nil {
		return ErrNotConnected
	}

	frame, err := msg.Encode()
	if err != nil {
		return err
	}

	if !c.enqueue(frame) {
		return ErrSendQueueFull
	}
	return nil
}

func (m *Manager) handle(ev event) {
	switch ev.kind {
	case eventOpened:
		m.handleOpened(ev)

	case eventFrame:
		if m.isCurrent(ev.gen, StateOpen) {
			m.router.Route(ev.data)
		}

	case eventErrored:
		if m.isCurrent(ev.gen, StateOpen, StateConnecting) {
			m.log.Error("websocket error", "err", ev.err)
		} else {
			m.log.Debug("error on retired connection", "err", ev.err)
		}

	case eventClosed:
		m.handleClosed(ev)

	case eventReconnect:
		m.handleReconnect(ev)
	}
}

func (m *Manager) handleOpened(ev event) {
	m.mu.Lock()
	if ev.gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		m.log.Debug("closing stale connection", "conn", ev.conn.id)
		ev.conn.ws.Close()
		return
	}

	m.conn = ev.conn
	m.state = StateOpen
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.backoff.Reset()
	m.mu.Unlock()

	ev.conn.start()
	m.log.Info("connected to server", "url", m.cfg.URL, "conn", ev.conn.id)
}

func (m *Manager) handleClosed(ev event) {
	m.mu.Lock()
	if ev.gen != m.gen || (m.state != StateOpen && m.state != StateConnecting) {
		m.mu.Unlock()
		m.log.Debug("close of retired connection", "err", ev.err)
		return
	}

	if m.conn != nil {
		m.conn.close()
		m.conn = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.state = StateClosed

	gen := m.gen
	delay := m.backoff.Duration()
	m.timer = time.AfterFunc(delay, func() {
		m.push(event{kind: eventReconnect, gen: gen})
	})
	m.mu.Unlock()

	m.log.Info("disconnected from server", "reason", ev.err, "reconnect_in", delay)
}

func (m *Manager) handleReconnect(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.gen != m.gen || m.state != StateClosed {
		return
	}
	m.timer = nil

	m.log.Info("reconnecting", "url", m.cfg.URL, "attempt", m.backoff.Attempt())
	m.startLocked()
}

// startLocked retires the current slot and dials a new connection
func (m *Manager) startLocked() {
	m.retireLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.state = StateConnecting

	go m.dial(ctx, m.gen)
}

// retireLocked abandons whatever the slot holds. Bumping gen makes every
// event still in flight for the old slot stale.
func (m *Manager) retireLocked() {
	m.gen++

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if m.conn != nil {
		m.conn.close()
		m.conn = nil
	}
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	ws, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, m.header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		// Dial failures surface like a dropped connection: error, then close
		m.push(event{kind: eventErrored, gen: gen, err: err})
		m.push(event{kind: eventClosed, gen: gen, err: err})
		return
	}

	c := newConn(uuid.NewString(), gen, ws, m.cfg, m.push, m.log)
	if !m.push(event{kind: eventOpened, gen: gen, conn: c}) {
		ws.Close()
	}
}

// push queues an event for Run. It reports false once Run has returned.
func (m *Manager) push(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// poke wakes Run so it republishes the connected flag after a caller-side
// transition. It never blocks, so handlers running on the loop may call
// Connect or Disconnect.
func (m *Manager) poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) isCurrent(gen uint64, states ...State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return false
	}
	for _, s := range states {
		if m.state == s {
			return true
		}
	}
	return false
}

// publishConnected mirrors the state into the store. Only Run calls it, so
// the store's connected cell has a single writer.
func (m *Manager) publishConnected() {
	open := m.State() == StateOpen
	if m.store.Connected.Get() != open {
		m.store.Connected.Set(open)
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	m.retireLocked()
	m.state = StateIdle
	m.mu.Unlock()

	m.publishConnected()
	m.log.Debug("event loop stopped")
}
