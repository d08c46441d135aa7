package websocket

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/store"
)

const (
	// Time allowed to write a message to a UI client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from a UI client.
	pongWait = 60 * time.Second

	// Send pings to UI clients with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a UI client. Strokes carry every
	// sampled point.
	maxMessageSize = 64 * 1024

	clientBuffer    = 256
	broadcastBuffer = 256
)

// TypeConnected is pushed to UI clients whenever the server link goes up or
// down. It never travels to the game server.
const TypeConnected protocol.MessageType = "Connected"

// Sender forwards client actions to the game server
type Sender interface {
	Send(msg protocol.ClientMessage)
}

// Feed delivers every inbound server message. Router implements it.
type Feed interface {
	Subscribe(fn Listener) (unsubscribe func())
}

// Client is one local UI connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// quit is closed by the hub when the client is unregistered. send is
	// never closed, so late replies cannot panic.
	quit chan struct{}
	log  log15.Logger
}

type outbound struct {
	typ  protocol.MessageType
	data []byte
}

// Hub relays the store and inbound server messages to local UI clients and
// their actions to the game server. UIs see the same connected flag and game
// state snapshots that the store holds, starting with the latest ones when
// they connect.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int32

	// latest holds the last broadcast Connected and GameState frames, in
	// queue order. Only Run touches it.
	latest map[protocol.MessageType][]byte

	store    *store.StateStore
	feed     Feed
	sender   Sender
	upgrader websocket.Upgrader
	log      log15.Logger
}

// NewHub creates a hub over st that relays feed to UIs and forwards UI
// actions to sender. feed may be nil, in which case UIs only see store
// values.
func NewHub(st *store.StateStore, feed Feed, sender Sender, opts ...Option) *Hub {
	o := buildOptions("hub", opts)
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latest:     make(map[protocol.MessageType][]byte),
		store:      st,
		feed:       feed,
		sender:     sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The UI is served from the same binary, often through a tunnel
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: o.logger,
	}
}

// Clients reports how many UI clients are registered
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	unsubConnected := h.store.Connected.Subscribe(func(connected bool) {
		h.publish(TypeConnected, connected)
	})
	defer unsubConnected()

	unsubState := h.store.GameState.Subscribe(func(state protocol.GameStateData) {
		h.publish(protocol.TypeGameState, state)
	})
	defer unsubState()

	if h.feed != nil {
		unsubFeed := h.feed.Subscribe(func(msg protocol.ServerMessage) {
			// GameState reaches UIs through the store
			if msg.Type != protocol.TypeGameState {
				h.publish(msg.Type, msg.Data)
			}
		})
		defer unsubFeed()
	}

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.unregisterClient(client)
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.broadcast:
			if out.typ == TypeConnected || out.typ == protocol.TypeGameState {
				h.latest[out.typ] = out.data
			}
			for client := range h.clients {
				select {
				case client.send <- out.data:
				default:
					// Client's send channel is full, drop it
					h.unregisterClient(client)
				}
			}
		}
	}
}

// ServeWS upgrades a UI request and attaches it to the hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
		quit: make(chan struct{}),
		log:  h.log.New("remote", r.RemoteAddr),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// publish queues a broadcast without blocking. It runs inside store
// observers, which must return promptly.
func (h *Hub) publish(typ protocol.MessageType, payload any) {
	data, err := encode(typ, payload)
	if err != nil {
		h.log.Error("failed to encode broadcast", "type", typ, "err", err)
		return
	}

	select {
	case h.broadcast <- outbound{typ: typ, data: data}:
	default:
		h.log.Warn("broadcast queue full, dropping update", "type", typ)
	}
}

// registerClient adds a client and sends it the latest broadcast values.
// Anything still queued is newer, so a UI never sees a state go backwards.
func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int32(len(h.clients)))

	for _, typ := range []protocol.MessageType{TypeConnected, protocol.TypeGameState} {
		if data, ok := h.latest[typ]; ok {
			client.send <- data
		}
	}

	client.log.Info("ui client registered", "clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.quit)
	h.count.Store(int32(len(h.clients)))

	client.log.Info("ui client unregistered", "clients", len(h.clients))
}

// reply sends a message to this client only
func (c *Client) reply(typ protocol.MessageType, payload any) {
	data, err := encode(typ, payload)
	if err != nil {
		c.log.Error("failed to encode reply", "type", typ, "err", err)
		return
	}

	select {
	case <-c.quit:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("ui send buffer full, dropping reply", "type", typ)
	}
}

// readPump forwards UI actions to the game server
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ui websocket error", "err", err)
			}
			return
		}

		msg, err := protocol.DecodeClientMessage(data)
		if err != nil {
			c.log.Warn("rejecting ui message", "err", err)
			c.reply(protocol.TypeError, protocol.ErrorData{Message: err.Error()})
			continue
		}
		c.hub.sender.Send(msg)
	}
}

// writePump pumps messages from the hub to the UI connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.quit:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is still buffered after the hub let go
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func encode(typ protocol.MessageType, payload any) ([]byte, error) {
	return protocol.ServerMessage{Type: typ, Data: payload}.Encode()
}
