package websocket

import (
	"fmt"
	"sync"

	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/protocol"
	"github.com/wricardo/scribble-client/game/store"
)

// Handler receives the decoded payload of one server message
type Handler func(payload any)

// Listener observes every decoded server message, whatever its type
type Listener func(msg protocol.ServerMessage)

// Router decodes inbound frames and dispatches them by message type. A
// GameState always lands in the store, whether or not a handler is
// registered for it.
//
// Each type has at most one handler. Listeners are the fan-out path: any
// number of them see every message after its handler and store update.
type Router struct {
	mu        sync.RWMutex
	handlers  map[protocol.MessageType]Handler
	listeners []*listener
	store     *store.StateStore
	log       log15.Logger
}

type listener struct {
	fn Listener
}

// NewRouter creates a router with no handlers
func NewRouter(st *store.StateStore, opts ...Option) *Router {
	o := buildOptions("router", opts)
	return &Router{
		handlers: make(map[protocol.MessageType]Handler),
		store:    st,
		log:      o.logger,
	}
}

// Register sets the handler for a message type, replacing any previous one.
// A nil handler unregisters.
func (r *Router) Register(typ protocol.MessageType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil {
		delete(r.handlers, typ)
		return
	}
	r.handlers[typ] = h
}

// Subscribe adds fn to the listeners. The returned func removes it; calling
// it more than once is harmless.
func (r *Router) Subscribe(fn Listener) (unsubscribe func()) {
	l := &listener{fn: fn}

	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.removeListener(l) })
	}
}

// Listeners reports how many listeners are subscribed
func (r *Router) Listeners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

func (r *Router) removeListener(l *listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.listeners {
		if cur == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Unregister removes the handler for a message type
func (r *Router) Unregister(typ protocol.MessageType) {
	r.Register(typ, nil)
}

// On registers a typed handler. Payloads of any other Go type are ignored.
func On[T any](r *Router, typ protocol.MessageType, fn func(T)) {
	r.Register(typ, func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}

// Route decodes one frame and dispatches it. Frames that fail to decode are
// logged and dropped.
func (r *Router) Route(frame []byte) {
	msg, err := protocol.DecodeServerMessage(frame)
	if err != nil {
		r.log.Warn("dropping undecodable frame", "err", err, "size", len(frame))
		return
	}
	r.Dispatch(msg)
}

// Dispatch runs the registered handler for msg, applies the store update
// for GameState, then notifies listeners in subscription order. A panicking
// handler or listener is logged and does not stop the rest.
func (r *Router) Dispatch(msg protocol.ServerMessage) {
	r.mu.RLock()
	h := r.handlers[msg.Type]
	listeners := make([]*listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	if h != nil {
		if err := r.invoke(h, msg.Data); err != nil {
			r.log.Error("message handler failed", "type", msg.Type, "err", err)
		}
	} else {
		r.log.Debug("no handler registered", "type", msg.Type)
	}

	if msg.Type == protocol.TypeGameState {
		r.storeGameState(msg.Data)
	}

	for _, l := range listeners {
		if err := r.invoke(func(any) { l.fn(msg) }, nil); err != nil {
			r.log.Error("message listener failed", "type", msg.Type, "err", err)
		}
	}
}

func (r *Router) storeGameState(payload any) {
	state, ok := payload.(protocol.GameStateData)
	if !ok {
		r.log.Warn("game state payload has unexpected type", "payload", fmt.Sprintf("%T", payload))
		return
	}
	if err := state.Validate(); err != nil {
		r.log.Warn("storing inconsistent game state", "err", err)
	}
	r.store.GameState.Set(state)
}

func (r *Router) invoke(h Handler, payload any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	h(payload)
	return nil
}
