package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/config"
	"github.com/wricardo/scribble-client/game/store"
)

// testServer stands in for the game server
type testServer struct {
	*httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	headers  chan http.Header
	attempts atomic.Int32
	reject   atomic.Bool

	mu   sync.Mutex
	open []*websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		conns:   make(chan *websocket.Conn, 16),
		headers: make(chan http.Header, 16),
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.attempts.Add(1)
		if ts.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		ws, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		ts.mu.Lock()
		ts.open = append(ts.open, ws)
		ts.mu.Unlock()

		ts.headers <- r.Header
		ts.conns <- ws
	}))

	t.Cleanup(func() {
		ts.mu.Lock()
		for _, ws := range ts.open {
			ws.Close()
		}
		ts.mu.Unlock()
		ts.Close()
	})
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

// accept waits for the next client connection
func (ts *testServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-ts.conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for client connection")
		return nil
	}
}

// expectNoConnection fails if a client connects within d
func (ts *testServer) expectNoConnection(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-ts.conns:
		t.Fatal("Unexpected client connection")
	case <-time.After(d):
	}
}

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.URL = url
	cfg.ReconnectDelay = config.Duration(200 * time.Millisecond)
	cfg.MaxReconnectDelay = cfg.ReconnectDelay
	cfg.HandshakeTimeout = config.Duration(time.Second)
	return cfg
}

// logRecorder captures log records for assertions
type logRecorder struct {
	mu      sync.Mutex
	records []log15.Record
}

func newLogRecorder() (*logRecorder, log15.Logger) {
	rec := &logRecorder{}
	logger := log15.New()
	logger.SetHandler(log15.FuncHandler(func(r log15.Record) error {
		rec.mu.Lock()
		rec.records = append(rec.records, r)
		rec.mu.Unlock()
		return nil
	}))
	return rec, logger
}

func (r *logRecorder) has(lvl log15.Lvl, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Lvl == lvl && rec.Msg == msg {
			return true
		}
	}
	return false
}

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

// startManager builds a manager against cfg and runs its loop until the test
// ends.
func startManager(t *testing.T, cfg *config.Config, logger log15.Logger) (*Manager, *Router, *store.StateStore) {
	t.Helper()

	st := store.NewStateStore()
	router := NewRouter(st, WithLogger(logger))
	m := NewManager(cfg, router, st, WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, router, st
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func writeFrame(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}
