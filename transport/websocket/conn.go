package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15/v3"
	"github.com/wricardo/scribble-client/game/config"
)

// conn is one established server connection. Its pumps turn socket activity
// into events for the manager and drain the outbound queue.
type conn struct {
	id   string
	gen  uint64
	ws   *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
	push func(event) bool
	log  log15.Logger

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

func newConn(id string, gen uint64, ws *websocket.Conn, cfg *config.Config, push func(event) bool, logger log15.Logger) *conn {
	return &conn{
		id:             id,
		gen:            gen,
		ws:             ws,
		send:           make(chan []byte, cfg.SendBuffer),
		quit:           make(chan struct{}),
		push:           push,
		log:            logger.New("conn", id),
		writeWait:      cfg.WriteWait.Std(),
		pongWait:       cfg.PongWait.Std(),
		pingPeriod:     cfg.PingPeriod(),
		maxMessageSize: cfg.MaxMessageSize,
	}
}

func (c *conn) start() {
	go c.writePump()
	go c.readPump()
}

// enqueue hands a frame to the write pump without blocking
func (c *conn) enqueue(frame []byte) bool {
	select {
	case <-c.quit:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close asks the write pump to send a close frame and shut the socket. The
// read pump then fails and reports the close.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.quit)
	})
}

// readPump pumps frames from the server to the manager
func (c *conn) readPump() {
	c.ws.SetReadLimit(c.maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.push(event{kind: eventErrored, gen: c.gen, err: err})
			}
			c.push(event{kind: eventClosed, gen: c.gen, err: err})
			c.close()
			return
		}
		c.push(event{kind: eventFrame, gen: c.gen, data: data})
	}
}

// writePump pumps queued frames and keepalive pings to the server
func (c *conn) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("ping failed", "err", err)
				return
			}

		case <-c.quit:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			return
		}
	}
}

func (c *conn) closing() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}
