package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is the middleman between one websocket connection and the realtime
// core. Identity is unknown until the join handshake binds a user to it.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	stop   sync.Once
	userID atomic.Int64 // 0 until join
	// authorizedID is the identity the transport authenticated with; the
	// join handshake may only claim this. Written once before the read
	// pump starts.
	authorizedID int64
	log          *slog.Logger
}

func newClient(id string, conn *websocket.Conn, log *slog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (c *Client) ID() string { return c.id }

// UserID returns the bound identity, 0 when the connection is anonymous.
func (c *Client) UserID() int64 { return c.userID.Load() }

// Enqueue hands an outbound frame to the write pump without blocking.
// Events to a saturated or dying connection are dropped; delivery here is
// best-effort by contract.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close releases the write pump and the underlying transport. Safe to call
// more than once; late Enqueues after close are dropped, never a panic.
func (c *Client) close() {
	c.stop.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump pumps inbound frames into the handler. It owns the read side of
// the connection and triggers presence cleanup when the transport closes.
func (c *Client) readPump(h *Handler) {
	defer func() {
		h.closeClient(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("unexpected close", "conn_id", c.id, "error", err)
			}
			break
		}
		if len(data) > 0 {
			h.route(c, data)
		}
	}
}

// writePump drains the send channel onto the wire, coalescing queued frames
// into a single write, and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
