package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-social/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the proxy in front of us.
		return true
	},
}

// Handler upgrades authenticated requests to websocket connections and
// routes their inbound events to the dispatcher and reconciler. Each
// connection is serviced by its own goroutine, so a blocking membership
// lookup stalls only the connection that triggered it.
type Handler struct {
	presence   *Presence
	dispatcher *Dispatcher
	reconciler *Reconciler
	log        *slog.Logger
}

func NewHandler(log *slog.Logger, presence *Presence, dispatcher *Dispatcher, reconciler *Reconciler) *Handler {
	return &Handler{
		presence:   presence,
		dispatcher: dispatcher,
		reconciler: reconciler,
		log:        log,
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	authedID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn, h.log)
	// Identity stays unbound until the client sends its join handshake;
	// authedID is only the identity the join is allowed to claim.
	h.log.Debug("connection open", "conn_id", client.id, "user_id", authedID)

	go client.writePump()
	go func() {
		client.authorizedID = authedID
		client.readPump(h)
	}()
}

// route handles one inbound frame. Events are processed in the connection's
// read goroutine: FIFO per connection, independent across connections.
func (h *Handler) route(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(c, "bad_frame", "malformed event envelope")
		return
	}

	ctx := context.Background()

	switch env.Event {
	case EventJoin:
		h.onJoin(c, env.Data)

	case EventSendMessage:
		if c.UserID() == 0 {
			h.sendError(c, "not_joined", "join before sending messages")
			return
		}
		var msg Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			h.sendError(c, "bad_payload", "malformed message payload")
			return
		}
		// The sender on the wire must be the joined identity; a forged
		// sender id would misdirect the delivery confirmations.
		if msg.SenderID != c.UserID() {
			h.sendError(c, "sender_mismatch", "sender does not match joined identity")
			return
		}
		h.dispatcher.Dispatch(ctx, msg)

	case EventMessageRead:
		if c.UserID() == 0 {
			h.sendError(c, "not_joined", "join before acknowledging reads")
			return
		}
		var ack ReadPayload
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			h.sendError(c, "bad_payload", "malformed read payload")
			return
		}
		h.reconciler.BroadcastMessageRead(ctx, ack.MessageID, ack.ConversationID, c.UserID())

	default:
		h.log.Debug("unknown event ignored", "conn_id", c.id, "event", env.Event)
	}
}

// onJoin binds the connection to its user identity and registers presence.
// The claimed identity must match the token the connection authenticated
// with; anything else is rejected without touching the registry.
func (h *Handler) onJoin(c *Client, data []byte) {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(c, "bad_payload", "malformed join payload")
		return
	}
	if payload.UserID != c.authorizedID {
		h.sendError(c, "identity_mismatch", "join identity does not match credentials")
		return
	}

	c.userID.Store(payload.UserID)
	h.presence.Register(payload.UserID, c)
	h.log.Info("user joined", "conn_id", c.id, "user_id", payload.UserID)
}

// closeClient tears a connection down: presence entry removed synchronously,
// no grace period, no reconnect buffering.
func (h *Handler) closeClient(c *Client) {
	h.presence.Unregister(c.id)
	c.close()
	h.log.Debug("connection closed", "conn_id", c.id, "user_id", c.UserID())
}

func (h *Handler) sendError(c *Client, code, msg string) {
	frame, err := Encode(EventError, ErrorPayload{Code: code, Message: msg})
	if err != nil {
		return
	}
	c.Enqueue(frame)
}
