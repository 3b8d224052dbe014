package realtime

import (
	"context"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("realtime")

// Outbox buffers messages whose fan-out failed so they can be retried later.
type Outbox interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Dispatcher fans a persisted message out to every currently-reachable
// participant. Emission is at-most-once and best-effort: it is driven purely
// by registry state at dispatch time, with no transport-level receipt and no
// per-connection retry. Callers must not dispatch the same message twice; the
// dispatcher performs no de-duplication.
type Dispatcher struct {
	presence *Presence
	rooms    *Rooms
	outbox   Outbox // optional
	log      *slog.Logger
}

func NewDispatcher(log *slog.Logger, presence *Presence, rooms *Rooms, outbox Outbox) *Dispatcher {
	return &Dispatcher{
		presence: presence,
		rooms:    rooms,
		outbox:   outbox,
		log:      log,
	}
}

// Dispatch delivers msg to all connections of all online participants, then
// confirms delivery to the sender once per reachable recipient. Errors never
// reach the caller: a failed membership lookup is logged, the message is
// parked on the outbox, and unrelated connections are unaffected.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Dispatch",
		trace.WithAttributes(
			attribute.String("message_id", strconv.FormatInt(msg.ID, 10)),
			attribute.String("conversation_id", strconv.FormatInt(msg.ConversationID, 10)),
		))
	defer span.End()

	if err := d.deliver(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fan-out failed")
		d.log.ErrorContext(ctx, "dispatch failed",
			"message_id", msg.ID, "conversation_id", msg.ConversationID, "error", err)
		if d.outbox != nil {
			if err := d.outbox.Enqueue(ctx, msg); err != nil {
				d.log.ErrorContext(ctx, "outbox enqueue failed",
					"message_id", msg.ID, "error", err)
			}
		}
	}
}

// Redeliver is the retry path used by the outbox worker. Unlike Dispatch it
// reports the failure instead of re-enqueueing, so the worker controls pacing.
func (d *Dispatcher) Redeliver(ctx context.Context, msg Message) error {
	return d.deliver(ctx, msg)
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	participants, err := d.rooms.ParticipantsOf(ctx, msg.ConversationID)
	if err != nil {
		return err
	}

	frame, err := Encode(EventNewMessage, msg)
	if err != nil {
		return err
	}

	// Fan-out is per-connection: a user reading on two devices gets the
	// event on both.
	for _, userID := range participants {
		for _, conn := range d.presence.ConnectionsFor(userID) {
			if !conn.Enqueue(frame) {
				d.log.DebugContext(ctx, "event dropped",
					"conn_id", conn.ID(), "user_id", userID, "event", EventNewMessage)
			}
		}
	}

	senderConns := d.presence.ConnectionsFor(msg.SenderID)
	if len(senderConns) == 0 {
		return nil
	}

	ack, err := Encode(EventMessageDelivered, DeliveredPayload{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
	})
	if err != nil {
		return err
	}

	// One delivery confirmation per online recipient, addressed to the
	// sender's connections. "Online at dispatch time" is the whole signal;
	// a recipient vanishing mid-emission still counts as delivered.
	for _, userID := range participants {
		if userID == msg.SenderID || !d.presence.IsOnline(userID) {
			continue
		}
		for _, conn := range senderConns {
			conn.Enqueue(ack)
		}
	}
	return nil
}

// EmitToUser pushes an event to every connection of a single user, the
// personal-channel path used for notification delivery. Offline users are
// skipped silently.
func (d *Dispatcher) EmitToUser(userID int64, event string, data any) {
	conns := d.presence.ConnectionsFor(userID)
	if len(conns) == 0 {
		return
	}
	frame, err := Encode(event, data)
	if err != nil {
		d.log.Error("encode event failed", "event", event, "error", err)
		return
	}
	for _, conn := range conns {
		conn.Enqueue(frame)
	}
}

// EmitToConversation broadcasts an event to all connections of all
// participants of a conversation. Membership failures surface so the caller
// can decide whether to report them.
func (d *Dispatcher) EmitToConversation(ctx context.Context, conversationID int64, event string, data any) error {
	participants, err := d.rooms.ParticipantsOf(ctx, conversationID)
	if err != nil {
		return err
	}
	frame, err := Encode(event, data)
	if err != nil {
		return err
	}
	for _, userID := range participants {
		for _, conn := range d.presence.ConnectionsFor(userID) {
			conn.Enqueue(frame)
		}
	}
	return nil
}
