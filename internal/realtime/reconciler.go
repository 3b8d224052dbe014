package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ReadStore is the persistence boundary for read-state transitions.
// Implemented by the chat repository.
type ReadStore interface {
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	// MarkConversationRead updates the reader's last-read marker and flips
	// every message in the conversation not authored by the reader and not
	// already read to read, in one transaction. Status never regresses:
	// the statement excludes rows already at read, so repeated calls are
	// idempotent and sent -> delivered -> read stays monotonic.
	MarkConversationRead(ctx context.Context, conversationID, userID int64) error
}

// Reconciler absorbs delivery/read acknowledgements from clients, persists
// the resulting read-state and re-broadcasts it to the other participants.
type Reconciler struct {
	store      ReadStore
	dispatcher *Dispatcher
	log        *slog.Logger
}

func NewReconciler(log *slog.Logger, store ReadStore, dispatcher *Dispatcher) *Reconciler {
	return &Reconciler{store: store, dispatcher: dispatcher, log: log}
}

// ReadConversation records that userID has read conversationID up to now,
// then announces the catch-up to the room. Persistence and broadcast run as
// one logical unit so clients never observe a read announcement whose
// persisted counterpart was rejected. Persistence errors propagate to the
// caller; the follow-up broadcast is best-effort.
func (r *Reconciler) ReadConversation(ctx context.Context, conversationID, userID int64) error {
	ctx, span := tracer.Start(ctx, "Reconciler.ReadConversation",
		trace.WithAttributes(
			attribute.String("conversation_id", strconv.FormatInt(conversationID, 10)),
			attribute.String("user_id", strconv.FormatInt(userID, 10)),
		))
	defer span.End()

	ok, err := r.store.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "participant check failed")
		return fmt.Errorf("%w: participant check: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		return ErrNotAParticipant
	}

	if err := r.store.MarkConversationRead(ctx, conversationID, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return fmt.Errorf("mark conversation %d read: %w", conversationID, err)
	}

	if err := r.dispatcher.EmitToConversation(ctx, conversationID, EventMessagesRead, ConversationReadPayload{
		ConversationID: conversationID,
		ReadBy:         userID,
	}); err != nil {
		r.log.ErrorContext(ctx, "read broadcast failed",
			"conversation_id", conversationID, "user_id", userID, "error", err)
	}
	return nil
}

// BroadcastMessageRead relays a per-message read acknowledgement to the
// conversation room. This is the socket-driven path: fire-and-forget with
// respect to persistence, kept for clients that ack individual messages as
// they render them. A peer can therefore see this broadcast before the
// corresponding persisted state commits; that race is accepted.
func (r *Reconciler) BroadcastMessageRead(ctx context.Context, messageID, conversationID, readerID int64) {
	err := r.dispatcher.EmitToConversation(ctx, conversationID, EventMessageRead, ReadPayload{
		MessageID:      messageID,
		ConversationID: conversationID,
		ReadBy:         readerID,
	})
	if err != nil {
		r.log.ErrorContext(ctx, "message_read broadcast failed",
			"message_id", messageID, "conversation_id", conversationID, "error", err)
	}
}
