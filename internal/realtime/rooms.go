package realtime

import (
	"context"
	"fmt"
	"time"
)

// ParticipantSource is the storage boundary for conversation membership.
// Implemented by the chat repository.
type ParticipantSource interface {
	ConversationParticipants(ctx context.Context, conversationID int64) ([]int64, error)
}

// Rooms resolves which users should receive events for a conversation.
// Membership is externally mutable, so it is fetched per dispatch and never
// cached across calls; staleness would mis-deliver or miss delivery.
type Rooms struct {
	source  ParticipantSource
	timeout time.Duration
}

func NewRooms(source ParticipantSource, timeout time.Duration) *Rooms {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Rooms{source: source, timeout: timeout}
}

// ParticipantsOf fetches the authoritative member list. A lookup failure or
// expiry surfaces as ErrStorageUnavailable and fails that dispatch only.
func (r *Rooms) ParticipantsOf(ctx context.Context, conversationID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	participants, err := r.source.ConversationParticipants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: participants of conversation %d: %v",
			ErrStorageUnavailable, conversationID, err)
	}
	return participants, nil
}

// ExcludingSender is the fan-out view: everyone but the author.
func (r *Rooms) ExcludingSender(ctx context.Context, conversationID, senderID int64) ([]int64, error) {
	participants, err := r.ParticipantsOf(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	recipients := participants[:0]
	for _, id := range participants {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}
	return recipients, nil
}
