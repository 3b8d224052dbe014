package realtime

import "errors"

var (
	// ErrStorageUnavailable scopes a failed membership or persistence lookup
	// to the single dispatch or operation that hit it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotAParticipant rejects read/act attempts on conversations the user
	// does not belong to. No storage mutation, no fan-out.
	ErrNotAParticipant = errors.New("not a participant of this conversation")
)
