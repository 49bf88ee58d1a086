package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripMembership records one user's interest status on one trip.
// At most one row exists per (user, trip); the first interest signal creates
// it and every later signal mutates the same row in place. Rows are never
// deleted by normal flow.
type TripMembership struct {
	ID         uuid.UUID `json:"id"`
	TripID     uuid.UUID `json:"trip_id"`
	UserID     uuid.UUID `json:"user_id"`
	Interested bool      `json:"interested"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RemoteSync describes what happened to the best-effort provider sync that a
// membership mutation may trigger. The local write has already committed by
// the time any non-zero value is produced.
type RemoteSync int

const (
	// RemoteSyncNone means no sync was attempted (not interested, or the trip
	// has no expense group yet).
	RemoteSyncNone RemoteSync = iota
	// RemoteSyncSynced means the user was added to the remote group.
	RemoteSyncSynced
	// RemoteSyncDeferred means the provider call timed out; the local state is
	// kept and the sync may be retried later (AddUserToGroup is idempotent).
	RemoteSyncDeferred
	// RemoteSyncFailed means the provider rejected the call; see SyncErr.
	RemoteSyncFailed
)

// String returns the wire representation used in API responses.
func (s RemoteSync) String() string {
	switch s {
	case RemoteSyncSynced:
		return "synced"
	case RemoteSyncDeferred:
		return "deferred"
	case RemoteSyncFailed:
		return "failed"
	default:
		return "none"
	}
}

// MembershipOutcome is the result of a SetInterest call: the committed row,
// whether it was created or updated, and the fate of the remote sync.
type MembershipOutcome struct {
	Membership TripMembership
	Created    bool
	Sync       RemoteSync
	// SyncErr carries the error that deferred or failed the sync; it is nil
	// when Sync is RemoteSyncNone or RemoteSyncSynced.
	SyncErr error
}
