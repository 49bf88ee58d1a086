package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a user's current ballot within one poll. Uniqueness is physically
// enforced per (user, choice); the ledger's poll-scoped lookup and per-user
// serialization keep it to at most one active vote per user per poll.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ChoiceID  uuid.UUID `json:"choice_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteResult names the three toggle outcomes of casting a vote.
type VoteResult int

const (
	// VoteAdded: the user had no ballot in this poll; one was created.
	VoteAdded VoteResult = iota + 1
	// VoteRemoved: the user re-selected their current choice; the ballot was withdrawn.
	VoteRemoved
	// VoteUpdated: the ballot moved to a different choice of the same poll.
	VoteUpdated
)

// String returns the wire representation used in API responses.
func (r VoteResult) String() string {
	switch r {
	case VoteAdded:
		return "vote added"
	case VoteRemoved:
		return "vote removed"
	case VoteUpdated:
		return "vote updated"
	default:
		return "unknown"
	}
}

// VoteOutcome reports what a cast did and the choice tallies after commit.
type VoteOutcome struct {
	Result VoteResult
	// Choice is the requested choice with its post-commit tally.
	Choice Choice
	// Previous is set only for VoteUpdated: the choice the ballot left,
	// with its post-commit tally.
	Previous *Choice
}
