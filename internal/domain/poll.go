package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Poll is a departmental question with an ordered set of choices and a hard
// expiry. Votes are only accepted strictly before Expiry.
type Poll struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Expiry      time.Time   `json:"expiry"`
	Departments []uuid.UUID `json:"departments"`
	Choices     []Choice    `json:"choices"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Expired reports whether the poll no longer accepts votes at the given instant.
func (p Poll) Expired(now time.Time) bool {
	return !now.Before(p.Expiry)
}

// OpenToDepartment reports whether users of the given department may vote.
func (p Poll) OpenToDepartment(dept uuid.UUID) bool {
	for _, d := range p.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// TotalVotes sums the denormalized per-choice tallies.
func (p Poll) TotalVotes() int {
	total := 0
	for _, c := range p.Choices {
		total += c.Votes
	}
	return total
}

// Choice is one answer option of a poll. Votes is a denormalized count of the
// vote rows referencing this choice; the ledger keeps it consistent with them.
type Choice struct {
	ID     uuid.UUID `json:"id"`
	PollID uuid.UUID `json:"poll_id"`
	Text   string    `json:"text"`
	Votes  int       `json:"votes"`
}

// Percentage returns this choice's share of totalVotes as a percentage
// rounded to two decimals, and 0.0 when totalVotes is zero. It is a read-time
// derivation and is never stored.
func (c Choice) Percentage(totalVotes int) float64 {
	if totalVotes == 0 {
		return 0.0
	}
	return roundTwo(float64(c.Votes) / float64(totalVotes) * 100)
}

// ChoiceUpdate is one entry of a poll-update payload. A non-nil ID replaces
// the text of the existing choice (resetting its tally); a nil ID appends a
// new choice.
type ChoiceUpdate struct {
	ID   *uuid.UUID
	Text string
}

// roundTwo rounds half away from zero to two decimal places.
func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
