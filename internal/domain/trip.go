// Package domain contains the core data types for the Tripdesk application.
// This package depends only on uuid and decimal and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Trip represents a planned outing owned by its creator and visible to one
// or more departments. A trip is the top-level aggregate; memberships and
// attachments belong to a trip.
type Trip struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Location    json.RawMessage `json:"location,omitempty"` // raw JSON document, stored as-is
	Departments []uuid.UUID     `json:"departments"`

	// ExpenseGroupID is the opaque id of the remote expense-splitting group.
	// It is nil until the group is created and transitions nil → non-nil
	// exactly once; it is never rewritten afterwards.
	ExpenseGroupID *string `json:"expense_group_id,omitempty"`

	// Attachments is the file metadata stored alongside the trip.
	Attachments []Attachment `json:"attachments,omitempty"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Started reports whether the trip has already started at the given instant.
// Interest toggles are rejected once this is true.
func (t Trip) Started(now time.Time) bool {
	return !now.Before(t.StartDate)
}

// OpenToDepartment reports whether users of the given department may act on
// this trip.
func (t Trip) OpenToDepartment(dept uuid.UUID) bool {
	for _, d := range t.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// Attachment is a file attached to a trip. Only metadata is kept here; the
// blob itself lives in external storage referenced by StorageKey.
type Attachment struct {
	ID         uuid.UUID `json:"id"`
	TripID     uuid.UUID `json:"trip_id"`
	FileName   string    `json:"file_name"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}
