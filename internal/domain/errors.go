package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist (or has been soft-deleted).
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, expiry in the past).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNotAuthorized is returned when the acting user is not allowed to perform
// the operation (wrong department, non-creator mutation attempt).
// Handlers map department failures to HTTP 400 and creator failures to 403.
var ErrNotAuthorized = errors.New("not authorized")

// ErrConflict is returned when the current state of an entity forbids the
// requested mutation. It is the parent of the specific conflict errors below;
// errors.Is(err, ErrConflict) matches all of them.
var ErrConflict = errors.New("state conflict")

// Specific failures. Each wraps its taxonomy parent so callers can match at
// either granularity with errors.Is.
var (
	// ErrTripStarted rejects interest toggles once the trip's start date has passed.
	ErrTripStarted = fmt.Errorf("%w: trip already started", ErrConflict)

	// ErrPollExpired rejects votes on polls whose expiry has passed.
	ErrPollExpired = fmt.Errorf("%w: poll expired", ErrConflict)

	// ErrDuplicateMembership surfaces a concurrent duplicate-create of the same
	// (user, trip) membership row, translated from the unique-constraint violation.
	ErrDuplicateMembership = fmt.Errorf("%w: membership already exists", ErrConflict)

	// ErrGroupExists rejects a second remote-group creation for the same trip;
	// the expense group id is set at most once.
	ErrGroupExists = fmt.Errorf("%w: trip already has an expense group", ErrConflict)

	// ErrWrongDepartment rejects actions by users whose department is not among
	// the entity's departments.
	ErrWrongDepartment = fmt.Errorf("%w: department not allowed", ErrNotAuthorized)
)
