package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripdesk/backend/internal/domain"
)

// TripRepo defines the persistence operations for trips. Trips are
// soft-deleted: every read filters deleted rows, and deletion is the explicit
// MarkDeleted operation rather than a SQL DELETE.
type TripRepo interface {
	// Create inserts a trip together with its department links and attachment
	// metadata in one transaction, and returns the persisted record.
	// An unknown department id surfaces as domain.ErrValidation.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a non-deleted trip with its departments and
	// attachments. Returns domain.ErrNotFound if absent or deleted.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// Update overwrites the mutable fields (title, description, dates,
	// location) and replaces the department set. The expense group id and
	// attachments are not touched. Returns domain.ErrNotFound if absent or
	// deleted.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// MarkDeleted soft-deletes a trip, recording who deleted it.
	// Returns domain.ErrNotFound if absent or already deleted.
	MarkDeleted(ctx context.Context, id, byUser uuid.UUID) error

	// SetExpenseGroupID stores the remote expense group id. The column
	// transitions null → non-null exactly once; a second attempt returns
	// domain.ErrGroupExists.
	SetExpenseGroupID(ctx context.Context, id uuid.UUID, groupID string) error

	// ListStartingBetween returns non-deleted trips with
	// from <= start_date < to, without departments or attachments loaded.
	// Used by the reminder sweep.
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Trip, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db txdb
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db txdb) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, title, description, start_date, end_date, location,
	expense_group_id, created_by, created_at, updated_at`

// Create inserts the trip row, its department links, and its attachments.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO trips (title, description, start_date, end_date, location, created_by)
		VALUES (@title, @description, @start_date, @end_date, @location, @created_by)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"title":       trip.Title,
		"description": trip.Description,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
		"location":    trip.Location, // nil becomes NULL
		"created_by":  trip.CreatedBy,
	}

	result, err := scanTrip(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}

	if err := insertTripDepartments(ctx, tx, result.ID, trip.Departments); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	result.Departments = trip.Departments

	for _, a := range trip.Attachments {
		const aq = `
			INSERT INTO trip_attachments (trip_id, file_name, storage_key)
			VALUES (@trip_id, @file_name, @storage_key)
			RETURNING id, trip_id, file_name, storage_key, created_at`

		aargs := pgx.NamedArgs{
			"trip_id":     result.ID,
			"file_name":   a.FileName,
			"storage_key": a.StorageKey,
		}
		stored, err := scanAttachment(tx.QueryRow(ctx, aq, aargs))
		if err != nil {
			return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: attachment: %w", err)
		}
		result.Attachments = append(result.Attachments, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: commit: %w", err)
	}
	return result, nil
}

// GetByID retrieves a non-deleted trip and loads its department links and
// attachments.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = @id AND NOT is_deleted`

	trip, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	trip.Departments, err = r.loadDepartments(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	trip.Attachments, err = r.loadAttachments(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	return trip, nil
}

// Update overwrites the mutable trip fields and replaces the department set.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		UPDATE trips
		SET title       = @title,
		    description = @description,
		    start_date  = @start_date,
		    end_date    = @end_date,
		    location    = @location,
		    updated_at  = now()
		WHERE id = @id AND NOT is_deleted
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":          trip.ID,
		"title":       trip.Title,
		"description": trip.Description,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
		"location":    trip.Location,
	}

	result, err := scanTrip(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}

	const del = `DELETE FROM trip_departments WHERE trip_id = @trip_id`
	if _, err := tx.Exec(ctx, del, pgx.NamedArgs{"trip_id": trip.ID}); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	if err := insertTripDepartments(ctx, tx, trip.ID, trip.Departments); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	result.Departments = trip.Departments

	if err := tx.Commit(ctx); err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: commit: %w", err)
	}
	return result, nil
}

// MarkDeleted soft-deletes a trip.
func (r *pgTripRepo) MarkDeleted(ctx context.Context, id, byUser uuid.UUID) error {
	const q = `
		UPDATE trips
		SET is_deleted = true,
		    deleted_at = now(),
		    deleted_by = @deleted_by,
		    updated_at = now()
		WHERE id = @id AND NOT is_deleted`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "deleted_by": byUser})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.MarkDeleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.MarkDeleted: %w", domain.ErrNotFound)
	}
	return nil
}

// SetExpenseGroupID stores the remote group id, enforcing the null → non-null
// single transition in SQL.
func (r *pgTripRepo) SetExpenseGroupID(ctx context.Context, id uuid.UUID, groupID string) error {
	const q = `
		UPDATE trips
		SET expense_group_id = @expense_group_id,
		    updated_at       = now()
		WHERE id = @id AND NOT is_deleted AND expense_group_id IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "expense_group_id": groupID})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.SetExpenseGroupID: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the trip is gone or the group id is already set.
	const check = `SELECT expense_group_id FROM trips WHERE id = @id AND NOT is_deleted`
	var existing pgtype.Text
	err = r.db.QueryRow(ctx, check, pgx.NamedArgs{"id": id}).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("repo.TripRepo.SetExpenseGroupID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("repo.TripRepo.SetExpenseGroupID: %w", err)
	}
	return fmt.Errorf("repo.TripRepo.SetExpenseGroupID: %w", domain.ErrGroupExists)
}

// ListStartingBetween returns non-deleted trips whose start_date falls in
// [from, to). Departments and attachments are not loaded.
func (r *pgTripRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE NOT is_deleted AND start_date >= @from AND start_date < @to
		ORDER BY start_date`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"from": from, "to": to})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListStartingBetween: %w", err)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.ListStartingBetween: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListStartingBetween: rows: %w", err)
	}

	return trips, nil
}

// insertTripDepartments links a trip to each department id. An unknown
// department id is reported as domain.ErrValidation.
func insertTripDepartments(ctx context.Context, tx pgx.Tx, tripID uuid.UUID, departments []uuid.UUID) error {
	const q = `
		INSERT INTO trip_departments (trip_id, department_id)
		VALUES (@trip_id, @department_id)`

	for _, deptID := range departments {
		args := pgx.NamedArgs{"trip_id": tripID, "department_id": deptID}
		if _, err := tx.Exec(ctx, q, args); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: unknown department %s", domain.ErrValidation, deptID)
			}
			return err
		}
	}
	return nil
}

// loadDepartments returns the department ids linked to a trip.
func (r *pgTripRepo) loadDepartments(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	const q = `
		SELECT department_id
		FROM trip_departments
		WHERE trip_id = @trip_id
		ORDER BY department_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uuid.UUID(id.Bytes))
	}
	return ids, rows.Err()
}

// loadAttachments returns the attachment metadata rows of a trip.
func (r *pgTripRepo) loadAttachments(ctx context.Context, tripID uuid.UUID) ([]domain.Attachment, error) {
	const q = `
		SELECT id, trip_id, file_name, storage_key, created_at
		FROM trip_attachments
		WHERE trip_id = @trip_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// scanTrip maps a single database row into a domain.Trip.
// Departments and attachments are loaded separately.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t       domain.Trip
		id      pgtype.UUID
		groupID pgtype.Text
		creator pgtype.UUID
	)

	err := s.Scan(&id, &t.Title, &t.Description, &t.StartDate, &t.EndDate,
		&t.Location, &groupID, &creator, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.CreatedBy = uuid.UUID(creator.Bytes)
	if groupID.Valid {
		g := groupID.String
		t.ExpenseGroupID = &g
	}

	return t, nil
}

// scanAttachment maps a single database row into a domain.Attachment.
func scanAttachment(s scanner) (domain.Attachment, error) {
	var (
		a      domain.Attachment
		id     pgtype.UUID
		tripID pgtype.UUID
	)

	err := s.Scan(&id, &tripID, &a.FileName, &a.StorageKey, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Attachment{}, domain.ErrNotFound
		}
		return domain.Attachment{}, err
	}

	a.ID = uuid.UUID(id.Bytes)
	a.TripID = uuid.UUID(tripID.Bytes)
	return a, nil
}
