package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripdesk/backend/internal/domain"
)

// PollRepo defines the persistence operations for polls and their choices.
// Polls are soft-deleted like trips.
type PollRepo interface {
	// Create inserts a poll with its department links and ordered choices in
	// one transaction. An unknown department id surfaces as
	// domain.ErrValidation.
	Create(ctx context.Context, poll domain.Poll) (domain.Poll, error)

	// GetByID retrieves a non-deleted poll with departments and choices
	// (in insertion order). Returns domain.ErrNotFound if absent or deleted.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error)

	// Update overwrites title/expiry, replaces the department set, and applies
	// the choice updates: an update carrying an id replaces that choice's text
	// and resets its tally to zero, deleting its vote rows so the poll's vote
	// sum stays consistent; an update without an id appends a new choice.
	// Returns domain.ErrNotFound if the poll is absent or deleted, or if an
	// update names a choice that does not belong to the poll.
	Update(ctx context.Context, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error)

	// MarkDeleted soft-deletes a poll, recording who deleted it.
	// Returns domain.ErrNotFound if absent or already deleted.
	MarkDeleted(ctx context.Context, id, byUser uuid.UUID) error

	// GetChoice retrieves a choice by primary key, regardless of poll state.
	GetChoice(ctx context.Context, choiceID uuid.UUID) (domain.Choice, error)
}

// pgPollRepo is the Postgres implementation of PollRepo.
type pgPollRepo struct {
	db txdb
}

// NewPollRepo constructs a PollRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPollRepo(db txdb) PollRepo {
	return &pgPollRepo{db: db}
}

const pollColumns = `id, title, expiry, created_by, created_at, updated_at`

// Create inserts the poll row, its department links, and its choices.
func (r *pgPollRepo) Create(ctx context.Context, poll domain.Poll) (domain.Poll, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO polls (title, expiry, created_by)
		VALUES (@title, @expiry, @created_by)
		RETURNING ` + pollColumns

	args := pgx.NamedArgs{
		"title":      poll.Title,
		"expiry":     poll.Expiry,
		"created_by": poll.CreatedBy,
	}

	result, err := scanPoll(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: %w", err)
	}

	if err := insertPollDepartments(ctx, tx, result.ID, poll.Departments); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: %w", err)
	}
	result.Departments = poll.Departments

	for i, choice := range poll.Choices {
		stored, err := insertChoice(ctx, tx, result.ID, choice.Text, i)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: choice: %w", err)
		}
		result.Choices = append(result.Choices, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: commit: %w", err)
	}
	return result, nil
}

// GetByID retrieves a non-deleted poll with departments and choices.
func (r *pgPollRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE id = @id AND NOT is_deleted`

	poll, err := scanPoll(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: %w", err)
	}

	poll.Departments, err = r.loadDepartments(ctx, id)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: %w", err)
	}

	poll.Choices, err = r.loadChoices(ctx, id)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: %w", err)
	}

	return poll, nil
}

// Update applies poll field changes, the department set, and the choice
// update semantics in one transaction.
func (r *pgPollRepo) Update(ctx context.Context, poll domain.Poll, choices []domain.ChoiceUpdate) (domain.Poll, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		UPDATE polls
		SET title      = @title,
		    expiry     = @expiry,
		    updated_at = now()
		WHERE id = @id AND NOT is_deleted
		RETURNING ` + pollColumns

	args := pgx.NamedArgs{
		"id":     poll.ID,
		"title":  poll.Title,
		"expiry": poll.Expiry,
	}

	result, err := scanPoll(tx.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: %w", err)
	}

	const del = `DELETE FROM poll_departments WHERE poll_id = @poll_id`
	if _, err := tx.Exec(ctx, del, pgx.NamedArgs{"poll_id": poll.ID}); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: %w", err)
	}
	if err := insertPollDepartments(ctx, tx, poll.ID, poll.Departments); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: %w", err)
	}
	result.Departments = poll.Departments

	// Next position for appended choices.
	var next int
	const maxQ = `SELECT COALESCE(MAX(position) + 1, 0) FROM choices WHERE poll_id = @poll_id`
	if err := tx.QueryRow(ctx, maxQ, pgx.NamedArgs{"poll_id": poll.ID}).Scan(&next); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: %w", err)
	}

	for _, cu := range choices {
		if cu.ID == nil {
			if _, err := insertChoice(ctx, tx, poll.ID, cu.Text, next); err != nil {
				return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: choice: %w", err)
			}
			next++
			continue
		}
		if err := resetChoice(ctx, tx, poll.ID, *cu.ID, cu.Text); err != nil {
			return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: choice: %w", err)
		}
	}

	result.Choices, err = loadChoicesWith(ctx, tx, poll.ID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Update: commit: %w", err)
	}
	return result, nil
}

// MarkDeleted soft-deletes a poll.
func (r *pgPollRepo) MarkDeleted(ctx context.Context, id, byUser uuid.UUID) error {
	const q = `
		UPDATE polls
		SET is_deleted = true,
		    deleted_at = now(),
		    deleted_by = @deleted_by,
		    updated_at = now()
		WHERE id = @id AND NOT is_deleted`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "deleted_by": byUser})
	if err != nil {
		return fmt.Errorf("repo.PollRepo.MarkDeleted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PollRepo.MarkDeleted: %w", domain.ErrNotFound)
	}
	return nil
}

// GetChoice retrieves a single choice by primary key.
func (r *pgPollRepo) GetChoice(ctx context.Context, choiceID uuid.UUID) (domain.Choice, error) {
	const q = `SELECT id, poll_id, text, votes FROM choices WHERE id = @id`

	result, err := scanChoice(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": choiceID}))
	if err != nil {
		return domain.Choice{}, fmt.Errorf("repo.PollRepo.GetChoice: %w", err)
	}
	return result, nil
}

// insertPollDepartments links a poll to each department id. An unknown
// department id is reported as domain.ErrValidation.
func insertPollDepartments(ctx context.Context, tx pgx.Tx, pollID uuid.UUID, departments []uuid.UUID) error {
	const q = `
		INSERT INTO poll_departments (poll_id, department_id)
		VALUES (@poll_id, @department_id)`

	for _, deptID := range departments {
		args := pgx.NamedArgs{"poll_id": pollID, "department_id": deptID}
		if _, err := tx.Exec(ctx, q, args); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: unknown department %s", domain.ErrValidation, deptID)
			}
			return err
		}
	}
	return nil
}

// insertChoice appends one choice at the given position.
func insertChoice(ctx context.Context, tx pgx.Tx, pollID uuid.UUID, text string, position int) (domain.Choice, error) {
	const q = `
		INSERT INTO choices (poll_id, text, position)
		VALUES (@poll_id, @text, @position)
		RETURNING id, poll_id, text, votes`

	args := pgx.NamedArgs{"poll_id": pollID, "text": text, "position": position}
	return scanChoice(tx.QueryRow(ctx, q, args))
}

// resetChoice replaces a choice's text and resets its tally. The choice's
// vote rows are deleted in the same transaction, keeping the sum of tallies
// equal to the number of vote rows in the poll.
func resetChoice(ctx context.Context, tx pgx.Tx, pollID, choiceID uuid.UUID, text string) error {
	const q = `
		UPDATE choices
		SET text       = @text,
		    votes      = 0,
		    updated_at = now()
		WHERE id = @id AND poll_id = @poll_id`

	tag, err := tx.Exec(ctx, q, pgx.NamedArgs{"id": choiceID, "poll_id": pollID, "text": text})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: choice %s not in poll", domain.ErrNotFound, choiceID)
	}

	const purge = `DELETE FROM votes WHERE choice_id = @choice_id`
	if _, err := tx.Exec(ctx, purge, pgx.NamedArgs{"choice_id": choiceID}); err != nil {
		return err
	}
	return nil
}

// loadDepartments returns the department ids linked to a poll.
func (r *pgPollRepo) loadDepartments(ctx context.Context, pollID uuid.UUID) ([]uuid.UUID, error) {
	const q = `
		SELECT department_id
		FROM poll_departments
		WHERE poll_id = @poll_id
		ORDER BY department_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"poll_id": pollID})
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

// loadChoices returns a poll's choices in insertion order.
func (r *pgPollRepo) loadChoices(ctx context.Context, pollID uuid.UUID) ([]domain.Choice, error) {
	return loadChoicesWith(ctx, r.db, pollID)
}

// loadChoicesWith is loadChoices over any db, so Update can read back inside
// its transaction.
func loadChoicesWith(ctx context.Context, db db, pollID uuid.UUID) ([]domain.Choice, error) {
	const q = `
		SELECT id, poll_id, text, votes
		FROM choices
		WHERE poll_id = @poll_id
		ORDER BY position, created_at`

	rows, err := db.Query(ctx, q, pgx.NamedArgs{"poll_id": pollID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []domain.Choice
	for rows.Next() {
		c, err := scanChoice(rows)
		if err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// scanPoll maps a single database row into a domain.Poll.
// Departments and choices are loaded separately.
func scanPoll(s scanner) (domain.Poll, error) {
	var (
		p       domain.Poll
		id      pgtype.UUID
		creator pgtype.UUID
	)

	err := s.Scan(&id, &p.Title, &p.Expiry, &creator, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.CreatedBy = uuid.UUID(creator.Bytes)
	return p, nil
}

// scanChoice maps a single database row into a domain.Choice.
func scanChoice(s scanner) (domain.Choice, error) {
	var (
		c      domain.Choice
		id     pgtype.UUID
		pollID pgtype.UUID
	)

	err := s.Scan(&id, &pollID, &c.Text, &c.Votes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Choice{}, domain.ErrNotFound
		}
		return domain.Choice{}, err
	}

	c.ID = uuid.UUID(id.Bytes)
	c.PollID = uuid.UUID(pollID.Bytes)
	return c, nil
}
