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

// VoteRepo performs the vote toggle. All three outcomes run in a single
// transaction so the denormalized choice tallies always match the vote rows.
type VoteRepo interface {
	// Cast applies one toggle for (user, poll, choice):
	//
	//   no vote in the poll      → insert + increment   (VoteAdded)
	//   vote on the same choice  → delete + decrement   (VoteRemoved)
	//   vote on another choice   → reassign + decrement old + increment new
	//                              (VoteUpdated)
	//
	// Tally changes are atomic SQL deltas, never read-modify-write. Casts by
	// the same user in the same poll serialize on a transaction-scoped
	// advisory lock; different users never contend. Returns domain.ErrNotFound
	// if the choice does not belong to the poll.
	Cast(ctx context.Context, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error)
}

// pgVoteRepo is the Postgres implementation of VoteRepo.
type pgVoteRepo struct {
	db txdb
}

// NewVoteRepo constructs a VoteRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewVoteRepo(db txdb) VoteRepo {
	return &pgVoteRepo{db: db}
}

// Cast runs the toggle transaction.
func (r *pgVoteRepo) Cast(ctx context.Context, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	outcome, err := r.toggle(ctx, tx, userID, pollID, choiceID)
	if err != nil {
		return domain.VoteOutcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: commit: %w", err)
	}
	return outcome, nil
}

// toggle decides and applies one of the three outcomes inside tx.
func (r *pgVoteRepo) toggle(ctx context.Context, tx pgx.Tx, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	// Serialize same-user casts within this poll. The lock is keyed on
	// (user, poll) so users voting in different polls, or different users in
	// the same poll, proceed in parallel. It releases at transaction end.
	const lockQ = `SELECT pg_advisory_xact_lock(hashtextextended(@key, 0))`
	lockKey := userID.String() + ":" + pollID.String()
	if _, err := tx.Exec(ctx, lockQ, pgx.NamedArgs{"key": lockKey}); err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: lock: %w", err)
	}

	// The user's current ballot anywhere in this poll, if any.
	const currentQ = `
		SELECT v.id, v.choice_id
		FROM votes v
		JOIN choices c ON c.id = v.choice_id
		WHERE v.user_id = @user_id AND c.poll_id = @poll_id`

	var (
		voteID    pgtype.UUID
		currentID pgtype.UUID
	)
	err := tx.QueryRow(ctx, currentQ, pgx.NamedArgs{"user_id": userID, "poll_id": pollID}).
		Scan(&voteID, &currentID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return r.castNew(ctx, tx, userID, pollID, choiceID)
	case err != nil:
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	if uuid.UUID(currentID.Bytes) == choiceID {
		return r.castRemove(ctx, tx, uuid.UUID(voteID.Bytes), pollID, choiceID)
	}
	return r.castReassign(ctx, tx, uuid.UUID(voteID.Bytes), pollID, uuid.UUID(currentID.Bytes), choiceID)
}

// castNew inserts a ballot and increments the choice tally.
func (r *pgVoteRepo) castNew(ctx context.Context, tx pgx.Tx, userID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	const ins = `INSERT INTO votes (user_id, choice_id) VALUES (@user_id, @choice_id)`
	if _, err := tx.Exec(ctx, ins, pgx.NamedArgs{"user_id": userID, "choice_id": choiceID}); err != nil {
		if isUniqueViolation(err, "votes_user_choice_key") {
			// Backstop for a duplicate that slipped past the advisory lock.
			return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w: vote already recorded", domain.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", domain.ErrNotFound)
		}
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	choice, err := bumpTally(ctx, tx, pollID, choiceID, +1)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}
	return domain.VoteOutcome{Result: domain.VoteAdded, Choice: choice}, nil
}

// castRemove withdraws the ballot and decrements the choice tally.
func (r *pgVoteRepo) castRemove(ctx context.Context, tx pgx.Tx, voteID uuid.UUID, pollID, choiceID uuid.UUID) (domain.VoteOutcome, error) {
	const del = `DELETE FROM votes WHERE id = @id`
	if _, err := tx.Exec(ctx, del, pgx.NamedArgs{"id": voteID}); err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	choice, err := bumpTally(ctx, tx, pollID, choiceID, -1)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}
	return domain.VoteOutcome{Result: domain.VoteRemoved, Choice: choice}, nil
}

// castReassign moves the ballot to another choice of the same poll.
func (r *pgVoteRepo) castReassign(ctx context.Context, tx pgx.Tx, voteID uuid.UUID, pollID, fromChoice, toChoice uuid.UUID) (domain.VoteOutcome, error) {
	// Increment the target first: its WHERE clause proves the target choice
	// belongs to this poll before the ballot moves anywhere.
	newChoice, err := bumpTally(ctx, tx, pollID, toChoice, +1)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	const upd = `UPDATE votes SET choice_id = @choice_id WHERE id = @id`
	if _, err := tx.Exec(ctx, upd, pgx.NamedArgs{"id": voteID, "choice_id": toChoice}); err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	oldChoice, err := bumpTally(ctx, tx, pollID, fromChoice, -1)
	if err != nil {
		return domain.VoteOutcome{}, fmt.Errorf("repo.VoteRepo.Cast: %w", err)
	}

	return domain.VoteOutcome{
		Result:   domain.VoteUpdated,
		Choice:   newChoice,
		Previous: &oldChoice,
	}, nil
}

// bumpTally applies an atomic tally delta and returns the choice with its new
// count. Returns domain.ErrNotFound when the choice is not in the poll.
func bumpTally(ctx context.Context, tx pgx.Tx, pollID, choiceID uuid.UUID, delta int) (domain.Choice, error) {
	const q = `
		UPDATE choices
		SET votes      = votes + @delta,
		    updated_at = now()
		WHERE id = @id AND poll_id = @poll_id
		RETURNING id, poll_id, text, votes`

	args := pgx.NamedArgs{"id": choiceID, "poll_id": pollID, "delta": delta}
	choice, err := scanChoice(tx.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Choice{}, fmt.Errorf("%w: choice %s not in poll", domain.ErrNotFound, choiceID)
		}
		return domain.Choice{}, err
	}
	return choice, nil
}
