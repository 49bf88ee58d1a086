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

// MembershipRepo defines the persistence operations for trip memberships.
// A membership row is created on the first interest signal and mutated in
// place afterwards; it is never deleted in the normal flow.
type MembershipRepo interface {
	// InsertNew creates the membership row for (user, trip). A concurrent or
	// repeated insert surfaces the unique constraint as
	// domain.ErrDuplicateMembership, never as a raw database error.
	InsertNew(ctx context.Context, m domain.TripMembership) (domain.TripMembership, error)

	// UpdateInterest flips the interested flag on an existing row.
	// Returns domain.ErrNotFound if the row does not exist.
	UpdateInterest(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.TripMembership, error)

	// Get retrieves the membership row for (user, trip).
	// Returns domain.ErrNotFound if the user never signalled interest.
	Get(ctx context.Context, userID, tripID uuid.UUID) (domain.TripMembership, error)

	// ListInterested returns the profiles of users currently interested in
	// the trip, ordered by email for determinism.
	ListInterested(ctx context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error)
}

// pgMembershipRepo is the Postgres implementation of MembershipRepo.
type pgMembershipRepo struct {
	db db
}

// NewMembershipRepo constructs a MembershipRepo backed by the provided db connection.
func NewMembershipRepo(db db) MembershipRepo {
	return &pgMembershipRepo{db: db}
}

const membershipColumns = `id, trip_id, user_id, interested, created_at, updated_at`

// InsertNew creates the membership row. This is deliberately an INSERT, not
// an upsert: two concurrent first-time signals must produce one row and one
// domain.ErrDuplicateMembership, so the loser can retry as an update.
func (r *pgMembershipRepo) InsertNew(ctx context.Context, m domain.TripMembership) (domain.TripMembership, error) {
	const q = `
		INSERT INTO trip_members (trip_id, user_id, interested)
		VALUES (@trip_id, @user_id, @interested)
		RETURNING ` + membershipColumns

	args := pgx.NamedArgs{
		"trip_id":    m.TripID,
		"user_id":    m.UserID,
		"interested": m.Interested,
	}

	result, err := scanMembership(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if isUniqueViolation(err, "trip_members_user_trip_key") {
			return domain.TripMembership{}, fmt.Errorf("repo.MembershipRepo.InsertNew: %w", domain.ErrDuplicateMembership)
		}
		return domain.TripMembership{}, fmt.Errorf("repo.MembershipRepo.InsertNew: %w", err)
	}
	return result, nil
}

// UpdateInterest flips the interested flag in place. The row-level lock taken
// by UPDATE is enough to serialize concurrent toggles of the same membership.
func (r *pgMembershipRepo) UpdateInterest(ctx context.Context, userID, tripID uuid.UUID, interested bool) (domain.TripMembership, error) {
	const q = `
		UPDATE trip_members
		SET interested = @interested,
		    updated_at = now()
		WHERE user_id = @user_id AND trip_id = @trip_id
		RETURNING ` + membershipColumns

	args := pgx.NamedArgs{
		"user_id":    userID,
		"trip_id":    tripID,
		"interested": interested,
	}

	result, err := scanMembership(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.TripMembership{}, fmt.Errorf("repo.MembershipRepo.UpdateInterest: %w", err)
	}
	return result, nil
}

// Get retrieves the membership row for (user, trip).
func (r *pgMembershipRepo) Get(ctx context.Context, userID, tripID uuid.UUID) (domain.TripMembership, error) {
	const q = `
		SELECT ` + membershipColumns + `
		FROM trip_members
		WHERE user_id = @user_id AND trip_id = @trip_id`

	result, err := scanMembership(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "trip_id": tripID}))
	if err != nil {
		return domain.TripMembership{}, fmt.Errorf("repo.MembershipRepo.Get: %w", err)
	}
	return result, nil
}

// ListInterested returns the profiles of currently interested members.
func (r *pgMembershipRepo) ListInterested(ctx context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error) {
	const q = `
		SELECT u.first_name, u.last_name, u.email
		FROM trip_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.trip_id = @trip_id AND tm.interested
		ORDER BY u.email`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListInterested: %w", err)
	}
	defer rows.Close()

	var profiles []domain.MemberProfile
	for rows.Next() {
		var p domain.MemberProfile
		if err := rows.Scan(&p.FirstName, &p.LastName, &p.Email); err != nil {
			return nil, fmt.Errorf("repo.MembershipRepo.ListInterested: scan: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MembershipRepo.ListInterested: rows: %w", err)
	}

	return profiles, nil
}

// scanMembership maps a single database row into a domain.TripMembership.
func scanMembership(s scanner) (domain.TripMembership, error) {
	var (
		m      domain.TripMembership
		id     pgtype.UUID
		tripID pgtype.UUID
		userID pgtype.UUID
	)

	err := s.Scan(&id, &tripID, &userID, &m.Interested, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripMembership{}, domain.ErrNotFound
		}
		return domain.TripMembership{}, err
	}

	m.ID = uuid.UUID(id.Bytes)
	m.TripID = uuid.UUID(tripID.Bytes)
	m.UserID = uuid.UUID(userID.Bytes)
	return m, nil
}
