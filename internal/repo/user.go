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

// UserRepo defines the persistence operations for user accounts.
type UserRepo interface {
	// Create inserts a new user and returns the persisted record. A username
	// or email collision surfaces as domain.ErrConflict with a field hint.
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// GetByID retrieves a user by primary key.
	// Returns domain.ErrNotFound if no such user exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByEmail retrieves a user by email (login and password reset).
	// Returns domain.ErrNotFound if no such user exists.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdatePasswordHash replaces the stored password hash.
	// Returns domain.ErrNotFound if no such user exists.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// SetProviderCredential stores the expense-provider bearer token and
	// provider-side user id after account linking. Re-linking overwrites.
	// Returns domain.ErrNotFound if no such user exists.
	SetProviderCredential(ctx context.Context, id uuid.UUID, token string, providerUserID int64) error
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name,
	department_id, provider_token, provider_user_id, created_at, updated_at`

// Create inserts a new user row and returns the full persisted record.
func (r *pgUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, first_name, last_name, department_id)
		VALUES (@username, @email, @password_hash, @first_name, @last_name, @department_id)
		RETURNING ` + userColumns

	args := pgx.NamedArgs{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"department_id": user.DepartmentID,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w: username already taken", domain.ErrConflict)
		}
		if isUniqueViolation(err, "users_email_key") {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w: email already registered", domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a user by primary key.
func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByEmail retrieves a user by unique email.
func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = @email`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email})
	result, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByEmail: %w", err)
	}
	return result, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *pgUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	const q = `
		UPDATE users
		SET password_hash = @password_hash,
		    updated_at    = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "password_hash": hash})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.UpdatePasswordHash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.UpdatePasswordHash: %w", domain.ErrNotFound)
	}
	return nil
}

// SetProviderCredential stores the provider token and user id on the user row.
func (r *pgUserRepo) SetProviderCredential(ctx context.Context, id uuid.UUID, token string, providerUserID int64) error {
	const q = `
		UPDATE users
		SET provider_token   = @provider_token,
		    provider_user_id = @provider_user_id,
		    updated_at       = now()
		WHERE id = @id`

	args := pgx.NamedArgs{
		"id":               id,
		"provider_token":   token,
		"provider_user_id": providerUserID,
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.UserRepo.SetProviderCredential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.UserRepo.SetProviderCredential: %w", domain.ErrNotFound)
	}
	return nil
}

// scanUser maps a single database row into a domain.User.
// Provider columns are nullable; ProviderLinked is derived from them.
func scanUser(s scanner) (domain.User, error) {
	var (
		u      domain.User
		id     pgtype.UUID
		deptID pgtype.UUID
		token  pgtype.Text
		provID pgtype.Int8
	)

	err := s.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&deptID, &token, &provID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}

	u.ID = uuid.UUID(id.Bytes)
	u.DepartmentID = uuid.UUID(deptID.Bytes)
	if token.Valid && token.String != "" {
		u.ProviderToken = token.String
		u.ProviderLinked = true
	}
	if provID.Valid {
		u.ProviderUserID = provID.Int64
	}

	return u, nil
}
