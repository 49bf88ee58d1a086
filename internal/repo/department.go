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

// DepartmentRepo defines the persistence operations for departments.
// Departments are reference data: created by operators, read by signup
// validation and visibility checks.
type DepartmentRepo interface {
	// Create inserts a department. A name collision surfaces as
	// domain.ErrConflict.
	Create(ctx context.Context, name string) (domain.Department, error)

	// GetByID retrieves a department by primary key.
	// Returns domain.ErrNotFound if no such department exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Department, error)
}

// pgDepartmentRepo is the Postgres implementation of DepartmentRepo.
type pgDepartmentRepo struct {
	db db
}

// NewDepartmentRepo constructs a DepartmentRepo backed by the provided db connection.
func NewDepartmentRepo(db db) DepartmentRepo {
	return &pgDepartmentRepo{db: db}
}

// Create inserts a new department row.
func (r *pgDepartmentRepo) Create(ctx context.Context, name string) (domain.Department, error) {
	const q = `
		INSERT INTO departments (name)
		VALUES (@name)
		RETURNING id, name`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"name": name})
	result, err := scanDepartment(row)
	if err != nil {
		if isUniqueViolation(err, "departments_name_key") {
			return domain.Department{}, fmt.Errorf("repo.DepartmentRepo.Create: %w: department name already exists", domain.ErrConflict)
		}
		return domain.Department{}, fmt.Errorf("repo.DepartmentRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a department by primary key.
func (r *pgDepartmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Department, error) {
	const q = `SELECT id, name FROM departments WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanDepartment(row)
	if err != nil {
		return domain.Department{}, fmt.Errorf("repo.DepartmentRepo.GetByID: %w", err)
	}
	return result, nil
}

// scanDepartment maps a single database row into a domain.Department.
func scanDepartment(s scanner) (domain.Department, error) {
	var (
		d  domain.Department
		id pgtype.UUID
	)

	err := s.Scan(&id, &d.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Department{}, domain.ErrNotFound
		}
		return domain.Department{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	return d, nil
}
