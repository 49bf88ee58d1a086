package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/repo"
	"github.com/tripdesk/backend/testutil"
)

func newTestDepartmentRepo(t *testing.T) repo.DepartmentRepo {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return repo.NewDepartmentRepo(tx)
}

func TestDepartmentRepo_CreateAndGet(t *testing.T) {
	depts := newTestDepartmentRepo(t)
	ctx := context.Background()

	created, err := depts.Create(ctx, "Research")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := depts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Research", got.Name)
}

func TestDepartmentRepo_Create_DuplicateName(t *testing.T) {
	depts := newTestDepartmentRepo(t)
	ctx := context.Background()

	_, err := depts.Create(ctx, "Research")
	require.NoError(t, err)

	_, err = depts.Create(ctx, "Research")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDepartmentRepo_GetByID_NotFound(t *testing.T) {
	depts := newTestDepartmentRepo(t)

	_, err := depts.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
