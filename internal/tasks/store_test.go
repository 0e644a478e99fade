package tasks

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormTaskStoreDueTasks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewGormTaskStore(gormDB)

	rows := sqlmock.NewRows([]string{"id", "task_name", "status", "task_type", "max_attempt"}).
		AddRow(1, "sweep_pending_orders", "active", "recurring", 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "scheduled_tasks" WHERE (status = $1 AND due <= $2)`)).
		WillReturnRows(rows)

	due, err := store.DueTasks(context.Background(), clock)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sweep_pending_orders", due[0].TaskName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTaskStoreHasActive(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewGormTaskStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "scheduled_tasks"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := store.HasActive(context.Background(), "sweep_pending_orders")
	require.NoError(t, err)
	assert.True(t, ok)
}
