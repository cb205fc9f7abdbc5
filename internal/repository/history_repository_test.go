package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pilite-service/internal/database"
	"pilite-service/internal/model"
)

func newMockRepository(t *testing.T) (CommandHistoryRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewHistoryRepository(database.Wrap(sqlDB, zap.NewNop()), zap.NewNop()), mock
}

var historyRowColumns = []string{"id", "code", "payload", "raw", "status", "error_message", "created_at"}

func TestHistoryRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	record := model.NewCommandRecord(
		model.NewCommand(model.CodeScroll, "3", true),
		model.DeliveryDropped,
		errors.New("display not connected"),
	)

	mock.ExpectExec(`INSERT INTO command_history`).
		WithArgs(sqlmock.AnyArg(), "SCROLL", "3", "$$$SCROLL3\r", "DROPPED", "display not connected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_CreateError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`INSERT INTO command_history`).WillReturnError(errors.New("connection reset"))

	record := model.NewCommandRecord(model.NewCommand(model.CodeAll, ",OFF", true), model.DeliverySent, nil)
	err := repo.Create(context.Background(), record)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepository(t)

	id := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM command_history WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(historyRowColumns).
			AddRow(id.String(), "B", "1,94", "$$$B1,94\r", "SENT", nil, created))

	record, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, model.CodeBarGraph, record.Code)
	assert.Equal(t, model.DeliverySent, record.Status)
	assert.Nil(t, record.ErrorMessage)
	assert.Equal(t, created, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT .* FROM command_history`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository_ListWithFilter(t *testing.T) {
	repo, mock := newMockRepository(t)

	code := model.CodePixel
	status := model.DeliveryFailed
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM command_history WHERE code = \$1 AND status = \$2`).
		WithArgs("P", "FAILED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	mock.ExpectQuery(`SELECT .* FROM command_history WHERE code = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("P", "FAILED", 2, 2).
		WillReturnRows(sqlmock.NewRows(historyRowColumns).
			AddRow(uuid.NewString(), "P", "1,1,ON", "$$$P1,1,ON\r", "FAILED", "broken pipe", created))

	records, total, err := repo.List(context.Background(), &HistoryFilter{
		Code:    &code,
		Status:  &status,
		Page:    2,
		PerPage: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ErrorMessage)
	assert.Equal(t, "broken pipe", *records[0].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_ListDefaultsPaging(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM command_history`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(historyRowColumns))

	records, total, err := repo.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_DeleteOlderThan(t *testing.T) {
	repo, mock := newMockRepository(t)

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectExec(`DELETE FROM command_history WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
