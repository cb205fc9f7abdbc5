// internal/repository/history_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pilite-service/internal/database"
	"pilite-service/internal/model"
)

const historyColumns = `id, code, payload, raw, status, error_message, created_at`

// historyRepository implements CommandHistoryRepository on PostgreSQL
type historyRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new command history repository
func NewHistoryRepository(db *database.DB, logger *zap.Logger) CommandHistoryRepository {
	return &historyRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a command record
func (r *historyRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	query := `
		INSERT INTO command_history (
			id, code, payload, raw, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Code, record.Payload, record.Raw,
		record.Status, record.ErrorMessage, record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create command record", zap.Error(err))
		return fmt.Errorf("failed to create command record: %w", err)
	}

	return nil
}

// GetByID retrieves a command record by ID
func (r *historyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM command_history WHERE id = $1`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("command record %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get command record: %w", err)
	}

	return record, nil
}

// List returns a page of records, newest first, and the total match count
func (r *historyRepository) List(ctx context.Context, filter *HistoryFilter) ([]*model.CommandRecord, int, error) {
	if filter == nil {
		filter = &HistoryFilter{}
	}
	filter.Normalize()

	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Code != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("code = $%d", argIndex))
		args = append(args, *filter.Code)
		argIndex++
	}

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.StartDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_history %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count command records: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`SELECT %s FROM command_history %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		historyColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list command records: %w", err)
	}
	defer rows.Close()

	records := []*model.CommandRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan command record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate command records: %w", err)
	}

	return records, total, nil
}

// DeleteOlderThan removes records created before olderThan
func (r *historyRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM command_history WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old command records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Deleted old command records",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("older_than", olderThan),
	)

	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*model.CommandRecord, error) {
	record := &model.CommandRecord{}
	var errorMessage sql.NullString

	err := row.Scan(
		&record.ID, &record.Code, &record.Payload, &record.Raw,
		&record.Status, &errorMessage, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		record.ErrorMessage = &errorMessage.String
	}

	return record, nil
}
