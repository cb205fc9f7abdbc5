// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pilite-service/internal/model"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// CommandHistoryRepository defines command history data access operations
type CommandHistoryRepository interface {
	Create(ctx context.Context, record *model.CommandRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error)
	List(ctx context.Context, filter *HistoryFilter) ([]*model.CommandRecord, int, error)

	// Cleanup
	DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error)
}

// HistoryFilter represents command history listing filters
type HistoryFilter struct {
	Code      *model.CommandCode    `json:"code,omitempty"`
	Status    *model.DeliveryStatus `json:"status,omitempty"`
	StartDate *time.Time            `json:"start_date,omitempty"`
	EndDate   *time.Time            `json:"end_date,omitempty"`
	Page      int                   `json:"page"`
	PerPage   int                   `json:"per_page"`
}

// Normalize clamps paging to sane values
func (f *HistoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	if f.PerPage > 500 {
		f.PerPage = 500
	}
}
