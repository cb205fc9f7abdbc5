// internal/model/history.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus describes what happened to a command at the transport
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryDropped DeliveryStatus = "DROPPED"
	DeliveryFailed  DeliveryStatus = "FAILED"
)

// CommandRecord is a row of the command history table
type CommandRecord struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Code         CommandCode    `json:"code" db:"code"`
	Payload      string         `json:"payload" db:"payload"`
	Raw          string         `json:"raw" db:"raw"`
	Status       DeliveryStatus `json:"status" db:"status"`
	ErrorMessage *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// NewCommandRecord builds a history record for an emitted command
func NewCommandRecord(cmd Command, status DeliveryStatus, err error) *CommandRecord {
	record := &CommandRecord{
		ID:        uuid.New(),
		Code:      cmd.Code,
		Payload:   cmd.Payload,
		Raw:       cmd.String(),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
	}

	return record
}
