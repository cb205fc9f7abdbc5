// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"
	"time"
)

// ConnectionType represents how the display is attached
type ConnectionType string

const (
	ConnectionTypeSerial ConnectionType = "serial"
	ConnectionTypeTCP    ConnectionType = "tcp"
)

var (
	// ErrNotConnected is returned when a command is dropped because no
	// connection has been opened yet
	ErrNotConnected = errors.New("display not connected")
	// ErrPortNotOpen is returned by a protocol used before Open or after Close
	ErrPortNotOpen = errors.New("port not open")
)

// DeviceProtocol represents a one-way byte stream to the display
type DeviceProtocol interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication
	Write(ctx context.Context, data []byte) error

	// Protocol information
	GetProtocolType() ConnectionType
	Stats() ProtocolStats
}

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// recordWrite updates the statistics after a successful write
func (s *ProtocolStats) recordWrite(n int, latency time.Duration) {
	s.BytesWritten += int64(n)
	s.OperationCount++
	s.LastActivity = time.Now()

	if s.AverageLatency == 0 {
		s.AverageLatency = latency
	} else {
		s.AverageLatency = (s.AverageLatency + latency) / 2
	}
}
