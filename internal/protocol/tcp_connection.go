// internal/protocol/tcp_connection.go
package protocol

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// TCPConnection drives a Pi-Lite exposed by a serial-over-TCP bridge
type TCPConnection struct {
	link
	config *TCPConfig
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config *TCPConfig, logger *zap.Logger) *TCPConnection {
	return &TCPConnection{
		link: link{
			kind:   ConnectionTypeTCP,
			logger: logger.With(
				zap.String("protocol", "tcp"),
				zap.String("address", config.Address()),
			),
		},
		config: config,
	}
}

// Open dials the bridge
func (tc *TCPConnection) Open(ctx context.Context) error {
	return tc.open(ctx, func(ctx context.Context) (io.WriteCloser, error) {
		dialer := &net.Dialer{Timeout: tc.config.Timeout}
		if !tc.config.KeepAlive {
			dialer.KeepAlive = -1
		}

		conn, err := dialer.DialContext(ctx, "tcp", tc.config.Address())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", tc.config.Address(), err)
		}
		return conn, nil
	})
}

// Write sends data before the earlier of the write timeout and ctx's deadline
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	deadline := tc.writeDeadline(ctx)

	return tc.write(ctx, data, func(stream io.WriteCloser) error {
		if err := stream.(net.Conn).SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
		return nil
	}, nil)
}

// writeDeadline returns the zero time when neither bound is set
func (tc *TCPConnection) writeDeadline(ctx context.Context) time.Time {
	var deadline time.Time
	if tc.config.WriteTimeout > 0 {
		deadline = time.Now().Add(tc.config.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}
