// internal/protocol/serial_connection.go
package protocol

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialPort is the subset of serial.Port the display needs
type SerialPort interface {
	Write(p []byte) (n int, err error)
	Drain() error
	Close() error
}

// SerialPortFactory opens a serial port. Tests replace it with fakes.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultSerialPortFactory opens a real port through go.bug.st/serial
func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// SerialConnection drives the Pi-Lite over its UART
type SerialConnection struct {
	link
	config  *SerialConfig
	factory SerialPortFactory
}

// NewSerialConnection creates a serial connection; a nil factory opens real ports
func NewSerialConnection(config *SerialConfig, factory SerialPortFactory, logger *zap.Logger) *SerialConnection {
	if factory == nil {
		factory = DefaultSerialPortFactory
	}

	return &SerialConnection{
		link: link{
			kind:   ConnectionTypeSerial,
			logger: logger.With(
				zap.String("protocol", "serial"),
				zap.String("port", config.Port),
			),
		},
		config:  config,
		factory: factory,
	}
}

// Open opens the port in the configured mode
func (sc *SerialConnection) Open(ctx context.Context) error {
	return sc.open(ctx, func(context.Context) (io.WriteCloser, error) {
		mode, err := sc.config.Mode()
		if err != nil {
			return nil, fmt.Errorf("invalid serial configuration: %w", err)
		}

		sc.logger.Info("Opening serial port", zap.Int("baud_rate", sc.config.BaudRate))
		return sc.factory(sc.config.Port, mode)
	})
}

// Write writes data and waits for it to leave the UART
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	return sc.write(ctx, data, nil, drain)
}

func drain(stream io.WriteCloser) error {
	if err := stream.(SerialPort).Drain(); err != nil {
		return fmt.Errorf("failed to drain serial port: %w", err)
	}
	return nil
}
