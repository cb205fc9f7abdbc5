// internal/protocol/factory.go
package protocol

import (
	"fmt"

	"go.uber.org/zap"

	"pilite-service/internal/config"
)

// Opener creates a not-yet-opened protocol for the transport
type Opener func() (DeviceProtocol, error)

// CreateProtocol creates a protocol based on the device configuration
func CreateProtocol(cfg *config.DeviceConfig, factory SerialPortFactory, logger *zap.Logger) (DeviceProtocol, error) {
	switch ConnectionType(cfg.ConnectionType) {
	case ConnectionTypeSerial:
		return createSerialProtocol(&cfg.Serial, factory, logger)
	case ConnectionTypeTCP:
		return createTCPProtocol(&cfg.TCP, logger)
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", cfg.ConnectionType)
	}
}

// NewOpener returns an Opener bound to the device configuration
func NewOpener(cfg *config.DeviceConfig, factory SerialPortFactory, logger *zap.Logger) Opener {
	return func() (DeviceProtocol, error) {
		return CreateProtocol(cfg, factory, logger)
	}
}

// createSerialProtocol creates a serial protocol
func createSerialProtocol(cfg *config.SerialPortConfig, factory SerialPortFactory, logger *zap.Logger) (DeviceProtocol, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}

	serialConfig := &SerialConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
	}

	if serialConfig.BaudRate == 0 {
		serialConfig.BaudRate = 9600
	}
	if serialConfig.DataBits == 0 {
		serialConfig.DataBits = 8
	}

	logger.Info("Creating serial protocol",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, factory, logger), nil
}

// createTCPProtocol creates a TCP protocol
func createTCPProtocol(cfg *config.TCPPortConfig, logger *zap.Logger) (DeviceProtocol, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid TCP port: %d", cfg.Port)
	}

	tcpConfig := &TCPConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		KeepAlive:    cfg.KeepAlive,
		Timeout:      cfg.ConnectTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Creating TCP protocol", zap.String("address", tcpConfig.Address()))

	return NewTCPConnection(tcpConfig, logger), nil
}
