package protocol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"pilite-service/internal/utils"
)

// Transport owns the single display connection. It is created once and
// injected wherever commands are emitted.
type Transport struct {
	opener       Opener
	conn         DeviceProtocol
	writeTimeout time.Duration
	logger       *zap.Logger
	deviceLogger *utils.DeviceLogger
	mutex        sync.RWMutex
}

// NewTransport creates a transport that opens its connection lazily via opener
func NewTransport(opener Opener, writeTimeout time.Duration, logger *zap.Logger) *Transport {
	return &Transport{
		opener:       opener,
		writeTimeout: writeTimeout,
		logger:       logger.With(zap.String("component", "transport")),
		deviceLogger: utils.NewDeviceLogger(logger, "pi-lite", "transport"),
	}
}

// Connect opens the connection if needed and then calls onReady once.
// Concurrent calls wait for the open in progress instead of replacing the
// handle. onReady runs without the lock held so it may write.
func (t *Transport) Connect(ctx context.Context, onReady func()) error {
	err := t.open(ctx)
	t.deviceLogger.LogConnection("connect", err == nil, err)
	if err != nil {
		return err
	}

	if onReady != nil {
		onReady()
	}
	return nil
}

func (t *Transport) open(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn == nil {
		conn, err := t.opener()
		if err != nil {
			return fmt.Errorf("failed to create protocol: %w", err)
		}
		t.conn = conn
	}

	if t.conn.IsOpen() {
		return nil
	}

	if err := t.conn.Open(ctx); err != nil {
		return fmt.Errorf("failed to open %s connection: %w", t.conn.GetProtocolType(), err)
	}
	return nil
}

// Write sends one encoded command. Without an open connection the command is
// dropped and ErrNotConnected returned; nothing is queued.
func (t *Transport) Write(ctx context.Context, command string) error {
	t.mutex.RLock()
	conn := t.conn
	t.mutex.RUnlock()

	if conn == nil || !conn.IsOpen() {
		t.logger.Debug("Dropping command, display not connected",
			zap.String("command", strconv.Quote(command)),
		)
		return ErrNotConnected
	}

	if t.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.writeTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, []byte(command)); err != nil {
		if errors.Is(err, ErrPortNotOpen) {
			return ErrNotConnected
		}
		t.logger.Error("Error writing to Pi-Lite",
			zap.String("command", strconv.Quote(command)),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// Close closes the connection; later writes are dropped
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// IsOpen reports whether commands will currently be delivered
func (t *Transport) IsOpen() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.conn != nil && t.conn.IsOpen()
}

// Stats returns the connection statistics, or false before the first Connect
func (t *Transport) Stats() (ProtocolStats, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.conn == nil {
		return ProtocolStats{}, false
	}
	return t.conn.Stats(), true
}
