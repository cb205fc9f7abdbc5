package protocol

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// link holds the open/close/write bookkeeping shared by the serial and TCP
// protocols. The embedding type supplies the stream through open.
type link struct {
	kind   ConnectionType
	mutex  sync.RWMutex
	stream io.WriteCloser
	stats  ProtocolStats
	logger *zap.Logger
}

// streamHook runs against the open stream while the link lock is held
type streamHook func(stream io.WriteCloser) error

// open attaches the stream returned by dial unless one is already attached
func (l *link) open(ctx context.Context, dial func(ctx context.Context) (io.WriteCloser, error)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stream != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stream, err := dial(ctx)
	if err != nil {
		l.logger.Error("Failed to open display link", zap.Error(err))
		return err
	}

	l.stream = stream
	l.stats.IsConnected = true
	l.stats.LastActivity = time.Now()

	l.logger.Info("Display link opened")
	return nil
}

// Close detaches and closes the stream
func (l *link) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stream == nil {
		return nil
	}

	err := l.stream.Close()
	l.stream = nil
	l.stats.IsConnected = false

	if err != nil {
		l.logger.Error("Failed to close display link", zap.Error(err))
		return fmt.Errorf("failed to close %s link: %w", l.kind, err)
	}

	l.logger.Info("Display link closed")
	return nil
}

// IsOpen returns whether a stream is attached
func (l *link) IsOpen() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.stream != nil
}

// GetProtocolType returns the protocol type
func (l *link) GetProtocolType() ConnectionType {
	return l.kind
}

// Stats returns a snapshot of the link statistics
func (l *link) Stats() ProtocolStats {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.stats
}

// write sends data in one call. prepare runs before the bytes go out and
// settle after all of them were accepted; either may be nil.
func (l *link) write(ctx context.Context, data []byte, prepare, settle streamHook) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.stream == nil {
		return ErrPortNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	if err := l.writeLocked(data, prepare, settle); err != nil {
		l.stats.ErrorCount++
		l.logger.Error("Display write failed", zap.Error(err))
		return err
	}

	l.stats.recordWrite(len(data), time.Since(startTime))
	l.logger.Debug("Display write completed", zap.Int("bytes", len(data)))
	return nil
}

func (l *link) writeLocked(data []byte, prepare, settle streamHook) error {
	if prepare != nil {
		if err := prepare(l.stream); err != nil {
			return err
		}
	}

	n, err := l.stream.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to %s link: %w", l.kind, err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	if settle != nil {
		return settle(l.stream)
	}
	return nil
}
