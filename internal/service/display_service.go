// internal/service/display_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"pilite-service/internal/config"
	"pilite-service/internal/discovery"
	"pilite-service/internal/driver/pilite"
	"pilite-service/internal/model"
	"pilite-service/internal/repository"
	"pilite-service/internal/utils"
)

// ErrHistoryDisabled is returned by history calls when no store is configured
var ErrHistoryDisabled = errors.New("command history is disabled")

const eventSource = "pi-lite"

// Connector is the part of the transport the service drives
type Connector interface {
	Connect(ctx context.Context, onReady func()) error
	IsOpen() bool
}

// Publisher receives display events
type Publisher interface {
	Publish(event model.Event)
}

// AnimationStatus describes the running animation, if any
type AnimationStatus struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}

type animation struct {
	AnimationStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// DisplayService ties the driver, transport, history store and event bus
// together. It implements pilite.EventHandler.
type DisplayService struct {
	driver      *pilite.Driver
	transport   Connector
	historyRepo repository.CommandHistoryRepository
	publisher   Publisher
	scanner     *discovery.Scanner
	config      *config.Config
	logger      *utils.ServiceLogger
	clock       clockwork.Clock

	controlMutex sync.Mutex // serializes start and stop
	animMutex    sync.Mutex
	animation    *animation
}

// NewDisplayService creates the service and registers it with the driver.
// historyRepo and publisher may be nil.
func NewDisplayService(
	driver *pilite.Driver,
	transport Connector,
	historyRepo repository.CommandHistoryRepository,
	publisher Publisher,
	scanner *discovery.Scanner,
	config *config.Config,
	logger *zap.Logger,
) *DisplayService {
	ds := &DisplayService{
		driver:      driver,
		transport:   transport,
		historyRepo: historyRepo,
		publisher:   publisher,
		scanner:     scanner,
		config:      config,
		logger:      utils.NewServiceLogger(logger, "display-service"),
		clock:       clockwork.NewRealClock(),
	}

	driver.SetEventHandler(ds)
	return ds
}

// SetClock replaces the clock used by the cleanup loop
func (ds *DisplayService) SetClock(clock clockwork.Clock) {
	ds.clock = clock
}

// Driver returns the command encoder
func (ds *DisplayService) Driver() *pilite.Driver {
	return ds.driver
}

// Connect opens the display connection and announces it once it is ready
func (ds *DisplayService) Connect(ctx context.Context) error {
	if ds.transport == nil {
		return fmt.Errorf("no transport configured")
	}

	err := ds.transport.Connect(ctx, func() {
		ds.publish(model.EventDisplayConnected, map[string]interface{}{
			"connection_type": ds.config.Device.ConnectionType,
		})
	})
	if err != nil {
		ds.logger.Error("Failed to connect to display", zap.Error(err))
		return fmt.Errorf("failed to connect to display: %w", err)
	}

	return nil
}

// IsConnected reports whether commands are currently delivered
func (ds *DisplayService) IsConnected() bool {
	return ds.transport != nil && ds.transport.IsOpen()
}

// OnCommand records every written command and publishes it
func (ds *DisplayService) OnCommand(cmd model.Command, status model.DeliveryStatus, err error) {
	if ds.historyRepo != nil {
		record := model.NewCommandRecord(cmd, status, err)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if createErr := ds.historyRepo.Create(ctx, record); createErr != nil {
			ds.logger.Warn("Failed to record command history", zap.Error(createErr))
		}
	}

	data := map[string]interface{}{
		"code":    string(cmd.Code),
		"payload": cmd.Payload,
		"command": cmd.String(),
	}
	if err != nil {
		data["error"] = err.Error()
	}

	switch status {
	case model.DeliverySent:
		ds.publish(model.EventCommandSent, data)
	case model.DeliveryDropped:
		ds.publish(model.EventCommandDropped, data)
	default:
		ds.publish(model.EventCommandFailed, data)
	}
}

// StartTimed starts showing text one character at a time. Any running
// animation is stopped first.
func (ds *DisplayService) StartTimed(text string, interval time.Duration, column, row int) (*AnimationStatus, error) {
	if err := pilite.ValidateInterval(interval); err != nil {
		return nil, err
	}

	return ds.startAnimation("timed", func(ctx context.Context) error {
		return ds.driver.Timed(ctx, text, interval, column, row)
	})
}

// StartRandomPixel starts toggling random pixels until stopped
func (ds *DisplayService) StartRandomPixel(interval time.Duration) (*AnimationStatus, error) {
	if err := pilite.ValidateInterval(interval); err != nil {
		return nil, err
	}

	return ds.startAnimation("random_pixel", func(ctx context.Context) error {
		return ds.driver.RandomPixel(ctx, interval)
	})
}

func (ds *DisplayService) startAnimation(kind string, run func(ctx context.Context) error) (*AnimationStatus, error) {
	ds.controlMutex.Lock()
	defer ds.controlMutex.Unlock()

	ds.stopCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	anim := &animation{
		AnimationStatus: AnimationStatus{
			ID:        uuid.New(),
			Kind:      kind,
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ds.animMutex.Lock()
	ds.animation = anim
	ds.animMutex.Unlock()

	ds.publish(model.EventAnimationStarted, map[string]interface{}{
		"id":   anim.ID.String(),
		"kind": kind,
	})

	go func() {
		defer close(anim.done)
		defer cancel()

		err := run(ctx)

		data := map[string]interface{}{
			"id":   anim.ID.String(),
			"kind": kind,
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			data["error"] = err.Error()
			ds.logger.Warn("Animation stopped with error",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		ds.publish(model.EventAnimationStopped, data)

		ds.animMutex.Lock()
		if ds.animation == anim {
			ds.animation = nil
		}
		ds.animMutex.Unlock()
	}()

	status := anim.AnimationStatus
	return &status, nil
}

// StopAnimation stops the running animation and waits for it to exit.
// It reports whether one was running.
func (ds *DisplayService) StopAnimation() bool {
	ds.controlMutex.Lock()
	defer ds.controlMutex.Unlock()
	return ds.stopCurrent()
}

// CurrentAnimation returns the running animation, or nil
func (ds *DisplayService) CurrentAnimation() *AnimationStatus {
	ds.animMutex.Lock()
	defer ds.animMutex.Unlock()

	if ds.animation == nil {
		return nil
	}
	status := ds.animation.AnimationStatus
	return &status
}

func (ds *DisplayService) stopCurrent() bool {
	ds.animMutex.Lock()
	anim := ds.animation
	ds.animMutex.Unlock()

	if anim == nil {
		return false
	}

	anim.cancel()
	<-anim.done

	ds.animMutex.Lock()
	if ds.animation == anim {
		ds.animation = nil
	}
	ds.animMutex.Unlock()
	return true
}

// ListHistory returns a page of recorded commands
func (ds *DisplayService) ListHistory(ctx context.Context, filter *repository.HistoryFilter) ([]*model.CommandRecord, int, error) {
	if ds.historyRepo == nil {
		return nil, 0, ErrHistoryDisabled
	}
	return ds.historyRepo.List(ctx, filter)
}

// GetHistoryRecord returns one recorded command
func (ds *DisplayService) GetHistoryRecord(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	if ds.historyRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return ds.historyRepo.GetByID(ctx, id)
}

// CleanupHistory deletes records older than the retention period
func (ds *DisplayService) CleanupHistory(ctx context.Context) (int64, error) {
	if ds.historyRepo == nil {
		return 0, ErrHistoryDisabled
	}

	cutoff := ds.clock.Now().Add(-ds.config.History.Retention)
	deleted, err := ds.historyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up history: %w", err)
	}
	return deleted, nil
}

// RunHistoryCleanup runs CleanupHistory every cleanup interval until ctx is
// cancelled
func (ds *DisplayService) RunHistoryCleanup(ctx context.Context) {
	if ds.historyRepo == nil || ds.config.History.CleanupInterval <= 0 {
		return
	}

	ticker := ds.clock.NewTicker(ds.config.History.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := ds.CleanupHistory(ctx); err != nil {
				utils.LogError(ds.logger.Logger, "History cleanup failed", err,
					zap.Duration("retention", ds.config.History.Retention))
			}
		}
	}
}

// ListPorts returns serial ports the display could be attached to
func (ds *DisplayService) ListPorts(ctx context.Context) ([]discovery.PortInfo, error) {
	if ds.scanner == nil {
		return []discovery.PortInfo{}, nil
	}
	return ds.scanner.Scan(ctx)
}

// Close stops any running animation
func (ds *DisplayService) Close() {
	if ds.StopAnimation() {
		ds.logger.Info("Animation stopped on shutdown")
	}
}

func (ds *DisplayService) publish(eventType model.EventType, data map[string]interface{}) {
	if ds.publisher == nil {
		return
	}
	ds.publisher.Publish(model.NewEvent(eventType, eventSource, data))
}
