// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"pilite-service/internal/model"
)

// EventBus fans display events out to subscribers. Publish never blocks;
// events are dropped when the bus or a subscriber is full.
type EventBus struct {
	subscribers map[chan model.Event]map[model.EventType]bool
	events      chan model.Event
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[chan model.Event]map[model.EventType]bool),
		events:      make(chan model.Event, 1000),
		done:        make(chan struct{}),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			return
		}
	}
}

// Stop ends distribution and closes every subscriber channel
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.done)

		eb.mutex.Lock()
		defer eb.mutex.Unlock()
		for ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, ch)
		}
	})
}

// Publish publishes an event
func (eb *EventBus) Publish(event model.Event) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given
func (eb *EventBus) Subscribe(eventTypes ...model.EventType) <-chan model.Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	filter := make(map[model.EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		filter[t] = true
	}

	subscriber := make(chan model.Event, 100)
	eb.subscribers[subscriber] = filter
	return subscriber
}

// Unsubscribe removes and closes a channel returned by Subscribe
func (eb *EventBus) Unsubscribe(subscriber <-chan model.Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for ch := range eb.subscribers {
		if ch == subscriber {
			close(ch)
			delete(eb.subscribers, ch)
			return
		}
	}
}

func (eb *EventBus) distributeEvent(event model.Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for subscriber, filter := range eb.subscribers {
		if len(filter) > 0 && !filter[event.Type] {
			continue
		}

		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
