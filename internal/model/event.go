// internal/model/event.go
package model

import "time"

// EventType represents the type of event
type EventType string

const (
	EventCommandSent      EventType = "COMMAND_SENT"
	EventCommandDropped   EventType = "COMMAND_DROPPED"
	EventCommandFailed    EventType = "COMMAND_FAILED"
	EventDisplayConnected EventType = "DISPLAY_CONNECTED"
	EventAnimationStarted EventType = "ANIMATION_STARTED"
	EventAnimationStopped EventType = "ANIMATION_STOPPED"
)

// Event represents something that happened on the display
type Event struct {
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, source string, data map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}
}
