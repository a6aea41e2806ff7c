package models

import (
	"encoding/json"
	"time"
)

// EventStatus is the lifecycle state of a queued analytics event.
type EventStatus string

const (
	EventPending EventStatus = "pending"
	EventSent    EventStatus = "sent"
	EventFailed  EventStatus = "failed"
)

// QueuedAnalyticsEvent is best-effort telemetry. It never conflicts: it is
// either sent or dropped after the retry ceiling.
type QueuedAnalyticsEvent struct {
	ID         string                `json:"id"`
	Payload    AnalyticsEventPayload `json:"payload"`
	Status     EventStatus           `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	RetryCount int                   `json:"retry_count"`
	Seq        int64                 `json:"seq"`
	LastError  string                `json:"last_error,omitempty"`
}

// WireEvent is the request shape of one analytics event.
type WireEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Wire converts e into its request shape.
func (e *QueuedAnalyticsEvent) Wire() (WireEvent, error) {
	props := e.Payload.Properties
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return WireEvent{}, err
	}
	return WireEvent{ID: e.ID, Type: e.Payload.EventType, Payload: raw}, nil
}
