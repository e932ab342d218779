package model

import (
	"time"
)

// OutboxMessage is the durable staging record for an event, written in the
// same transaction as the state change it announces. The relay is the only
// writer after creation: it sets ProcessedAt after a successful publish or
// records the last publish failure in Error and leaves the row retryable.
type OutboxMessage struct {
	ID          int64      `json:"-"`
	MessageID   string     `json:"message_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// OutboxResult is the relay's verdict on one message after a publish
// attempt. An empty Error means the message was published.
type OutboxResult struct {
	MessageID string
	Error     string
}

// NewOutboxMessage stages an event payload for the relay.
func NewOutboxMessage(eventType string, payload []byte) *OutboxMessage {
	return &OutboxMessage{
		MessageID: GenerateUUIDWithSuffix("obx"),
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
