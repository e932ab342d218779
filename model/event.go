package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventTypePaymentProcessed is the only event type the core publishes today.
// The relay dispatches on this tag when deserializing outbox payloads.
const EventTypePaymentProcessed = "payment.processed"

// PaymentProcessedEvent is the message-bus contract for a payment outcome.
// Downstream consumers dedup on PaymentID + Status since delivery is
// at-least-once.
type PaymentProcessedEvent struct {
	PaymentID   string          `json:"payment_id"`
	IntentID    string          `json:"intent_id,omitempty"`
	AppID       string          `json:"app_id"`
	Amount      decimal.Decimal `json:"amount"`
	UserID      string          `json:"user_id"`
	ProcessedAt time.Time       `json:"processed_at"`
	Status      string          `json:"status"`
}

// NewPaymentProcessedEvent builds the outcome event for a payment in its
// current status.
func NewPaymentProcessedEvent(payment *Payment) PaymentProcessedEvent {
	return PaymentProcessedEvent{
		PaymentID:   payment.PaymentID,
		IntentID:    payment.IntentID,
		AppID:       payment.TenantID,
		Amount:      payment.Amount,
		UserID:      payment.UserID,
		ProcessedAt: time.Now(),
		Status:      payment.Status,
	}
}

func (e PaymentProcessedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ProviderEvent is a provider callback normalized into provider-agnostic
// fields. EventID is the provider's own event identifier; it is what the
// reconciler dedups redeliveries on.
type ProviderEvent struct {
	EventID           string `json:"event_id"`
	EventType         string `json:"event_type"`
	IntentID          string `json:"intent_id"`
	TenantID          string `json:"tenant_id"`
	ProviderReference string `json:"provider_reference,omitempty"`
}
