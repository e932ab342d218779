package model

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "PENDING"
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Payment is one row per payment attempt. A payment is created PENDING and
// moves to exactly one terminal status; terminal rows are never mutated again
// and never deleted.
type Payment struct {
	ID                int64           `json:"-"`
	PaymentID         string          `json:"payment_id"`
	TenantID          string          `json:"tenant_id"`
	UserID            string          `json:"user_id"`
	IntentID          string          `json:"intent_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Provider          string          `json:"provider"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	Status            string          `json:"status"`
	IdempotencyKey    string          `json:"idempotency_key"`
	CheckoutUrl       string          `json:"checkout_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// IdempotencyKey is the dedup record for a logical operation, composite-keyed
// by (key, tenant, user). Created once by the first attempt that commits,
// read-only afterwards.
type IdempotencyKey struct {
	Key            string    `json:"key"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	Operation      string    `json:"operation"`
	LinkedEntityID string    `json:"linked_entity_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsTerminal reports whether the payment has left PENDING.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusSuccessful || p.Status == StatusFailed
}

// ValidCurrency reports whether the currency code is a well-formed ISO 4217
// alphabetic code.
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

func (p *Payment) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}
