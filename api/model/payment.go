/*
Copyright 2025 Payrail Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"errors"

	"github.com/shopspring/decimal"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/payrail/payrail/model"
)

// CreatePayment is the request body for both the immediate-charge and the
// hosted-session endpoints. Tenant and user identity are deliberately absent;
// they come from the verified token.
type CreatePayment struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Provider        string          `json:"provider"`
	PaymentMethodID string          `json:"payment_method_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// ValidateCreatePayment checks the immediate-charge body. A direct charge
// confirms on creation, so the payment method must arrive with the request.
func (p *CreatePayment) ValidateCreatePayment() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Amount, validation.Required, validation.By(positiveAmount)),
		validation.Field(&p.Currency, validation.Required, validation.By(isoCurrency)),
		validation.Field(&p.Provider, validation.Required),
		validation.Field(&p.PaymentMethodID, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.IdempotencyKey, validation.Required, validation.Length(1, 255)),
	)
}

// ValidateInitiateSession checks the hosted-session body. The payment method
// is collected on the provider's checkout page, never here.
func (p *CreatePayment) ValidateInitiateSession() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Amount, validation.Required, validation.By(positiveAmount)),
		validation.Field(&p.Currency, validation.Required, validation.By(isoCurrency)),
		validation.Field(&p.Provider, validation.Required),
		validation.Field(&p.IdempotencyKey, validation.Required, validation.Length(1, 255)),
	)
}

func positiveAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid amount type")
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

func isoCurrency(value interface{}) error {
	currency, ok := value.(string)
	if !ok {
		return errors.New("invalid currency type")
	}
	if !model.ValidCurrency(currency) {
		return errors.New("currency must be a three-letter ISO code, e.g. USD")
	}
	return nil
}
