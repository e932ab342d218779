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

package payrail

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

const (
	CommandCreatePayment          = "create_payment"
	CommandInitiatePaymentSession = "initiate_payment_session"
)

// PaymentCommand carries one payment request through the dispatcher. Tenant
// and user identity always come from the verified token, never the request
// body; the API layer fills them in before dispatching.
type PaymentCommand struct {
	Name            string
	TenantID        string
	UserID          string
	Amount          decimal.Decimal
	Currency        string
	Provider        string
	PaymentMethodID string
	IdempotencyKey  string
}

// CommandHandler processes one named command and returns the payment it
// produced or found.
type CommandHandler func(ctx context.Context, cmd *PaymentCommand) (*model.Payment, error)

// Dispatcher routes commands to handlers by name. Registration is explicit
// and checked at startup; dispatching an unregistered command is an error,
// not a silent drop.
type Dispatcher struct {
	handlers map[string]CommandHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]CommandHandler)}
}

func (d *Dispatcher) Register(name string, handler CommandHandler) {
	d.handlers[name] = handler
}

// Validate confirms a handler exists for every expected command name.
func (d *Dispatcher) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := d.handlers[name]; !ok {
			return fmt.Errorf("no handler registered for command '%s'", name)
		}
	}
	return nil
}

// Dispatch routes a command to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *PaymentCommand) (*model.Payment, error) {
	handler, ok := d.handlers[cmd.Name]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Unknown command '%s'", cmd.Name), nil)
	}
	return handler(ctx, cmd)
}
