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

// Package provider holds the payment provider gateway: a uniform capability
// interface over external PSPs and a registry resolving provider tags to
// implementations.
package provider

import (
	"context"
	"fmt"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

// ChargeResult is the normalized outcome of an immediate charge attempt.
type ChargeResult struct {
	IntentID          string
	ProviderReference string
	Status            string
}

// SessionResult is the normalized outcome of a hosted checkout session
// creation.
type SessionResult struct {
	IntentID    string
	CheckoutUrl string
}

// PaymentProvider is the capability surface a PSP integration must offer.
// Implementations pass the payment's own ID to the provider as the
// idempotency key, so a retried call returns the provider's original result
// instead of charging twice.
type PaymentProvider interface {
	Name() string
	Charge(ctx context.Context, payment *model.Payment, paymentMethodID string) (*ChargeResult, error)
	CreateCheckoutSession(ctx context.Context, payment *model.Payment) (*SessionResult, error)
}

// Registry resolves provider tags to implementations. The set is fixed at
// construction; resolution of an unknown tag is a client error, not a crash.
type Registry struct {
	providers map[string]PaymentProvider
}

func NewRegistry(conf *config.Configuration) *Registry {
	registry := &Registry{providers: make(map[string]PaymentProvider)}
	registry.Register(NewStripeProvider(conf))
	return registry
}

func (r *Registry) Register(p PaymentProvider) {
	r.providers[p.Name()] = p
}

// Get resolves a provider tag. Unknown tags map to a bad-request error so
// the API rejects them before any state is written.
func (r *Registry) Get(name string) (PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Unknown payment provider '%s'", name), nil)
	}
	return p, nil
}
