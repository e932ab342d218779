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

	"github.com/payrail/payrail/model"
	"github.com/payrail/payrail/provider"
)

// MockPublisher records published outbox messages in place of a live broker.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, message *model.OutboxMessage) error
	Published   []*model.OutboxMessage
}

func (m *MockPublisher) PublishEvent(ctx context.Context, message *model.OutboxMessage) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, message); err != nil {
			return err
		}
	}
	m.Published = append(m.Published, message)
	return nil
}

// MockProvider is a controllable PaymentProvider for orchestrator tests.
type MockProvider struct {
	ProviderName string
	ChargeFunc   func(ctx context.Context, payment *model.Payment, paymentMethodID string) (*provider.ChargeResult, error)
	SessionFunc  func(ctx context.Context, payment *model.Payment) (*provider.SessionResult, error)
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) Charge(ctx context.Context, payment *model.Payment, paymentMethodID string) (*provider.ChargeResult, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, payment, paymentMethodID)
	}
	return &provider.ChargeResult{IntentID: "pi_mock", ProviderReference: "pi_mock", Status: model.StatusSuccessful}, nil
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, payment *model.Payment) (*provider.SessionResult, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc(ctx, payment)
	}
	return &provider.SessionResult{IntentID: "cs_mock", CheckoutUrl: "https://checkout.example.com/cs_mock"}, nil
}
