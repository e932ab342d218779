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
package mocks

import (
	"context"

	"github.com/payrail/payrail/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Payment methods

func (m *MockDataSource) RecordPayment(ctx context.Context, payment *model.Payment, key *model.IdempotencyKey, message *model.OutboxMessage) (*model.Payment, error) {
	args := m.Called(ctx, payment, key, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockDataSource) GetPaymentByID(ctx context.Context, paymentID, tenantID string) (*model.Payment, error) {
	args := m.Called(ctx, paymentID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockDataSource) GetPaymentByIntentID(ctx context.Context, intentID, tenantID string) (*model.Payment, error) {
	args := m.Called(ctx, intentID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockDataSource) ReconcilePayment(ctx context.Context, event *model.ProviderEvent, status string, message *model.OutboxMessage) (*model.Payment, bool, error) {
	args := m.Called(ctx, event, status, message)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Payment), args.Bool(1), args.Error(2)
}

func (m *MockDataSource) GetAllPayments(ctx context.Context, tenantID string, limit, offset int) ([]model.Payment, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	return args.Get(0).([]model.Payment), args.Error(1)
}

// Idempotency methods

func (m *MockDataSource) GetPaymentByIdempotencyKey(ctx context.Context, key, tenantID, userID string) (*model.Payment, error) {
	args := m.Called(ctx, key, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

// Outbox methods

func (m *MockDataSource) GetUnprocessedOutboxMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxMessage), args.Error(1)
}

func (m *MockDataSource) CommitOutboxResults(ctx context.Context, results []model.OutboxResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}
