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

package database

import (
	"context"

	"github.com/payrail/payrail/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	payment     // Interface for payment-related operations
	idempotency // Interface for idempotency key operations
	outbox      // Interface for outbox message operations
}

// payment defines methods for handling payments.
type payment interface {
	RecordPayment(ctx context.Context, payment *model.Payment, key *model.IdempotencyKey, message *model.OutboxMessage) (*model.Payment, error) // Persists a payment, its idempotency key and an optional outbox message in one transaction
	GetPaymentByID(ctx context.Context, paymentID, tenantID string) (*model.Payment, error)                                                     // Retrieves a payment by ID, scoped to a tenant
	GetPaymentByIntentID(ctx context.Context, intentID, tenantID string) (*model.Payment, error)                                                // Retrieves a payment by provider intent ID, scoped to a tenant
	ReconcilePayment(ctx context.Context, event *model.ProviderEvent, status string, message *model.OutboxMessage) (*model.Payment, bool, error) // Applies a provider callback: dedup, guarded status update and outbox write in one transaction
	GetAllPayments(ctx context.Context, tenantID string, limit, offset int) ([]model.Payment, error)                                             // Retrieves payments for a tenant
}

// idempotency defines methods for handling idempotency keys.
type idempotency interface {
	GetPaymentByIdempotencyKey(ctx context.Context, key, tenantID, userID string) (*model.Payment, error) // Retrieves the payment a previously recorded key is linked to
}

// outbox defines methods for handling the transactional outbox.
type outbox interface {
	GetUnprocessedOutboxMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) // Retrieves the oldest unprocessed outbox messages
	CommitOutboxResults(ctx context.Context, results []model.OutboxResult) error                 // Applies one relay pass's processed/failed markers in a single transaction
}
