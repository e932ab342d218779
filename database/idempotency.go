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
	"database/sql"
	"fmt"

	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

// GetPaymentByIdempotencyKey resolves a previously recorded idempotency key
// to the payment it was linked to. Keys are scoped to (key, tenant, user);
// the same key string under a different tenant or user is a different key.
func (d Datasource) GetPaymentByIdempotencyKey(ctx context.Context, key, tenantID, userID string) (*model.Payment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT p.payment_id, p.tenant_id, p.user_id, p.intent_id, p.amount, p.currency, p.provider, p.provider_reference, p.status, p.idempotency_key, p.checkout_url, p.created_at
		FROM payrail.idempotency_keys k
		JOIN payrail.payments p ON p.payment_id = k.linked_entity_id
		WHERE k.key = $1 AND k.tenant_id = $2 AND k.user_id = $3
	`, key, tenantID, userID)

	payment := &model.Payment{}
	err := scanPayment(row, payment)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Idempotency key '%s' not found", key), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve idempotency key", err)
	}

	return payment, nil
}
