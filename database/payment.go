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
	"database/sql"
	"fmt"
	"time"

	"context"

	"go.opentelemetry.io/otel"

	"github.com/lib/pq"

	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

// RecordPayment persists a payment attempt, its idempotency key and an
// optional outbox message in a single transaction. Either all three rows
// land or none do; callers rely on that for the outbox guarantee.
//
// A unique violation on the payments or idempotency_keys table means a
// concurrent request with the same key won the race; it surfaces as
// ErrConflict so the caller can re-read the winner's payment.
func (d Datasource) RecordPayment(ctx context.Context, payment *model.Payment, key *model.IdempotencyKey, message *model.OutboxMessage) (*model.Payment, error) {
	ctx, span := otel.Tracer("payment.orchestrator").Start(ctx, "Saving payment to db")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payrail.payments(payment_id,tenant_id,user_id,intent_id,amount,currency,provider,provider_reference,status,idempotency_key,checkout_url,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		payment.PaymentID, payment.TenantID, payment.UserID, payment.IntentID, payment.Amount, payment.Currency, payment.Provider, payment.ProviderReference, payment.Status, payment.IdempotencyKey, payment.CheckoutUrl, payment.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteError(err, "Failed to record payment")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payrail.idempotency_keys(key,tenant_id,user_id,operation,linked_entity_id,created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		key.Key, key.TenantID, key.UserID, key.Operation, key.LinkedEntityID, key.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteError(err, "Failed to record idempotency key")
	}

	if message != nil {
		err = insertOutboxMessage(ctx, tx, message)
		if err != nil {
			return nil, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, mapWriteError(err, "Failed to commit payment")
	}

	return payment, nil
}

// ReconcilePayment applies a provider callback in one transaction: the
// provider event id is claimed in webhook_events, the payment is moved out of
// PENDING with a status-guarded update, and the outcome event is staged in
// the outbox. The bool result reports whether a transition actually happened.
//
// Redelivered events hit the webhook_events unique index and return
// (nil, false, nil). Events for unknown payments, or for payments already in
// a terminal status, also apply nothing; the caller acknowledges all of
// these so the provider stops retrying.
func (d Datasource) ReconcilePayment(ctx context.Context, event *model.ProviderEvent, status string, message *model.OutboxMessage) (*model.Payment, bool, error) {
	ctx, span := otel.Tracer("payment.reconciler").Start(ctx, "Reconciling provider event")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payrail.webhook_events(provider_event_id,tenant_id,received_at) VALUES ($1,$2,$3)`,
		event.EventID, event.TenantID, time.Now(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, false, nil
		}
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record webhook event", err)
	}

	payment := &model.Payment{}
	row := tx.QueryRowContext(ctx, `
		UPDATE payrail.payments
		SET status = $1, provider_reference = $2
		WHERE intent_id = $3 AND tenant_id = $4 AND status = 'PENDING'
		RETURNING payment_id, tenant_id, user_id, intent_id, amount, currency, provider, provider_reference, status, idempotency_key, checkout_url, created_at
	`, status, event.ProviderReference, event.IntentID, event.TenantID)
	err = scanPayment(row, payment)
	if err != nil {
		if err == sql.ErrNoRows {
			// Unknown intent or already terminal. Keep the dedup row and
			// acknowledge without a transition.
			if commitErr := tx.Commit(); commitErr != nil {
				return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit reconciliation", commitErr)
			}
			return nil, false, nil
		}
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payment status", err)
	}

	if message != nil {
		// Rebuild the payload from the updated row so the event carries the
		// final status.
		payload, payloadErr := model.NewPaymentProcessedEvent(payment).ToJSON()
		if payloadErr != nil {
			return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal event payload", payloadErr)
		}
		message.Payload = payload
		err = insertOutboxMessage(ctx, tx, message)
		if err != nil {
			return nil, false, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit reconciliation", err)
	}

	return payment, true, nil
}

// GetPaymentByID retrieves a payment by its ID, scoped to the tenant making
// the request. Lookups are cached briefly since terminal payments never
// change.
func (d Datasource) GetPaymentByID(ctx context.Context, paymentID, tenantID string) (*model.Payment, error) {
	cacheKey := fmt.Sprintf("payment:%s:%s", tenantID, paymentID)

	payment := &model.Payment{}
	if d.Cache != nil {
		err := d.Cache.Get(ctx, cacheKey, payment)
		if err == nil && payment.PaymentID != "" && payment.IsTerminal() {
			return payment, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT payment_id, tenant_id, user_id, intent_id, amount, currency, provider, provider_reference, status, idempotency_key, checkout_url, created_at
		FROM payrail.payments
		WHERE payment_id = $1 AND tenant_id = $2
	`, paymentID, tenantID)

	err := scanPayment(row, payment)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment with ID '%s' not found", paymentID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment", err)
	}

	if d.Cache != nil && payment.IsTerminal() {
		_ = d.Cache.Set(ctx, cacheKey, payment, 5*time.Minute)
	}

	return payment, nil
}

// GetPaymentByIntentID retrieves a payment by the provider intent attached to
// it, scoped to a tenant.
func (d Datasource) GetPaymentByIntentID(ctx context.Context, intentID, tenantID string) (*model.Payment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT payment_id, tenant_id, user_id, intent_id, amount, currency, provider, provider_reference, status, idempotency_key, checkout_url, created_at
		FROM payrail.payments
		WHERE intent_id = $1 AND tenant_id = $2
	`, intentID, tenantID)

	payment := &model.Payment{}
	err := scanPayment(row, payment)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Payment with intent '%s' not found", intentID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment", err)
	}

	return payment, nil
}

func (d Datasource) GetAllPayments(ctx context.Context, tenantID string, limit, offset int) ([]model.Payment, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT payment_id, tenant_id, user_id, intent_id, amount, currency, provider, provider_reference, status, idempotency_key, checkout_url, created_at
		FROM payrail.payments
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payments", err)
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		payment := model.Payment{}
		err = scanPaymentRows(rows, &payment)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment data", err)
		}
		payments = append(payments, payment)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating payments", err)
	}

	return payments, nil
}

func scanPayment(row *sql.Row, payment *model.Payment) error {
	var intentID, providerReference, checkoutUrl sql.NullString
	err := row.Scan(&payment.PaymentID, &payment.TenantID, &payment.UserID, &intentID, &payment.Amount, &payment.Currency, &payment.Provider, &providerReference, &payment.Status, &payment.IdempotencyKey, &checkoutUrl, &payment.CreatedAt)
	if err != nil {
		return err
	}
	payment.IntentID = intentID.String
	payment.ProviderReference = providerReference.String
	payment.CheckoutUrl = checkoutUrl.String
	return nil
}

func scanPaymentRows(rows *sql.Rows, payment *model.Payment) error {
	var intentID, providerReference, checkoutUrl sql.NullString
	err := rows.Scan(&payment.PaymentID, &payment.TenantID, &payment.UserID, &intentID, &payment.Amount, &payment.Currency, &payment.Provider, &providerReference, &payment.Status, &payment.IdempotencyKey, &checkoutUrl, &payment.CreatedAt)
	if err != nil {
		return err
	}
	payment.IntentID = intentID.String
	payment.ProviderReference = providerReference.String
	payment.CheckoutUrl = checkoutUrl.String
	return nil
}

func mapWriteError(err error, message string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return apierror.NewAPIError(apierror.ErrConflict, "A payment with this idempotency key already exists", err)
		default:
			return apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
		}
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, message, err)
}
