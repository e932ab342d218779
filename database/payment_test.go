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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"

	"github.com/lib/pq"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestPayment() *model.Payment {
	return &model.Payment{
		PaymentID:      model.GenerateUUIDWithSuffix("pay"),
		TenantID:       "tenant-1",
		UserID:         "user-1",
		IntentID:       "pi_123",
		Amount:         decimal.NewFromFloat(100.50),
		Currency:       "USD",
		Provider:       "stripe",
		Status:         model.StatusPending,
		IdempotencyKey: gofakeit.UUID(),
		CreatedAt:      time.Now(),
	}
}

func newTestKey(payment *model.Payment) *model.IdempotencyKey {
	return &model.IdempotencyKey{
		Key:            payment.IdempotencyKey,
		TenantID:       payment.TenantID,
		UserID:         payment.UserID,
		Operation:      "create_payment",
		LinkedEntityID: payment.PaymentID,
		CreatedAt:      time.Now(),
	}
}

func paymentColumns() []string {
	return []string{"payment_id", "tenant_id", "user_id", "intent_id", "amount", "currency", "provider", "provider_reference", "status", "idempotency_key", "checkout_url", "created_at"}
}

func paymentRow(payment *model.Payment) *sqlmock.Rows {
	return sqlmock.NewRows(paymentColumns()).
		AddRow(payment.PaymentID, payment.TenantID, payment.UserID, payment.IntentID, payment.Amount.String(), payment.Currency, payment.Provider, payment.ProviderReference, payment.Status, payment.IdempotencyKey, payment.CheckoutUrl, payment.CreatedAt)
}

func TestRecordPayment_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	payment := newTestPayment()
	key := newTestKey(payment)
	message := model.NewOutboxMessage(model.EventTypePaymentProcessed, []byte(`{}`))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.payments").
		WithArgs(payment.PaymentID, payment.TenantID, payment.UserID, payment.IntentID, sqlmock.AnyArg(), payment.Currency, payment.Provider, payment.ProviderReference, payment.Status, payment.IdempotencyKey, payment.CheckoutUrl, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO payrail.idempotency_keys").
		WithArgs(key.Key, key.TenantID, key.UserID, key.Operation, key.LinkedEntityID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO payrail.outbox_messages").
		WithArgs(message.MessageID, message.EventType, message.Payload, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	saved, err := ds.RecordPayment(context.Background(), payment, key, message)
	assert.NoError(t, err)
	assert.Equal(t, payment.PaymentID, saved.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPayment_WithoutOutboxMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	payment := newTestPayment()
	key := newTestKey(payment)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO payrail.idempotency_keys").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err = ds.RecordPayment(context.Background(), payment, key, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPayment_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	payment := newTestPayment()
	key := newTestKey(payment)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.payments").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})
	mock.ExpectRollback()

	_, err = ds.RecordPayment(context.Background(), payment, key, nil)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePayment_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	event := &model.ProviderEvent{
		EventID:           "evt_1",
		EventType:         "payment_intent.succeeded",
		IntentID:          "pi_123",
		TenantID:          "tenant-1",
		ProviderReference: "ch_789",
	}

	updated := newTestPayment()
	updated.Status = model.StatusSuccessful
	updated.ProviderReference = "ch_789"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.webhook_events").
		WithArgs(event.EventID, event.TenantID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE payrail.payments").
		WithArgs(model.StatusSuccessful, event.ProviderReference, event.IntentID, event.TenantID).
		WillReturnRows(paymentRow(updated))
	mock.ExpectExec("INSERT INTO payrail.outbox_messages").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	message := model.NewOutboxMessage(model.EventTypePaymentProcessed, nil)
	payment, applied, err := ds.ReconcilePayment(context.Background(), event, model.StatusSuccessful, message)
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.StatusSuccessful, payment.Status)
	assert.NotEmpty(t, message.Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePayment_DuplicateEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	event := &model.ProviderEvent{EventID: "evt_1", IntentID: "pi_123", TenantID: "tenant-1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.webhook_events").
		WillReturnError(&pq.Error{Code: "23505", Message: "unique_violation"})
	mock.ExpectRollback()

	payment, applied, err := ds.ReconcilePayment(context.Background(), event, model.StatusSuccessful, nil)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Nil(t, payment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePayment_AlreadyTerminal(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	event := &model.ProviderEvent{EventID: "evt_2", IntentID: "pi_123", TenantID: "tenant-1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payrail.webhook_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE payrail.payments").
		WillReturnRows(sqlmock.NewRows(paymentColumns()))
	mock.ExpectCommit()

	payment, applied, err := ds.ReconcilePayment(context.Background(), event, model.StatusFailed, nil)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Nil(t, payment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	payment := newTestPayment()

	mock.ExpectQuery("SELECT payment_id, tenant_id, user_id, intent_id, amount, currency, provider, provider_reference, status, idempotency_key, checkout_url, created_at FROM payrail.payments").
		WithArgs(payment.PaymentID, payment.TenantID).
		WillReturnRows(paymentRow(payment))

	got, err := ds.GetPaymentByID(context.Background(), payment.PaymentID, payment.TenantID)
	assert.NoError(t, err)
	assert.Equal(t, payment.PaymentID, got.PaymentID)
	assert.True(t, payment.Amount.Equal(got.Amount))
}

func TestGetPaymentByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT payment_id, tenant_id, user_id, intent_id").
		WillReturnRows(sqlmock.NewRows(paymentColumns()))

	_, err = ds.GetPaymentByID(context.Background(), "pay_missing", "tenant-1")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetPaymentByIdempotencyKey_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	payment := newTestPayment()

	mock.ExpectQuery("SELECT (.+) FROM payrail.idempotency_keys k").
		WithArgs(payment.IdempotencyKey, payment.TenantID, payment.UserID).
		WillReturnRows(paymentRow(payment))

	got, err := ds.GetPaymentByIdempotencyKey(context.Background(), payment.IdempotencyKey, payment.TenantID, payment.UserID)
	assert.NoError(t, err)
	assert.Equal(t, payment.PaymentID, got.PaymentID)
}

func TestGetPaymentByIdempotencyKey_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM payrail.idempotency_keys k").
		WillReturnRows(sqlmock.NewRows(paymentColumns()))

	_, err = ds.GetPaymentByIdempotencyKey(context.Background(), "idem-missing", "tenant-1", "user-1")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetAllPayments_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	first := newTestPayment()
	second := newTestPayment()
	second.Status = model.StatusSuccessful

	rows := paymentRow(first).
		AddRow(second.PaymentID, second.TenantID, second.UserID, second.IntentID, second.Amount.String(), second.Currency, second.Provider, second.ProviderReference, second.Status, second.IdempotencyKey, second.CheckoutUrl, second.CreatedAt)

	mock.ExpectQuery("SELECT (.+) FROM payrail.payments").
		WithArgs("tenant-1", 20, 0).
		WillReturnRows(rows)

	payments, err := ds.GetAllPayments(context.Background(), "tenant-1", 20, 0)
	assert.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.Equal(t, model.StatusSuccessful, payments[1].Status)
}
