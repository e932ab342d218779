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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/database/mocks"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

const webhookTestSecret = "whsec_test"

func mockWebhookConfig(t *testing.T) {
	t.Helper()
	conf := &config.Configuration{}
	conf.Webhook.SigningSecret = webhookTestSecret
	config.MockConfig(conf)
}

func webhookPayload(eventID, eventType, objectID, appID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"%s","type":"%s","data":{"object":{"id":"%s","metadata":{"app_id":"%s"}}}}`, eventID, eventType, objectID, appID))
}

func TestReconcileWebhook_SuccessEvent(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := webhookPayload("evt_1", "payment_intent.succeeded", "pi_123", "tenant-1")
	header := signPayload(t, payload, "1724800000", webhookTestSecret)

	reconciled := &model.Payment{PaymentID: "pay_1", Status: model.StatusSuccessful}
	ds.On("ReconcilePayment", mock.Anything, mock.Anything, model.StatusSuccessful, mock.Anything).
		Return(reconciled, true, nil).
		Run(func(args mock.Arguments) {
			event := args.Get(1).(*model.ProviderEvent)
			assert.Equal(t, "evt_1", event.EventID)
			assert.Equal(t, "pi_123", event.IntentID)
			assert.Equal(t, "tenant-1", event.TenantID)
		}).Once()

	payment, applied, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, model.StatusSuccessful, payment.Status)
	ds.AssertExpectations(t)
}

func TestReconcileWebhook_FailureEvent(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := webhookPayload("evt_2", "payment_intent.payment_failed", "pi_123", "tenant-1")
	header := signPayload(t, payload, "1724800000", webhookTestSecret)

	ds.On("ReconcilePayment", mock.Anything, mock.Anything, model.StatusFailed, mock.Anything).
		Return(&model.Payment{PaymentID: "pay_1", Status: model.StatusFailed}, true, nil).Once()

	_, applied, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.NoError(t, err)
	assert.True(t, applied)
	ds.AssertExpectations(t)
}

func TestReconcileWebhook_BadSignature(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := webhookPayload("evt_1", "payment_intent.succeeded", "pi_123", "tenant-1")
	header := signPayload(t, payload, "1724800000", "whsec_wrong")

	_, _, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidSignature, apiErr.Code)
	ds.AssertNotCalled(t, "ReconcilePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileWebhook_DuplicateEventAcked(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := webhookPayload("evt_1", "checkout.session.completed", "cs_123", "tenant-1")
	header := signPayload(t, payload, "1724800000", webhookTestSecret)

	ds.On("ReconcilePayment", mock.Anything, mock.Anything, model.StatusSuccessful, mock.Anything).
		Return(nil, false, nil).Once()

	payment, applied, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Nil(t, payment)
}

func TestReconcileWebhook_UnhandledEventType(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := webhookPayload("evt_9", "customer.created", "cus_1", "tenant-1")
	header := signPayload(t, payload, "1724800000", webhookTestSecret)

	_, applied, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.NoError(t, err)
	assert.False(t, applied)
	ds.AssertNotCalled(t, "ReconcilePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileWebhook_MalformedPayload(t *testing.T) {
	mockWebhookConfig(t)
	ds := new(mocks.MockDataSource)
	service := newTestPayrail(ds, &MockPublisher{}, nil)

	payload := []byte(`not json`)
	header := signPayload(t, payload, "1724800000", webhookTestSecret)

	_, _, err := service.ReconcileWebhook(context.Background(), payload, header)
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrBadRequest, apiErr.Code)
}
