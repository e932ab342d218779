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
	"encoding/json"

	"go.opentelemetry.io/otel"

	"github.com/sirupsen/logrus"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

const (
	eventPaymentIntentSucceeded = "payment_intent.succeeded"
	eventPaymentIntentFailed    = "payment_intent.payment_failed"
	eventCheckoutSessionDone    = "checkout.session.completed"
)

// webhookEnvelope is the subset of a provider callback the reconciler needs.
type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ReconcileWebhook applies one provider callback to the payment it belongs
// to. The signature is verified against the raw body before anything is
// parsed. Duplicates, unknown intents, already-terminal payments and
// unhandled event types all return applied=false with no error; the caller
// acknowledges them so the provider stops retrying.
func (p *Payrail) ReconcileWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*model.Payment, bool, error) {
	ctx, span := otel.Tracer("payment.reconciler").Start(ctx, "Reconciling webhook")
	defer span.End()

	conf, err := config.Fetch()
	if err != nil {
		return nil, false, err
	}

	if !VerifyWebhookSignature(rawBody, signatureHeader, conf.Webhook.SigningSecret) {
		return nil, false, apierror.NewAPIError(apierror.ErrInvalidSignature, "Webhook signature verification failed", nil)
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrBadRequest, "Malformed webhook payload", err)
	}

	status, handled := statusForEventType(envelope.Type)
	if !handled {
		logrus.WithField("event_type", envelope.Type).Info("unhandled webhook event type, acknowledging")
		return nil, false, nil
	}

	event := &model.ProviderEvent{
		EventID:           envelope.ID,
		EventType:         envelope.Type,
		IntentID:          envelope.Data.Object.ID,
		TenantID:          envelope.Data.Object.Metadata["app_id"],
		ProviderReference: envelope.Data.Object.ID,
	}
	if event.EventID == "" || event.IntentID == "" {
		return nil, false, apierror.NewAPIError(apierror.ErrBadRequest, "Webhook payload missing event or object id", nil)
	}

	message := model.NewOutboxMessage(model.EventTypePaymentProcessed, nil)
	payment, applied, err := p.datasource.ReconcilePayment(ctx, event, status, message)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		logrus.WithFields(logrus.Fields{
			"event_id":  event.EventID,
			"intent_id": event.IntentID,
		}).Info("webhook applied no transition, acknowledging")
		return nil, false, nil
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.PaymentID,
		"status":     payment.Status,
		"event_id":   event.EventID,
	}).Info("payment reconciled from webhook")
	return payment, true, nil
}

func statusForEventType(eventType string) (string, bool) {
	switch eventType {
	case eventPaymentIntentSucceeded, eventCheckoutSessionDone:
		return model.StatusSuccessful, true
	case eventPaymentIntentFailed:
		return model.StatusFailed, true
	default:
		return "", false
	}
}
