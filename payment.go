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
	"time"

	"go.opentelemetry.io/otel"

	"github.com/sirupsen/logrus"

	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
	"github.com/payrail/payrail/provider"
)

// handleCreatePayment runs the immediate-charge flow: resolve the
// idempotency key, charge through the provider and persist the attempt
// atomically. Replays return the original payment without touching the
// provider.
func (p *Payrail) handleCreatePayment(ctx context.Context, cmd *PaymentCommand) (*model.Payment, error) {
	ctx, span := otel.Tracer("payment.orchestrator").Start(ctx, "Creating payment")
	defer span.End()

	if existing, ok, err := p.replayedPayment(ctx, cmd); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	psp, err := p.providers.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	payment := p.newPaymentFromCommand(cmd)

	// The payment ID doubles as the provider idempotency key, so a crash
	// after this call and a retry sees the provider's original result.
	result, err := psp.Charge(ctx, payment, cmd.PaymentMethodID)
	if err != nil {
		apiErr, ok := err.(apierror.APIError)
		if !ok || apiErr.Code != apierror.ErrProvider {
			return nil, err
		}
		// A decline is an outcome, not a transport failure. Recording it
		// FAILED lets a retry of the same key replay the decline instead of
		// charging the provider again.
		logrus.WithFields(logrus.Fields{
			"payment_id": payment.PaymentID,
			"reason":     apiErr.Message,
		}).Info("provider declined charge, recording failed payment")
		result = &provider.ChargeResult{Status: model.StatusFailed}
	}
	payment.IntentID = result.IntentID
	payment.ProviderReference = result.ProviderReference
	payment.Status = result.Status

	var message *model.OutboxMessage
	if payment.Status == model.StatusSuccessful {
		payload, err := model.NewPaymentProcessedEvent(payment).ToJSON()
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal event payload", err)
		}
		message = model.NewOutboxMessage(model.EventTypePaymentProcessed, payload)
	}

	return p.persistPayment(ctx, cmd, payment, message)
}

// handleInitiatePaymentSession runs the hosted checkout flow: create a
// provider session, persist the PENDING payment with its checkout URL and
// leave the outcome to the webhook reconciler.
func (p *Payrail) handleInitiatePaymentSession(ctx context.Context, cmd *PaymentCommand) (*model.Payment, error) {
	ctx, span := otel.Tracer("payment.orchestrator").Start(ctx, "Initiating payment session")
	defer span.End()

	if existing, ok, err := p.replayedPayment(ctx, cmd); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	psp, err := p.providers.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}

	payment := p.newPaymentFromCommand(cmd)

	result, err := psp.CreateCheckoutSession(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.IntentID = result.IntentID
	payment.CheckoutUrl = result.CheckoutUrl

	return p.persistPayment(ctx, cmd, payment, nil)
}

// replayedPayment checks whether the command's idempotency key was already
// recorded for this tenant and user. A hit short-circuits the whole flow.
func (p *Payrail) replayedPayment(ctx context.Context, cmd *PaymentCommand) (*model.Payment, bool, error) {
	existing, err := p.datasource.GetPaymentByIdempotencyKey(ctx, cmd.IdempotencyKey, cmd.TenantID, cmd.UserID)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	logrus.WithFields(logrus.Fields{
		"payment_id":      existing.PaymentID,
		"idempotency_key": cmd.IdempotencyKey,
	}).Info("idempotency key replay, returning recorded payment")
	return existing, true, nil
}

func (p *Payrail) newPaymentFromCommand(cmd *PaymentCommand) *model.Payment {
	return &model.Payment{
		PaymentID:      model.GenerateUUIDWithSuffix("pay"),
		TenantID:       cmd.TenantID,
		UserID:         cmd.UserID,
		Amount:         cmd.Amount,
		Currency:       cmd.Currency,
		Provider:       cmd.Provider,
		Status:         model.StatusPending,
		IdempotencyKey: cmd.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
}

// persistPayment records the payment, its idempotency key and any staged
// event in one transaction. Losing the key race to a concurrent request is
// not an error; the winner's payment is returned instead.
func (p *Payrail) persistPayment(ctx context.Context, cmd *PaymentCommand, payment *model.Payment, message *model.OutboxMessage) (*model.Payment, error) {
	key := &model.IdempotencyKey{
		Key:            cmd.IdempotencyKey,
		TenantID:       cmd.TenantID,
		UserID:         cmd.UserID,
		Operation:      cmd.Name,
		LinkedEntityID: payment.PaymentID,
		CreatedAt:      time.Now(),
	}

	saved, err := p.datasource.RecordPayment(ctx, payment, key, message)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrConflict {
			winner, readErr := p.datasource.GetPaymentByIdempotencyKey(ctx, cmd.IdempotencyKey, cmd.TenantID, cmd.UserID)
			if readErr != nil {
				return nil, readErr
			}
			logrus.WithField("payment_id", winner.PaymentID).Info("lost idempotency race, returning winner")
			return winner, nil
		}
		return nil, err
	}
	return saved, nil
}

// GetPayment retrieves a payment by ID, scoped to the requesting tenant.
func (p *Payrail) GetPayment(ctx context.Context, paymentID, tenantID string) (*model.Payment, error) {
	return p.datasource.GetPaymentByID(ctx, paymentID, tenantID)
}

// GetPayments lists a tenant's payments, newest first.
func (p *Payrail) GetPayments(ctx context.Context, tenantID string, limit, offset int) ([]model.Payment, error) {
	return p.datasource.GetAllPayments(ctx, tenantID, limit, offset)
}

// Providers exposes the provider registry, mainly for validation at the API
// layer.
func (p *Payrail) Providers() *provider.Registry {
	return p.providers
}
