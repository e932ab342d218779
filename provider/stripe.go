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

package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentintent"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

const ProviderStripe = "stripe"

type StripeProvider struct {
	successUrl string
	cancelUrl  string
}

func NewStripeProvider(conf *config.Configuration) *StripeProvider {
	stripe.Key = conf.Stripe.ApiKey
	return &StripeProvider{
		successUrl: conf.Stripe.SuccessUrl,
		cancelUrl:  conf.Stripe.CancelUrl,
	}
}

func (s *StripeProvider) Name() string {
	return ProviderStripe
}

// Charge creates and immediately confirms a PaymentIntent against the
// caller's payment method. The payment's own ID is the Stripe idempotency
// key, so retrying the same payment returns the original intent.
func (s *StripeProvider) Charge(ctx context.Context, payment *model.Payment, paymentMethodID string) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minorUnits(payment.Amount)),
		Currency:      stripe.String(strings.ToLower(payment.Currency)),
		PaymentMethod: stripe.String(paymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(payment.PaymentID)
	params.AddMetadata("payment_id", payment.PaymentID)
	params.AddMetadata("app_id", payment.TenantID)

	intent, err := paymentintent.New(params)
	if err != nil {
		logrus.WithError(err).Error("stripe payment intent creation failed")
		return nil, mapStripeError(err)
	}

	return &ChargeResult{
		IntentID:          intent.ID,
		ProviderReference: intent.ID,
		Status:            mapIntentStatus(intent.Status),
	}, nil
}

// CreateCheckoutSession creates a hosted checkout page for the payment. The
// payment stays PENDING until the checkout.session.completed callback.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, payment *model.Payment) (*SessionResult, error) {
	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(payment.Currency)),
					UnitAmount: stripe.Int64(minorUnits(payment.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Payment " + payment.PaymentID),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.cancelUrl),
	}
	params.Context = ctx
	params.SetIdempotencyKey(payment.PaymentID)
	params.AddMetadata("payment_id", payment.PaymentID)
	params.AddMetadata("app_id", payment.TenantID)

	session, err := checkoutsession.New(params)
	if err != nil {
		logrus.WithError(err).Error("stripe checkout session creation failed")
		return nil, mapStripeError(err)
	}

	return &SessionResult{
		IntentID:    session.ID,
		CheckoutUrl: session.URL,
	}, nil
}

// minorUnits converts a decimal major-unit amount to the integer minor units
// Stripe expects.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func mapIntentStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return model.StatusSuccessful
	case stripe.PaymentIntentStatusCanceled:
		return model.StatusFailed
	default:
		return model.StatusPending
	}
}

func mapStripeError(err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return apierror.NewAPIError(apierror.ErrProvider, stripeErr.Msg, err)
		}
	}
	return apierror.NewAPIError(apierror.ErrInternalServer, "Payment provider request failed", err)
}
