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
package api

import (
	"net/http"
	"strconv"

	model2 "github.com/payrail/payrail/api/model"

	"github.com/gin-gonic/gin"
	"github.com/payrail/payrail"
	"github.com/payrail/payrail/api/middleware"
	"github.com/payrail/payrail/internal/apierror"
)

// webhookSignatureHeaders maps a provider tag to the header carrying its
// callback signature.
var webhookSignatureHeaders = map[string]string{
	"stripe": "Stripe-Signature",
}

func (a Api) CreatePayment(c *gin.Context) {
	a.dispatchPayment(c, payrail.CommandCreatePayment)
}

func (a Api) InitiatePaymentSession(c *gin.Context) {
	a.dispatchPayment(c, payrail.CommandInitiatePaymentSession)
}

// dispatchPayment is the shared entry for both payment commands: bind,
// validate, attach the caller's verified identity and dispatch.
func (a Api) dispatchPayment(c *gin.Context, commandName string) {
	var newPayment model2.CreatePayment
	if err := c.ShouldBindJSON(&newPayment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	validate := newPayment.ValidateCreatePayment
	if commandName == payrail.CommandInitiatePaymentSession {
		validate = newPayment.ValidateInitiateSession
	}
	if err := validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	cmd := &payrail.PaymentCommand{
		Name:            commandName,
		TenantID:        c.GetString(middleware.ContextTenantID),
		UserID:          c.GetString(middleware.ContextUserID),
		Amount:          newPayment.Amount,
		Currency:        newPayment.Currency,
		Provider:        newPayment.Provider,
		PaymentMethodID: newPayment.PaymentMethodID,
		IdempotencyKey:  newPayment.IdempotencyKey,
	}

	resp, err := a.payrail.Dispatcher().Dispatch(c.Request.Context(), cmd)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetPayment(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.payrail.GetPayment(c.Request.Context(), id, c.GetString(middleware.ContextTenantID))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetAllPayments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	resp, err := a.payrail.GetPayments(c.Request.Context(), c.GetString(middleware.ContextTenantID), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ProviderWebhook receives provider callbacks. Anything the reconciler
// applied or deliberately ignored is acknowledged with 200 so the provider
// stops retrying; only bad signatures, malformed payloads and internal
// failures are surfaced as errors.
func (a Api) ProviderWebhook(c *gin.Context) {
	providerTag, passed := c.Params.Get("provider")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider is required. pass provider in the route /:provider"})
		return
	}
	headerName, ok := webhookSignatureHeaders[providerTag]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown webhook provider"})
		return
	}

	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	payment, applied, err := a.payrail.ReconcileWebhook(c.Request.Context(), rawBody, c.GetHeader(headerName))
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	if !applied {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "payment_id": payment.PaymentID, "status": payment.Status})
}
