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
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/payrail/payrail"
	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/database/mocks"
	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
	"github.com/payrail/payrail/provider"
)

const (
	testJwtSecret     = "jwt_test_secret"
	testWebhookSecret = "whsec_test"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		err := json.NewDecoder(resp.Body).Decode(&s.Response)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(ds *mocks.MockDataSource) *gin.Engine {
	conf := &config.Configuration{}
	conf.Auth.JwtSecret = testJwtSecret
	conf.Webhook.SigningSecret = testWebhookSecret
	config.MockConfig(conf)

	registry := provider.NewRegistry(conf)
	registry.Register(&payrail.MockProvider{ProviderName: "mockpay"})
	service := payrail.NewPayrailWithDeps(ds, &payrail.MockPublisher{}, registry)
	return NewAPI(service).Router()
}

func bearerToken(t *testing.T, tenantID, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"app_id": tenantID,
		"sub":    userID,
		"role":   "payments:write",
	})
	signed, err := token.SignedString([]byte(testJwtSecret))
	assert.NoError(t, err)
	return "Bearer " + signed
}

func signWebhook(payload []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func notFoundErr() apierror.APIError {
	return apierror.APIError{Code: apierror.ErrNotFound, Message: "not found"}
}

func TestCreatePayment_API_Success(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	ds.On("GetPaymentByIdempotencyKey", mock.Anything, "idem-1", "tenant-1", "user-1").
		Return(nil, notFoundErr()).Once()
	ds.On("RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Payment{PaymentID: "pay_1", TenantID: "tenant-1", Status: model.StatusSuccessful}, nil).
		Run(func(args mock.Arguments) {
			payment := args.Get(1).(*model.Payment)
			assert.Equal(t, "tenant-1", payment.TenantID)
			assert.Equal(t, "user-1", payment.UserID)
		}).Once()

	body := `{"amount":"25.00","currency":"USD","provider":"mockpay","payment_method_id":"pm_card_visa","idempotency_key":"idem-1"}`
	var response model.Payment
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(body),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/payments",
		Header:   map[string]string{"Authorization": bearerToken(t, "tenant-1", "user-1")},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "pay_1", response.PaymentID)
	ds.AssertExpectations(t)
}

func TestCreatePayment_API_MissingToken(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	body := `{"amount":"25.00","currency":"USD","provider":"mockpay","payment_method_id":"pm_card_visa","idempotency_key":"idem-1"}`
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(body),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/payments",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	ds.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePayment_API_ForgedToken(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"app_id": "tenant-1", "sub": "user-1"})
	forged, err := token.SignedString([]byte("wrong_secret"))
	assert.NoError(t, err)

	body := `{"amount":"25.00","currency":"USD","provider":"mockpay","payment_method_id":"pm_card_visa","idempotency_key":"idem-1"}`
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(body),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/payments",
		Header:  map[string]string{"Authorization": "Bearer " + forged},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreatePayment_API_InvalidBody(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	body := `{"amount":"-1","currency":"USD","provider":"mockpay","payment_method_id":"pm_card_visa","idempotency_key":"idem-1"}`
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(body),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/payments",
		Header:  map[string]string{"Authorization": bearerToken(t, "tenant-1", "user-1")},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInitiatePaymentSession_API_ReturnsCheckoutUrl(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	ds.On("GetPaymentByIdempotencyKey", mock.Anything, "idem-2", "tenant-1", "user-1").
		Return(nil, notFoundErr()).Once()
	ds.On("RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Payment{PaymentID: "pay_2", Status: model.StatusPending, CheckoutUrl: "https://checkout.example.com/cs_mock"}, nil).Once()

	body := `{"amount":"10.00","currency":"EUR","provider":"mockpay","idempotency_key":"idem-2"}`
	var response model.Payment
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(body),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/payments/initiate-session",
		Header:   map[string]string{"Authorization": bearerToken(t, "tenant-1", "user-1")},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "https://checkout.example.com/cs_mock", response.CheckoutUrl)
}

func TestGetPayment_API_ScopedToTenant(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	ds.On("GetPaymentByID", mock.Anything, "pay_1", "tenant-1").
		Return(&model.Payment{PaymentID: "pay_1", TenantID: "tenant-1", Status: model.StatusSuccessful}, nil).Once()

	var response model.Payment
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBufferString(""),
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/payments/pay_1",
		Header:   map[string]string{"Authorization": bearerToken(t, "tenant-1", "user-1")},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pay_1", response.PaymentID)
	ds.AssertExpectations(t)
}

func TestProviderWebhook_API_Acknowledged(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"app_id":"tenant-1"}}}}`)
	ds.On("ReconcilePayment", mock.Anything, mock.Anything, model.StatusSuccessful, mock.Anything).
		Return(&model.Payment{PaymentID: "pay_1", Status: model.StatusSuccessful}, true, nil).Once()

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  bytes.NewBuffer(payload),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/payments/webhooks/stripe",
		Header:   map[string]string{"Stripe-Signature": signWebhook(payload, "1724800000")},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, response["received"])
	assert.Equal(t, "pay_1", response["payment_id"])
}

func TestProviderWebhook_API_BadSignature(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/payments/webhooks/stripe",
		Header:  map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	ds.AssertNotCalled(t, "ReconcilePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderWebhook_API_UnknownProvider(t *testing.T) {
	ds := new(mocks.MockDataSource)
	router := setupRouter(ds)

	resp, err := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{}`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/payments/webhooks/braintree",
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
