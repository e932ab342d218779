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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(t *testing.T, payload []byte, timestamp, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", timestamp, payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	header := signPayload(t, payload, "1724800000", "whsec_test")

	assert.True(t, VerifyWebhookSignature(payload, header, "whsec_test"))
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(t, payload, "1724800000", "whsec_test")

	assert.False(t, VerifyWebhookSignature(payload, header, "whsec_other"))
}

func TestVerifyWebhookSignature_TamperedBody(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(t, payload, "1724800000", "whsec_test")

	assert.False(t, VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header, "whsec_test"))
}

func TestVerifyWebhookSignature_MalformedHeader(t *testing.T) {
	payload := []byte(`{}`)

	assert.False(t, VerifyWebhookSignature(payload, "", "whsec_test"))
	assert.False(t, VerifyWebhookSignature(payload, "v1=abc", "whsec_test"))
	assert.False(t, VerifyWebhookSignature(payload, "t=123", "whsec_test"))
	assert.False(t, VerifyWebhookSignature(payload, "garbage", "whsec_test"))
}
