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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/model"

	"github.com/hibiken/asynq"
)

// EventNotification is the envelope delivered to a tenant's downstream
// endpoint when a payment reaches a terminal status.
type EventNotification struct {
	Event   string                      `json:"event"`
	Payload model.PaymentProcessedEvent `json:"data"`
}

// deliverHTTP posts an event notification to the configured downstream
// endpoint. Only transport errors surface to the worker's task retry; a
// non-2XX response from the endpoint is logged and dropped.
func deliverHTTP(data EventNotification) error {
	conf, err := config.Fetch()
	if err != nil {
		log.Println("Error fetching config:", err)
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Println("Error marshaling data:", err)
		return err
	}
	payload := bytes.NewBuffer(jsonData)

	req, err := http.NewRequest("POST", conf.Notification.Webhook.Url, payload)
	if err != nil {
		log.Println("Error creating request:", err)
		return err
	}

	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Println("Error sending request:", err)
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Request failed with status code: %d\n", resp.StatusCode)
		return nil
	}

	log.Println("Event notification delivered:", data.Event)
	return nil
}

// ProcessPaymentEvent consumes a payment outcome task from the queue and
// delivers it downstream. Consumers are expected to dedup on payment id and
// status since delivery is at-least-once.
func ProcessPaymentEvent(_ context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var event model.PaymentProcessedEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		log.Printf("Error unmarshaling task payload: %v", err)
		return err
	}

	log.Printf("Processing payment event: %s %s", event.PaymentID, event.Status)
	return deliverHTTP(EventNotification{
		Event:   model.EventTypePaymentProcessed,
		Payload: event,
	})
}
