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

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/internal/notification"
	"github.com/payrail/payrail/model"
)

// StartOutboxRelay polls the outbox on a fixed interval and publishes staged
// messages in creation order. Publish happens before mark, so a crash in
// between republishes the message; the broker and consumers dedup on the
// message ID. It blocks until the context is cancelled.
func (p *Payrail) StartOutboxRelay(ctx context.Context) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	interval := time.Duration(conf.Outbox.PollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"interval":   interval,
		"batch_size": conf.Outbox.BatchSize,
	}).Info("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.RelayOutboxBatch(ctx, conf.Outbox.BatchSize); err != nil {
				logrus.WithError(err).Error("outbox relay pass failed")
				notification.NotifyError(err)
			}
		}
	}
}

// RelayOutboxBatch runs one relay pass: fetch up to batchSize unprocessed
// messages, publish each and commit every row marker for the pass in one
// transaction at the end. A failed publish is recorded on its message and
// does not stop the rest of the batch.
func (p *Payrail) RelayOutboxBatch(ctx context.Context, batchSize int) error {
	messages, err := p.datasource.GetUnprocessedOutboxMessages(ctx, batchSize)
	if err != nil {
		return errors.Wrap(err, "fetching unprocessed outbox messages")
	}
	if len(messages) == 0 {
		return nil
	}

	results := make([]model.OutboxResult, 0, len(messages))
	for _, message := range messages {
		if err := p.queue.PublishEvent(ctx, message); err != nil {
			logrus.WithError(err).WithField("message_id", message.MessageID).Error("failed to publish outbox message")
			results = append(results, model.OutboxResult{MessageID: message.MessageID, Error: err.Error()})
			continue
		}
		results = append(results, model.OutboxResult{MessageID: message.MessageID})
		logrus.WithFields(logrus.Fields{
			"message_id": message.MessageID,
			"event_type": message.EventType,
		}).Info("outbox message published")
	}

	// Publishes already happened, so a failed commit republishes the whole
	// pass; the broker dedups on the message ID.
	if err := p.datasource.CommitOutboxResults(ctx, results); err != nil {
		return errors.Wrap(err, "committing outbox results")
	}
	return nil
}
