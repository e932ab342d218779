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
	"errors"
	"log"

	"github.com/hibiken/asynq"

	"github.com/payrail/payrail/config"
	redis_db "github.com/payrail/payrail/internal/redis-db"
	"github.com/payrail/payrail/model"
)

// Queue publishes outbox messages to the message bus.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// EventPublisher is the capability the relay needs from the queue.
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *model.OutboxMessage) error
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// PublishEvent enqueues one outbox message on the payment event queue. The
// outbox message ID is the task ID, so a message republished after a crash
// between publish and mark dedups at the broker.
func (q *Queue) PublishEvent(ctx context.Context, message *model.OutboxMessage) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(message.MessageID),
		asynq.Queue(cfg.Queue.PaymentEventQueue),
	}
	task := asynq.NewTask(message.EventType, message.Payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf(" [*] Task %s already enqueued, treating as published", message.MessageID)
			return nil
		}
		return err
	}
	log.Printf(" [*] Successfully enqueued event: %+v", info.ID)
	return nil
}
