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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/payrail/payrail/config"
	"github.com/payrail/payrail/database"
	redis_db "github.com/payrail/payrail/internal/redis-db"
	"github.com/payrail/payrail/provider"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// Payrail represents the main struct for the Payrail application.
type Payrail struct {
	queue      EventPublisher
	redis      redis.UniversalClient
	datasource database.IDataSource
	providers  *provider.Registry
	dispatcher *Dispatcher
}

// NewPayrail initializes a new instance of Payrail with the provided database
// datasource. It fetches the configuration and initializes the Redis client,
// queue, provider registry and command dispatcher. Dispatcher wiring is
// validated here so a missing handler fails startup, not a request.
func NewPayrail(db database.IDataSource) (*Payrail, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)
	registry := provider.NewRegistry(configuration)

	newPayrail := &Payrail{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		providers:  registry,
	}

	dispatcher := NewDispatcher()
	dispatcher.Register(CommandCreatePayment, newPayrail.handleCreatePayment)
	dispatcher.Register(CommandInitiatePaymentSession, newPayrail.handleInitiatePaymentSession)
	if err := dispatcher.Validate(CommandCreatePayment, CommandInitiatePaymentSession); err != nil {
		return nil, err
	}
	newPayrail.dispatcher = dispatcher

	return newPayrail, nil
}

// NewPayrailWithDeps builds a Payrail from explicit dependencies. It is the
// seam the API tests use to run against mock datasources and providers
// without Redis or Postgres.
func NewPayrailWithDeps(db database.IDataSource, publisher EventPublisher, registry *provider.Registry) *Payrail {
	newPayrail := &Payrail{
		datasource: db,
		queue:      publisher,
		providers:  registry,
	}
	dispatcher := NewDispatcher()
	dispatcher.Register(CommandCreatePayment, newPayrail.handleCreatePayment)
	dispatcher.Register(CommandInitiatePaymentSession, newPayrail.handleInitiatePaymentSession)
	newPayrail.dispatcher = dispatcher
	return newPayrail
}

// Dispatcher exposes the command dispatcher for the API layer.
func (p *Payrail) Dispatcher() *Dispatcher {
	return p.dispatcher
}
