package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/payrail/payrail/internal/cache"

	"github.com/payrail/payrail/config"

	_ "github.com/lib/pq"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil} // or Cache: newCache if cache is used
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	// The database container may still be starting; retry the ping with
	// exponential backoff before giving up.
	err = backoff.Retry(db.Ping, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = CreateSchema(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateSchema creates the payrail schema and all tables if they do not
// exist. The DDL is idempotent; it runs on every connect.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS payrail`)
	if err != nil {
		return err
	}
	err = createPaymentTable(db)
	if err != nil {
		return err
	}
	err = createIdempotencyKeyTable(db)
	if err != nil {
		return err
	}
	err = createOutboxMessageTable(db)
	if err != nil {
		return err
	}
	err = createWebhookEventTable(db)
	if err != nil {
		return err
	}
	return nil
}

// createPaymentTable creates a PostgreSQL table for the Payment struct.
// The unique constraint on (tenant_id, user_id, idempotency_key) is the
// authoritative backstop for the idempotency check-then-insert race.
func createPaymentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payrail.payments (
			id SERIAL PRIMARY KEY,
			payment_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			intent_id TEXT,
			amount NUMERIC(20,4) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL,
			provider TEXT NOT NULL,
			provider_reference TEXT,
			status TEXT NOT NULL,
			idempotency_key TEXT NOT NULL,
			checkout_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (tenant_id, user_id, idempotency_key)
		)
	`)
	if err != nil {
		log.Printf("Error creating payments table: %v", err)
		return err
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payments_intent
		ON payrail.payments (intent_id, tenant_id)
	`)
	if err != nil {
		log.Printf("Error creating payments intent index: %v", err)
	}
	return err
}

// createIdempotencyKeyTable creates a PostgreSQL table for the IdempotencyKey struct
func createIdempotencyKeyTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payrail.idempotency_keys (
			key TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			linked_entity_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			PRIMARY KEY (key, tenant_id, user_id)
		)
	`)
	if err != nil {
		log.Printf("Error creating idempotency_keys table: %v", err)
	}
	return err
}

// createOutboxMessageTable creates a PostgreSQL table for the OutboxMessage struct
func createOutboxMessageTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payrail.outbox_messages (
			id SERIAL PRIMARY KEY,
			message_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMP,
			error TEXT
		)
	`)
	if err != nil {
		log.Printf("Error creating outbox_messages table: %v", err)
		return err
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outbox_unprocessed
		ON payrail.outbox_messages (created_at)
		WHERE processed_at IS NULL
	`)
	if err != nil {
		log.Printf("Error creating outbox index: %v", err)
	}
	return err
}

// createWebhookEventTable creates a PostgreSQL table recording provider event
// ids already applied, so redelivered callbacks are no-ops.
func createWebhookEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payrail.webhook_events (
			id SERIAL PRIMARY KEY,
			provider_event_id TEXT NOT NULL UNIQUE,
			tenant_id TEXT,
			received_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating webhook_events table: %v", err)
	}
	return err
}
