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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT                = "5002"
	DEFAULT_OUTBOX_POLL_SECONDS = 5
	DEFAULT_OUTBOX_BATCH_SIZE   = 20
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"PAYRAIL_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"PAYRAIL_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"PAYRAIL_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"PAYRAIL_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"PAYRAIL_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"PAYRAIL_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"PAYRAIL_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PAYRAIL_REDIS_DNS"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwt_secret" envconfig:"PAYRAIL_AUTH_JWT_SECRET"`
}

type StripeConfig struct {
	ApiKey     string `json:"api_key" envconfig:"PAYRAIL_STRIPE_API_KEY"`
	SuccessUrl string `json:"success_url" envconfig:"PAYRAIL_STRIPE_SUCCESS_URL"`
	CancelUrl  string `json:"cancel_url" envconfig:"PAYRAIL_STRIPE_CANCEL_URL"`
}

// WebhookConfig holds the shared secret used to verify inbound provider
// callbacks. The process refuses to start without it.
type WebhookConfig struct {
	SigningSecret string `json:"signing_secret" envconfig:"PAYRAIL_WEBHOOK_SIGNING_SECRET"`
}

type OutboxConfig struct {
	PollIntervalSec int `json:"poll_interval_sec" envconfig:"PAYRAIL_OUTBOX_POLL_INTERVAL_SEC"`
	BatchSize       int `json:"batch_size" envconfig:"PAYRAIL_OUTBOX_BATCH_SIZE"`
}

type QueueConfig struct {
	PaymentEventQueue string `json:"payment_event_queue" envconfig:"PAYRAIL_QUEUE_PAYMENT_EVENT"`
	MonitoringPort    string `json:"monitoring_port" envconfig:"PAYRAIL_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"PAYRAIL_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"PAYRAIL_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"PAYRAIL_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"PAYRAIL_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"PAYRAIL_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Auth            AuthConfig       `json:"auth"`
	Stripe          StripeConfig     `json:"stripe"`
	Webhook         WebhookConfig    `json:"webhook"`
	Outbox          OutboxConfig     `json:"outbox"`
	Queue           QueueConfig      `json:"queue"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("payrail", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called payrail.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Payrail Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Webhook.SigningSecret == "" {
		log.Println("Error: Webhook signing secret is empty. It's a required field.")
		return errors.New("webhook signing secret is required")
	}

	if cnf.Auth.JwtSecret == "" {
		log.Println("Error: Auth JWT secret is empty. It's a required field.")
		return errors.New("auth JWT secret is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Outbox.PollIntervalSec <= 0 {
		cnf.Outbox.PollIntervalSec = DEFAULT_OUTBOX_POLL_SECONDS
	}
	if cnf.Outbox.BatchSize <= 0 {
		cnf.Outbox.BatchSize = DEFAULT_OUTBOX_BATCH_SIZE
	}

	if cnf.Queue.PaymentEventQueue == "" {
		cnf.Queue.PaymentEventQueue = "payment:events"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5003"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
