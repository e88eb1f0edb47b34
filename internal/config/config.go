package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment" validate:"required"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Logging      LoggingConfig      `mapstructure:"logging" validate:"required"`
	Postgres     PostgresConfig     `mapstructure:"postgres" validate:"required"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	DynamoDB     DynamoDBConfig     `mapstructure:"dynamodb"`
	Invoicing    InvoicingConfig    `mapstructure:"invoicing" validate:"required"`
	Locker       LockerConfig       `mapstructure:"locker" validate:"required"`
	Outbox       OutboxConfig       `mapstructure:"outbox" validate:"required"`
	Notification NotificationConfig `mapstructure:"notification" validate:"required"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	ClientID      string   `mapstructure:"client_id"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}

// DynamoDBConfig holds the lease table used by the dynamodb lock backend
type DynamoDBConfig struct {
	InUse          bool   `mapstructure:"in_use"`
	Region         string `mapstructure:"region"`
	LeaseTableName string `mapstructure:"lease_table_name"`
}

// InvoicingConfig tunes invoicing runs
type InvoicingConfig struct {
	DefaultCurrency string        `mapstructure:"default_currency" validate:"required,len=3"`
	LockTTL         time.Duration `mapstructure:"lock_ttl" validate:"required"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout" validate:"required"`
	// Parallelism bounds how many accounts a batch run invoices at once
	Parallelism int `mapstructure:"parallelism" validate:"min=1"`
	// ScheduleInterval is how often worker mode invoices every account, 0 disables it
	ScheduleInterval time.Duration `mapstructure:"schedule_interval"`
}

type LockerConfig struct {
	Backend types.LockBackend `mapstructure:"backend" validate:"required,oneof=memory postgres dynamodb"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`
	BatchSize    int           `mapstructure:"batch_size" validate:"min=1"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
}

type NotificationConfig struct {
	Sink       types.NotificationSinkType `mapstructure:"sink" validate:"required,oneof=pubsub webhook"`
	Topic      string                     `mapstructure:"topic" default:"invoice_notifications"`
	PubSub     types.PubSubType           `mapstructure:"pubsub" default:"memory"`
	WebhookURL string                     `mapstructure:"webhook_url" validate:"required_if=Sink webhook"`
	// WebhookHeaders are added to every webhook request, ex an authorization header
	WebhookHeaders map[string]string `mapstructure:"webhook_headers"`
	WebhookTimeout time.Duration     `mapstructure:"webhook_timeout"`
	WebhookRetries int               `mapstructure:"webhook_retries"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only used for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/invoicer")

	v.SetEnvPrefix("INVOICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from config.yaml
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.consumer_group", d.Kafka.ConsumerGroup)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("dynamodb.region", d.DynamoDB.Region)
	v.SetDefault("dynamodb.lease_table_name", d.DynamoDB.LeaseTableName)
	v.SetDefault("invoicing.default_currency", d.Invoicing.DefaultCurrency)
	v.SetDefault("invoicing.lock_ttl", d.Invoicing.LockTTL)
	v.SetDefault("invoicing.lock_timeout", d.Invoicing.LockTimeout)
	v.SetDefault("invoicing.parallelism", d.Invoicing.Parallelism)
	v.SetDefault("invoicing.schedule_interval", d.Invoicing.ScheduleInterval)
	v.SetDefault("locker.backend", d.Locker.Backend)
	v.SetDefault("outbox.poll_interval", d.Outbox.PollInterval)
	v.SetDefault("outbox.batch_size", d.Outbox.BatchSize)
	v.SetDefault("outbox.max_attempts", d.Outbox.MaxAttempts)
	v.SetDefault("notification.sink", d.Notification.Sink)
	v.SetDefault("notification.topic", d.Notification.Topic)
	v.SetDefault("notification.pubsub", d.Notification.PubSub)
	v.SetDefault("notification.webhook_url", d.Notification.WebhookURL)
	v.SetDefault("notification.webhook_timeout", d.Notification.WebhookTimeout)
	v.SetDefault("notification.webhook_retries", d.Notification.WebhookRetries)
	v.SetDefault("sentry.enabled", d.Sentry.Enabled)
	v.SetDefault("sentry.sample_rate", d.Sentry.SampleRate)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "invoicer",
			Password:               "invoicer",
			DBName:                 "invoicer",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:29092"},
			ConsumerGroup: "invoicer-local",
			ClientID:      "invoicer",
		},
		DynamoDB: DynamoDBConfig{
			Region:         "us-east-1",
			LeaseTableName: "invoicing_leases",
		},
		Invoicing: InvoicingConfig{
			DefaultCurrency:  "usd",
			LockTTL:          5 * time.Minute,
			LockTimeout:      5 * time.Second,
			Parallelism:      8,
			ScheduleInterval: 0,
		},
		Locker: LockerConfig{Backend: types.LockBackendPostgres},
		Outbox: OutboxConfig{
			PollInterval: 5 * time.Second,
			BatchSize:    50,
			MaxAttempts:  10,
		},
		Notification: NotificationConfig{
			Sink:           types.NotificationSinkPubSub,
			Topic:          "invoice_notifications",
			PubSub:         types.MemoryPubSub,
			WebhookTimeout: 10 * time.Second,
			WebhookRetries: 3,
		},
		Sentry: SentryConfig{SampleRate: 1.0},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
