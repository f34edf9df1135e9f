package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log          LogConfig          `mapstructure:"log" validate:"required"`
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database" validate:"required"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Worker       WorkerConfig       `mapstructure:"worker" validate:"required"`
	Coordination CoordinationConfig `mapstructure:"coordination" validate:"required"`
}

// LogConfig contains logging settings shared by every process.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// ServerConfig contains all settings of the request-serving process.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// RedisConfig locates the shared coordination store.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// LLMConfig contains all LLM integration related settings.
// The API key is only required by the worker and is checked when the
// generator is constructed.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// Duplicate claim policies.
const (
	DuplicatePolicyDiscard = "discard"
	DuplicatePolicyRequeue = "requeue"
)

// WorkerConfig controls the worker consumer loop.
type WorkerConfig struct {
	// Concurrency is the number of independent consumers run by one process.
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=64"`

	// InstanceName prefixes claim holder tokens. Defaults to the hostname.
	InstanceName string `mapstructure:"instance_name"`

	// PollInterval is the backstop period for draining the queue when a
	// wake-up notification was missed.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`

	// GenerationTimeout bounds one call into the insight generation engine.
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"gt=0"`

	// LeaseTTL is the claim lease lifetime; holders renew it every LeaseTTL/3.
	LeaseTTL time.Duration `mapstructure:"lease_ttl" validate:"gte=1s"`

	// DuplicatePolicy decides what happens to a task whose key is already claimed.
	DuplicatePolicy string `mapstructure:"duplicate_policy" validate:"oneof=discard requeue"`

	// RequeueBackoff is the delay before a duplicate task is pushed back.
	RequeueBackoff time.Duration `mapstructure:"requeue_backoff" validate:"gte=0"`
}

// CoordinationConfig names the collections and channels in the coordination store.
type CoordinationConfig struct {
	QueueKey            string `mapstructure:"queue_key" validate:"required"`
	NotificationChannel string `mapstructure:"notification_channel" validate:"required"`
	CompletedChannel    string `mapstructure:"completed_channel" validate:"required"`
	FailedChannel       string `mapstructure:"failed_channel" validate:"required"`
	ClaimSetKey         string `mapstructure:"claim_set_key" validate:"required"`
	LeaseKeyPrefix      string `mapstructure:"lease_key_prefix" validate:"required"`
}
