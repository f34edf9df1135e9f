package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. INSIGHT_REDIS_ADDR.
const EnvPrefix = "INSIGHT"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadWithViper(viper.New())
}

// LoadWithViper loads configuration through the provided viper instance.
// Tests use it to point at a temporary config file.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly for Unmarshal to see them.
	for _, key := range []string{"database.url", "llm.gemini_api_key", "redis.password", "worker.instance_name"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct validation over a Config.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.poll_interval", 30*time.Second)
	v.SetDefault("worker.generation_timeout", 5*time.Minute)
	v.SetDefault("worker.lease_ttl", 60*time.Second)
	v.SetDefault("worker.duplicate_policy", DuplicatePolicyDiscard)
	v.SetDefault("worker.requeue_backoff", 10*time.Second)

	v.SetDefault("coordination.queue_key", "task_aiInsight_queue")
	v.SetDefault("coordination.notification_channel", "task_aiInsight_notifications")
	v.SetDefault("coordination.completed_channel", "task_aiInsight_completed")
	v.SetDefault("coordination.failed_channel", "task_aiInsight_failed")
	v.SetDefault("coordination.claim_set_key", "sprint_processing_set")
	v.SetDefault("coordination.lease_key_prefix", "sprint_processing_lease:")
}
