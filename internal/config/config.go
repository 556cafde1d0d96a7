package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
}

// MongoDBConfig holds MongoDB connection settings.
type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// PricingConfig holds the settlement fallback rates used when no catalog
// entry matches.
type PricingConfig struct {
	BaseRate        float64 `mapstructure:"base_rate"`
	BasePenaltyRate float64 `mapstructure:"base_penalty_rate"`
}

// OutboxConfig holds outbox publisher settings.
type OutboxConfig struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	BatchSize      int `mapstructure:"batch_size"`
}

// Load reads configuration from config.yaml and the environment.
// Environment variables use the PRODUCTION_ prefix with underscores,
// e.g. PRODUCTION_MONGODB_URI.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/production-service")

	v.SetEnvPrefix("PRODUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "production")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "production-service")

	v.SetDefault("logging.level", "info")

	v.SetDefault("pricing.base_rate", 100.0)
	v.SetDefault("pricing.base_penalty_rate", 50.0)

	v.SetDefault("outbox.poll_interval_ms", 1000)
	v.SetDefault("outbox.batch_size", 100)
}
