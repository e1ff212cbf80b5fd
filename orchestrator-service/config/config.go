package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Strategy selects how participant operations are transported
const (
	StrategyLocal = "local"
	StrategyHTTP  = "http"
)

type Config struct {
	ServiceName string   `mapstructure:"service_name"`
	Env         string   `mapstructure:"env"`
	Port        string   `mapstructure:"port"`
	Strategy    string   `mapstructure:"strategy"`
	Retry       Retry    `mapstructure:"retry"`
	Services    Services `mapstructure:"services"`
	Database    Database `mapstructure:"database"`
}

// Retry is the attempt budget for the create-order step
type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	BackoffRate float64       `mapstructure:"backoff_rate"`
}

// Services holds the participant base URLs for the http strategy
type Services struct {
	OrderURL    string `mapstructure:"order_url"`
	PaymentURL  string `mapstructure:"payment_url"`
	ShippingURL string `mapstructure:"shipping_url"`
}

type Database struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	configDir := filepath.Join(filepath.Dir(filename))
	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ORCHESTRATOR")

	setDefaults()

	// A missing config file falls back to defaults and env overrides.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Strategy != StrategyLocal && config.Strategy != StrategyHTTP {
		return nil, fmt.Errorf("unknown strategy %q", config.Strategy)
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults() {
	viper.SetDefault("service_name", "orchestrator-service")
	viper.SetDefault("env", getEnv("ENV", "local"))
	viper.SetDefault("port", getEnv("PORT", "8084"))
	viper.SetDefault("strategy", getEnv("STRATEGY", StrategyLocal))

	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.interval", "1s")
	viper.SetDefault("retry.backoff_rate", 2.0)

	viper.SetDefault("services.order_url", getEnv("ORDER_SERVICE_URL", "http://localhost:8081"))
	viper.SetDefault("services.payment_url", getEnv("PAYMENT_SERVICE_URL", "http://localhost:8082"))
	viper.SetDefault("services.shipping_url", getEnv("SHIPPING_SERVICE_URL", "http://localhost:8083"))

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "fulfillment")
	viper.SetDefault("database.ssl_mode", "disable")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RetryPolicy converts the configured budget
func (c *Config) RetryPolicy() (maxAttempts int, interval time.Duration, backoffRate float64) {
	return c.Retry.MaxAttempts, c.Retry.Interval, c.Retry.BackoffRate
}

// GetDatabaseURL constructs database URL from config; only the local
// strategy connects directly.
func (c *Config) GetDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
