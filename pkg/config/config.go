// Package config loads and validates the bridge middleware configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/norchain/bridge-middleware/pkg/policy"
	"github.com/norchain/bridge-middleware/pkg/settlement"
)

// Config represents the bridge API server configuration
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Chains     ChainsConfig      `mapstructure:"chains"`
	Routes     RoutesConfig      `mapstructure:"routes"`
	Policy     policy.Config     `mapstructure:"policy"`
	Settlement settlement.Config `mapstructure:"settlement"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainsConfig contains the RPC endpoints and client tuning for every
// supported chain. Keys of Endpoints are chain identifiers (nor, bsc,
// ethereum, tron).
type ChainsConfig struct {
	Endpoints       map[string]string `mapstructure:"endpoints"`
	RequestTimeout  time.Duration     `mapstructure:"request_timeout"`
	BreakerMaxFails uint32            `mapstructure:"breaker_max_fails"`
	BreakerCooldown time.Duration     `mapstructure:"breaker_cooldown"`
}

// RoutesConfig points at the optional settlement-time override table.
type RoutesConfig struct {
	File string `mapstructure:"file"`
}

// AuthConfig holds access token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "bridge")

	// Chain client defaults
	viper.SetDefault("chains.request_timeout", "10s")
	viper.SetDefault("chains.breaker_max_fails", 5)
	viper.SetDefault("chains.breaker_cooldown", "30s")

	// Settlement defaults
	viper.SetDefault("settlement.interval", "15s")
	viper.SetDefault("settlement.sweep_timeout", "1m")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if len(config.Chains.Endpoints) == 0 {
		return fmt.Errorf("chains.endpoints is required")
	}
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
