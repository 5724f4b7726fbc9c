// Package config provides configuration structures for the SQL assistant server.
package config

import (
	"fmt"
	"time"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Address         string        `yaml:"address" json:"address"`
	Database        string        `yaml:"database" json:"database"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Oracle (LLM) configuration
	Oracle OracleConfig `yaml:"oracle" json:"oracle"`

	// Validation pipeline configuration
	Validation ValidationConfig `yaml:"validation" json:"validation"`

	// Assistant loop configuration
	Assistant AssistantConfig `yaml:"assistant" json:"assistant"`

	// Session store configuration
	Session SessionConfig `yaml:"session" json:"session"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`
}

// OracleConfig represents the LLM backend configuration. The API key is
// read from the environment, never from config files.
type OracleConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKey      string        `yaml:"-" json:"-"`
	Model       string        `yaml:"model" json:"model"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
}

// ValidationConfig represents validation pipeline configuration.
type ValidationConfig struct {
	StepTimeout time.Duration `yaml:"step_timeout" json:"step_timeout"`
}

// AssistantConfig represents the conversational loop configuration.
type AssistantConfig struct {
	MaxRegenerationAttempts     int `yaml:"max_regeneration_attempts" json:"max_regeneration_attempts"`
	FreshContextResults         int `yaml:"fresh_context_results" json:"fresh_context_results"`
	ClarificationContextResults int `yaml:"clarification_context_results" json:"clarification_context_results"`
	HistoryWindow               int `yaml:"history_window" json:"history_window"`
}

// SessionConfig represents session store configuration.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl" json:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// AuthConfig represents authentication configuration. A single shared
// bearer token guards the API when enabled.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Token   string `yaml:"-" json:"-"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// ConnectionPoolConfig represents connection pool configuration. The
// MotherDuck token is read from the environment, never from config files.
type ConnectionPoolConfig struct {
	MotherDuckToken    string        `yaml:"-" json:"-"`
	MaxOpenConnections int           `yaml:"max_open_connections" json:"max_open_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	HealthCheckPeriod  time.Duration `yaml:"health_check_period" json:"health_check_period"`
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}

	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}

	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle model is required")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle API key is required")
	}
	if c.Oracle.Timeout <= 0 {
		c.Oracle.Timeout = 60 * time.Second
	}
	if c.Oracle.MaxTokens <= 0 {
		c.Oracle.MaxTokens = 2048
	}

	if c.Validation.StepTimeout <= 0 {
		c.Validation.StepTimeout = 30 * time.Second
	}

	if c.Assistant.MaxRegenerationAttempts <= 0 {
		c.Assistant.MaxRegenerationAttempts = 3
	}
	if c.Assistant.FreshContextResults <= 0 {
		c.Assistant.FreshContextResults = 5
	}
	if c.Assistant.ClarificationContextResults <= 0 {
		c.Assistant.ClarificationContextResults = 3
	}
	if c.Assistant.HistoryWindow <= 0 {
		c.Assistant.HistoryWindow = 10
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.Session.CleanupInterval <= 0 {
		c.Session.CleanupInterval = 10 * time.Minute
	}

	if c.Auth.Enabled && c.Auth.Token == "" {
		return fmt.Errorf("auth token is required when auth is enabled")
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// Connection pool defaults
	if c.ConnectionPool.MaxOpenConnections <= 0 {
		c.ConnectionPool.MaxOpenConnections = 25
	}
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = 5
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.ConnectionPool.HealthCheckPeriod <= 0 {
		c.ConnectionPool.HealthCheckPeriod = 1 * time.Minute
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0:8080",
		Database:        ":memory:",
		LogLevel:        "info",
		QueryTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		Oracle: OracleConfig{
			Model:       "gpt-4o",
			Timeout:     60 * time.Second,
			MaxTokens:   2048,
			Temperature: 0,
		},
		Validation: ValidationConfig{
			StepTimeout: 30 * time.Second,
		},
		Assistant: AssistantConfig{
			MaxRegenerationAttempts:     3,
			FreshContextResults:         5,
			ClarificationContextResults: 3,
			HistoryWindow:               10,
		},
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxOpenConnections: 25,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    30 * time.Minute,
			ConnMaxIdleTime:    10 * time.Minute,
			HealthCheckPeriod:  1 * time.Minute,
		},
	}
}
