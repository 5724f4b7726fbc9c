package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Oracle.APIKey = "sk-test"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{
		Address: "localhost:8080",
		Oracle:  OracleConfig{Model: "gpt-4o", APIKey: "sk-test"},
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Minute, cfg.QueryTimeout)
	assert.Equal(t, 2048, cfg.Oracle.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Validation.StepTimeout)
	assert.Equal(t, 3, cfg.Assistant.MaxRegenerationAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 25, cfg.ConnectionPool.MaxOpenConnections)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

// The MotherDuck token is optional and must survive validation untouched
// for local DuckDB deployments that never set one.
func TestValidate_MotherDuckTokenOptional(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.ConnectionPool.MotherDuckToken)

	cfg = validConfig()
	cfg.ConnectionPool.MotherDuckToken = "md-token"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "md-token", cfg.ConnectionPool.MotherDuckToken)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing address",
			mutate:  func(c *Config) { c.Address = "" },
			wantErr: "address is required",
		},
		{
			name:    "missing oracle model",
			mutate:  func(c *Config) { c.Oracle.Model = "" },
			wantErr: "oracle model is required",
		},
		{
			name:    "missing oracle key",
			mutate:  func(c *Config) { c.Oracle.APIKey = "" },
			wantErr: "oracle API key is required",
		},
		{
			name:    "auth enabled without token",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
