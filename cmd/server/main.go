// Package main provides the entry point for the SQL assistant server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sageql/sage/cmd/server/config"
	"github.com/sageql/sage/cmd/server/server"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Sage SQL assistant server",
	Long: `A natural-language-to-SQL assistant backed by DuckDB.

Sage turns natural language requests into validated SQL, guards
execution behind privilege-aware rules, and keeps per-session
conversation state for confirmations and clarifications.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Sage SQL assistant server",
	Long: `Start the Sage SQL assistant server with the specified configuration.

Example:
  sage serve --address 0.0.0.0:8080 --database ./analytics.db
  sage serve --database :memory: --oracle-model gpt-4o`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Command flags
	serveCmd.Flags().String("address", "0.0.0.0:8080", "server listen address")
	serveCmd.Flags().String("database", ":memory:", "DuckDB database path")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().String("oracle-base-url", "", "oracle API base URL (empty for OpenAI)")
	serveCmd.Flags().String("oracle-model", "gpt-4o", "oracle model name")
	serveCmd.Flags().Duration("oracle-timeout", 60*time.Second, "oracle request timeout")
	serveCmd.Flags().Int("oracle-max-tokens", 2048, "completion token limit per oracle call")
	serveCmd.Flags().Duration("validation-step-timeout", 30*time.Second, "per-step validation timeout")
	serveCmd.Flags().Int("max-regeneration-attempts", 3, "regeneration attempts per turn")
	serveCmd.Flags().Duration("session-ttl", 24*time.Hour, "idle session expiry")
	serveCmd.Flags().Bool("auth", false, "require a bearer token on API requests")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().Duration("query-timeout", 5*time.Minute, "default query timeout")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	// Bind flags to viper
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("SAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Sage SQL Assistant Server\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting Sage SQL assistant server")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown incomplete")
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	cfg.Address = viper.GetString("address")
	cfg.Database = viper.GetString("database")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.QueryTimeout = viper.GetDuration("query-timeout")
	cfg.ShutdownTimeout = viper.GetDuration("shutdown-timeout")

	cfg.Oracle.BaseURL = viper.GetString("oracle-base-url")
	cfg.Oracle.Model = viper.GetString("oracle-model")
	cfg.Oracle.Timeout = viper.GetDuration("oracle-timeout")
	cfg.Oracle.APIKey = viper.GetString("oracle-api-key") // SAGE_ORACLE_API_KEY
	cfg.Oracle.MaxTokens = viper.GetInt("oracle-max-tokens")

	cfg.ConnectionPool.MotherDuckToken = viper.GetString("motherduck-token") // SAGE_MOTHERDUCK_TOKEN

	cfg.Validation.StepTimeout = viper.GetDuration("validation-step-timeout")
	cfg.Assistant.MaxRegenerationAttempts = viper.GetInt("max-regeneration-attempts")
	cfg.Session.TTL = viper.GetDuration("session-ttl")

	cfg.Auth.Enabled = viper.GetBool("auth")
	cfg.Auth.Token = viper.GetString("auth-token") // SAGE_AUTH_TOKEN
	cfg.Metrics.Enabled = viper.GetBool("metrics")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "sql-assistant")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
