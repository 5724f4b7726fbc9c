// Package server wires the SQL assistant components into an HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/cmd/server/config"
	"github.com/sageql/sage/cmd/server/middleware"
	"github.com/sageql/sage/pkg/analyzer"
	"github.com/sageql/sage/pkg/conversation"
	"github.com/sageql/sage/pkg/generator"
	"github.com/sageql/sage/pkg/handlers"
	"github.com/sageql/sage/pkg/infrastructure/metrics"
	"github.com/sageql/sage/pkg/infrastructure/pool"
	"github.com/sageql/sage/pkg/oracle"
	"github.com/sageql/sage/pkg/repositories"
	"github.com/sageql/sage/pkg/repositories/duckdb"
	"github.com/sageql/sage/pkg/validation"
)

// Server is the assembled SQL assistant service.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool pool.ConnectionPool
	http *http.Server
}

// New builds the full component graph from configuration.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	dbPool, err := pool.New(pool.Config{
		DSN:                cfg.Database,
		MotherDuckToken:    cfg.ConnectionPool.MotherDuckToken,
		MaxOpenConnections: cfg.ConnectionPool.MaxOpenConnections,
		MaxIdleConnections: cfg.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:    cfg.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.ConnectionPool.ConnMaxIdleTime,
		HealthCheckPeriod:  cfg.ConnectionPool.HealthCheckPeriod,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	oracleClient, err := oracle.NewOpenAIClient(oracle.OpenAIConfig{
		APIKey:      cfg.Oracle.APIKey,
		BaseURL:     cfg.Oracle.BaseURL,
		Model:       cfg.Oracle.Model,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.Oracle.Timeout,
	}, logger)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create oracle client: %w", err)
	}

	var collector metrics.Collector = metrics.NewNoOpCollector()
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
	}

	queryRepo := duckdb.NewQueryRepository(dbPool, cfg.QueryTimeout, logger)
	catalogRepo := duckdb.NewCatalogRepository(dbPool, logger)
	retriever := repositories.NewCatalogContextRetriever(catalogRepo, logger)

	classifier := validation.NewStatementClassifier()
	orchestrator := validation.NewOrchestrator(
		validation.NewSchemaValidator(oracleClient, catalogRepo, logger),
		validation.NewInjectionDetector(oracleClient, classifier, logger),
		validation.NewQueryValidator(oracleClient, logger),
		validation.NewGuardrail(oracleClient, classifier, logger),
		cfg.Validation.StepTimeout,
		collector,
		logger,
	)

	store := conversation.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval, logger)
	assistant := conversation.NewAssistant(
		store,
		retriever,
		generator.NewGenerator(oracleClient, logger),
		orchestrator,
		analyzer.NewExecutionAnalyzer(oracleClient, logger),
		queryRepo,
		collector,
		logger,
		conversation.Config{
			MaxRegenerationAttempts:     cfg.Assistant.MaxRegenerationAttempts,
			FreshContextResults:         cfg.Assistant.FreshContextResults,
			ClarificationContextResults: cfg.Assistant.ClarificationContextResults,
			HistoryWindow:               cfg.Assistant.HistoryWindow,
		},
	)

	router := handlers.NewRouter(
		handlers.NewSessionHandler(store, assistant, logger),
		handlers.NewCatalogHandler(catalogRepo, logger),
		handlers.NewHealthHandler(poolPinger{dbPool}, 5*time.Second, logger),
		middleware.NewRecoveryMiddleware(logger).Handler(),
		middleware.NewLoggingMiddleware(logger).Handler(),
		middleware.NewMetricsMiddleware(collector).Handler(),
		middleware.NewAuthMiddleware(cfg.Auth, logger).Handler(),
	)

	return &Server{
		cfg:    cfg,
		logger: logger,
		pool:   dbPool,
		http: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start begins serving requests. It blocks until the listener fails or
// Stop is called.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.cfg.Address).
		Msg("Starting SQL assistant server")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and releases resources.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down SQL assistant server")

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	return s.pool.Close()
}
