package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/fixture-pipeline/external/scores365"
	"github.com/riskibarqy/fixture-pipeline/internal/config"
	"github.com/riskibarqy/fixture-pipeline/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fixture-pipeline/internal/interfaces/httpapi"
	"github.com/riskibarqy/fixture-pipeline/internal/observability"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/id"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/logging"
	"github.com/riskibarqy/fixture-pipeline/internal/platform/resilience"
	"github.com/riskibarqy/fixture-pipeline/internal/usecase"
)

// App holds the process-wide dependencies shared by the CLI commands.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	db      *sqlx.DB
	metrics *observability.Metrics

	Pipeline *usecase.PipelineService
	Reader   *usecase.ReadService
}

// New opens the database, applies the schema when configured and wires the
// pipeline services. Close must be called to release the pool.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DBEnsureSchema {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("database schema ensured")
	}

	a := &App{cfg: cfg, logger: logger, db: db}

	var (
		pipelineMetrics usecase.PipelineMetrics
		requestObserver scores365.RequestObserver
	)
	if cfg.MetricsEnabled {
		a.metrics = observability.NewMetrics()
		pipelineMetrics = a.metrics
		requestObserver = a.metrics
	}

	source := scores365.NewClient(scores365.ClientConfig{
		BaseURL:       cfg.Scores365BaseURL,
		UserAgent:     cfg.Scores365UserAgent,
		CompetitionID: cfg.Scores365CompetitionID,
		SeasonNum:     cfg.Scores365SeasonNum,
		Timeout:       cfg.Scores365Timeout,
		MaxRetries:    cfg.Scores365MaxRetries,
		RateLimit:     cfg.Scores365RateLimit,
		Logger:        logger.Named("scores365"),
		Observer:      requestObserver,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.Scores365CircuitEnabled,
			FailureThreshold: cfg.Scores365CircuitFailureCount,
			OpenTimeout:      cfg.Scores365CircuitOpenTimeout,
			HalfOpenRequests: cfg.Scores365CircuitHalfOpenTrials,
		},
	})

	ledger := postgres.NewLedgerRepository(db)
	stats := postgres.NewStatsRepository(db)
	syncLogs := postgres.NewSyncLogRepository(db)

	a.Reader = usecase.NewReadService(ledger, syncLogs, cfg.CacheTTL)
	reconciler := usecase.NewReconcileService(source, ledger, logger.Named("reconcile"))
	processor := usecase.NewBatchProcessor(ledger, source, stats, usecase.BatchProcessorConfig{
		StaleAfter: cfg.PipelineStaleAfter,
		Budget: usecase.DrainBudget{
			MaxMatches:  cfg.PipelineMaxMatches,
			MaxDuration: cfg.PipelineMaxDuration,
		},
	}, logger.Named("processor"))
	a.Pipeline = usecase.NewPipelineService(
		reconciler,
		processor,
		syncLogs,
		id.NewRunIDGenerator("pipeline"),
		pipelineMetrics,
		usecase.PipelineServiceConfig{OnRunCompleted: a.Reader.Invalidate},
		logger.Named("pipeline"),
	)

	return a, nil
}

// HTTPServer builds the read API and internal trigger server.
func (a *App) HTTPServer() (*http.Server, error) {
	if a.cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}

	handler := httpapi.NewHandler(a.Reader, a.Pipeline, a.logger.Named("httpapi"))
	router := httpapi.NewRouter(handler, a.logger, httpapi.RouterConfig{
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		InternalJobToken:   a.cfg.InternalJobToken,
		MetricsHandler:     metricsHandler,
	})

	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
