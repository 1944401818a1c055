package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"dynquery/internal/dbexec"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	providers := a.providers
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	cleanup.push("telemetry providers", func(shutdownCtx context.Context) error {
		return providers.Shutdown(shutdownCtx, a.logger.Logger)
	})

	meterProvider, queryMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	providers.Meter = meterProvider

	tracerProvider, err := initTracing(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	providers.Tracer = tracerProvider

	dialect, err := resolveDialect(a.cfg)
	if err != nil {
		return err
	}

	a.logger.Debug("connecting to database",
		slog.String("driver", a.cfg.Database.DriverName()),
		slog.String("dialect", dialect.Name),
		slog.String("host", a.cfg.Database.Host),
		slog.String("database", a.cfg.Database.Database),
	)

	db, dbStatsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		if dbStatsReg != nil {
			if err := dbStatsReg.Unregister(); err != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
			}
		}
		return db.Close()
	})

	if err := configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	registry, err := buildRegistry()
	if err != nil {
		return err
	}
	eng := buildEngine(a.cfg, a.logger, db, dialect, registry, queryMetrics)

	var srv *http.Server
	if addr := a.cfg.Observability.MetricsAddr; addr != "" {
		mux := buildRouter(a.cfg, a.logger, db, meterProvider)
		srv = buildServer(addr, wrapHTTPHandler(a.cfg, mux))
		cleanup.push("ops server", srv.Shutdown)
	}

	a.stateMu.Lock()
	a.providers = providers
	a.queryMetrics = queryMetrics
	a.db = db
	a.dbStatsReg = dbStatsReg
	a.dialect = dialect
	a.registry = registry
	a.engine = eng
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}

// Bootstrap creates and seeds the catalog tables. It requires Init to have completed.
func (a *App) Bootstrap(ctx context.Context) error {
	a.stateMu.Lock()
	db := a.db
	a.stateMu.Unlock()
	if db == nil {
		return fmt.Errorf("app is not initialized")
	}
	if err := bootstrapCatalog(ctx, dbexec.NewStandardExecutor(db)); err != nil {
		return err
	}
	a.logger.Info("catalog tables created and seeded")
	return nil
}
