// Package app wires configuration, telemetry, the database and the query
// engine into one process lifecycle for the dynquery CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"dynquery/internal/config"
	"dynquery/internal/engine"
	"dynquery/internal/logging"
	"dynquery/internal/mapping"
	"dynquery/internal/observability"
	"dynquery/internal/queryspec"
	"dynquery/internal/sqlutil"
)

// App owns runtime resources for one dynquery process.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	providers    observability.Providers
	queryMetrics *observability.QueryMetrics

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }
	dialect    sqlutil.Dialect

	registry *mapping.Registry
	engine   *engine.Engine

	srv *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.providers.Logger = provider
}

// Engine returns the query engine. It is nil until Init succeeds.
func (a *App) Engine() *engine.Engine {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.engine
}

// Query runs spec against the DTO registered under dto.
func (a *App) Query(ctx context.Context, dto string, spec queryspec.QuerySpec) (*engine.Result[any], error) {
	e := a.Engine()
	if e == nil {
		return nil, fmt.Errorf("app is not initialized")
	}
	return e.RunNamed(ctx, dto, spec)
}

// DTONames lists the registered DTO names. It is empty until Init succeeds.
func (a *App) DTONames() []string {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if a.registry == nil {
		return nil
	}
	return a.registry.Names()
}
