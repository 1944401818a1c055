// Package engine runs dynamic queries: it plans a QuerySpec against a mapping,
// executes the plan on a Store and maps the rows back into DTOs.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dynquery/internal/logging"
	"dynquery/internal/mapping"
	"dynquery/internal/observability"
	"dynquery/internal/planner"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
	"dynquery/internal/rowmap"
)

// Engine runs queries against one store. It is safe for concurrent use.
type Engine struct {
	store           Store
	registry        *mapping.Registry
	timeout         time.Duration
	maxItemsPerPage uint64
	logger          *logging.Logger
	tracer          trace.Tracer
	metrics         *observability.QueryMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the registry used to find mappings by DTO type or name.
func WithRegistry(r *mapping.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithTimeout bounds every query, including both statements of a paged query.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMaxItemsPerPage rejects paged queries asking for more than n items per page.
// Zero disables the limit.
func WithMaxItemsPerPage(n uint64) Option {
	return func(e *Engine) { e.maxItemsPerPage = n }
}

// WithLogger sets the logger. Without it the logger in the query context is used.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer for query spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMetrics sets the query metrics.
func WithMetrics(m *observability.QueryMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the engine's mapping registry, which may be nil.
func (e *Engine) Registry() *mapping.Registry {
	return e.registry
}

// RunNamed runs spec against the mapping registered under dto, given as a
// DTO type name or as the mapping's table.
func (e *Engine) RunNamed(ctx context.Context, dto string, spec queryspec.QuerySpec) (*Result[any], error) {
	if e.registry == nil {
		return nil, queryerr.Invariant("engine has no mapping registry")
	}
	m, ok := e.registry.ByName(dto)
	if !ok {
		m, ok = e.registry.ByTable(dto)
	}
	if !ok {
		return nil, queryerr.BadField(dto, "unknown DTO %q", dto)
	}
	return e.Run(ctx, m, spec)
}

// Run plans spec against m, executes it and maps the result.
//
// Items mode returns every matching DTO. Count mode returns the number of
// matching rows. Paging mode reads the total and the page inside one store
// snapshot; when the total is zero the page query is skipped.
func (e *Engine) Run(ctx context.Context, m *mapping.Mapping, spec queryspec.QuerySpec) (result *Result[any], err error) {
	if m == nil {
		return nil, queryerr.Invariant("engine: nil mapping")
	}

	if logging.QueryID(ctx) == "" {
		ctx = logging.WithQueryID(ctx, uuid.NewString())
	}
	logger := e.loggerFor(ctx).WithFields(
		slog.String("query_id", logging.QueryID(ctx)),
		slog.String("dto", m.Name()),
		slog.String("mode", spec.Mode.String()),
	)

	ctx, span := e.startSpan(ctx, "dynquery.run",
		attribute.String("dynquery.dto", m.Name()),
		attribute.String("dynquery.mode", spec.Mode.Kind.String()),
	)
	start := time.Now()
	e.metrics.QueryStarted(ctx)
	defer func() {
		e.metrics.QueryFinished(ctx)
		e.metrics.RecordQuery(ctx, time.Since(start), m.Name(), spec.Mode.Kind.String(), errorKind(err))
		finishSpan(span, err)
		logOutcome(logger, time.Since(start), result, err)
	}()

	if err := e.checkMode(spec.Mode); err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	switch spec.Mode.Kind {
	case queryspec.KindCount:
		return e.runCount(ctx, logger, m, spec)
	case queryspec.KindPaging:
		return e.runPaging(ctx, logger, m, spec)
	default:
		return e.runItems(ctx, logger, m, spec)
	}
}

func (e *Engine) checkMode(mode queryspec.Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	if mode.Kind == queryspec.KindPaging && e.maxItemsPerPage > 0 && mode.ItemsPerPage > e.maxItemsPerPage {
		return queryerr.BadValuef("itemsPerPage", mode.ItemsPerPage,
			"items per page must be at most %d", e.maxItemsPerPage)
	}
	return nil
}

func (e *Engine) runItems(ctx context.Context, logger *logging.Logger, m *mapping.Mapping, spec queryspec.QuerySpec) (*Result[any], error) {
	plan, err := planner.Build(m, spec)
	if err != nil {
		return nil, err
	}
	logPlan(logger, plan)

	items, err := e.fetch(ctx, e.store, m, plan)
	if err != nil {
		return nil, err
	}
	return &Result[any]{Mode: queryspec.KindItems, Items: items}, nil
}

func (e *Engine) runCount(ctx context.Context, logger *logging.Logger, m *mapping.Mapping, spec queryspec.QuerySpec) (*Result[any], error) {
	plan, err := planner.BuildCount(m, spec)
	if err != nil {
		return nil, err
	}
	logger.Debug("count planned",
		slog.String("table", plan.Table),
		slog.Any("joins", plan.JoinedTables()),
	)

	count, err := e.count(ctx, e.store, plan)
	if err != nil {
		return nil, err
	}
	return &Result[any]{Mode: queryspec.KindCount, Count: count}, nil
}

func (e *Engine) runPaging(ctx context.Context, logger *logging.Logger, m *mapping.Mapping, spec queryspec.QuerySpec) (*Result[any], error) {
	plan, err := planner.Build(m, spec)
	if err != nil {
		return nil, err
	}
	logPlan(logger, plan)
	countPlan := plan.CountPlan()

	var (
		total uint64
		items []any
	)
	err = e.store.Snapshot(ctx, func(s Store) error {
		var err error
		total, err = e.count(ctx, s, countPlan)
		if err != nil || total == 0 {
			return err
		}
		items, err = e.fetch(ctx, s, m, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result[any]{Mode: queryspec.KindPaging, Page: newPage(total, spec.Mode, items)}, nil
}

func (e *Engine) fetch(ctx context.Context, s Store, m *mapping.Mapping, plan *planner.Plan) ([]any, error) {
	ctx, span := e.startSpan(ctx, "dynquery.store.execute",
		attribute.String("db.sql.table", plan.Table),
		attribute.Int("dynquery.joins", len(plan.Joins)),
	)
	rows, err := s.Execute(ctx, plan)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("dynquery.rows", len(rows)))
	finishSpan(span, nil)

	items, err := rowmap.MapRows(m, rows)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRows(ctx, m.Name(), len(rows), len(items))
	return items, nil
}

func (e *Engine) count(ctx context.Context, s Store, plan *planner.CountPlan) (uint64, error) {
	ctx, span := e.startSpan(ctx, "dynquery.store.count",
		attribute.String("db.sql.table", plan.Table),
		attribute.Int("dynquery.joins", len(plan.Joins)),
	)
	n, err := s.ExecuteCount(ctx, plan)
	finishSpan(span, err)
	return n, err
}

func (e *Engine) loggerFor(ctx context.Context) *logging.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.FromContext(ctx)
}

func logPlan(logger *logging.Logger, plan *planner.Plan) {
	logger.Debug("query planned",
		slog.String("table", plan.Table),
		slog.Any("joins", plan.JoinedTables()),
		slog.Int("columns", len(plan.Columns)),
		slog.Int("expressions", len(plan.Expressions)),
		slog.Uint64("limit", plan.Limit),
		slog.Uint64("offset", plan.Offset),
	)
}

func logOutcome(logger *logging.Logger, elapsed time.Duration, result *Result[any], err error) {
	if err != nil {
		if queryerr.IsClientError(err) {
			logger.Debug("query rejected", slog.String("error", err.Error()))
			return
		}
		logger.Error("query failed", slog.String("error", err.Error()), slog.Duration("elapsed", elapsed))
		return
	}
	attrs := []any{slog.Duration("elapsed", elapsed)}
	switch {
	case result.Page != nil:
		attrs = append(attrs, slog.Uint64("total", result.Page.Total), slog.Int("items", len(result.Page.Items)))
	case result.Mode == queryspec.KindCount:
		attrs = append(attrs, slog.Uint64("count", result.Count))
	default:
		attrs = append(attrs, slog.Int("items", len(result.Items)))
	}
	logger.Debug("query finished", attrs...)
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if qe, ok := queryerr.As(err); ok {
		return qe.Kind.String()
	}
	return "unknown"
}
