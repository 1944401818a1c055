package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"dynquery/internal/app"
	"dynquery/internal/config"
	"dynquery/internal/queryerr"
	"dynquery/internal/queryspec"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(exitCode(run(), os.Stdout))
}

func run() error {
	dto := pflag.String("dto", "", "DTO to query, by type or table name (e.g. Product, products)")
	queryPath := pflag.String("query", "-", "Path to the JSON query document (- for stdin)")
	metricsAddr := pflag.String("metrics-addr", "", "Listen address for /metrics and /health (overrides observability.metrics_addr)")
	bootstrap := pflag.Bool("bootstrap", false, "Create and seed the sample catalog tables before querying")
	wait := pflag.Bool("wait", false, "Keep the ops listener up after the query until interrupted")
	pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("dynquery %s (%s)\n", Version, Commit)
		return nil
	}

	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}
	if *dto == "" {
		return fmt.Errorf("--dto is required")
	}

	validationResult := cfg.Validate()
	for _, warn := range validationResult.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if validationResult.HasErrors() {
		for _, err := range validationResult.Errors {
			slog.Error("configuration error",
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.String("hint", err.Hint),
			)
		}
		return fmt.Errorf("configuration validation failed")
	}

	spec, err := readSpec(*queryPath, os.Stdin)
	if err != nil {
		return err
	}

	ctx := context.Background()
	logger, loggerProvider, err := app.InitLogger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(ctx, logger.Logger)
		}
		return err
	}
	a.AttachLoggerProvider(loggerProvider)

	if err := a.Init(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Shutdown(shutdownCtx)
	}()

	serverErrors, err := a.Start()
	if err != nil {
		return err
	}

	if *bootstrap {
		if err := a.Bootstrap(ctx); err != nil {
			return err
		}
	}

	result, err := a.Query(ctx, *dto, spec)
	if err != nil {
		if queryerr.IsKind(err, queryerr.KindBadQueryField) {
			logger.Debug("known DTOs", slog.Any("dtos", a.DTONames()))
		}
		return err
	}
	if err := writeResult(os.Stdout, result); err != nil {
		return err
	}

	if *wait && serverErrors != nil {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)
		if _, err := a.WaitForStop(stop, serverErrors); err != nil {
			return err
		}
	}
	return nil
}

// readSpec decodes the query document at path, or from stdin when path is "-".
func readSpec(path string, stdin io.Reader) (queryspec.QuerySpec, error) {
	if path == "" || path == "-" {
		return queryspec.Decode(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return queryspec.QuerySpec{}, fmt.Errorf("failed to open query document: %w", err)
	}
	defer f.Close()
	return queryspec.Decode(f)
}

func writeResult(w io.Writer, result any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type errorDocument struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// exitCode reports err and maps it to the process exit status: 0 on success,
// 2 for client errors (also written to w as JSON), 1 otherwise.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var qerr *queryerr.Error
	if errors.As(err, &qerr) && qerr.Client() {
		_ = writeResult(w, errorDocument{Error: errorBody{
			Message:    qerr.Error(),
			Extensions: qerr.Extensions(),
		}})
		return 2
	}

	attrs := []any{slog.String("error", err.Error())}
	if qerr != nil {
		attrs = append(attrs, slog.Any("extensions", qerr.Extensions()))
	}
	slog.Error("dynquery failed", attrs...)
	return 1
}
