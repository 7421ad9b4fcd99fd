// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/catalog"
	"github.com/starford/atlas/internal/console"
	"github.com/starford/atlas/internal/llm"
	"github.com/starford/atlas/internal/mcpserver"
	"github.com/starford/atlas/internal/pipeline"
	"github.com/starford/atlas/internal/render"
	"github.com/starford/atlas/internal/storage"
	"github.com/starford/atlas/internal/watch"
)

// Run starts the application with the given options. Conditions already
// reported to the user end the run with a nil error.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		version: "dev",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("%w: config is required", apperr.ErrConfig)
	}

	cfg := app.config
	logger := newLogger(cfg.App, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("sqlite_path", cfg.Catalog.SQLitePath),
		slog.String("llm_provider", cfg.LLM.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	deps, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.catalog.Close()

	newPipeline := func(r console.Reporter) *pipeline.Pipeline {
		return pipeline.New(deps.catalog, deps.generator, deps.renderer, deps.output,
			pipeline.WithConnections(cfg.Pipeline.Connections),
			pipeline.WithGuard(deps.guard),
			pipeline.WithReporter(r),
			pipeline.WithLogger(logger))
	}

	switch app.mode {
	case ModeWatch:
		return runWatch(ctx, cfg, deps, newPipeline(console.New(app.stdout)), logger)
	case ModeMCP:
		srv := mcpserver.New(deps.catalog, func(r console.Reporter) mcpserver.Runner {
			return newPipeline(r)
		}, cfg.Pipeline.Connections, app.version)
		logger.Info("MCP server starting on stdio")
		return srv.ServeStdio()
	default:
		return runOnce(ctx, app, newPipeline(console.New(app.stdout)), logger)
	}
}

type dependencies struct {
	vault     *storage.FS
	output    *storage.FS
	catalog   *catalog.Catalog
	generator llm.Generator
	renderer  *render.Renderer
	guard     *pipeline.Guard
}

// build constructs every collaborator up front so configuration problems
// surface before any note is touched.
func build(cfg *Config, logger *slog.Logger) (*dependencies, error) {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", apperr.ErrConfig, err)
	}

	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: vault: %v", apperr.ErrConfig, err)
	}
	output, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: output: %v", apperr.ErrConfig, err)
	}

	renderer, err := render.Load(cfg.Output.Template,
		render.WithReviewOffset(cfg.Pipeline.ReviewOffsetDays))
	if err != nil {
		return nil, err
	}

	generator, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	mode, err := pipeline.ParseGuardMode(cfg.Pipeline.PromptGuard)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfig, err)
	}
	var guard *pipeline.Guard
	if mode != pipeline.GuardOff {
		guard = pipeline.NewGuard(mode)
	}

	cat, err := catalog.Open(cfg.Catalog.SQLitePath, vault,
		catalog.WithModel(cfg.Catalog.Model),
		catalog.WithEnvDir(cfg.Vault.EnvDir),
		catalog.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &dependencies{
		vault:     vault,
		output:    output,
		catalog:   cat,
		generator: generator,
		renderer:  renderer,
		guard:     guard,
	}, nil
}

func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runOnce(ctx context.Context, app *application, p *pipeline.Pipeline, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console.New(app.stdout).Init(app.version)

	target := app.target
	if strings.TrimSpace(target) == "" {
		var err error
		target, err = console.Ask(ctx, app.stdin, app.stdout,
			"Enter the relative path of the new note (e.g., 'UPSC/GS2/Polity.md')")
		if errors.Is(err, console.ErrCancelled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read target: %w", err)
		}
	}

	if _, err := p.Run(ctx, target); err != nil {
		if apperr.UserFacing(err) {
			logger.Info("Run stopped", slog.String("reason", err.Error()))
			return nil
		}
		return err
	}
	return nil
}

func runWatch(ctx context.Context, cfg *Config, deps *dependencies, p *pipeline.Pipeline, logger *slog.Logger) error {
	dir := filepath.Join(deps.vault.Root(), filepath.FromSlash(deps.catalog.MultiDir()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	opts := []watch.Option{watch.WithLogger(logger)}
	if rel, err := filepath.Rel(deps.vault.Root(), deps.output.Root()); err == nil && !strings.HasPrefix(rel, "..") {
		opts = append(opts, watch.WithSkipPrefix(rel))
	}
	w := watch.New(deps.catalog, dir, func(ctx context.Context, path string) error {
		_, err := p.Run(ctx, path)
		return err
	}, opts...)

	g, gCtx := errgroup.WithContext(ctx)
	wCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		return w.Run(wCtx)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-wCtx.Done():
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watcher error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Watcher stopped", slog.String("vault", cfg.Vault.Path))
	return nil
}
