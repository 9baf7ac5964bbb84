package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/infrastructure/artifacts"
	"ShortsPipeline/internal/infrastructure/llm"
	"ShortsPipeline/internal/infrastructure/parser"
	"ShortsPipeline/internal/infrastructure/ratelimit"
	"ShortsPipeline/internal/infrastructure/scheduler"
	"ShortsPipeline/internal/infrastructure/storage"
	"ShortsPipeline/internal/infrastructure/telegram"
	"ShortsPipeline/internal/logging"
	"ShortsPipeline/internal/metrics"
	"ShortsPipeline/internal/ports"
	"ShortsPipeline/internal/scanner"
	"ShortsPipeline/internal/usecase"
)

const (
	perHostInterval = 500 * time.Millisecond
	perHostBurst    = 2
	stopTimeout     = 30 * time.Second
)

// Options carries per-invocation overrides from the command line.
type Options struct {
	QueryOverride string
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	metrics   *metrics.Recorder
	history   *storage.SQLRepository
}

// New builds a runnable application from validated configuration.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	recorder := metrics.NewRecorder()

	registry := scanner.NewRegistry()
	parser.Register(registry, ratelimit.NewHostLimiter(perHostInterval, perHostBurst))

	source, err := parser.NewMultiSource(registry, cfg.Sources, cfg.Pipeline.SourceConcurrency, baseLogger.With("component", "source"))
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	source.WithObserver(recorder)

	client := llm.NewClient(cfg.LLM, baseLogger.With("component", "llm"))
	baseLogger.Info("application configured", "model", client.Model(), "sources", len(cfg.Sources))

	app := &Application{cfg: cfg, logger: baseLogger, metrics: recorder}

	var history ports.HistoryRepository
	if cfg.Storage.Driver != "" {
		repo, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		app.history = repo
		history = repo
	}

	var artifactWriter ports.ArtifactWriter
	if cfg.Output.Dir != "" {
		artifactWriter = artifacts.NewFileWriter(cfg.Output.Dir)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Selector: usecase.NewSelector(client, baseLogger.With("component", "selector")),
		Writer: usecase.NewScriptWriter(client, baseLogger.With("component", "script_writer"),
			usecase.WithConcurrency(cfg.Pipeline.ScriptConcurrency),
			usecase.WithBatchTimeout(cfg.Pipeline.BatchTimeout()),
		),
		Repository:     history,
		Artifacts:      artifactWriter,
		Notifier:       notifier,
		Metrics:        recorder,
		Logger:         baseLogger.With("component", "pipeline"),
		SelectionCount: cfg.Pipeline.SelectionCount,
		QueryOverride:  opts.QueryOverride,
		SkipProcessed:  cfg.Pipeline.SkipProcessed,
	})

	app.scheduler = usecase.NewScheduler(
		scheduler.NewTickerScheduler(cfg.Scheduler.Interval()),
		app.pipeline,
		baseLogger.With("component", "scheduler"),
	)

	return app, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) domain.PipelineBatchResult {
	now := time.Now().In(a.cfg.Scheduler.Location())
	result := a.pipeline.Run(ctx, now)
	a.flushMetrics()
	return result
}

// RunDaemon runs the pipeline on the configured interval until ctx is cancelled.
func (a *Application) RunDaemon(ctx context.Context) error {
	a.logger.Info("daemon started", "interval", a.cfg.Scheduler.Interval())
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	flush := time.NewTicker(time.Minute)
	defer flush.Stop()
	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			err := a.scheduler.Stop(stopCtx)
			a.flushMetrics()
			a.logger.Info("daemon stopped")
			return err
		case <-flush.C:
			a.flushMetrics()
		}
	}
}

// Close releases the history database.
func (a *Application) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

func (a *Application) flushMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("metrics export failed", "error", err)
	}
}
