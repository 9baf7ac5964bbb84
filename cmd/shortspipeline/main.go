package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"ShortsPipeline/internal/app"
	"ShortsPipeline/internal/config"
	"ShortsPipeline/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults to $"+config.ConfigPathEnv+")")
		envFile    = flag.String("env", ".env", "dotenv file loaded before config")
		daemon     = flag.Bool("daemon", false, "run on the configured interval instead of once")
		query      = flag.String("query", "", "override every source query for this run")
		count      = flag.Int("count", 0, "override the number of news items to select")
	)
	flag.Parse()

	cfg := config.Load(*configPath, *envFile)
	if *count > 0 {
		cfg.Pipeline.SelectionCount = *count
	}
	logger := logging.NewWithWriter(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration rejected", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, app.Options{QueryOverride: *query}, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		return 1
	}
	defer application.Close()

	if *daemon {
		if err := application.RunDaemon(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			return 1
		}
		return 0
	}

	result := application.RunOnce(ctx)
	if !result.Success {
		logger.Error("pipeline run failed", "run_id", result.RunID, "errors", result.Errors)
		return 1
	}
	return 0
}
