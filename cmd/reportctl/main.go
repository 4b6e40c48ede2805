// Command reportctl runs dashboard reports from the command line.
//
//	reportctl -start 2024-01-01 -end 2024-06-30 -reports revenue,brands -channel Varejo
//
// Configuration is read the same way as the API server. With -export each
// report is written to the export bucket as CSV; -dry-run keeps the files in
// memory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appanalytics "github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/engine"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "reportctl:", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	opts, err := parseOptions(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Reports go to stdout; logs stay on stderr.
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := engine.Open(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	repo, err := persistence.NewAnalyticsRepository(conn.Gateway, cfg.Analytics.Schema)
	if err != nil {
		return err
	}
	service, err := appanalytics.NewService(repo, appanalytics.Config{
		LifecycleMode:  cfg.Analytics.LifecycleMode,
		DefaultProfile: cfg.Analytics.DefaultProfile,
		ReportTimeout:  cfg.Analytics.ReportTimeout,
	}, appanalytics.WithLogger(log))
	if err != nil {
		return err
	}
	formatter, err := appanalytics.NewFormatter(cfg.Analytics.Locale)
	if err != nil {
		return err
	}

	var store appanalytics.ObjectStore
	switch {
	case opts.dryRun:
		store = storage.NewMemoryReportStore(cfg.Export.Prefix)
	case opts.export:
		s3Store, err := storage.NewS3ReportStore(ctx, &cfg.Export,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Export.PresignExpiration),
		)
		if err != nil {
			return err
		}
		store = s3Store
	}

	var progress io.Writer = os.Stderr
	if opts.quiet {
		progress = io.Discard
	}

	r := &runner{
		service:   service,
		exporter:  appanalytics.NewExporter(service, store, log),
		formatter: formatter,
		out:       os.Stdout,
		progress:  progress,
	}
	log.Debug("Running reports", zap.Strings("reports", opts.reports), zap.String("engine", conn.Gateway.Engine()))
	return r.run(ctx, opts)
}
