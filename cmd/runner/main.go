package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/detector"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/manifest"
	"github.com/feral-file/bib-pipeline/internal/messaging"
	"github.com/feral-file/bib-pipeline/internal/objectstore"
	"github.com/feral-file/bib-pipeline/internal/pipeline"
	"github.com/feral-file/bib-pipeline/internal/providers/jetstream"
	"github.com/feral-file/bib-pipeline/internal/ratelimit"
	"github.com/feral-file/bib-pipeline/internal/report"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/workflows"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	envPath       = flag.String("env", "config/", "Path to environment files")
	partitionDate = flag.String("partition-date", "", "Partition date (YYYY-MM-DD), defaults to today in UTC")
	environment   = flag.String("environment", string(domain.EnvironmentProduction), "Target environment (production or test)")
	manifestFile  = flag.String("manifest", "", "YAML or XLSX manifest of source partitions, overrides partitions_file")
	customerID    = flag.String("customer", "", "Customer whose contract is charged, overrides pipeline.customer_id")
	maxParallel   = flag.Int("max-parallel", 0, "Maximum concurrent mirror tasks, overrides pipeline.max_parallel")
	maxImages     = flag.Int("max-images", -1, "Maximum reservations per run (0 = unlimited), overrides pipeline.max_images")
	pageSize      = flag.Int("page-size", 0, "Pending objects per page, overrides pipeline.page_size")
)

func main() {
	os.Exit(run())
}

// run executes one pipeline run and returns the process exit code
func run() int {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadRunnerConfig(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return pipeline.EXIT_CODE_FAILED
	}

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "bib-pipeline-runner",
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return pipeline.EXIT_CODE_FAILED
	}
	defer logger.Flush(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run on interrupt; pending objects stay pending for the next run
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("Received shutdown signal, cancelling run", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	req, err := buildRunRequest(cfg)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("invalid run request: %w", err))
		return pipeline.EXIT_CODE_FAILED
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to connect to database: %w", err), zap.String("host", cfg.Database.Host))
		return pipeline.EXIT_CODE_FAILED
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to configure connection pool: %w", err))
		return pipeline.EXIT_CODE_FAILED
	}
	dataStore := store.NewPGStore(db)

	buckets, err := objectstore.Open(ctx, cfg.Storage)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to open object store: %w", err))
		return pipeline.EXIT_CODE_FAILED
	}
	defer func() {
		if err := buckets.Close(); err != nil {
			logger.Warn("Failed to close object store", zap.Error(err))
		}
	}()

	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(cfg.Detector.Timeout, adapter.RetryPolicy{
		MaxElapsedTime: cfg.Detector.MaxElapsedTime,
	})
	detectorClient := detector.NewClient(detector.Config{
		BaseURL: cfg.Detector.URL,
		APIKey:  cfg.Detector.APIKey,
	}, httpClient, jsonAdapter)
	limitedDetector := ratelimit.NewDetector(detectorClient, ratelimit.Config{
		RequestsPerSecond: cfg.Detector.RequestsPerSecond,
		Burst:             cfg.Detector.Burst,
	})

	var reports report.Generator
	if cfg.Report.Enabled {
		format, err := report.ParseFormat(cfg.Report.Format)
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("invalid report format: %w", err))
			return pipeline.EXIT_CODE_FAILED
		}
		reports = report.NewGenerator(dataStore, buckets, report.Options{
			Format: format,
			Zstd:   cfg.Report.Zstd,
			Prefix: cfg.Report.Prefix,
		})
	}

	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to connect to NATS: %w", err), zap.String("url", cfg.NATS.URL))
			return pipeline.EXIT_CODE_FAILED
		}
		defer publisher.Close()
	}

	coordinator := pipeline.NewCoordinator(dataStore, buckets, limitedDetector, adapter.NewClock(), pipeline.Options{
		IdlePollInterval: cfg.Pipeline.IdlePollInterval,
	})
	executor := workflows.NewExecutor(coordinator, dataStore, reports, publisher)

	result, runErr := coordinator.Run(ctx, req)
	code := pipeline.ExitCode(result, runErr)
	if result == nil {
		return code
	}

	// Reporting and publishing run detached from the signal context and never change the exit code
	bg := context.WithoutCancel(ctx)
	if reports != nil && result.State == domain.RunStateCompleted {
		rep, err := executor.GenerateReport(bg, *result, req.PartitionDate, req.Environment)
		if err != nil {
			logger.Warn("Failed to generate bib report", zap.Error(err))
		} else {
			result.Summary.ReportKey = rep.Key
			logger.Info("Generated bib report", zap.String("key", rep.Key), zap.Int("rows", rep.Rows))
		}
	}

	if publisher != nil {
		err := executor.PublishRunCompleted(bg, &messaging.RunCompletedEvent{
			RunID:         result.RunID,
			PartitionDate: domain.FormatPartitionDate(req.PartitionDate),
			Environment:   req.Environment,
			CustomerID:    req.CustomerID,
			State:         result.State,
			Summary:       result.Summary,
			Error:         result.Error,
			FinishedAt:    time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("Failed to publish run event", zap.Error(err))
		}
	}

	logger.Info("Runner finished", zap.String("state", string(result.State)), zap.Int("exit_code", code))
	return code
}

// buildRunRequest merges the configured run defaults with the command line
func buildRunRequest(cfg *config.RunnerConfig) (pipeline.RunRequest, error) {
	date := time.Now().UTC()
	if *partitionDate != "" {
		parsed, err := domain.ParsePartitionDate(*partitionDate)
		if err != nil {
			return pipeline.RunRequest{}, err
		}
		date = parsed
	}

	env, err := domain.ParseEnvironment(*environment)
	if err != nil {
		return pipeline.RunRequest{}, err
	}

	var partitions []domain.SourcePartition
	switch {
	case flag.NArg() > 0:
		partitions, err = manifest.ParseArgs(flag.Args())
	case *manifestFile != "":
		partitions, err = manifest.Load(*manifestFile)
	case cfg.PartitionsFile != "":
		partitions, err = manifest.Load(cfg.PartitionsFile)
	default:
		err = fmt.Errorf("%w: no source partitions given", domain.ErrInvalidRunRequest)
	}
	if err != nil {
		return pipeline.RunRequest{}, err
	}

	req := pipeline.NewRunRequest(cfg.Pipeline, date, env, partitions)
	if *customerID != "" {
		req.CustomerID = *customerID
	}
	if *maxParallel > 0 {
		req.MaxParallel = *maxParallel
	}
	if *maxImages >= 0 {
		req.MaxImages = *maxImages
	}
	if *pageSize > 0 {
		req.PageSize = *pageSize
	}
	return req, nil
}
