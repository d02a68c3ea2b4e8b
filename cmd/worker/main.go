package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/bib-pipeline/internal/adapter"
	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/detector"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/messaging"
	"github.com/feral-file/bib-pipeline/internal/objectstore"
	"github.com/feral-file/bib-pipeline/internal/pipeline"
	"github.com/feral-file/bib-pipeline/internal/providers/jetstream"
	temporal "github.com/feral-file/bib-pipeline/internal/providers/temporal"
	"github.com/feral-file/bib-pipeline/internal/ratelimit"
	"github.com/feral-file/bib-pipeline/internal/report"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/workflows"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWorkerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "bib-pipeline-worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting bib pipeline worker")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)

	// Open source and destination buckets
	buckets, err := objectstore.Open(ctx, cfg.Storage)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to open object store", zap.Error(err))
	}
	defer func() {
		if err := buckets.Close(); err != nil {
			logger.Warn("Failed to close object store", zap.Error(err))
		}
	}()

	// Initialize adapters
	jsonAdapter := adapter.NewJSON()
	clockAdapter := adapter.NewClock()
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
			logger.FatalCtx(ctx, "Invalid report format", zap.Error(err))
		}
		reports = report.NewGenerator(dataStore, buckets, report.Options{
			Format: format,
			Zstd:   cfg.Report.Zstd,
			Prefix: cfg.Report.Prefix,
		})
	} else {
		logger.WarnCtx(ctx, "Bib reports are disabled")
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
			logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
		}
		defer publisher.Close()
		logger.InfoCtx(ctx, "Connected to NATS JetStream", zap.String("stream", cfg.NATS.StreamName))
	} else {
		logger.WarnCtx(ctx, "NATS URL not configured, run events will not be published")
	}

	coordinator := pipeline.NewCoordinator(dataStore, buckets, limitedDetector, clockAdapter, pipeline.Options{
		IdlePollInterval: cfg.Pipeline.IdlePollInterval,
		OnProgress:       workflows.HeartbeatProgress(adapter.NewActivity()),
	})
	executor := workflows.NewExecutor(coordinator, dataStore, reports, publisher)

	// Connect to Temporal with logger integration
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewZapLoggerAdapter(logger.Default()),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Temporal", zap.Error(err), zap.String("host_port", cfg.Temporal.HostPort))
	}
	defer temporalClient.Close()
	logger.InfoCtx(ctx, "Connected to Temporal", zap.String("namespace", cfg.Temporal.Namespace))

	temporalWorker := worker.New(
		temporalClient,
		cfg.Temporal.PipelineTaskQueue,
		worker.Options{
			MaxConcurrentActivityExecutionSize: cfg.Temporal.MaxConcurrentActivityExecutionSize,
			MaxConcurrentActivityTaskPollers:   cfg.Temporal.MaxConcurrentActivityTaskPollers,
			Interceptors:                       []interceptor.WorkerInterceptor{temporal.NewSentryActivityInterceptor()},
		})
	logger.InfoCtx(ctx, "Created Temporal worker", zap.String("task_queue", cfg.Temporal.PipelineTaskQueue))

	workerCore := workflows.NewWorkerCore(executor, workflows.WorkerCoreConfig{
		RunTimeout:       cfg.Temporal.RunTimeout,
		HeartbeatTimeout: cfg.Temporal.HeartbeatTimeout,
		GenerateReport:   reports != nil,
		PublishEvents:    publisher != nil,
	})

	temporalWorker.RegisterWorkflow(workerCore.PipelineRunWorkflow)
	temporalWorker.RegisterActivity(executor.RunPipeline)
	temporalWorker.RegisterActivity(executor.GenerateReport)
	temporalWorker.RegisterActivity(executor.PublishRunCompleted)
	logger.InfoCtx(ctx, "Registered workflows and activities")

	if err := temporalWorker.Start(); err != nil {
		logger.FatalCtx(ctx, "Failed to start worker", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Worker started and listening for tasks")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))

	temporalWorker.Stop()
	logger.Info("Worker stopped")
}
