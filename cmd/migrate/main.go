package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/bib-pipeline/db"
	"github.com/feral-file/bib-pipeline/internal/config"
	"github.com/feral-file/bib-pipeline/internal/domain"
	"github.com/feral-file/bib-pipeline/internal/logger"
	"github.com/feral-file/bib-pipeline/internal/store"
	"github.com/feral-file/bib-pipeline/internal/store/schema"
)

var (
	configFile      = flag.String("config", "", "Path to configuration file")
	envPath         = flag.String("env", "config/", "Path to environment files")
	down            = flag.Bool("down", false, "Roll back every migration instead of applying them")
	ensurePartition = flag.String("ensure-partition", "", "Create the table partitions of a date (YYYY-MM-DD)")
	dropPartition   = flag.String("drop-partition", "", "Drop the table partitions of a date (YYYY-MM-DD)")

	contractCustomer = flag.String("contract-customer", "", "Create or update the usage contract of this customer")
	contractLimit    = flag.Int64("contract-limit", 0, "Maximum number of images of the contract")
	contractStart    = flag.String("contract-start", "", "First day of the contract (YYYY-MM-DD)")
	contractEnd      = flag.String("contract-end", "", "Last day of the contract (YYYY-MM-DD)")
	contractStatus   = flag.String("contract-status", "active", "Contract status: active or inactive")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadMigrateConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "bib-pipeline-migrate",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	if *down {
		if err := db.MigrateDown(cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to roll back migrations", zap.Error(err))
		}
		logger.Info("Rolled back every migration")
		return
	}

	if err := db.MigrateUp(cfg.Database.URL()); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	if *ensurePartition == "" && *dropPartition == "" && *contractCustomer == "" {
		return
	}

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	dataStore := store.NewPGStore(gormDB)
	ctx := context.Background()

	if *ensurePartition != "" {
		date, err := domain.ParsePartitionDate(*ensurePartition)
		if err != nil {
			logger.Fatal("Invalid partition date", zap.Error(err), zap.String("partition_date", *ensurePartition))
		}
		if err := dataStore.EnsurePartition(ctx, date); err != nil {
			logger.Fatal("Failed to create partitions", zap.Error(err))
		}
		logger.Info("Created partitions", zap.String("partition_date", domain.FormatPartitionDate(date)))
	}

	if *dropPartition != "" {
		date, err := domain.ParsePartitionDate(*dropPartition)
		if err != nil {
			logger.Fatal("Invalid partition date", zap.Error(err), zap.String("partition_date", *dropPartition))
		}
		if err := dataStore.DropPartition(ctx, date); err != nil {
			logger.Fatal("Failed to drop partitions", zap.Error(err))
		}
		logger.Info("Dropped partitions", zap.String("partition_date", domain.FormatPartitionDate(date)))
	}

	if *contractCustomer != "" {
		input, err := contractInput()
		if err != nil {
			logger.Fatal("Invalid contract", zap.Error(err), zap.String("customer_id", *contractCustomer))
		}
		if err := dataStore.UpsertContract(ctx, input); err != nil {
			logger.Fatal("Failed to upsert contract", zap.Error(err), zap.String("customer_id", *contractCustomer))
		}
		logger.Info("Upserted contract",
			zap.String("customer_id", input.CustomerID),
			zap.Int64("contract_limit", input.ContractLimit),
			zap.String("status", string(input.Status)))
	}
}

func contractInput() (store.UpsertContractInput, error) {
	startDate, err := domain.ParsePartitionDate(*contractStart)
	if err != nil {
		return store.UpsertContractInput{}, fmt.Errorf("contract start: %w", err)
	}
	endDate, err := domain.ParsePartitionDate(*contractEnd)
	if err != nil {
		return store.UpsertContractInput{}, fmt.Errorf("contract end: %w", err)
	}
	status, err := schema.ParseContractStatus(*contractStatus)
	if err != nil {
		return store.UpsertContractInput{}, err
	}

	return store.UpsertContractInput{
		CustomerID:    *contractCustomer,
		ContractLimit: *contractLimit,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        status,
	}, nil
}
