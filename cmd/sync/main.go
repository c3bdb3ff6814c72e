package main

import (
	"context"
	"flag"
	"os"
	"syscall"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/archive"
	"github.com/castlemilk/shorted.com.au-sub001/internal/config"
	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider/eodhd"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider/yahoo"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
	"github.com/castlemilk/shorted.com.au-sub001/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "shorted-sync",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	jobType := flag.String("job", "", "Job type override, defaults to sync.job_type from config")
	batchSize := flag.Int("batch", 0, "Batch size override, defaults to sync.batch_size from config")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *jobType == "" {
		*jobType = cfg.Sync.JobType
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Sync.BatchSize
	}

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		appLogger.WithError(err).WithField("timezone", cfg.Sync.Timezone).Fatal("Invalid sync timezone")
	}
	backfillStart, err := time.Parse("2006-01-02", cfg.Sync.BackfillStart)
	if err != nil {
		appLogger.WithError(err).WithField("backfill_start", cfg.Sync.BackfillStart).Fatal("Invalid backfill start date")
	}

	appLogger.WithFields(logger.Fields{
		"job_type":   *jobType,
		"batch_size": *batchSize,
		"timezone":   cfg.Sync.Timezone,
		"providers":  cfg.Providers.Order,
	}).Info("Starting sync")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	runRepo := repository.NewRunRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	symbolRepo := repository.NewSymbolRepository(db)

	// Build the provider chain in configured order
	chain := provider.NewChain()
	for _, name := range cfg.Providers.Order {
		pcfg, known := cfg.Providers.Provider(name)
		if !known {
			appLogger.WithField("provider", name).Fatal("Unknown provider in providers.order")
		}
		if !pcfg.Enabled {
			appLogger.WithField("provider", name).Info("Provider disabled, skipping")
			continue
		}

		var p provider.Provider
		switch name {
		case yahoo.ProviderName:
			p = yahoo.NewAdapter(pcfg.BaseURL, pcfg.Timeout, loc)
		case eodhd.ProviderName:
			if pcfg.APIToken == "" {
				appLogger.WithField("provider", name).Warn("No API token configured, skipping provider")
				continue
			}
			p = eodhd.NewAdapter(pcfg.BaseURL, pcfg.APIToken, pcfg.Timeout)
		}

		pacer := provider.NewPacer(name, pcfg.BaseDelay, pcfg.MaxBackoffDelay,
			cfg.Providers.BackoffFactor, cfg.Providers.FailureStreakThreshold)
		chain.Add(p, pacer)
	}
	if chain.Len() == 0 {
		appLogger.Fatal("No providers enabled, nothing to sync with")
	}

	ctx := context.Background()

	// Initialize the raw payload archive when enabled
	var archiver archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.New(&archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize archive")
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure archive bucket")
		}
	}

	// Pick the catalog source
	var catalog service.Catalog
	switch cfg.Catalog.Source {
	case "static":
		catalog = service.NewStaticCatalog(cfg.Catalog.Symbols)
	default:
		catalog = service.NewDBCatalog(symbolRepo)
	}

	// Termination is cooperative: the handler only sets a flag, work in
	// flight always finishes before the run is finalized.
	term := service.NewTerminationHandler()
	term.Listen(syscall.SIGTERM, syscall.SIGINT)
	defer term.Close()

	syncService := service.NewSyncService(
		runRepo,
		priceRepo,
		catalog,
		chain,
		service.NewRetryPolicy(cfg.Sync.MaxEntityFailures),
		term,
		archiver,
		appLogger,
		&service.SyncConfig{
			JobType:       *jobType,
			BatchSize:     *batchSize,
			FlushInterval: cfg.Sync.CheckpointFlushInterval,
			LookbackRuns:  cfg.Sync.FailureLookbackRuns,
			BackfillStart: backfillStart,
			Location:      loc,
		},
	)

	run, err := syncService.Run(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Sync failed")
	}

	appLogger.WithFields(logger.Fields{
		"run_id":       run.ID,
		"status":       run.Status,
		"processed":    len(run.Checkpoint.EntitiesProcessed),
		"successful":   len(run.Checkpoint.EntitiesSuccessful),
		"failed":       len(run.Checkpoint.EntitiesFailed),
		"resume_index": run.Checkpoint.ResumeIndex,
		"total":        run.Checkpoint.EntitiesTotal,
	}).Info("Sync invocation finished")

	if run.Status == domain.RunStatusFailed {
		os.Exit(1)
	}
}
