package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/raaihank/order-etl/internal/audit"
	"github.com/raaihank/order-etl/internal/config"
	"github.com/raaihank/order-etl/internal/etl"
	"github.com/raaihank/order-etl/internal/logger"
	"github.com/raaihank/order-etl/internal/orders"
	"github.com/raaihank/order-etl/internal/report"
)

func main() {
	var (
		configPath       = flag.String("config", "", "Configuration file path")
		inputFile        = flag.String("input", "", "Input dataset file (CSV, JSON, or Parquet)")
		reset            = flag.Bool("reset", false, "Drop and recreate both tables before loading")
		validateOnly     = flag.Bool("validate-only", false, "Only validate data, don't touch the database")
		showStats        = flag.Bool("stats", false, "Show table row counts and exit")
		summaryBy        = flag.String("summary-by", "", "Print total profit grouped by this column and exit")
		commitEvery      = flag.Int("commit-every", 0, "Commit after every N records (0 = one commit per run)")
		statementTimeout = flag.Duration("statement-timeout", 0, "Timeout for each database statement")
		auditDir         = flag.String("audit-dir", "", "Directory for insert log files")
		keepLogs         = flag.Int("keep-logs", 0, "Number of insert log files to keep")
		publish          = flag.Bool("publish", false, "Publish the run summary to Redis")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly win over file and environment values
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.Source.Path = *inputFile
		case "commit-every":
			cfg.ETL.CommitEvery = *commitEvery
		case "statement-timeout":
			cfg.ETL.StatementTimeout = *statementTimeout
		case "audit-dir":
			cfg.Audit.Dir = *auditDir
		case "keep-logs":
			cfg.Audit.Keep = *keepLogs
		case "publish":
			cfg.Report.Redis.Enabled = *publish
		}
	})

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		os.Exit(1)
	}

	if cfg.Source.Path == "" && !*showStats && *summaryBy == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input Dataset.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input Dataset.json --reset\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input Dataset.csv --validate-only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --summary-by Region\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File: &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting order ETL",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath),
		zap.String("input", cfg.Source.Path))

	config.Watch(func(next *config.Config) {
		if err := log.SetLevel(next.Logging.Level); err != nil {
			log.Warn("Ignoring log level change", zap.Error(err))
			return
		}
		log.Info("Configuration reloaded", zap.String("log_level", next.Logging.Level))
	}, func(err error) {
		log.Warn("Ignoring configuration change", zap.Error(err))
	})

	if *validateOnly {
		if err := validateDataset(cfg.Source.Path, log); err != nil {
			log.Fatal("Validation failed", zap.Error(err))
		}
		return
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling run...")
		cancel()
	}()

	// Initialize services
	services, err := initializeServices(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.cleanup()

	// Handle different operations
	switch {
	case *showStats:
		if err := showTableStats(ctx, services); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
	case *summaryBy != "":
		if err := showProfitSummary(ctx, services, *summaryBy); err != nil {
			log.Fatal("Failed to summarize orders", zap.Error(err))
		}
	default:
		if err := services.store.EnsureSchema(ctx, *reset); err != nil {
			log.Fatal("Failed to prepare schema", zap.Error(err))
		}
		if err := loadDataset(ctx, services, cfg, log); err != nil {
			log.Error("ETL run failed", zap.Error(err))
			services.cleanup()
			os.Exit(1)
		}
	}

	log.Info("Order ETL completed successfully")
}

// services holds all initialized services
type services struct {
	store     *orders.Store
	publisher *report.RedisPublisher
}

func (s *services) cleanup() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
	if s.publisher != nil {
		s.publisher.Close()
		s.publisher = nil
	}
}

// initializeServices initializes all required services
func initializeServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	services := &services{}

	log.Info("Connecting to order store...")
	store, err := orders.NewStore(&cfg.Database, log.WithComponent("orders").Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize order store: %w", err)
	}
	services.store = store

	if cfg.Report.Redis.Enabled {
		publisher, err := report.NewRedisPublisher(&cfg.Report.Redis, log.WithComponent("report").Logger)
		if err != nil {
			// Publishing is optional; the run still reports to stdout
			log.Warn("Summary publishing disabled", zap.Error(err))
		} else {
			services.publisher = publisher
		}
	}

	return services, nil
}

// loadDataset runs the pipeline over the configured source and reports the
// outcome. The summary is printed even when the run fails.
func loadDataset(ctx context.Context, services *services, cfg *config.Config, log *logger.Logger) error {
	fs := afero.NewOsFs()

	auditLog, err := audit.Open(fs, cfg.Audit.Dir, time.Now())
	if err != nil {
		return err
	}
	log.Info("Writing insert log", zap.String("path", auditLog.Path()))

	pipeline := etl.NewPipeline(
		etl.StoreSessions(services.store, cfg.ETL.StatementTimeout),
		auditLog,
		&cfg.ETL,
		log.WithComponent("etl").Logger,
	)

	summary, runErr := pipeline.ProcessFile(ctx, cfg.Source.Path)
	if err := auditLog.Close(); err != nil {
		log.Warn("Failed to close insert log", zap.Error(err))
	}

	if summary != nil {
		report.Write(os.Stdout, summary)
	}

	removed, err := audit.Cleanup(fs, cfg.Audit.Dir, cfg.Audit.Keep)
	if err != nil {
		log.Warn("Failed to clean up insert logs", zap.Error(err))
	} else if len(removed) > 0 {
		log.Info("Removed old insert logs", zap.Strings("files", removed))
	}

	if runErr != nil {
		return fmt.Errorf("pipeline processing failed: %w", runErr)
	}

	if services.publisher != nil {
		if err := services.publisher.Publish(ctx, cfg.Source.Path, summary); err != nil {
			log.Warn("Failed to publish run summary", zap.Error(err))
		}
	}
	return nil
}

// validateDataset loads and checks the dataset without touching the database
func validateDataset(path string, log *logger.Logger) error {
	records, err := etl.LoadFile(path)
	if err != nil {
		return err
	}
	records = etl.Normalize(records)

	missing := map[string]int{}
	rejected := 0
	for _, rec := range records {
		fields := etl.MissingFields(rec, etl.RequiredColumns)
		if len(fields) == 0 {
			continue
		}
		rejected++
		for _, name := range fields {
			missing[name]++
		}
	}

	log.Info("Dataset validated",
		zap.String("file", path),
		zap.Int("records", len(records)),
		zap.Int("invalid", rejected))

	report.WriteValidation(os.Stdout, len(records), missing, rejected)
	return nil
}

// showTableStats displays current table row counts
func showTableStats(ctx context.Context, services *services) error {
	stats, err := services.store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get table stats: %w", err)
	}

	fmt.Printf("\n=== Order Store Statistics ===\n")
	report.WriteStats(os.Stdout, stats)
	return nil
}

// showProfitSummary prints total profit per value of the given column
func showProfitSummary(ctx context.Context, services *services, column string) error {
	groups, err := services.store.ProfitBy(ctx, column)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Profit by %s ===\n", column)
	report.WriteGroups(os.Stdout, column, groups)
	return nil
}
