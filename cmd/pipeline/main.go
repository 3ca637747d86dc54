package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/listerineh/flight-emissions/internal/collector"
	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/fuel"
	"github.com/listerineh/flight-emissions/internal/phases"
	"github.com/listerineh/flight-emissions/internal/pipeline"
	"github.com/listerineh/flight-emissions/internal/storage/sqlite"
	"github.com/listerineh/flight-emissions/internal/summaries"
	"github.com/listerineh/flight-emissions/internal/tracking"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	windowStartFlag := flag.String("window-start", "", "Collection window start in RFC3339 (defaults to window_hours ago)")
	noDB := flag.Bool("no-db", false, "Skip SQLite persistence and only write run artifacts")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The pipeline cannot run without provider credentials
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Missing provider credentials: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting flight emissions pipeline",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Resolve the collection window
	window := time.Duration(cfg.Collector.WindowHours) * time.Hour
	windowStart := time.Now().UTC().Add(-window)
	if *windowStartFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *windowStartFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -window-start value: %v\n", err)
			os.Exit(1)
		}
		windowStart = parsed.UTC()
	}
	windowEnd := windowStart.Add(window)

	log.Info("Collection window",
		logger.Time("start", windowStart),
		logger.Time("end", windowEnd),
		logger.String("bounds", cfg.Collector.Bounds))

	// Load the per-model fuel profile table
	fuelTable, err := fuel.LoadTable(cfg.Fuel.ProfilesPath)
	if err != nil {
		log.Error("Failed to load fuel profiles", logger.Error(err), logger.String("path", cfg.Fuel.ProfilesPath))
		os.Exit(1)
	}

	// Create SQLite storage unless this is an artifacts-only run
	var sink pipeline.Sink
	if !*noDB {
		today := time.Now().UTC().Format("2006-01-02")
		dbFilename := fmt.Sprintf("flight-emissions-%s.db", today)
		dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

		if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
			log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
			os.Exit(1)
		}

		flightStorage, err := sqlite.NewFlightStorage(dbPath, log)
		if err != nil {
			log.Error("Failed to create SQLite storage", logger.Error(err))
			os.Exit(1)
		}
		defer flightStorage.Close()
		sink = flightStorage
		log.Info("Using SQLite storage", logger.String("path", dbPath))
	}

	// Create the run output directory for this processing run
	runDir, err := pipeline.NewRunDir(cfg.Pipeline.OutputBaseDir, time.Now().UTC(), log)
	if err != nil {
		log.Error("Failed to create run directory", logger.Error(err))
		os.Exit(1)
	}

	// Create pipeline components
	client := tracking.NewClient(cfg.Provider, log)
	col := collector.New(client, runDir, cfg.Collector, log)
	fetcher := summaries.New(client, cfg.Summaries, log)
	segmenter := phases.NewSegmenter(cfg.Phases)

	service := pipeline.NewService(col, fetcher, segmenter, fuelTable, sink, runDir, cfg.Pipeline.MinDataPoints, log)

	// Run until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := service.Run(ctx, windowStart, windowEnd)
	if err != nil {
		log.Error("Pipeline run failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info("Pipeline run complete",
		logger.String("run_dir", report.RunDir),
		logger.Int("collected", report.Collected),
		logger.Int("processed", report.Processed),
		logger.Int("skipped", report.SkippedFlights),
		logger.Int("failed_ticks", len(report.FailedTicks)),
		logger.Int("failed_summary_ids", len(report.FailedSummaryIDs)))
}
