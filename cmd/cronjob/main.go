package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gearhire-backend/internal/app"
	"gearhire-backend/internal/config"
	"gearhire-backend/internal/logger"
	"gearhire-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g. 'assess-late-fees', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize logger
	closeLogs := app.InitLogging(ctx, cfg)
	defer closeLogs()
	logger.Info("Starting GearHire cronjob runner...", "log_level", cfg.Log.Level)

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(ctx, a, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			a.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(a.Jobs)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		a.Close()
		os.Exit(1)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.Entries())

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job, or all of them, and returns.
func runJobOnce(ctx context.Context, a *app.App, jobName string) error {
	if jobName == "all" {
		return a.Jobs.RunAll(ctx)
	}
	if _, err := a.Jobs.Run(ctx, jobName); err != nil {
		fmt.Fprintf(os.Stderr, "Available jobs: %s, all\n", strings.Join(a.Jobs.JobNames(), ", "))
		return err
	}
	return nil
}
