package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sponsortree-backend/internal/bootstrap"
	"sponsortree-backend/internal/config"
	"sponsortree-backend/internal/jobs"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/scheduler"
	"sponsortree-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'remind-pending-approvals', 'all')")
	flag.Parse()

	// Load configuration
	config.LoadDotEnv(".env")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SponsorTree Cronjob Runner...", "log_level", cfg.Log.Level, "store_backend", cfg.Store.Backend)

	// Initialize record store
	store, closeStore, err := bootstrap.OpenStore(context.Background(), cfg, false)
	if err != nil {
		logger.Error("Failed to open record store", "error", err)
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer closeStore()

	// Initialize Services
	notifier := bootstrap.NewNotifier(cfg.Telegram)
	jobServices := &jobs.Services{
		Maintenance: service.NewMaintenanceService(store.Payments, store.Verifications, notifier),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			closeStore()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once; it reports false for an unknown name
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "remind-pending-approvals":
		jobRunner.RemindPendingApprovals()
	case "purge-expired-verifications":
		jobRunner.PurgeExpiredVerifications()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - remind-pending-approvals\n")
		fmt.Printf("  - purge-expired-verifications\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
