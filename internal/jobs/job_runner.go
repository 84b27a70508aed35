package jobs

import (
	"context"
	"time"

	"sponsortree-backend/internal/config"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/service"
)

const jobTimeout = 2 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Maintenance service.MaintenanceService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	log := logger.WithComponent("jobs")
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log.Info("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		log.Error("Job failed", "job", jobName, "error", err)
		return
	}
	log.Info("Job completed", "job", jobName)
}

// RemindPendingApprovals re-posts decision buttons for payments stuck in awaiting_admin
func (jr *JobRunner) RemindPendingApprovals() {
	jr.runWithRecovery("RemindPendingApprovals", func(ctx context.Context) error {
		olderThan := time.Duration(jr.config.Scheduler.ReminderAfterMinutes) * time.Minute
		n, err := jr.services.Maintenance.RemindPendingApprovals(ctx, olderThan)
		if err != nil {
			return err
		}
		logger.Debug("Approval reminders sent", "count", n)
		return nil
	})
}

// PurgeExpiredVerifications deletes verification codes past their expiry
func (jr *JobRunner) PurgeExpiredVerifications() {
	jr.runWithRecovery("PurgeExpiredVerifications", func(ctx context.Context) error {
		_, err := jr.services.Maintenance.PurgeExpiredVerifications(ctx)
		return err
	})
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RemindPendingApprovals()
	jr.PurgeExpiredVerifications()
}
