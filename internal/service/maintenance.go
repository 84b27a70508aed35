package service

import (
	"context"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

const reminderBatch = 50

type maintenanceService struct {
	paymentRepo repository.PaymentRepository
	verifyRepo  repository.VerificationRepository
	notifier    Notifier
	now         func() time.Time
}

func NewMaintenanceService(paymentRepo repository.PaymentRepository, verifyRepo repository.VerificationRepository, notifier Notifier) MaintenanceService {
	return &maintenanceService{paymentRepo: paymentRepo, verifyRepo: verifyRepo, notifier: notifier, now: time.Now}
}

// RemindPendingApprovals re-posts the decision buttons for payments that have
// waited on an admin longer than olderThan, counted from when they entered
// awaiting_admin.
func (s *maintenanceService) RemindPendingApprovals(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	payments, err := s.paymentRepo.ListByStatusBefore(ctx, domain.PaymentStatusAwaitingAdmin, cutoff, reminderBatch)
	if err != nil {
		return 0, err
	}

	for i := range payments {
		p := &payments[i]
		since := p.StatusChangedAt
		if since.IsZero() {
			since = p.CreatedAt
		}
		waited := s.now().Sub(since).Round(time.Minute)
		text := fmt.Sprintf("⏰ Still waiting for a decision (%s)\n%s", waited, adminDecisionText(p))
		s.notifier.NotifyAdmins(ctx, text, decisionButtons(p.ID)...)
	}
	if len(payments) > 0 {
		logger.Info("Sent approval reminders", "count", len(payments), "cutoff", cutoff)
	}
	return len(payments), nil
}

func (s *maintenanceService) PurgeExpiredVerifications(ctx context.Context) (int64, error) {
	n, err := s.verifyRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	logger.Info("Purged expired verification codes", "count", n)
	return n, nil
}
