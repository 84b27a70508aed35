package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
	"sponsortree-backend/internal/security"
)

type verificationService struct {
	verifyRepo repository.VerificationRepository
	roster     repository.RosterRepository
	notifier   Notifier
	ttl        time.Duration
	now        func() time.Time
}

// NewVerificationService builds the code flow. roster may be nil when no
// roster is configured; enrolment requests are then skipped.
func NewVerificationService(verifyRepo repository.VerificationRepository, roster repository.RosterRepository, notifier Notifier, ttl time.Duration) VerificationService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &verificationService{verifyRepo: verifyRepo, roster: roster, notifier: notifier, ttl: ttl, now: time.Now}
}

// Request issues a one-time code for the handle. Only its hash is stored; the
// plain code goes to the admin chats, who pass it on to the applicant.
func (s *verificationService) Request(ctx context.Context, telegram string) error {
	telegram = strings.TrimSpace(telegram)
	if telegram == "" {
		return fmt.Errorf("%w: missing telegram", domain.ErrInvalidInput)
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return err
	}
	hash, err := security.HashSecret(code)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	v := &domain.Verification{
		Telegram:  telegram,
		CodeHash:  hash,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.verifyRepo.Create(ctx, v); err != nil {
		return err
	}

	logger.Info("Verification code issued", "telegram", telegram, "verificationID", v.ID)
	s.notifier.NotifyAdmins(ctx, fmt.Sprintf("🔐 Verification code for %s: %s (valid %d min)", telegram, code, int(s.ttl.Minutes())))
	return nil
}

// Verify consumes the newest usable code matching the handle.
func (s *verificationService) Verify(ctx context.Context, telegram, code string, enroll *domain.RosterEntry) error {
	telegram, code = strings.TrimSpace(telegram), strings.TrimSpace(code)
	if telegram == "" || code == "" {
		return fmt.Errorf("%w: telegram and otp are required", domain.ErrInvalidInput)
	}

	candidates, err := s.verifyRepo.ListUsable(ctx, telegram)
	if err != nil {
		return err
	}
	now := s.now()
	for _, v := range candidates {
		if !v.Usable(now) || !security.CheckSecret(v.CodeHash, code) {
			continue
		}
		if err := s.verifyRepo.Consume(ctx, v.ID); err != nil {
			return err
		}
		logger.Info("Verification code accepted", "telegram", telegram, "verificationID", v.ID)
		if enroll != nil {
			s.enroll(ctx, telegram, enroll)
		}
		return nil
	}
	return fmt.Errorf("%w: otp_not_found", domain.ErrNotFound)
}

// enroll records a verified roster row. The code is already spent, so a
// failure here is logged and does not fail the verification.
func (s *verificationService) enroll(ctx context.Context, telegram string, e *domain.RosterEntry) {
	if s.roster == nil {
		logger.Warn("Roster not configured, skipping enrolment", "telegram", telegram)
		return
	}
	e.Verified = true
	e.Date = s.now().UTC()
	if err := s.roster.Add(ctx, e); err != nil {
		logger.Error("Failed to add verified member to roster", "telegram", telegram, "orderID", e.OrderID, "error", err)
		return
	}
	logger.Info("Verified member added to roster", "telegram", telegram, "rosterID", e.ID)
}
