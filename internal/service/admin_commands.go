package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

const (
	usageSetPayment = "Usage: /setpayment <provider> <details>\nExample: /setpayment jazzcash 0312-1234567"
	usageCommands   = "Unknown command. Use:\n/setpayment <provider> <details>\n/getpayments"
)

type adminCommandService struct {
	methodRepo   repository.PaymentMethodRepository
	adminUserIDs []string
}

// NewAdminCommandService serves /setpayment and /getpayments. A nil
// methodRepo answers that the directory is not configured.
func NewAdminCommandService(methodRepo repository.PaymentMethodRepository, adminUserIDs []string) AdminCommandService {
	return &adminCommandService{methodRepo: methodRepo, adminUserIDs: adminUserIDs}
}

func (s *adminCommandService) Handle(ctx context.Context, msg ChatMessage) (string, bool) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch cmd {
	case "/setpayment", "/setpayments":
		return s.setPayment(ctx, msg, fields[1:]), true
	case "/getpayments", "/payments":
		return s.getPayments(ctx), true
	}
	if s.isAdmin(msg.FromUserID) {
		return usageCommands, true
	}
	return "", false
}

func (s *adminCommandService) setPayment(ctx context.Context, msg ChatMessage, args []string) string {
	if !s.isAdmin(msg.FromUserID) {
		return "❌ You are not an admin. Only allowed admins can run this command."
	}
	if len(args) < 2 {
		return usageSetPayment
	}
	if s.methodRepo == nil {
		return "Payment directory is not configured."
	}

	provider := strings.ToLower(args[0])
	details := strings.Join(args[1:], " ")
	pm, err := s.methodRepo.Upsert(ctx, provider, details)
	if errors.Is(err, domain.ErrInvalidInput) {
		return "Allowed providers: " + strings.Join(domain.AllowedPaymentProviders, ", ")
	}
	if err != nil {
		logger.Error("Failed to save payment method", "provider", provider, "error", err)
		return "⚠️ An error occurred while processing. Check server logs."
	}

	return fmt.Sprintf("✅ Updated %s details successfully.\nDetails: %s\nBy: %s", pm.Provider, pm.Details, sender(msg))
}

func (s *adminCommandService) getPayments(ctx context.Context) string {
	if s.methodRepo == nil {
		return "Payment directory is not configured."
	}
	methods, err := s.methodRepo.List(ctx)
	if err != nil {
		logger.Error("Failed to list payment methods", "error", err)
		return "⚠️ An error occurred while processing. Check server logs."
	}
	if len(methods) == 0 {
		return "No payments configured yet."
	}

	var b strings.Builder
	b.WriteString("Current Payment Details:\n")
	for _, m := range methods {
		provider, details := m.Provider, m.Details
		if provider == "" {
			provider = "unknown"
		}
		if details == "" {
			details = "---"
		}
		fmt.Fprintf(&b, "\n%s: %s", provider, details)
	}
	return b.String()
}

func (s *adminCommandService) isAdmin(userID string) bool {
	for _, id := range s.adminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func sender(msg ChatMessage) string {
	username := msg.FromUsername
	if username == "" {
		username = "no-username"
	}
	return strings.TrimSpace(fmt.Sprintf("%s (@%s) [%s]", msg.FromName, username, msg.FromUserID))
}
