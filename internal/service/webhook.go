package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/metrics"
	"sponsortree-backend/internal/notify"
	"sponsortree-backend/internal/repository"
)

const (
	msgWelcome = "Welcome! If you came with a payment link, send /start <ORDERID>. Example: /start INV-2025-001"
	msgHelp    = "Commands:\n/start <ORDERID> - link your order to this chat\n/start JOIN:<sponsor>:<left|right>:<ORDERID> - link your membership"
)

type webhookService struct {
	memberRepo  repository.MemberRepository
	paymentRepo repository.PaymentRepository
	approval    ApprovalService
	commands    AdminCommandService
	notifier    Notifier
}

func NewWebhookService(
	memberRepo repository.MemberRepository,
	paymentRepo repository.PaymentRepository,
	approval ApprovalService,
	commands AdminCommandService,
	notifier Notifier,
) WebhookService {
	return &webhookService{
		memberRepo:  memberRepo,
		paymentRepo: paymentRepo,
		approval:    approval,
		commands:    commands,
		notifier:    notifier,
	}
}

// HandleProviderCallback applies a normalized provider notification. A paid
// callback moves the payment to awaiting_admin and asks the admins to decide;
// a failed callback marks it failed; any other status is only recorded.
func (s *webhookService) HandleProviderCallback(ctx context.Context, cb ProviderCallback) (*CallbackResult, error) {
	logger.EnterMethod("WebhookService.HandleProviderCallback", "orderID", cb.OrderID, "status", cb.Status)

	if strings.TrimSpace(cb.OrderID) == "" {
		err := fmt.Errorf("%w: missing order id", domain.ErrInvalidInput)
		logger.ExitMethodWithError("WebhookService.HandleProviderCallback", err)
		return nil, err
	}
	metrics.ProviderCallbacksTotal.WithLabelValues(cb.Status).Inc()

	p, err := s.paymentRepo.GetByOrderID(ctx, cb.OrderID)
	if err != nil {
		logger.ExitMethodWithError("WebhookService.HandleProviderCallback", err)
		return nil, err
	}

	var res *CallbackResult
	switch cb.Status {
	case domain.ProviderStatusPaid:
		res, err = s.transition(ctx, p, domain.PaymentStatusAwaitingAdmin, cb.TxnID, CallbackAwaitingAdmin)
		if err == nil && res.Outcome == CallbackAwaitingAdmin {
			s.notifier.NotifyAdmins(ctx, adminDecisionText(res.Payment), decisionButtons(p.ID)...)
		}
	case domain.ProviderStatusFailed:
		res, err = s.transition(ctx, p, domain.PaymentStatusFailed, cb.TxnID, CallbackFailed)
	default:
		var updated *domain.Payment
		updated, err = s.paymentRepo.SetProviderStatus(ctx, p.ID, cb.Status, cb.TxnID)
		res = &CallbackResult{Outcome: CallbackRecorded, Payment: updated}
	}
	if err != nil {
		logger.ExitMethodWithError("WebhookService.HandleProviderCallback", err)
		return nil, err
	}

	logger.ExitMethod("WebhookService.HandleProviderCallback", "paymentID", p.ID, "outcome", res.Outcome)
	return res, nil
}

// transition writes target unless the payment already holds it (a replay) or
// has moved past it.
func (s *webhookService) transition(ctx context.Context, p *domain.Payment, target domain.PaymentStatus, txnID, outcome string) (*CallbackResult, error) {
	if p.Status == target {
		return &CallbackResult{Outcome: CallbackUnchanged, Payment: p}, nil
	}
	if !p.Status.CanTransitionTo(target) {
		logger.Info("Provider callback ignored, payment already past target", "paymentID", p.ID, "status", p.Status, "target", target)
		return &CallbackResult{Outcome: CallbackIgnored, Payment: p}, nil
	}
	updated, err := s.paymentRepo.SetStatus(ctx, p.ID, target, txnID)
	if errors.Is(err, domain.ErrInvalidTransition) {
		return &CallbackResult{Outcome: CallbackIgnored, Payment: p}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CallbackResult{Outcome: outcome, Payment: updated}, nil
}

func decisionButtons(paymentID string) []notify.Button {
	return []notify.Button{
		{Label: "✅ Approve", Data: domain.NewAction(domain.ActionApprovePayment, paymentID).String()},
		{Label: "❌ Reject", Data: domain.NewAction(domain.ActionRejectPayment, paymentID).String()},
	}
}

func adminDecisionText(p *domain.Payment) string {
	var b strings.Builder
	b.WriteString("💳 Payment received\n")
	fmt.Fprintf(&b, "Order: %s\n", p.OrderID)
	fmt.Fprintf(&b, "Amount: %.2f\n", p.Amount)
	if p.Gateway != "" {
		fmt.Fprintf(&b, "Gateway: %s\n", p.Gateway)
	}
	if p.TxnID != "" {
		fmt.Fprintf(&b, "Txn: %s\n", p.TxnID)
	}
	fmt.Fprintf(&b, "Payment ID: %s", p.ID)
	return b.String()
}

// HandleChatUpdate routes a Telegram update. Errors are logged here; the chat
// platform always gets a success response.
func (s *webhookService) HandleChatUpdate(ctx context.Context, u ChatUpdate) error {
	switch {
	case u.Callback != nil:
		return s.handleCallback(ctx, u.Callback)
	case u.Message != nil:
		return s.handleMessage(ctx, u.Message)
	}
	return nil
}

func (s *webhookService) handleCallback(ctx context.Context, cb *ChatCallback) error {
	action, ok := domain.ParseAction(cb.Data)
	if !ok {
		s.notifier.Acknowledge(ctx, cb.ID, ackUnknownAction)
		return nil
	}
	_, err := s.approval.Decide(ctx, Decision{
		Action:        action,
		InteractionID: cb.ID,
		AdminUserID:   cb.FromUserID,
		AdminUsername: cb.FromUsername,
	})
	return err
}

func (s *webhookService) handleMessage(ctx context.Context, msg *ChatMessage) error {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}
	cmd, arg, _ := strings.Cut(text, " ")
	cmd = strings.ToLower(cmd)
	// Group chats address commands as /cmd@botname.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		code := strings.TrimSpace(arg)
		if code == "" {
			s.notifier.Notify(ctx, msg.ChatID, msgWelcome)
			return nil
		}
		return s.linkAccount(ctx, msg.ChatID, code)
	case "/help":
		s.notifier.Notify(ctx, msg.ChatID, msgHelp)
		return nil
	}

	if reply, ok := s.commands.Handle(ctx, *msg); ok {
		s.notifier.Notify(ctx, msg.ChatID, reply)
	}
	return nil
}

// linkAccount binds a chat to an order or to a pending membership. The code is
// tried as an order id first, then as a JOIN code.
func (s *webhookService) linkAccount(ctx context.Context, chatID, code string) error {
	logger.EnterMethod("WebhookService.linkAccount", "chatID", chatID, "code", code)

	p, err := s.paymentRepo.GetByOrderID(ctx, code)
	switch {
	case err == nil:
		if _, err := s.paymentRepo.SetChatIdentity(ctx, p.ID, chatID); err != nil {
			return s.linkFailed(ctx, chatID, err)
		}
		s.notifier.Notify(ctx, chatID, fmt.Sprintf("✅ Order %s is now linked to this Telegram account. We will notify you here.", code))
		logger.ExitMethod("WebhookService.linkAccount", "paymentID", p.ID)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return s.linkFailed(ctx, chatID, err)
	}

	join, err := domain.ParseJoinCode(code)
	if err != nil {
		s.notifier.Notify(ctx, chatID, unresolvedCodeText(code))
		logger.ExitMethod("WebhookService.linkAccount", "resolved", false)
		return nil
	}

	m, err := s.memberRepo.FindPendingBySponsorAndPosition(ctx, join.SponsorID, join.Position)
	if err != nil {
		return s.linkFailed(ctx, chatID, err)
	}
	if m == nil {
		s.notifier.Notify(ctx, chatID, unresolvedCodeText(code))
		logger.ExitMethod("WebhookService.linkAccount", "resolved", false)
		return nil
	}
	if _, err := s.memberRepo.SetChatIdentity(ctx, m.ID, chatID); err != nil {
		return s.linkFailed(ctx, chatID, err)
	}

	p, err = s.paymentRepo.GetByOrderID(ctx, join.OrderRef)
	switch {
	case err == nil:
		if _, err := s.paymentRepo.SetChatIdentity(ctx, p.ID, chatID); err != nil {
			return s.linkFailed(ctx, chatID, err)
		}
		if _, err := s.paymentRepo.LinkMembership(ctx, p.ID, m.ID); err != nil {
			return s.linkFailed(ctx, chatID, err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return s.linkFailed(ctx, chatID, err)
	}

	s.notifier.Notify(ctx, chatID, fmt.Sprintf("✅ Your account is linked for sponsor %s (%s).", join.SponsorID, join.Position))
	logger.ExitMethod("WebhookService.linkAccount", "memberID", m.ID)
	return nil
}

func (s *webhookService) linkFailed(ctx context.Context, chatID string, err error) error {
	logger.ExitMethodWithError("WebhookService.linkAccount", err, "chatID", chatID)
	s.notifier.Notify(ctx, chatID, "Linking failed, please contact admin.")
	return err
}

func unresolvedCodeText(code string) string {
	return fmt.Sprintf("Received code: %s. If this is an order id, make sure the payment was created on the site first.", code)
}
