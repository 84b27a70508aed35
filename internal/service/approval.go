package service

import (
	"context"
	"errors"
	"fmt"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/metrics"
	"sponsortree-backend/internal/repository"
)

// Acknowledgement texts shown on the admin's button.
const (
	ackNotFound        = "Payment not found."
	ackApproved        = "Approved ✅"
	ackApprovedNoMatch = "Approved (no member linked). Please link member manually."
	ackRejected        = "Rejected ❌"
	ackApproveFailed   = "Approve failed."
	ackRejectFailed    = "Reject failed."
	ackUnknownAction   = "Action received."
	ackNotAuthorized   = "Not authorized."
)

const (
	msgMemberApproved = "✅ Your payment has been approved. You are now an active member. Welcome!"
	msgMemberRejected = "⚠️ Your payment was rejected. Order: %s. Please contact admin."
)

type approvalService struct {
	memberRepo   repository.MemberRepository
	paymentRepo  repository.PaymentRepository
	placement    PlacementService
	notifier     Notifier
	adminUserIDs []string
}

// NewApprovalService builds the approve/reject workflow. When adminUserIDs is
// non-empty only those Telegram users may decide.
func NewApprovalService(
	memberRepo repository.MemberRepository,
	paymentRepo repository.PaymentRepository,
	placement PlacementService,
	notifier Notifier,
	adminUserIDs []string,
) ApprovalService {
	return &approvalService{
		memberRepo:   memberRepo,
		paymentRepo:  paymentRepo,
		placement:    placement,
		notifier:     notifier,
		adminUserIDs: adminUserIDs,
	}
}

// Decide runs one admin decision to completion and acknowledges it exactly
// once. Store failures abort the remaining steps without rolling back; the
// returned error carries the cause, the acknowledgement stays generic.
func (s *approvalService) Decide(ctx context.Context, d Decision) (*DecisionResult, error) {
	logger.EnterMethod("ApprovalService.Decide", "action", d.Action.String(), "admin", d.admin())

	res, err := s.decide(ctx, d)
	metrics.DecisionsTotal.WithLabelValues(string(d.Action.Kind), res.Outcome).Inc()
	s.notifier.Acknowledge(ctx, d.InteractionID, res.Ack)

	if err != nil {
		logger.ExitMethodWithError("ApprovalService.Decide", err, "outcome", res.Outcome)
		return res, err
	}
	logger.ExitMethod("ApprovalService.Decide", "outcome", res.Outcome, "paymentID", res.PaymentID, "memberID", res.MembershipID)
	return res, nil
}

func (s *approvalService) decide(ctx context.Context, d Decision) (*DecisionResult, error) {
	failAck := ackApproveFailed
	switch d.Action.Kind {
	case domain.ActionApprovePayment:
	case domain.ActionRejectPayment:
		failAck = ackRejectFailed
	default:
		return &DecisionResult{Outcome: OutcomeIgnored, Ack: ackUnknownAction}, nil
	}

	if !s.authorized(d.AdminUserID) {
		logger.Warn("Decision from unauthorized user refused", "userID", d.AdminUserID, "action", d.Action.String())
		return &DecisionResult{Outcome: OutcomeUnauthorized, PaymentID: d.Action.Argument, Ack: ackNotAuthorized}, nil
	}

	p, err := s.paymentRepo.GetByID(ctx, d.Action.Argument)
	if errors.Is(err, domain.ErrNotFound) {
		return &DecisionResult{Outcome: OutcomeNotFound, PaymentID: d.Action.Argument, Ack: ackNotFound}, nil
	}
	if err != nil {
		return &DecisionResult{Outcome: OutcomeFailed, PaymentID: d.Action.Argument, Ack: failAck}, err
	}

	if p.Status == domain.PaymentStatusRejected && d.Action.Kind == domain.ActionRejectPayment {
		return s.finishReject(ctx, p)
	}
	if p.Status.IsTerminal() {
		return alreadyFinal(p), nil
	}

	if d.Action.Kind == domain.ActionApprovePayment {
		return s.approve(ctx, d, p)
	}
	return s.reject(ctx, d, p)
}

func (s *approvalService) approve(ctx context.Context, d Decision, p *domain.Payment) (*DecisionResult, error) {
	res := &DecisionResult{PaymentID: p.ID}

	m, err := s.resolveMembership(ctx, p)
	if err != nil {
		return s.fail(res, "resolve_membership", ackApproveFailed, err)
	}

	if m == nil {
		updated, err := s.paymentRepo.SetStatus(ctx, p.ID, domain.PaymentStatusApprovedWithoutMember, "")
		if errors.Is(err, domain.ErrInvalidTransition) {
			return s.settled(ctx, p)
		}
		if err != nil {
			return s.fail(res, "payment_approved_without_member", ackApproveFailed, err)
		}
		res.Outcome, res.Ack = OutcomeApprovedWithoutMember, ackApprovedNoMatch
		s.notifier.NotifyPrimaryAdmin(ctx, fmt.Sprintf("Payment %s approved without member by @%s", updated.ID, d.admin()))
		return res, nil
	}
	res.MembershipID = m.ID

	if p.MemberID != m.ID {
		if _, err := s.paymentRepo.LinkMembership(ctx, p.ID, m.ID); err != nil {
			return s.fail(res, "link_membership", ackApproveFailed, err)
		}
	}

	m, err = s.memberRepo.SetStatus(ctx, m.ID, domain.MemberStatusActive)
	if err != nil {
		return s.fail(res, "membership_active", ackApproveFailed, err)
	}

	if _, err := s.placement.Place(ctx, m.ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrMembershipHasNoSponsor):
			logger.Warn("Membership has no sponsor, skipping placement", "memberID", m.ID)
		case errors.Is(err, domain.ErrSlotConflict):
			// Another membership won the slot; the decision still completes.
			logger.PartialFailure("placement", p.ID, m.ID, err)
			metrics.PartialFailuresTotal.WithLabelValues("placement").Inc()
		default:
			return s.fail(res, "placement", ackApproveFailed, err)
		}
	}

	if _, err := s.paymentRepo.SetStatus(ctx, p.ID, domain.PaymentStatusApproved, ""); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return s.settled(ctx, p)
		}
		return s.fail(res, "payment_approved", ackApproveFailed, err)
	}

	chat := m.TelegramChatID
	if chat == "" {
		chat = p.TelegramChatID
	}
	s.notifier.Notify(ctx, chat, msgMemberApproved)

	res.Outcome, res.Ack = OutcomeApproved, ackApproved
	s.notifier.NotifyPrimaryAdmin(ctx, fmt.Sprintf("Payment %s approved by @%s", p.ID, d.admin()))
	return res, nil
}

// reject settles the membership before the payment so a failed run leaves
// the payment open and a replay walks the same steps again.
func (s *approvalService) reject(ctx context.Context, d Decision, p *domain.Payment) (*DecisionResult, error) {
	res := &DecisionResult{PaymentID: p.ID}

	m, err := s.resolveMembership(ctx, p)
	if err != nil {
		return s.fail(res, "resolve_membership", ackRejectFailed, err)
	}
	if m != nil {
		res.MembershipID = m.ID
		if p.MemberID != m.ID {
			if _, err := s.paymentRepo.LinkMembership(ctx, p.ID, m.ID); err != nil {
				return s.fail(res, "link_membership", ackRejectFailed, err)
			}
		}
		if m.Status == domain.MemberStatusPending {
			if _, err := s.memberRepo.SetStatus(ctx, m.ID, domain.MemberStatusRejected); err != nil {
				if errors.Is(err, domain.ErrInvalidTransition) {
					return s.settled(ctx, p)
				}
				return s.fail(res, "membership_rejected", ackRejectFailed, err)
			}
		}
	}

	if _, err := s.paymentRepo.SetStatus(ctx, p.ID, domain.PaymentStatusRejected, ""); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return s.settled(ctx, p)
		}
		return s.fail(res, "payment_rejected", ackRejectFailed, err)
	}

	if m != nil && m.Status == domain.MemberStatusPending {
		s.notifier.Notify(ctx, m.TelegramChatID, fmt.Sprintf(msgMemberRejected, p.OrderID))
	}

	res.Outcome, res.Ack = OutcomeRejected, ackRejected
	s.notifier.NotifyPrimaryAdmin(ctx, fmt.Sprintf("Payment %s rejected by @%s", p.ID, d.admin()))
	return res, nil
}

// finishReject brings the linked membership of an already rejected payment
// in line with it. Rows left pending by an interrupted rejection converge here.
func (s *approvalService) finishReject(ctx context.Context, p *domain.Payment) (*DecisionResult, error) {
	res := alreadyFinal(p)
	if p.MemberID == "" {
		return res, nil
	}
	m, err := s.memberRepo.GetByID(ctx, p.MemberID)
	if errors.Is(err, domain.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return s.fail(&DecisionResult{PaymentID: p.ID, MembershipID: p.MemberID}, "resolve_membership", ackRejectFailed, err)
	}
	if m.Status != domain.MemberStatusPending {
		return res, nil
	}
	if _, err := s.memberRepo.SetStatus(ctx, m.ID, domain.MemberStatusRejected); err != nil {
		return s.fail(&DecisionResult{PaymentID: p.ID, MembershipID: m.ID}, "membership_rejected", ackRejectFailed, err)
	}
	logger.Info("Completed membership rejection for rejected payment", "paymentID", p.ID, "memberID", m.ID)
	s.notifier.Notify(ctx, m.TelegramChatID, fmt.Sprintf(msgMemberRejected, p.OrderID))
	return res, nil
}

// resolveMembership finds the membership a payment pays for: the explicit
// link, then the notes hint, then a pending membership sharing the payment's
// chat identity. A dangling link or hint falls through to the next source.
func (s *approvalService) resolveMembership(ctx context.Context, p *domain.Payment) (*domain.Member, error) {
	for _, id := range []string{p.MemberID, p.MemberIDHint()} {
		if id == "" {
			continue
		}
		m, err := s.memberRepo.GetByID(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		logger.Warn("Payment references a missing membership", "paymentID", p.ID, "memberID", id)
	}
	if p.TelegramChatID == "" {
		return nil, nil
	}
	return s.memberRepo.FindPendingByChatIdentity(ctx, p.TelegramChatID)
}

// settled reports the state written by a concurrent decision that won the race.
func (s *approvalService) settled(ctx context.Context, p *domain.Payment) (*DecisionResult, error) {
	current, err := s.paymentRepo.GetByID(ctx, p.ID)
	if err != nil {
		return &DecisionResult{Outcome: OutcomeAlreadyFinal, PaymentID: p.ID, Ack: "Payment already decided."}, nil
	}
	return alreadyFinal(current), nil
}

func (s *approvalService) fail(res *DecisionResult, step, ack string, err error) (*DecisionResult, error) {
	logger.PartialFailure(step, res.PaymentID, res.MembershipID, err)
	metrics.PartialFailuresTotal.WithLabelValues(step).Inc()
	res.Outcome, res.Ack = OutcomeFailed, ack
	return res, fmt.Errorf("%s: %w", step, err)
}

func (s *approvalService) authorized(userID string) bool {
	if len(s.adminUserIDs) == 0 {
		return true
	}
	for _, id := range s.adminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func alreadyFinal(p *domain.Payment) *DecisionResult {
	return &DecisionResult{
		Outcome:      OutcomeAlreadyFinal,
		PaymentID:    p.ID,
		MembershipID: p.MemberID,
		Ack:          fmt.Sprintf("Payment already %s.", p.Status),
	}
}

func (d Decision) admin() string {
	if d.AdminUsername != "" {
		return d.AdminUsername
	}
	return d.AdminUserID
}
