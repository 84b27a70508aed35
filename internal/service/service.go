package service

import (
	"context"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/notify"
)

// Notifier delivers chat messages. Implementations never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, chat, text string, buttons ...notify.Button)
	NotifyAdmins(ctx context.Context, text string, buttons ...notify.Button)
	NotifyPrimaryAdmin(ctx context.Context, text string)
	Acknowledge(ctx context.Context, interactionID, text string)
}

type MembershipService interface {
	CreatePending(ctx context.Context, req CreateMemberRequest) (*domain.Member, error)
	GetMember(ctx context.Context, id string) (*domain.Member, error)
}

type PaymentService interface {
	// CreatePayment returns the stored payment and the checkout URL.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, string, error)
	GetStatus(ctx context.Context, orderID string) (*domain.Payment, error)
	ListPayments(ctx context.Context, limit int) ([]domain.Payment, error)
}

type PlacementService interface {
	Place(ctx context.Context, membershipID string) (*PlacementResult, error)
}

type ApprovalService interface {
	Decide(ctx context.Context, d Decision) (*DecisionResult, error)
}

type WebhookService interface {
	HandleProviderCallback(ctx context.Context, cb ProviderCallback) (*CallbackResult, error)
	HandleChatUpdate(ctx context.Context, u ChatUpdate) error
}

type AdminCommandService interface {
	// Handle answers a slash command. ok is false when the command is not an admin command.
	Handle(ctx context.Context, msg ChatMessage) (reply string, ok bool)
}

type VerificationService interface {
	Request(ctx context.Context, telegram string) error
	// Verify consumes a matching code. A non-nil enroll is added to the roster
	// as verified once the code is accepted.
	Verify(ctx context.Context, telegram, code string, enroll *domain.RosterEntry) error
}

// MaintenanceService holds the periodic housekeeping run by the job runner.
type MaintenanceService interface {
	RemindPendingApprovals(ctx context.Context, olderThan time.Duration) (int, error)
	PurgeExpiredVerifications(ctx context.Context) (int64, error)
}

type AuthService interface {
	Login(ctx context.Context, password string) (string, time.Time, error)
}

type CreateMemberRequest struct {
	SponsorID string `json:"sponsorId" validate:"required"`
	Position  string `json:"position" validate:"required"`
	Name      string `json:"name" validate:"max=200"`
	Username  string `json:"username" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=40"`
}

type CreatePaymentRequest struct {
	OrderID        string         `json:"orderId" validate:"required,max=100"`
	Amount         float64        `json:"amount" validate:"gt=0"`
	Gateway        string         `json:"gateway" validate:"max=50"`
	ReturnURL      string         `json:"returnUrl" validate:"omitempty,url"`
	TelegramChatID string         `json:"telegramChatId"`
	Metadata       map[string]any `json:"metadata"`
}

type PlacementResult struct {
	SponsorID    string
	Position     domain.Position
	MembershipID string
}

// Decision is one admin button press.
type Decision struct {
	Action        domain.Action
	InteractionID string
	AdminUserID   string
	AdminUsername string
}

// Decision outcomes.
const (
	OutcomeApproved              = "approved"
	OutcomeApprovedWithoutMember = "approved_without_member"
	OutcomeRejected              = "rejected"
	OutcomeAlreadyFinal          = "already_final"
	OutcomeNotFound              = "not_found"
	OutcomeUnauthorized          = "unauthorized"
	OutcomeFailed                = "failed"
	OutcomeIgnored               = "ignored"
)

type DecisionResult struct {
	Outcome      string
	PaymentID    string
	MembershipID string
	Ack          string
}

// ProviderCallback is a payment provider notification after boundary normalization.
type ProviderCallback struct {
	OrderID   string
	Status    string
	TxnID     string
	RawStatus string
}

// Provider callback outcomes.
const (
	CallbackAwaitingAdmin = "awaiting_admin"
	CallbackFailed        = "failed"
	CallbackRecorded      = "recorded"
	CallbackUnchanged     = "unchanged"
	CallbackIgnored       = "ignored"
)

type CallbackResult struct {
	Outcome string          `json:"outcome"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

// ChatUpdate is a Telegram update reduced to what the dispatcher acts on.
// At most one of Callback and Message is set.
type ChatUpdate struct {
	Callback *ChatCallback
	Message  *ChatMessage
}

type ChatCallback struct {
	ID           string
	Data         string
	FromUserID   string
	FromUsername string
	ChatID       string
}

type ChatMessage struct {
	ChatID       string
	FromUserID   string
	FromUsername string
	FromName     string
	Text         string
}

