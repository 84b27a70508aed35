package repository

import (
	"context"
	"time"

	"sponsortree-backend/internal/domain"
)

// MemberRepository is the membership table accessor.
type MemberRepository interface {
	// CreatePending inserts a pending membership. A non-rejected membership
	// already holding the slot yields domain.ErrSlotConflict.
	CreatePending(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	// Find* return (nil, nil) when nothing matches.
	FindPendingBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error)
	FindOpenBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error)
	FindPendingByChatIdentity(ctx context.Context, chatID string) (*domain.Member, error)
	// SetStatus is a guarded write: it applies only when the current status
	// may transition to status, else domain.ErrInvalidTransition.
	SetStatus(ctx context.Context, id string, status domain.MemberStatus) (*domain.Member, error)
	SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Member, error)
	// AttachChild records childID in the sponsor's slot. It succeeds when the
	// slot is empty or already holds childID, else domain.ErrSlotConflict.
	AttachChild(ctx context.Context, sponsorID string, pos domain.Position, childID string) (*domain.Member, error)
}

// PaymentRepository is the payment table accessor.
type PaymentRepository interface {
	// Create inserts a payment; an existing order id yields domain.ErrDuplicateOrder.
	Create(ctx context.Context, p *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// SetStatus is a guarded write, see domain.PaymentStatus.AllowedPredecessors.
	// An empty txnID leaves the stored transaction id untouched.
	SetStatus(ctx context.Context, id string, status domain.PaymentStatus, txnID string) (*domain.Payment, error)
	SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Payment, error)
	LinkMembership(ctx context.Context, id, memberID string) (*domain.Payment, error)
	SetProviderStatus(ctx context.Context, id, providerStatus, txnID string) (*domain.Payment, error)
	List(ctx context.Context, limit int) ([]domain.Payment, error)
	// ListByStatusBefore returns payments that entered status before the cutoff, longest waiting first.
	ListByStatusBefore(ctx context.Context, status domain.PaymentStatus, before time.Time, limit int) ([]domain.Payment, error)
}

type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
	// ListUsable returns unconsumed, unexpired codes for the handle, newest first.
	ListUsable(ctx context.Context, telegram string) ([]domain.Verification, error)
	// Consume marks the code used; a second call yields domain.ErrNotFound.
	Consume(ctx context.Context, id string) error
	// DeleteExpired removes codes that expired before the cutoff and reports how many.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RosterRepository is the admins' member roster.
type RosterRepository interface {
	Add(ctx context.Context, e *domain.RosterEntry) error
	List(ctx context.Context, limit int) ([]domain.RosterEntry, error)
}

// PaymentMethodRepository is the manual payment-channel directory.
type PaymentMethodRepository interface {
	Upsert(ctx context.Context, provider, details string) (*domain.PaymentMethod, error)
	List(ctx context.Context) ([]domain.PaymentMethod, error)
}

// Store groups the record store repositories of one backend.
type Store struct {
	Members       MemberRepository
	Payments      PaymentRepository
	Verifications VerificationRepository
}
