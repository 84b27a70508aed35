package service_test

import (
	"context"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/notify"
	"sponsortree-backend/internal/security"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) CreatePending(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}
func (m *MockMemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) FindPendingBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	args := m.Called(ctx, sponsorID, pos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) FindOpenBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	args := m.Called(ctx, sponsorID, pos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) FindPendingByChatIdentity(ctx context.Context, chatID string) (*domain.Member, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) SetStatus(ctx context.Context, id string, status domain.MemberStatus) (*domain.Member, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Member, error) {
	args := m.Called(ctx, id, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMemberRepo) AttachChild(ctx context.Context, sponsorID string, pos domain.Position, childID string) (*domain.Member, error) {
	args := m.Called(ctx, sponsorID, pos, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) SetStatus(ctx context.Context, id string, status domain.PaymentStatus, txnID string) (*domain.Payment, error) {
	args := m.Called(ctx, id, status, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Payment, error) {
	args := m.Called(ctx, id, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) LinkMembership(ctx context.Context, id, memberID string) (*domain.Payment, error) {
	args := m.Called(ctx, id, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) SetProviderStatus(ctx context.Context, id, providerStatus, txnID string) (*domain.Payment, error) {
	args := m.Called(ctx, id, providerStatus, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) List(ctx context.Context, limit int) ([]domain.Payment, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ListByStatusBefore(ctx context.Context, status domain.PaymentStatus, before time.Time, limit int) ([]domain.Payment, error) {
	args := m.Called(ctx, status, before, limit)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// MockVerificationRepo
type MockVerificationRepo struct {
	mock.Mock
}

func (m *MockVerificationRepo) Create(ctx context.Context, v *domain.Verification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}
func (m *MockVerificationRepo) ListUsable(ctx context.Context, telegram string) ([]domain.Verification, error) {
	args := m.Called(ctx, telegram)
	return args.Get(0).([]domain.Verification), args.Error(1)
}
func (m *MockVerificationRepo) Consume(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockVerificationRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentMethodRepo
type MockPaymentMethodRepo struct {
	mock.Mock
}

func (m *MockPaymentMethodRepo) Upsert(ctx context.Context, provider, details string) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, provider, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}
func (m *MockPaymentMethodRepo) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.PaymentMethod), args.Error(1)
}

// MockNotifier records every call; all methods return nothing.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, chat, text string, buttons ...notify.Button) {
	m.Called(ctx, chat, text, buttons)
}
func (m *MockNotifier) NotifyAdmins(ctx context.Context, text string, buttons ...notify.Button) {
	m.Called(ctx, text, buttons)
}
func (m *MockNotifier) NotifyPrimaryAdmin(ctx context.Context, text string) {
	m.Called(ctx, text)
}
func (m *MockNotifier) Acknowledge(ctx context.Context, interactionID, text string) {
	m.Called(ctx, interactionID, text)
}

type MockRosterRepo struct {
	mock.Mock
}

func (m *MockRosterRepo) Add(ctx context.Context, e *domain.RosterEntry) error {
	return m.Called(ctx, e).Error(0)
}
func (m *MockRosterRepo) List(ctx context.Context, limit int) ([]domain.RosterEntry, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.RosterEntry), args.Error(1)
}

// newQuietNotifier accepts any notification.
func newQuietNotifier() *MockNotifier {
	n := new(MockNotifier)
	n.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	n.On("NotifyAdmins", mock.Anything, mock.Anything, mock.Anything).Return()
	n.On("NotifyPrimaryAdmin", mock.Anything, mock.Anything).Return()
	n.On("Acknowledge", mock.Anything, mock.Anything, mock.Anything).Return()
	return n
}

// MockApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) Decide(ctx context.Context, d service.Decision) (*service.DecisionResult, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DecisionResult), args.Error(1)
}

// MockAdminCommandService
type MockAdminCommandService struct {
	mock.Mock
}

func (m *MockAdminCommandService) Handle(ctx context.Context, msg service.ChatMessage) (string, bool) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Bool(1)
}

// MockTokenManager
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAdminToken() (string, time.Time, error) {
	args := m.Called()
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *MockTokenManager) ValidateToken(tokenString string) (*security.AdminClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.AdminClaims), args.Error(1)
}
