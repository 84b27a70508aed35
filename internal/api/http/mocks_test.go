package http_test

import (
	"context"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/security"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockMembershipService struct {
	mock.Mock
}

func (m *MockMembershipService) CreatePending(ctx context.Context, req service.CreateMemberRequest) (*domain.Member, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}
func (m *MockMembershipService) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*domain.Payment, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.String(1), args.Error(2)
}
func (m *MockPaymentService) GetStatus(ctx context.Context, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentService) ListPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleProviderCallback(ctx context.Context, cb service.ProviderCallback) (*service.CallbackResult, error) {
	args := m.Called(ctx, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CallbackResult), args.Error(1)
}
func (m *MockWebhookService) HandleChatUpdate(ctx context.Context, u service.ChatUpdate) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Request(ctx context.Context, telegram string) error {
	return m.Called(ctx, telegram).Error(0)
}
func (m *MockVerificationService) Verify(ctx context.Context, telegram, code string, enroll *domain.RosterEntry) error {
	return m.Called(ctx, telegram, code, enroll).Error(0)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, password string) (string, time.Time, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

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
