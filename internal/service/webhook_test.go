package service_test

import (
	"context"
	"testing"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/notify"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	members  *MockMemberRepo
	payments *MockPaymentRepo
	approval *MockApprovalService
	commands *MockAdminCommandService
	notifier *MockNotifier
	svc      service.WebhookService
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		members:  new(MockMemberRepo),
		payments: new(MockPaymentRepo),
		approval: new(MockApprovalService),
		commands: new(MockAdminCommandService),
		notifier: newQuietNotifier(),
	}
	f.svc = service.NewWebhookService(f.members, f.payments, f.approval, f.commands, f.notifier)
	return f
}

func TestWebhookService_ProviderSuccessCallback(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	pending := &domain.Payment{ID: "p1", OrderID: "INV-1", Amount: 1500, Status: domain.PaymentStatusPending}
	awaiting := &domain.Payment{ID: "p1", OrderID: "INV-1", Amount: 1500, Status: domain.PaymentStatusAwaitingAdmin, TxnID: "T1"}
	f.payments.On("GetByOrderID", ctx, "INV-1").Return(pending, nil)
	f.payments.On("SetStatus", ctx, "p1", domain.PaymentStatusAwaitingAdmin, "T1").Return(awaiting, nil)

	res, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "INV-1", Status: domain.ProviderStatusPaid, TxnID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, service.CallbackAwaitingAdmin, res.Outcome)
	assert.Equal(t, "T1", res.Payment.TxnID)

	f.notifier.AssertNumberOfCalls(t, "NotifyAdmins", 1)
	f.notifier.AssertCalled(t, "NotifyAdmins", ctx, mock.Anything, mock.MatchedBy(func(buttons []notify.Button) bool {
		return len(buttons) == 2 && buttons[0].Data == "approve_pay:p1" && buttons[1].Data == "reject_pay:p1"
	}))
}

func TestWebhookService_ProviderCallbackReplay(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	f.payments.On("GetByOrderID", ctx, "INV-1").
		Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusAwaitingAdmin}, nil)

	res, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "INV-1", Status: domain.ProviderStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, service.CallbackUnchanged, res.Outcome)
	f.payments.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_ProviderCallbackPastTarget(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	f.payments.On("GetByOrderID", ctx, "INV-1").
		Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusApproved}, nil)

	res, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "INV-1", Status: domain.ProviderStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, service.CallbackIgnored, res.Outcome)
	f.payments.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_ProviderFailedCallback(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	f.payments.On("GetByOrderID", ctx, "INV-1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusPending}, nil)
	f.payments.On("SetStatus", ctx, "p1", domain.PaymentStatusFailed, "T9").
		Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusFailed}, nil)

	res, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "INV-1", Status: domain.ProviderStatusFailed, TxnID: "T9"})
	require.NoError(t, err)
	assert.Equal(t, service.CallbackFailed, res.Outcome)
	f.notifier.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_ProviderOtherStatusRecorded(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	f.payments.On("GetByOrderID", ctx, "INV-1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusPending}, nil)
	f.payments.On("SetProviderStatus", ctx, "p1", "refunded", "").
		Return(&domain.Payment{ID: "p1", Status: domain.PaymentStatusPending, ProviderStatus: "refunded"}, nil)

	res, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "INV-1", Status: "refunded"})
	require.NoError(t, err)
	assert.Equal(t, service.CallbackRecorded, res.Outcome)
	assert.Equal(t, domain.PaymentStatusPending, res.Payment.Status)
}

func TestWebhookService_ProviderCallbackErrors(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	_, err := f.svc.HandleProviderCallback(ctx, service.ProviderCallback{Status: domain.ProviderStatusPaid})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.payments.On("GetByOrderID", ctx, "NOPE").Return(nil, domain.ErrNotFound)
	_, err = f.svc.HandleProviderCallback(ctx, service.ProviderCallback{OrderID: "NOPE", Status: domain.ProviderStatusPaid})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.payments.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_CallbackQueryDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Decision", func(t *testing.T) {
		f := newWebhookFixture()
		f.approval.On("Decide", ctx, service.Decision{
			Action:        domain.NewAction(domain.ActionApprovePayment, "p1"),
			InteractionID: "cb-1",
			AdminUserID:   "900",
			AdminUsername: "boss",
		}).Return(&service.DecisionResult{Outcome: service.OutcomeApproved}, nil)

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Callback: &service.ChatCallback{
			ID: "cb-1", Data: "approve_pay:p1", FromUserID: "900", FromUsername: "boss",
		}})
		assert.NoError(t, err)
		f.approval.AssertExpectations(t)
	})

	t.Run("MalformedData", func(t *testing.T) {
		f := newWebhookFixture()

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Callback: &service.ChatCallback{ID: "cb-2", Data: "garbage"}})
		assert.NoError(t, err)
		f.notifier.AssertCalled(t, "Acknowledge", ctx, "cb-2", "Action received.")
		f.approval.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})
}

func TestWebhookService_AccountLinking(t *testing.T) {
	ctx := context.Background()

	t.Run("OrderID", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("GetByOrderID", ctx, "INV-1").Return(&domain.Payment{ID: "p1", OrderID: "INV-1"}, nil)
		f.payments.On("SetChatIdentity", ctx, "p1", "42").Return(&domain.Payment{ID: "p1"}, nil)

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &service.ChatMessage{ChatID: "42", Text: "/start INV-1"}})
		assert.NoError(t, err)
		f.payments.AssertCalled(t, "SetChatIdentity", ctx, "p1", "42")
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("JoinCode", func(t *testing.T) {
		f := newWebhookFixture()
		code := "JOIN:S:Right:INV-2"
		f.payments.On("GetByOrderID", ctx, code).Return(nil, domain.ErrNotFound)
		f.members.On("FindPendingBySponsorAndPosition", ctx, "S", domain.PositionRight).
			Return(&domain.Member{ID: "A", SponsorID: "S", Position: domain.PositionRight}, nil)
		f.members.On("SetChatIdentity", ctx, "A", "42").Return(&domain.Member{ID: "A"}, nil)
		f.payments.On("GetByOrderID", ctx, "INV-2").Return(&domain.Payment{ID: "p2"}, nil)
		f.payments.On("SetChatIdentity", ctx, "p2", "42").Return(&domain.Payment{ID: "p2"}, nil)
		f.payments.On("LinkMembership", ctx, "p2", "A").Return(&domain.Payment{ID: "p2", MemberID: "A"}, nil)

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &service.ChatMessage{ChatID: "42", Text: "/start " + code}})
		assert.NoError(t, err)
		f.members.AssertExpectations(t)
		f.payments.AssertExpectations(t)
	})

	t.Run("Unresolvable", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.On("GetByOrderID", ctx, "hello").Return(nil, domain.ErrNotFound)

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &service.ChatMessage{ChatID: "42", Text: "/start hello"}})
		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "SetChatIdentity", mock.Anything, mock.Anything, mock.Anything)
		f.members.AssertNotCalled(t, "SetChatIdentity", mock.Anything, mock.Anything, mock.Anything)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("Welcome", func(t *testing.T) {
		f := newWebhookFixture()

		err := f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &service.ChatMessage{ChatID: "42", Text: "/start"}})
		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
	})
}

func TestWebhookService_AdminCommandsAndPlainText(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture()

	msg := service.ChatMessage{ChatID: "42", FromUserID: "900", Text: "/getpayments"}
	f.commands.On("Handle", ctx, msg).Return("No payments configured yet.", true)

	assert.NoError(t, f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &msg}))
	f.notifier.AssertCalled(t, "Notify", ctx, "42", "No payments configured yet.", mock.Anything)

	assert.NoError(t, f.svc.HandleChatUpdate(ctx, service.ChatUpdate{Message: &service.ChatMessage{ChatID: "42", Text: "hi there"}}))
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}
