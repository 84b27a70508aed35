package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/notify"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMaintenanceService_RemindPendingApprovals(t *testing.T) {
	ctx := context.Background()

	t.Run("RemindsEachStalePayment", func(t *testing.T) {
		payments := new(MockPaymentRepo)
		notifier := newQuietNotifier()
		svc := service.NewMaintenanceService(payments, new(MockVerificationRepo), notifier)

		stale := []domain.Payment{
			{ID: "p1", OrderID: "ord-1", Amount: 10, Status: domain.PaymentStatusAwaitingAdmin, CreatedAt: time.Now().Add(-3 * time.Hour)},
			{ID: "p2", OrderID: "ord-2", Amount: 20, Status: domain.PaymentStatusAwaitingAdmin, CreatedAt: time.Now().Add(-5 * time.Hour)},
		}
		payments.On("ListByStatusBefore", ctx, domain.PaymentStatusAwaitingAdmin, mock.AnythingOfType("time.Time"), 50).Return(stale, nil)

		n, err := svc.RemindPendingApprovals(ctx, 2*time.Hour)
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		notifier.AssertNumberOfCalls(t, "NotifyAdmins", 2)
		notifier.AssertCalled(t, "NotifyAdmins", ctx,
			mock.MatchedBy(func(text string) bool { return strings.Contains(text, "ord-1") }),
			mock.MatchedBy(func(buttons []notify.Button) bool {
				return len(buttons) == 2 && buttons[0].Data == "approve_pay:p1" && buttons[1].Data == "reject_pay:p1"
			}))
	})

	t.Run("WaitCountsFromStatusChange", func(t *testing.T) {
		payments := new(MockPaymentRepo)
		notifier := newQuietNotifier()
		svc := service.NewMaintenanceService(payments, new(MockVerificationRepo), notifier)

		old := []domain.Payment{{
			ID: "p3", OrderID: "ord-3", Amount: 30, Status: domain.PaymentStatusAwaitingAdmin,
			CreatedAt: time.Now().Add(-30 * 24 * time.Hour), StatusChangedAt: time.Now().Add(-3 * time.Hour),
		}}
		payments.On("ListByStatusBefore", ctx, domain.PaymentStatusAwaitingAdmin, mock.AnythingOfType("time.Time"), 50).Return(old, nil)

		_, err := svc.RemindPendingApprovals(ctx, 2*time.Hour)
		assert.NoError(t, err)
		notifier.AssertCalled(t, "NotifyAdmins", ctx,
			mock.MatchedBy(func(text string) bool { return strings.Contains(text, "(3h0m0s)") }),
			mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		payments := new(MockPaymentRepo)
		notifier := newQuietNotifier()
		svc := service.NewMaintenanceService(payments, new(MockVerificationRepo), notifier)
		payments.On("ListByStatusBefore", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.Payment(nil), domain.ErrStoreUnavailable)

		_, err := svc.RemindPendingApprovals(ctx, time.Hour)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		notifier.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMaintenanceService_PurgeExpiredVerifications(t *testing.T) {
	ctx := context.Background()
	verifications := new(MockVerificationRepo)
	svc := service.NewMaintenanceService(new(MockPaymentRepo), verifications, newQuietNotifier())

	verifications.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(4), nil).Once()
	verifications.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("boom")).Once()

	n, err := svc.PurgeExpiredVerifications(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = svc.PurgeExpiredVerifications(ctx)
	assert.Error(t, err)
}
