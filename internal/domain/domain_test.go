package domain_test

import (
	"testing"

	"sponsortree-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	p, err := domain.ParsePosition(" Left ")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionLeft, p)

	p, err = domain.ParsePosition("RIGHT")
	require.NoError(t, err)
	assert.Equal(t, domain.PositionRight, p)

	_, err = domain.ParsePosition("middle")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemberStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to domain.MemberStatus
		want     bool
	}{
		{domain.MemberStatusPending, domain.MemberStatusActive, true},
		{domain.MemberStatusPending, domain.MemberStatusRejected, true},
		{domain.MemberStatusActive, domain.MemberStatusActive, true},
		{domain.MemberStatusActive, domain.MemberStatusRejected, false},
		{domain.MemberStatusRejected, domain.MemberStatusActive, false},
		{domain.MemberStatusActive, domain.MemberStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, domain.PaymentStatusPending.CanTransitionTo(domain.PaymentStatusAwaitingAdmin))
	assert.True(t, domain.PaymentStatusAwaitingAdmin.CanTransitionTo(domain.PaymentStatusApproved))
	assert.True(t, domain.PaymentStatusApproved.CanTransitionTo(domain.PaymentStatusApproved))
	assert.True(t, domain.PaymentStatusPending.CanTransitionTo(domain.PaymentStatusFailed))

	assert.False(t, domain.PaymentStatusAwaitingAdmin.CanTransitionTo(domain.PaymentStatusFailed))
	assert.False(t, domain.PaymentStatusApproved.CanTransitionTo(domain.PaymentStatusRejected))
	assert.False(t, domain.PaymentStatusApproved.CanTransitionTo(domain.PaymentStatusAwaitingAdmin))
	assert.False(t, domain.PaymentStatusFailed.CanTransitionTo(domain.PaymentStatusApproved))

	assert.True(t, domain.PaymentStatusApprovedWithoutMember.IsTerminal())
	assert.False(t, domain.PaymentStatusAwaitingAdmin.IsTerminal())
}

func TestPayment_MemberIDHint(t *testing.T) {
	assert.Equal(t, "m-1", (&domain.Payment{Notes: `{"memberId":"m-1"}`}).MemberIDHint())
	assert.Equal(t, "42", (&domain.Payment{Notes: `{"member_id":42}`}).MemberIDHint())
	assert.Equal(t, "", (&domain.Payment{Notes: `paid in cash`}).MemberIDHint())
	assert.Equal(t, "", (&domain.Payment{Notes: `{"plan":"gold"}`}).MemberIDHint())
	assert.Equal(t, "", (&domain.Payment{}).MemberIDHint())
}

func TestSameAmount(t *testing.T) {
	assert.True(t, domain.SameAmount(10.005, 10.01))
	assert.True(t, domain.SameAmount(1500, 1500.00))
	assert.True(t, domain.SameAmount(0.1+0.2, 0.3))
	assert.False(t, domain.SameAmount(10.004, 10.01))
	assert.False(t, domain.SameAmount(99, 1500))
}

func TestParseAction(t *testing.T) {
	a, ok := domain.ParseAction("approve_pay:17")
	require.True(t, ok)
	assert.Equal(t, domain.ActionApprovePayment, a.Kind)
	assert.Equal(t, "17", a.Argument)
	assert.Equal(t, "approve_pay:17", a.String())

	_, ok = domain.ParseAction("noop")
	assert.False(t, ok)
	_, ok = domain.ParseAction("reject_pay:")
	assert.False(t, ok)
}

func TestParseJoinCode(t *testing.T) {
	code, err := domain.ParseJoinCode("join:S1:LEFT:INV:2025:7")
	require.NoError(t, err)
	assert.Equal(t, "S1", code.SponsorID)
	assert.Equal(t, domain.PositionLeft, code.Position)
	assert.Equal(t, "INV:2025:7", code.OrderRef)

	_, err = domain.ParseJoinCode("INV-2025-001")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = domain.ParseJoinCode("JOIN:S1:up:INV-1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = domain.ParseJoinCode("JOIN:S1:left:")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalizeProviderStatus(t *testing.T) {
	cases := map[string]string{
		"success":   domain.ProviderStatusPaid,
		"PAID":      domain.ProviderStatusPaid,
		"Completed": domain.ProviderStatusPaid,
		"failed":    domain.ProviderStatusFailed,
		"":          domain.ProviderStatusUnknown,
		"Refunded":  "refunded",
	}
	for in, want := range cases {
		assert.Equal(t, want, domain.NormalizeProviderStatus(in), in)
	}
}
