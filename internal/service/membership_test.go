package service_test

import (
	"context"
	"testing"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMembershipService_CreatePending(t *testing.T) {
	ctx := context.Background()
	sponsor := &domain.Member{ID: "S", Status: domain.MemberStatusActive, Level: 2}

	t.Run("EmptySlot", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "S").Return(sponsor, nil)
		memberRepo.On("FindOpenBySponsorAndPosition", ctx, "S", domain.PositionLeft).Return(nil, nil)
		memberRepo.On("CreatePending", ctx, mock.AnythingOfType("*domain.Member")).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.Member).ID = "A" }).
			Return(nil)

		m, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "left", Name: "A"})
		assert.NoError(t, err)
		assert.Equal(t, "A", m.ID)
		assert.Equal(t, domain.MemberStatusPending, m.Status)
		assert.Equal(t, int32(3), m.Level)
		assert.Equal(t, domain.PositionLeft, m.Position)
		memberRepo.AssertNotCalled(t, "AttachChild", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("WithoutName", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "S").Return(sponsor, nil)
		memberRepo.On("FindOpenBySponsorAndPosition", ctx, "S", domain.PositionRight).Return(nil, nil)
		memberRepo.On("CreatePending", ctx, mock.MatchedBy(func(m *domain.Member) bool { return m.Name == "" })).Return(nil)

		m, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "right", Username: "anon"})
		assert.NoError(t, err)
		assert.Equal(t, "anon", m.Username)
	})

	t.Run("MissingSponsor", func(t *testing.T) {
		svc := service.NewMembershipService(new(MockMemberRepo))

		_, err := svc.CreatePending(ctx, service.CreateMemberRequest{Position: "left", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("SecondClaimConflicts", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "S").Return(sponsor, nil)
		memberRepo.On("FindOpenBySponsorAndPosition", ctx, "S", domain.PositionLeft).
			Return(&domain.Member{ID: "A", Status: domain.MemberStatusPending}, nil)

		m, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "LEFT", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
		assert.Nil(t, m)
		memberRepo.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
	})

	t.Run("AttachedChildConflicts", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "S").Return(&domain.Member{ID: "S", RightChildID: "R"}, nil)

		_, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "right", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
		memberRepo.AssertNotCalled(t, "FindOpenBySponsorAndPosition", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ConcurrentClaimCaughtByStore", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "S").Return(sponsor, nil)
		memberRepo.On("FindOpenBySponsorAndPosition", ctx, "S", domain.PositionRight).Return(nil, nil)
		memberRepo.On("CreatePending", ctx, mock.Anything).Return(domain.ErrSlotConflict)

		_, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "right", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	})

	t.Run("UnknownSponsor", func(t *testing.T) {
		memberRepo := new(MockMemberRepo)
		svc := service.NewMembershipService(memberRepo)

		memberRepo.On("GetByID", ctx, "X").Return(nil, domain.ErrNotFound)

		_, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "X", Position: "left", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrSponsorNotFound)
	})

	t.Run("InvalidPosition", func(t *testing.T) {
		svc := service.NewMembershipService(new(MockMemberRepo))

		_, err := svc.CreatePending(ctx, service.CreateMemberRequest{SponsorID: "S", Position: "middle", Name: "B"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
