package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

type membershipService struct {
	memberRepo repository.MemberRepository
}

func NewMembershipService(memberRepo repository.MemberRepository) MembershipService {
	return &membershipService{memberRepo: memberRepo}
}

// CreatePending registers a membership under a sponsor's free slot. A slot is
// taken when the sponsor already has a child there or a pending or active
// membership claims it.
func (s *membershipService) CreatePending(ctx context.Context, req CreateMemberRequest) (*domain.Member, error) {
	logger.EnterMethod("MembershipService.CreatePending", "sponsorID", req.SponsorID, "position", req.Position)

	pos, err := domain.ParsePosition(req.Position)
	if err != nil {
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}
	sponsorID := strings.TrimSpace(req.SponsorID)
	if sponsorID == "" {
		err := fmt.Errorf("%w: sponsorId is required", domain.ErrInvalidInput)
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}

	sponsor, err := s.memberRepo.GetByID(ctx, sponsorID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("%w: %s", domain.ErrSponsorNotFound, sponsorID)
	}
	if err != nil {
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}

	if child := sponsor.ChildID(pos); child != "" {
		err := fmt.Errorf("%w: %s slot of sponsor %s holds %s", domain.ErrSlotConflict, pos, sponsorID, child)
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}
	open, err := s.memberRepo.FindOpenBySponsorAndPosition(ctx, sponsorID, pos)
	if err != nil {
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}
	if open != nil {
		err := fmt.Errorf("%w: %s slot of sponsor %s claimed by %s", domain.ErrSlotConflict, pos, sponsorID, open.ID)
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}

	m := &domain.Member{
		SponsorID: sponsorID,
		Position:  pos,
		Name:      strings.TrimSpace(req.Name),
		Username:  strings.TrimSpace(req.Username),
		Phone:     strings.TrimSpace(req.Phone),
		Status:    domain.MemberStatusPending,
		Level:     sponsor.Level + 1,
	}
	// The store's slot index catches a concurrent claim between the check and the insert.
	if err := s.memberRepo.CreatePending(ctx, m); err != nil {
		logger.ExitMethodWithError("MembershipService.CreatePending", err)
		return nil, err
	}

	logger.ExitMethod("MembershipService.CreatePending", "memberID", m.ID, "level", m.Level)
	return m, nil
}

func (s *membershipService) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	return s.memberRepo.GetByID(ctx, id)
}
