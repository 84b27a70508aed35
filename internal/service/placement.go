package service

import (
	"context"
	"fmt"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

type placementService struct {
	memberRepo repository.MemberRepository
}

func NewPlacementService(memberRepo repository.MemberRepository) PlacementService {
	return &placementService{memberRepo: memberRepo}
}

// Place attaches the membership under its sponsor. Slot exclusivity was
// checked when the membership was created, so the slot is not re-read here;
// the store write itself refuses to replace a different child.
func (s *placementService) Place(ctx context.Context, membershipID string) (*PlacementResult, error) {
	m, err := s.memberRepo.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if !m.Placeable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrMembershipHasNoSponsor, membershipID)
	}

	if _, err := s.memberRepo.AttachChild(ctx, m.SponsorID, m.Position, m.ID); err != nil {
		return nil, err
	}

	logger.Info("Membership placed", "memberID", m.ID, "sponsorID", m.SponsorID, "position", m.Position)
	return &PlacementResult{SponsorID: m.SponsorID, Position: m.Position, MembershipID: m.ID}, nil
}
