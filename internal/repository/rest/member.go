package rest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/repository"

	"github.com/supabase-community/postgrest-go"
)

type memberRecord struct {
	ID             string    `json:"id,omitempty"`
	SponsorID      *string   `json:"sponsor_id"`
	Position       *string   `json:"position"`
	Name           *string   `json:"name"`
	Username       *string   `json:"username"`
	Phone          *string   `json:"phone"`
	TelegramChatID *string   `json:"telegram_chat_id"`
	Status         string    `json:"status"`
	Level          int32     `json:"level"`
	LeftChildID    *string   `json:"left_child_id,omitempty"`
	RightChildID   *string   `json:"right_child_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r memberRecord) toDomain() *domain.Member {
	return &domain.Member{
		ID:             r.ID,
		SponsorID:      str(r.SponsorID),
		Position:       domain.Position(str(r.Position)),
		Name:           str(r.Name),
		Username:       str(r.Username),
		Phone:          str(r.Phone),
		TelegramChatID: str(r.TelegramChatID),
		Status:         domain.MemberStatus(r.Status),
		Level:          r.Level,
		LeftChildID:    str(r.LeftChildID),
		RightChildID:   str(r.RightChildID),
		CreatedAt:      r.CreatedAt,
	}
}

type memberRepository struct {
	client *postgrest.Client
}

func NewMemberRepository(client *postgrest.Client) repository.MemberRepository {
	return &memberRepository{client: client}
}

func (r *memberRepository) CreatePending(ctx context.Context, m *domain.Member) error {
	insert := map[string]any{
		"sponsor_id":       ptr(m.SponsorID),
		"position":         ptr(string(m.Position)),
		"name":             ptr(m.Name),
		"username":         ptr(m.Username),
		"phone":            ptr(m.Phone),
		"telegram_chat_id": ptr(m.TelegramChatID),
		"status":           domain.MemberStatusPending,
		"level":            m.Level,
	}
	var rows []memberRecord
	_, err := r.client.From(tableMembers).
		Insert(insert, false, "", returnRepresentation, "").
		ExecuteTo(&rows)
	switch {
	case hasCode(err, "23505"):
		return fmt.Errorf("%w: %s slot of sponsor %s", domain.ErrSlotConflict, m.Position, m.SponsorID)
	case hasCode(err, "23503"), hasCode(err, "22P02"):
		return fmt.Errorf("%w: %s", domain.ErrSponsorNotFound, m.SponsorID)
	case err != nil:
		return translate(err)
	case len(rows) == 0:
		return fmt.Errorf("%w: insert returned no row", domain.ErrStoreUnavailable)
	}
	*m = *rows[0].toDomain()
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	m, err := r.findOne(r.client.From(tableMembers).Select("*", "", false).Eq("id", id))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, id)
	}
	return m, nil
}

func (r *memberRepository) findOne(q *postgrest.FilterBuilder) (*domain.Member, error) {
	var rows []memberRecord
	if _, err := q.ExecuteTo(&rows); err != nil {
		if hasCode(err, "22P02") {
			return nil, nil
		}
		return nil, translate(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (r *memberRepository) FindPendingBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	return r.findOne(r.client.From(tableMembers).Select("*", "", false).
		Eq("sponsor_id", sponsorID).
		Eq("position", string(pos)).
		Eq("status", string(domain.MemberStatusPending)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(1, ""))
}

func (r *memberRepository) FindOpenBySponsorAndPosition(ctx context.Context, sponsorID string, pos domain.Position) (*domain.Member, error) {
	return r.findOne(r.client.From(tableMembers).Select("*", "", false).
		Eq("sponsor_id", sponsorID).
		Eq("position", string(pos)).
		Neq("status", string(domain.MemberStatusRejected)).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Limit(1, ""))
}

func (r *memberRepository) FindPendingByChatIdentity(ctx context.Context, chatID string) (*domain.Member, error) {
	return r.findOne(r.client.From(tableMembers).Select("*", "", false).
		Eq("telegram_chat_id", chatID).
		Eq("status", string(domain.MemberStatusPending)).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, ""))
}

func (r *memberRepository) SetStatus(ctx context.Context, id string, status domain.MemberStatus) (*domain.Member, error) {
	allowed := make([]string, 0, 2)
	for _, s := range status.AllowedPredecessors() {
		allowed = append(allowed, string(s))
	}
	m, err := r.findOne(r.client.From(tableMembers).
		Update(map[string]any{"status": status}, returnRepresentation, "").
		Eq("id", id).
		In("status", allowed))
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: member %s to %s", domain.ErrInvalidTransition, id, status)
}

func (r *memberRepository) SetChatIdentity(ctx context.Context, id, chatID string) (*domain.Member, error) {
	m, err := r.findOne(r.client.From(tableMembers).
		Update(map[string]any{"telegram_chat_id": chatID}, returnRepresentation, "").
		Eq("id", id))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: member %s", domain.ErrNotFound, id)
	}
	return m, nil
}

func (r *memberRepository) AttachChild(ctx context.Context, sponsorID string, pos domain.Position, childID string) (*domain.Member, error) {
	var column string
	switch pos {
	case domain.PositionLeft:
		column = "left_child_id"
	case domain.PositionRight:
		column = "right_child_id"
	default:
		return nil, fmt.Errorf("%w: position %q", domain.ErrInvalidInput, pos)
	}

	m, err := r.findOne(r.client.From(tableMembers).
		Update(map[string]any{column: childID}, returnRepresentation, "").
		Eq("id", sponsorID).
		Or(fmt.Sprintf("%[1]s.is.null,%[1]s.eq.%[2]s", column, childID), ""))
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	if _, err := r.GetByID(ctx, sponsorID); errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSponsorNotFound, sponsorID)
	} else if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s slot of sponsor %s", domain.ErrSlotConflict, pos, sponsorID)
}
