package domain

import (
	"fmt"
	"strings"
	"time"
)

type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// ParsePosition accepts "left" or "right" in any case.
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionLeft:
		return PositionLeft, nil
	case PositionRight:
		return PositionRight, nil
	}
	return "", fmt.Errorf("%w: position must be left or right, got %q", ErrInvalidInput, s)
}

type MemberStatus string

const (
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusActive   MemberStatus = "active"
	MemberStatusRejected MemberStatus = "rejected"
)

// CanTransitionTo reports whether a member in status s may be moved to next.
// Re-applying the current status is allowed so replayed decisions converge.
func (s MemberStatus) CanTransitionTo(next MemberStatus) bool {
	if s == next {
		return true
	}
	return s == MemberStatusPending && (next == MemberStatusActive || next == MemberStatusRejected)
}

// AllowedPredecessors lists the statuses a member may hold for a write of s to apply.
func (s MemberStatus) AllowedPredecessors() []MemberStatus {
	if s == MemberStatusPending {
		return []MemberStatus{MemberStatusPending}
	}
	return []MemberStatus{MemberStatusPending, s}
}

// Member is one node of the binary referral tree.
type Member struct {
	ID             string       `json:"id"`
	SponsorID      string       `json:"sponsor_id"`
	Position       Position     `json:"position"`
	Name           string       `json:"name"`
	Username       string       `json:"username"`
	Phone          string       `json:"phone"`
	TelegramChatID string       `json:"telegram_chat_id"`
	Status         MemberStatus `json:"status"`
	Level          int32        `json:"level"`
	LeftChildID    string       `json:"left_child_id"`
	RightChildID   string       `json:"right_child_id"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ChildID returns the member attached at pos, or "" when the slot is free.
func (m *Member) ChildID(pos Position) string {
	if pos == PositionLeft {
		return m.LeftChildID
	}
	return m.RightChildID
}

// Placeable reports whether the member carries enough data to be attached under a sponsor.
func (m *Member) Placeable() bool {
	return m.SponsorID != "" && (m.Position == PositionLeft || m.Position == PositionRight)
}
