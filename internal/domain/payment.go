package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending               PaymentStatus = "pending"
	PaymentStatusAwaitingAdmin         PaymentStatus = "awaiting_admin"
	PaymentStatusApproved              PaymentStatus = "approved"
	PaymentStatusRejected              PaymentStatus = "rejected"
	PaymentStatusApprovedWithoutMember PaymentStatus = "approved_without_member"
	PaymentStatusFailed                PaymentStatus = "failed"
)

// IsTerminal reports whether no further status change is accepted.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusApprovedWithoutMember, PaymentStatusFailed:
		return true
	}
	return false
}

// AllowedPredecessors lists the statuses a payment may hold for a write of s to apply.
// The target itself is always included so that a repeated write is a no-op.
func (s PaymentStatus) AllowedPredecessors() []PaymentStatus {
	switch s {
	case PaymentStatusPending:
		return []PaymentStatus{PaymentStatusPending}
	case PaymentStatusAwaitingAdmin:
		return []PaymentStatus{PaymentStatusPending, PaymentStatusAwaitingAdmin}
	case PaymentStatusFailed:
		return []PaymentStatus{PaymentStatusPending, PaymentStatusFailed}
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusApprovedWithoutMember:
		return []PaymentStatus{PaymentStatusPending, PaymentStatusAwaitingAdmin, s}
	}
	return []PaymentStatus{s}
}

// CanTransitionTo reports whether a payment in status s accepts a write of next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, p := range next.AllowedPredecessors() {
		if p == s {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses for store filters.
func StatusStrings(statuses []PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Payment is one attempted funds transfer tied to one order.
type Payment struct {
	ID              string        `json:"id"`
	OrderID         string        `json:"order_id"`
	Amount          float64       `json:"amount"`
	Gateway         string        `json:"gateway"`
	Status          PaymentStatus `json:"status"`
	TelegramChatID  string        `json:"telegram_chat_id"`
	MemberID        string        `json:"member_id"`
	TxnID           string        `json:"txn_id"`
	Notes           string        `json:"notes"`
	ReturnURL       string        `json:"return_url"`
	ProviderStatus  string        `json:"provider_status"`
	CreatedAt       time.Time     `json:"created_at"`
	StatusChangedAt time.Time     `json:"status_changed_at"`
}

// SameAmount compares two amounts at cent precision, the way the store keeps them.
func SameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// MemberIDHint extracts a membership id embedded in the payment notes as JSON
// ({"memberId": ...} or {"member_id": ...}). Non-JSON notes yield "".
func (p *Payment) MemberIDHint() string {
	notes := strings.TrimSpace(p.Notes)
	if notes == "" || notes[0] != '{' {
		return ""
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(notes), &meta); err != nil {
		return ""
	}
	for _, key := range []string{"memberId", "member_id"} {
		switch v := meta[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Normalized provider callback statuses. Anything else is passed through.
const (
	ProviderStatusPaid    = "paid"
	ProviderStatusFailed  = "failed"
	ProviderStatusUnknown = "unknown"
)

// NormalizeProviderStatus folds the provider vocabulary onto paid/failed.
func NormalizeProviderStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "success", "paid", "completed":
		return ProviderStatusPaid
	case "failed":
		return ProviderStatusFailed
	case "":
		return ProviderStatusUnknown
	}
	return s
}
