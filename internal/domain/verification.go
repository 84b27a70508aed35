package domain

import "time"

type Verification struct {
	ID         string     `json:"id"`
	Telegram   string     `json:"telegram"`
	CodeHash   string     `json:"code_hash"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (v *Verification) Usable(now time.Time) bool {
	return v.ConsumedAt == nil && now.Before(v.ExpiresAt)
}
