package domain

import "time"

// RosterEntry is one row of the member roster kept for the admins outside
// the referral tree: who paid, how to reach them and whether their handle was
// verified.
type RosterEntry struct {
	ID       string    `json:"id"`
	OrderID  string    `json:"orderId"`
	Amount   float64   `json:"amount"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Date     time.Time `json:"date"`
	Verified bool      `json:"verified"`
}
