package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrSponsorNotFound        = errors.New("sponsor not found")
	ErrSlotConflict           = errors.New("slot already filled")
	ErrDuplicateOrder         = errors.New("order already exists")
	ErrInvalidTransition      = errors.New("status transition not allowed")
	ErrMembershipHasNoSponsor = errors.New("membership has no sponsor")
	ErrStoreUnavailable       = errors.New("record store unavailable")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
)

// IsConflict reports whether err means the request collided with existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotConflict) || errors.Is(err, ErrDuplicateOrder) || errors.Is(err, ErrInvalidTransition)
}
