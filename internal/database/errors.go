package database

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownBusiness = errors.New("unknown business")
	ErrUnknownService  = errors.New("unknown service")
	ErrSlotTaken       = errors.New("slot is no longer free")
	ErrVersionMismatch = errors.New("booking was modified concurrently")
	ErrPastDate        = errors.New("date is in the past")
	ErrDateTooFar      = errors.New("date is beyond the booking horizon")
	ErrInvalidStatus   = errors.New("invalid booking status")
)
