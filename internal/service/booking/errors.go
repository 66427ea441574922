package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSeatCount  = errors.New("seat count must be between 1 and 7")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrConflict          = errors.New("seats were taken by a concurrent booking")
	ErrForbidden         = errors.New("not allowed to reset bookings")
	ErrStorage           = errors.New("booking storage failure")
)

// RateLimitedError is returned when a user books too often.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
