// Package allocator picks concrete seat numbers for a booking request.
//
// Allocation is a pure function of the layout, the requested count and a
// snapshot of booked seats. Callers own the snapshot and the commit.
package allocator

import (
	"errors"
	"fmt"

	"github.com/kirinyoku/seatbook/internal/domain"
)

var (
	ErrInvalidRequest    = errors.New("invalid seat count")
	ErrInsufficientSeats = errors.New("not enough seats available")
)

// Allocate returns requested seat numbers, ascending, none of them in booked.
//
// The first row (in layout order) with at least requested free seats serves the
// whole request. When no single row can, free seats are taken in ascending order
// across rows. If the layout does not have requested free seats in total,
// ErrInsufficientSeats is returned and no seats are assigned.
func Allocate(layout domain.Layout, requested int, booked domain.BookedSet) ([]int, error) {
	const op = "allocator.Allocate"

	if requested < 1 || requested > domain.MaxSeatsPerBooking {
		return nil, fmt.Errorf("%s: %w: got %d, want 1..%d", op, ErrInvalidRequest, requested, domain.MaxSeatsPerBooking)
	}

	if seats, ok := fromSingleRow(layout, requested, booked); ok {
		return seats, nil
	}

	seats := make([]int, 0, requested)
	for s := 1; s <= layout.Total() && len(seats) < requested; s++ {
		if !booked.Has(s) {
			seats = append(seats, s)
		}
	}

	if len(seats) < requested {
		return nil, fmt.Errorf("%s: %w: requested %d, free %d", op, ErrInsufficientSeats, requested, len(seats))
	}

	return seats, nil
}

func fromSingleRow(layout domain.Layout, requested int, booked domain.BookedSet) ([]int, bool) {
	for i := 0; i < layout.Rows(); i++ {
		first, last := layout.RowBounds(i)

		free := make([]int, 0, last-first+1)
		for s := first; s <= last; s++ {
			if !booked.Has(s) {
				free = append(free, s)
			}
		}

		if len(free) >= requested {
			return free[:requested], true
		}
	}

	return nil, false
}
