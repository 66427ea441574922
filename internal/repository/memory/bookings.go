// Package memory holds process-local stores used for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/kirinyoku/seatbook/internal/repository"
)

// BookingRepo keeps bookings in memory. A single mutex serializes every
// mutation, so the seat uniqueness check and the write are atomic.
type BookingRepo struct {
	mu       sync.RWMutex
	bookings []domain.Booking
	owner    map[int]uuid.UUID
	now      func() time.Time
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{
		owner: make(map[int]uuid.UUID),
		now:   time.Now,
	}
}

func (r *BookingRepo) ListBookedSeats(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seats := make([]int, 0, len(r.owner))
	for s := range r.owner {
		seats = append(seats, s)
	}
	slices.Sort(seats)

	return seats, nil
}

func (r *BookingRepo) CommitBooking(ctx context.Context, userID int64, seatIDs []int) (*domain.Booking, error) {
	const op = "memory.BookingRepo.CommitBooking"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seats := slices.Clone(seatIDs)
	slices.Sort(seats)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range seats {
		if _, taken := r.owner[s]; taken || (i > 0 && seats[i-1] == s) {
			return nil, fmt.Errorf("%s: seat %d:%w", op, s, repository.ErrConflict)
		}
	}

	b := domain.Booking{
		ID:        uuid.New(),
		UserID:    userID,
		SeatIDs:   seats,
		CreatedAt: r.now().UTC(),
	}
	for _, s := range seats {
		r.owner[s] = b.ID
	}
	r.bookings = append(r.bookings, b)

	out := b
	out.SeatIDs = slices.Clone(b.SeatIDs)

	return &out, nil
}

func (r *BookingRepo) ResetAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.bookings))
	r.bookings = nil
	clear(r.owner)

	return n, nil
}

func (r *BookingRepo) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Booking{}
	for _, b := range r.bookings {
		if b.UserID == userID {
			cp := b
			cp.SeatIDs = slices.Clone(b.SeatIDs)
			out = append(out, cp)
		}
	}

	return out, nil
}
