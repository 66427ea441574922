package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/kirinyoku/seatbook/internal/allocator"
	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/kirinyoku/seatbook/internal/repository"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
)

// Store persists bookings. CommitBooking must reject, with
// repository.ErrConflict, any booking that contains an already booked seat,
// and the check must be atomic with the write.
type Store interface {
	ListBookedSeats(ctx context.Context) ([]int, error)
	CommitBooking(ctx context.Context, userID int64, seatIDs []int) (*domain.Booking, error)
	ResetAll(ctx context.Context) (int64, error)
	ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
}

// Limiter throttles booking attempts per user.
type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

type Config struct {
	// MaxAttempts bounds the snapshot-allocate-commit cycles per request.
	MaxAttempts int
	// ResetRequiresAdmin restricts Reset to admins. Off by default: any
	// authenticated user may reset.
	ResetRequiresAdmin bool
}

type Caller struct {
	UserID int64
	Role   domain.Role
}

type Service struct {
	store   Store
	limiter Limiter
	layout  domain.Layout
	logger  *slog.Logger
	cfg     Config
}

func New(store Store, limiter Limiter, logger *slog.Logger, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		store:   store,
		limiter: limiter,
		layout:  domain.DefaultLayout,
		logger:  logger.With("component", "booking"),
		cfg:     cfg,
	}
}

// Book reserves count seats for userID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: authenticated user making the booking.
//   - count: number of seats, 1..7.
//
// Returns:
//   - *domain.Booking: the committed booking.
//   - error: booking.ErrInvalidSeatCount if count is out of range.
//   - error: booking.ErrInsufficientSeats if the venue cannot fit the request.
//   - error: booking.ErrConflict if concurrent bookings won every attempt.
//   - error: booking.RateLimitedError if the user is throttled.
//   - error: booking.ErrStorage on store failures.
func (s *Service) Book(ctx context.Context, userID int64, count int) (*domain.Booking, error) {
	const op = "service.booking.Book"

	if count < 1 || count > domain.MaxSeatsPerBooking {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidSeatCount)
	}

	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, "user:"+strconv.FormatInt(userID, 10))
		if err != nil {
			s.logger.Warn("rate limiter unavailable", "error", err)
		} else if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		booked, err := s.store.ListBookedSeats(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w: %w", op, ErrStorage, err)
		}

		seats, err := allocator.Allocate(s.layout, count, domain.NewBookedSet(booked...))
		if err != nil {
			if errors.Is(err, allocator.ErrInsufficientSeats) {
				return nil, fmt.Errorf("%s:%w", op, ErrInsufficientSeats)
			}
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidSeatCount)
		}

		b, err := s.store.CommitBooking(ctx, userID, seats)
		if err == nil {
			s.logger.Info("booking committed",
				"booking_id", b.ID, "user_id", userID, "seats", b.SeatIDs, "attempt", attempt)
			return b, nil
		}

		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w: %w", op, ErrStorage, err)
		}

		s.logger.Warn("booking conflict, retrying with fresh snapshot",
			"user_id", userID, "seats", seats, "attempt", attempt)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil, fmt.Errorf("%s:%w", op, ErrConflict)
}

// Reset removes every booking and returns how many were removed.
//
// Returns:
//   - error: booking.ErrForbidden if resets are restricted to admins and the
//     caller is not one.
//   - error: booking.ErrStorage on store failures.
func (s *Service) Reset(ctx context.Context, caller Caller) (int64, error) {
	const op = "service.booking.Reset"

	if s.cfg.ResetRequiresAdmin && caller.Role != domain.RoleAdmin {
		return 0, fmt.Errorf("%s:%w", op, ErrForbidden)
	}

	n, err := s.store.ResetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s:%w: %w", op, ErrStorage, err)
	}

	s.logger.Info("bookings reset", "user_id", caller.UserID, "removed", n)

	return n, nil
}

// Availability returns the current seat map computed from a fresh snapshot.
func (s *Service) Availability(ctx context.Context) (*domain.Availability, error) {
	const op = "service.booking.Availability"

	booked, err := s.store.ListBookedSeats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStorage, err)
	}

	av := s.layout.Availability(domain.NewBookedSet(booked...))

	return &av, nil
}

func (s *Service) UserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const op = "service.booking.UserBookings"

	bookings, err := s.store.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrStorage, err)
	}

	return bookings, nil
}
