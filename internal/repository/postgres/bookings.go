package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatbook/internal/domain"
)

type BookingRepo struct {
	store *Store
	pool  *pgxpool.Pool
	db    DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// ListBookedSeats returns the union of seats across all bookings.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//
// Returns:
//   - []int: booked seat numbers in ascending order.
//   - error: if the query fails.
func (r *BookingRepo) ListBookedSeats(ctx context.Context) ([]int, error) {
	const op = "postgres.BookingRepo.ListBookedSeats"

	rows, err := r.handle().Query(ctx, `SELECT seat_no FROM booking_seats ORDER BY seat_no`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	seats, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return seats, nil
}

// CommitBooking stores a booking for userID holding seatIDs.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - userID: owner of the booking.
//   - seatIDs: seats to book.
//
// Returns:
//   - *domain.Booking: the stored booking.
//   - error: repository.ErrConflict if any seat is already booked or the
//     transaction lost a serialization race.
func (r *BookingRepo) CommitBooking(ctx context.Context, userID int64, seatIDs []int) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.CommitBooking"

	if r.db != nil {
		b, err := r.commitCore(ctx, userID, seatIDs)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return b, nil
	}

	var b *domain.Booking
	err := r.store.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		var err error
		b, err = r.With(tx).commitCore(ctx, userID, seatIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

// ResetAll deletes every booking and returns how many were removed.
func (r *BookingRepo) ResetAll(ctx context.Context) (int64, error) {
	const op = "postgres.BookingRepo.ResetAll"

	tag, err := r.handle().Exec(ctx, `DELETE FROM bookings`)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// ListUserBookings returns the bookings owned by userID, oldest first.
func (r *BookingRepo) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListUserBookings"

	rows, err := r.handle().Query(ctx,
		`SELECT id, user_id, seat_ids, created_at
		 FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.SeatIDs, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *BookingRepo) commitCore(
	ctx context.Context,
	userID int64,
	seatIDs []int,
) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.commitCore"

	db := r.handle()

	seats := slices.Clone(seatIDs)
	slices.Sort(seats)

	b := &domain.Booking{
		ID:      uuid.New(),
		UserID:  userID,
		SeatIDs: seats,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(id, user_id, seat_ids)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		b.ID, b.UserID, b.SeatIDs,
	).Scan(&b.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(
			`INSERT INTO booking_seats(seat_no, booking_id)
			 VALUES ($1, $2)`,
			s, b.ID,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}
