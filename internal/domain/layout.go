package domain

import (
	"errors"
	"fmt"
)

const (
	TotalSeats         = 80
	MaxSeatsPerBooking = 7
)

var ErrInvalidLayout = errors.New("invalid layout")

// Layout partitions seats 1..Total() into consecutive rows.
type Layout struct {
	rows []int
}

// DefaultLayout is the venue: eleven rows of seven and a last row of three.
var DefaultLayout = MustLayout(7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 3)

func NewLayout(rows ...int) (Layout, error) {
	const op = "domain.NewLayout"

	if len(rows) == 0 {
		return Layout{}, fmt.Errorf("%s: %w: no rows", op, ErrInvalidLayout)
	}

	for i, n := range rows {
		if n <= 0 {
			return Layout{}, fmt.Errorf("%s: %w: row %d has %d seats", op, ErrInvalidLayout, i+1, n)
		}
	}

	cp := make([]int, len(rows))
	copy(cp, rows)

	return Layout{rows: cp}, nil
}

func MustLayout(rows ...int) Layout {
	l, err := NewLayout(rows...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Layout) Rows() int { return len(l.rows) }

func (l Layout) Total() int {
	total := 0
	for _, n := range l.rows {
		total += n
	}
	return total
}

// RowBounds returns the first and last seat numbers of the zero-based row i.
func (l Layout) RowBounds(i int) (first, last int) {
	first = 1
	for _, n := range l.rows[:i] {
		first += n
	}
	return first, first + l.rows[i] - 1
}

// RowOf returns the zero-based row index holding seat.
func (l Layout) RowOf(seat int) (int, bool) {
	if !l.Contains(seat) {
		return 0, false
	}

	last := 0
	for i, n := range l.rows {
		last += n
		if seat <= last {
			return i, true
		}
	}

	return 0, false
}

func (l Layout) Contains(seat int) bool {
	return seat >= 1 && seat <= l.Total()
}

// Available returns every seat of the layout not present in booked, ascending.
func (l Layout) Available(booked BookedSet) []int {
	out := make([]int, 0, l.Total())
	for s := 1; s <= l.Total(); s++ {
		if !booked.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Availability projects a booked set onto the layout.
func (l Layout) Availability(booked BookedSet) Availability {
	av := Availability{
		TotalSeats:     l.Total(),
		AvailableSeats: l.Available(booked),
		Rows:           make([]RowSeats, 0, len(l.rows)),
	}
	av.BookedSeats = av.TotalSeats - len(av.AvailableSeats)

	for i := range l.rows {
		first, last := l.RowBounds(i)
		row := RowSeats{Row: i + 1, Seats: make([]SeatWithStatus, 0, last-first+1)}
		for s := first; s <= last; s++ {
			st := SeatAvailable
			if booked.Has(s) {
				st = SeatBooked
			}
			row.Seats = append(row.Seats, SeatWithStatus{Number: s, Status: st})
		}
		av.Rows = append(av.Rows, row)
	}

	return av
}

// BookedSet is the union of seat numbers across all current bookings.
type BookedSet map[int]struct{}

func NewBookedSet(seats ...int) BookedSet {
	set := make(BookedSet, len(seats))
	for _, s := range seats {
		set[s] = struct{}{}
	}
	return set
}

func (b BookedSet) Has(seat int) bool {
	_, ok := b[seat]
	return ok
}
