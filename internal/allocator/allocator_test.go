package allocator_test

import (
	"math/rand"
	"testing"

	"github.com/kirinyoku/seatbook/internal/allocator"
	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, s)
	}
	return out
}

// leaveFree books every seat of the default layout except the given ones.
func leaveFree(free ...int) domain.BookedSet {
	keep := domain.NewBookedSet(free...)
	booked := domain.BookedSet{}
	for s := 1; s <= domain.TotalSeats; s++ {
		if !keep.Has(s) {
			booked[s] = struct{}{}
		}
	}
	return booked
}

func TestAllocate(t *testing.T) {
	layout := domain.DefaultLayout

	tests := []struct {
		name      string
		requested int
		booked    domain.BookedSet
		want      []int
		wantErr   error
	}{
		{
			name:      "empty venue uses first row",
			requested: 5,
			booked:    domain.NewBookedSet(),
			want:      []int{1, 2, 3, 4, 5},
		},
		{
			name:      "full row request",
			requested: 7,
			booked:    nil,
			want:      seatRange(1, 7),
		},
		{
			name:      "first row too small moves to next row",
			requested: 3,
			booked:    domain.NewBookedSet(1, 2, 3, 4, 5, 6),
			want:      []int{8, 9, 10},
		},
		{
			name:      "row with gaps still preferred when it has enough free seats",
			requested: 3,
			booked:    domain.NewBookedSet(2, 4, 6),
			want:      []int{1, 3, 5},
		},
		{
			name:      "last short row serves a small request",
			requested: 3,
			booked:    domain.NewBookedSet(seatRange(1, 77)...),
			want:      []int{78, 79, 80},
		},
		{
			name:      "spillover across rows when no row suffices",
			requested: 3,
			booked:    leaveFree(7, 8, 30, 80),
			want:      []int{7, 8, 30},
		},
		{
			name:      "spillover takes every remaining seat",
			requested: 4,
			booked:    leaveFree(7, 8, 30, 80),
			want:      []int{7, 8, 30, 80},
		},
		{
			name:      "not enough seats anywhere",
			requested: 5,
			booked:    leaveFree(7, 8, 30, 80),
			wantErr:   allocator.ErrInsufficientSeats,
		},
		{
			name:      "fully booked venue",
			requested: 1,
			booked:    domain.NewBookedSet(seatRange(1, 80)...),
			wantErr:   allocator.ErrInsufficientSeats,
		},
		{
			name:      "zero seats",
			requested: 0,
			wantErr:   allocator.ErrInvalidRequest,
		},
		{
			name:      "negative seats",
			requested: -2,
			wantErr:   allocator.ErrInvalidRequest,
		},
		{
			name:      "above per-booking cap",
			requested: 8,
			wantErr:   allocator.ErrInvalidRequest,
		},
		{
			name:      "booked seats outside the layout are ignored",
			requested: 2,
			booked:    domain.NewBookedSet(0, 81, 1000),
			want:      []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := allocator.Allocate(layout, tt.requested, tt.booked)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllocate_CustomLayout(t *testing.T) {
	layout := domain.MustLayout(2, 2, 4)

	got, err := allocator.Allocate(layout, 3, domain.NewBookedSet(5))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7, 8}, got)

	got, err = allocator.Allocate(layout, 3, domain.NewBookedSet(2, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4}, got, "no row has three free seats, so seats spill over")
}

func TestAllocate_Properties(t *testing.T) {
	layout := domain.DefaultLayout
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		booked := domain.BookedSet{}
		density := rng.Float64()
		for s := 1; s <= layout.Total(); s++ {
			if rng.Float64() < density {
				booked[s] = struct{}{}
			}
		}
		requested := 1 + rng.Intn(domain.MaxSeatsPerBooking)
		free := layout.Total() - len(booked)

		got, err := allocator.Allocate(layout, requested, booked)

		again, againErr := allocator.Allocate(layout, requested, booked)
		require.Equal(t, got, again, "allocation must be deterministic")
		require.Equal(t, err, againErr)

		if free < requested {
			require.ErrorIs(t, err, allocator.ErrInsufficientSeats)
			continue
		}
		require.NoError(t, err)
		require.Len(t, got, requested)

		for j, s := range got {
			require.True(t, layout.Contains(s))
			require.False(t, booked.Has(s), "seat %d is already booked", s)
			if j > 0 {
				require.Greater(t, s, got[j-1], "seats must be ascending")
			}
		}

		firstRow := -1
		for r := 0; r < layout.Rows(); r++ {
			first, last := layout.RowBounds(r)
			n := 0
			for s := first; s <= last; s++ {
				if !booked.Has(s) {
					n++
				}
			}
			if n >= requested {
				firstRow = r
				break
			}
		}

		if firstRow >= 0 {
			for _, s := range got {
				row, ok := layout.RowOf(s)
				require.True(t, ok)
				require.Equal(t, firstRow, row, "seats must come from the first row with capacity")
			}
		} else {
			want := layout.Available(booked)[:requested]
			require.Equal(t, want, got, "spillover takes the lowest free seats")
		}
	}
}
