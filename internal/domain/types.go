package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatBooked    SeatStatus = "booked"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Booking is immutable once committed. SeatIDs are kept in ascending order.
type Booking struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	SeatIDs   []int     `json:"seat_ids"`
	CreatedAt time.Time `json:"created_at"`
}

type SeatWithStatus struct {
	Number int        `json:"number"`
	Status SeatStatus `json:"status"`
}

type RowSeats struct {
	Row   int              `json:"row"`
	Seats []SeatWithStatus `json:"seats"`
}

type Availability struct {
	TotalSeats     int        `json:"total_seats"`
	BookedSeats    int        `json:"booked_seats"`
	AvailableSeats []int      `json:"available_seats"`
	Rows           []RowSeats `json:"rows"`
}
