package httpgin

import "github.com/kirinyoku/seatbook/internal/domain"

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type BookRequest struct {
	// Seats is the number of seats to book, 1..7.
	Seats int `json:"seats" binding:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SignupResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type BookResponse struct {
	Message string         `json:"message"`
	Booking domain.Booking `json:"booking"`
}

type ResetResponse struct {
	Message string `json:"message"`
	Removed int64  `json:"removed"`
}
