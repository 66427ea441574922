package service

import (
	"log/slog"

	"github.com/kirinyoku/seatbook/internal/credentials"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
	"github.com/kirinyoku/seatbook/internal/service/auth"
	"github.com/kirinyoku/seatbook/internal/service/booking"
)

type Services struct {
	Booking *booking.Service
	Auth    *auth.Service
}

type Config struct {
	Booking booking.Config
	Auth    auth.Config
}

type Deps struct {
	Bookings booking.Store
	Users    auth.UserStore
	Tokens   *credentials.TokenManager
	// Cache and Limiter are optional.
	Cache   *redisrepo.Cache
	Limiter booking.Limiter
}

func NewServices(deps Deps, logger *slog.Logger, cfg Config) *Services {
	return &Services{
		Booking: booking.New(deps.Bookings, deps.Limiter, logger, cfg.Booking),
		Auth:    auth.New(deps.Users, deps.Tokens, deps.Cache, logger, cfg.Auth),
	}
}
