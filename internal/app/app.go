package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/seatbook/internal/config"
	"github.com/kirinyoku/seatbook/internal/credentials"
	"github.com/kirinyoku/seatbook/internal/postgres"
	"github.com/kirinyoku/seatbook/internal/redis"
	"github.com/kirinyoku/seatbook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/seatbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
	"github.com/kirinyoku/seatbook/internal/service"
	"github.com/kirinyoku/seatbook/internal/service/auth"
	"github.com/kirinyoku/seatbook/internal/service/booking"
	httpgin "github.com/kirinyoku/seatbook/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	idempotencyTTL  = 2 * time.Hour
	rateLimitWindow = time.Minute
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{cfg: cfg, logger: logger}

	deps := service.Deps{
		Tokens: credentials.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL),
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, bookings are lost on restart")
		deps.Bookings = memory.NewBookingRepo()
		deps.Users = memory.NewUserRepo()
	default:
		pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
		if err != nil {
			return nil, fmt.Errorf("%s: failed to initialize postgres: %w", op, err)
		}
		a.closers = append(a.closers, pool.Close)

		store := postgresrepo.NewStore(pool)
		if cfg.Postgres.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				a.close()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		deps.Bookings = store.Bookings()
		deps.Users = store.Users()
	}

	var idem *redisrepo.IdempotencyStore

	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: failed to initialize redis: %w", op, err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		deps.Cache = redisrepo.New(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, idempotencyTTL)
		if cfg.Booking.RateLimit > 0 {
			deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.Booking.RateLimit, rateLimitWindow)
		}
	} else {
		logger.Warn("REDIS_ADDR is empty, rate limiting and idempotency keys are disabled")
	}

	services := service.NewServices(deps, logger, service.Config{
		Booking: booking.Config{
			MaxAttempts:        cfg.Booking.MaxAttempts,
			ResetRequiresAdmin: cfg.Booking.ResetRequiresAdmin,
		},
		Auth: auth.Config{
			BcryptCost: cfg.Auth.BcryptCost,
		},
	})

	router := httpgin.NewRouter(services, idem, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
