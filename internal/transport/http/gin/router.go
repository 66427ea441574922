package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
	"github.com/kirinyoku/seatbook/internal/service"
	"github.com/kirinyoku/seatbook/internal/service/auth"
	"github.com/kirinyoku/seatbook/internal/service/booking"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const idemLockTTL = 30 * time.Second

// NewRouter wires the HTTP API. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/signup", handleSignup(svcs))
	r.POST("/auth/login", handleLogin(svcs))

	authed := r.Group("/", AuthMiddleware(svcs.Auth))
	{
		authed.GET("/auth/me", handleMe(svcs))
		authed.GET("/seats", handleSeats(svcs))
		authed.POST("/bookings", handleBook(svcs, idem))
		authed.GET("/bookings/mine", handleMyBookings(svcs))
		authed.POST("/bookings/reset", handleReset(svcs))
	}

	return r
}

// @Summary  Sign up
// @Param    req body  SignupRequest true "payload"
// @Success  201 {object} SignupResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "user already exists"
// @Router   /auth/signup [post]
func handleSignup(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := svcs.Auth.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, SignupResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}
}

// @Summary  Log in
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} auth.Token
// @Failure  401 {object} ErrorResponse
// @Router   /auth/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tok, err := svcs.Auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, tok)
	}
}

// @Summary  Current user
// @Security BearerAuth
// @Success  200 {object} domain.User
// @Failure  401 {object} ErrorResponse
// @Router   /auth/me [get]
func handleMe(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svcs.Auth.Me(c.Request.Context(), callerID(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, u)
	}
}

// @Summary  Seat map and availability
// @Security BearerAuth
// @Success  200 {object} domain.Availability
// @Success  304 "not modified"
// @Router   /seats [get]
func handleSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		av, err := svcs.Booking.Availability(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithETag(c, http.StatusOK, av, "no-cache")
	}
}

// @Summary  Book seats (idempotent with Idempotency-Key)
// @Security BearerAuth
// @Param    req body  BookRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} BookResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not enough seats / concurrent booking / key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleBook(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request, provide the number of seats to book")
			return
		}

		ctx := c.Request.Context()
		userID := callerID(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(userID, idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		b, err := svcs.Booking.Book(ctx, userID, req.Seats)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := BookResponse{Message: "Seats booked successfully", Booking: *b}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, payload)
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Bookings of the current user
// @Security BearerAuth
// @Success  200 {array} domain.Booking
// @Router   /bookings/mine [get]
func handleMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := svcs.Booking.UserBookings(c.Request.Context(), callerID(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Reset all bookings
// @Security BearerAuth
// @Success  200 {object} ResetResponse
// @Failure  403 {object} ErrorResponse
// @Router   /bookings/reset [post]
func handleReset(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svcs.Booking.Reset(c.Request.Context(), booking.Caller{
			UserID: callerID(c),
			Role:   callerRole(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ResetResponse{Message: "Seats reset successfully.", Removed: n})
	}
}

// --- Helpers ---

func replay(c *gin.Context, idemKey string, payload []byte) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", payload)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl booking.RateLimitedError

	switch {
	// auth service
	case errors.Is(err, auth.ErrInvalidInput):
		badRequest(c, auth.ErrInvalidInput.Error())
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "user not authenticated"})
	// booking service
	case errors.Is(err, booking.ErrInvalidSeatCount):
		badRequest(c, "you can book between 1 and 7 seats at a time")
	case errors.Is(err, booking.ErrInsufficientSeats):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "not enough seats available"})
	case errors.Is(err, booking.ErrConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seats were taken by another booking, try again"})
	case errors.Is(err, booking.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only admins can reset bookings"})
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many booking attempts"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
