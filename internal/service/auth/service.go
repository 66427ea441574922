package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/seatbook/internal/credentials"
	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/kirinyoku/seatbook/internal/repository"
	redisrepo "github.com/kirinyoku/seatbook/internal/repository/redis"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Config struct {
	BcryptCost int
	ProfileTTL time.Duration
}

type Service struct {
	users  UserStore
	tokens *credentials.TokenManager
	cache  *redisrepo.Cache
	logger *slog.Logger
	cfg    Config
}

// New builds the auth service. cache may be nil.
func New(users UserStore, tokens *credentials.TokenManager, cache *redisrepo.Cache, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	if cfg.ProfileTTL <= 0 {
		cfg.ProfileTTL = 5 * time.Minute
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		users:  users,
		tokens: tokens,
		cache:  cache,
		logger: logger.With("component", "auth"),
		cfg:    cfg,
	}
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signup registers a new user with the default role.
//
// Returns:
//   - *domain.User: the created user.
//   - error: auth.ErrInvalidInput if a field is empty.
//   - error: auth.ErrUserExists if the email is taken.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	const op = "service.auth.Signup"

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidInput)
	}

	hash, err := credentials.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("user signed up", "user_id", u.ID)

	return u, nil
}

// Login checks credentials and issues an access token.
//
// Returns:
//   - *Token: signed token and its expiry.
//   - error: auth.ErrInvalidCredentials for an unknown email or wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	const op = "service.auth.Login"

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !credentials.VerifyPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	raw, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Token{Token: raw, ExpiresAt: exp}, nil
}

// Authenticate turns a bearer token into claims.
func (s *Service) Authenticate(raw string) (*credentials.Claims, error) {
	return s.tokens.Parse(raw)
}

// Me returns the profile of userID, read through the profile cache.
func (s *Service) Me(ctx context.Context, userID int64) (*domain.User, error) {
	const op = "service.auth.Me"

	load := func(ctx context.Context) (domain.User, error) {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.User{}, ErrUserNotFound
			}
			return domain.User{}, err
		}
		return *u, nil
	}

	var (
		u   domain.User
		err error
	)
	if s.cache != nil {
		u, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyUserProfile(userID), s.cfg.ProfileTTL, load)
	} else {
		u, err = load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
