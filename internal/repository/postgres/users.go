package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/seatbook/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

// Create inserts u and fills in its ID and CreatedAt.
// Returns repository.ErrConflict if the email is taken.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	const op = "postgres.UserRepo.Create"

	err := r.pool.QueryRow(ctx,
		`INSERT INTO users(username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByEmail"

	u, err := r.get(ctx, `WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "postgres.UserRepo.GetByID"

	u, err := r.get(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return u, nil
}

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, created_at
		 FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		return nil, translateDBErr(err)
	}

	u.Role = domain.Role(role)

	return &u, nil
}
