package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirinyoku/seatbook/internal/domain"
	"github.com/kirinyoku/seatbook/internal/repository"
)

type UserRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	const op = "memory.UserRepo.Create"

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()

	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID

	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "memory.UserRepo.GetByEmail"

	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const op = "memory.UserRepo.GetByID"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return &u, nil
}
