package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/repository"
)

// UserRepository is a read-mostly user store for development and tests.
type UserRepository struct {
	mu     sync.RWMutex
	byID   map[int64]entity.User
	nextID int64
}

func NewUserRepository(users ...entity.User) *UserRepository {
	r := &UserRepository{byID: map[int64]entity.User{}}
	for _, u := range users {
		r.Add(u)
	}
	return r
}

// Add stores u, assigning an ID when it has none, and returns the stored copy.
func (r *UserRepository) Add(u entity.User) entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	} else if u.ID > r.nextID {
		r.nextID = u.ID
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.byID[u.ID] = u
	return u
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
