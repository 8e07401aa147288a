package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	repo "github.com/oksasatya/sape-server/internal/domain/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserQueryService is the read side of user accounts.
type UserQueryService struct {
	Repo repo.UserRepository
}

func NewUserQueryService(r repo.UserRepository) *UserQueryService {
	return &UserQueryService{Repo: r}
}

func (s *UserQueryService) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}
