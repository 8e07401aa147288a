package repository

import (
	"context"

	"github.com/oksasatya/sape-server/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}
