package postgres

import (
	"context"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/repository"
)

const selectUser = `
	SELECT u.id, u.username, u.email, u.name, u.password_hash, u.created_at, u.updated_at,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id
`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.scan(ctx, selectUser+` WHERE u.username = $1 GROUP BY u.id`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.scan(ctx, selectUser+` WHERE u.id = $1 GROUP BY u.id`, id)
}

func (r *UserRepository) scan(ctx context.Context, sql string, arg any) (*entity.User, error) {
	u := &entity.User{}
	row := r.db.QueryRow(ctx, sql, arg)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt, &u.Roles); err != nil {
		return nil, translate(err, "select users")
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
