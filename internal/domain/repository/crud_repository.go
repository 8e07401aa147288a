package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
)

var (
	// ErrNotFound is returned when no record matches the requested identifier.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a storage constraint.
	ErrConflict = errors.New("constraint violation")
)

// CRUDRepository defines the storage operations shared by every entity.
// Save inserts records whose ID is zero and updates the others.
type CRUDRepository[E any] interface {
	Save(ctx context.Context, e *E) (*E, error)
	FindByID(ctx context.Context, id int64) (*E, error)
	DeleteByID(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]*E, error)
	FindPage(ctx context.Context, q query.Query) ([]*E, int, error)
}

type (
	PersonRepository = CRUDRepository[entity.Person]
	EventRepository  = CRUDRepository[entity.Event]
	EntryRepository  = CRUDRepository[entity.Entry]
)
