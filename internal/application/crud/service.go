package crud

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

// Mapper converts between one entity type and its DTO. ToEntity validates
// the DTO and overwrites every DTO-visible field of e; it reports rejected
// input as a *ValidationError.
type Mapper[E any, D any] interface {
	ToEntity(ctx context.Context, dto *D, e *E) error
	ToDTO(e *E) *D
}

// Page is one slice of a filtered listing.
type Page[D any] struct {
	Items     []*D
	Fields    []string
	Total     int
	Page      int
	PerPage   int
	PageCount int
}

// Service is everything the generic controller needs from a resource.
type Service[E any, D any] interface {
	Resource() string
	CreateEmptyEntity() *E
	ConvertToEntity(ctx context.Context, dto *D, e *E) (*E, error)
	ConvertToDTO(e *E) *D
	Save(ctx context.Context, e *E) (*E, error)
	GetEntity(ctx context.Context, id int64) (*E, error)
	GetDTO(ctx context.Context, id int64) (*D, error)
	DeleteByID(ctx context.Context, id int64) error
	GetDTOs(ctx context.Context) ([]*D, error)
	GetDTOsFiltered(ctx context.Context, p query.Params) (*Page[D], error)
}

// Options carries the optional collaborators of a BaseService.
type Options struct {
	Cache     Cache
	Publisher Publisher
	Logger    *logrus.Logger
}

// BaseService implements Service over a CRUDRepository and a Mapper.
type BaseService[E any, D any, P entity.Record[E]] struct {
	resource  string
	repo      repository.CRUDRepository[E]
	mapper    Mapper[E, D]
	schema    query.Schema
	cache     Cache
	publisher Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewService[E any, D any, P entity.Record[E]](resource string, repo repository.CRUDRepository[E], mapper Mapper[E, D], schema query.Schema, opts Options) *BaseService[E, D, P] {
	logger := opts.Logger
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &BaseService[E, D, P]{
		resource:  resource,
		repo:      repo,
		mapper:    mapper,
		schema:    schema,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *BaseService[E, D, P]) Resource() string { return s.resource }

func (s *BaseService[E, D, P]) CreateEmptyEntity() *E { return new(E) }

func (s *BaseService[E, D, P]) ConvertToEntity(ctx context.Context, dto *D, e *E) (*E, error) {
	if dto == nil {
		return nil, missing("%s payload", s.resource)
	}
	if e == nil {
		e = s.CreateEmptyEntity()
	}
	if err := s.mapper.ToEntity(ctx, dto, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *BaseService[E, D, P]) ConvertToDTO(e *E) *D {
	if e == nil {
		return nil
	}
	return s.mapper.ToDTO(e)
}

func (s *BaseService[E, D, P]) Save(ctx context.Context, e *E) (*E, error) {
	action := ActionUpdated
	if P(e).IsNew() {
		action = ActionCreated
	}
	id := P(e).GetID()

	saved, err := s.repo.Save(ctx, e)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, s.notFound(id)
		case errors.Is(err, repository.ErrConflict):
			return nil, NewValidationError("constraint violation", map[string]string{"payload": err.Error()})
		}
		return nil, fmt.Errorf("save %s: %w", s.resource, err)
	}

	id = P(saved).GetID()
	s.forget(ctx, id)
	s.publish(ctx, action, id, s.mapper.ToDTO(saved))
	s.logger.WithFields(logrus.Fields{"resource": s.resource, "id": id, "action": action}).Debug("entity saved")
	return saved, nil
}

func (s *BaseService[E, D, P]) GetEntity(ctx context.Context, id int64) (*E, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound(id)
		}
		return nil, fmt.Errorf("get %s: %w", s.resource, err)
	}
	return e, nil
}

// GetDTO returns nil without error when id does not exist.
func (s *BaseService[E, D, P]) GetDTO(ctx context.Context, id int64) (*D, error) {
	key := s.cacheKey(id)
	version := int64(-1)
	if s.cache != nil {
		var cached D
		ok, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		} else if ok {
			return &cached, nil
		}
		if v, err := s.cache.Version(ctx, key); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache version read failed")
		} else {
			version = v
		}
	}

	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", s.resource, err)
	}
	out := s.mapper.ToDTO(e)
	if version >= 0 {
		// a write between Version and here means out may already be stale
		if stored, err := s.cache.SetIfVersion(ctx, key, version, out); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
		} else if !stored {
			s.logger.WithField("key", key).Debug("cache write skipped, key changed during read")
		}
	}
	return out, nil
}

func (s *BaseService[E, D, P]) DeleteByID(ctx context.Context, id int64) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return s.notFound(id)
		case errors.Is(err, repository.ErrConflict):
			return NewValidationError("still referenced", map[string]string{"id": err.Error()})
		}
		return fmt.Errorf("delete %s: %w", s.resource, err)
	}
	s.forget(ctx, id)
	s.publish(ctx, ActionDeleted, id, nil)
	return nil
}

func (s *BaseService[E, D, P]) GetDTOs(ctx context.Context) ([]*D, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.resource, err)
	}
	return s.toDTOs(all), nil
}

func (s *BaseService[E, D, P]) GetDTOsFiltered(ctx context.Context, p query.Params) (*Page[D], error) {
	q, err := query.Parse(p, s.schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	items, total, err := s.repo.FindPage(ctx, q)
	if err != nil {
		if errors.Is(err, query.ErrInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
		return nil, fmt.Errorf("list %s: %w", s.resource, err)
	}
	return &Page[D]{
		Items:     s.toDTOs(items),
		Fields:    q.Fields,
		Total:     total,
		Page:      q.Page,
		PerPage:   q.PerPage,
		PageCount: q.PageCount(total),
	}, nil
}

func (s *BaseService[E, D, P]) toDTOs(in []*E) []*D {
	out := make([]*D, 0, len(in))
	for _, e := range in {
		out = append(out, s.mapper.ToDTO(e))
	}
	return out
}

func (s *BaseService[E, D, P]) notFound(id int64) *ValidationError {
	return NewValidationError(fmt.Sprintf("%s %d not found", s.resource, id), map[string]string{"id": "not found"})
}

func (s *BaseService[E, D, P]) cacheKey(id int64) string {
	return "crud:" + s.resource + ":" + strconv.FormatInt(id, 10)
}

func (s *BaseService[E, D, P]) forget(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.WithError(err).WithField("key", s.cacheKey(id)).Warn("cache invalidation failed")
	}
}

func (s *BaseService[E, D, P]) publish(ctx context.Context, action string, id int64, data any) {
	if s.publisher == nil {
		return
	}
	ev := ChangeEvent{
		Resource:   s.resource,
		Action:     action,
		ID:         id,
		OccurredAt: s.now().UTC(),
		Data:       data,
	}
	if auth, ok := security.FromContext(ctx); ok {
		ev.Actor = auth.GetName()
	}
	if err := s.publisher.PublishJSON(ctx, ev); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"resource": s.resource, "id": id}).Warn("publish change event failed")
	}
}
