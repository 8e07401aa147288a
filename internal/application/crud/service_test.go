package crud

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/infrastructure/memory"
	"github.com/oksasatya/sape-server/internal/security"
)

type personMapper struct{}

func (personMapper) ToEntity(_ context.Context, d *dto.PersonDTO, e *entity.Person) error {
	if d.Name == "" {
		return NewValidationError("invalid person", map[string]string{"name": "is required"})
	}
	e.Name = d.Name
	e.Email = d.Email
	return nil
}

func (personMapper) ToDTO(e *entity.Person) *dto.PersonDTO {
	return &dto.PersonDTO{BaseDTO: dto.NewBaseDTO(e.ID, e.CreatedAt, e.UpdatedAt), Name: e.Name, Email: e.Email}
}

type mapCache struct {
	data     map[string][]byte
	versions map[string]int64
	hits     int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, versions: map[string]int64{}}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) Version(_ context.Context, key string) (int64, error) {
	return c.versions[key], nil
}

func (c *mapCache) SetIfVersion(_ context.Context, key string, version int64, value any) (bool, error) {
	if c.versions[key] != version {
		return false, nil
	}
	b, err := json.Marshal(value)
	c.data[key] = b
	return true, err
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.versions[key]++
	delete(c.data, key)
	return nil
}

// racingRepo runs onFind after loading a row and before returning it.
type racingRepo struct {
	*memory.Repository[entity.Person, *entity.Person]
	onFind func()
}

func (r *racingRepo) FindByID(ctx context.Context, id int64) (*entity.Person, error) {
	e, err := r.Repository.FindByID(ctx, id)
	if r.onFind != nil {
		f := r.onFind
		r.onFind = nil
		f()
	}
	return e, err
}

type recordingPublisher struct {
	events []ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.events = append(p.events, body.(ChangeEvent))
	return p.err
}

var testSchema = query.Schema{Fields: []string{"name", "email"}, Searchable: []string{"name"}}

func newTestService(opts Options) *BaseService[entity.Person, dto.PersonDTO, *entity.Person] {
	return NewService[entity.Person, dto.PersonDTO, *entity.Person]("persons", memory.NewPersonRepository(), personMapper{}, testSchema, opts)
}

func create(t *testing.T, s *BaseService[entity.Person, dto.PersonDTO, *entity.Person], ctx context.Context, name string) *entity.Person {
	t.Helper()
	e, err := s.ConvertToEntity(ctx, &dto.PersonDTO{Name: name}, s.CreateEmptyEntity())
	require.NoError(t, err)
	saved, err := s.Save(ctx, e)
	require.NoError(t, err)
	return saved
}

func TestSavePublishesChanges(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(Options{Publisher: pub})
	ctx := security.WithAuthentication(context.Background(), &security.OAuth2Authentication{
		Principal: security.UserPrincipal{Username: "ana"},
	})

	saved := create(t, s, ctx, "Ana")
	assert.Equal(t, int64(1), saved.ID)

	saved.Name = "Ana Maria"
	_, err := s.Save(ctx, saved)
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, ActionCreated, pub.events[0].Action)
	assert.Equal(t, ActionUpdated, pub.events[1].Action)
	assert.Equal(t, "ana", pub.events[0].Actor)
	assert.Equal(t, "persons", pub.events[1].Resource)
	assert.Equal(t, "Ana Maria", pub.events[1].Data.(*dto.PersonDTO).Name)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	s := newTestService(Options{Publisher: &recordingPublisher{err: errors.New("broker down")}})
	saved := create(t, s, context.Background(), "Ana")
	assert.Equal(t, int64(1), saved.ID)
}

func TestConvertToEntityRejectsNilAndInvalid(t *testing.T) {
	s := newTestService(Options{})
	_, err := s.ConvertToEntity(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = s.ConvertToEntity(context.Background(), &dto.PersonDTO{}, nil)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "is required", ve.Fields["name"])
}

func TestSaveUnknownIDIsValidation(t *testing.T) {
	s := newTestService(Options{})
	e := &entity.Person{Name: "Ghost"}
	e.ID = 42
	_, err := s.Save(context.Background(), e)
	assert.True(t, IsValidation(err))
}

func TestGetDTOMissingIsNil(t *testing.T) {
	s := newTestService(Options{})
	out, err := s.GetDTO(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = s.GetEntity(context.Background(), 7)
	assert.True(t, IsValidation(err))
}

func TestReadCacheAndInvalidation(t *testing.T) {
	cache := newMapCache()
	s := newTestService(Options{Cache: cache})
	ctx := context.Background()
	saved := create(t, s, ctx, "Ana")

	first, err := s.GetDTO(ctx, saved.ID)
	require.NoError(t, err)
	assert.Contains(t, cache.data, "crud:persons:1")

	second, err := s.GetDTO(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Name, second.Name)

	saved.Name = "Ana Maria"
	_, err = s.Save(ctx, saved)
	require.NoError(t, err)
	assert.NotContains(t, cache.data, "crud:persons:1")

	require.NoError(t, s.DeleteByID(ctx, saved.ID))
	out, err := s.GetDTO(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestReadRacingDeleteIsNotCached(t *testing.T) {
	cache := newMapCache()
	repo := &racingRepo{Repository: memory.NewPersonRepository()}
	s := NewService[entity.Person, dto.PersonDTO, *entity.Person]("persons", repo, personMapper{}, testSchema, Options{Cache: cache})
	ctx := context.Background()
	saved := create(t, s, ctx, "Ana")

	repo.onFind = func() { require.NoError(t, s.DeleteByID(ctx, saved.ID)) }
	stale, err := s.GetDTO(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.NotContains(t, cache.data, "crud:persons:1")

	out, err := s.GetDTO(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDeleteUnknownIsValidation(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestService(Options{Publisher: pub})
	err := s.DeleteByID(context.Background(), 1)
	assert.True(t, IsValidation(err))
	assert.Empty(t, pub.events)
}

func TestGetDTOsFiltered(t *testing.T) {
	s := newTestService(Options{})
	ctx := context.Background()
	for _, n := range []string{"Ana", "Bruno", "Carla", "Anabela"} {
		create(t, s, ctx, n)
	}

	all, err := s.GetDTOs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	perPage := 1
	page, err := s.GetDTOsFiltered(ctx, query.Params{Query: []string{"ana"}, Sort: []string{"-name"}, PerPage: &perPage})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.PageCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Anabela", page.Items[0].Name)

	_, err = s.GetDTOsFiltered(ctx, query.Params{Sort: []string{"unknown"}})
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.ErrorIs(t, err, query.ErrInvalid)
}
