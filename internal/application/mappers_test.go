package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/infrastructure/memory"
)

func strp(s string) *string { return &s }

func TestPersonMapper(t *testing.T) {
	var m PersonMapper
	e := &entity.Person{PhotoURL: "https://example.com/a.png"}
	err := m.ToEntity(context.Background(), &dto.PersonDTO{
		Name:      "  Ana ",
		Email:     "Ana@Example.com",
		BirthDate: strp("1990-05-17"),
	}, e)
	require.NoError(t, err)
	assert.Equal(t, "Ana", e.Name)
	assert.Equal(t, "ana@example.com", e.Email)
	require.NotNil(t, e.BirthDate)
	assert.Equal(t, time.May, e.BirthDate.Month())
	assert.Equal(t, "https://example.com/a.png", e.PhotoURL)

	out := m.ToDTO(e)
	assert.Equal(t, "1990-05-17", *out.BirthDate)
	assert.Equal(t, e.PhotoURL, out.PhotoURL)
}

func TestPersonMapperRejects(t *testing.T) {
	var m PersonMapper
	err := m.ToEntity(context.Background(), &dto.PersonDTO{Email: "nope", BirthDate: strp("17/05/1990")}, &entity.Person{})
	ve, ok := crud.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "is required", ve.Fields["name"])
	assert.Equal(t, "must be a valid email", ve.Fields["email"])
	assert.Contains(t, ve.Fields, "birth_date")
}

func TestEventMapperEndsBeforeStart(t *testing.T) {
	var m EventMapper
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	err := m.ToEntity(context.Background(), &dto.EventDTO{Name: "Meetup", StartsAt: start, EndsAt: &end}, &entity.Event{})
	ve, ok := crud.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "ends_at")

	err = m.ToEntity(context.Background(), &dto.EventDTO{Name: "Meetup"}, &entity.Event{})
	ve, ok = crud.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "starts_at")
}

func TestEntryMapperResolvesReferences(t *testing.T) {
	ctx := context.Background()
	persons := memory.NewPersonRepository()
	events := memory.NewEventRepository()
	p, err := persons.Save(ctx, &entity.Person{Name: "Ana"})
	require.NoError(t, err)
	ev, err := events.Save(ctx, &entity.Event{Name: "Meetup", StartsAt: time.Now()})
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := EntryMapper{Persons: persons, Events: events, Now: func() time.Time { return now }}

	err = m.ToEntity(ctx, &dto.EntryDTO{PersonID: 99, EventID: ev.ID}, &entity.Entry{})
	ve, ok := crud.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"person_id": "not found"}, ve.Fields)

	e := &entity.Entry{}
	require.NoError(t, m.ToEntity(ctx, &dto.EntryDTO{PersonID: p.ID, EventID: ev.ID, Notes: "vip"}, e))
	assert.Equal(t, now, e.RegisteredAt)
	assert.Equal(t, "vip", e.Notes)

	later := now.Add(time.Hour)
	require.NoError(t, m.ToEntity(ctx, &dto.EntryDTO{PersonID: p.ID, EventID: ev.ID}, e))
	assert.Equal(t, now, e.RegisteredAt, "update keeps the original registration time")
	require.NoError(t, m.ToEntity(ctx, &dto.EntryDTO{PersonID: p.ID, EventID: ev.ID, RegisteredAt: &later}, e))
	assert.Equal(t, later, e.RegisteredAt)
}

func TestEntryServiceEndToEnd(t *testing.T) {
	ctx := context.Background()
	persons := memory.NewPersonRepository()
	events := memory.NewEventRepository()
	personSvc := NewPersonService(persons, crud.Options{})
	eventSvc := NewEventService(events, crud.Options{})
	entrySvc := NewEntryService(memory.NewEntryRepository(), persons, events, crud.Options{})

	p, err := personSvc.ConvertToEntity(ctx, &dto.PersonDTO{Name: "Ana"}, nil)
	require.NoError(t, err)
	p, err = personSvc.Save(ctx, p)
	require.NoError(t, err)
	ev, err := eventSvc.ConvertToEntity(ctx, &dto.EventDTO{Name: "Meetup", StartsAt: time.Now()}, nil)
	require.NoError(t, err)
	ev, err = eventSvc.Save(ctx, ev)
	require.NoError(t, err)

	en, err := entrySvc.ConvertToEntity(ctx, &dto.EntryDTO{PersonID: p.ID, EventID: ev.ID}, nil)
	require.NoError(t, err)
	en, err = entrySvc.Save(ctx, en)
	require.NoError(t, err)

	out, err := entrySvc.GetDTO(ctx, en.ID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, p.ID, out.PersonID)
	assert.Equal(t, "entries", entrySvc.Resource())
}
