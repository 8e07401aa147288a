package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/pkg/validation"
)

var EntrySchema = query.Schema{
	Fields:     []string{"person_id", "event_id", "registered_at", "checked_in_at", "notes", "created_at", "updated_at"},
	Searchable: []string{"notes"},
}

// EntryMapper resolves the referenced person and event before accepting an entry.
type EntryMapper struct {
	Persons repository.PersonRepository
	Events  repository.EventRepository
	Now     func() time.Time
}

func (m EntryMapper) ToEntity(ctx context.Context, d *dto.EntryDTO, e *entity.Entry) error {
	if details := validation.Struct(d); details != nil {
		return crud.NewValidationError("invalid entry", details)
	}
	fields := map[string]string{}
	if _, err := m.Persons.FindByID(ctx, d.PersonID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("resolve person: %w", err)
		}
		fields["person_id"] = "not found"
	}
	if _, err := m.Events.FindByID(ctx, d.EventID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("resolve event: %w", err)
		}
		fields["event_id"] = "not found"
	}
	if len(fields) > 0 {
		return crud.NewValidationError("invalid entry", fields)
	}

	e.PersonID = d.PersonID
	e.EventID = d.EventID
	e.Notes = d.Notes
	switch {
	case d.RegisteredAt != nil:
		e.RegisteredAt = d.RegisteredAt.UTC()
	case e.RegisteredAt.IsZero():
		e.RegisteredAt = m.now()
	}
	e.CheckedInAt = nil
	if d.CheckedInAt != nil {
		t := d.CheckedInAt.UTC()
		e.CheckedInAt = &t
	}
	return nil
}

func (m EntryMapper) ToDTO(e *entity.Entry) *dto.EntryDTO {
	registered := e.RegisteredAt
	return &dto.EntryDTO{
		BaseDTO:      dto.NewBaseDTO(e.ID, e.CreatedAt, e.UpdatedAt),
		PersonID:     e.PersonID,
		EventID:      e.EventID,
		RegisteredAt: &registered,
		CheckedInAt:  e.CheckedInAt,
		Notes:        e.Notes,
	}
}

func (m EntryMapper) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func NewEntryService(repo repository.EntryRepository, persons repository.PersonRepository, events repository.EventRepository, opts crud.Options) *EntryService {
	mapper := EntryMapper{Persons: persons, Events: events}
	return crud.NewService[entity.Entry, dto.EntryDTO, *entity.Entry](ResourceEntries, repo, mapper, EntrySchema, opts)
}
