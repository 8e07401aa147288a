package application

import (
	"context"
	"strings"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/pkg/validation"
)

var EventSchema = query.Schema{
	Fields:     []string{"name", "description", "location", "starts_at", "ends_at", "created_at", "updated_at"},
	Searchable: []string{"name", "description", "location"},
}

type EventMapper struct{}

func (EventMapper) ToEntity(_ context.Context, d *dto.EventDTO, e *entity.Event) error {
	if details := validation.Struct(d); details != nil {
		return crud.NewValidationError("invalid event", details)
	}
	if d.EndsAt != nil && d.EndsAt.Before(d.StartsAt) {
		return crud.NewValidationError("invalid event", map[string]string{"ends_at": "must not precede starts_at"})
	}
	e.Name = strings.TrimSpace(d.Name)
	e.Description = d.Description
	e.Location = strings.TrimSpace(d.Location)
	e.StartsAt = d.StartsAt.UTC()
	e.EndsAt = nil
	if d.EndsAt != nil {
		t := d.EndsAt.UTC()
		e.EndsAt = &t
	}
	return nil
}

func (EventMapper) ToDTO(e *entity.Event) *dto.EventDTO {
	return &dto.EventDTO{
		BaseDTO:     dto.NewBaseDTO(e.ID, e.CreatedAt, e.UpdatedAt),
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
	}
}

func NewEventService(repo repository.EventRepository, opts crud.Options) *EventService {
	return crud.NewService[entity.Event, dto.EventDTO, *entity.Event](ResourceEvents, repo, EventMapper{}, EventSchema, opts)
}
