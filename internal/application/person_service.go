package application

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/pkg/validation"
)

var PersonSchema = query.Schema{
	Fields:     []string{"name", "email", "document", "phone", "birth_date", "created_at", "updated_at"},
	Searchable: []string{"name", "email", "document"},
}

type PersonMapper struct{}

func (PersonMapper) ToEntity(_ context.Context, d *dto.PersonDTO, e *entity.Person) error {
	if details := validation.Struct(d); details != nil {
		return crud.NewValidationError("invalid person", details)
	}
	var birth *time.Time
	if d.BirthDate != nil && *d.BirthDate != "" {
		t, err := time.Parse(dto.DateLayout, *d.BirthDate)
		if err != nil {
			return crud.NewValidationError("invalid person", map[string]string{"birth_date": "must match layout " + dto.DateLayout})
		}
		birth = &t
	}
	e.Name = strings.TrimSpace(d.Name)
	e.Email = strings.ToLower(strings.TrimSpace(d.Email))
	e.Document = strings.TrimSpace(d.Document)
	e.Phone = strings.TrimSpace(d.Phone)
	e.BirthDate = birth
	return nil
}

func (PersonMapper) ToDTO(e *entity.Person) *dto.PersonDTO {
	out := &dto.PersonDTO{
		BaseDTO:  dto.NewBaseDTO(e.ID, e.CreatedAt, e.UpdatedAt),
		Name:     e.Name,
		Email:    e.Email,
		Document: e.Document,
		Phone:    e.Phone,
		PhotoURL: e.PhotoURL,
	}
	if e.BirthDate != nil {
		s := e.BirthDate.Format(dto.DateLayout)
		out.BirthDate = &s
	}
	return out
}

func NewPersonService(repo repository.PersonRepository, opts crud.Options) *PersonService {
	return crud.NewService[entity.Person, dto.PersonDTO, *entity.Person](ResourcePersons, repo, PersonMapper{}, PersonSchema, opts)
}
