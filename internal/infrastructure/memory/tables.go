package memory

import (
	"github.com/oksasatya/sape-server/internal/domain/entity"
)

func NewPersonRepository() *Repository[entity.Person, *entity.Person] {
	return NewRepository[entity.Person, *entity.Person](Table[entity.Person]{
		Fields: map[string]Accessor[entity.Person]{
			"name":       func(p *entity.Person) any { return p.Name },
			"email":      func(p *entity.Person) any { return p.Email },
			"document":   func(p *entity.Person) any { return p.Document },
			"phone":      func(p *entity.Person) any { return p.Phone },
			"birth_date": func(p *entity.Person) any { return pgDate(p.BirthDate) },
			"created_at": func(p *entity.Person) any { return p.CreatedAt },
			"updated_at": func(p *entity.Person) any { return p.UpdatedAt },
		},
		Searchable: []string{"name", "email", "document"},
	})
}

func NewEventRepository() *Repository[entity.Event, *entity.Event] {
	return NewRepository[entity.Event, *entity.Event](Table[entity.Event]{
		Fields: map[string]Accessor[entity.Event]{
			"name":        func(e *entity.Event) any { return e.Name },
			"description": func(e *entity.Event) any { return e.Description },
			"location":    func(e *entity.Event) any { return e.Location },
			"starts_at":   func(e *entity.Event) any { return e.StartsAt },
			"ends_at":     func(e *entity.Event) any { return e.EndsAt },
			"created_at":  func(e *entity.Event) any { return e.CreatedAt },
			"updated_at":  func(e *entity.Event) any { return e.UpdatedAt },
		},
		Searchable: []string{"name", "description", "location"},
	})
}

func NewEntryRepository() *Repository[entity.Entry, *entity.Entry] {
	return NewRepository[entity.Entry, *entity.Entry](Table[entity.Entry]{
		Fields: map[string]Accessor[entity.Entry]{
			"person_id":     func(e *entity.Entry) any { return e.PersonID },
			"event_id":      func(e *entity.Entry) any { return e.EventID },
			"registered_at": func(e *entity.Entry) any { return e.RegisteredAt },
			"checked_in_at": func(e *entity.Entry) any { return e.CheckedInAt },
			"notes":         func(e *entity.Entry) any { return e.Notes },
			"created_at":    func(e *entity.Entry) any { return e.CreatedAt },
			"updated_at":    func(e *entity.Entry) any { return e.UpdatedAt },
		},
		Searchable: []string{"notes"},
	})
}
