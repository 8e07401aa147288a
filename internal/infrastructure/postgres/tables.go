package postgres

import (
	"github.com/oksasatya/sape-server/internal/domain/entity"
)

var personTable = &Table[entity.Person]{
	Name: "persons",
	Columns: map[string]Column{
		"name":       {Name: "name", Text: true},
		"email":      {Name: "email", Text: true},
		"document":   {Name: "document", Text: true},
		"phone":      {Name: "phone", Text: true},
		"birth_date": {Name: "birth_date"},
		"created_at": {Name: "created_at"},
		"updated_at": {Name: "updated_at"},
	},
	Searchable: []string{"name", "email", "document"},
	Writable:   []string{"name", "email", "document", "phone", "birth_date", "photo_url"},
	Values: func(p *entity.Person) []any {
		return []any{p.Name, p.Email, p.Document, p.Phone, p.BirthDate, p.PhotoURL}
	},
	Targets: func(p *entity.Person) []any {
		return []any{&p.Name, &p.Email, &p.Document, &p.Phone, &p.BirthDate, &p.PhotoURL}
	},
}

var eventTable = &Table[entity.Event]{
	Name: "events",
	Columns: map[string]Column{
		"name":        {Name: "name", Text: true},
		"description": {Name: "description", Text: true},
		"location":    {Name: "location", Text: true},
		"starts_at":   {Name: "starts_at"},
		"ends_at":     {Name: "ends_at"},
		"created_at":  {Name: "created_at"},
		"updated_at":  {Name: "updated_at"},
	},
	Searchable: []string{"name", "description", "location"},
	Writable:   []string{"name", "description", "location", "starts_at", "ends_at"},
	Values: func(e *entity.Event) []any {
		return []any{e.Name, e.Description, e.Location, e.StartsAt, e.EndsAt}
	},
	Targets: func(e *entity.Event) []any {
		return []any{&e.Name, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt}
	},
}

var entryTable = &Table[entity.Entry]{
	Name: "entries",
	Columns: map[string]Column{
		"person_id":     {Name: "person_id"},
		"event_id":      {Name: "event_id"},
		"registered_at": {Name: "registered_at"},
		"checked_in_at": {Name: "checked_in_at"},
		"notes":         {Name: "notes", Text: true},
		"created_at":    {Name: "created_at"},
		"updated_at":    {Name: "updated_at"},
	},
	Searchable: []string{"notes"},
	Writable:   []string{"person_id", "event_id", "registered_at", "checked_in_at", "notes"},
	Values: func(e *entity.Entry) []any {
		return []any{e.PersonID, e.EventID, e.RegisteredAt, e.CheckedInAt, e.Notes}
	},
	Targets: func(e *entity.Entry) []any {
		return []any{&e.PersonID, &e.EventID, &e.RegisteredAt, &e.CheckedInAt, &e.Notes}
	},
}

func NewPersonRepository(db DBTX) *Repository[entity.Person, *entity.Person] {
	return NewRepository[entity.Person, *entity.Person](db, personTable)
}

func NewEventRepository(db DBTX) *Repository[entity.Event, *entity.Event] {
	return NewRepository[entity.Event, *entity.Event](db, eventTable)
}

func NewEntryRepository(db DBTX) *Repository[entity.Entry, *entity.Entry] {
	return NewRepository[entity.Entry, *entity.Entry](db, entryTable)
}
