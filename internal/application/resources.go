package application

import (
	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
)

// Resource names double as URL segments, cache prefixes, search index
// suffixes and method security operation prefixes.
const (
	ResourcePersons = "persons"
	ResourceEvents  = "events"
	ResourceEntries = "entries"
)

// Resources lists every CRUD resource in registration order.
var Resources = []string{ResourcePersons, ResourceEvents, ResourceEntries}

type (
	PersonService = crud.BaseService[entity.Person, dto.PersonDTO, *entity.Person]
	EventService  = crud.BaseService[entity.Event, dto.EventDTO, *entity.Event]
	EntryService  = crud.BaseService[entity.Entry, dto.EntryDTO, *entity.Entry]
)
