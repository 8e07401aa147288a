// Package indexer consumes change events published by the CRUD services,
// keeps the search index in sync and sends entry confirmation emails.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/application"
	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/pkg/helpers"
	"github.com/oksasatya/sape-server/pkg/mailer"
	"github.com/oksasatya/sape-server/pkg/mailer/templates"
)

// ErrMalformed marks messages that can never be processed; they are dropped.
var ErrMalformed = errors.New("malformed change event")

// DocumentStore is the search side of the projection; helpers.ESStore implements it.
type DocumentStore interface {
	Put(ctx context.Context, resource, id string, doc any) error
	Remove(ctx context.Context, resource, id string) error
}

// message mirrors crud.ChangeEvent with the payload left undecoded.
type message struct {
	Resource   string          `json:"resource"`
	Action     string          `json:"action"`
	ID         int64           `json:"id"`
	Actor      string          `json:"actor,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type Worker struct {
	Store   DocumentStore
	Mail    mailer.Sender // nil disables confirmations
	Persons repository.PersonRepository
	Events  repository.EventRepository
	AppName string
	Logger  *logrus.Logger

	known map[string]bool
}

func NewWorker(store DocumentStore, mail mailer.Sender, persons repository.PersonRepository, events repository.EventRepository, appName string, logger *logrus.Logger) *Worker {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	known := make(map[string]bool, len(application.Resources))
	for _, r := range application.Resources {
		known[r] = true
	}
	return &Worker{Store: store, Mail: mail, Persons: persons, Events: events, AppName: appName, Logger: logger, known: known}
}

// Handle applies one change event. Errors wrapping ErrMalformed are permanent;
// any other error is worth a retry.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var m message
	if err := json.Unmarshal(body, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !w.known[m.Resource] || m.ID <= 0 {
		return fmt.Errorf("%w: resource %q id %d", ErrMalformed, m.Resource, m.ID)
	}
	id := strconv.FormatInt(m.ID, 10)
	log := w.Logger.WithFields(logrus.Fields{"resource": m.Resource, "id": m.ID, "action": m.Action})

	switch m.Action {
	case crud.ActionDeleted:
		if w.Store != nil {
			if err := w.Store.Remove(ctx, m.Resource, id); err != nil {
				return fmt.Errorf("remove %s/%s: %w", m.Resource, id, err)
			}
		}
	case crud.ActionCreated, crud.ActionUpdated:
		if len(m.Data) == 0 || string(m.Data) == "null" {
			return fmt.Errorf("%w: %s without data", ErrMalformed, m.Action)
		}
		if w.Store != nil {
			if err := w.Store.Put(ctx, m.Resource, id, m.Data); err != nil {
				return fmt.Errorf("index %s/%s: %w", m.Resource, id, err)
			}
		}
		if m.Resource == application.ResourceEntries && m.Action == crud.ActionCreated {
			if err := w.confirmEntry(ctx, m); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: action %q", ErrMalformed, m.Action)
	}
	log.Debug("change applied")
	return nil
}

func (w *Worker) confirmEntry(ctx context.Context, m message) error {
	if w.Mail == nil {
		return nil
	}
	var entry dto.EntryDTO
	if err := json.Unmarshal(m.Data, &entry); err != nil {
		return fmt.Errorf("%w: entry data: %v", ErrMalformed, err)
	}

	person, err := w.Persons.FindByID(ctx, entry.PersonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.Logger.WithField("person_id", entry.PersonID).Info("person gone before confirmation; skipped")
			return nil
		}
		return fmt.Errorf("load person %d: %w", entry.PersonID, err)
	}
	if strings.TrimSpace(person.Email) == "" {
		return nil
	}
	event, err := w.Events.FindByID(ctx, entry.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			w.Logger.WithField("event_id", entry.EventID).Info("event gone before confirmation; skipped")
			return nil
		}
		return fmt.Errorf("load event %d: %w", entry.EventID, err)
	}

	data := templates.EntryData{
		AppName:    w.AppName,
		PersonName: person.Name,
		Email:      person.Email,
		EventName:  event.Name,
		Location:   event.Location,
		StartsAt:   event.StartsAt,
		EntryID:    m.ID,
	}
	if entry.RegisteredAt != nil {
		data.RegisteredAt = *entry.RegisteredAt
	}
	job, err := mailer.NewEntryConfirmation(data)
	if err != nil {
		return fmt.Errorf("%w: render confirmation: %v", ErrMalformed, err)
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := mailer.Deliver(c, w.Mail, job); err != nil {
		return fmt.Errorf("send confirmation for entry %d: %w", m.ID, err)
	}
	w.Logger.WithFields(logrus.Fields{"entry_id": m.ID, "to": job.To}).Info("entry confirmation sent")
	return nil
}
