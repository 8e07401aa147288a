package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/infrastructure/memory"
)

type storeCall struct {
	op, resource, id string
}

type fakeStore struct {
	calls []storeCall
	err   error
}

func (f *fakeStore) Put(_ context.Context, resource, id string, _ any) error {
	f.calls = append(f.calls, storeCall{"put", resource, id})
	return f.err
}

func (f *fakeStore) Remove(_ context.Context, resource, id string) error {
	f.calls = append(f.calls, storeCall{"remove", resource, id})
	return f.err
}

type sentMail struct {
	to, subject, text string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text})
	return nil
}

type fixture struct {
	worker *Worker
	store  *fakeStore
	mail   *fakeSender
	person *entity.Person
	event  *entity.Event
}

func newFixture(t *testing.T, email string) fixture {
	t.Helper()
	persons := memory.NewPersonRepository()
	events := memory.NewEventRepository()
	ctx := context.Background()

	p, err := persons.Save(ctx, &entity.Person{Name: "Ana", Email: email})
	require.NoError(t, err)
	ev, err := events.Save(ctx, &entity.Event{Name: "Meetup", Location: "Hall", StartsAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	store := &fakeStore{}
	mail := &fakeSender{}
	return fixture{
		worker: NewWorker(store, mail, persons, events, "sape", nil),
		store:  store,
		mail:   mail,
		person: p,
		event:  ev,
	}
}

func encode(t *testing.T, ev crud.ChangeEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleIndexesAndRemoves(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	body := encode(t, crud.ChangeEvent{Resource: "persons", Action: crud.ActionUpdated, ID: 7, Data: map[string]any{"name": "Ana"}})
	require.NoError(t, f.worker.Handle(ctx, body))

	body = encode(t, crud.ChangeEvent{Resource: "persons", Action: crud.ActionDeleted, ID: 7})
	require.NoError(t, f.worker.Handle(ctx, body))

	assert.Equal(t, []storeCall{{"put", "persons", "7"}, {"remove", "persons", "7"}}, f.store.calls)
	assert.Empty(t, f.mail.sent)
}

func TestHandleRejectsMalformed(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	cases := map[string][]byte{
		"not json":         []byte("{"),
		"unknown resource": encode(t, crud.ChangeEvent{Resource: "users", Action: crud.ActionCreated, ID: 1, Data: map[string]any{}}),
		"unknown action":   encode(t, crud.ChangeEvent{Resource: "events", Action: "archived", ID: 1}),
		"missing data":     encode(t, crud.ChangeEvent{Resource: "events", Action: crud.ActionCreated, ID: 1}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.worker.Handle(ctx, body), ErrMalformed)
		})
	}
	assert.Empty(t, f.store.calls)
}

func TestCreatedEntrySendsConfirmation(t *testing.T) {
	f := newFixture(t, "ana@example.com")
	registered := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	entry := dto.EntryDTO{PersonID: f.person.ID, EventID: f.event.ID, RegisteredAt: &registered}

	body := encode(t, crud.ChangeEvent{Resource: "entries", Action: crud.ActionCreated, ID: 3, Data: entry})
	require.NoError(t, f.worker.Handle(context.Background(), body))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ana@example.com", f.mail.sent[0].to)
	assert.Contains(t, f.mail.sent[0].subject, "Meetup")
	assert.Equal(t, []storeCall{{"put", "entries", "3"}}, f.store.calls)
}

func TestUpdatedEntryAndMissingEmailSendNothing(t *testing.T) {
	f := newFixture(t, "")
	entry := dto.EntryDTO{PersonID: f.person.ID, EventID: f.event.ID}

	body := encode(t, crud.ChangeEvent{Resource: "entries", Action: crud.ActionCreated, ID: 3, Data: entry})
	require.NoError(t, f.worker.Handle(context.Background(), body))
	body = encode(t, crud.ChangeEvent{Resource: "entries", Action: crud.ActionUpdated, ID: 3, Data: entry})
	require.NoError(t, f.worker.Handle(context.Background(), body))

	assert.Empty(t, f.mail.sent)
}

func TestConfirmationSkipsVanishedPerson(t *testing.T) {
	f := newFixture(t, "ana@example.com")
	entry := dto.EntryDTO{PersonID: 999, EventID: f.event.ID}
	body := encode(t, crud.ChangeEvent{Resource: "entries", Action: crud.ActionCreated, ID: 4, Data: entry})
	require.NoError(t, f.worker.Handle(context.Background(), body))
	assert.Empty(t, f.mail.sent)
}

type ackRecorder struct {
	acks    int
	nacks   int
	requeue []bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func TestRunAcknowledges(t *testing.T) {
	f := newFixture(t, "")
	acks := &ackRecorder{}
	good := encode(t, crud.ChangeEvent{Resource: "events", Action: crud.ActionDeleted, ID: 1})

	ch := make(chan amqp.Delivery, 3)
	ch <- amqp.Delivery{Acknowledger: acks, Body: good}
	ch <- amqp.Delivery{Acknowledger: acks, Body: []byte("junk")}
	close(ch)

	f.worker.Run(context.Background(), ch)
	assert.Equal(t, 1, acks.acks)
	assert.Equal(t, []bool{false}, acks.requeue)
}

func TestRunRequeuesTransientFailuresOnce(t *testing.T) {
	f := newFixture(t, "")
	f.store.err = errors.New("es down")
	acks := &ackRecorder{}
	body := encode(t, crud.ChangeEvent{Resource: "events", Action: crud.ActionDeleted, ID: 1})

	ch := make(chan amqp.Delivery, 2)
	ch <- amqp.Delivery{Acknowledger: acks, Body: body}
	ch <- amqp.Delivery{Acknowledger: acks, Body: body, Redelivered: true}
	close(ch)

	f.worker.Run(context.Background(), ch)
	assert.Equal(t, []bool{true, false}, acks.requeue)
}
