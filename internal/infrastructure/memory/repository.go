package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
)

// Accessor exposes one filterable field of E by its JSON name.
type Accessor[E any] func(e *E) any

// Table describes how an entity is looked at by the in-memory store.
type Table[E any] struct {
	Fields     map[string]Accessor[E]
	Searchable []string
}

// ReferenceCheck reports whether a row of another table still points at id.
type ReferenceCheck func(ctx context.Context, id int64) (bool, error)

// Repository keeps entities in a map guarded by a RWMutex. Stored values
// are copies, so callers never alias the repository's state.
type Repository[E any, P entity.Record[E]] struct {
	mu     sync.RWMutex
	table  Table[E]
	rows   map[int64]E
	nextID int64
	guards []ReferenceCheck
	now    func() time.Time
}

func NewRepository[E any, P entity.Record[E]](table Table[E]) *Repository[E, P] {
	return &Repository[E, P]{table: table, rows: map[int64]E{}, now: time.Now}
}

func (r *Repository[E, P]) Save(ctx context.Context, e *E) (*E, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := P(e)
	if rec.IsNew() {
		r.nextID++
		rec.SetID(r.nextID)
	} else if _, ok := r.rows[rec.GetID()]; !ok {
		return nil, repository.ErrNotFound
	}
	rec.Touch(r.now().UTC())
	r.rows[rec.GetID()] = *e
	out := *e
	return &out, nil
}

func (r *Repository[E, P]) FindByID(ctx context.Context, id int64) (*E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *Repository[E, P]) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	for _, check := range r.guards {
		used, err := check(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: row %d is still referenced", repository.ErrConflict, id)
		}
	}
	delete(r.rows, id)
	return nil
}

// GuardDelete makes DeleteByID fail with repository.ErrConflict while check
// reports the row as referenced.
func (r *Repository[E, P]) GuardDelete(check ReferenceCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, check)
}

// Referenced returns a ReferenceCheck matching rows whose int64 field equals
// the id being deleted.
func (r *Repository[E, P]) Referenced(field string) ReferenceCheck {
	acc, ok := r.table.Fields[field]
	if !ok {
		panic("memory: unknown reference field " + field)
	}
	return func(_ context.Context, id int64) (bool, error) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		for _, row := range r.rows {
			row := row
			if v, ok := acc(&row).(int64); ok && v == id {
				return true, nil
			}
		}
		return false, nil
	}
}

func (r *Repository[E, P]) FindAll(ctx context.Context) ([]*E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedByID(), nil
}

func (r *Repository[E, P]) FindPage(ctx context.Context, q query.Query) ([]*E, int, error) {
	r.mu.RLock()
	all := r.sortedByID()
	r.mu.RUnlock()

	matched := make([]*E, 0, len(all))
	for _, e := range all {
		ok, err := r.matches(e, q)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			matched = append(matched, e)
		}
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(r.value(matched[i], o.Field), r.value(matched[j], o.Field))
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	total := len(matched)
	start := q.Offset()
	if start >= total {
		return []*E{}, total, nil
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *Repository[E, P]) sortedByID() []*E {
	out := make([]*E, 0, len(r.rows))
	for _, e := range r.rows {
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return P(out[i]).GetID() < P(out[j]).GetID() })
	return out
}

func (r *Repository[E, P]) value(e *E, field string) any {
	if field == "id" {
		return P(e).GetID()
	}
	if acc, ok := r.table.Fields[field]; ok {
		return acc(e)
	}
	return nil
}

func (r *Repository[E, P]) matches(e *E, q query.Query) (bool, error) {
	for _, f := range q.Filters {
		if _, known := r.table.Fields[f.Field]; !known && f.Field != "id" {
			return false, fmt.Errorf("%w: unknown filter field %q", query.ErrInvalid, f.Field)
		}
		got := text(r.value(e, f.Field))
		switch f.Op {
		case query.OpContains:
			if !strings.Contains(strings.ToLower(got), strings.ToLower(f.Value)) {
				return false, nil
			}
		default:
			if got != f.Value {
				return false, nil
			}
		}
	}
	for _, term := range q.Terms {
		term = strings.ToLower(term)
		hit := false
		for _, field := range r.table.Searchable {
			if strings.Contains(strings.ToLower(text(r.value(e, field))), term) {
				hit = true
				break
			}
		}
		if !hit {
			return false, nil
		}
	}
	return true, nil
}

// timestampText is how Postgres renders timestamptz::text in a UTC session.
const timestampText = "2006-01-02 15:04:05.999999-07"

func pgTimestamp(t time.Time) string {
	return t.UTC().Round(time.Microsecond).Format(timestampText)
}

// pgDate renders a DATE column the way date::text does; nil is "".
func pgDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return pgTimestamp(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return pgTimestamp(*x)
	default:
		return fmt.Sprint(x)
	}
}

// compare orders nil and zero times first, then by natural order of the type.
func compare(a, b any) int {
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case *time.Time:
		if y, ok := b.(*time.Time); ok {
			switch {
			case x == nil && y == nil:
				return 0
			case x == nil:
				return -1
			case y == nil:
				return 1
			}
			return x.Compare(*y)
		}
	}
	return strings.Compare(strings.ToLower(text(a)), strings.ToLower(text(b)))
}

var _ repository.PersonRepository = (*Repository[entity.Person, *entity.Person])(nil)
