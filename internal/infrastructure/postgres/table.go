package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/query"
	"github.com/oksasatya/sape-server/internal/domain/repository"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Column maps a JSON field to its SQL column.
type Column struct {
	Name string
	Text bool
}

// Table binds an entity to its SQL table. Writable, Values and Targets must
// list the same columns in the same order; id, created_at and updated_at are
// managed by the repository.
type Table[E any] struct {
	Name       string
	Columns    map[string]Column
	Searchable []string
	Writable   []string
	Values     func(e *E) []any
	Targets    func(e *E) []any
}

func (t *Table[E]) selectList() string {
	return "id, created_at, updated_at, " + strings.Join(t.Writable, ", ")
}

func (t *Table[E]) column(field string) (Column, bool) {
	if field == "id" {
		return Column{Name: "id"}, true
	}
	c, ok := t.Columns[field]
	return c, ok
}

// Repository is the pgx implementation of repository.CRUDRepository.
type Repository[E any, P entity.Record[E]] struct {
	db    DBTX
	table *Table[E]
}

func NewRepository[E any, P entity.Record[E]](db DBTX, table *Table[E]) *Repository[E, P] {
	return &Repository[E, P]{db: db, table: table}
}

func (r *Repository[E, P]) scanTargets(e *E) []any {
	b := P(e).Base()
	return append([]any{&b.ID, &b.CreatedAt, &b.UpdatedAt}, r.table.Targets(e)...)
}

func (r *Repository[E, P]) Save(ctx context.Context, e *E) (*E, error) {
	rec := P(e)
	values := r.table.Values(e)
	b := rec.Base()

	if rec.IsNew() {
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id, created_at, updated_at`,
			r.table.Name, strings.Join(r.table.Writable, ", "), strings.Join(placeholders, ", "))
		if err := r.db.QueryRow(ctx, sql, values...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, translate(err, "insert "+r.table.Name)
		}
		return e, nil
	}

	sets := make([]string, len(values))
	for i, col := range r.table.Writable {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	sql := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE id = $%d RETURNING created_at, updated_at`,
		r.table.Name, strings.Join(sets, ", "), len(values)+1)
	args := append(values, b.ID)
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, translate(err, "update "+r.table.Name)
	}
	return e, nil
}

func (r *Repository[E, P]) FindByID(ctx context.Context, id int64) (*E, error) {
	e := new(E)
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.table.selectList(), r.table.Name)
	if err := r.db.QueryRow(ctx, sql, id).Scan(r.scanTargets(e)...); err != nil {
		return nil, translate(err, "select "+r.table.Name)
	}
	return e, nil
}

func (r *Repository[E, P]) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table.Name), id)
	if err != nil {
		return translate(err, "delete "+r.table.Name)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository[E, P]) FindAll(ctx context.Context) ([]*E, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, r.table.selectList(), r.table.Name)
	return r.list(ctx, sql)
}

func (r *Repository[E, P]) FindPage(ctx context.Context, q query.Query) ([]*E, int, error) {
	sel, count, args, err := buildPageQuery(r.table, q)
	if err != nil {
		return nil, 0, err
	}
	var total int
	// the count query only binds the WHERE arguments; LIMIT/OFFSET are the last two
	if err := r.db.QueryRow(ctx, count, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table.Name, err)
	}
	items, err := r.list(ctx, sel, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository[E, P]) list(ctx context.Context, sql string, args ...any) ([]*E, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table.Name, err)
	}
	defer rows.Close()

	out := []*E{}
	for rows.Next() {
		e := new(E)
		if err := rows.Scan(r.scanTargets(e)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table.Name, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table.Name, err)
	}
	return out, nil
}

// buildPageQuery renders the filtered SELECT and its COUNT companion.
// Field names were validated by query.Parse, but are checked again against
// the table so no unknown identifier ever reaches the SQL text.
func buildPageQuery[E any](t *Table[E], q query.Query) (string, string, []any, error) {
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		col, ok := t.column(f.Field)
		if !ok {
			return "", "", nil, fmt.Errorf("%w: unknown filter field %q", query.ErrInvalid, f.Field)
		}
		expr := col.Name
		if !col.Text {
			expr += "::text"
		}
		switch f.Op {
		case query.OpContains:
			where = append(where, fmt.Sprintf("%s ILIKE %s", expr, next("%"+escapeLike(f.Value)+"%")))
		default:
			where = append(where, fmt.Sprintf("%s = %s", expr, next(f.Value)))
		}
	}

	for _, term := range q.Terms {
		ph := next("%" + escapeLike(term) + "%")
		ors := make([]string, 0, len(t.Searchable))
		for _, field := range t.Searchable {
			if col, ok := t.column(field); ok {
				ors = append(ors, fmt.Sprintf("%s ILIKE %s", col.Name, ph))
			}
		}
		if len(ors) == 0 {
			return "", "", nil, fmt.Errorf("%w: resource does not support free-text query", query.ErrInvalid)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	order := make([]string, 0, len(q.Orders)+1)
	for _, o := range q.Orders {
		col, ok := t.column(o.Field)
		if !ok {
			return "", "", nil, fmt.Errorf("%w: unknown sort field %q", query.ErrInvalid, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		order = append(order, col.Name+" "+dir)
	}
	order = append(order, "id ASC")

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	count := fmt.Sprintf(`SELECT count(*) FROM %s%s`, t.Name, clause)
	limit := next(q.PerPage)
	offset := next(q.Offset())
	sel := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s LIMIT %s OFFSET %s`,
		t.selectList(), t.Name, clause, strings.Join(order, ", "), limit, offset)
	return sel, count, args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func translate(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514":
			return fmt.Errorf("%s: %w: %s", op, repository.ErrConflict, pgErr.Detail)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
