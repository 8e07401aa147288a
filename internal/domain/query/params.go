package query

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ErrInvalid is wrapped by every error Parse returns.
var ErrInvalid = errors.New("invalid query")

// Params are the raw list parameters as received on the wire.
// Every member is optional; nil slices and nil pointers mean "absent".
type Params struct {
	Filters []string
	Query   []string
	Sort    []string
	Fields  []string
	Page    *int
	PerPage *int
}

// IsEmpty reports whether none of the six parameters was supplied.
// Only an empty Params selects the unfiltered listing.
func (p Params) IsEmpty() bool {
	return len(p.Filters) == 0 &&
		len(p.Query) == 0 &&
		len(p.Sort) == 0 &&
		len(p.Fields) == 0 &&
		p.Page == nil &&
		p.PerPage == nil
}

type Op int

const (
	OpEq Op = iota
	OpContains
)

type Filter struct {
	Field string
	Op    Op
	Value string
}

type Order struct {
	Field string
	Desc  bool
}

// Query is a validated Params bound to a Schema.
type Query struct {
	Filters []Filter
	Terms   []string
	Orders  []Order
	Fields  []string
	Page    int
	PerPage int
}

func (q Query) Offset() int { return (q.Page - 1) * q.PerPage }

// PageCount returns the number of pages needed for total items.
func (q Query) PageCount(total int) int {
	if total <= 0 || q.PerPage <= 0 {
		return 0
	}
	return (total-1)/q.PerPage + 1
}

// Schema lists the JSON field names a resource accepts in filters, sort and
// field selection, and the subset that free-text terms are matched against.
type Schema struct {
	Fields     []string
	Searchable []string
}

func (s Schema) has(field string) bool {
	if field == "id" {
		return true
	}
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Parse validates p against s. Filters take the form field=value (equality)
// or field~value (case-insensitive substring); sort entries are field or -field.
// Multi-valued parameters may be repeated or comma-separated.
func Parse(p Params, s Schema) (Query, error) {
	q := Query{Page: 1, PerPage: DefaultPerPage}

	for _, raw := range splitAll(p.Filters) {
		i := strings.IndexAny(raw, "=~")
		if i <= 0 {
			return Query{}, fmt.Errorf("%w: cannot parse filter %q, must be of type field=value or field~value", ErrInvalid, raw)
		}
		f := Filter{Field: raw[:i], Value: raw[i+1:]}
		if raw[i] == '~' {
			f.Op = OpContains
		}
		if !s.has(f.Field) {
			return Query{}, fmt.Errorf("%w: unknown filter field %q", ErrInvalid, f.Field)
		}
		q.Filters = append(q.Filters, f)
	}

	for _, term := range p.Query {
		term = strings.TrimSpace(term)
		if term != "" {
			q.Terms = append(q.Terms, term)
		}
	}
	if len(q.Terms) > 0 && len(s.Searchable) == 0 {
		return Query{}, fmt.Errorf("%w: resource does not support free-text query", ErrInvalid)
	}

	for _, raw := range splitAll(p.Sort) {
		o := Order{Field: raw}
		if strings.HasPrefix(raw, "-") {
			o = Order{Field: raw[1:], Desc: true}
		} else if strings.HasPrefix(raw, "+") {
			o.Field = raw[1:]
		}
		if !s.has(o.Field) {
			return Query{}, fmt.Errorf("%w: unknown sort field %q", ErrInvalid, o.Field)
		}
		q.Orders = append(q.Orders, o)
	}

	for _, f := range splitAll(p.Fields) {
		if !s.has(f) {
			return Query{}, fmt.Errorf("%w: unknown field %q", ErrInvalid, f)
		}
		q.Fields = append(q.Fields, f)
	}

	if p.Page != nil {
		if *p.Page < 1 {
			return Query{}, fmt.Errorf("%w: page must be at least 1", ErrInvalid)
		}
		q.Page = *p.Page
	}
	if p.PerPage != nil {
		if *p.PerPage < 1 || *p.PerPage > MaxPerPage {
			return Query{}, fmt.Errorf("%w: per_page must be between 1 and %d", ErrInvalid, MaxPerPage)
		}
		q.PerPage = *p.PerPage
	}
	return q, nil
}

func splitAll(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
