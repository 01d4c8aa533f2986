package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/kykwerk/kyk/store"
)

const pageColumns = `id, title, body, author_id, author_key, created, updated`

// columnFor maps exposed field names to columns. Fields outside this
// allowlist fail the query instead of reaching SQL.
var columnFor = map[string]string{
	"id":        "id",
	"pk":        "id",
	"title":     "title",
	"author_id": "author_id",
	"created":   "created",
	"updated":   "updated",
}

// pageQuery implements store.Query over the pages table. Builder methods
// derive new values; a query is never mutated after construction.
type pageQuery struct {
	svc     *Service
	filters []pageFilter
	order   []string
}

type pageFilter struct {
	column string
	value  any
}

// Query returns a fresh query over all pages.
func (s *Service) Query() store.Query {
	return &pageQuery{svc: s}
}

// Filter implements store.Query.
func (q *pageQuery) Filter(field string, value any) store.Query {
	cp := *q
	cp.filters = append(append([]pageFilter{}, q.filters...), pageFilter{field, value})
	return &cp
}

// OrderBy implements store.Query.
func (q *pageQuery) OrderBy(fields ...string) store.Query {
	cp := *q
	cp.order = append([]string{}, fields...)
	return &cp
}

// Count implements store.Query.
func (q *pageQuery) Count() (int, error) {
	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}
	var n int
	row := q.svc.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM pages`+where, args...)
	if err := row.Scan(&n); err != nil {
		return 0, store.MapError(err)
	}
	return n, nil
}

// Slice implements store.Query.
func (q *pageQuery) Slice(start, end int) ([]store.Record, error) {
	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}
	orderBy, err := q.orderClause()
	if err != nil {
		return nil, err
	}
	limit := -1 // sqlite: no limit
	if end >= 0 {
		limit = end - start
		if limit < 0 {
			limit = 0
		}
	}
	rows, err := q.svc.db.QueryContext(context.Background(),
		`SELECT `+pageColumns+` FROM pages`+where+orderBy+` LIMIT ? OFFSET ?`,
		append(args, limit, start)...)
	if err != nil {
		return nil, store.MapError(err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q.svc.adopt(p))
	}
	return out, store.MapError(rows.Err())
}

// Get implements store.Query.
func (q *pageQuery) Get(pk int64) (store.Record, error) {
	return q.svc.Get(context.Background(), pk)
}

// Get loads one page by primary key.
func (s *Service) Get(ctx context.Context, pk int64) (*Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, pk)
	p, err := scanPage(row)
	if err != nil {
		return nil, err
	}
	return s.adopt(p), nil
}

func (q *pageQuery) whereClause() (string, []any, error) {
	if len(q.filters) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(q.filters))
	args := make([]any, 0, len(q.filters))
	for _, f := range q.filters {
		col, ok := columnFor[f.column]
		if !ok {
			return "", nil, fmt.Errorf("page: unknown filter field %q", f.column)
		}
		conds = append(conds, col+" = ?")
		args = append(args, f.value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (q *pageQuery) orderClause() (string, error) {
	if len(q.order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(q.order))
	for _, f := range q.order {
		dir := " ASC"
		name := f
		if strings.HasPrefix(f, "-") {
			dir = " DESC"
			name = f[1:]
		}
		col, ok := columnFor[name]
		if !ok {
			return "", fmt.Errorf("page: unknown order field %q", name)
		}
		parts = append(parts, col+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.AuthorID, &p.AuthorKey, &p.Created, &p.Updated)
	if err != nil {
		return nil, store.MapError(err)
	}
	return &p, nil
}
