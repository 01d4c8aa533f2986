package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// MemQuery is an in-memory Query over a fixed record slice. Filtering and
// ordering resolve fields through a per-record accessor. Used by unit
// tests and by lists over non-persisted components.
type MemQuery struct {
	records []Record
	field   func(r Record, name string) (any, bool)
	filters []memFilter
	order   []string
}

type memFilter struct {
	field string
	value any
}

// NewMemQuery builds a MemQuery. The field accessor may be nil, in which
// case only PK-based operations work.
func NewMemQuery(records []Record, field func(r Record, name string) (any, bool)) *MemQuery {
	return &MemQuery{records: records, field: field}
}

// Filter implements Query.
func (q *MemQuery) Filter(field string, value any) Query {
	cp := *q
	cp.filters = append(append([]memFilter{}, q.filters...), memFilter{field, value})
	return &cp
}

// OrderBy implements Query.
func (q *MemQuery) OrderBy(fields ...string) Query {
	cp := *q
	cp.order = append([]string{}, fields...)
	return &cp
}

// Count implements Query.
func (q *MemQuery) Count() (int, error) {
	matched, err := q.resolve()
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Slice implements Query.
func (q *MemQuery) Slice(start, end int) ([]Record, error) {
	matched, err := q.resolve()
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	if end < 0 || end > len(matched) {
		end = len(matched)
	}
	if end < start {
		end = start
	}
	return matched[start:end], nil
}

// Get implements Query.
func (q *MemQuery) Get(pk int64) (Record, error) {
	for _, r := range q.records {
		if r.PK() == pk {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (q *MemQuery) resolve() ([]Record, error) {
	// Validate up front so a misconfigured query errors even when the
	// record set is empty.
	if q.field == nil {
		if len(q.filters) > 0 {
			return nil, fmt.Errorf("store: filtering requires a field accessor")
		}
		if len(q.order) > 0 {
			return nil, fmt.Errorf("store: ordering requires a field accessor")
		}
	}
	matched := make([]Record, 0, len(q.records))
	for _, r := range q.records {
		ok, err := q.matches(r)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	if len(q.order) > 0 {
		var sortErr error
		sort.SliceStable(matched, func(i, j int) bool {
			for _, f := range q.order {
				desc := strings.HasPrefix(f, "-")
				name := strings.TrimPrefix(f, "-")
				a, aok := q.field(matched[i], name)
				b, bok := q.field(matched[j], name)
				if !aok || !bok {
					sortErr = fmt.Errorf("store: unknown order field %q", name)
					return false
				}
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}
	return matched, nil
}

func (q *MemQuery) matches(r Record) (bool, error) {
	for _, f := range q.filters {
		v, ok := q.field(r, f.field)
		if !ok {
			return false, fmt.Errorf("store: unknown filter field %q", f.field)
		}
		if !reflect.DeepEqual(v, f.value) {
			return false, nil
		}
	}
	return true, nil
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case int:
		bv, _ := b.(int)
		return av - bv
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}
