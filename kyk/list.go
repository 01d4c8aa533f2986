package kyk

import (
	"github.com/kykwerk/kyk/store"
)

// DefaultPageSize is the list page size when neither the call site nor the
// request overrides it.
const DefaultPageSize = 20

// List renders a filtered, ordered, paginated query of model-backed kyks,
// with an optional "add new" affordance that defers to the model's own
// create action.
type List struct {
	StatusGuard
	// Source builds a fresh query per render pass; reusing one query
	// across requests would replay stale results.
	Source func() store.Query
	// Add is the add-new affordance, already gated by the model's create
	// permission. Nil means the list is read-only.
	Add Component
	// OrderBy is the default ordering list. A call-site order_by_field
	// argument is applied in front of it.
	OrderBy  []string
	Template TemplateRef
	PageSize int
}

// KykIn implements Component. index and size call-site defaults are
// overridden by identically named read parameters on the request.
func (l *List) KykIn(r *Request, args Context) Result {
	size := l.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	index := r.QueryInt("index", args.Int("index", 0))
	size = r.QueryInt("size", args.Int("size", size))
	if index < 0 {
		index = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	q := l.Source()
	order := l.OrderBy
	if extra := args.String("order_by_field", ""); extra != "" {
		order = append([]string{extra}, l.OrderBy...)
	}
	if len(order) > 0 {
		q = q.OrderBy(order...)
	}

	count, err := q.Count()
	if err != nil {
		return Fail{Err: err}
	}

	previous := index - size
	if previous < 0 {
		previous = 0
	}
	next := index + size
	end := next
	if next >= count {
		end = -1 // to the end
		next = 0 // no next page
	}
	items, err := q.Slice(index, end)
	if err != nil {
		return Fail{Err: err}
	}

	ctx := args.Merged(Context{
		"previous_index": previous,
		"next_index":     next,
		"index":          index,
		"size":           size,
		"kyk_list":       items,
		"kyk_add":        l.Add,
		"kyk":            l,
	})
	return Fragment{Template: l.Template, Context: ctx}
}
