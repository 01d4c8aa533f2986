package kyk

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kykwerk/kyk/status"
	"github.com/kykwerk/kyk/store"
)

type numbered int64

func (n numbered) PK() int64         { return int64(n) }
func (n numbered) TypeLabel() string { return "numbered" }

func numberedQuery(count int) func() store.Query {
	records := make([]store.Record, count)
	for i := range records {
		records[i] = numbered(i + 1)
	}
	return func() store.Query {
		return store.NewMemQuery(records, func(r store.Record, name string) (any, bool) {
			if name == "pk" || name == "id" {
				return r.PK(), true
			}
			return nil, false
		})
	}
}

func listRequest(query string) *Request {
	q, _ := url.ParseQuery(query)
	return &Request{
		Method: http.MethodGet,
		Query:  q,
		Form:   url.Values{},
		User:   testUser{key: "user-1", status: status.User},
	}
}

func renderList(t *testing.T, l *List, r *Request, args Context) Context {
	t.Helper()
	res := l.KykIn(r, args)
	frag, ok := res.(Fragment)
	require.True(t, ok, "expected a fragment, got %T", res)
	return frag.Context
}

func TestListFirstPage(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	ctx := renderList(t, l, listRequest(""), Context{})

	assert.Equal(t, 0, ctx["index"])
	assert.Equal(t, 0, ctx["previous_index"])
	assert.Equal(t, 20, ctx["next_index"])
	assert.Len(t, ctx["kyk_list"], 20)
}

func TestListMiddlePage(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	ctx := renderList(t, l, listRequest("index=20"), Context{})

	assert.Equal(t, 0, ctx["previous_index"])
	assert.Equal(t, 40, ctx["next_index"])
	assert.Len(t, ctx["kyk_list"], 20)
}

func TestListLastPageExtendsToEnd(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	ctx := renderList(t, l, listRequest("index=40"), Context{})

	// The final slice runs to the end and no next page is offered.
	assert.Equal(t, 20, ctx["previous_index"])
	assert.Equal(t, 0, ctx["next_index"])
	assert.Len(t, ctx["kyk_list"], 10)
}

func TestListPreviousIndexNeverNegative(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	// An index smaller than the page size still yields a usable previous
	// link pointing at the start.
	ctx := renderList(t, l, listRequest("index=5"), Context{})
	assert.Equal(t, 0, ctx["previous_index"])
}

func TestListRequestOverridesArgs(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	ctx := renderList(t, l, listRequest("index=10&size=5"), Context{"index": 30, "size": 25})

	assert.Equal(t, 10, ctx["index"])
	assert.Equal(t, 5, ctx["size"])
	assert.Len(t, ctx["kyk_list"], 5)
}

func TestListArgsDefaultWithoutQuery(t *testing.T) {
	l := &List{Source: numberedQuery(50), Template: "list.html", PageSize: 20}

	ctx := renderList(t, l, listRequest(""), Context{"index": 30, "size": 5})

	assert.Equal(t, 30, ctx["index"])
	assert.Equal(t, 5, ctx["size"])
}

func TestListOrderByFieldArgPrepends(t *testing.T) {
	l := &List{
		Source:   numberedQuery(3),
		Template: "list.html",
		OrderBy:  []string{"pk"},
	}

	ctx := renderList(t, l, listRequest(""), Context{"order_by_field": "-pk"})

	items := ctx["kyk_list"].([]store.Record)
	require.Len(t, items, 3)
	assert.Equal(t, int64(3), items[0].PK())
}

func TestListSourceErrorFails(t *testing.T) {
	l := &List{
		Source: func() store.Query {
			return store.NewMemQuery(nil, nil).Filter("bogus", 1)
		},
		Template: "list.html",
	}

	res := l.KykIn(listRequest(""), Context{})
	fail, ok := res.(Fail)
	require.True(t, ok, "expected Fail, got %T", res)
	assert.Error(t, fail.Err)
}

func TestTitleizeName(t *testing.T) {
	assert.Equal(t, "Change Status", TitleizeName("change_status"))
	assert.Equal(t, "Delete", TitleizeName("delete"))
}

func TestGetButtonEscapesLabel(t *testing.T) {
	b := GetButton("edit", "page-1", "<b>Edit</b>", "")
	assert.NotContains(t, string(b), "<b>")
	assert.Contains(t, string(b), "edit=page-1")
}

func TestURLWithGet(t *testing.T) {
	assert.Equal(t, "./?edit=page-1", URLWithGet("edit", "page-1", "."))
	assert.Equal(t, "/pages/?create=page", URLWithGet("create", "page", "/pages/"))
}
