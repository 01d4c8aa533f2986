package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kykwerk/kyk/dispatch"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/render"
	"github.com/kykwerk/kyk/status"
	"github.com/kykwerk/kyk/user"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStack wires a handler over string templates and an in-memory user
// store, no database.
func testStack(t *testing.T, templates map[string]string) (*Handler, *kyk.Registry) {
	t.Helper()
	engine, err := render.NewEngine("", nil)
	require.NoError(t, err)
	for name, text := range templates {
		require.NoError(t, engine.AddString(name, text))
	}

	kyks := kyk.NewRegistry()
	dispatcher := &dispatch.Dispatcher{
		Engine: engine,
		Kyks:   kyks,
		Status: status.DefaultSet(),
		Logger: discardLogger(),
	}

	h := &Handler{
		Dispatcher:   dispatcher,
		Sessions:     NewSessionStore("kyk_session", time.Hour, false),
		Roles:        user.DefaultRoles(),
		PageTemplate: "page.html",
		Logger:       discardLogger(),
	}
	return h, kyks
}

func serve(h *Handler, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterHTTPHandlers(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestKykRouteRendersRegisteredComponent(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `<main>{{kykin .kyk}}</main>`})
	require.NoError(t, kyks.Register("news", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Text("headline")
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/news", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<main>headline</main>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestUnknownKykIs404(t *testing.T) {
	h, _ := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	w := serve(h, httptest.NewRequest("GET", "/k/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirectOutcome(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("away", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Redirect{Target: "/pages/"}
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/away", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pages/", w.Header().Get("Location"))
}

func TestPermanentRedirectOutcome(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("moved", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Redirect{Target: "/new/", Permanent: true}
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/moved", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
}

func TestReloadExhaustionIs404(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("loop", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Reload{}
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/loop", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownPageTemplateIs500(t *testing.T) {
	// A page template that fails to resolve is a deployment problem, not a
	// missing resource.
	h, kyks := testStack(t, map[string]string{})
	require.NoError(t, kyks.Register("news", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Text("headline")
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/news", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFatalRenderIs500(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("boom", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		return kyk.Failf("storage exploded")
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "storage exploded", "internal detail stays out of the response")
}

func TestSessionCookiePersistsAcrossRequests(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("whoami", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		if v, ok := r.Session.Get("seen"); ok {
			return kyk.Text("seen " + v.(string))
		}
		r.Session.Set("seen", "before")
		return kyk.Text("first visit")
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/whoami", nil))
	assert.Equal(t, "first visit", w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	again := httptest.NewRequest("GET", "/k/whoami", nil)
	for _, c := range cookies {
		again.AddCookie(c)
	}
	w = serve(h, again)
	assert.Equal(t, "seen before", w.Body.String())
}

func TestAnonymousStatusIsPublic(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("status", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		if r.User.Status() == status.Public && r.User.Anonymous() {
			return kyk.Text("public")
		}
		return kyk.Text("other")
	})))

	w := serve(h, httptest.NewRequest("GET", "/k/status", nil))
	assert.Equal(t, "public", w.Body.String())
}

func TestGuardedKykRendersEmptyForLowStatus(t *testing.T) {
	h, kyks := testStack(t, map[string]string{
		"page.html":  `[{{kykin .kyk}}]`,
		"admin.html": `secret`,
	})
	require.NoError(t, kyks.Register("admin", kyk.NewStatic("admin", "admin.html", status.Administrator, nil)))

	w := serve(h, httptest.NewRequest("GET", "/k/admin", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestPostFormReachesComponent(t *testing.T) {
	h, kyks := testStack(t, map[string]string{"page.html": `{{kykin .kyk}}`})
	require.NoError(t, kyks.Register("echo", kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		if r.IsWrite() {
			return kyk.Text(r.Form.Get("payload"))
		}
		return kyk.Text("")
	})))

	body := url.Values{"payload": {"delivered"}}.Encode()
	req := httptest.NewRequest("POST", "/k/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := serve(h, req)
	assert.Equal(t, "delivered", w.Body.String())
}
