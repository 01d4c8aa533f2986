package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kykwerk/kyk/dispatch"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/page"
	"github.com/kykwerk/kyk/store"
	"github.com/kykwerk/kyk/user"
)

// Handler serves kyk views. Every route builds a request with a freshly
// computed user status, renders the addressed component inside the outer
// page template, and translates the outcome to an HTTP response.
type Handler struct {
	Dispatcher *dispatch.Dispatcher
	Sessions   *SessionStore
	Users      user.Store
	Roles      user.Roles
	Pages      *page.Service
	// PageTemplate is the outer template wrapped around every view.
	PageTemplate string
	// Home is the component rendered at "/". Nil yields not found.
	Home   kyk.Component
	Logger *slog.Logger
}

// RegisterHTTPHandlers registers the view endpoints on mux.
func (h *Handler) RegisterHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/k/", h.handleKyk)
	mux.HandleFunc("/p/", h.handlePage)
	mux.HandleFunc("/pages/", h.handlePageList)
	mux.HandleFunc("/", h.handleHome)
}

// request builds the component-facing request: session from the cookie,
// user from the session, status recomputed for this request.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) *kyk.Request {
	sess := h.Sessions.Load(w, r)

	u := user.Anonymous()
	if v, ok := sess.Get(user.SessionUserID); ok {
		if id, ok := v.(int64); ok && h.Users != nil {
			if loaded, err := h.Users.ByID(r.Context(), id); err == nil {
				u = loaded
			} else if !errors.Is(err, store.ErrNotFound) {
				h.Logger.Warn("session user load failed", "user_id", id, "error", err)
			}
		}
	}
	user.ComputeStatus(u, sess, h.Roles)

	return kyk.FromHTTP(r, u, sess)
}

// handleKyk serves /k/{name}: a registered kyk addressed by name.
func (h *Handler) handleKyk(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/k/"), "/")
	c, ok := h.Dispatcher.Kyks.Lookup(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, c)
}

// handlePage serves /p/{pk}/: one stored page.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/p/"), "/")
	pk, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p, err := h.Pages.Get(r.Context(), pk)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.Logger.Error("page load failed", "pk", pk, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, p)
}

// handlePageList serves /pages/: the paginated page list.
func (h *Handler) handlePageList(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, h.Pages.List())
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || h.Home == nil {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, h.Home)
}

// render runs the dispatcher on root inside the outer page template and
// writes the outcome: the body on success, a redirect for redirect
// signals, not-found for exhausted reload budgets, and a logged server
// error otherwise. A denied component renders as an
// empty slot inside a normal page, so denial never reaches this layer.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, root kyk.Component) {
	req := h.request(w, r)

	body, err := h.Dispatcher.Render(req, root, h.PageTemplate)
	if err == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
		return
	}

	var sig *kyk.SignalError
	if errors.As(err, &sig) {
		if rd, ok := sig.Signal.(kyk.Redirect); ok {
			target, terr := rd.TargetURL()
			if terr != nil {
				h.Logger.Error("unresolvable redirect", "error", terr)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			code := http.StatusFound
			if rd.Permanent {
				code = http.StatusMovedPermanently
			}
			http.Redirect(w, r, target, code)
			return
		}
	}

	if errors.Is(err, dispatch.ErrTooManyReloads) {
		h.Logger.Warn("reload budget exhausted", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}
	// An unresolvable template is a configuration error, not a missing
	// resource.
	h.Logger.Error("render failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
