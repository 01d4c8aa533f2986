package user

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kykwerk/kyk/form"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/status"
	"github.com/kykwerk/kyk/store"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	users  map[int64]*User
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*User), nextID: 1}
}

func (s *fakeStore) ByID(_ context.Context, id int64) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) ByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) Create(_ context.Context, u *User) error {
	if _, err := s.ByUsername(context.Background(), u.Username); err == nil {
		return fmt.Errorf("duplicate username: %w", store.ErrConflict)
	}
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	return nil
}

func (s *fakeStore) Save(_ context.Context, u *User) error {
	s.users[u.ID] = u
	return nil
}

func testPanel(users Store) *Panel {
	return NewPanel(users, status.DefaultSet(), DefaultRoles(), "users.html", "form.html", nil)
}

func panelRequest(method, rawQuery, body string, u *User, sess kyk.MapSession) *kyk.Request {
	q, _ := url.ParseQuery(rawQuery)
	f, _ := url.ParseQuery(body)
	if f == nil {
		f = url.Values{}
	}
	ComputeStatus(u, sess, DefaultRoles())
	return &kyk.Request{Method: method, Query: q, Form: f, User: u, Session: sess}
}

func formErrors(t *testing.T, res kyk.Result) []form.FieldContext {
	t.Helper()
	frag, ok := res.(kyk.Fragment)
	require.True(t, ok, "expected a form fragment, got %T", res)
	fields, ok := frag.Context["form"].([]form.FieldContext)
	require.True(t, ok)
	return fields
}

func fieldError(fields []form.FieldContext, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Error
		}
	}
	return ""
}

func TestRegisterHappyPath(t *testing.T) {
	users := newFakeStore()
	p := testPanel(users)
	sess := kyk.MapSession{}

	body := "users-register=submit&users-register-username=ada&users-register-password1=pw&users-register-password2=pw"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), sess)

	res := p.Register().KykIn(r, kyk.Context{})
	_, ok := res.(kyk.Redirect)
	require.True(t, ok, "expected a redirect, got %T", res)

	// The new account is stored, hashed and logged in.
	u, err := users.ByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.True(t, u.CheckPassword("pw"))
	assert.Equal(t, u, r.User)
	v, _ := sess.Get(SessionUserID)
	assert.Equal(t, u.ID, v)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	p := testPanel(newFakeStore())
	body := "users-register=submit&users-register-username=ada&users-register-password1=pw&users-register-password2=other"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), kyk.MapSession{})

	res := p.Register().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)
	assert.Equal(t, "The two passwords do not match.", fieldError(fields, "users-register-password2"))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	users := newFakeStore()
	require.NoError(t, users.Create(context.Background(), &User{Username: "ada"}))
	p := testPanel(users)

	body := "users-register=submit&users-register-username=ada&users-register-password1=pw&users-register-password2=pw"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), kyk.MapSession{})

	res := p.Register().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)
	assert.Equal(t, "This username is already taken.", fieldError(fields, "users-register-username"))
}

func TestLogInWrongPassword(t *testing.T) {
	users := newFakeStore()
	ada := &User{Username: "ada"}
	require.NoError(t, ada.SetPassword("right"))
	require.NoError(t, users.Create(context.Background(), ada))
	p := testPanel(users)

	body := "users-login=submit&users-login-username=ada&users-login-password=wrong"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), kyk.MapSession{})

	res := p.LogInAction().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)

	// Wrong password and unknown username produce the same message, so
	// probing cannot tell accounts apart.
	assert.Equal(t, "Unknown username or wrong password.", fieldError(fields, "users-login-username"))
}

func TestLogInUnknownUsername(t *testing.T) {
	p := testPanel(newFakeStore())
	body := "users-login=submit&users-login-username=ghost&users-login-password=x"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), kyk.MapSession{})

	res := p.LogInAction().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)
	assert.Equal(t, "Unknown username or wrong password.", fieldError(fields, "users-login-username"))
}

func TestLogInSuccess(t *testing.T) {
	users := newFakeStore()
	ada := &User{Username: "ada"}
	require.NoError(t, ada.SetPassword("pw"))
	require.NoError(t, users.Create(context.Background(), ada))
	p := testPanel(users)
	sess := kyk.MapSession{}

	body := "users-login=submit&users-login-username=ada&users-login-password=pw"
	r := panelRequest(http.MethodPost, "", body, Anonymous(), sess)

	res := p.LogInAction().KykIn(r, kyk.Context{})
	_, ok := res.(kyk.Redirect)
	require.True(t, ok, "expected a redirect, got %T", res)
	assert.Equal(t, ada, r.User)
	assert.Equal(t, status.User, r.User.Status())
}

func TestLogOutAction(t *testing.T) {
	p := testPanel(newFakeStore())
	sess := kyk.MapSession{SessionUserID: int64(7)}
	me := &User{ID: 7, Username: "ada"}

	// A read renders the one-click form.
	r := panelRequest(http.MethodGet, "", "", me, sess)
	res := p.LogOutAction().KykIn(r, kyk.Context{})
	frag, ok := res.(kyk.Fragment)
	require.True(t, ok)
	assert.Equal(t, "users-logout", frag.Context["submitter"])

	// The submission clears the session and redirects.
	r = panelRequest(http.MethodPost, "", "users-logout=submit", me, sess)
	res = p.LogOutAction().KykIn(r, kyk.Context{})
	_, ok = res.(kyk.Redirect)
	require.True(t, ok, "expected a redirect, got %T", res)
	assert.True(t, r.User.Anonymous())
	_, ok = sess.Get(SessionUserID)
	assert.False(t, ok)
}

func TestLogInOutSwitches(t *testing.T) {
	p := testPanel(newFakeStore())

	r := panelRequest(http.MethodGet, "", "", Anonymous(), kyk.MapSession{})
	res := p.LogInOut().KykIn(r, kyk.Context{})
	html, ok := res.(kyk.HTML)
	require.True(t, ok, "anonymous users see the login button, got %T", res)
	assert.Contains(t, string(html), "login=users")

	r = panelRequest(http.MethodGet, "", "", &User{ID: 1}, kyk.MapSession{})
	res = p.LogInOut().KykIn(r, kyk.Context{})
	frag, ok := res.(kyk.Fragment)
	require.True(t, ok, "signed-in users see the logout form, got %T", res)
	assert.Equal(t, "users-logout", frag.Context["submitter"])
}

func TestChangeStatusCapsChoices(t *testing.T) {
	p := testPanel(newFakeStore())
	me := &User{ID: 1} // max USER
	r := panelRequest(http.MethodGet, "setstatus=users", "", me, kyk.MapSession{})

	res := p.ChangeStatus().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)
	require.Len(t, fields, 1)

	// Only levels up to the user's maximum are offered.
	assert.Len(t, fields[0].Choices, int(status.User))
}

func TestChangeStatusStoresChoice(t *testing.T) {
	p := testPanel(newFakeStore())
	sess := kyk.MapSession{}
	me := &User{ID: 1, IsSuperuser: true}

	body := fmt.Sprintf("users-setstatus=submit&users-setstatus-status=%d", int(status.Editor))
	r := panelRequest(http.MethodPost, "", body, me, sess)

	res := p.ChangeStatus().KykIn(r, kyk.Context{})
	_, ok := res.(kyk.Redirect)
	require.True(t, ok, "expected a redirect, got %T", res)
	assert.Equal(t, status.Editor, me.Status())

	v, _ := sess.Get(SessionStatus)
	assert.Equal(t, int(status.Editor), v)
}

func TestChangeStatusRejectsAboveMax(t *testing.T) {
	p := testPanel(newFakeStore())
	me := &User{ID: 1} // max USER

	body := fmt.Sprintf("users-setstatus=submit&users-setstatus-status=%d", int(status.Administrator))
	r := panelRequest(http.MethodPost, "", body, me, kyk.MapSession{})

	res := p.ChangeStatus().KykIn(r, kyk.Context{})
	fields := formErrors(t, res)
	assert.NotEmpty(t, fieldError(fields, "users-setstatus-status"),
		"a level above the maximum is not among the choices")
}

func TestEditUpdatesEmail(t *testing.T) {
	users := newFakeStore()
	me := &User{Username: "ada"}
	require.NoError(t, users.Create(context.Background(), me))
	p := testPanel(users)

	body := "users-edit=submit&users-edit-email=ada%40example.org"
	r := panelRequest(http.MethodPost, "", body, me, kyk.MapSession{})

	res := p.Edit().KykIn(r, kyk.Context{})
	_, ok := res.(kyk.Redirect)
	require.True(t, ok, "expected a redirect, got %T", res)

	stored, err := users.ByID(context.Background(), me.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", stored.Email)
}

func TestPanelKykIn(t *testing.T) {
	p := testPanel(newFakeStore())
	res := p.KykIn(nil, kyk.Context{"extra": 1})
	frag, ok := res.(kyk.Fragment)
	require.True(t, ok)
	assert.Equal(t, "users.html", frag.Template)
	assert.Equal(t, p, frag.Context["kyk"])
	assert.Equal(t, 1, frag.Context["extra"])
}
