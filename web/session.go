// Package web is the HTTP boundary: cookie sessions, the request
// middleware that binds a user with a freshly computed status, the kyk
// view handlers, and outcome translation from render results to HTTP
// responses.
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one visitor's mutable key-value state. It satisfies the
// session contract components rely on for login state and status choice.
type Session struct {
	id      string
	expires time.Time

	mu     sync.RWMutex
	values map[string]any
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// ID returns the opaque session identifier carried by the cookie.
func (s *Session) ID() string { return s.id }

// SessionStore keeps sessions in memory, keyed by a random cookie value.
// Sessions die with the process; persistent session backends can replace
// this behind the same methods.
type SessionStore struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore builds a session store with the given cookie settings.
func NewSessionStore(cookieName string, maxAge time.Duration, secure bool) *SessionStore {
	return &SessionStore{
		CookieName: cookieName,
		MaxAge:     maxAge,
		Secure:     secure,
		sessions:   make(map[string]*Session),
	}
}

// Load returns the session for the request's cookie, creating a new one
// when the cookie is absent, unknown or expired. The cookie is set on the
// response when a session is created.
func (st *SessionStore) Load(w http.ResponseWriter, r *http.Request) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if c, err := r.Cookie(st.CookieName); err == nil {
		if s, ok := st.sessions[c.Value]; ok && time.Now().Before(s.expires) {
			return s
		}
	}

	s := &Session{
		id:      uuid.NewString(),
		expires: time.Now().Add(st.MaxAge),
		values:  make(map[string]any),
	}
	st.sessions[s.id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     st.CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(st.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   st.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Prune drops expired sessions. Call it periodically from the server.
func (st *SessionStore) Prune() {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	for id, s := range st.sessions {
		if now.After(s.expires) {
			delete(st.sessions, id)
		}
	}
}
