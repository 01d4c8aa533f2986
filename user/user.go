// Package user holds the user record, the effective-status computation
// recomputed on every request, and the session panel kyk handling
// registration, login, logout and status changes.
package user

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/status"
)

// Session keys used by the status computation and the panel actions.
const (
	SessionUserID  = "user_id"
	SessionStatus  = "status"
	SessionIsHuman = "is_human"
)

// User is a persisted account. The status fields are request-scoped: the
// middleware recomputes them on every request, and login, logout and
// status changes recompute them mid-request.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	Joined       time.Time

	status    status.Level
	maxStatus status.Level
}

// Anonymous returns a fresh unauthenticated user. Request-scoped status
// is mutated per request, so anonymous users are never shared.
func Anonymous() *User { return &User{} }

// Key implements kyk.User.
func (u *User) Key() string {
	if u == nil || u.ID == 0 {
		return ""
	}
	return "user-" + strconv.FormatInt(u.ID, 10)
}

// Status implements kyk.User.
func (u *User) Status() status.Level { return u.status }

// MaxStatus implements kyk.User.
func (u *User) MaxStatus() status.Level { return u.maxStatus }

// Anonymous implements kyk.User.
func (u *User) Anonymous() bool { return u == nil || u.ID == 0 }

// PK implements store.Record.
func (u *User) PK() int64 { return u.ID }

// TypeLabel implements store.Record.
func (u *User) TypeLabel() string { return "user" }

// Identifier implements kyk.Identifiable.
func (u *User) Identifier() string {
	if u.Anonymous() {
		return "user"
	}
	return fmt.Sprintf("user-%d", u.ID)
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Roles are the well-known levels the status computation needs, resolved
// once at startup from the configured status set.
type Roles struct {
	Public        status.Level
	Human         status.Level
	User          status.Level
	Agent         status.Level
	Administrator status.Level
}

// RolesFrom resolves the well-known role levels from a status set.
func RolesFrom(s *status.Set) (Roles, error) {
	var r Roles
	for _, role := range []struct {
		name string
		dst  *status.Level
	}{
		{"PUBLIC", &r.Public},
		{"HUMAN", &r.Human},
		{"USER", &r.User},
		{"AGENT", &r.Agent},
		{"ADMINISTRATOR", &r.Administrator},
	} {
		l, ok := s.Level(role.name)
		if !ok {
			return Roles{}, fmt.Errorf("user: status set is missing required level %q", role.name)
		}
		*role.dst = l
	}
	return r, nil
}

// DefaultRoles resolves the roles from the canonical status set.
func DefaultRoles() Roles {
	r, err := RolesFrom(status.DefaultSet())
	if err != nil {
		panic(err) // the default set carries every role
	}
	return r
}

// ComputeStatus derives and caches the request-scoped status pair on u.
// Maximum status: unauthenticated users get HUMAN when the session says a
// human check passed, else PUBLIC; superusers get ADMINISTRATOR; staff get
// AGENT; everyone else USER. The effective status is the session-stored
// status (default USER) capped at the maximum.
func ComputeStatus(u *User, sess kyk.Session, roles Roles) {
	switch {
	case u.Anonymous():
		if sessionBool(sess, SessionIsHuman) {
			u.maxStatus = roles.Human
		} else {
			u.maxStatus = roles.Public
		}
	case u.IsSuperuser:
		u.maxStatus = roles.Administrator
	case u.IsStaff:
		u.maxStatus = roles.Agent
	default:
		u.maxStatus = roles.User
	}
	stored := sessionLevel(sess, SessionStatus, roles.User)
	if stored > u.maxStatus {
		stored = u.maxStatus
	}
	u.status = stored
}

// LogIn binds the user to the session and recomputes status immediately,
// so the remainder of the render pass sees the new privileges.
func LogIn(r *kyk.Request, u *User, roles Roles) {
	r.Session.Set(SessionUserID, u.ID)
	ComputeStatus(u, r.Session, roles)
	r.User = u
}

// LogOut unbinds the session user and downgrades the request to an
// anonymous user with recomputed status.
func LogOut(r *kyk.Request, roles Roles) {
	r.Session.Delete(SessionUserID)
	r.Session.Delete(SessionStatus)
	anon := Anonymous()
	ComputeStatus(anon, r.Session, roles)
	r.User = anon
}

func sessionBool(sess kyk.Session, key string) bool {
	if sess == nil {
		return false
	}
	v, ok := sess.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func sessionLevel(sess kyk.Session, key string, def status.Level) status.Level {
	if sess == nil {
		return def
	}
	v, ok := sess.Get(key)
	if !ok {
		return def
	}
	switch l := v.(type) {
	case status.Level:
		return l
	case int:
		return status.Level(l)
	case int64:
		return status.Level(l)
	default:
		return def
	}
}
