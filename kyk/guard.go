package kyk

import "github.com/kykwerk/kyk/status"

// Guard is the optional access-check capability. A component without a
// guard is visible to everyone. Guards are plain values, so they compose:
// an outer guard can wrap an inner one and the undecorated check stays
// reachable for subtypes that relax restrictions.
type Guard interface {
	Allowed(u User) bool
}

// Allowed checks whether u may see c. Components without a Guard are
// always allowed; a denied check renders as empty output, never an error.
func Allowed(c any, u User) bool {
	if g, ok := c.(Guard); ok {
		return g.Allowed(u)
	}
	return true
}

// StatusGuard gates by a single required status level.
type StatusGuard struct {
	Required status.Level
}

// Allowed implements Guard.
func (g StatusGuard) Allowed(u User) bool {
	return u.Status() >= g.Required
}

// RequiredStatus exposes the threshold for callers that need it.
func (g StatusGuard) RequiredStatus() status.Level { return g.Required }

// AuthorGuard grants the designated author of a component at a distinct,
// typically lower, threshold. When the author condition fails it falls
// back to the wrapped guard.
type AuthorGuard struct {
	// AuthorKey is the identity key of the designated author; empty means
	// no author is set and only the fallback applies.
	AuthorKey string
	// AuthorStatus is the status the author needs for the override.
	AuthorStatus status.Level
	// Next is the fallback check for non-authors. Nil denies non-authors.
	Next Guard
}

// Allowed implements Guard.
func (g AuthorGuard) Allowed(u User) bool {
	if g.AuthorKey != "" && !u.Anonymous() && u.Key() == g.AuthorKey {
		if u.Status() >= g.AuthorStatus {
			return true
		}
	}
	if g.Next != nil {
		return g.Next.Allowed(u)
	}
	return false
}
