// Package status defines the ordered privilege levels that gate access to
// kyks and their actions. A Set is built once at startup (usually from
// configuration) and is immutable afterwards.
package status

import (
	"fmt"
	"strings"
)

// Level is an ordered privilege level. Higher values carry more privilege.
type Level int

// Canonical levels of the default set. Code that works against a custom set
// should resolve levels by name instead.
const (
	Public Level = iota + 1
	Human
	User
	Editor
	Staff
	Agent
	Administrator
)

// DefaultNames is the canonical ordered level list, lowest first.
var DefaultNames = []string{
	"PUBLIC", "HUMAN", "USER", "EDITOR", "STAFF", "AGENT", "ADMINISTRATOR",
}

// Set is an immutable ordered enumeration of named levels.
// Levels are assigned 1..n in the order the names are given.
type Set struct {
	names   []string
	byName  map[string]Level
	highest Level
}

// NewSet builds a Set from an ordered list of names, lowest first.
// Names must be non-empty and unique (case-insensitive).
func NewSet(names ...string) (*Set, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("status: at least one level name is required")
	}
	s := &Set{
		names:  make([]string, len(names)),
		byName: make(map[string]Level, len(names)),
	}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("status: empty level name at position %d", i)
		}
		key := strings.ToUpper(name)
		if _, dup := s.byName[key]; dup {
			return nil, fmt.Errorf("status: duplicate level name %q", name)
		}
		s.names[i] = key
		s.byName[key] = Level(i + 1)
	}
	s.highest = Level(len(names))
	return s, nil
}

// DefaultSet returns the canonical seven-level set.
func DefaultSet() *Set {
	s, err := NewSet(DefaultNames...)
	if err != nil {
		panic(err) // DefaultNames are valid by construction
	}
	return s
}

// Level resolves a level by name (case-insensitive).
func (s *Set) Level(name string) (Level, bool) {
	l, ok := s.byName[strings.ToUpper(name)]
	return l, ok
}

// MustLevel resolves a level by name and panics if it is unknown.
// Intended for startup wiring, where a missing level is a programmer error.
func (s *Set) MustLevel(name string) Level {
	l, ok := s.Level(name)
	if !ok {
		panic(fmt.Sprintf("status: unknown level %q", name))
	}
	return l
}

// Name returns the name of a level.
func (s *Set) Name(l Level) (string, bool) {
	if l < 1 || l > s.highest {
		return "", false
	}
	return s.names[l-1], true
}

// Highest returns the most privileged level in the set.
func (s *Set) Highest() Level { return s.highest }

// Names returns the level names in ascending order of privilege.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Choice is a (value, name) pair for building selection fields.
type Choice struct {
	Value Level
	Name  string
}

// Choices returns ascending (value, name) pairs capped at max.
// Storing names rather than raw values is safer when levels are persisted,
// so the pairs carry both.
func (s *Set) Choices(max Level) []Choice {
	var out []Choice
	for i, name := range s.names {
		l := Level(i + 1)
		if l > max {
			break
		}
		out = append(out, Choice{Value: l, Name: name})
	}
	return out
}
