// Package kyk defines the component contract shared by every renderable
// unit: given a request, a component produces either a final string or a
// (template, context) pair, gated by a per-user status check. Redirects and
// reloads are ordinary result values that the dispatcher inspects, not
// hidden control transfer.
package kyk

import (
	"fmt"
	"html/template"

	"github.com/kykwerk/kyk/status"
)

// TemplateRef names a template. It is either a string resolved by the
// render engine, or a pre-compiled *template.Template executed directly.
// Anything else is a malformed reference and fails the render pass.
type TemplateRef = any

// Context is the extra context a component contributes to its template.
type Context map[string]any

// Merged returns a copy of c with overlay entries added on top.
func (c Context) Merged(overlay Context) Context {
	out := make(Context, len(c)+len(overlay))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Int reads an integer entry, falling back to def when absent or mistyped.
func (c Context) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// String reads a string entry, falling back to def when absent.
func (c Context) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Component is anything renderable through the kykin pipeline.
type Component interface {
	// KykIn renders the component for the given request. The args carry
	// call-site parameters from the embedding template.
	KykIn(r *Request, args Context) Result
}

// Func adapts a plain function to the Component interface.
type Func func(r *Request, args Context) Result

// KykIn implements Component.
func (f Func) KykIn(r *Request, args Context) Result { return f(r, args) }

// Identifiable is implemented by components with a stable identifier,
// correlating them across the button-form-submit request sequence.
type Identifiable interface {
	Identifier() string
}

// Linker is implemented by components that have a canonical URL.
type Linker interface {
	AbsoluteURL() string
}

// User is the requesting principal as seen by access checks.
type User interface {
	// Key is a stable identity key, empty for anonymous users.
	Key() string
	// Status is the effective status for this request.
	Status() status.Level
	// MaxStatus is the highest status this user may assume.
	MaxStatus() status.Level
	// Anonymous reports whether the user is unauthenticated.
	Anonymous() bool
}

// Result is what a component render produces. The concrete variants are
// Text, HTML, Fragment, Redirect, Reload and Fail.
type Result interface {
	kykResult()
}

// Text is a final plain string; the dispatcher escapes it before splicing.
type Text string

// HTML is final trusted markup, spliced without further escaping.
// Produce it from trusted literals or an html/template render.
type HTML template.HTML

// Fragment is a (template, context) pair rendered recursively with the
// surrounding context merged in.
type Fragment struct {
	Template TemplateRef
	Context  Context
}

// Redirect aborts the render pass entirely and is translated by the HTTP
// boundary into a redirect response. Target is a URL string or a Linker.
type Redirect struct {
	Target    any
	Permanent bool
}

// TargetURL resolves the redirect target to a URL string.
func (rd Redirect) TargetURL() (string, error) {
	switch t := rd.Target.(type) {
	case string:
		return t, nil
	case Linker:
		return t.AbsoluteURL(), nil
	default:
		return "", fmt.Errorf("kyk: cannot resolve redirect target %T", rd.Target)
	}
}

// Reload restarts the render pass with a different root kyk and/or
// template; unset fields default to the previous ones. AsGet forces the
// retried request to a read with an empty body.
type Reload struct {
	Kyk      Component
	Template TemplateRef
	AsGet    bool
}

// Fail aborts the render pass with an error. Used for collaborator
// failures (storage, misconfiguration) that are not part of the normal
// empty-on-deny or inline-alert flows.
type Fail struct {
	Err error
}

func (Text) kykResult()     {}
func (HTML) kykResult()     {}
func (Fragment) kykResult() {}
func (Redirect) kykResult() {}
func (Reload) kykResult()   {}
func (Fail) kykResult()     {}

// Failf builds a Fail result.
func Failf(format string, args ...any) Fail {
	return Fail{Err: fmt.Errorf(format, args...)}
}

// SignalError carries a Redirect or Reload out of a template render pass.
// The dispatcher unwraps it with errors.As and acts on the signal; it is
// never shown to a user.
type SignalError struct {
	Signal Result // Redirect or Reload
}

func (e *SignalError) Error() string {
	switch s := e.Signal.(type) {
	case Redirect:
		return fmt.Sprintf("redirect signal (permanent=%v)", s.Permanent)
	case Reload:
		return fmt.Sprintf("reload signal (as_get=%v)", s.AsGet)
	default:
		return "render signal"
	}
}
