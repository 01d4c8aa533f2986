// Package render adapts html/template to the kyk pipeline: a named
// template set loaded from a directory, string-registered templates for
// simple kyks, and per-pass function injection so the dispatcher can bind
// the kykin resolver to the current request.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kykwerk/kyk/kyk"
)

// ErrUnknownTemplate reports a template name that resolves to nothing.
// This is a configuration error: it surfaces immediately and is never
// retried.
var ErrUnknownTemplate = errors.New("unknown template")

// templateGlob matches template files under the template directory.
const templateGlob = "**/*.html"

// Engine holds the parsed template set. The base set is never executed
// directly; each render pass executes a clone with the pass's funcs bound,
// so concurrent requests do not share mutable template state.
type Engine struct {
	mu      sync.RWMutex
	dir     string
	set     *template.Template
	strings map[string]string
	logger  *slog.Logger

	// Debug makes a kykin reference outside a dispatcher-bound render an
	// error instead of silently rendering empty.
	Debug bool
}

// NewEngine loads all templates under dir. Dir may be empty for an engine
// holding only string-registered templates.
func NewEngine(dir string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		dir:     dir,
		strings: make(map[string]string),
		logger:  logger,
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// baseFuncs returns the parse-time function table. The kykin stub only
// runs when a template is rendered without a dispatcher binding; the
// dual debug/production behavior of that case lives here.
func (e *Engine) baseFuncs() template.FuncMap {
	return template.FuncMap{
		"kykin": func(any, ...any) (template.HTML, error) {
			if e.Debug {
				return "", kyk.ErrNoRequest
			}
			return "", nil
		},
	}
}

// Reload re-parses the template directory and re-adds string-registered
// templates. Safe to call concurrently with renders.
func (e *Engine) Reload() error {
	set := template.New("").Funcs(e.baseFuncs())

	if e.dir != "" {
		fsys := os.DirFS(e.dir)
		names, err := doublestar.Glob(fsys, templateGlob)
		if err != nil {
			return fmt.Errorf("glob templates: %w", err)
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("read template %s: %w", name, err)
			}
			if _, err := set.New(filepath.ToSlash(name)).Parse(string(data)); err != nil {
				return fmt.Errorf("parse template %s: %w", name, err)
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for name, text := range e.strings {
		if _, err := set.New(name).Parse(text); err != nil {
			return fmt.Errorf("parse string template %s: %w", name, err)
		}
	}
	e.set = set
	return nil
}

// AddString registers an in-memory template under name, for simple kyks
// built from literal template text. Registered strings survive reloads.
func (e *Engine) AddString(name, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.set.New(name).Parse(text); err != nil {
		return fmt.Errorf("parse string template %s: %w", name, err)
	}
	e.strings[name] = text
	return nil
}

// FromString compiles standalone template text with the engine's function
// table, for components that carry a pre-compiled template object.
func (e *Engine) FromString(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.baseFuncs()).Parse(text)
}

// Has reports whether a named template exists.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set.Lookup(name) != nil
}

// Render executes the referenced template with ctx. ref is a template
// name or a pre-compiled *template.Template; anything else is a malformed
// reference. funcs, when non-nil, override the parse-time function table
// for this pass (this is how the dispatcher binds kykin to a request).
func (e *Engine) Render(ref kyk.TemplateRef, ctx any, funcs template.FuncMap) (string, error) {
	var tmpl *template.Template

	switch t := ref.(type) {
	case string:
		e.mu.RLock()
		set := e.set
		e.mu.RUnlock()
		clone, err := set.Clone()
		if err != nil {
			return "", fmt.Errorf("clone template set: %w", err)
		}
		if funcs != nil {
			clone = clone.Funcs(funcs)
		}
		tmpl = clone.Lookup(t)
		if tmpl == nil {
			return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, t)
		}
	case *template.Template:
		clone, err := t.Clone()
		if err != nil {
			return "", fmt.Errorf("clone template: %w", err)
		}
		if funcs != nil {
			clone = clone.Funcs(funcs)
		}
		tmpl = clone
	case nil:
		return "", fmt.Errorf("%w: nil reference", ErrUnknownTemplate)
	default:
		return "", fmt.Errorf("%w: malformed reference %T", ErrUnknownTemplate, ref)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
