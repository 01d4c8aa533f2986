// Package dispatch drives a full render pass: it binds the root kyk into
// the template context, resolves embedded component references through the
// kykin protocol, and runs the bounded reload-retry loop. Redirect signals
// propagate out to the HTTP boundary; reload signals restart the pass with
// a new root and/or template.
package dispatch

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"time"

	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/render"
	"github.com/kykwerk/kyk/status"
)

// DefaultMaxAttempts bounds the reload-retry loop. A render that reloads
// on every attempt is a template or programmer error, surfaced as a
// not-found outcome.
const DefaultMaxAttempts = 3

// maxNesting bounds kykin recursion depth, catching components that embed
// themselves.
const maxNesting = 64

// ErrTooManyReloads reports an exhausted retry budget. The boundary maps
// it to a not-found response.
var ErrTooManyReloads = errors.New("dispatch: reload retry budget exhausted")

// Dispatcher renders root components through the kykin pipeline.
type Dispatcher struct {
	Engine *render.Engine
	Kyks   *kyk.Registry
	Status *status.Set
	// Styles maps style names to CSS class lists, exposed to templates.
	Styles map[string]string
	// MaxAttempts bounds the reload loop; DefaultMaxAttempts when zero.
	MaxAttempts int
	Logger      *slog.Logger
	Metrics     *Metrics
}

// New wires a dispatcher. The KYK_DEBUG environment flag switches the
// engine's missing-request behavior from silent-empty to fatal.
func New(engine *render.Engine, kyks *kyk.Registry, set *status.Set, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if engine != nil && os.Getenv("KYK_DEBUG") != "" {
		engine.Debug = true
	}
	return &Dispatcher{
		Engine: engine,
		Kyks:   kyks,
		Status: set,
		Logger: logger,
	}
}

// Render renders rootTemplate with root bound into context, retrying on
// reload signals up to the attempt budget. It returns the final body, a
// *kyk.SignalError carrying a redirect, ErrTooManyReloads on exhaustion,
// or a fatal template/collaborator error.
func (d *Dispatcher) Render(r *kyk.Request, root kyk.Component, rootTemplate kyk.TemplateRef) (string, error) {
	attempts := d.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	start := time.Now()

	for i := 0; i < attempts; i++ {
		if d.Metrics != nil {
			d.Metrics.Attempts.Inc()
		}
		out, err := d.renderOnce(r, root, rootTemplate)
		if err == nil {
			if d.Metrics != nil {
				d.Metrics.Duration.Observe(time.Since(start).Seconds())
			}
			return out, nil
		}

		var sig *kyk.SignalError
		if errors.As(err, &sig) {
			switch s := sig.Signal.(type) {
			case kyk.Redirect:
				// Never retried, translated at the boundary.
				return "", sig
			case kyk.Reload:
				if d.Metrics != nil {
					d.Metrics.Reloads.Inc()
				}
				if s.Kyk != nil {
					root = s.Kyk
				}
				if s.Template != nil {
					rootTemplate = s.Template
				}
				if s.AsGet {
					r = r.AsRead()
				}
				d.Logger.Debug("render reloaded", "attempt", i+1, "as_get", s.AsGet)
				continue
			}
		}
		return "", err
	}

	if d.Metrics != nil {
		d.Metrics.Exhaustions.Inc()
	}
	return "", fmt.Errorf("%w after %d attempts", ErrTooManyReloads, attempts)
}

// renderOnce performs a single pass over the root template.
func (d *Dispatcher) renderOnce(r *kyk.Request, root kyk.Component, ref kyk.TemplateRef) (string, error) {
	base := kyk.Context{
		"kyk":     root,
		"Kyks":    d.Kyks,
		"Status":  d.Status,
		"Styles":  d.Styles,
		"Request": r,
		"User":    r.User,
	}
	funcs := template.FuncMap{"kykin": d.kykinFunc(r, base, 0)}
	return d.Engine.Render(ref, base, funcs)
}
