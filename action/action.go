// Package action implements the stateful, multi-stage affordance attached
// to a component: show a button, show a form, process the form. The stage
// is a pure function of the request and the owner's identifier; nothing is
// stored between requests.
package action

import (
	"net/url"

	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/status"
)

// Stage is the state of an action within one request.
type Stage int

const (
	// PresentButton shows the clickable affordance.
	PresentButton Stage = iota + 1
	// PresentForm shows the unbound form after the button was followed.
	PresentForm
	// ProcessForm binds and processes the submitted form data.
	ProcessForm
)

// Owner is the component an action is bound to. The identifier must be
// stable across the button-form-submit request sequence.
type Owner interface {
	Identifier() string
}

// StaticOwner is a fixed identifier for class-level actions that are not
// attached to any instance, such as "create a new item of this type".
type StaticOwner string

// Identifier implements Owner.
func (s StaticOwner) Identifier() string { return string(s) }

// Handler renders the form stages. data is the write body at ProcessForm
// and nil at PresentForm (meaning "render the unbound form"). It returns a
// final string (action complete), a form fragment, or a redirect.
type Handler func(r *kyk.Request, data url.Values, submitter string) kyk.Result

// Action binds a named, status-gated, multi-stage affordance to one owner
// instance. Construct a fresh one per render pass; actions are never
// persisted across requests.
type Action struct {
	// Name is the stable action key, used as the triggering query
	// parameter and as part of the submission key.
	Name string
	// Label is the button text; derived from Name when empty.
	Label string
	// Owner is the component the action acts on.
	Owner Owner
	// Handle renders the form stages.
	Handle Handler
	// Guard gates the action. Nil allows everyone.
	Guard kyk.Guard
	// Style is extra button styling.
	Style string
}

// New builds an action gated by a single required status level.
func New(owner Owner, name string, required status.Level, h Handler) *Action {
	return &Action{
		Name:   name,
		Owner:  owner,
		Handle: h,
		Guard:  kyk.StatusGuard{Required: required},
	}
}

// Allowed implements kyk.Guard.
func (a *Action) Allowed(u kyk.User) bool {
	if a.Guard == nil {
		return true
	}
	return a.Guard.Allowed(u)
}

// Submitter is the unique form-submission key for this action on this
// owner: "<identifier>-<name>".
func (a *Action) Submitter() string {
	return a.Owner.Identifier() + "-" + a.Name
}

// StageOf derives the stage from the request. It is a pure function of
// (method, query, body, owner identifier, action name): the same request
// always yields the same stage.
func (a *Action) StageOf(r *kyk.Request) Stage {
	if !r.IsWrite() && r.Query.Get(a.Name) == a.Owner.Identifier() {
		return PresentForm
	}
	if r.IsWrite() && r.Form.Has(a.Submitter()) {
		return ProcessForm
	}
	return PresentButton
}

// KykIn implements kyk.Component. At PresentButton it renders the
// affordance; at the form stages it invokes the handler, passing the write
// body only when the form is actually being processed.
func (a *Action) KykIn(r *kyk.Request, args kyk.Context) kyk.Result {
	stage := a.StageOf(r)
	if stage <= PresentButton {
		return a.Button(r)
	}
	var data url.Values
	if stage == ProcessForm {
		data = r.Form
	}
	return a.Handle(r, data, a.Submitter())
}

// Button renders the clickable affordance. When another stage of this
// action is concurrently active the button is styled disabled, preventing
// duplicate submission from a second click.
func (a *Action) Button(r *kyk.Request) kyk.Result {
	style := a.Style
	if a.StageOf(r) > PresentButton {
		if style != "" {
			style += " "
		}
		style += "disabled"
	}
	return kyk.GetButton(a.Name, a.Owner.Identifier(), a.Label, style)
}
