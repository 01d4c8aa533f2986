package kyk

import "github.com/kykwerk/kyk/status"

// Static is a fixed-template component: a name, a template and optional
// extra attributes exposed to that template.
type Static struct {
	StatusGuard
	name     string
	Template TemplateRef
	Attrs    Context
}

// NewStatic builds a static kyk. The name doubles as its identifier and
// as its registry key.
func NewStatic(name string, template TemplateRef, required status.Level, attrs Context) *Static {
	return &Static{
		StatusGuard: StatusGuard{Required: required},
		name:        name,
		Template:    template,
		Attrs:       attrs,
	}
}

// Identifier implements Identifiable.
func (s *Static) Identifier() string { return s.name }

// AbsoluteURL implements Linker.
func (s *Static) AbsoluteURL() string { return "/k/" + s.name }

// KykIn implements Component.
func (s *Static) KykIn(_ *Request, args Context) Result {
	ctx := s.Attrs.Merged(args)
	ctx["kyk"] = s
	return Fragment{Template: s.Template, Context: ctx}
}
