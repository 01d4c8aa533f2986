// Package form provides the small bound/unbound validating form that
// backs action handlers. Field names are prefixed with the action's
// submitter key so several forms can coexist on one page. This is not a
// widget system; rendering belongs to the form template.
package form

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kykwerk/kyk/kyk"
)

// Kind selects the input rendered for a field.
type Kind string

const (
	Text     Kind = "text"
	Password Kind = "password"
	Textarea Kind = "textarea"
	Hidden   Kind = "hidden"
	Select   Kind = "select"
	Number   Kind = "number"
)

// Choice is a selectable option for Select fields.
type Choice struct {
	Value string
	Label string
}

// Field declares one form field.
type Field struct {
	Name     string
	Label    string
	Kind     Kind
	Required bool
	Initial  string
	Choices  []Choice
	// Validate runs on the raw value after the required check. Return an
	// error to attach a field-level message.
	Validate func(value string) error
}

// Form is a set of fields that can be rendered unbound or bound to
// submitted data. A failed validation re-renders the same stage with
// field-level messages; it never propagates as an error.
type Form struct {
	Prefix string
	Fields []*Field

	bound  bool
	values map[string]string
	errors map[string]string
}

// New builds a form with the given field-name prefix, normally the
// action's submitter key.
func New(prefix string, fields ...*Field) *Form {
	f := &Form{
		Prefix: prefix,
		Fields: fields,
		values: make(map[string]string, len(fields)),
		errors: make(map[string]string),
	}
	for _, fd := range fields {
		if fd.Label == "" {
			fd.Label = kyk.TitleizeName(fd.Name)
		}
		if fd.Initial != "" {
			f.values[fd.Name] = fd.Initial
		}
	}
	return f
}

// Key returns the prefixed input name for a field.
func (f *Form) Key(name string) string {
	if f.Prefix == "" {
		return name
	}
	return f.Prefix + "-" + name
}

// Bind attaches submitted data. Nil data leaves the form unbound, meaning
// "render an empty form".
func (f *Form) Bind(data url.Values) *Form {
	if data == nil {
		return f
	}
	f.bound = true
	for _, fd := range f.Fields {
		f.values[fd.Name] = strings.TrimSpace(data.Get(f.Key(fd.Name)))
	}
	return f
}

// Bound reports whether submitted data was attached.
func (f *Form) Bound() bool { return f.bound }

// Valid validates a bound form and populates field errors. An unbound
// form is never valid.
func (f *Form) Valid() bool {
	if !f.bound {
		return false
	}
	f.errors = make(map[string]string)
	for _, fd := range f.Fields {
		v := f.values[fd.Name]
		if fd.Required && v == "" {
			f.errors[fd.Name] = "This field is required."
			continue
		}
		if len(fd.Choices) > 0 && v != "" && !hasChoice(fd.Choices, v) {
			f.errors[fd.Name] = fmt.Sprintf("%q is not a valid choice.", v)
			continue
		}
		if fd.Validate != nil && v != "" {
			if err := fd.Validate(v); err != nil {
				f.errors[fd.Name] = err.Error()
			}
		}
	}
	return len(f.errors) == 0
}

// Value returns the current raw value of a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Int returns a field value as an integer.
func (f *Form) Int(name string) (int, error) {
	return strconv.Atoi(f.values[name])
}

// SetValue sets a field value, for initial data on edit forms.
func (f *Form) SetValue(name, value string) { f.values[name] = value }

// Error returns the validation message for a field, if any.
func (f *Form) Error(name string) string { return f.errors[name] }

// AddError attaches a message to a field, for failures detected after
// validation (e.g. a storage conflict on a unique column).
func (f *Form) AddError(name, msg string) { f.errors[name] = msg }

// FieldContext is what the form template sees for one field.
type FieldContext struct {
	Key      string
	Label    string
	Kind     Kind
	Required bool
	Value    string
	Choices  []Choice
	Error    string
}

// Context builds the render context consumed by the form template.
func (f *Form) Context(submitter, submitLabel, cancelLabel string) kyk.Context {
	fields := make([]FieldContext, 0, len(f.Fields))
	for _, fd := range f.Fields {
		fields = append(fields, FieldContext{
			Key:      f.Key(fd.Name),
			Label:    fd.Label,
			Kind:     fd.Kind,
			Required: fd.Required,
			Value:    f.values[fd.Name],
			Choices:  fd.Choices,
			Error:    f.errors[fd.Name],
		})
	}
	return kyk.Context{
		"form":         fields,
		"submitter":    submitter,
		"submit_label": submitLabel,
		"cancel_label": cancelLabel,
	}
}

func hasChoice(choices []Choice, v string) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}
