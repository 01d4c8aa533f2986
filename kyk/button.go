package kyk

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// URLWithGet appends the triggering ?name=code query to a base URL.
// "." means the current page.
func URLWithGet(name, code, base string) string {
	base = strings.TrimSuffix(base, "/")
	return fmt.Sprintf("%s/?%s=%s", base, url.QueryEscape(name), url.QueryEscape(code))
}

// GetButton renders the clickable affordance that issues a read request
// with the triggering query parameter ?name=code. Label and style are
// escaped; the result is trusted markup.
func GetButton(name, code, label, style string) HTML {
	if label == "" {
		label = TitleizeName(name)
	}
	class := "button"
	if style != "" {
		class += " " + style
	}
	return HTML(fmt.Sprintf(`<a class=%q href=%q>%s</a>`,
		class, URLWithGet(name, code, "."), html.EscapeString(label)))
}

// PostButton renders a one-field form that produces a write request
// carrying submitter as its submission key.
func PostButton(formTemplate TemplateRef, submitter, label string, extra Context) Result {
	ctx := Context{
		"submitter":    submitter,
		"submit_label": label,
		"cancel_label": "",
	}
	return Fragment{Template: formTemplate, Context: ctx.Merged(extra)}
}

// TitleizeName turns an action name like "change_status" into a display
// label like "Change Status".
func TitleizeName(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
