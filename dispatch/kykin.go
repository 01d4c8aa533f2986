package dispatch

import (
	"fmt"
	"html"
	"html/template"

	"github.com/kykwerk/kyk/kyk"
)

// kykinFunc builds the kykin template function for one render pass,
// closing over the request and the enclosing context so nested fragments
// see merged context the way the outer template does.
func (d *Dispatcher) kykinFunc(r *kyk.Request, base kyk.Context, depth int) func(any, ...any) (template.HTML, error) {
	return func(ref any, pairs ...any) (template.HTML, error) {
		if depth > maxNesting {
			return "", fmt.Errorf("kykin: nesting deeper than %d, component embeds itself?", maxNesting)
		}
		args, err := pairsToContext(pairs)
		if err != nil {
			return "", err
		}
		return d.resolve(r, base, ref, args, depth)
	}
}

// resolve renders one embedded component reference: registry lookup for
// strings, access check, render-in call, result splicing. A denied access
// check renders as empty output by design, never as an error.
func (d *Dispatcher) resolve(r *kyk.Request, base kyk.Context, ref any, args kyk.Context, depth int) (template.HTML, error) {
	var c kyk.Component
	switch v := ref.(type) {
	case nil:
		return "", nil
	case string:
		if registered, ok := d.Kyks.Lookup(v); ok {
			c = registered
		} else {
			// Not a registered kyk: splice the string itself.
			return template.HTML(html.EscapeString(v)), nil
		}
	case kyk.Component:
		c = v
	case func(*kyk.Request, kyk.Context) kyk.Result:
		c = kyk.Func(v)
	default:
		if s, ok := ref.(fmt.Stringer); ok {
			return template.HTML(html.EscapeString(s.String())), nil
		}
		return "", fmt.Errorf("kykin: %T is not renderable", ref)
	}

	if !kyk.Allowed(c, r.User) {
		if d.Metrics != nil {
			d.Metrics.Denials.Inc()
		}
		return "", nil
	}

	return d.splice(r, base, c.KykIn(r, args), depth)
}

// splice converts a render result into escaped output, recursing into
// fragments and converting signals into errors the retry loop inspects.
func (d *Dispatcher) splice(r *kyk.Request, base kyk.Context, res kyk.Result, depth int) (template.HTML, error) {
	switch v := res.(type) {
	case nil:
		return "", nil
	case kyk.Text:
		return template.HTML(html.EscapeString(string(v))), nil
	case kyk.HTML:
		return template.HTML(v), nil
	case kyk.Fragment:
		ctx := base.Merged(v.Context)
		funcs := template.FuncMap{"kykin": d.kykinFunc(r, ctx, depth+1)}
		out, err := d.Engine.Render(v.Template, ctx, funcs)
		if err != nil {
			return "", err
		}
		return template.HTML(out), nil
	case kyk.Redirect:
		return "", &kyk.SignalError{Signal: v}
	case kyk.Reload:
		return "", &kyk.SignalError{Signal: v}
	case kyk.Fail:
		return "", v.Err
	default:
		return "", fmt.Errorf("kykin: unsupported result %T", res)
	}
}

// pairsToContext converts trailing key/value arguments of a kykin call
// into a Context. Keys must be strings and values must pair up.
func pairsToContext(pairs []any) (kyk.Context, error) {
	if len(pairs) == 0 {
		return kyk.Context{}, nil
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("kykin: arguments must be key/value pairs, got %d values", len(pairs))
	}
	args := make(kyk.Context, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("kykin: argument key %v is not a string", pairs[i])
		}
		args[key] = pairs[i+1]
	}
	return args, nil
}
