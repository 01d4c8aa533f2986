package user

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/kykwerk/kyk/action"
	"github.com/kykwerk/kyk/form"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/status"
	"github.com/kykwerk/kyk/store"
)

// PanelName is the registry key and identifier of the session panel.
const PanelName = "users"

// Panel is the singleton kyk handling registration, login, logout,
// profile edits and status changes. Its actions follow the stage machine:
// button, form, process.
type Panel struct {
	kyk.StatusGuard
	Users        Store
	Roles        Roles
	Levels       *status.Set
	Template     kyk.TemplateRef
	FormTemplate kyk.TemplateRef
	Logger       *slog.Logger
}

// NewPanel builds the session panel. It is visible to everyone; the
// individual actions decide what each user can do.
func NewPanel(users Store, levels *status.Set, roles Roles, tmpl, formTmpl kyk.TemplateRef, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		StatusGuard:  kyk.StatusGuard{Required: roles.Public},
		Users:        users,
		Roles:        roles,
		Levels:       levels,
		Template:     tmpl,
		FormTemplate: formTmpl,
		Logger:       logger,
	}
}

// Identifier implements kyk.Identifiable.
func (p *Panel) Identifier() string { return PanelName }

// KykIn implements kyk.Component.
func (p *Panel) KykIn(_ *kyk.Request, args kyk.Context) kyk.Result {
	ctx := args.Merged(kyk.Context{"kyk": p})
	return kyk.Fragment{Template: p.Template, Context: ctx}
}

// Register is the account-creation action.
func (p *Panel) Register() kyk.Component {
	a := action.New(p, "register", p.Roles.Public, p.register)
	a.Label = "Register"
	return a
}

func (p *Panel) register(r *kyk.Request, data url.Values, submitter string) kyk.Result {
	f := form.New(submitter,
		&form.Field{Name: "username", Required: true},
		&form.Field{Name: "password1", Label: "Password", Kind: form.Password, Required: true},
		&form.Field{Name: "password2", Label: "Password (again)", Kind: form.Password, Required: true},
	)
	f.Bind(data)
	if f.Bound() && f.Valid() {
		if f.Value("password1") != f.Value("password2") {
			f.AddError("password2", "The two passwords do not match.")
		} else {
			u := &User{Username: f.Value("username")}
			if err := u.SetPassword(f.Value("password1")); err != nil {
				return kyk.Fail{Err: err}
			}
			switch err := p.Users.Create(r.Context(), u); {
			case errors.Is(err, store.ErrConflict):
				f.AddError("username", "This username is already taken.")
			case err != nil:
				return kyk.Fail{Err: err}
			default:
				p.Logger.Info("user registered", "username", u.Username)
				LogIn(r, u, p.Roles)
				return kyk.Redirect{Target: "."}
			}
		}
	}
	return kyk.Fragment{
		Template: p.FormTemplate,
		Context:  f.Context(submitter, "Save", "Cancel"),
	}
}

// LogInAction is the authentication action.
func (p *Panel) LogInAction() kyk.Component {
	a := action.New(p, "login", p.Roles.Public, p.logIn)
	a.Label = "Log In"
	return a
}

func (p *Panel) logIn(r *kyk.Request, data url.Values, submitter string) kyk.Result {
	f := form.New(submitter,
		&form.Field{Name: "username", Required: true},
		&form.Field{Name: "password", Kind: form.Password, Required: true},
	)
	f.Bind(data)
	if f.Bound() && f.Valid() {
		u, err := p.Users.ByUsername(r.Context(), f.Value("username"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			f.AddError("username", "Unknown username or wrong password.")
		case err != nil:
			return kyk.Fail{Err: err}
		case !u.CheckPassword(f.Value("password")):
			f.AddError("username", "Unknown username or wrong password.")
		default:
			p.Logger.Info("user logged in", "username", u.Username)
			LogIn(r, u, p.Roles)
			return kyk.Redirect{Target: "."}
		}
	}
	return kyk.Fragment{
		Template: p.FormTemplate,
		Context:  f.Context(submitter, "Log in", ""),
	}
}

// LogOutAction renders a one-click logout form; the submission clears the
// session and redirects to prevent resubmission.
func (p *Panel) LogOutAction() kyk.Component {
	return kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		submitter := p.Identifier() + "-logout"
		if r.IsWrite() && r.Form.Has(submitter) {
			p.Logger.Info("user logged out", "user", r.User.Key())
			LogOut(r, p.Roles)
			return kyk.Redirect{Target: "."}
		}
		return kyk.PostButton(p.FormTemplate, submitter, "Log out", nil)
	})
}

// LogInOut shows login for anonymous visitors and logout for everyone
// else.
func (p *Panel) LogInOut() kyk.Component {
	return kyk.Func(func(r *kyk.Request, args kyk.Context) kyk.Result {
		if r.User.Anonymous() {
			return p.LogInAction().KykIn(r, args)
		}
		return p.LogOutAction().KykIn(r, args)
	})
}

// Edit is the profile action; users may edit their own account.
func (p *Panel) Edit() kyk.Component {
	a := action.New(p, "edit", p.Roles.User, p.edit)
	a.Label = "Profile"
	return a
}

func (p *Panel) edit(r *kyk.Request, data url.Values, submitter string) kyk.Result {
	me, ok := r.User.(*User)
	if !ok || me.Anonymous() {
		return kyk.Text("")
	}
	f := form.New(submitter,
		&form.Field{Name: "email", Kind: form.Text},
	)
	f.SetValue("email", me.Email)
	f.Bind(data)
	if f.Bound() && f.Valid() {
		me.Email = f.Value("email")
		if err := p.Users.Save(r.Context(), me); err != nil {
			return kyk.Fail{Err: err}
		}
		return kyk.Redirect{Target: "."}
	}
	return kyk.Fragment{
		Template: p.FormTemplate,
		Context:  f.Context(submitter, "Save", "Cancel"),
	}
}

// ChangeStatus lets a user drop to a lower status (or climb back up to
// their maximum). The choice list is capped at the user's maximum, so the
// invariant effectiveStatus <= maxStatus holds by construction.
func (p *Panel) ChangeStatus() kyk.Component {
	a := action.New(p, "setstatus", p.Roles.Public, p.changeStatus)
	a.Label = "Set Status"
	return a
}

func (p *Panel) changeStatus(r *kyk.Request, data url.Values, submitter string) kyk.Result {
	choices := make([]form.Choice, 0)
	for _, c := range p.Levels.Choices(r.User.MaxStatus()) {
		choices = append(choices, form.Choice{
			Value: fmt.Sprintf("%d", int(c.Value)),
			Label: c.Name,
		})
	}
	f := form.New(submitter,
		&form.Field{Name: "status", Label: "Select status", Kind: form.Select, Required: true, Choices: choices},
	)
	f.SetValue("status", fmt.Sprintf("%d", int(r.User.Status())))
	f.Bind(data)
	if f.Bound() && f.Valid() {
		n, err := f.Int("status")
		if err == nil {
			r.Session.Set(SessionStatus, n)
			if me, ok := r.User.(*User); ok {
				ComputeStatus(me, r.Session, p.Roles)
			}
			return kyk.Redirect{Target: "."}
		}
	}
	return kyk.Fragment{
		Template: p.FormTemplate,
		Context:  f.Context(submitter, "Set status", ""),
	}
}
