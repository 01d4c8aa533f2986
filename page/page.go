// Package page is the model-backed kyk shipped with the framework: a
// persisted page with create, edit and delete actions built on the stage
// machine, an author override on the mutating actions, and a paginated
// list. It doubles as the reference for wiring new models.
package page

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/status"
)

// TypeLabel identifies the page model; it is the class-level identifier
// used by the create action and prefixes every instance identifier.
const TypeLabel = "page"

// Page is one persisted page.
type Page struct {
	ID        int64
	Title     string
	Body      string
	AuthorID  int64
	AuthorKey string
	Created   time.Time
	Updated   time.Time

	svc *Service
}

// PK implements store.Record.
func (p *Page) PK() int64 { return p.ID }

// TypeLabel implements store.Record.
func (p *Page) TypeLabel() string { return TypeLabel }

// Identifier implements kyk.Identifiable: "<type-label>-<pk>", stable
// across the button-form-submit sequence.
func (p *Page) Identifier() string {
	return fmt.Sprintf("%s-%d", TypeLabel, p.ID)
}

// AbsoluteURL implements kyk.Linker.
func (p *Page) AbsoluteURL() string {
	return fmt.Sprintf("/p/%d/", p.ID)
}

// Allowed implements kyk.Guard: viewing needs the configured view status.
func (p *Page) Allowed(u kyk.User) bool {
	return u.Status() >= p.svc.cfg.ViewStatus
}

// KykIn implements kyk.Component.
func (p *Page) KykIn(_ *kyk.Request, args kyk.Context) kyk.Result {
	ctx := args.Merged(kyk.Context{"kyk": p})
	return kyk.Fragment{Template: p.svc.cfg.ModelTemplate, Context: ctx}
}

// Config sets the thresholds and templates for the page model.
type Config struct {
	// ViewStatus gates rendering a page at all.
	ViewStatus status.Level
	// EditStatus gates create, edit and delete for non-authors.
	EditStatus status.Level
	// AuthorStatus is the relaxed threshold for a page's own author.
	AuthorStatus status.Level

	ModelTemplate kyk.TemplateRef
	FormTemplate  kyk.TemplateRef
	ListTemplate  kyk.TemplateRef

	// OrderBy is the default list ordering.
	OrderBy []string
	// ListURL is where deletions land; defaults to the page list.
	ListURL string
}

// DefaultConfig returns the conventional thresholds: anyone with USER
// status reads pages, EDITORs mutate them, authors mutate their own at
// USER.
func DefaultConfig() Config {
	return Config{
		ViewStatus:    status.User,
		EditStatus:    status.Editor,
		AuthorStatus:  status.User,
		ModelTemplate: "model.html",
		FormTemplate:  "form.html",
		ListTemplate:  "list.html",
		OrderBy:       []string{"-created"},
		ListURL:       "/pages/",
	}
}

// Service carries the storage handle and configuration shared by pages
// and their actions.
type Service struct {
	cfg    Config
	db     *sql.DB
	logger *slog.Logger
}

// NewService builds the page service.
func NewService(db *sql.DB, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, db: db, logger: logger}
}

// adopt attaches the service backlink to a scanned page.
func (s *Service) adopt(p *Page) *Page {
	p.svc = s
	return p
}

// List builds the paginated list kyk over all pages, with the add
// affordance deferring to the create action (which carries the model's
// own create permission).
func (s *Service) List() *kyk.List {
	return &kyk.List{
		StatusGuard: kyk.StatusGuard{Required: s.cfg.ViewStatus},
		Source:      s.Query,
		Add:         s.Create(),
		OrderBy:     s.cfg.OrderBy,
		Template:    s.cfg.ListTemplate,
		PageSize:    kyk.DefaultPageSize,
	}
}
