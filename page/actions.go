package page

import (
	"context"
	"database/sql"
	"errors"
	"net/url"

	"github.com/kykwerk/kyk/action"
	"github.com/kykwerk/kyk/form"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/store"
)

// conflictAlert is the inline alert rendered when a storage conflict
// blocks a mutation; the request still completes normally.
const conflictAlert = kyk.HTML(`<p><span class="alert label">This item could not be deleted.</span></p>`)

// Create is the class-level action adding a new page. Its owner is the
// type label itself, so the triggering query parameter reads
// ?create=page.
func (s *Service) Create() kyk.Component {
	a := action.New(action.StaticOwner(TypeLabel), "create", s.cfg.EditStatus, func(r *kyk.Request, data url.Values, submitter string) kyk.Result {
		return s.processForm(r, data, submitter, nil)
	})
	a.Label = "Create Page"
	return a
}

// Edit is the per-instance edit action. The page's author may edit at the
// relaxed author threshold; everyone else needs the edit status.
func (p *Page) Edit() kyk.Component {
	a := action.New(p, "edit", p.svc.cfg.EditStatus, func(r *kyk.Request, data url.Values, submitter string) kyk.Result {
		return p.svc.processForm(r, data, submitter, p)
	})
	a.Guard = p.mutateGuard()
	return a
}

// Delete asks for confirmation, deletes on submission, and renders an
// inline alert when referential integrity blocks the deletion.
func (p *Page) Delete() kyk.Component {
	a := action.New(p, "delete", p.svc.cfg.EditStatus, func(r *kyk.Request, data url.Values, submitter string) kyk.Result {
		if data == nil {
			return kyk.Fragment{
				Template: p.svc.cfg.FormTemplate,
				Context: kyk.Context{
					"alert":        "Are you sure you want to delete this item?",
					"submitter":    submitter,
					"submit_label": "Confirm",
					"cancel_label": "Cancel",
				},
			}
		}
		switch err := p.svc.DeletePage(r.Context(), p); {
		case errors.Is(err, store.ErrConflict):
			return conflictAlert
		case err != nil:
			return kyk.Fail{Err: err}
		}
		p.svc.logger.Info("page deleted", "page", p.Identifier(), "user", r.User.Key())
		return kyk.Redirect{Target: p.svc.cfg.ListURL}
	})
	a.Guard = p.mutateGuard()
	return a
}

// mutateGuard is the composed access check for edit and delete: author
// override in front of the general status threshold. The plain status
// check stays reachable as the fallback.
func (p *Page) mutateGuard() kyk.Guard {
	return kyk.AuthorGuard{
		AuthorKey:    p.AuthorKey,
		AuthorStatus: p.svc.cfg.AuthorStatus,
		Next:         kyk.StatusGuard{Required: p.svc.cfg.EditStatus},
	}
}

// processForm presents and processes the page form for create (instance
// nil) and edit. Invalid data re-renders the same stage with field
// messages; a successful save redirects to prevent resubmission.
func (s *Service) processForm(r *kyk.Request, data url.Values, submitter string, instance *Page) kyk.Result {
	f := form.New(submitter,
		&form.Field{Name: "title", Required: true},
		&form.Field{Name: "body", Kind: form.Textarea},
	)
	if instance != nil {
		f.SetValue("title", instance.Title)
		f.SetValue("body", instance.Body)
	}
	f.Bind(data)
	if f.Bound() && f.Valid() {
		pg := instance
		if pg == nil {
			pg = s.adopt(&Page{
				AuthorKey: r.User.Key(),
			})
			if u, ok := r.User.(interface{ PK() int64 }); ok {
				pg.AuthorID = u.PK()
			}
		}
		pg.Title = f.Value("title")
		pg.Body = f.Value("body")
		switch err := s.SavePage(r.Context(), pg); {
		case errors.Is(err, store.ErrConflict):
			f.AddError("title", "A page with this title already exists.")
		case err != nil:
			return kyk.Fail{Err: err}
		default:
			s.logger.Info("page saved", "page", pg.Identifier(), "user", r.User.Key())
			if instance == nil {
				// Land on the new page.
				return kyk.Redirect{Target: pg}
			}
			return kyk.Redirect{Target: "."}
		}
	}
	return kyk.Fragment{
		Template: s.cfg.FormTemplate,
		Context:  f.Context(submitter, "Save", "Cancel"),
	}
}

// SavePage inserts or updates a page and records a revision row in the
// same transaction, so a page never exists without its history.
func (s *Service) SavePage(ctx context.Context, p *Page) error {
	err := store.WithTx(s.db, func(tx *sql.Tx) error {
		if p.ID == 0 {
			res, err := tx.ExecContext(ctx, `
			INSERT INTO pages(title, body, author_id, author_key, created, updated)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
				p.Title, p.Body, p.AuthorID, p.AuthorKey)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			p.ID = id
		} else {
			if _, err := tx.ExecContext(ctx, `
			UPDATE pages SET title = ?, body = ?, updated = CURRENT_TIMESTAMP
			WHERE id = ?`, p.Title, p.Body, p.ID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
		INSERT INTO page_revisions(page_id, title, body, author_key, saved)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
			p.ID, p.Title, p.Body, p.AuthorKey)
		return err
	})
	return store.MapError(err)
}

// DeletePage removes a page and its revisions in one transaction.
// Foreign keys elsewhere may block it, surfacing store.ErrConflict.
func (s *Service) DeletePage(ctx context.Context, p *Page) error {
	err := store.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM page_revisions WHERE page_id = ?`, p.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, p.ID)
		return err
	})
	return store.MapError(err)
}
