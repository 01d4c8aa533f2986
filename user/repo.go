package user

import (
	"context"
	"database/sql"

	"github.com/kykwerk/kyk/store"
)

// Store is the persistence boundary the panel works against. The sqlite
// Repo is the shipped implementation; tests use an in-memory fake.
type Store interface {
	ByID(ctx context.Context, id int64) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	// Create inserts a new user; a duplicate username maps to
	// store.ErrConflict.
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
}

// Repo is the sqlite-backed user store.
type Repo struct {
	db *sql.DB
}

// NewRepo wraps a database handle.
func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

const userColumns = `id, username, email, password_hash, is_staff, is_superuser, joined`

func (r *Repo) ByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *Repo) ByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO users(username, email, password_hash, is_staff, is_superuser, joined)
	VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		u.Username, u.Email, u.PasswordHash, u.IsStaff, u.IsSuperuser)
	if err != nil {
		return store.MapError(err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *Repo) Save(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE users SET username = ?, email = ?, password_hash = ?, is_staff = ?, is_superuser = ?
	WHERE id = ?`,
		u.Username, u.Email, u.PasswordHash, u.IsStaff, u.IsSuperuser, u.ID)
	return store.MapError(err)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.IsSuperuser, &u.Joined)
	if err != nil {
		return nil, store.MapError(err)
	}
	return &u, nil
}
