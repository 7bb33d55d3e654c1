package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chandama/touken-west-sub001/internal/user"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = `id, email, username, password_hash, role, google_id, facebook_id,
	auth_method, email_verified, display_name, avatar_url, created_at, updated_at`

// UserStore implements user.Store on PostgreSQL.
type UserStore struct {
	db *DB
}

var _ user.Store = (*UserStore)(nil)

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u          user.User
		id         uuid.UUID
		googleID   sql.NullString
		facebookID sql.NullString
	)
	err := row.Scan(
		&id,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Role,
		&googleID,
		&facebookID,
		&u.AuthMethod,
		&u.EmailVerified,
		&u.DisplayName,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, wrapError(err)
	}
	u.ID = id.String()
	u.GoogleID = googleID.String
	u.FacebookID = facebookID.String
	return &u, nil
}

func wrapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return user.ErrDuplicate
	}
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uid))
}

func (s *UserStore) FindByProviderID(ctx context.Context, p user.Provider, id string) (*user.User, error) {
	if id == "" || !p.Supported() {
		return nil, user.ErrNotFound
	}
	// Column names come from the fixed provider table, never from input.
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+p.Column()+` = $1`, id))
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	id := uuid.New()
	if u.ID != "" {
		parsed, err := uuid.Parse(u.ID)
		if err != nil {
			return fmt.Errorf("db: invalid user id %q: %w", u.ID, err)
		}
		id = parsed
	}

	var createdAt, updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, role, google_id, facebook_id,
			auth_method, email_verified, display_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		id,
		u.Email,
		u.Username,
		u.PasswordHash,
		u.Role,
		nullable(u.GoogleID),
		nullable(u.FacebookID),
		u.AuthMethod,
		u.EmailVerified,
		u.DisplayName,
		u.AvatarURL,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return wrapError(err)
	}

	u.ID = id.String()
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return nil
}

func (s *UserStore) Update(ctx context.Context, id string, upd user.Update) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrNotFound
	}

	var (
		sets = []string{"updated_at = NOW()"}
		args []any
	)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.AuthMethod != nil {
		add("auth_method", *upd.AuthMethod)
	}
	if upd.DisplayName != nil {
		add("display_name", *upd.DisplayName)
	}
	if upd.AvatarURL != nil {
		add("avatar_url", *upd.AvatarURL)
	}
	if upd.EmailVerified != nil {
		add("email_verified", *upd.EmailVerified)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.Link != nil && upd.Link.Provider.Supported() {
		add(upd.Link.Provider.Column(), nullable(upd.Link.ID))
	}

	args = append(args, uid)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "),
		len(args),
	)

	return scanUser(s.db.QueryRowContext(ctx, query, args...))
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return user.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *UserStore) List(ctx context.Context) ([]*user.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		out = append(out, u)
	}
	return out, rows.Err()
}
