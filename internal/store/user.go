package store

import (
	"context"
	"database/sql"
	"strings"
)

const userColumns = `id, external_id, name, email, image_url, last_seen_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var u User
	var image sql.NullString
	if err := s.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &image, &u.LastSeenAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ImageURL = image.String
	return &u, nil
}

// InsertUserIfAbsent inserts u unless a user with the same external id exists.
// Reports whether a row was inserted.
func (q *Queries) InsertUserIfAbsent(ctx context.Context, u *User) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, name, email, image_url, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING`,
		u.ID, u.ExternalID, u.Name, u.Email, nullString(u.ImageURL), u.LastSeenAt, u.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetUserByExternalID returns the user for an identity-provider subject, or nil.
func (q *Queries) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUser returns a user by internal id, or nil.
func (q *Queries) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUsers returns the users among ids that exist, keyed by id.
func (q *Queries) GetUsers(ctx context.Context, ids []string) (map[string]*User, error) {
	out := make(map[string]*User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// TouchUser sets last_seen_at for a user.
func (q *Queries) TouchUser(ctx context.Context, id string, at int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_seen_at = ? WHERE id = ?`, at, id)
	return err
}

// ListUsers returns every user except excludeID, ordered by name. A non-empty
// search keeps users whose name or email contains it, case-insensitively.
func (q *Queries) ListUsers(ctx context.Context, excludeID, search string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id != ?`
	args := []any{excludeID}
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query += ` AND (lower(name) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of users.
func (q *Queries) UserCount(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
