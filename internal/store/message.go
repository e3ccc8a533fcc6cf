package store

import (
	"context"
	"database/sql"
)

// InsertMessage appends a message.
func (q *Queries) InsertMessage(ctx context.Context, m *Message) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.IsDeleted, m.CreatedAt)
	return err
}

// GetMessage returns a message by id, or nil.
func (q *Queries) GetMessage(ctx context.Context, id string) (*Message, error) {
	var m Message
	err := q.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, is_deleted, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsDeleted, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageDeleted flips the soft-delete flag. Content is left in place.
func (q *Queries) MarkMessageDeleted(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE messages SET is_deleted = 1 WHERE id = ?`, id)
	return err
}

// ListMessages returns every message of a conversation, oldest first, joined
// with its sender. Sender is nil when the user row is missing.
func (q *Queries) ListMessages(ctx context.Context, conversationID string) ([]MessageRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, m.content, m.is_deleted, m.created_at,
			u.id, u.external_id, u.name, u.email, u.image_url, u.last_seen_at, u.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.rowid ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []MessageRow
	for rows.Next() {
		var r MessageRow
		var u nullableUser
		if err := rows.Scan(
			&r.ID, &r.ConversationID, &r.SenderID, &r.Content, &r.IsDeleted, &r.CreatedAt,
			&u.id, &u.externalID, &u.name, &u.email, &u.image, &u.lastSeen, &u.created,
		); err != nil {
			return nil, err
		}
		r.Sender = u.user()
		msgs = append(msgs, r)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of messages.
func (q *Queries) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// nullableUser scans the columns of a LEFT JOINed users row.
type nullableUser struct {
	id, externalID, name, email, image sql.NullString
	lastSeen, created                  sql.NullInt64
}

func (n *nullableUser) user() *User {
	if !n.id.Valid {
		return nil
	}
	return &User{
		ID:         n.id.String,
		ExternalID: n.externalID.String,
		Name:       n.name.String,
		Email:      n.email.String,
		ImageURL:   n.image.String,
		LastSeenAt: n.lastSeen.Int64,
		CreatedAt:  n.created.Int64,
	}
}
