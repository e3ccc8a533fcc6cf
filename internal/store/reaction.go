package store

import (
	"context"
	"database/sql"
)

// GetReaction returns userID's reaction on a message, or nil.
func (q *Queries) GetReaction(ctx context.Context, messageID, userID string) (*Reaction, error) {
	var r Reaction
	err := q.db.QueryRowContext(ctx, `
		SELECT id, message_id, user_id, type, created_at
		FROM reactions WHERE message_id = ? AND user_id = ?`, messageID, userID).
		Scan(&r.ID, &r.MessageID, &r.UserID, &r.Type, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReaction adds a reaction.
func (q *Queries) InsertReaction(ctx context.Context, r *Reaction) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reactions (id, message_id, user_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.MessageID, r.UserID, r.Type, r.CreatedAt)
	return err
}

// ReplaceReaction overwrites the type of an existing reaction and refreshes its timestamp.
func (q *Queries) ReplaceReaction(ctx context.Context, id, typ string, at int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE reactions SET type = ?, created_at = ? WHERE id = ?`, typ, at, id)
	return err
}

// DeleteReaction removes a reaction.
func (q *Queries) DeleteReaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM reactions WHERE id = ?`, id)
	return err
}

// ListReactions returns the reactions on a conversation's visible messages,
// joined with the reactor, ordered by message then reaction time. Reactions on
// soft-deleted messages stay stored but are not returned.
func (q *Queries) ListReactions(ctx context.Context, conversationID string) ([]ReactionRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.message_id, r.user_id, r.type, r.created_at,
			u.id, u.external_id, u.name, u.email, u.image_url, u.last_seen_at, u.created_at
		FROM reactions r
		JOIN messages m ON m.id = r.message_id
		LEFT JOIN users u ON u.id = r.user_id
		WHERE m.conversation_id = ? AND m.is_deleted = 0
		ORDER BY m.created_at, r.message_id, r.created_at, r.id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ReactionRow
	for rows.Next() {
		var r ReactionRow
		var u nullableUser
		if err := rows.Scan(
			&r.ID, &r.MessageID, &r.UserID, &r.Type, &r.CreatedAt,
			&u.id, &u.externalID, &u.name, &u.email, &u.image, &u.lastSeen, &u.created,
		); err != nil {
			return nil, err
		}
		r.User = u.user()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReactionsForMessage returns every stored reaction on a message, including
// those on soft-deleted messages.
func (q *Queries) ReactionsForMessage(ctx context.Context, messageID string) ([]Reaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, message_id, user_id, type, created_at
		FROM reactions WHERE message_id = ? ORDER BY created_at, id`, messageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.ID, &r.MessageID, &r.UserID, &r.Type, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
