package store

import "context"

// TouchTyping upserts a typing record.
func (q *Queries) TouchTyping(ctx context.Context, userID, conversationID string, at int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO typing (user_id, conversation_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, conversation_id) DO UPDATE SET updated_at = excluded.updated_at`,
		userID, conversationID, at)
	return err
}

// DeleteTyping removes a typing record. Missing records are not an error.
func (q *Queries) DeleteTyping(ctx context.Context, userID, conversationID string) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM typing WHERE user_id = ? AND conversation_id = ?`, userID, conversationID)
	return err
}

// ListTyping returns every typing record of a conversation.
func (q *Queries) ListTyping(ctx context.Context, conversationID string) ([]Typing, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT user_id, conversation_id, updated_at
		FROM typing WHERE conversation_id = ? ORDER BY updated_at DESC, user_id`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Typing
	for rows.Next() {
		var t Typing
		if err := rows.Scan(&t.UserID, &t.ConversationID, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTypingBefore removes typing records last updated before cutoff and
// returns how many were removed.
func (q *Queries) DeleteTypingBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM typing WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
