package store

import (
	"context"
	"database/sql"
)

// AdvanceRead moves the user's read mark for a conversation to at. An existing
// mark never moves backwards.
func (q *Queries) AdvanceRead(ctx context.Context, userID, conversationID string, at int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO conversation_reads (user_id, conversation_id, last_read_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, conversation_id) DO UPDATE SET
			last_read_at = MAX(conversation_reads.last_read_at, excluded.last_read_at)`,
		userID, conversationID, at)
	return err
}

// LastReadAt returns the user's read mark for a conversation, or 0 if none.
func (q *Queries) LastReadAt(ctx context.Context, userID, conversationID string) (int64, error) {
	var at int64
	err := q.db.QueryRowContext(ctx, `
		SELECT last_read_at FROM conversation_reads
		WHERE user_id = ? AND conversation_id = ?`, userID, conversationID).Scan(&at)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return at, err
}

// UnreadCount counts messages in a conversation that userID has not read:
// not deleted, not sent by userID, created after the read mark.
func (q *Queries) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		WHERE m.conversation_id = ?
		AND m.is_deleted = 0
		AND m.sender_id != ?
		AND m.created_at > COALESCE(
			(SELECT last_read_at FROM conversation_reads WHERE user_id = ? AND conversation_id = ?), 0)`,
		conversationID, userID, userID, conversationID).Scan(&n)
	return n, err
}
