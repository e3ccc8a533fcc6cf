package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DirectKey returns the canonical key for the unordered user pair {a, b}.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// InsertConversation inserts a conversation and its member rows. For a
// direct conversation whose member pair already has one, nothing is written
// and false is returned.
func (q *Queries) InsertConversation(ctx context.Context, c *Conversation) (bool, error) {
	var directKey sql.NullString
	if c.Kind == KindDirect {
		if len(c.MemberIDs) != 2 {
			return false, fmt.Errorf("direct conversation needs 2 members, got %d", len(c.MemberIDs))
		}
		directKey = sql.NullString{String: DirectKey(c.MemberIDs[0], c.MemberIDs[1]), Valid: true}
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO conversations (id, kind, name, created_by, created_at, direct_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(direct_key) DO NOTHING`,
		c.ID, c.Kind, nullString(c.Name), c.CreatedBy, c.CreatedAt, directKey)
	if err != nil {
		return false, fmt.Errorf("insert conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	for _, uid := range c.MemberIDs {
		if _, err := q.db.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id) VALUES (?, ?)`,
			c.ID, uid); err != nil {
			return false, fmt.Errorf("insert member %q: %w", uid, err)
		}
	}
	return true, nil
}

// GetConversation returns a conversation with its member ids, or nil.
func (q *Queries) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return q.getConversation(ctx, `WHERE id = ?`, id)
}

// GetDirectConversation returns the direct conversation between two users, or nil.
func (q *Queries) GetDirectConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	return q.getConversation(ctx, `WHERE direct_key = ?`, DirectKey(userA, userB))
}

func (q *Queries) getConversation(ctx context.Context, where string, arg any) (*Conversation, error) {
	var c Conversation
	var name, lastID sql.NullString
	var lastAt sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT id, kind, name, created_by, created_at, last_message_at, last_message_id
		FROM conversations `+where, arg).
		Scan(&c.ID, &c.Kind, &name, &c.CreatedBy, &c.CreatedAt, &lastAt, &lastID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Name, c.LastMessageAt, c.LastMessageID = name.String, lastAt.Int64, lastID.String

	c.MemberIDs, err = q.memberIDs(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *Queries) memberIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT user_id FROM conversation_members WHERE conversation_id = ? ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetLastMessage records the most recent message of a conversation.
func (q *Queries) SetLastMessage(ctx context.Context, conversationID, messageID string, at int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = ?, last_message_id = ? WHERE id = ?`,
		at, messageID, conversationID)
	return err
}

// ListConversationsForUser returns every conversation userID belongs to with
// unread count, member count, last message and direct peer resolved. Rows are
// sorted by last activity descending, then unread count descending.
func (q *Queries) ListConversationsForUser(ctx context.Context, userID string) ([]ConversationRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.kind, c.name, c.created_by, c.created_at, c.last_message_at, c.last_message_id,
			(SELECT COUNT(*) FROM conversation_members m2 WHERE m2.conversation_id = c.id) AS member_count,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id
				AND m.is_deleted = 0
				AND m.sender_id != cm.user_id
				AND m.created_at > COALESCE(r.last_read_at, 0)) AS unread_count,
			lm.id, lm.content, lm.is_deleted,
			p.id, p.external_id, p.name, p.email, p.image_url, p.last_seen_at, p.created_at
		FROM conversation_members cm
		JOIN conversations c ON c.id = cm.conversation_id
		LEFT JOIN conversation_reads r ON r.conversation_id = c.id AND r.user_id = cm.user_id
		LEFT JOIN messages lm ON lm.id = c.last_message_id
		LEFT JOIN users p ON c.kind = 'direct' AND p.id = (
			SELECT m3.user_id FROM conversation_members m3
			WHERE m3.conversation_id = c.id AND m3.user_id != cm.user_id
			LIMIT 1)
		WHERE cm.user_id = ?
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, unread_count DESC, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ConversationRow
	for rows.Next() {
		var r ConversationRow
		var name, lastID, lmID, lmContent sql.NullString
		var lastAt sql.NullInt64
		var lmDeleted sql.NullBool
		var peer nullableUser
		if err := rows.Scan(
			&r.ID, &r.Kind, &name, &r.CreatedBy, &r.CreatedAt, &lastAt, &lastID,
			&r.MemberCount, &r.UnreadCount,
			&lmID, &lmContent, &lmDeleted,
			&peer.id, &peer.externalID, &peer.name, &peer.email, &peer.image, &peer.lastSeen, &peer.created,
		); err != nil {
			return nil, err
		}
		r.Name, r.LastMessageAt, r.LastMessageID = name.String, lastAt.Int64, lastID.String
		r.HasLastMessage = lmID.Valid
		r.LastMessageContent, r.LastMessageDeleted = lmContent.String, lmDeleted.Bool
		r.Peer = peer.user()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ConversationCount returns the total number of conversations.
func (q *Queries) ConversationCount(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}
