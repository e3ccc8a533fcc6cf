package store

import (
	"context"
	"time"
)

// QueueEvent adds a change event to the relay outbox. Call it inside the
// transaction that made the change.
func (q *Queries) QueueEvent(ctx context.Context, kind, conversationID, payload string) error {
	now := time.Now().UnixMilli()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO event_outbox (kind, conversation_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, 'queued', ?, ?)`,
		kind, conversationID, payload, now, now)
	return err
}

// PendingEvents returns up to limit queued events, oldest first.
func (q *Queries) PendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, kind, conversation_id, payload, status, attempts, error_message, created_at
		FROM event_outbox WHERE status = 'queued' ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.ConversationID, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkEventsSent marks events as relayed.
func (q *Queries) MarkEventsSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{time.Now().UnixMilli()}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE event_outbox SET status = 'sent', updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}

// RecordEventFailure bumps the attempt counter of an event. Once attempts
// reaches maxAttempts the event is parked as failed.
func (q *Queries) RecordEventFailure(ctx context.Context, id int64, errMsg string, maxAttempts int) error {
	now := time.Now().UnixMilli()
	_, err := q.db.ExecContext(ctx, `
		UPDATE event_outbox SET
			attempts = attempts + 1,
			error_message = ?,
			status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE status END,
			updated_at = ?
		WHERE id = ?`, errMsg, maxAttempts, now, id)
	return err
}

// PruneSentEvents deletes relayed events older than cutoff.
func (q *Queries) PruneSentEvents(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM event_outbox WHERE status = 'sent' AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
