package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cleaning-ops/internal/persistence"
)

// OutboxRepository implements persistence.OutboxRepository using SQLite
type OutboxRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOutboxRepository creates a new SQLite outbox repository
func NewOutboxRepository(pool *ConnectionPool) *OutboxRepository {
	return &OutboxRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// EnqueueOutbox stores a rendered message for delivery.
func (r *OutboxRepository) EnqueueOutbox(ctx context.Context, msg persistence.OutboxMessage) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO email_outbox (id, recipient, subject, html_body, text_body, queued_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Recipient, msg.Subject, msg.HTML, msg.Text, formatTime(msg.QueuedAt), formatOptionalTime(msg.SentAt),
	)
	return r.mapper.MapError(err)
}

// ListPendingOutbox returns up to limit unsent messages, oldest first.
func (r *OutboxRepository) ListPendingOutbox(ctx context.Context, limit int) ([]persistence.OutboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.helper.Query(ctx, `
		SELECT id, recipient, subject, html_body, text_body, queued_at
		FROM email_outbox
		WHERE sent_at IS NULL
		ORDER BY queued_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var messages []persistence.OutboxMessage
	for rows.Next() {
		var msg persistence.OutboxMessage
		var queuedAt string
		if err := rows.Scan(&msg.ID, &msg.Recipient, &msg.Subject, &msg.HTML, &msg.Text, &queuedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if msg.QueuedAt, err = parseTime(queuedAt); err != nil {
			return nil, fmt.Errorf("failed to parse queued_at: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return messages, nil
}

// MarkOutboxSent records delivery of a message.
func (r *OutboxRepository) MarkOutboxSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.helper.Exec(ctx, `UPDATE email_outbox SET sent_at = ? WHERE id = ? AND sent_at IS NULL`,
		sql.NullString{String: formatTime(sentAt), Valid: true}, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

var _ persistence.OutboxRepository = (*OutboxRepository)(nil)
