// AngelaMos | 2026
// repository.go

package message

import (
	"context"
	"fmt"

	"github.com/ophrus/immo-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	Conversations(ctx context.Context, userID string) ([]Conversation, error)
	Thread(
		ctx context.Context,
		userID, otherID string,
		params ListMessagesParams,
	) ([]Message, int, error)
	MarkRead(ctx context.Context, recipientID, senderID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &m.CreatedAt, query,
		m.ID,
		m.SenderID,
		m.RecipientID,
		m.Body,
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// Conversations folds the mailbox into one row per correspondent: the most
// recent message either way, the correspondent's display name and the count
// of their messages not yet read.
func (r *repository) Conversations(
	ctx context.Context,
	userID string,
) ([]Conversation, error) {
	query := `
		SELECT DISTINCT ON (t.correspondent_id)
		       t.correspondent_id,
		       u.name AS correspondent_name,
		       t.body AS last_body,
		       t.sender_id AS last_sender_id,
		       t.created_at AS last_at,
		       COALESCE(unread.count, 0) AS unread_count
		FROM (
			SELECT m.*,
			       CASE WHEN m.sender_id = $1
			            THEN m.recipient_id
			            ELSE m.sender_id
			       END AS correspondent_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		) t
		JOIN users u ON u.id = t.correspondent_id
		LEFT JOIN (
			SELECT sender_id, COUNT(*) AS count
			FROM messages
			WHERE recipient_id = $1 AND read_at IS NULL
			GROUP BY sender_id
		) unread ON unread.sender_id = t.correspondent_id
		ORDER BY t.correspondent_id, t.created_at DESC`

	var conversations []Conversation
	if err := r.db.SelectContext(ctx, &conversations, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return conversations, nil
}

func (r *repository) Thread(
	ctx context.Context,
	userID, otherID string,
	params ListMessagesParams,
) ([]Message, int, error) {
	params.Normalize()

	countQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)`

	var total int
	err := r.db.GetContext(ctx, &total, countQuery, userID, otherID)
	if err != nil {
		return nil, 0, fmt.Errorf("count thread: %w", err)
	}

	query := `
		SELECT id, sender_id, recipient_id, body, read_at, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var messages []Message
	err = r.db.SelectContext(
		ctx,
		&messages,
		query,
		userID,
		otherID,
		params.PageSize,
		params.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list thread: %w", err)
	}

	return messages, total, nil
}

func (r *repository) MarkRead(
	ctx context.Context,
	recipientID, senderID string,
) error {
	query := `
		UPDATE messages
		SET read_at = NOW()
		WHERE recipient_id = $1 AND sender_id = $2 AND read_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, recipientID, senderID); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return nil
}

func (r *repository) UnreadCount(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE recipient_id = $1 AND read_at IS NULL`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}

	return count, nil
}
