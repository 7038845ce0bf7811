// AngelaMos | 2026
// entity.go

package message

import (
	"time"
)

type Message struct {
	ID          string     `db:"id"`
	SenderID    string     `db:"sender_id"`
	RecipientID string     `db:"recipient_id"`
	Body        string     `db:"body"`
	ReadAt      *time.Time `db:"read_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Conversation is the latest exchange with one correspondent plus how many
// of their messages are still unread.
type Conversation struct {
	CorrespondentID   string    `db:"correspondent_id"`
	CorrespondentName string    `db:"correspondent_name"`
	LastBody          string    `db:"last_body"`
	LastSenderID      string    `db:"last_sender_id"`
	LastAt            time.Time `db:"last_at"`
	UnreadCount       int       `db:"unread_count"`
}
