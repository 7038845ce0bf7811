// AngelaMos | 2026
// dto.go

package message

import (
	"time"
)

type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Body        string `json:"body"         validate:"required,min=1,max=5000"`
}

type MessageResponse struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ConversationResponse struct {
	CorrespondentID   string    `json:"correspondent_id"`
	CorrespondentName string    `json:"correspondent_name"`
	LastBody          string    `json:"last_body"`
	LastSenderID      string    `json:"last_sender_id"`
	LastAt            time.Time `json:"last_at"`
	UnreadCount       int       `json:"unread_count"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type ListMessagesParams struct {
	Page     int
	PageSize int
}

func (p *ListMessagesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListMessagesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
}

func ToMessageResponseList(items []Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToMessageResponse(&items[i]))
	}
	return responses
}

func ToConversationResponseList(items []Conversation) []ConversationResponse {
	responses := make([]ConversationResponse, 0, len(items))
	for _, c := range items {
		responses = append(responses, ConversationResponse(c))
	}
	return responses
}
