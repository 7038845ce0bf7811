// AngelaMos | 2026
// service.go

package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ophrus/immo-api/internal/core"
)

// RecipientChecker verifies the target account exists and is active before
// a message is stored.
type RecipientChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	repo       Repository
	recipients RecipientChecker
}

func NewService(repo Repository, recipients RecipientChecker) *Service {
	return &Service{repo: repo, recipients: recipients}
}

func (s *Service) Send(
	ctx context.Context,
	senderID string,
	req SendMessageRequest,
) (*MessageResponse, error) {
	if req.RecipientID == senderID {
		return nil, fmt.Errorf(
			"send message: cannot message yourself: %w",
			core.ErrInvalidInput,
		)
	}

	exists, err := s.recipients.Exists(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("send message: %w", core.ErrNotFound)
	}

	m := &Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	resp := ToMessageResponse(m)
	return &resp, nil
}

// SendDirect is the internal entry point used by reservation notifications.
func (s *Service) SendDirect(
	ctx context.Context,
	senderID, recipientID, body string,
) error {
	_, err := s.Send(ctx, senderID, SendMessageRequest{
		RecipientID: recipientID,
		Body:        body,
	})
	return err
}

func (s *Service) Conversations(
	ctx context.Context,
	userID string,
) ([]ConversationResponse, error) {
	conversations, err := s.repo.Conversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	return ToConversationResponseList(conversations), nil
}

// Thread returns the exchange with one user, newest first, and marks their
// messages as read.
func (s *Service) Thread(
	ctx context.Context,
	userID, otherID string,
	params ListMessagesParams,
) ([]MessageResponse, int, error) {
	messages, total, err := s.repo.Thread(ctx, userID, otherID, params)
	if err != nil {
		return nil, 0, err
	}

	if err := s.repo.MarkRead(ctx, userID, otherID); err != nil {
		return nil, 0, err
	}

	return ToMessageResponseList(messages), total, nil
}

func (s *Service) UnreadCount(
	ctx context.Context,
	userID string,
) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
