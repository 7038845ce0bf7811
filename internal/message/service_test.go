// AngelaMos | 2026
// service_test.go

package message

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ophrus/immo-api/internal/core"
)

type memoryRepo struct {
	messages []*Message
	names    map[string]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{names: make(map[string]string)}
}

func (r *memoryRepo) Create(_ context.Context, m *Message) error {
	m.CreatedAt = time.Now()
	stored := *m
	r.messages = append(r.messages, &stored)
	return nil
}

func (r *memoryRepo) Conversations(
	_ context.Context,
	userID string,
) ([]Conversation, error) {
	latest := make(map[string]*Message)
	unread := make(map[string]int)

	for _, m := range r.messages {
		var other string
		switch userID {
		case m.SenderID:
			other = m.RecipientID
		case m.RecipientID:
			other = m.SenderID
		default:
			continue
		}

		if last, ok := latest[other]; !ok || m.CreatedAt.After(last.CreatedAt) {
			latest[other] = m
		}
		if m.RecipientID == userID && m.ReadAt == nil {
			unread[other]++
		}
	}

	var out []Conversation
	for other, m := range latest {
		out = append(out, Conversation{
			CorrespondentID:   other,
			CorrespondentName: r.names[other],
			LastBody:          m.Body,
			LastSenderID:      m.SenderID,
			LastAt:            m.CreatedAt,
			UnreadCount:       unread[other],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAt.After(out[j].LastAt)
	})
	return out, nil
}

func (r *memoryRepo) Thread(
	_ context.Context,
	userID, otherID string,
	_ ListMessagesParams,
) ([]Message, int, error) {
	var out []Message
	for _, m := range r.messages {
		if (m.SenderID == userID && m.RecipientID == otherID) ||
			(m.SenderID == otherID && m.RecipientID == userID) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, len(out), nil
}

func (r *memoryRepo) MarkRead(
	_ context.Context,
	recipientID, senderID string,
) error {
	now := time.Now()
	for _, m := range r.messages {
		if m.RecipientID == recipientID && m.SenderID == senderID &&
			m.ReadAt == nil {
			m.ReadAt = &now
		}
	}
	return nil
}

func (r *memoryRepo) UnreadCount(
	_ context.Context,
	userID string,
) (int, error) {
	count := 0
	for _, m := range r.messages {
		if m.RecipientID == userID && m.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type fakeRecipients struct {
	known map[string]bool
}

func (f *fakeRecipients) Exists(_ context.Context, userID string) (bool, error) {
	return f.known[userID], nil
}

func newMessageService(known ...string) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	recipients := &fakeRecipients{known: make(map[string]bool)}
	for _, id := range known {
		recipients.known[id] = true
		repo.names[id] = "name-" + id
	}
	return NewService(repo, recipients), repo
}

func TestSend(t *testing.T) {
	service, _ := newMessageService("alice", "bob")

	resp, err := service.Send(context.Background(), "alice", SendMessageRequest{
		RecipientID: "bob",
		Body:        "Is the loft still available?",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", resp.SenderID)
	assert.Equal(t, "bob", resp.RecipientID)
	assert.Equal(t, "Is the loft still available?", resp.Body)
	assert.NotEmpty(t, resp.ID)
}

func TestSend_SelfMessage(t *testing.T) {
	service, _ := newMessageService("alice")

	_, err := service.Send(context.Background(), "alice", SendMessageRequest{
		RecipientID: "alice",
		Body:        "note to self",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSend_UnknownRecipient(t *testing.T) {
	service, _ := newMessageService("alice")

	_, err := service.Send(context.Background(), "alice", SendMessageRequest{
		RecipientID: "ghost",
		Body:        "hello?",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSendDirect(t *testing.T) {
	service, repo := newMessageService("alice", "bob")

	err := service.SendDirect(
		context.Background(),
		"alice",
		"bob",
		"Your visit is confirmed.",
	)
	require.NoError(t, err)
	require.Len(t, repo.messages, 1)
	assert.Equal(t, "Your visit is confirmed.", repo.messages[0].Body)
}

func TestThread_MarksRead(t *testing.T) {
	service, _ := newMessageService("alice", "bob")
	ctx := context.Background()

	_, err := service.Send(ctx, "alice", SendMessageRequest{
		RecipientID: "bob",
		Body:        "first",
	})
	require.NoError(t, err)
	_, err = service.Send(ctx, "alice", SendMessageRequest{
		RecipientID: "bob",
		Body:        "second",
	})
	require.NoError(t, err)

	unread, err := service.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	thread, total, err := service.Thread(ctx, "bob", "alice", ListMessagesParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, thread, 2)
	assert.Equal(t, "second", thread[0].Body, "newest first")

	// Reading the thread clears bob's unread counter, not alice's view.
	unread, err = service.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, unread)
}

func TestConversations(t *testing.T) {
	service, _ := newMessageService("alice", "bob", "carol")
	ctx := context.Background()

	_, err := service.Send(ctx, "alice", SendMessageRequest{
		RecipientID: "bob",
		Body:        "hello bob",
	})
	require.NoError(t, err)
	_, err = service.Send(ctx, "carol", SendMessageRequest{
		RecipientID: "alice",
		Body:        "hello alice",
	})
	require.NoError(t, err)

	conversations, err := service.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	ids := []string{
		conversations[0].CorrespondentID,
		conversations[1].CorrespondentID,
	}
	assert.Contains(t, ids, "bob")
	assert.Contains(t, ids, "carol")

	for _, c := range conversations {
		if c.CorrespondentID == "carol" {
			assert.Equal(t, 1, c.UnreadCount)
			assert.Equal(t, "hello alice", c.LastBody)
		}
	}
}
