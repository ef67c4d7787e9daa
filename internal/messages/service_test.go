package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-forum/parley/internal/shared"
	_ "github.com/parley-forum/parley/testing"
)

type mockRepository struct {
	messages []Message
	nextID   int64
}

func (m *mockRepository) Create(ctx context.Context, message Message) (int64, error) {
	m.nextID++
	message.ID = m.nextID
	message.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, message)
	return message.ID, nil
}

func (m *mockRepository) ListPartners(ctx context.Context, userID int64) ([]Partner, error) {
	latest := make(map[int64]time.Time)
	for _, message := range m.messages {
		var partner int64
		switch userID {
		case message.SenderID:
			partner = message.RecipientID
		case message.RecipientID:
			partner = message.SenderID
		default:
			continue
		}
		if message.CreatedAt.After(latest[partner]) {
			latest[partner] = message.CreatedAt
		}
	}
	var result []Partner
	for id, at := range latest {
		result = append(result, Partner{UserID: id, LastMessageAt: at})
	}
	return result, nil
}

func (m *mockRepository) ListConversation(ctx context.Context, userID, otherID int64, page, perPage int) ([]Message, int, error) {
	var result []Message
	for _, message := range m.messages {
		direct := message.SenderID == userID && message.RecipientID == otherID
		reverse := message.SenderID == otherID && message.RecipientID == userID
		if direct || reverse {
			result = append(result, message)
		}
	}
	return result, len(result), nil
}

type knownUsers map[int64]bool

func (k knownUsers) UserExists(ctx context.Context, id int64) (bool, error) {
	return k[id], nil
}

func newTestService() (*Service, *mockRepository) {
	repo := &mockRepository{}
	return NewService(repo, knownUsers{7: true, 8: true, 9: true}), repo
}

func TestSend(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	message, err := service.Send(ctx, 7, 8, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(7), message.SenderID)
	assert.Equal(t, int64(8), message.RecipientID)

	_, err = service.Send(ctx, 7, 7, "dear diary")
	assert.ErrorIs(t, err, ErrSelfMessage)

	_, err = service.Send(ctx, 7, 999, "anyone home")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConversationIsBidirectional(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	_, err := service.Send(ctx, 7, 8, "hi")
	require.NoError(t, err)
	_, err = service.Send(ctx, 8, 7, "hi yourself")
	require.NoError(t, err)
	_, err = service.Send(ctx, 7, 9, "different thread")
	require.NoError(t, err)

	result, pagination, err := service.ConversationWith(ctx, 7, 8, 1, 50)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, 2, pagination.Total)

	// Both sides see the same exchange.
	mirrored, _, err := service.ConversationWith(ctx, 8, 7, 1, 50)
	require.NoError(t, err)
	assert.Len(t, mirrored, 2)

	_, _, err = service.ConversationWith(ctx, 7, 999, 1, 50)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConversationsListsPartners(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	_, err := service.Send(ctx, 7, 8, "hi")
	require.NoError(t, err)
	_, err = service.Send(ctx, 9, 7, "hey")
	require.NoError(t, err)

	partners, err := service.Conversations(ctx, 7)
	require.NoError(t, err)
	seen := make(map[int64]bool, len(partners))
	for _, partner := range partners {
		seen[partner.UserID] = true
	}
	assert.True(t, seen[8])
	assert.True(t, seen[9])
	assert.Len(t, partners, 2)
}
