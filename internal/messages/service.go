package messages

import (
	"context"
	"fmt"

	"github.com/parley-forum/parley/internal/shared"
)

// UserDirectory checks that message recipients exist.
type UserDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// Service handles direct-message business logic. Messaging is open to
// every authenticated user; no category access enters into it.
type Service struct {
	repo  RepositoryPort
	users UserDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, users UserDirectory) *Service {
	return &Service{repo: repo, users: users}
}

// Send delivers a message to another user.
func (s *Service) Send(ctx context.Context, senderID, recipientID int64, content string) (*Message, error) {
	if senderID == recipientID {
		return nil, ErrSelfMessage
	}
	exists, err := s.users.UserExists(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", recipientID, shared.ErrNotFound)
	}
	message := Message{SenderID: senderID, RecipientID: recipientID, Content: content}
	id, err := s.repo.Create(ctx, message)
	if err != nil {
		return nil, err
	}
	message.ID = id
	return &message, nil
}

// Conversations lists the user's conversation partners.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]Partner, error) {
	return s.repo.ListPartners(ctx, userID)
}

// ConversationWith returns a page of the exchange with another user.
func (s *Service) ConversationWith(ctx context.Context, userID, otherID int64, page, perPage int) ([]Message, shared.Pagination, error) {
	exists, err := s.users.UserExists(ctx, otherID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if !exists {
		return nil, shared.Pagination{}, fmt.Errorf("user %d: %w", otherID, shared.ErrNotFound)
	}
	result, total, err := s.repo.ListConversation(ctx, userID, otherID, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, perPage, total), nil
}
