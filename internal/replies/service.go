package replies

import (
	"context"
	"fmt"

	"github.com/parley-forum/parley/internal/shared"
)

// TopicDirectory reports where a reply's topic lives and whether it
// still takes posts.
type TopicDirectory interface {
	TopicRef(ctx context.Context, id int64) (categoryID int64, locked bool, err error)
}

// Service handles reply business logic. Category-level authorization
// happens in the handler through the gate; the service enforces the
// topic lock and vote rules.
type Service struct {
	repo   RepositoryPort
	topics TopicDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, topics TopicDirectory) *Service {
	return &Service{repo: repo, topics: topics}
}

// Create posts a reply. Locked topics take no new replies.
func (s *Service) Create(ctx context.Context, authorID, topicID int64, content string) (*Reply, error) {
	_, locked, err := s.topics.TopicRef(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("topic %d: %w", topicID, err)
	}
	if locked {
		return nil, fmt.Errorf("topic %d: %w", topicID, shared.ErrLocked)
	}
	reply := Reply{TopicID: topicID, AuthorID: authorID, Content: content}
	id, err := s.repo.Create(ctx, reply)
	if err != nil {
		return nil, err
	}
	reply.ID = id
	return &reply, nil
}

// ListByTopic returns a page of a topic's replies.
func (s *Service) ListByTopic(ctx context.Context, topicID int64, page, perPage int) ([]Reply, shared.Pagination, error) {
	result, total, err := s.repo.ListByTopic(ctx, topicID, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, perPage, total), nil
}

// TopicOf resolves the topic a reply belongs to.
func (s *Service) TopicOf(ctx context.Context, replyID int64) (int64, error) {
	return s.repo.ReplyTopic(ctx, replyID)
}

// Vote records the user's verdict on a reply, overwriting any earlier
// one. A user holds at most one vote per reply.
func (s *Service) Vote(ctx context.Context, userID, replyID int64, value Vote) (*Reply, error) {
	if value != Upvote && value != Downvote {
		return nil, ErrUnknownVote
	}
	if _, err := s.repo.ReplyTopic(ctx, replyID); err != nil {
		return nil, fmt.Errorf("reply %d: %w", replyID, err)
	}
	if err := s.repo.UpsertVote(ctx, replyID, userID, value); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, replyID)
}
