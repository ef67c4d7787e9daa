package topics

import (
	"context"
	"fmt"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/shared"
)

// ReplyDirectory resolves which topic a reply belongs to.
type ReplyDirectory interface {
	ReplyTopic(ctx context.Context, replyID int64) (int64, error)
}

// Service handles topic business logic. Category-level authorization
// happens in the handler through the gate; the service enforces the
// rules that survive past authorization: lock states and authorship.
type Service struct {
	repo    RepositoryPort
	replies ReplyDirectory
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, replies ReplyDirectory) *Service {
	return &Service{repo: repo, replies: replies}
}

// Create opens a new topic. Locked categories take no new topics.
func (s *Service) Create(ctx context.Context, authorID int64, category access.Category, title string) (*Topic, error) {
	if category.IsLocked {
		return nil, fmt.Errorf("category %d: %w", category.ID, shared.ErrLocked)
	}
	topic := Topic{CategoryID: category.ID, AuthorID: authorID, Title: title}
	id, err := s.repo.Create(ctx, topic)
	if err != nil {
		return nil, err
	}
	topic.ID = id
	return &topic, nil
}

// Get fetches a single topic.
func (s *Service) Get(ctx context.Context, id int64) (*Topic, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByCategory returns a page of a category's topics.
func (s *Service) ListByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]Topic, shared.Pagination, error) {
	result, total, err := s.repo.ListByCategory(ctx, categoryID, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, perPage, total), nil
}

// TopicRef reports which category a topic lives in and whether it is
// locked. Other domains authorize and gate against it.
func (s *Service) TopicRef(ctx context.Context, id int64) (categoryID int64, locked bool, err error) {
	topic, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return topic.CategoryID, topic.Locked, nil
}

// Rename changes a topic's title. Only the author or an admin may.
func (s *Service) Rename(ctx context.Context, caller identity.User, topicID int64, title string) (*Topic, error) {
	topic, err := s.repo.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.AuthorID != caller.ID && !caller.IsAdmin {
		return nil, ErrNotAuthor
	}
	if err := s.repo.SetTitle(ctx, topicID, title); err != nil {
		return nil, err
	}
	topic.Title = title
	return topic, nil
}

// ChooseBestReply records the author's pick. Strictly the author's
// call; admins get no override here.
func (s *Service) ChooseBestReply(ctx context.Context, caller identity.User, topicID, replyID int64) (*Topic, error) {
	topic, err := s.repo.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.AuthorID != caller.ID {
		return nil, ErrNotAuthor
	}
	owner, err := s.replies.ReplyTopic(ctx, replyID)
	if err != nil {
		return nil, fmt.Errorf("reply %d: %w", replyID, err)
	}
	if owner != topicID {
		return nil, ErrForeignReply
	}
	if err := s.repo.SetBestReply(ctx, topicID, replyID); err != nil {
		return nil, err
	}
	topic.BestReplyID = &replyID
	return topic, nil
}

// ToggleLock flips a topic between locked and open. Admin only.
func (s *Service) ToggleLock(ctx context.Context, caller identity.Caller, topicID int64) (*Topic, error) {
	if !access.CanModifyTopicLock(caller) {
		return nil, identity.ErrAdminRequired
	}
	topic, err := s.repo.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	next := access.ToggleTopicLock(topic.Snapshot())
	if err := s.repo.SetLocked(ctx, topicID, next.Locked); err != nil {
		return nil, err
	}
	topic.Locked = next.Locked
	return topic, nil
}
