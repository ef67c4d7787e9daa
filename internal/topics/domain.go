package topics

import (
	"errors"
	"time"

	"github.com/parley-forum/parley/internal/access"
)

var (
	// ErrNotAuthor rejects author-only operations from anyone else.
	ErrNotAuthor = errors.New("only the topic author may do that")
	// ErrForeignReply rejects a best-reply choice pointing at a reply
	// from a different topic.
	ErrForeignReply = errors.New("reply does not belong to this topic")
)

// Topic is a discussion thread inside a category.
type Topic struct {
	ID          int64
	CategoryID  int64
	AuthorID    int64
	Title       string
	Locked      bool
	BestReplyID *int64
	CreatedAt   time.Time
}

// Snapshot projects the fields the capability rules care about.
func (t Topic) Snapshot() access.Topic {
	return access.Topic{ID: t.ID, Locked: t.Locked}
}

// Status renders the lock flag the way the API speaks about it.
func (t Topic) Status() string {
	if t.Locked {
		return "locked"
	}
	return "open"
}
