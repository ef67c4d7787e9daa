package replies

import (
	"errors"
	"time"
)

// ErrUnknownVote rejects vote values other than upvote and downvote.
var ErrUnknownVote = errors.New("vote must be upvote or downvote")

// Reply is a single post inside a topic, carried with its vote tallies.
type Reply struct {
	ID        int64
	TopicID   int64
	AuthorID  int64
	Content   string
	Upvotes   int
	Downvotes int
	CreatedAt time.Time
}

// Vote is a single user's verdict on a reply. Stored as ±1 so tallies
// are plain sums.
type Vote int8

const (
	Downvote Vote = -1
	Upvote   Vote = 1
)

func (v Vote) String() string {
	if v == Upvote {
		return "upvote"
	}
	return "downvote"
}

// ParseVote maps the wire spelling to a Vote.
func ParseVote(s string) (Vote, error) {
	switch s {
	case "upvote":
		return Upvote, nil
	case "downvote":
		return Downvote, nil
	default:
		return 0, ErrUnknownVote
	}
}
