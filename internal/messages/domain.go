package messages

import (
	"errors"
	"time"
)

// ErrSelfMessage rejects messages addressed to the sender.
var ErrSelfMessage = errors.New("cannot message yourself")

// Message is one direct message between two users.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Content     string
	CreatedAt   time.Time
}

// Partner is one side of an existing conversation.
type Partner struct {
	UserID        int64
	Username      string
	LastMessageAt time.Time
}
