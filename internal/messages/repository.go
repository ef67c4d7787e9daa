package messages

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for direct messages.
type RepositoryPort interface {
	Create(ctx context.Context, message Message) (int64, error)
	ListPartners(ctx context.Context, userID int64) ([]Partner, error)
	ListConversation(ctx context.Context, userID, otherID int64, page, perPage int) ([]Message, int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a message and returns its id.
func (r *Repository) Create(ctx context.Context, message Message) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, content)
		VALUES ($1, $2, $3)
		RETURNING id`,
		message.SenderID, message.RecipientID, message.Content,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListPartners returns everyone the user has exchanged messages with,
// most recent conversation first.
func (r *Repository) ListPartners(ctx context.Context, userID int64) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, MAX(m.created_at) AS last_message_at
		FROM messages m
		JOIN users u ON u.id = CASE
			WHEN m.sender_id = $1 THEN m.recipient_id
			ELSE m.sender_id
		END
		WHERE m.sender_id = $1 OR m.recipient_id = $1
		GROUP BY u.id, u.username
		ORDER BY last_message_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Partner
	for rows.Next() {
		var partner Partner
		if err := rows.Scan(&partner.UserID, &partner.Username, &partner.LastMessageAt); err != nil {
			return nil, err
		}
		result = append(result, partner)
	}
	return result, rows.Err()
}

// ListConversation returns a page of the messages exchanged between
// two users, oldest first, plus the total count.
func (r *Repository) ListConversation(ctx context.Context, userID, otherID int64, page, perPage int) ([]Message, int, error) {
	const between = `(sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE `+between, userID, otherID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM messages
		WHERE `+between+`
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`,
		userID, otherID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Message
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.SenderID, &message.RecipientID, &message.Content, &message.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, message)
	}
	return result, total, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
