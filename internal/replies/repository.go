package replies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-forum/parley/internal/shared"
)

// RepositoryPort defines data access methods for replies and votes.
type RepositoryPort interface {
	Create(ctx context.Context, reply Reply) (int64, error)
	GetByID(ctx context.Context, id int64) (*Reply, error)
	ListByTopic(ctx context.Context, topicID int64, page, perPage int) ([]Reply, int, error)
	ReplyTopic(ctx context.Context, replyID int64) (int64, error)
	UpsertVote(ctx context.Context, replyID, userID int64, value Vote) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a reply and returns its id.
func (r *Repository) Create(ctx context.Context, reply Reply) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO replies (topic_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id`,
		reply.TopicID, reply.AuthorID, reply.Content,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID fetches a reply with its vote tallies.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Reply, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.topic_id, r.author_id, r.content, r.created_at,
		       COUNT(v.*) FILTER (WHERE v.value > 0),
		       COUNT(v.*) FILTER (WHERE v.value < 0)
		FROM replies r
		LEFT JOIN reply_votes v ON v.reply_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`, id)
	reply, err := scanReply(row)
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// ListByTopic returns a page of a topic's replies in posting order,
// tallies included, plus the total count.
func (r *Repository) ListByTopic(ctx context.Context, topicID int64, page, perPage int) ([]Reply, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM replies WHERE topic_id = $1`, topicID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.topic_id, r.author_id, r.content, r.created_at,
		       COUNT(v.*) FILTER (WHERE v.value > 0),
		       COUNT(v.*) FILTER (WHERE v.value < 0)
		FROM replies r
		LEFT JOIN reply_votes v ON v.reply_id = r.id
		WHERE r.topic_id = $1
		GROUP BY r.id
		ORDER BY r.created_at, r.id
		LIMIT $2 OFFSET $3`,
		topicID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Reply
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *reply)
	}
	return result, total, rows.Err()
}

// ReplyTopic resolves the topic a reply belongs to.
func (r *Repository) ReplyTopic(ctx context.Context, replyID int64) (int64, error) {
	var topicID int64
	err := r.pool.QueryRow(ctx, `SELECT topic_id FROM replies WHERE id = $1`, replyID).Scan(&topicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return topicID, nil
}

// UpsertVote records or overwrites a user's vote on a reply. One row
// per (reply, user) pair.
func (r *Repository) UpsertVote(ctx context.Context, replyID, userID int64, value Vote) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reply_votes (reply_id, user_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (reply_id, user_id) DO UPDATE SET value = EXCLUDED.value`,
		replyID, userID, int(value),
	)
	return err
}

func scanReply(row pgx.Row) (*Reply, error) {
	var reply Reply
	err := row.Scan(&reply.ID, &reply.TopicID, &reply.AuthorID, &reply.Content, &reply.CreatedAt, &reply.Upvotes, &reply.Downvotes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reply, nil
}

var _ RepositoryPort = (*Repository)(nil)
