package topics

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-forum/parley/internal/shared"
)

// RepositoryPort defines data access methods for topics.
type RepositoryPort interface {
	Create(ctx context.Context, topic Topic) (int64, error)
	GetByID(ctx context.Context, id int64) (*Topic, error)
	ListByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]Topic, int, error)
	SetTitle(ctx context.Context, id int64, title string) error
	SetLocked(ctx context.Context, id int64, locked bool) error
	SetBestReply(ctx context.Context, id, replyID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const topicColumns = `id, category_id, author_id, title, locked, best_reply_id, created_at`

// Create inserts a topic and returns its id.
func (r *Repository) Create(ctx context.Context, topic Topic) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO topics (category_id, author_id, title, locked)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		topic.CategoryID, topic.AuthorID, topic.Title, topic.Locked,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID fetches a topic by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Topic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id)
	return scanTopic(row)
}

// ListByCategory returns a page of topics in a category, newest first,
// plus the total count.
func (r *Repository) ListByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]Topic, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM topics WHERE category_id = $1`, categoryID,
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
		SELECT `+topicColumns+` FROM topics
		WHERE category_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		categoryID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *topic)
	}
	return result, total, rows.Err()
}

// SetTitle updates a topic's title.
func (r *Repository) SetTitle(ctx context.Context, id int64, title string) error {
	return r.exec(ctx, `UPDATE topics SET title = $1 WHERE id = $2`, title, id)
}

// SetLocked updates the lock flag.
func (r *Repository) SetLocked(ctx context.Context, id int64, locked bool) error {
	return r.exec(ctx, `UPDATE topics SET locked = $1 WHERE id = $2`, locked, id)
}

// SetBestReply records the author's chosen best reply.
func (r *Repository) SetBestReply(ctx context.Context, id, replyID int64) error {
	return r.exec(ctx, `UPDATE topics SET best_reply_id = $1 WHERE id = $2`, replyID, id)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTopic(row pgx.Row) (*Topic, error) {
	var topic Topic
	err := row.Scan(&topic.ID, &topic.CategoryID, &topic.AuthorID, &topic.Title, &topic.Locked, &topic.BestReplyID, &topic.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &topic, nil
}

var _ RepositoryPort = (*Repository)(nil)
