package categories

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/platform/db"
	"github.com/parley-forum/parley/internal/shared"
)

// ListFilter narrows a category listing to what the viewer may see.
type ListFilter struct {
	// ViewerID joins the viewer's grants; nil means anonymous.
	ViewerID *int64
	// IncludeAll skips visibility filtering (admin listings).
	IncludeAll bool
	Page       int
	PerPage    int
}

// RepositoryPort defines data access methods for categories and grants.
type RepositoryPort interface {
	Create(ctx context.Context, category Category) (int64, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context, filter ListFilter) ([]Category, int, error)
	SetPrivacy(ctx context.Context, id int64, isPrivate bool) error
	SetLocked(ctx context.Context, id int64, isLocked bool) error
	FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error)
	UpsertGrant(ctx context.Context, grant Grant) error
	DeleteGrant(ctx context.Context, userID, categoryID int64) error
	PurgeGrants(ctx context.Context, categoryID int64) error
	ListPrivileged(ctx context.Context, categoryID int64) ([]PrivilegedUser, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a category and returns its id.
func (r *Repository) Create(ctx context.Context, category Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, is_private, is_locked)
		VALUES ($1, $2, $3)
		RETURNING id`,
		category.Name, category.IsPrivate, category.IsLocked,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// GetByID fetches a category by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, is_private, is_locked, created_at
		FROM categories
		WHERE id = $1`, id,
	).Scan(&category.ID, &category.Name, &category.IsPrivate, &category.IsLocked, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// List returns a page of categories visible under the filter, plus the
// total count for that visibility.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Category, int, error) {
	where := `NOT c.is_private`
	args := []any{}
	switch {
	case filter.IncludeAll:
		where = `TRUE`
	case filter.ViewerID != nil:
		where = `(NOT c.is_private OR g.access_level >= $1)`
		args = append(args, int(access.LevelRead))
	}

	join := ``
	if !filter.IncludeAll && filter.ViewerID != nil {
		join = `LEFT JOIN category_grants g ON g.category_id = c.id AND g.user_id = $2`
		args = append(args, *filter.ViewerID)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM categories c ` + join + ` WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limitPos := len(args) + 1
	args = append(args, perPage, (page-1)*perPage)
	query := `
		SELECT c.id, c.name, c.is_private, c.is_locked, c.created_at
		FROM categories c ` + join + `
		WHERE ` + where + `
		ORDER BY c.id
		LIMIT $` + itoa(limitPos) + ` OFFSET $` + itoa(limitPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.IsPrivate, &category.IsLocked, &category.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, category)
	}
	return result, total, rows.Err()
}

// SetPrivacy updates the privacy flag. Flipping a category public also
// purges its grant rows in the same transaction: grants never exist
// for public categories.
func (r *Repository) SetPrivacy(ctx context.Context, id int64, isPrivate bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE categories SET is_private = $1 WHERE id = $2`, isPrivate, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if !isPrivate {
			if _, err := tx.Exec(ctx, `DELETE FROM category_grants WHERE category_id = $1`, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetLocked updates the lock flag.
func (r *Repository) SetLocked(ctx context.Context, id int64, isLocked bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET is_locked = $1 WHERE id = $2`, isLocked, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindGrant returns the stored level for a (user, category) pair.
// LevelNone when no row exists.
func (r *Repository) FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error) {
	var level int
	err := r.pool.QueryRow(ctx, `
		SELECT access_level FROM category_grants
		WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return access.LevelNone, nil
		}
		return access.LevelNone, err
	}
	return access.Level(level), nil
}

// UpsertGrant creates or updates a grant row.
func (r *Repository) UpsertGrant(ctx context.Context, grant Grant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO category_grants (user_id, category_id, access_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, category_id) DO UPDATE SET access_level = EXCLUDED.access_level`,
		grant.UserID, grant.CategoryID, int(grant.Level),
	)
	return err
}

// DeleteGrant removes a grant row. Missing rows map to shared.ErrNotFound.
func (r *Repository) DeleteGrant(ctx context.Context, userID, categoryID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM category_grants
		WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PurgeGrants removes every grant row for a category.
func (r *Repository) PurgeGrants(ctx context.Context, categoryID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM category_grants WHERE category_id = $1`, categoryID)
	return err
}

// ListPrivileged returns the members of a private category.
func (r *Repository) ListPrivileged(ctx context.Context, categoryID int64) ([]PrivilegedUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.user_id, u.username, g.access_level
		FROM category_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.category_id = $1
		ORDER BY u.username`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PrivilegedUser
	for rows.Next() {
		var member PrivilegedUser
		var level int
		if err := rows.Scan(&member.UserID, &member.Username, &level); err != nil {
			return nil, err
		}
		member.Level = access.Level(level)
		result = append(result, member)
	}
	return result, rows.Err()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

var _ RepositoryPort = (*Repository)(nil)
