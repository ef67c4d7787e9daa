package categories

import (
	"errors"
	"time"

	"github.com/parley-forum/parley/internal/access"
)

// ErrPublicCategory rejects grant operations on public categories.
// Grants only gate private ones; public categories are universally
// readable.
var ErrPublicCategory = errors.New("category is public")

// Category is a content container for topics.
type Category struct {
	ID        int64
	Name      string
	IsPrivate bool
	IsLocked  bool
	CreatedAt time.Time
}

// Snapshot projects the authorization-relevant fields.
func (c Category) Snapshot() access.Category {
	return access.Category{ID: c.ID, IsPrivate: c.IsPrivate, IsLocked: c.IsLocked}
}

// Grant is a per-user access row for a private category. Absence of a
// row means no access.
type Grant struct {
	UserID     int64
	CategoryID int64
	Level      access.Level
}

// PrivilegedUser is a member of a private category with their level.
type PrivilegedUser struct {
	UserID   int64
	Username string
	Level    access.Level
}
