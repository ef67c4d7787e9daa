package categories

import (
	"context"
	"fmt"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/shared"
)

// UserDirectory checks that grant targets exist.
type UserDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}

// GrantInvalidator drops cached grant lookups after writes.
type GrantInvalidator interface {
	Forget(ctx context.Context, userID, categoryID int64) error
	ForgetCategory(ctx context.Context, categoryID int64) error
}

// Service handles category business logic, including the admin-driven
// grant operations.
type Service struct {
	repo  RepositoryPort
	users UserDirectory
	cache GrantInvalidator
}

// NewService builds a Service instance. cache may be nil when no grant
// cache is wired (tests, worker).
func NewService(repo RepositoryPort, users UserDirectory, cache GrantInvalidator) *Service {
	return &Service{repo: repo, users: users, cache: cache}
}

// Create inserts a new category.
func (s *Service) Create(ctx context.Context, name string, isPrivate bool) (*Category, error) {
	category := Category{Name: name, IsPrivate: isPrivate}
	id, err := s.repo.Create(ctx, category)
	if err != nil {
		return nil, err
	}
	category.ID = id
	return &category, nil
}

// Get fetches a single category.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

// CategorySnapshot returns the access snapshot for a category. Other
// domains use it to authorize against the category a resource lives in.
func (s *Service) CategorySnapshot(ctx context.Context, id int64) (access.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return access.Category{}, err
	}
	return category.Snapshot(), nil
}

// ListVisible returns the categories the caller may read.
func (s *Service) ListVisible(ctx context.Context, caller identity.Caller, page, perPage int) ([]Category, shared.Pagination, error) {
	filter := ListFilter{Page: page, PerPage: perPage}
	if user, ok := caller.(identity.User); ok {
		if user.IsAdmin {
			filter.IncludeAll = true
		} else {
			filter.ViewerID = &user.ID
		}
	}
	result, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, perPage, total), nil
}

// TogglePrivacy flips a category between private and public. Flipping
// public purges the category's grants and their cached lookups.
func (s *Service) TogglePrivacy(ctx context.Context, id int64) (*Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := access.TogglePrivacy(category.Snapshot())
	if err := s.repo.SetPrivacy(ctx, id, next.IsPrivate); err != nil {
		return nil, err
	}
	category.IsPrivate = next.IsPrivate
	if !next.IsPrivate {
		s.forgetCategory(ctx, id)
	}
	return category, nil
}

// ToggleLock flips a category between locked and open.
func (s *Service) ToggleLock(ctx context.Context, id int64) (*Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := access.ToggleCategoryLock(category.Snapshot())
	if err := s.repo.SetLocked(ctx, id, next.IsLocked); err != nil {
		return nil, err
	}
	category.IsLocked = next.IsLocked
	return category, nil
}

// GrantRead gives a user read access to a private category.
func (s *Service) GrantRead(ctx context.Context, userID, categoryID int64) error {
	category, err := s.repo.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	if !category.IsPrivate {
		return ErrPublicCategory
	}
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %d: %w", userID, shared.ErrNotFound)
	}
	current, err := s.repo.FindGrant(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if current != access.LevelNone {
		return shared.ErrAlreadyExists
	}
	if err := s.repo.UpsertGrant(ctx, Grant{UserID: userID, CategoryID: categoryID, Level: access.LevelRead}); err != nil {
		return err
	}
	s.forget(ctx, userID, categoryID)
	return nil
}

// RevokeGrant removes a user's access to a category entirely.
func (s *Service) RevokeGrant(ctx context.Context, userID, categoryID int64) error {
	if err := s.repo.DeleteGrant(ctx, userID, categoryID); err != nil {
		return err
	}
	s.forget(ctx, userID, categoryID)
	return nil
}

// ToggleWriteAccess flips a member's grant between read and write.
// The user must already be a member of the category.
func (s *Service) ToggleWriteAccess(ctx context.Context, userID, categoryID int64) (access.Level, error) {
	current, err := s.repo.FindGrant(ctx, userID, categoryID)
	if err != nil {
		return access.LevelNone, err
	}
	if current == access.LevelNone {
		return access.LevelNone, fmt.Errorf("user %d is not a member of category %d: %w", userID, categoryID, shared.ErrNotFound)
	}
	next := access.ToggleLevel(current)
	if err := s.repo.UpsertGrant(ctx, Grant{UserID: userID, CategoryID: categoryID, Level: next}); err != nil {
		return access.LevelNone, err
	}
	s.forget(ctx, userID, categoryID)
	return next, nil
}

// PrivilegedUsers lists the members of a private category.
func (s *Service) PrivilegedUsers(ctx context.Context, categoryID int64) ([]PrivilegedUser, error) {
	category, err := s.repo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.IsPrivate {
		return nil, ErrPublicCategory
	}
	return s.repo.ListPrivileged(ctx, categoryID)
}

func (s *Service) forget(ctx context.Context, userID, categoryID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Forget(ctx, userID, categoryID)
}

func (s *Service) forgetCategory(ctx context.Context, categoryID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.ForgetCategory(ctx, categoryID)
}
