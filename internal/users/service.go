package users

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/shared"
)

var usernameFolder = cases.Lower(language.Und)

// Canonicalize folds a username to its stored form. Lookups and
// uniqueness both run over the canonical form so "Alice" and "alice"
// are the same account.
func Canonicalize(username string) string {
	return usernameFolder.String(username)
}

// TokenIssuer signs a session token for a freshly authenticated user.
type TokenIssuer interface {
	Encode(username string, isAdmin bool, validity time.Duration) (string, error)
}

// Service handles account business logic.
type Service struct {
	repo       RepositoryPort
	issuer     TokenIssuer
	sessionTTL time.Duration
	shortTTL   time.Duration
}

// NewService builds a Service instance. sessionTTL backs ordinary
// logins; shortTTL backs logins that decline "remember me".
func NewService(repo RepositoryPort, issuer TokenIssuer, sessionTTL, shortTTL time.Duration) *Service {
	return &Service{repo: repo, issuer: issuer, sessionTTL: sessionTTL, shortTTL: shortTTL}
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		Username:     Canonicalize(input.Username),
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	user.PasswordHash = ""
	return &user, nil
}

// Login verifies credentials and issues a signed session token. When
// remember is false the short validity window applies instead of the
// session window.
func (s *Service) Login(ctx context.Context, username, password string, remember bool) (string, error) {
	user, err := s.repo.GetByUsername(ctx, Canonicalize(username))
	if err != nil {
		return "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", shared.ErrInvalidCredentials
	}
	validity := s.sessionTTL
	if !remember {
		validity = s.shortTTL
	}
	return s.issuer.Encode(user.Username, user.IsAdmin, validity)
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of accounts.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	result, total, err := s.repo.List(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, perPage, total), nil
}

// UserExists reports whether an account id refers to a live account.
// Grant and message targets are checked through it.
func (s *Service) UserExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LookupUser implements identity.Lookup: it re-reads the account row
// for a token subject so role changes take effect before token expiry.
func (s *Service) LookupUser(ctx context.Context, username string) (*identity.User, error) {
	user, err := s.repo.GetByUsername(ctx, Canonicalize(username))
	if err != nil {
		return nil, err
	}
	return &identity.User{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

var _ identity.Lookup = (*Service)(nil)
