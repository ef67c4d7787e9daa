// Package identity turns raw bearer tokens into concrete callers. A
// caller is exactly one of: an authenticated user, an anonymous
// visitor, or a rejected request carrying the reason for rejection.
package identity

import (
	"context"
	"errors"

	"github.com/parley-forum/parley/internal/shared"
	"github.com/parley-forum/parley/internal/token"
)

// Rejection reasons produced by resolution itself. Token decode
// failures reuse the codec's sentinels so the message reaches the
// client verbatim.
var (
	ErrMissingToken  = errors.New("authentication required")
	ErrUserNotFound  = errors.New("no such user")
	ErrAdminRequired = errors.New("admin required")
)

// Caller is the resolved identity behind a request. Implementations
// are User, Anonymous and Rejected; nothing else satisfies it.
type Caller interface {
	caller()
}

// User is an authenticated account. IsAdmin reflects the database row,
// not the token claims.
type User struct {
	ID       int64
	Username string
	IsAdmin  bool
}

func (User) caller() {}

// Anonymous is a request without credentials on a route that allows it.
type Anonymous struct{}

func (Anonymous) caller() {}

// Rejected is a request that failed resolution. Err identifies the
// reason and doubles as the user-facing message.
type Rejected struct {
	Err error
}

func (Rejected) caller() {}

// Decoder verifies and decodes a signed token string.
type Decoder interface {
	Decode(raw string) (*token.Claims, error)
}

// Lookup fetches current account state for a token subject. A missing
// account is reported as shared.ErrNotFound.
type Lookup interface {
	LookupUser(ctx context.Context, username string) (*User, error)
}

// Resolver maps raw tokens to callers.
type Resolver struct {
	codec Decoder
	users Lookup
}

// NewResolver constructs a Resolver.
func NewResolver(codec Decoder, users Lookup) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// Resolve decodes raw and looks up the subject. An absent token yields
// Anonymous when allowAnonymous is set, Rejected{ErrMissingToken}
// otherwise. A token whose subject no longer exists (deleted account,
// still-valid token) yields Rejected{ErrUserNotFound}.
func (r *Resolver) Resolve(ctx context.Context, raw string, allowAnonymous bool) Caller {
	if raw == "" {
		if allowAnonymous {
			return Anonymous{}
		}
		return Rejected{Err: ErrMissingToken}
	}

	claims, err := r.codec.Decode(raw)
	if err != nil {
		return Rejected{Err: err}
	}

	user, err := r.users.LookupUser(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Rejected{Err: ErrUserNotFound}
		}
		return Rejected{Err: err}
	}
	return *user
}

// ResolveAdmin resolves a caller that must be an admin. The token's
// embedded admin flag is only a fast-path hint; the database flag is
// authoritative and both must agree. A demoted admin holding an older
// elevated token is rejected here.
func (r *Resolver) ResolveAdmin(ctx context.Context, raw string) Caller {
	if raw == "" {
		return Rejected{Err: ErrMissingToken}
	}

	claims, err := r.codec.Decode(raw)
	if err != nil {
		return Rejected{Err: err}
	}
	if !claims.IsAdmin {
		return Rejected{Err: ErrAdminRequired}
	}

	user, err := r.users.LookupUser(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Rejected{Err: ErrUserNotFound}
		}
		return Rejected{Err: err}
	}
	if !user.IsAdmin {
		return Rejected{Err: ErrAdminRequired}
	}
	return *user
}
