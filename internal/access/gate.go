package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/token"
)

// Gate-level denial reasons. Identity rejections carry their own
// sentinels; these cover resource-scoped outcomes.
var (
	ErrInsufficientAccess = errors.New("insufficient access")
	ErrResourceNotFound   = errors.New("no such resource")
)

// Grants supplies stored per-user category access rows. LevelNone
// means no row; absence of a row is not an error.
type Grants interface {
	FindGrant(ctx context.Context, userID, categoryID int64) (Level, error)
}

// Denial is a terminal deny decision with the HTTP status the routing
// layer should answer with.
type Denial struct {
	Status int
	Err    error
}

func (d *Denial) Error() string {
	return d.Err.Error()
}

func (d *Denial) Unwrap() error {
	return d.Err
}

// Deny wraps a denial reason with its HTTP status. Malformed, expired
// and missing tokens are client errors; a valid token for a deleted
// account is not-found; privilege failures are forbidden. Anything
// unrecognized is treated as an internal failure.
func Deny(err error) *Denial {
	return &Denial{Status: statusFor(err), Err: err}
}

// DenyResourceMissing reports a checked resource that does not exist.
// Kept distinct from authorization denials: the two failure causes
// must not be conflated.
func DenyResourceMissing() *Denial {
	return &Denial{Status: http.StatusNotFound, Err: ErrResourceNotFound}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrMissingToken),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrAdminRequired),
		errors.Is(err, ErrInsufficientAccess):
		return http.StatusForbidden
	case errors.Is(err, ErrResourceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Gate chains identity resolution and capability checks into
// accept/deny decisions for one request at a time. It holds no
// per-request state.
type Gate struct {
	resolver *identity.Resolver
	grants   Grants
}

// NewGate constructs a Gate.
func NewGate(resolver *identity.Resolver, grants Grants) *Gate {
	return &Gate{resolver: resolver, grants: grants}
}

// Authenticate resolves a caller that must be a known user.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (identity.User, *Denial) {
	caller := g.resolver.Resolve(ctx, rawToken, false)
	switch c := caller.(type) {
	case identity.User:
		return c, nil
	case identity.Rejected:
		return identity.User{}, Deny(c.Err)
	default:
		return identity.User{}, Deny(identity.ErrMissingToken)
	}
}

// AuthenticateAdmin resolves a caller that must be an admin.
func (g *Gate) AuthenticateAdmin(ctx context.Context, rawToken string) (identity.User, *Denial) {
	caller := g.resolver.ResolveAdmin(ctx, rawToken)
	switch c := caller.(type) {
	case identity.User:
		return c, nil
	case identity.Rejected:
		return identity.User{}, Deny(c.Err)
	default:
		return identity.User{}, Deny(identity.ErrAdminRequired)
	}
}

// Resolve resolves a caller on a route that tolerates anonymous
// visitors. Only token problems deny.
func (g *Gate) Resolve(ctx context.Context, rawToken string) (identity.Caller, *Denial) {
	caller := g.resolver.Resolve(ctx, rawToken, true)
	if rejected, ok := caller.(identity.Rejected); ok {
		return nil, Deny(rejected.Err)
	}
	return caller, nil
}

// GrantFor fetches the stored grant backing a capability check.
// Admins and anonymous callers never have rows to fetch.
func (g *Gate) GrantFor(ctx context.Context, caller identity.Caller, categoryID int64) (Level, error) {
	user, ok := caller.(identity.User)
	if !ok || user.IsAdmin {
		return LevelNone, nil
	}
	return g.grants.FindGrant(ctx, user.ID, categoryID)
}

// AuthorizeRead denies unless the caller may read the category.
func (g *Gate) AuthorizeRead(ctx context.Context, caller identity.Caller, category Category) *Denial {
	grant, err := g.GrantFor(ctx, caller, category.ID)
	if err != nil {
		return Deny(err)
	}
	if !CanRead(caller, category, grant) {
		return Deny(ErrInsufficientAccess)
	}
	return nil
}

// AuthorizeWrite denies unless the caller may post into the category.
func (g *Gate) AuthorizeWrite(ctx context.Context, caller identity.Caller, category Category) *Denial {
	grant, err := g.GrantFor(ctx, caller, category.ID)
	if err != nil {
		return Deny(err)
	}
	if !CanWrite(caller, category, grant) {
		return Deny(ErrInsufficientAccess)
	}
	return nil
}

// EffectiveLevel combines the stored grant with the caller's role.
func (g *Gate) EffectiveLevel(ctx context.Context, caller identity.Caller, category Category) (Level, error) {
	grant, err := g.GrantFor(ctx, caller, category.ID)
	if err != nil {
		return LevelNone, err
	}
	return LevelOf(caller, category, grant), nil
}
