package access_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/shared"
	"github.com/parley-forum/parley/internal/token"
	_ "github.com/parley-forum/parley/testing"
)

type memoryGrants struct {
	rows map[[2]int64]access.Level
	err  error
}

func (m *memoryGrants) FindGrant(ctx context.Context, userID, categoryID int64) (access.Level, error) {
	if m.err != nil {
		return access.LevelNone, m.err
	}
	return m.rows[[2]int64{userID, categoryID}], nil
}

type memoryLookup struct {
	users map[string]*identity.User
}

func (m *memoryLookup) LookupUser(ctx context.Context, username string) (*identity.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func newGate(t *testing.T, grants *memoryGrants) (*access.Gate, *token.Codec) {
	t.Helper()
	codec, err := token.New("gate-test-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	lookup := &memoryLookup{users: map[string]*identity.User{
		"alice": {ID: 2, Username: "alice"},
		"root":  {ID: 1, Username: "root", IsAdmin: true},
	}}
	return access.NewGate(identity.NewResolver(codec, lookup), grants), codec
}

func TestGateAuthenticateStatuses(t *testing.T) {
	gate, codec := newGate(t, &memoryGrants{})

	t.Run("missing token", func(t *testing.T) {
		_, denial := gate.Authenticate(context.Background(), "")
		if denial == nil || denial.Status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %+v", denial)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		_, denial := gate.Authenticate(context.Background(), "junk")
		if denial == nil || denial.Status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %+v", denial)
		}
		if !errors.Is(denial.Err, token.ErrMalformed) {
			t.Fatalf("expected malformed reason, got %v", denial.Err)
		}
	})

	t.Run("deleted account", func(t *testing.T) {
		raw, err := codec.Encode("ghost", false, time.Hour)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		_, denial := gate.Authenticate(context.Background(), raw)
		if denial == nil || denial.Status != http.StatusNotFound {
			t.Fatalf("expected 404, got %+v", denial)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		raw, err := codec.Encode("alice", false, time.Hour)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		user, denial := gate.Authenticate(context.Background(), raw)
		if denial != nil {
			t.Fatalf("unexpected denial: %+v", denial)
		}
		if user.Username != "alice" || user.ID != 2 {
			t.Fatalf("unexpected user %+v", user)
		}
	})
}

func TestGateAdminStatuses(t *testing.T) {
	gate, codec := newGate(t, &memoryGrants{})

	raw, err := codec.Encode("alice", false, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, denial := gate.AuthenticateAdmin(context.Background(), raw)
	if denial == nil || denial.Status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %+v", denial)
	}

	raw, err = codec.Encode("root", true, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	user, denial := gate.AuthenticateAdmin(context.Background(), raw)
	if denial != nil {
		t.Fatalf("unexpected denial: %+v", denial)
	}
	if !user.IsAdmin {
		t.Fatal("expected admin user")
	}
}

func TestGateAuthorizeReadConsultsGrants(t *testing.T) {
	grants := &memoryGrants{rows: map[[2]int64]access.Level{}}
	gate, _ := newGate(t, grants)
	alice := identity.User{ID: 2, Username: "alice"}
	private := access.Category{ID: 5, IsPrivate: true}

	if denial := gate.AuthorizeRead(context.Background(), alice, private); denial == nil || denial.Status != http.StatusForbidden {
		t.Fatalf("expected 403 without grant, got %+v", denial)
	}

	grants.rows[[2]int64{2, 5}] = access.LevelRead
	if denial := gate.AuthorizeRead(context.Background(), alice, private); denial != nil {
		t.Fatalf("expected read grant to authorize, got %+v", denial)
	}
	if denial := gate.AuthorizeWrite(context.Background(), alice, private); denial == nil || denial.Status != http.StatusForbidden {
		t.Fatalf("expected 403 write with read grant, got %+v", denial)
	}

	// Revocation closes access again.
	delete(grants.rows, [2]int64{2, 5})
	if denial := gate.AuthorizeRead(context.Background(), alice, private); denial == nil {
		t.Fatal("expected denial after revocation")
	}
}

func TestGateEffectiveLevel(t *testing.T) {
	grants := &memoryGrants{rows: map[[2]int64]access.Level{{2, 5}: access.LevelRead}}
	gate, _ := newGate(t, grants)
	private := access.Category{ID: 5, IsPrivate: true}

	level, err := gate.EffectiveLevel(context.Background(), identity.User{ID: 2, Username: "alice"}, private)
	if err != nil {
		t.Fatalf("effective level: %v", err)
	}
	if level != access.LevelRead {
		t.Fatalf("expected read, got %v", level)
	}

	level, err = gate.EffectiveLevel(context.Background(), identity.User{ID: 1, Username: "root", IsAdmin: true}, private)
	if err != nil {
		t.Fatalf("effective level: %v", err)
	}
	if level != access.LevelWrite {
		t.Fatalf("expected admin to collapse to write, got %v", level)
	}
}

func TestGateGrantLookupFailure(t *testing.T) {
	grants := &memoryGrants{err: errors.New("connection refused")}
	gate, _ := newGate(t, grants)
	private := access.Category{ID: 5, IsPrivate: true}

	denial := gate.AuthorizeRead(context.Background(), identity.User{ID: 2, Username: "alice"}, private)
	if denial == nil || denial.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 for grant lookup failure, got %+v", denial)
	}
}

func TestDenyResourceMissing(t *testing.T) {
	denial := access.DenyResourceMissing()
	if denial.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", denial.Status)
	}
	if !errors.Is(denial.Err, access.ErrResourceNotFound) {
		t.Fatalf("expected resource-not-found reason, got %v", denial.Err)
	}
}

func TestMiddlewareRequireUser(t *testing.T) {
	gate, codec := newGate(t, &memoryGrants{})
	mw := access.Middleware{Gate: gate}

	var seen identity.User
	handler := mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without credentials, got %d", rr.Code)
	}

	raw, err := codec.Encode("alice", false, time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen.Username != "alice" {
		t.Fatalf("expected caller in context, got %+v", seen)
	}
}

func TestMiddlewareOptionalUser(t *testing.T) {
	gate, _ := newGate(t, &memoryGrants{})
	mw := access.Middleware{Gate: gate}

	var caller identity.Caller
	handler := mw.OptionalUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = identity.CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := caller.(identity.Anonymous); !ok {
		t.Fatalf("expected anonymous caller, got %T", caller)
	}

	// A bad token still rejects on optional routes.
	req = httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed token, got %d", rr.Code)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := access.BearerToken(req); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := access.BearerToken(req); got != "abc.def.ghi" {
		t.Fatalf("unexpected token %q", got)
	}

	req.Header.Set("Authorization", "bearer lowercase-scheme")
	if got := access.BearerToken(req); got != "lowercase-scheme" {
		t.Fatalf("expected case-insensitive scheme, got %q", got)
	}

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := access.BearerToken(req); got != "" {
		t.Fatalf("expected empty token for basic scheme, got %q", got)
	}
}
