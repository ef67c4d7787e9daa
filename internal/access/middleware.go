package access

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/platform/httpx"
)

// Middleware wires per-route authentication guards for HTTP handlers.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequireUser resolves the bearer token and rejects anonymous callers.
// The resolved user is placed in the request context.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, denial := m.Gate.Authenticate(r.Context(), BearerToken(r))
		if denial != nil {
			m.deny(w, r, denial)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.ContextWithCaller(r.Context(), user)))
	})
}

// RequireAdmin resolves the bearer token and rejects non-admins.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, denial := m.Gate.AuthenticateAdmin(r.Context(), BearerToken(r))
		if denial != nil {
			m.deny(w, r, denial)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.ContextWithCaller(r.Context(), user)))
	})
}

// OptionalUser resolves the bearer token when present and lets
// anonymous callers through. Token problems still reject.
func (m Middleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, denial := m.Gate.Resolve(r.Context(), BearerToken(r))
		if denial != nil {
			m.deny(w, r, denial)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.ContextWithCaller(r.Context(), caller)))
	})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, denial *Denial) {
	if denial.Status == http.StatusInternalServerError && m.Logger != nil {
		m.Logger.Error("authorization failure", slog.String("path", r.URL.Path), slog.Any("error", denial.Err))
		httpx.Problem(w, denial.Status, http.StatusText(denial.Status), "")
		return
	}
	httpx.Problem(w, denial.Status, http.StatusText(denial.Status), denial.Err.Error())
}

// BearerToken extracts the raw token from the Authorization header.
// Returns the empty string when the header is absent or not a bearer
// scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// RespondDenial writes a denial computed inside a handler.
func RespondDenial(w http.ResponseWriter, denial *Denial) {
	if denial.Status == http.StatusInternalServerError {
		httpx.Problem(w, denial.Status, http.StatusText(denial.Status), "")
		return
	}
	httpx.Problem(w, denial.Status, http.StatusText(denial.Status), denial.Err.Error())
}
