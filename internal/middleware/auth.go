// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

const (
	PrincipalKey contextKey = "principal"

	AdminTokenHeader = "X-Admin-Token"
)

// Principal is the authenticated caller. Plan is nil for an unplanned user,
// which is a valid identity and not an authentication failure.
type Principal struct {
	User store.User
	Plan *store.PlanAssignment
}

// PlanName returns the name of the caller's plan, or "" when unplanned.
func (p *Principal) PlanName() string {
	if p == nil || p.Plan == nil {
		return ""
	}
	return p.Plan.Plan.Name
}

// IdentityResolver turns a bearer token into a Principal. Errors wrapping
// core.ErrUnauthorized, core.ErrTokenExpired or core.ErrTokenInvalid are
// authentication failures; anything else is an internal error.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*Principal, error)
}

func Authenticator(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(w, core.AuthenticationError())
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// handleAuthError answers every authentication failure with the same body.
// The underlying reason only reaches the debug log.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenInvalid),
		errors.Is(err, core.ErrUnauthorized):
		slog.DebugContext(r.Context(), "authentication failed",
			"reason", err.Error(),
			"request_id", GetRequestID(r.Context()),
		)
		core.JSONError(w, core.AuthenticationError())
	default:
		core.InternalServerError(w, err)
	}
}

func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.User.ID
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}

// RequireAdminToken guards operator routes with a shared token sent in
// X-Admin-Token. An empty token leaves the routes open.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		expected := []byte(token)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(AdminTokenHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				core.Forbidden(w, "admin token required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
