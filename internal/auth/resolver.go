// AngelaMos | 2026
// resolver.go

package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/middleware"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

// PlanLookup returns a user's current plan, nil when unplanned.
type PlanLookup interface {
	CurrentPlan(ctx context.Context, userID string) (*store.PlanAssignment, error)
}

type Resolver struct {
	tokens *JWTManager
	users  store.UserRepository
	plans  PlanLookup
}

func NewResolver(
	tokens *JWTManager,
	users store.UserRepository,
	plans PlanLookup,
) *Resolver {
	return &Resolver{
		tokens: tokens,
		users:  users,
		plans:  plans,
	}
}

// Resolve verifies the token, loads its user and attaches the current plan.
// A missing user is an authentication failure; a missing plan is not.
func (r *Resolver) Resolve(
	ctx context.Context,
	token string,
) (*middleware.Principal, error) {
	ctx, span := core.StartSpan(ctx, "auth", "auth.resolve")
	defer span.End()

	if token == "" {
		return nil, fmt.Errorf("resolve: missing token: %w", core.ErrUnauthorized)
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		core.FailSpan(ctx, nil, "token rejected")
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", claims.UserID))

	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("resolve: subject no longer exists: %w", core.ErrUnauthorized)
		}
		core.FailSpan(ctx, err, "user lookup failed")
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	plan, err := r.plans.CurrentPlan(ctx, user.ID)
	if err != nil {
		core.FailSpan(ctx, err, "plan lookup failed")
		return nil, fmt.Errorf("resolve plan: %w", err)
	}

	principal := &middleware.Principal{User: *user, Plan: plan}
	principal.User.PasswordHash = ""

	span.SetAttributes(attribute.String("plan.name", principal.PlanName()))

	return principal, nil
}

var _ middleware.IdentityResolver = (*Resolver)(nil)
