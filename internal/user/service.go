// AngelaMos | 2026
// service.go

package user

import (
	"context"

	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

// PlanDirectory is the slice of the plan service users need: the current
// plan lookup and dropping whatever is cached for a user.
type PlanDirectory interface {
	CurrentPlan(ctx context.Context, userID string) (*store.PlanAssignment, error)
	Forget(ctx context.Context, userID string)
}

type Service struct {
	store store.Store
	plans PlanDirectory
}

func NewService(s store.Store, plans PlanDirectory) *Service {
	return &Service{store: s, plans: plans}
}

// CurrentPlan is the plan lookup for a user addressed by id. Unknown users are
// ErrNotFound; an unplanned user is a nil plan.
func (s *Service) CurrentPlan(
	ctx context.Context,
	userID string,
) (*store.PlanAssignment, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}

	return s.plans.CurrentPlan(ctx, userID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params store.ListUsersParams,
) ([]UserResponse, int, error) {
	params.Normalize()

	users, total, err := s.store.Users().List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	plans, err := s.store.Assignments().CurrentForUsers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	return ToUserResponseList(users, plans), total, nil
}

// DeleteUser removes the user together with its assignment.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}

	s.plans.Forget(ctx, id)
	return nil
}
