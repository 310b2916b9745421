// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

// UserResponse is the public view of a user. Plan fields are null for an
// unplanned user.
type UserResponse struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          *string    `json:"email"`
	Plan           *string    `json:"plan"`
	PlanID         *string    `json:"plan_id"`
	PlanAssignedAt *time.Time `json:"plan_assigned_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type PlanResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AssignedAt  time.Time `json:"assigned_at"`
}

type CurrentPlanResponse struct {
	UserID string        `json:"user_id"`
	Plan   *PlanResponse `json:"plan"`
}

func ToUserResponse(u *store.User, pa *store.PlanAssignment) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}

	if pa != nil {
		name := pa.Plan.Name
		id := pa.Plan.ID
		at := pa.AssignedAt
		resp.Plan = &name
		resp.PlanID = &id
		resp.PlanAssignedAt = &at
	}

	return resp
}

func ToUserResponseList(
	users []store.User,
	plans map[string]store.PlanAssignment,
) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		var pa *store.PlanAssignment
		if p, ok := plans[users[i].ID]; ok {
			pa = &p
		}
		responses = append(responses, ToUserResponse(&users[i], pa))
	}
	return responses
}

func toPlanResponse(pa *store.PlanAssignment) *PlanResponse {
	if pa == nil {
		return nil
	}
	return &PlanResponse{
		ID:          pa.Plan.ID,
		Name:        pa.Plan.Name,
		Description: pa.Plan.Description,
		AssignedAt:  pa.AssignedAt,
	}
}
