// AngelaMos | 2026
// dto.go

package plan

import (
	"time"

	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

type CreatePlanRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=1000"`
}

type AssignPlanRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

type AssignByNameRequest struct {
	Username string `json:"username"  validate:"required,max=64"`
	PlanName string `json:"plan_name" validate:"required,max=64"`
}

type PlanResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type AssignmentResponse struct {
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

type AssignByNameResponse struct {
	AssignmentResponse
	Message string `json:"message"`
}

func ToPlanResponse(p *store.Plan) PlanResponse {
	return PlanResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func ToPlanResponseList(plans []store.Plan) []PlanResponse {
	responses := make([]PlanResponse, 0, len(plans))
	for i := range plans {
		responses = append(responses, ToPlanResponse(&plans[i]))
	}
	return responses
}

func ToAssignmentResponse(a *store.Assignment) AssignmentResponse {
	return AssignmentResponse{
		UserID:     a.UserID,
		PlanID:     a.PlanID,
		AssignedAt: a.AssignedAt,
	}
}
