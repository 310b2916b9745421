// AngelaMos | 2026
// handler.go

package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts the catalog under /plans and the assignment endpoint
// at /assign-plan. Reads are public; writes go through adminOnly.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{planID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", h.Create)
			r.Delete("/{planID}", h.Delete)
			r.Post("/assign", h.AssignByName)
		})
	})

	r.With(adminOnly).Post("/assign-plan", h.Assign)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToPlanResponse(p))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPlanResponseList(plans))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPlanResponse(p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "planID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	a, err := h.service.Assign(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToAssignmentResponse(a))
}

func (h *Handler) AssignByName(w http.ResponseWriter, r *http.Request) {
	var req AssignByNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.PlanName = strings.TrimSpace(req.PlanName)

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	a, p, err := h.service.AssignByName(r.Context(), req.Username, req.PlanName)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, AssignByNameResponse{
		AssignmentResponse: ToAssignmentResponse(a),
		Message:            fmt.Sprintf("Plan '%s' assigned to user '%s'.", p.Name, req.Username),
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, store.ErrPlanNotFound):
		core.NotFound(w, "plan")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user or plan")
	case errors.Is(err, store.ErrPlanNameTaken):
		core.JSONError(w, core.DuplicateError("plan name"))
	case errors.Is(err, store.ErrPlanInUse):
		core.JSONError(w, core.ConflictError("plan is assigned to users"))
	case errors.Is(err, core.ErrInvalidInput):
		core.UnprocessableEntity(w, "name: required")
	default:
		core.InternalServerError(w, err)
	}
}
