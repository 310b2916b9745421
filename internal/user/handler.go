// AngelaMos | 2026
// handler.go

package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/middleware"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.With(authenticator).Get("/me", h.GetMe)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", h.ListUsers)
			r.Delete("/{userID}", h.DeleteUser)
			r.Get("/{userID}/plan", h.GetUserPlan)
		})
	})
}

// GetMe renders the principal resolved by the authenticator; the user and
// plan were loaded while resolving the token.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		core.JSONError(w, core.AuthenticationError())
		return
	}

	core.OK(w, ToUserResponse(&principal.User, principal.Plan))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := store.ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, users, params.Page, params.PageSize, total)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) GetUserPlan(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	plan, err := h.service.CurrentPlan(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, CurrentPlanResponse{
		UserID: userID,
		Plan:   toPlanResponse(plan),
	})
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
