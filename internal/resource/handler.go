// AngelaMos | 2026
// handler.go

package resource

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/middleware"
)

type Response struct {
	Message      string        `json:"message"`
	Plan         string        `json:"plan"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/resource", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		core.JSONError(w, core.AuthenticationError())
		return
	}

	decision, err := h.dispatcher.Dispatch(principal.User.Username, principal.Plan)
	if err != nil {
		if errors.Is(err, core.ErrNoPlan) {
			core.JSONError(w, core.PlanRequiredError())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	resp := Response{
		Message: decision.Message,
		Plan:    decision.Plan,
	}
	if decision.Known {
		caps := decision.Capabilities
		resp.Capabilities = &caps
	}

	core.OK(w, resp)
}
