package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lamoy/api/internal/service"
)

// DashboardServicer defines the service methods needed by the dashboard
// handler. Satisfied by *service.DashboardService.
type DashboardServicer interface {
	GetDashboard(ctx context.Context, identity service.Identity) (*service.Dashboard, error)
}

// DashboardHandler handles the admin dashboard endpoint.
type DashboardHandler struct {
	svc DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc DashboardServicer) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// RegisterRoutes registers dashboard endpoints. Expected to be mounted inside
// a RequireRole(ADMIN) group under /api.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/dashboard", h.Get)
}

// Get handles GET /api/admin/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	dashboard, err := h.svc.GetDashboard(r.Context(), identity)
	if err != nil {
		writeServiceError(w, "get dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}
