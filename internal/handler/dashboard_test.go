package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lamoy/api/internal/enum"
	"github.com/lamoy/api/internal/handler"
	"github.com/lamoy/api/internal/middleware"
	"github.com/lamoy/api/internal/service"
)

type mockDashboardService struct {
	getDashboardFn func(ctx context.Context, identity service.Identity) (*service.Dashboard, error)
}

func (m *mockDashboardService) GetDashboard(ctx context.Context, identity service.Identity) (*service.Dashboard, error) {
	return m.getDashboardFn(ctx, identity)
}

func newDashboardServer(svc handler.DashboardServicer) http.Handler {
	h := handler.NewDashboardHandler(svc)
	r := chi.NewRouter()
	r.Group(func(g chi.Router) {
		g.Use(middleware.Authenticate(testSecret))
		g.Use(middleware.RequireRole(enum.RoleAdmin))
		h.RegisterRoutes(g)
	})
	return r
}

func TestDashboardHandler(t *testing.T) {
	svc := &mockDashboardService{
		getDashboardFn: func(ctx context.Context, identity service.Identity) (*service.Dashboard, error) {
			if !identity.IsAdmin() {
				t.Errorf("identity = %+v, want admin", identity)
			}
			return &service.Dashboard{
				TotalSales:  "150.00",
				TotalOrders: 2,
				ActiveUsers: 5,
			}, nil
		},
	}
	srv := newDashboardServer(svc)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TotalSales  string `json:"total_sales"`
		TotalOrders int64  `json:"total_orders"`
		ActiveUsers int64  `json:"active_users"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalSales != "150.00" || resp.TotalOrders != 2 || resp.ActiveUsers != 5 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestDashboardHandler_CustomerBlocked(t *testing.T) {
	srv := newDashboardServer(&mockDashboardService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Authorization", bearerToken(t, 10, enum.RoleCustomer))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestDashboardHandler_Anonymous(t *testing.T) {
	srv := newDashboardServer(&mockDashboardService{})

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
