package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lamoy/api/internal/config"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/lamoy/api/internal/handler"
	"github.com/lamoy/api/internal/middleware"
	"github.com/lamoy/api/internal/service"
	"github.com/lamoy/api/internal/ws"
)

// New assembles the full HTTP surface: public auth and menu reads, customer
// order routes behind authentication, the admin back office behind the ADMIN
// role, and the live order feed over WebSocket.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub) *chi.Mux {
	queries := database.New(pool)

	orderService := service.NewOrderService(pool, queries, func(tx database.DBTX) service.OrderTxStore {
		return database.New(tx)
	}, hub)
	dashboardService := service.NewDashboardService(queries)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	menuHandler := handler.NewMenuHandler(queries)
	orderHandler := handler.NewOrderHandler(orderService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		// Public: account creation and menu browsing.
		api.Group(func(public chi.Router) {
			authHandler.RegisterRoutes(public)
			menuHandler.RegisterPublicRoutes(public)
		})

		// Authenticated: order placement and tracking.
		api.Group(func(authed chi.Router) {
			authed.Use(middleware.Authenticate(cfg.JWTSecret))
			orderHandler.RegisterRoutes(authed)
		})

		// Admin back office.
		api.Group(func(admin chi.Router) {
			admin.Use(middleware.Authenticate(cfg.JWTSecret))
			admin.Use(middleware.RequireRole(enum.RoleAdmin))
			orderHandler.RegisterAdminRoutes(admin)
			menuHandler.RegisterAdminRoutes(admin)
			dashboardHandler.RegisterRoutes(admin)
		})
	})

	r.Get("/ws/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	return r
}
