package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kapehan-pos/api/internal/config"
	"github.com/kapehan-pos/api/internal/database"
	"github.com/kapehan-pos/api/internal/enum"
	"github.com/kapehan-pos/api/internal/handler"
	mw "github.com/kapehan-pos/api/internal/middleware"
	"github.com/kapehan-pos/api/internal/service"
	"github.com/kapehan-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // Vite dev server
			"http://localhost:3000", // counter terminal dev
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Order engine shared by the public and staff order routes.
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub, cfg.JWTSecret)

	menuHandler := handler.NewMenuHandler(queries)

	// Public customer-facing routes: the QR ordering page reads the menu and
	// posts orders without a session.
	r.Get("/menu", menuHandler.PublicMenu)

	// Orders: create stays outside the auth middleware for QR ordering, the
	// staff endpoints sit behind it on the same mount.
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			orderHandler.RegisterRoutes(r)
		})
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		inventoryHandler := handler.NewInventoryHandler(
			queries,
			pool,
			func(db database.DBTX) handler.InventoryStore {
				return database.New(db)
			},
		)

		// Menu items with nested variants
		r.Route("/menu-items", func(r chi.Router) {
			r.Get("/", menuHandler.List)
			r.Get("/low-stock", inventoryHandler.LowStock)
			r.Get("/{id}", menuHandler.Get)
			r.Post("/{id}/restock", inventoryHandler.Restock)
			r.Post("/{id}/adjust", inventoryHandler.Adjust)

			// Catalog writes are admin-only
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleAdmin))
				r.Post("/", menuHandler.Create)
				r.Put("/{id}", menuHandler.Update)
				r.Delete("/{id}", menuHandler.Delete)
			})

			r.Route("/{mid}/variants", func(r chi.Router) {
				variantHandler := handler.NewVariantHandler(queries)
				r.Get("/", variantHandler.List)

				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleAdmin))
					r.Post("/", variantHandler.Create)
					r.Put("/{id}", variantHandler.Update)
					r.Delete("/{id}", variantHandler.Delete)
				})
			})
		})

		// Inventory ledger
		r.Get("/inventory-logs", inventoryHandler.ListLogs)

		// Categories
		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleAdmin))
				r.Post("/", categoryHandler.Create)
				r.Delete("/{id}", categoryHandler.Delete)
			})
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleOwner, enum.RoleAdmin))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
