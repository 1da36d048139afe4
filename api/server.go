/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests from the back-office screens

  Protected group (when Options.Auth is set):
  5. Authenticate:      Bearer session token, 401 otherwise
  6. RequireBusiness:   Token must grant this process's business, 403
  7. RequirePermission: "frontdesk" scope, 403

ROUTE GROUPS:
  /api/health           Public
  /api/checkin          Check-in (protected)
  /api/bookings/*       Check-in + read models (protected)
  /api/invoices/*       Read model (protected)
  /api/scenarios/*      Demo scenarios (protected, only when enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/middleware.go: Session guards
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/adf/settlement-engine/auth"
)

// Options configures NewRouter.
type Options struct {
	// Auth guards every route except health. Nil disables authentication
	// (local demo only); check-ins are then attributed by staff fallback.
	Auth            *auth.Middleware
	CORSOrigins     []string
	EnableScenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if opts.Auth != nil {
				r.Use(opts.Auth.Authenticate)
				r.Use(opts.Auth.RequireBusiness)
				r.Use(auth.RequirePermission(auth.ScopeFrontDesk))
			}

			r.Post("/checkin", h.CheckIn)

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Get("/{id}/settlement", h.GetSettlement)
				r.Post("/{id}/check-in", h.CheckInBooking)
			})

			r.Get("/invoices/{number}", h.GetInvoice)

			if opts.EnableScenarios {
				r.Route("/scenarios", func(r chi.Router) {
					r.Get("/", h.ListScenarios)
					r.Get("/current", h.GetCurrentScenario)
					r.Post("/load", h.LoadScenario)
					r.Post("/reset", h.ResetDatabase)
				})
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Route not found")
	})

	return r
}
