/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and routes. This is the
  wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the portal frontend

ROUTE GUARD:
  The admin subtree is additionally guarded by the authorization engine's
  route-prefix matrix: the actor's role (from the X-Actor-Role header,
  supplied by the upstream auth gateway) must be allowed under /admin.
  Fail-closed - a missing or unknown role is denied.

SECURITY NOTE:
  Authentication is an external collaborator; this service trusts the
  gateway-supplied identity headers and must not be exposed directly.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/perks-engine/authz"
)

// Identity headers supplied by the upstream auth gateway.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderActorID, HeaderActorRole},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/redemptions", h.Redeem)

		r.Route("/offers", func(r chi.Router) {
			r.Post("/status", h.OfferStatus)
		})

		r.Get("/usage/{employeeID}/{offerID}", h.GetUsage)

		r.Route("/authz", func(r chi.Router) {
			r.Get("/check", h.AuthzCheck)
		})

		// Administrative reset is excluded from production surfaces entirely:
		// the route is simply not mounted.
		if !h.Production {
			r.Route("/admin", func(r chi.Router) {
				r.Use(routeGuard(h.Authz, "/admin"))
				r.Post("/reset", h.ResetUsage)
			})
		}
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"perks-engine"}`))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// routeGuard denies requests whose gateway-supplied role is not allowed
// under the given portal prefix. Fail-closed: no header, unknown role, or
// unlisted prefix all deny.
func routeGuard(engine *authz.Engine, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := authz.Role(r.Header.Get(HeaderActorRole))
			if !engine.CanAccessRoute(role, prefix) {
				writeError(w, http.StatusForbidden, "role not permitted for this route")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
