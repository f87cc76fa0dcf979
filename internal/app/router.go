package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bazaar-app/bazaar-gateway/internal/admin"
	"github.com/bazaar-app/bazaar-gateway/internal/auth"
	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/catalog"
	"github.com/bazaar-app/bazaar-gateway/internal/observability"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
	"github.com/bazaar-app/bazaar-gateway/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Guard          *authz.Guard
	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	AdminHandler   *admin.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with gateway defaults. Public routes
// (health, catalog, auth) never tear sessions down; the admin subtree lives
// behind the guard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r, LoginRateLimiter())
	}

	if params.AdminHandler != nil && params.Guard != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(params.Guard.Protect)
			params.AdminHandler.MountRoutes(r)

			if params.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(authz.RequireSuperAdmin())
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	}

	return r
}
