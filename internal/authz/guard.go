package authz

import (
	"log/slog"
	"net/http"

	"github.com/bazaar-app/bazaar-gateway/internal/platform/httpx"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

// Default navigation targets carried in deny responses so the client shell
// knows where to send the visitor.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
)

// Guard gates the admin subtree. Per request it moves through
// unresolved -> denied, or unresolved -> granted (super admin), or
// unresolved -> loading -> granted (admin, permission fetch). Handlers behind
// it only ever run in the granted state, so no half-evaluated permission
// surface is observable.
type Guard struct {
	Store     *Store
	Logger    *slog.Logger
	LoginPath string
	HomePath  string
}

// NewGuard constructs a Guard with default navigation targets.
func NewGuard(store *Store, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{Store: store, Logger: logger, LoginPath: DefaultLoginPath, HomePath: DefaultHomePath}
}

// Protect admits privileged sessions and injects the request evaluator.
// Unauthenticated visitors get a 401 pointing at login. Sessions whose role is
// not privileged get the same not-found shape an unknown path would produce;
// admin route internals are not advertised to them.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			httpx.ProblemAt(w, http.StatusUnauthorized, "Unauthorized", "authentication required", g.loginPath())
			return
		}

		role := ParseRole(sess.Role())
		if !role.Privileged() {
			httpx.ProblemAt(w, http.StatusNotFound, "Not Found", "", g.homePath())
			return
		}

		var set *PermissionSet
		if role == RoleAdmin {
			// Resolves to the cached set after the first request; a
			// fetch error resolves to the empty set and the request
			// proceeds with zero capabilities.
			set = g.Store.Resolve(r.Context(), sess.ID, sess.UserID(), sess.Token())
		}

		ev := NewEvaluator(true, role, set)
		next.ServeHTTP(w, r.WithContext(ContextWithEvaluator(r.Context(), ev)))
	})
}

// RequirePermission admits requests whose evaluator grants the named
// permission. Page-level access has already passed the guard, so a denial is
// a plain 403, not a redirect.
func RequirePermission(name PermissionName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !EvaluatorFromContext(r.Context()).HasPermission(name) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission: "+string(name))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission admits requests granted at least one of the names.
func RequireAnyPermission(names ...PermissionName) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !EvaluatorFromContext(r.Context()).HasAnyPermission(names...) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin admits only super admin sessions.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !EvaluatorFromContext(r.Context()).IsSuperAdmin() {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "super admin only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) loginPath() string {
	if g.LoginPath != "" {
		return g.LoginPath
	}
	return DefaultLoginPath
}

func (g *Guard) homePath() string {
	if g.HomePath != "" {
		return g.HomePath
	}
	return DefaultHomePath
}
