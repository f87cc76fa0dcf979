package authz_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/platform/httpx"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

func sessionFor(id, userID, role string) *shared.Session {
	sess := &shared.Session{ID: id}
	sess.SetIdentity(userID, role, "token-"+userID)
	return sess
}

func guardRequest(t *testing.T, guard *authz.Guard, sess *shared.Session, next http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	guard.Protect(next).ServeHTTP(res, req)
	return res
}

func decodeProblem(t *testing.T, res *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	return problem
}

func TestGuardDeniesAnonymous(t *testing.T) {
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		t.Fatal("fetch must not run for anonymous visitors")
		return nil, nil
	}, nil)
	guard := authz.NewGuard(store, nil)

	reached := false
	res := guardRequest(t, guard, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, authz.DefaultLoginPath, decodeProblem(t, res).Location)
}

func TestGuardHidesAdminAreaFromPlainUsers(t *testing.T) {
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		t.Fatal("fetch must not run for unprivileged roles")
		return nil, nil
	}, nil)
	guard := authz.NewGuard(store, nil)

	res := guardRequest(t, guard, sessionFor("s1", "u1", "USER"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("children must not render")
	}))

	// Wrong role reads as a missing route, pointing home.
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, authz.DefaultHomePath, decodeProblem(t, res).Location)
}

func TestGuardHidesAdminAreaFromUnknownRoles(t *testing.T) {
	store := authz.NewStore(nil, nil)
	guard := authz.NewGuard(store, nil)

	res := guardRequest(t, guard, sessionFor("s1", "u1", "MODERATOR"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("children must not render")
	}))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestGuardGrantsSuperAdminWithoutFetching(t *testing.T) {
	var fetches int32
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		atomic.AddInt32(&fetches, 1)
		return nil, nil
	}, nil)
	guard := authz.NewGuard(store, nil)

	res := guardRequest(t, guard, sessionFor("s1", "root", "SUPER_ADMIN"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := authz.EvaluatorFromContext(r.Context())
		assert.True(t, ev.IsSuperAdmin())
		assert.True(t, ev.HasPermission("anything.at.all"))
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 0, atomic.LoadInt32(&fetches), "super admin never materialises a permission set")
}

func TestGuardResolvesPermissionsForAdmins(t *testing.T) {
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		assert.Equal(t, "a1", adminID)
		assert.Equal(t, "token-a1", token)
		return []authz.Permission{{ID: 7, Name: "ads.moderate"}}, nil
	}, nil)
	guard := authz.NewGuard(store, nil)

	res := guardRequest(t, guard, sessionFor("s1", "a1", "ADMIN"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := authz.EvaluatorFromContext(r.Context())
		assert.False(t, ev.IsSuperAdmin())
		assert.True(t, ev.HasPermission("ads.moderate"))
		assert.False(t, ev.HasPermission("users.view"))
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, res.Code)
}

func TestGuardGrantsShellWhenFetchFails(t *testing.T) {
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		return nil, errors.New("backend down")
	}, nil)
	guard := authz.NewGuard(store, nil)

	reached := false
	handler := guard.Protect(authz.RequirePermission("ads.moderate")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	req := httptest.NewRequest(http.MethodGet, "/admin/ads", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sessionFor("s1", "a1", "ADMIN")))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	// The gate admits the admin; the gated operation denies.
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequirePermissionMiddleware(t *testing.T) {
	allowed := func() http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ev := authz.NewEvaluator(true, authz.RoleAdmin, grants("reports.manage"))
		req = req.WithContext(authz.ContextWithEvaluator(req.Context(), ev))
		res := httptest.NewRecorder()
		authz.RequirePermission("reports.manage")(allowed()).ServeHTTP(res, req)
		assert.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("denied", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ev := authz.NewEvaluator(true, authz.RoleAdmin, grants("reports.manage"))
		req = req.WithContext(authz.ContextWithEvaluator(req.Context(), ev))
		res := httptest.NewRecorder()
		authz.RequirePermission("users.view")(allowed()).ServeHTTP(res, req)
		assert.Equal(t, http.StatusForbidden, res.Code)
	})

	t.Run("no evaluator in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		res := httptest.NewRecorder()
		authz.RequirePermission("users.view")(allowed()).ServeHTTP(res, req)
		assert.Equal(t, http.StatusForbidden, res.Code)
	})
}

func TestRequireAnyPermissionMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ev := authz.NewEvaluator(true, authz.RoleAdmin, grants("cities.manage"))
	req = req.WithContext(authz.ContextWithEvaluator(req.Context(), ev))

	res := httptest.NewRecorder()
	authz.RequireAnyPermission("users.view", "cities.manage")(ok).ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	authz.RequireAnyPermission()(ok).ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code, "empty requirement denies non-super-admins")
}

func TestRequireSuperAdminMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authz.ContextWithEvaluator(req.Context(), authz.NewEvaluator(true, authz.RoleSuperAdmin, nil)))
	res := httptest.NewRecorder()
	authz.RequireSuperAdmin()(ok).ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authz.ContextWithEvaluator(req.Context(), authz.NewEvaluator(true, authz.RoleAdmin, grants("users.view"))))
	res = httptest.NewRecorder()
	authz.RequireSuperAdmin()(ok).ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRevokedPermissionHidesContentOnNextRequest(t *testing.T) {
	granted := []authz.Permission{{ID: 1, Name: "reports.manage"}}
	var revoked atomic.Bool
	store := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		if revoked.Load() {
			return nil, nil
		}
		return granted, nil
	}, nil)
	guard := authz.NewGuard(store, nil)

	handler := guard.Protect(authz.RequirePermission("reports.manage")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sessionFor("s1", "a1", "ADMIN")))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res.Code
	}

	assert.Equal(t, http.StatusOK, do())

	// A revoke lands: the set is invalidated, no re-login involved.
	revoked.Store(true)
	store.InvalidateAdmin("a1")

	assert.Equal(t, http.StatusForbidden, do())
}
