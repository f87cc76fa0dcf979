package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-app/bazaar-gateway/internal/admin"
	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

type stubBackoffice struct {
	catalog     []authz.Permission
	adminPerms  []authz.Permission
	users       []backend.User
	ads         []backend.Ad
	reports     []backend.Report
	err         error
	assigned    []string
	revoked     []string
	adStatuses  map[string]string
	resolutions map[string]string
}

func (s *stubBackoffice) PermissionCatalog(ctx context.Context, token string) ([]authz.Permission, error) {
	return s.catalog, s.err
}

func (s *stubBackoffice) AdminPermissions(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
	return s.adminPerms, s.err
}

func (s *stubBackoffice) AssignPermission(ctx context.Context, token, adminID string, permissionID int64) error {
	s.assigned = append(s.assigned, adminID)
	return s.err
}

func (s *stubBackoffice) RevokePermission(ctx context.Context, token, adminID string, permissionID int64) error {
	s.revoked = append(s.revoked, adminID)
	return s.err
}

func (s *stubBackoffice) AdminUsers(ctx context.Context, token string) ([]backend.User, error) {
	return s.users, s.err
}

func (s *stubBackoffice) AdsByStatus(ctx context.Context, token, status string) ([]backend.Ad, error) {
	return s.ads, s.err
}

func (s *stubBackoffice) SetAdStatus(ctx context.Context, token, adID, status, reason string) error {
	if s.adStatuses == nil {
		s.adStatuses = map[string]string{}
	}
	s.adStatuses[adID] = status
	return s.err
}

func (s *stubBackoffice) Reports(ctx context.Context, token string) ([]backend.Report, error) {
	return s.reports, s.err
}

func (s *stubBackoffice) ResolveReport(ctx context.Context, token, reportID, resolution string) error {
	if s.resolutions == nil {
		s.resolutions = map[string]string{}
	}
	s.resolutions[reportID] = resolution
	return s.err
}

type backoffice struct {
	api    *stubBackoffice
	perms  *authz.Store
	router chi.Router
}

func newBackoffice(t *testing.T, api *stubBackoffice) *backoffice {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "bazaar_session", "test-secret", time.Hour, false)
	perms := authz.NewStore(func(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
		return nil, nil
	}, nil)

	router := chi.NewRouter()
	admin.NewHandler(nil, api, perms, sessions).MountRoutes(router)
	return &backoffice{api: api, perms: perms, router: router}
}

func grants(names ...authz.PermissionName) *authz.PermissionSet {
	perms := make([]authz.Permission, 0, len(names))
	for i, name := range names {
		perms = append(perms, authz.Permission{ID: int64(i + 1), Name: name})
	}
	return authz.NewPermissionSet(perms)
}

// do issues a request carrying an admin evaluator with the given grants, the
// way the route guard would have prepared it.
func (b *backoffice) do(t *testing.T, method, path, body string, set *authz.PermissionSet) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	sess := &shared.Session{ID: "sess-admin"}
	sess.SetIdentity("a1", "ADMIN", "tok-a1")
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = authz.ContextWithEvaluator(ctx, authz.NewEvaluator(true, authz.RoleAdmin, set))

	res := httptest.NewRecorder()
	b.router.ServeHTTP(res, req.WithContext(ctx))
	return res
}

func TestCapabilitiesReflectGrants(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	res := b.do(t, http.MethodGet, "/capabilities", "", grants(authz.PermAdsModerate))
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		SuperAdmin   bool            `json:"superAdmin"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.False(t, body.SuperAdmin)
	assert.True(t, body.Capabilities["ads.moderate"])
	assert.False(t, body.Capabilities["users.view"])
}

func TestGatedOperationsDenyMissingPermission(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/permissions"},
		{http.MethodGet, "/admins/a2/permissions"},
		{http.MethodPost, "/permissions/assign"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/ads"},
		{http.MethodGet, "/reports"},
	}
	for _, tc := range cases {
		res := b.do(t, tc.method, tc.path, "", grants())
		assert.Equalf(t, http.StatusForbidden, res.Code, "%s %s", tc.method, tc.path)
	}
}

func TestListUsersWithGrant(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{users: []backend.User{{ID: "u1", Email: "one@example.com"}}})

	res := b.do(t, http.MethodGet, "/users", "", grants(authz.PermUsersView))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "one@example.com")
}

func TestAssignPermissionInvalidatesTargetAdmin(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	// The target admin already has a resolved set in this process.
	b.perms.Resolve(context.Background(), "sess-target", "a2", "tok-a2")
	set, ok := b.perms.Get("sess-target")
	require.True(t, ok)
	require.NotNil(t, set)

	res := b.do(t, http.MethodPost, "/permissions/assign",
		`{"adminId":"a2","permissionId":3}`, grants(authz.PermAdminsManage))
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, []string{"a2"}, b.api.assigned)

	_, ok = b.perms.Get("sess-target")
	assert.False(t, ok, "assign must invalidate the target admin's cached set")
}

func TestRevokePermissionInvalidatesTargetAdmin(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	b.perms.Resolve(context.Background(), "sess-target", "a2", "tok-a2")

	res := b.do(t, http.MethodDelete, "/permissions/revoke",
		`{"adminId":"a2","permissionId":3}`, grants(authz.PermAdminsManage))
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, []string{"a2"}, b.api.revoked)

	_, ok := b.perms.Get("sess-target")
	assert.False(t, ok)
}

func TestAssignPermissionValidatesPayload(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	res := b.do(t, http.MethodPost, "/permissions/assign",
		`{"adminId":"","permissionId":0}`, grants(authz.PermAdminsManage))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, b.api.assigned)
}

func TestListAdsDefaultsToPending(t *testing.T) {
	api := &stubBackoffice{ads: []backend.Ad{{ID: "ad1", Status: "PENDING"}}}
	b := newBackoffice(t, api)

	res := b.do(t, http.MethodGet, "/ads", "", grants(authz.PermAdsModerate))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "ad1")
}

func TestSetAdStatusRequiresReasonForRejection(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	res := b.do(t, http.MethodPatch, "/ads/ad1/status",
		`{"status":"REJECTED"}`, grants(authz.PermAdsModerate))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = b.do(t, http.MethodPatch, "/ads/ad1/status",
		`{"status":"REJECTED","reason":"spam"}`, grants(authz.PermAdsModerate))
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "REJECTED", b.api.adStatuses["ad1"])
}

func TestResolveReport(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{})

	res := b.do(t, http.MethodPatch, "/reports/r1",
		`{"resolution":"DISMISSED"}`, grants(authz.PermReportsManage))
	require.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "DISMISSED", b.api.resolutions["r1"])

	res = b.do(t, http.MethodPatch, "/reports/r1",
		`{"resolution":"SHREDDED"}`, grants(authz.PermReportsManage))
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestStaleTokenTearsDownSession(t *testing.T) {
	b := newBackoffice(t, &stubBackoffice{err: backend.ErrUnauthorized})

	res := b.do(t, http.MethodGet, "/users", "", grants(authz.PermUsersView))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body.String(), authz.DefaultLoginPath)
}
