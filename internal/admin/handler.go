// Package admin serves the back-office REST surface: permission management,
// user listing, ad moderation, and report handling. Every route lives behind
// the authz guard; individual operations add fine-grained permission checks.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/platform/httpx"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

// API is the slice of the backend client the back office needs.
type API interface {
	PermissionCatalog(ctx context.Context, token string) ([]authz.Permission, error)
	AdminPermissions(ctx context.Context, token, adminID string) ([]authz.Permission, error)
	AssignPermission(ctx context.Context, token, adminID string, permissionID int64) error
	RevokePermission(ctx context.Context, token, adminID string, permissionID int64) error
	AdminUsers(ctx context.Context, token string) ([]backend.User, error)
	AdsByStatus(ctx context.Context, token, status string) ([]backend.Ad, error)
	SetAdStatus(ctx context.Context, token, adID, status, reason string) error
	Reports(ctx context.Context, token string) ([]backend.Report, error)
	ResolveReport(ctx context.Context, token, reportID, resolution string) error
}

// Handler serves the admin routes.
type Handler struct {
	logger   *slog.Logger
	api      API
	perms    *authz.Store
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, perms *authz.Store, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		api:      api,
		perms:    perms,
		sessions: sessions,
		validate: validator.New(),
	}
}

// MountRoutes registers the admin routes. The caller wraps the whole group in
// the guard; permission middleware here is per-operation.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/capabilities", h.capabilities)

	r.Group(func(r chi.Router) {
		r.Use(authz.RequirePermission(authz.PermAdminsManage))
		r.Get("/permissions", h.listCatalog)
		r.Get("/admins/{adminID}/permissions", h.listAdminPermissions)
		r.Post("/permissions/assign", h.assignPermission)
		r.Delete("/permissions/revoke", h.revokePermission)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequirePermission(authz.PermUsersView))
		r.Get("/users", h.listUsers)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequirePermission(authz.PermAdsModerate))
		r.Get("/ads", h.listAds)
		r.Patch("/ads/{adID}/status", h.setAdStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.RequirePermission(authz.PermReportsManage))
		r.Get("/reports", h.listReports)
		r.Patch("/reports/{reportID}", h.resolveReport)
	})
}

// capabilities reports the evaluated permission map for the current session
// so the client shell can hide gated controls without duplicating the rules.
func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) {
	ev := authz.EvaluatorFromContext(r.Context())
	caps := make(map[string]bool)
	for name, granted := range ev.Capabilities() {
		caps[string(name)] = granted
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"superAdmin":   ev.IsSuperAdmin(),
		"capabilities": caps,
	})
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	perms, err := h.api.PermissionCatalog(r.Context(), h.token(r))
	if err != nil {
		h.respondError(w, r, "list permission catalog", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) listAdminPermissions(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminID")
	perms, err := h.api.AdminPermissions(r.Context(), h.token(r), adminID)
	if err != nil {
		h.respondError(w, r, "list admin permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

type assignmentRequest struct {
	AdminID      string `json:"adminId" validate:"required"`
	PermissionID int64  `json:"permissionId" validate:"required,gt=0"`
}

func (h *Handler) assignPermission(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.api.AssignPermission(r.Context(), h.token(r), req.AdminID, req.PermissionID); err != nil {
		h.respondError(w, r, "assign permission", err)
		return
	}
	// The grant is visible on the target admin's next request.
	h.perms.InvalidateAdmin(req.AdminID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.api.RevokePermission(r.Context(), h.token(r), req.AdminID, req.PermissionID); err != nil {
		h.respondError(w, r, "revoke permission", err)
		return
	}
	h.perms.InvalidateAdmin(req.AdminID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.api.AdminUsers(r.Context(), h.token(r))
	if err != nil {
		h.respondError(w, r, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) listAds(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "PENDING"
	}
	ads, err := h.api.AdsByStatus(r.Context(), h.token(r), status)
	if err != nil {
		h.respondError(w, r, "list ads", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ads)
}

type adStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Reason string `json:"reason" validate:"required_if=Status REJECTED"`
}

func (h *Handler) setAdStatus(w http.ResponseWriter, r *http.Request) {
	var req adStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	adID := chi.URLParam(r, "adID")
	if err := h.api.SetAdStatus(r.Context(), h.token(r), adID, req.Status, req.Reason); err != nil {
		h.respondError(w, r, "set ad status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.api.Reports(r.Context(), h.token(r))
	if err != nil {
		h.respondError(w, r, "list reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

type reportResolutionRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=DISMISSED ACTIONED"`
}

func (h *Handler) resolveReport(w http.ResponseWriter, r *http.Request) {
	var req reportResolutionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	reportID := chi.URLParam(r, "reportID")
	if err := h.api.ResolveReport(r.Context(), h.token(r), reportID, req.Resolution); err != nil {
		h.respondError(w, r, "resolve report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) token(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.Token()
	}
	return ""
}

// respondError maps backend failures. A 401 from the backend means the token
// died mid-session: tear the session down and point the client at login.
// Validation rejections carry the backend's message; everything else is an
// opaque upstream failure.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			h.perms.Drop(sess.ID)
			sess.ClearIdentity()
			h.sessions.Destroy(sess)
		}
		httpx.ProblemAt(w, http.StatusUnauthorized, "Unauthorized", "session expired", authz.DefaultLoginPath)
	case errors.Is(err, backend.ErrRejected):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
	}
}
