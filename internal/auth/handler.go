package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bazaar-app/bazaar-gateway/internal/authz"
	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/l10n"
	"github.com/bazaar-app/bazaar-gateway/internal/platform/httpx"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

// Handler serves the auth and profile-preference routes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	perms    *authz.Store
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, perms *authz.Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		perms:    perms,
		validate: validator.New(),
	}
}

// MountRoutes registers the auth routes. credentialLimiter is the tighter
// rate bucket applied to the password-carrying endpoints only.
func (h *Handler) MountRoutes(r chi.Router, credentialLimiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if credentialLimiter != nil {
			r.Use(credentialLimiter)
		}
		r.Post("/auth/login", h.login)
		r.Post("/auth/signup", h.signup)
	})
	r.Get("/auth/me", h.me)
	r.Post("/auth/logout", h.logout)
	r.Put("/me/locale", h.updateLocale)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"required"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
}

type localeRequest struct {
	Locale string `json:"locale" validate:"required,bcp47_language_tag"`
}

type sessionResponse struct {
	User   backend.User `json:"user"`
	Locale string       `json:"locale"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	result, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	// A fresh identity starts with no resolved permissions, whatever the
	// previous occupant of this session id had.
	h.perms.Drop(sess.ID)
	sess.SetIdentity(result.User.ID, result.User.Role, result.Token)

	httpx.JSON(w, http.StatusOK, sessionResponse{User: result.User, Locale: sess.Locale()})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	result, err := h.service.Register(r.Context(), backend.SignupRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		if errors.Is(err, backend.ErrRejected) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("signup", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	h.perms.Drop(sess.ID)
	sess.SetIdentity(result.User.ID, result.User.Role, result.Token)

	httpx.JSON(w, http.StatusCreated, sessionResponse{User: result.User, Locale: sess.Locale()})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || !sess.Authenticated() {
		httpx.ProblemAt(w, http.StatusUnauthorized, "Unauthorized", "authentication required", authz.DefaultLoginPath)
		return
	}

	user, err := h.service.Current(r.Context(), sess.Token())
	if err != nil {
		if errors.Is(err, shared.ErrSessionExpired) {
			h.teardown(sess)
			httpx.ProblemAt(w, http.StatusUnauthorized, "Unauthorized", "session expired", authz.DefaultLoginPath)
			return
		}
		h.logger.Error("restore session", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}

	httpx.JSON(w, http.StatusOK, sessionResponse{User: user, Locale: sess.Locale()})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.teardown(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateLocale(w http.ResponseWriter, r *http.Request) {
	var req localeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	sess.SetLocale(l10n.ParseLocale(req.Locale).String())
	w.WriteHeader(http.StatusNoContent)
}

// teardown clears all access state for the session: identity, cookie, and the
// in-process permission set.
func (h *Handler) teardown(sess *shared.Session) {
	h.perms.Drop(sess.ID)
	sess.ClearIdentity()
	h.sessions.Destroy(sess)
}
