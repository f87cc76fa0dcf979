package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bazaar-app/bazaar-gateway/internal/l10n"
	"github.com/bazaar-app/bazaar-gateway/internal/platform/httpx"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

// Handler serves the public catalog routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Get("/cities", h.listCities)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context(), requestLocale(r))
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) listCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.service.Cities(r.Context(), requestLocale(r))
	if err != nil {
		h.logger.Error("list cities", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUpstream)
		return
	}
	httpx.JSON(w, http.StatusOK, cities)
}

// requestLocale picks the display locale: explicit query parameter first,
// then the session preference, then the neutral default.
func requestLocale(r *http.Request) l10n.Locale {
	if tag := r.URL.Query().Get("locale"); tag != "" {
		return l10n.ParseLocale(tag)
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.Locale() != "" {
		return l10n.ParseLocale(sess.Locale())
	}
	return l10n.LocaleEn
}
