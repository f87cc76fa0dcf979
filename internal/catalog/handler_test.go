package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-app/bazaar-gateway/internal/catalog"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

func TestListCategoriesHonoursQueryLocale(t *testing.T) {
	svc := newService(t, sampleSource())
	router := chi.NewRouter()
	catalog.NewHandler(nil, svc).MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/categories?locale=fa", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body []catalog.LocalizedCategory
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "وسایل نقلیه", body[0].Name)
}

func TestListCitiesFallsBackToSessionLocale(t *testing.T) {
	svc := newService(t, sampleSource())
	router := chi.NewRouter()
	catalog.NewHandler(nil, svc).MountRoutes(router)

	sess := &shared.Session{ID: "s1"}
	sess.SetLocale("de")

	req := httptest.NewRequest(http.MethodGet, "/cities", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body []catalog.LocalizedCity
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "Berlin", body[0].Name)
}

func TestListCategoriesAnonymousDefaultsToEnglish(t *testing.T) {
	svc := newService(t, sampleSource())
	router := chi.NewRouter()
	catalog.NewHandler(nil, svc).MountRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	// English has no category translations; the German chain serves.
	assert.Contains(t, res.Body.String(), "Fahrzeuge")
}
