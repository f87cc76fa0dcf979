// Package catalog serves the public category and city listings with cached,
// locale-resolved names.
package catalog

import (
	"context"

	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/l10n"
)

// Source loads catalog data from the backend.
type Source interface {
	Categories(ctx context.Context) ([]backend.Category, error)
	Cities(ctx context.Context) ([]backend.City, error)
}

// LocalizedCategory is a category with its name resolved for one locale.
type LocalizedCategory struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	ParentID int64  `json:"parentId,omitempty"`
}

// LocalizedCity is a city with its name resolved for one locale.
type LocalizedCity struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Service caches the raw multilingual records and localizes per request, so
// one cached copy serves all locales.
type Service struct {
	source Source
	cache  *Cache
}

// NewService constructs a Service.
func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// Categories returns the category listing localized for the locale.
// Categories are only maintained in Persian and German, so resolution uses
// the two-language chain.
func (s *Service) Categories(ctx context.Context, locale l10n.Locale) ([]LocalizedCategory, error) {
	raw, err := s.rawCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LocalizedCategory, 0, len(raw))
	for _, c := range raw {
		out = append(out, LocalizedCategory{
			ID:       c.ID,
			Slug:     c.Slug,
			Name:     l10n.ResolveCategory(c.Name, locale),
			ParentID: c.ParentID,
		})
	}
	return out, nil
}

// Cities returns the city listing localized for the locale.
func (s *Service) Cities(ctx context.Context, locale l10n.Locale) ([]LocalizedCity, error) {
	raw, err := s.rawCities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LocalizedCity, 0, len(raw))
	for _, c := range raw {
		out = append(out, LocalizedCity{
			ID:   c.ID,
			Slug: c.Slug,
			Name: l10n.Resolve(c.Name, locale),
		})
	}
	return out, nil
}

// Refresh invalidates the cached listings and warms them again. Run by the
// worker cron and after catalog mutations.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		return err
	}
	if _, err := s.rawCategories(ctx); err != nil {
		return err
	}
	_, err := s.rawCities(ctx)
	return err
}

func (s *Service) rawCategories(ctx context.Context) ([]backend.Category, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "categories")
	if err != nil {
		return nil, err
	}
	var raw []backend.Category
	err = s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (any, error) {
		return s.source.Categories(ctx)
	})
	return raw, err
}

func (s *Service) rawCities(ctx context.Context) ([]backend.City, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "cities")
	if err != nil {
		return nil, err
	}
	var raw []backend.City
	err = s.cache.FetchJSON(ctx, key, &raw, func(ctx context.Context) (any, error) {
		return s.source.Cities(ctx)
	})
	return raw, err
}
