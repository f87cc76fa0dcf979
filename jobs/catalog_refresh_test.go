package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/catalog"
	jobmetrics "github.com/bazaar-app/bazaar-gateway/internal/jobs"
	"github.com/bazaar-app/bazaar-gateway/internal/l10n"
)

type refreshSource struct {
	calls int
	err   error
}

func (s *refreshSource) Categories(ctx context.Context) ([]backend.Category, error) {
	s.calls++
	return []backend.Category{{ID: 1, Slug: "jobs", Name: l10n.Name{De: "Stellen"}}}, s.err
}

func (s *refreshSource) Cities(ctx context.Context) ([]backend.City, error) {
	return []backend.City{{ID: 1, Slug: "berlin", Name: l10n.Name{De: "Berlin"}}}, s.err
}

func newRefreshJob(t *testing.T, src *refreshSource) *CatalogRefreshJob {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := catalog.NewService(src, catalog.NewCache(client, time.Minute))
	return NewCatalogRefreshJob(svc, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestCatalogRefreshHandle(t *testing.T) {
	src := &refreshSource{}
	job := newRefreshJob(t, src)

	task, err := NewCatalogRefreshTask(CatalogRefreshPayload{Trigger: "mutation"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, src.calls, "refresh warms the category listing")
}

func TestCatalogRefreshDefaultsTrigger(t *testing.T) {
	job := newRefreshJob(t, &refreshSource{})

	task := asynq.NewTask(TaskCatalogRefresh, []byte(`{}`))
	assert.NoError(t, job.Handle(context.Background(), task))
}

func TestCatalogRefreshMalformedPayloadSkipsRetry(t *testing.T) {
	job := newRefreshJob(t, &refreshSource{})

	task := asynq.NewTask(TaskCatalogRefresh, []byte(`{broken`))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCatalogRefreshPropagatesBackendError(t *testing.T) {
	job := newRefreshJob(t, &refreshSource{err: errors.New("backend down")})

	task, err := NewCatalogRefreshTask(CatalogRefreshPayload{})
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}
