package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bazaar-app/bazaar-gateway/internal/catalog"
	jobmetrics "github.com/bazaar-app/bazaar-gateway/internal/jobs"
)

// CatalogRefreshJob keeps the cached category/city listings warm and current.
type CatalogRefreshJob struct {
	Catalog *catalog.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCatalogRefreshJob wires dependencies for the refresh handler.
func NewCatalogRefreshJob(catalogSvc *catalog.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogRefreshJob {
	return &CatalogRefreshJob{
		Catalog: catalogSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes catalog refresh tasks.
func (j *CatalogRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog refresh: handler not configured")
	}
	var payload CatalogRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Trigger == "" {
		payload.Trigger = "cron"
	}

	tracker := j.metrics().Track(TaskCatalogRefresh)
	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	start := j.clock()

	if err := j.Catalog.Refresh(ctx); err != nil {
		logger.Error("catalog refresh failed", slog.Any("error", err))
		return tracker.End(err)
	}

	logger.Info("catalog refreshed", slog.Duration("took", j.clock().Sub(start)))
	return tracker.End(nil)
}

func (j *CatalogRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *CatalogRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
