// Package jobs defines the gateway's background tasks and the Asynq worker
// hosting them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogRefresh re-fetches the category/city listings and
	// invalidates the cached copies.
	TaskCatalogRefresh = "catalog:refresh"
)

// CatalogRefreshPayload notes what triggered a refresh run.
type CatalogRefreshPayload struct {
	// Trigger is "cron" for scheduled runs, "manual" for runs requested
	// through the admin jobs endpoint.
	Trigger string `json:"trigger,omitempty"`
}

// NewCatalogRefreshTask constructs an Asynq task.
func NewCatalogRefreshTask(payload CatalogRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, data), nil
}
