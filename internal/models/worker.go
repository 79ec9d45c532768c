package models

import (
	"database/sql"
	"time"
)

// WorkerStatus is the persisted state of one background worker instance
type WorkerStatus struct {
	ID                  int            `json:"id"`
	WorkerInstance      string         `json:"worker_instance"`
	IsRunning           bool           `json:"is_running"`
	IsPaused            bool           `json:"is_paused"`
	CurrentActivity     sql.NullString `json:"-"`
	LastHeartbeat       sql.NullTime   `json:"-"`
	LastRunStart        sql.NullTime   `json:"-"`
	LastRunFinish       sql.NullTime   `json:"-"`
	LastRunError        sql.NullString `json:"-"`
	TotalItemsProcessed int            `json:"total_items_processed"`
	TotalRuns           int            `json:"total_runs"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
