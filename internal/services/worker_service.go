package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ErrSettingNotFound is returned when a setting is not found in the database
var ErrSettingNotFound = errors.New("setting not found")

const (
	settingGlobalPause = "global_pause"

	// workerHealthyWindow is how recent a heartbeat must be for an instance to count as healthy
	workerHealthyWindow = 5 * time.Minute
)

// WorkerServiceInterface defines the interface for background worker bookkeeping
type WorkerServiceInterface interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	IsGlobalPaused(ctx context.Context) (bool, error)
	SetGlobalPause(ctx context.Context, paused bool) error

	UpdateWorkerStatus(ctx context.Context, instance string, status *models.WorkerStatus) error
	GetWorkerStatus(ctx context.Context, instance string) (*models.WorkerStatus, error)
	GetAllWorkerStatuses(ctx context.Context) ([]models.WorkerStatus, error)
	UpdateHeartbeat(ctx context.Context, instance string) error
	IsWorkerHealthy(ctx context.Context, instance string) (bool, error)
	GetWorkerHealth(ctx context.Context) (map[string]interface{}, error)
}

// WorkerService persists worker settings and per-instance status
type WorkerService struct {
	db     *sql.DB
	logger *observability.Logger
}

var _ WorkerServiceInterface = (*WorkerService)(nil)

// NewWorkerServiceWithLogger creates a new WorkerService instance with logger
func NewWorkerServiceWithLogger(db *sql.DB, logger *observability.Logger) *WorkerService {
	return &WorkerService{
		db:     db,
		logger: logger,
	}
}

// GetSetting retrieves a setting value by key
func (s *WorkerService) GetSetting(ctx context.Context, key string) (result0 string, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "get_setting", attribute.String("setting.key", key))
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(key) == "" {
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "setting key cannot be empty")
	}

	var value string
	err = s.db.QueryRowContext(ctx, `
		SELECT setting_value FROM worker_settings WHERE setting_key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", contextutils.WrapErrorf(ErrSettingNotFound, "%s", key)
		}
		s.logger.Error(ctx, "Failed to get setting", err, map[string]interface{}{"setting_key": key})
		return "", contextutils.WrapErrorf(err, "failed to get setting %s", key)
	}

	return value, nil
}

// SetSetting updates or creates a setting
func (s *WorkerService) SetSetting(ctx context.Context, key, value string) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "set_setting", attribute.String("setting.key", key))
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(key) == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "setting key cannot be empty")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO worker_settings (setting_key, setting_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (setting_key) DO UPDATE SET
			setting_value = EXCLUDED.setting_value,
			updated_at = EXCLUDED.updated_at
	`, key, value)
	if err != nil {
		s.logger.Error(ctx, "Failed to set setting", err, map[string]interface{}{"setting_key": key})
		return contextutils.WrapErrorf(err, "failed to set setting %s", key)
	}

	return nil
}

// IsGlobalPaused reports whether every worker instance should skip its jobs
func (s *WorkerService) IsGlobalPaused(ctx context.Context) (result0 bool, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "is_global_paused")
	defer observability.FinishSpan(span, &err)

	value, err := s.GetSetting(ctx, settingGlobalPause)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return false, nil
		}
		return false, err
	}

	return value == "true", nil
}

// SetGlobalPause sets the global pause state
func (s *WorkerService) SetGlobalPause(ctx context.Context, paused bool) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "set_global_pause", attribute.Bool("paused", paused))
	defer observability.FinishSpan(span, &err)

	value := "false"
	if paused {
		value = "true"
	}

	if err = s.SetSetting(ctx, settingGlobalPause, value); err != nil {
		return err
	}

	s.logger.Info(ctx, "Global pause state updated", map[string]interface{}{"global_paused": paused})
	return nil
}

// UpdateWorkerStatus upserts the status row for instance
func (s *WorkerService) UpdateWorkerStatus(ctx context.Context, instance string, status *models.WorkerStatus) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "update_worker_status",
		attribute.String("worker.instance", instance),
		attribute.Bool("worker.is_running", status.IsRunning),
		attribute.Bool("worker.is_paused", status.IsPaused),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO worker_status (
			worker_instance, is_running, is_paused, current_activity,
			last_heartbeat, last_run_start, last_run_finish, last_run_error,
			total_items_processed, total_runs, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (worker_instance) DO UPDATE SET
			is_running = EXCLUDED.is_running,
			is_paused = EXCLUDED.is_paused,
			current_activity = EXCLUDED.current_activity,
			last_heartbeat = EXCLUDED.last_heartbeat,
			last_run_start = EXCLUDED.last_run_start,
			last_run_finish = EXCLUDED.last_run_finish,
			last_run_error = EXCLUDED.last_run_error,
			total_items_processed = EXCLUDED.total_items_processed,
			total_runs = EXCLUDED.total_runs,
			updated_at = EXCLUDED.updated_at
	`, instance, status.IsRunning, status.IsPaused, status.CurrentActivity,
		status.LastHeartbeat, status.LastRunStart, status.LastRunFinish,
		status.LastRunError, status.TotalItemsProcessed, status.TotalRuns)
	if err != nil {
		s.logger.Error(ctx, "Failed to update worker status", err, map[string]interface{}{"worker_instance": instance})
		return contextutils.WrapErrorf(err, "failed to update worker status for instance %s", instance)
	}

	return nil
}

const workerStatusColumns = `id, worker_instance, is_running, is_paused, current_activity,
	last_heartbeat, last_run_start, last_run_finish, last_run_error,
	total_items_processed, total_runs, created_at, updated_at`

func scanWorkerStatus(row rowScanner, status *models.WorkerStatus) error {
	return row.Scan(
		&status.ID, &status.WorkerInstance, &status.IsRunning, &status.IsPaused,
		&status.CurrentActivity, &status.LastHeartbeat, &status.LastRunStart,
		&status.LastRunFinish, &status.LastRunError, &status.TotalItemsProcessed,
		&status.TotalRuns, &status.CreatedAt, &status.UpdatedAt,
	)
}

// GetWorkerStatus retrieves worker status by instance
func (s *WorkerService) GetWorkerStatus(ctx context.Context, instance string) (result0 *models.WorkerStatus, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "get_worker_status", attribute.String("worker.instance", instance))
	defer observability.FinishSpan(span, &err)

	var status models.WorkerStatus
	row := s.db.QueryRowContext(ctx, `SELECT `+workerStatusColumns+` FROM worker_status WHERE worker_instance = $1`, instance)
	if err = scanWorkerStatus(row, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "worker status not found for instance %s", instance)
		}
		return nil, contextutils.WrapErrorf(err, "failed to get worker status for instance %s", instance)
	}

	return &status, nil
}

// GetAllWorkerStatuses retrieves all worker statuses
func (s *WorkerService) GetAllWorkerStatuses(ctx context.Context) (result0 []models.WorkerStatus, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "get_all_worker_statuses")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT `+workerStatusColumns+` FROM worker_status ORDER BY worker_instance`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get all worker statuses")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var statuses []models.WorkerStatus
	for rows.Next() {
		var status models.WorkerStatus
		if err = scanWorkerStatus(rows, &status); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan worker status row")
		}
		statuses = append(statuses, status)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating worker status rows")
	}

	return statuses, nil
}

// UpdateHeartbeat updates the heartbeat for a worker instance
func (s *WorkerService) UpdateHeartbeat(ctx context.Context, instance string) (err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "update_heartbeat", attribute.String("worker.instance", instance))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO worker_status (worker_instance, last_heartbeat, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (worker_instance) DO UPDATE SET
			last_heartbeat = EXCLUDED.last_heartbeat,
			updated_at = EXCLUDED.updated_at
	`, instance)
	if err != nil {
		s.logger.Error(ctx, "Failed to update heartbeat", err, map[string]interface{}{"worker_instance": instance})
		return contextutils.WrapErrorf(err, "failed to update heartbeat for instance %s", instance)
	}

	return nil
}

// IsWorkerHealthy checks if a worker instance is healthy based on recent heartbeat
func (s *WorkerService) IsWorkerHealthy(ctx context.Context, instance string) (result0 bool, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "is_worker_healthy", attribute.String("worker.instance", instance))
	defer observability.FinishSpan(span, &err)

	var lastHeartbeat sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT last_heartbeat FROM worker_status WHERE worker_instance = $1
	`, instance).Scan(&lastHeartbeat)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, contextutils.WrapErrorf(err, "failed to check worker health for instance %s", instance)
	}

	return lastHeartbeat.Valid && time.Since(lastHeartbeat.Time) < workerHealthyWindow, nil
}

// GetWorkerHealth summarizes every known instance plus the global pause flag
func (s *WorkerService) GetWorkerHealth(ctx context.Context) (result0 map[string]interface{}, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "get_worker_health")
	defer observability.FinishSpan(span, &err)

	statuses, err := s.GetAllWorkerStatuses(ctx)
	if err != nil {
		return nil, err
	}

	globalPaused, pauseErr := s.IsGlobalPaused(ctx)
	if pauseErr != nil {
		s.logger.Error(ctx, "Failed to get global pause state", pauseErr)
	}

	instances := make([]map[string]interface{}, 0, len(statuses))
	healthyCount := 0
	for _, status := range statuses {
		healthy := status.LastHeartbeat.Valid && time.Since(status.LastHeartbeat.Time) < workerHealthyWindow
		if healthy {
			healthyCount++
		}
		instance := map[string]interface{}{
			"worker_instance":       status.WorkerInstance,
			"healthy":               healthy,
			"is_running":            status.IsRunning,
			"is_paused":             status.IsPaused,
			"total_items_processed": status.TotalItemsProcessed,
			"total_runs":            status.TotalRuns,
		}
		if status.LastHeartbeat.Valid {
			instance["last_heartbeat"] = status.LastHeartbeat.Time
		}
		if status.LastRunError.Valid {
			instance["last_run_error"] = status.LastRunError.String
		}
		instances = append(instances, instance)
	}

	return map[string]interface{}{
		"global_paused":    globalPaused,
		"worker_instances": instances,
		"total_count":      len(statuses),
		"healthy_count":    healthyCount,
	}, nil
}
