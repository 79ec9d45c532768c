//go:build integration

package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"telugulearn/internal/models"
	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerService_Settings(t *testing.T) {
	db, _ := setupIntegrationDB(t)
	service := NewWorkerServiceWithLogger(db, createTestLogger())
	ctx := context.Background()

	t.Run("Get non-existent setting", func(t *testing.T) {
		_, err := service.GetSetting(ctx, "non_existent_key")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSettingNotFound)
	})

	t.Run("Empty key", func(t *testing.T) {
		assert.Error(t, service.SetSetting(ctx, "  ", "x"))
		_, err := service.GetSetting(ctx, "")
		assert.Error(t, err)
	})

	t.Run("Set then update", func(t *testing.T) {
		require.NoError(t, service.SetSetting(ctx, "sweep_hour", "2"))
		require.NoError(t, service.SetSetting(ctx, "sweep_hour", "3"))

		val, err := service.GetSetting(ctx, "sweep_hour")
		require.NoError(t, err)
		assert.Equal(t, "3", val)
	})
}

func TestWorkerService_GlobalPause(t *testing.T) {
	db, _ := setupIntegrationDB(t)
	service := NewWorkerServiceWithLogger(db, createTestLogger())
	ctx := context.Background()

	paused, err := service.IsGlobalPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused, "unset means running")

	require.NoError(t, service.SetGlobalPause(ctx, true))
	paused, err = service.IsGlobalPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, service.SetGlobalPause(ctx, false))
	paused, err = service.IsGlobalPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestWorkerService_StatusAndHealth(t *testing.T) {
	db, _ := setupIntegrationDB(t)
	service := NewWorkerServiceWithLogger(db, createTestLogger())
	ctx := context.Background()

	_, err := service.GetWorkerStatus(ctx, "missing")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))

	healthy, err := service.IsWorkerHealthy(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, healthy)

	now := time.Now()
	require.NoError(t, service.UpdateWorkerStatus(ctx, "worker-a", &models.WorkerStatus{
		IsRunning:           true,
		CurrentActivity:     sql.NullString{String: "streak_sweep", Valid: true},
		LastRunStart:        sql.NullTime{Time: now, Valid: true},
		LastRunError:        sql.NullString{String: "boom", Valid: true},
		TotalItemsProcessed: 7,
		TotalRuns:           2,
	}))

	status, err := service.GetWorkerStatus(ctx, "worker-a")
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	assert.Equal(t, "streak_sweep", status.CurrentActivity.String)
	assert.Equal(t, 7, status.TotalItemsProcessed)
	assert.Equal(t, 2, status.TotalRuns)
	assert.False(t, status.LastHeartbeat.Valid)

	require.NoError(t, service.UpdateHeartbeat(ctx, "worker-a"))
	require.NoError(t, service.UpdateHeartbeat(ctx, "worker-b"))

	healthy, err = service.IsWorkerHealthy(ctx, "worker-a")
	require.NoError(t, err)
	assert.True(t, healthy)

	all, err := service.GetAllWorkerStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "worker-a", all[0].WorkerInstance)
	assert.Equal(t, "worker-b", all[1].WorkerInstance)

	health, err := service.GetWorkerHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, health["total_count"])
	assert.Equal(t, 2, health["healthy_count"])
	assert.Equal(t, false, health["global_paused"])
	instances := health["worker_instances"].([]map[string]interface{})
	assert.Equal(t, "boom", instances[0]["last_run_error"])
}
