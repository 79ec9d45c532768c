package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGamification struct {
	mock.Mock
}

func (m *mockGamification) SweepStreaks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGamification) EnsureDailyChallenge(ctx context.Context, date time.Time) (*models.DailyChallenge, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyChallenge), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotifications struct {
	mock.Mock
}

func (m *mockNotifications) DeleteReadOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	args := m.Called(ctx, age)
	return args.Get(0).(int64), args.Error(1)
}

type mockStatusStore struct {
	mock.Mock
}

func (m *mockStatusStore) IsGlobalPaused(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockStatusStore) SetGlobalPause(ctx context.Context, paused bool) error {
	return m.Called(ctx, paused).Error(0)
}

func (m *mockStatusStore) UpdateWorkerStatus(ctx context.Context, instance string, status *models.WorkerStatus) error {
	return m.Called(ctx, instance, status).Error(0)
}

func (m *mockStatusStore) UpdateHeartbeat(ctx context.Context, instance string) error {
	return m.Called(ctx, instance).Error(0)
}

type workerFixture struct {
	worker        *Worker
	gamification  *mockGamification
	tokens        *mockTokens
	notifications *mockNotifications
	store         *mockStatusStore
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			StreakSweepHour:           2,
			TokenPurgeMinutes:         config.DefaultTokenPurgeMinutes,
			NotificationRetentionDays: 30,
		},
	}
	f := &workerFixture{
		gamification:  &mockGamification{},
		tokens:        &mockTokens{},
		notifications: &mockNotifications{},
		store:         &mockStatusStore{},
	}
	f.worker = NewWorker(f.gamification, f.tokens, f.notifications, f.store, "test", cfg, observability.NewNopLogger())
	f.worker.timeNow = func() time.Time { return time.Date(2026, 3, 14, 1, 0, 0, 0, time.UTC) }
	f.store.On("UpdateWorkerStatus", mock.Anything, "test", mock.Anything).Return(nil).Maybe()
	return f
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, "", &config.Config{}, observability.NewNopLogger())
	assert.Equal(t, "default", w.GetInstance())
	assert.Equal(t, "Initialized", w.GetStatus().CurrentActivity)
	assert.Equal(t, []string{JobDailyChallenge, JobNotificationPrune, JobStreakSweep, JobTokenPurge}, w.JobNames())
}

func TestRunJob_Success(t *testing.T) {
	f := newWorkerFixture(t)
	f.store.On("IsGlobalPaused", mock.Anything).Return(false, nil)
	f.gamification.On("SweepStreaks", mock.Anything).Return(int64(4), nil).Once()

	f.worker.RunJob(context.Background(), JobStreakSweep)

	f.gamification.AssertExpectations(t)
	history := f.worker.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, JobStreakSweep, history[0].Job)
	assert.Equal(t, runStatusSuccess, history[0].Status)
	assert.Equal(t, int64(4), history[0].Items)

	status := f.worker.GetStatus()
	assert.Empty(t, status.LastRunError)
	assert.Equal(t, "Idle", status.CurrentActivity)
	assert.False(t, status.LastRunFinish.IsZero())

	f.store.AssertCalled(t, "UpdateWorkerStatus", mock.Anything, "test", mock.MatchedBy(func(s *models.WorkerStatus) bool {
		return s.TotalItemsProcessed == 4 && s.TotalRuns == 1
	}))
}

func TestRunJob_FailureIsRecorded(t *testing.T) {
	f := newWorkerFixture(t)
	f.store.On("IsGlobalPaused", mock.Anything).Return(false, nil)
	f.tokens.On("PurgeExpiredTokens", mock.Anything).Return(int64(0), errors.New("db down")).Once()

	f.worker.RunJob(context.Background(), JobTokenPurge)

	history := f.worker.GetHistory()
	require.Len(t, history, 1)
	assert.Equal(t, runStatusFailure, history[0].Status)
	assert.Equal(t, "db down", history[0].Details)
	assert.Equal(t, "db down", f.worker.GetStatus().LastRunError)

	logs := f.worker.GetActivityLogs()
	require.NotEmpty(t, logs)
	assert.Equal(t, "ERROR", logs[len(logs)-1].Level)
}

func TestRunJob_SkippedWhenPaused(t *testing.T) {
	t.Run("globally", func(t *testing.T) {
		f := newWorkerFixture(t)
		f.store.On("IsGlobalPaused", mock.Anything).Return(true, nil)

		f.worker.RunJob(context.Background(), JobStreakSweep)

		f.gamification.AssertNotCalled(t, "SweepStreaks", mock.Anything)
		history := f.worker.GetHistory()
		require.Len(t, history, 1)
		assert.Equal(t, runStatusSkipped, history[0].Status)
		assert.Equal(t, "Globally paused", f.worker.GetStatus().CurrentActivity)
	})

	t.Run("instance", func(t *testing.T) {
		f := newWorkerFixture(t)
		f.store.On("IsGlobalPaused", mock.Anything).Return(false, nil)

		f.worker.Pause(context.Background())
		f.worker.RunJob(context.Background(), JobStreakSweep)
		f.gamification.AssertNotCalled(t, "SweepStreaks", mock.Anything)
		assert.True(t, f.worker.GetStatus().IsPaused)

		f.gamification.On("SweepStreaks", mock.Anything).Return(int64(0), nil).Once()
		f.worker.Resume(context.Background())
		f.worker.RunJob(context.Background(), JobStreakSweep)
		f.gamification.AssertExpectations(t)
	})

	t.Run("pause lookup fails", func(t *testing.T) {
		f := newWorkerFixture(t)
		f.store.On("IsGlobalPaused", mock.Anything).Return(false, errors.New("timeout"))

		f.worker.RunJob(context.Background(), JobStreakSweep)
		f.gamification.AssertNotCalled(t, "SweepStreaks", mock.Anything)
	})
}

func TestRunJob_DailyChallengeUsesUTCDate(t *testing.T) {
	f := newWorkerFixture(t)
	f.store.On("IsGlobalPaused", mock.Anything).Return(false, nil)
	f.gamification.On("EnsureDailyChallenge", mock.Anything, mock.MatchedBy(func(d time.Time) bool {
		return d.Location() == time.UTC && d.Day() == 14
	})).Return(&models.DailyChallenge{ID: 1}, nil).Once()

	f.worker.RunJob(context.Background(), JobDailyChallenge)

	f.gamification.AssertExpectations(t)
	assert.Equal(t, int64(1), f.worker.GetHistory()[0].Items)
}

func TestRunJob_NotificationRetention(t *testing.T) {
	f := newWorkerFixture(t)
	f.store.On("IsGlobalPaused", mock.Anything).Return(false, nil)
	f.notifications.On("DeleteReadOlderThan", mock.Anything, 30*24*time.Hour).Return(int64(12), nil).Once()

	f.worker.RunJob(context.Background(), JobNotificationPrune)

	f.notifications.AssertExpectations(t)
}

func TestRunJob_UnknownJobIsIgnored(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.RunJob(context.Background(), "compile_report")
	assert.Empty(t, f.worker.GetHistory())
}

func TestTriggerManualRun(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.TriggerManualRun("nope")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	for i := 0; i < cap(f.worker.manualTrigger); i++ {
		require.NoError(t, f.worker.TriggerManualRun(JobTokenPurge))
	}
	err = f.worker.TriggerManualRun(JobTokenPurge)
	assert.True(t, contextutils.IsError(err, contextutils.ErrRateLimit))
}

func TestRecordRunHistory_Trims(t *testing.T) {
	f := newWorkerFixture(t)
	for i := 0; i < config.DefaultWorkerMaxHistory+5; i++ {
		f.worker.recordRunHistory(RunRecord{Job: JobTokenPurge, Items: int64(i)})
	}
	history := f.worker.GetHistory()
	require.Len(t, history, config.DefaultWorkerMaxHistory)
	assert.Equal(t, int64(5), history[0].Items)
}

func TestStartAndShutdown(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.cfg.Worker.StartPaused = true
	f.store.On("SetGlobalPause", mock.Anything, true).Return(nil).Once()
	f.store.On("IsGlobalPaused", mock.Anything).Return(true, nil)
	f.store.On("UpdateHeartbeat", mock.Anything, "test").Return(nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Start(ctx) }()

	require.Eventually(t, func() bool { return f.worker.GetStatus().IsRunning }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.False(t, f.worker.GetStatus().IsRunning)
	assert.NoError(t, f.worker.Shutdown(context.Background()))
	f.store.AssertCalled(t, "SetGlobalPause", mock.Anything, true)
	f.gamification.AssertNotCalled(t, "EnsureDailyChallenge", mock.Anything, mock.Anything)
}
