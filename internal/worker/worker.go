// Package worker runs the scheduled maintenance jobs that keep learner state
// consistent outside of request handling: zeroing lapsed streaks, generating
// the daily challenge, purging spent tokens and pruning old notifications.
// Job timing is driven by gocron; run status and history are mirrored to the
// worker_status table so any instance can be inspected from the database.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/go-co-op/gocron"
	"go.opentelemetry.io/otel/attribute"
)

// Job names, also used as gocron tags
const (
	JobStreakSweep       = "streak_sweep"
	JobDailyChallenge    = "daily_challenge"
	JobTokenPurge        = "token_purge"
	JobNotificationPrune = "notification_prune"
)

const (
	runStatusSuccess = "Success"
	runStatusFailure = "Failure"
	runStatusSkipped = "Skipped"

	dailyChallengeAt    = "00:05"
	notificationPruneAt = "03:30"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	IsPaused        bool      `json:"is_paused"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
}

// RunRecord tracks individual job runs
type RunRecord struct {
	Job       string        `json:"job"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"` // Success, Failure, Skipped
	Items     int64         `json:"items"`
	Details   string        `json:"details"`
}

// ActivityLog represents a single activity log entry
type ActivityLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // INFO, WARN, ERROR
	Message   string    `json:"message"`
}

type jobFunc func(ctx context.Context) (int64, error)

// GamificationMaintainer is the slice of the gamification service the worker drives
type GamificationMaintainer interface {
	SweepStreaks(ctx context.Context) (int64, error)
	EnsureDailyChallenge(ctx context.Context, date time.Time) (*models.DailyChallenge, error)
}

// TokenPurger deletes spent refresh and reset tokens
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// NotificationPruner deletes old read notifications
type NotificationPruner interface {
	DeleteReadOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// StatusStore persists pause flags and per-instance status
type StatusStore interface {
	IsGlobalPaused(ctx context.Context) (bool, error)
	SetGlobalPause(ctx context.Context, paused bool) error
	UpdateWorkerStatus(ctx context.Context, instance string, status *models.WorkerStatus) error
	UpdateHeartbeat(ctx context.Context, instance string) error
}

var (
	_ GamificationMaintainer = (services.GamificationServiceInterface)(nil)
	_ TokenPurger            = (services.AuthServiceInterface)(nil)
	_ NotificationPruner     = (services.NotificationServiceInterface)(nil)
	_ StatusStore            = (services.WorkerServiceInterface)(nil)
)

// Worker schedules and runs maintenance jobs
type Worker struct {
	gamificationService GamificationMaintainer
	authService         TokenPurger
	notificationService NotificationPruner
	workerService       StatusStore

	instance     string
	status       Status
	history      []RunRecord
	activityLogs []ActivityLog
	totalItems   int
	jobs         map[string]jobFunc
	scheduler    *gocron.Scheduler

	mu            sync.RWMutex
	runMu         sync.Mutex
	manualTrigger chan string
	cfg           *config.Config
	logger        *observability.Logger

	// Time function for testing - defaults to time.Now
	timeNow func() time.Time
}

// NewWorker wires the maintenance jobs against their services
func NewWorker(
	gamificationService GamificationMaintainer,
	authService TokenPurger,
	notificationService NotificationPruner,
	workerService StatusStore,
	instance string,
	cfg *config.Config,
	logger *observability.Logger,
) *Worker {
	if instance == "" {
		instance = "default"
	}

	w := &Worker{
		gamificationService: gamificationService,
		authService:         authService,
		notificationService: notificationService,
		workerService:       workerService,
		instance:            instance,
		status:              Status{CurrentActivity: "Initialized"},
		history:             make([]RunRecord, 0, config.DefaultWorkerMaxHistory),
		activityLogs:        make([]ActivityLog, 0, config.DefaultWorkerMaxActivityLogs),
		manualTrigger:       make(chan string, 4),
		cfg:                 cfg,
		logger:              logger,
		timeNow:             time.Now,
	}

	w.jobs = map[string]jobFunc{
		JobStreakSweep:       w.sweepStreaks,
		JobDailyChallenge:    w.ensureDailyChallenge,
		JobTokenPurge:        w.purgeTokens,
		JobNotificationPrune: w.pruneNotifications,
	}

	return w
}

// JobNames lists the registered jobs in stable order
func (w *Worker) JobNames() []string {
	names := make([]string, 0, len(w.jobs))
	for name := range w.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start schedules every job and blocks until ctx is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.handleStartupPause(ctx)

	scheduler, err := w.buildScheduler(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.scheduler = scheduler
	w.status.IsRunning = true
	w.mu.Unlock()
	w.updateDatabaseStatus(ctx)

	scheduler.StartAsync()

	initialStatus := w.getInitialWorkerStatus(ctx)
	w.logger.Info(ctx, "Worker started", map[string]interface{}{
		"instance": w.instance,
		"status":   initialStatus,
		"jobs":     w.JobNames(),
	})
	w.logActivity("INFO", fmt.Sprintf("Worker %s started (%s)", w.instance, initialStatus))

	// Today's challenge must exist before the first learner asks for it
	w.RunJob(ctx, JobDailyChallenge)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(context.Background(), "Worker shutting down", map[string]interface{}{"instance": w.instance})
			w.logActivity("INFO", fmt.Sprintf("Worker %s shutting down", w.instance))
			scheduler.Stop()

			w.mu.Lock()
			w.status.IsRunning = false
			w.mu.Unlock()
			w.updateDatabaseStatus(context.Background())
			return nil

		case job := <-w.manualTrigger:
			w.logActivity("INFO", fmt.Sprintf("Job %s triggered manually", job))
			w.RunJob(ctx, job)
		}
	}
}

func (w *Worker) buildScheduler(ctx context.Context) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	sweepAt := fmt.Sprintf("%02d:00", w.cfg.Worker.StreakSweepHour)
	if _, err := s.Every(1).Day().At(sweepAt).Tag(JobStreakSweep).Do(w.RunJob, ctx, JobStreakSweep); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to schedule %s", JobStreakSweep)
	}
	if _, err := s.Every(1).Day().At(dailyChallengeAt).Tag(JobDailyChallenge).Do(w.RunJob, ctx, JobDailyChallenge); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to schedule %s", JobDailyChallenge)
	}
	if _, err := s.Every(w.cfg.Worker.TokenPurgeMinutes).Minutes().Tag(JobTokenPurge).Do(w.RunJob, ctx, JobTokenPurge); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to schedule %s", JobTokenPurge)
	}
	if _, err := s.Every(1).Day().At(notificationPruneAt).Tag(JobNotificationPrune).Do(w.RunJob, ctx, JobNotificationPrune); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to schedule %s", JobNotificationPrune)
	}
	if _, err := s.Every(config.WorkerHeartbeatInterval).Tag("heartbeat").Do(w.updateHeartbeat, ctx); err != nil {
		return nil, contextutils.WrapError(err, "failed to schedule heartbeat")
	}

	return s, nil
}

// handleStartupPause sets global pause if configured
func (w *Worker) handleStartupPause(ctx context.Context) {
	if !w.cfg.Worker.StartPaused {
		return
	}
	if err := w.workerService.SetGlobalPause(ctx, true); err != nil {
		w.logger.Error(ctx, "Failed to set global pause on startup", err, map[string]interface{}{"instance": w.instance})
		return
	}
	w.logger.Info(ctx, "Global pause set on startup as configured", map[string]interface{}{"instance": w.instance})
}

// getInitialWorkerStatus determines the initial status string
func (w *Worker) getInitialWorkerStatus(ctx context.Context) string {
	paused, reason := w.checkPauseStatus(ctx)
	if paused {
		return reason
	}
	return "running"
}

func (w *Worker) updateHeartbeat(ctx context.Context) {
	if err := w.workerService.UpdateHeartbeat(ctx, w.instance); err != nil {
		w.logger.Error(ctx, "Failed to update heartbeat for worker", err, map[string]interface{}{"instance": w.instance})
	}
}

// RunJob executes one job unless the worker is paused. Runs are serialized.
func (w *Worker) RunJob(ctx context.Context, name string) {
	ctx, span := observability.TraceWorkerFunction(ctx, "run_job",
		attribute.String("worker.instance", w.instance),
		attribute.String("worker.job", name),
	)
	defer observability.FinishSpan(span, nil)

	job, ok := w.jobs[name]
	if !ok {
		w.logger.Warn(ctx, "Unknown worker job", map[string]interface{}{"job": name})
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	start := w.timeNow()
	if paused, reason := w.checkPauseStatus(ctx); paused {
		span.SetAttributes(attribute.String("pause_reason", reason))
		w.updateActivity(reason)
		w.recordRunHistory(RunRecord{Job: name, StartTime: start, EndTime: start, Status: runStatusSkipped, Details: reason})
		return
	}

	w.mu.Lock()
	w.status.LastRunStart = start
	w.status.CurrentActivity = "Running " + name
	w.mu.Unlock()
	w.updateDatabaseStatus(ctx)

	items, err := job(ctx)
	finish := w.timeNow()

	record := RunRecord{
		Job:       name,
		StartTime: start,
		EndTime:   finish,
		Duration:  finish.Sub(start),
		Items:     items,
		Status:    runStatusSuccess,
		Details:   fmt.Sprintf("%s processed %d item(s)", name, items),
	}

	w.mu.Lock()
	w.status.LastRunFinish = finish
	w.status.CurrentActivity = "Idle"
	if err != nil {
		w.status.LastRunError = err.Error()
		record.Status = runStatusFailure
		record.Details = err.Error()
	} else {
		w.status.LastRunError = ""
		w.totalItems += int(items)
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error(ctx, "Worker job failed", err, map[string]interface{}{"instance": w.instance, "job": name})
		w.logActivity("ERROR", fmt.Sprintf("Job %s failed: %v", name, err))
	} else {
		w.logger.Info(ctx, "Worker job finished", map[string]interface{}{
			"instance": w.instance,
			"job":      name,
			"items":    items,
			"duration": record.Duration.String(),
		})
		w.logActivity("INFO", record.Details)
	}

	span.SetAttributes(attribute.Int64("worker.items", items))
	w.recordRunHistory(record)
	w.updateDatabaseStatus(ctx)
}

func (w *Worker) sweepStreaks(ctx context.Context) (int64, error) {
	return w.gamificationService.SweepStreaks(ctx)
}

func (w *Worker) ensureDailyChallenge(ctx context.Context) (int64, error) {
	challenge, err := w.gamificationService.EnsureDailyChallenge(ctx, w.timeNow().UTC())
	if err != nil {
		return 0, err
	}
	if challenge == nil {
		return 0, nil
	}
	return 1, nil
}

func (w *Worker) purgeTokens(ctx context.Context) (int64, error) {
	return w.authService.PurgeExpiredTokens(ctx)
}

func (w *Worker) pruneNotifications(ctx context.Context) (int64, error) {
	age := time.Duration(w.cfg.Worker.NotificationRetentionDays) * 24 * time.Hour
	return w.notificationService.DeleteReadOlderThan(ctx, age)
}

// checkPauseStatus checks global and instance pause
func (w *Worker) checkPauseStatus(ctx context.Context) (bool, string) {
	globalPaused, err := w.workerService.IsGlobalPaused(ctx)
	if err != nil {
		w.logger.Error(ctx, "Failed to check global pause status", err, map[string]interface{}{"instance": w.instance})
		return true, "Error checking global pause status"
	}
	if globalPaused {
		return true, "Globally paused"
	}

	w.mu.RLock()
	paused := w.status.IsPaused
	w.mu.RUnlock()
	if paused {
		return true, "Worker instance paused"
	}
	return false, ""
}

// recordRunHistory appends the run and trims the slice
func (w *Worker) recordRunHistory(record RunRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append(w.history, record)
	if len(w.history) > config.DefaultWorkerMaxHistory {
		w.history = w.history[len(w.history)-config.DefaultWorkerMaxHistory:]
	}
}

// GetStatus returns the current worker status
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := w.status
	if w.scheduler != nil {
		if _, next := w.scheduler.NextRun(); !next.IsZero() {
			status.NextRun = next
		}
	}
	return status
}

// GetHistory returns the worker's run history
func (w *Worker) GetHistory() []RunRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	history := make([]RunRecord, len(w.history))
	copy(history, w.history)
	return history
}

// GetActivityLogs returns recent activity logs
func (w *Worker) GetActivityLogs() []ActivityLog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	logs := make([]ActivityLog, len(w.activityLogs))
	copy(logs, w.activityLogs)
	return logs
}

// GetInstance returns the worker instance name
func (w *Worker) GetInstance() string {
	return w.instance
}

// TriggerManualRun queues a job to run as soon as the worker loop picks it up
func (w *Worker) TriggerManualRun(job string) error {
	if _, ok := w.jobs[job]; !ok {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown job %q", job)
	}

	select {
	case w.manualTrigger <- job:
		w.logger.Info(context.Background(), "Manual trigger sent to worker", map[string]interface{}{
			"instance": w.instance,
			"job":      job,
		})
		return nil
	default:
		return contextutils.WrapError(contextutils.ErrRateLimit, "manual trigger queue is full")
	}
}

// Pause stops this instance from running jobs until Resume
func (w *Worker) Pause(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = true
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker paused", map[string]interface{}{"instance": w.instance})
	w.logActivity("INFO", fmt.Sprintf("Worker %s paused", w.instance))
	w.updateDatabaseStatus(ctx)
}

// Resume clears the instance pause; a global pause still applies
func (w *Worker) Resume(ctx context.Context) {
	w.mu.Lock()
	w.status.IsPaused = false
	w.mu.Unlock()

	w.logger.Info(ctx, "Worker resumed", map[string]interface{}{"instance": w.instance})
	w.logActivity("INFO", fmt.Sprintf("Worker %s resumed", w.instance))
	w.updateDatabaseStatus(ctx)
}

// Shutdown waits for an in-flight job to finish or ctx to expire
func (w *Worker) Shutdown(ctx context.Context) error {
	w.logger.Info(ctx, "Worker starting shutdown", map[string]interface{}{"instance": w.instance})

	w.mu.RLock()
	scheduler := w.scheduler
	w.mu.RUnlock()
	if scheduler != nil {
		scheduler.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.runMu.Lock()
		defer w.runMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return contextutils.WrapError(contextutils.ErrTimeout, "worker shutdown timed out waiting for running job")
	}

	w.logger.Info(ctx, "Worker shutdown completed", map[string]interface{}{"instance": w.instance})
	return nil
}

// updateDatabaseStatus mirrors the in-memory status to worker_status
func (w *Worker) updateDatabaseStatus(ctx context.Context) {
	w.mu.RLock()
	dbStatus := &models.WorkerStatus{
		WorkerInstance:      w.instance,
		IsRunning:           w.status.IsRunning,
		IsPaused:            w.status.IsPaused,
		CurrentActivity:     sql.NullString{String: w.status.CurrentActivity, Valid: w.status.CurrentActivity != ""},
		LastHeartbeat:       sql.NullTime{Time: w.timeNow(), Valid: true},
		LastRunStart:        sql.NullTime{Time: w.status.LastRunStart, Valid: !w.status.LastRunStart.IsZero()},
		LastRunFinish:       sql.NullTime{Time: w.status.LastRunFinish, Valid: !w.status.LastRunFinish.IsZero()},
		LastRunError:        sql.NullString{String: w.status.LastRunError, Valid: w.status.LastRunError != ""},
		TotalItemsProcessed: w.totalItems,
		TotalRuns:           len(w.history),
	}
	w.mu.RUnlock()

	if err := w.workerService.UpdateWorkerStatus(ctx, w.instance, dbStatus); err != nil {
		w.logger.Error(ctx, "Failed to update worker status in database", err, map[string]interface{}{"instance": w.instance})
	}
}

func (w *Worker) updateActivity(activity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.CurrentActivity = activity
}

// logActivity adds an entry to the bounded activity log
func (w *Worker) logActivity(level, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.activityLogs = append(w.activityLogs, ActivityLog{
		Timestamp: w.timeNow(),
		Level:     level,
		Message:   message,
	})
	if len(w.activityLogs) > config.DefaultWorkerMaxActivityLogs {
		w.activityLogs = w.activityLogs[len(w.activityLogs)-config.DefaultWorkerMaxActivityLogs:]
	}
}
