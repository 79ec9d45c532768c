package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"telugulearn/internal/cache"
	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services/mailer"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// maxAwardRounds bounds the re-evaluation loop. Award points can unlock
// points_total badges, which add more points.
const maxAwardRounds = 5

// ActivityInput is a completed learning activity reported by a client
type ActivityInput struct {
	Type            string
	Score           *int
	DurationSeconds int
	Metadata        json.RawMessage
}

// Validate checks the activity fields
func (a ActivityInput) Validate() error {
	if strings.TrimSpace(a.Type) == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "activity type is required")
	}
	if a.Type == models.ActivityDailyChallenge {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "daily challenge bonuses are recorded by the server")
	}
	if a.Score != nil && (*a.Score < 0 || *a.Score > 100) {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "score must be between 0 and 100")
	}
	if a.DurationSeconds < 0 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "duration must not be negative")
	}
	if len(a.Metadata) > 0 && !json.Valid(a.Metadata) {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "metadata must be valid JSON")
	}
	return nil
}

// CatalogSeed is the badge and achievement catalog loaded by the admin CLI
type CatalogSeed struct {
	Badges       []models.Badge       `yaml:"badges"`
	Achievements []models.Achievement `yaml:"achievements"`
}

// GamificationServiceInterface covers points, streaks, awards, leaderboards and daily challenges
type GamificationServiceInterface interface {
	RecordActivity(ctx context.Context, userID int, input ActivityInput) (*models.ActivityOutcome, error)
	EvaluateAwards(ctx context.Context, userID int) (*models.ActivityOutcome, error)
	ListBadges(ctx context.Context) ([]models.Badge, error)
	UserBadges(ctx context.Context, userID int) ([]models.UserBadge, error)
	Leaderboard(ctx context.Context, period models.LeaderboardPeriod, limit int) ([]models.LeaderboardEntry, error)
	Rank(ctx context.Context, userID int, period models.LeaderboardPeriod) (*models.LeaderboardEntry, error)
	TodayChallenge(ctx context.Context, userID int) (*models.DailyChallengeStatus, error)
	CompleteDailyChallenge(ctx context.Context, userID int) (*models.ActivityOutcome, error)
	EnsureDailyChallenge(ctx context.Context, date time.Time) (*models.DailyChallenge, error)
	Achievements(ctx context.Context, userID int) ([]models.AchievementProgress, error)
	Stats(ctx context.Context, userID int) (*models.UserStats, error)
	RecentActivity(ctx context.Context, userID, limit int) ([]models.ActivityLog, error)
	SweepStreaks(ctx context.Context) (int64, error)
	SeedCatalog(ctx context.Context, seed CatalogSeed) (int, int, error)
}

// GamificationService implements GamificationServiceInterface
type GamificationService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
	cache  cache.LeaderboardCache
	mailer mailer.Mailer
	now    func() time.Time
}

var _ GamificationServiceInterface = (*GamificationService)(nil)

// NewGamificationServiceWithLogger creates a new GamificationService. lb and
// m may be nil.
func NewGamificationServiceWithLogger(db *sql.DB, cfg *config.Config, lb cache.LeaderboardCache, m mailer.Mailer, logger *observability.Logger) *GamificationService {
	if lb == nil {
		lb = (*cache.Cache)(nil)
	}
	return &GamificationService{db: db, cfg: cfg, logger: logger, cache: lb, mailer: m, now: time.Now}
}

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// activityUser is the locked profile state an activity is applied to
type activityUser struct {
	user    models.User
	streak  StreakState
	points  int
	loc     *time.Location
	display string
}

func (s *GamificationService) lockActivityUser(ctx context.Context, tx *sql.Tx, userID int) (*activityUser, error) {
	au := &activityUser{}
	var last sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.email, u.timezone, u.is_active,
		        p.display_name, p.streak_count, p.longest_streak, p.last_activity_date, p.points_total
		 FROM profiles p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1
		 FOR UPDATE OF p`, userID).Scan(
		&au.user.ID, &au.user.Username, &au.user.Email, &au.user.Timezone, &au.user.IsActive,
		&au.display, &au.streak.Current, &au.streak.Longest, &last, &au.points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to lock profile")
	}
	if !au.user.IsActive {
		return nil, contextutils.WrapError(contextutils.ErrAccountInactive, "account is deactivated")
	}
	if last.Valid {
		au.streak.LastActivity = &last.Time
	}
	au.loc, _ = contextutils.LoadUserLocation(au.user.Timezone)
	return au, nil
}

func insertActivity(ctx context.Context, q dbtx, userID int, activityType string, points int, score *int, duration int, metadata json.RawMessage) (*models.ActivityLog, error) {
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	a := &models.ActivityLog{
		UserID:          userID,
		ActivityType:    activityType,
		Points:          points,
		Score:           score,
		DurationSeconds: duration,
		Metadata:        metadata,
	}
	err := q.QueryRowContext(ctx,
		`INSERT INTO user_activity_log (user_id, activity_type, points, score, duration_seconds, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		userID, activityType, points, score, duration, []byte(metadata)).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to log activity")
	}
	return a, nil
}

func addPoints(ctx context.Context, q dbtx, userID, points int) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`UPDATE profiles SET points_total = points_total + $1, updated_at = NOW()
		 WHERE user_id = $2 RETURNING points_total`, points, userID).Scan(&total)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to add points")
	}
	return total, nil
}

// RecordActivity logs a completed activity and applies everything that follows
// from it in one transaction: points, streak, daily challenge progress and
// badge or achievement awards.
func (s *GamificationService) RecordActivity(ctx context.Context, userID int, input ActivityInput) (result0 *models.ActivityOutcome, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "RecordActivity",
		observability.AttributeUserID(userID), observability.AttributeActivityType(input.Type))
	defer observability.FinishSpan(span, &err)

	var recorded *RecordedActivity
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		recorded, err = s.RecordActivityTx(ctx, tx, userID, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ActivityCommitted(ctx, recorded)
	return recorded.Outcome, nil
}

// RecordedActivity is an activity written inside a caller's transaction.
// Pass it to ActivityCommitted once that transaction has committed.
type RecordedActivity struct {
	Outcome *models.ActivityOutcome

	user         models.User
	activityType string
}

// RecordActivityTx does the work of RecordActivity inside tx. Nothing outside
// the database happens until ActivityCommitted is called.
func (s *GamificationService) RecordActivityTx(ctx context.Context, tx *sql.Tx, userID int, input ActivityInput) (*RecordedActivity, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	au, err := s.lockActivityUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	points := s.cfg.Gamification.PointsFor(input.Type)
	activity, err := insertActivity(ctx, tx, userID, input.Type, points, input.Score, input.DurationSeconds, input.Metadata)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := NextStreak(au.streak, now, au.loc)
	var total int
	err = tx.QueryRowContext(ctx,
		`UPDATE profiles
		 SET points_total = points_total + $1, streak_count = $2, longest_streak = $3,
		     last_activity_date = $4, updated_at = NOW()
		 WHERE user_id = $5
		 RETURNING points_total`,
		points, next.Current, next.Longest, next.LastActivity.Format(contextutils.DateLayout), userID).Scan(&total)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update profile")
	}

	outcome := &models.ActivityOutcome{
		Activity:        *activity,
		PointsAwarded:   points,
		PointsTotal:     total,
		StreakCount:     next.Current,
		LongestStreak:   next.Longest,
		NewBadges:       []models.Badge{},
		NewAchievements: []models.Achievement{},
	}

	if err := s.progressChallenge(ctx, tx, au, input.Type, outcome); err != nil {
		return nil, err
	}
	if err := s.awardEligible(ctx, tx, userID, outcome); err != nil {
		return nil, err
	}
	return &RecordedActivity{Outcome: outcome, user: au.user, activityType: input.Type}, nil
}

// ActivityCommitted runs the post-commit side effects of a recorded activity:
// cache invalidation, metrics, badge emails.
func (s *GamificationService) ActivityCommitted(ctx context.Context, recorded *RecordedActivity) {
	if recorded == nil || recorded.Outcome == nil {
		return
	}
	outcome := recorded.Outcome
	s.afterAwards(ctx, &recorded.user, outcome)
	observability.Add(ctx, observability.Metrics().ActivitiesRecorded, 1, observability.AttributeActivityType(recorded.activityType))
	s.logger.Info(ctx, "Activity recorded", map[string]interface{}{
		"user_id":       recorded.user.ID,
		"activity_type": recorded.activityType,
		"points":        outcome.PointsAwarded,
		"streak":        outcome.StreakCount,
		"new_badges":    len(outcome.NewBadges),
	})
}

// EvaluateAwards re-checks the catalog for a user without logging an activity
func (s *GamificationService) EvaluateAwards(ctx context.Context, userID int) (result0 *models.ActivityOutcome, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "EvaluateAwards", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var (
		outcome *models.ActivityOutcome
		user    models.User
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		au, err := s.lockActivityUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		user = au.user
		outcome = &models.ActivityOutcome{
			PointsTotal:     au.points,
			StreakCount:     au.streak.Current,
			LongestStreak:   au.streak.Longest,
			NewBadges:       []models.Badge{},
			NewAchievements: []models.Achievement{},
		}
		return s.awardEligible(ctx, tx, userID, outcome)
	})
	if err != nil {
		return nil, err
	}
	s.afterAwards(ctx, &user, outcome)
	return outcome, nil
}

// afterAwards runs the side effects that must not hold the transaction open
func (s *GamificationService) afterAwards(ctx context.Context, user *models.User, outcome *models.ActivityOutcome) {
	s.cache.InvalidateLeaderboards(ctx)

	awarded := len(outcome.NewBadges) + len(outcome.NewAchievements)
	if awarded == 0 {
		return
	}
	observability.Add(ctx, observability.Metrics().BadgesAwarded, int64(awarded))

	if s.mailer == nil || !s.mailer.IsEnabled() {
		return
	}
	for _, b := range outcome.NewBadges {
		if err := s.mailer.SendBadgeEarned(ctx, user, b); err != nil {
			s.logger.Warn(ctx, "Failed to send badge email", map[string]interface{}{
				"user_id": user.ID,
				"badge":   b.Code,
				"error":   err.Error(),
			})
		}
	}
}

func (s *GamificationService) loadCounters(ctx context.Context, q dbtx, userID int) (models.UserCounters, error) {
	var c models.UserCounters
	err := q.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM user_activity_log WHERE user_id = $1 AND activity_type <> $2),
		   (SELECT COUNT(*) FROM user_activity_log WHERE user_id = $1 AND activity_type = $3),
		   p.streak_count,
		   (SELECT COUNT(*) FROM vocabulary_words WHERE user_id = $1 AND mastery_level = 'mastered'),
		   p.points_total,
		   (SELECT COUNT(*) FROM chapter_progress WHERE user_id = $1 AND passed)
		 FROM profiles p WHERE p.user_id = $1`,
		userID, models.ActivityDailyChallenge, models.ActivityQuiz).Scan(
		&c.ActivitiesCompleted, &c.QuizzesCompleted, &c.StreakDays,
		&c.WordsMastered, &c.PointsTotal, &c.ChaptersCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return c, contextutils.WrapError(contextutils.ErrRecordNotFound, "profile not found")
	}
	if err != nil {
		return c, contextutils.WrapError(err, "failed to load counters")
	}
	return c, nil
}

func earnedIDs(ctx context.Context, q dbtx, query string, userID int) (map[int]bool, error) {
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	earned := map[int]bool{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// awardEligible inserts every badge and achievement the user now qualifies
// for. Inserts use ON CONFLICT DO NOTHING so concurrent evaluations award once.
func (s *GamificationService) awardEligible(ctx context.Context, tx *sql.Tx, userID int, outcome *models.ActivityOutcome) error {
	badges, err := s.ListBadgesTx(ctx, tx)
	if err != nil {
		return err
	}
	achievements, err := s.listAchievements(ctx, tx)
	if err != nil {
		return err
	}

	for round := 0; round < maxAwardRounds; round++ {
		counters, err := s.loadCounters(ctx, tx, userID)
		if err != nil {
			return err
		}
		earnedBadges, err := earnedIDs(ctx, tx, `SELECT badge_id FROM user_badges WHERE user_id = $1`, userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to load earned badges")
		}
		earnedAchievements, err := earnedIDs(ctx, tx, `SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to load earned achievements")
		}

		newBadges := EligibleBadges(badges, earnedBadges, counters)
		newAchievements := EligibleAchievements(achievements, earnedAchievements, counters)
		if len(newBadges) == 0 && len(newAchievements) == 0 {
			return nil
		}

		for _, b := range newBadges {
			granted, err := grant(ctx, tx,
				`INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, b.ID)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to award badge %s", b.Code)
			}
			if !granted {
				continue
			}
			if err := s.creditAward(ctx, tx, userID, b.Points, models.NotificationBadgeEarned,
				fmt.Sprintf("Badge earned: %s", b.Name), b.Description, outcome); err != nil {
				return err
			}
			outcome.NewBadges = append(outcome.NewBadges, b)
		}

		for _, a := range newAchievements {
			granted, err := grant(ctx, tx,
				`INSERT INTO user_achievements (user_id, achievement_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, a.ID)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to award achievement %s", a.Code)
			}
			if !granted {
				continue
			}
			if err := s.creditAward(ctx, tx, userID, a.Points, models.NotificationAchievementEarned,
				fmt.Sprintf("Achievement unlocked: %s", a.Name), a.Description, outcome); err != nil {
				return err
			}
			outcome.NewAchievements = append(outcome.NewAchievements, a)
		}
	}
	return nil
}

func grant(ctx context.Context, tx *sql.Tx, query string, userID, id int) (bool, error) {
	res, err := tx.ExecContext(ctx, query, userID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *GamificationService) creditAward(ctx context.Context, tx *sql.Tx, userID, points int, notificationType, title, body string, outcome *models.ActivityOutcome) error {
	if points > 0 {
		total, err := addPoints(ctx, tx, userID, points)
		if err != nil {
			return err
		}
		outcome.PointsTotal = total
		observability.Add(ctx, observability.Metrics().PointsAwarded, int64(points))
	}
	if _, err := insertNotification(ctx, tx, userID, notificationType, title, body); err != nil {
		return contextutils.WrapError(err, "failed to write award notification")
	}
	return nil
}

// ListBadges returns the badge catalog
func (s *GamificationService) ListBadges(ctx context.Context) (result0 []models.Badge, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "ListBadges")
	defer observability.FinishSpan(span, &err)
	return s.ListBadgesTx(ctx, s.db)
}

// ListBadgesTx reads the badge catalog through q
func (s *GamificationService) ListBadgesTx(ctx context.Context, q dbtx) ([]models.Badge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, code, name, description, requirement_type, requirement_value, points
		 FROM badges ORDER BY requirement_type, requirement_value, id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list badges")
	}
	defer func() { _ = rows.Close() }()

	badges := []models.Badge{}
	for rows.Next() {
		var b models.Badge
		var req string
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &req, &b.RequirementValue, &b.Points); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan badge")
		}
		b.RequirementType = models.RequirementType(req)
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *GamificationService) listAchievements(ctx context.Context, q dbtx) ([]models.Achievement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, code, name, description, metric, threshold, points FROM achievements ORDER BY metric, threshold, id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list achievements")
	}
	defer func() { _ = rows.Close() }()

	achievements := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		var metric string
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &metric, &a.Threshold, &a.Points); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan achievement")
		}
		a.Metric = models.RequirementType(metric)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// UserBadges returns the user's earned badges, newest first
func (s *GamificationService) UserBadges(ctx context.Context, userID int) (result0 []models.UserBadge, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "UserBadges", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.code, b.name, b.description, b.requirement_type, b.requirement_value, b.points, ub.earned_at
		 FROM user_badges ub JOIN badges b ON b.id = ub.badge_id
		 WHERE ub.user_id = $1
		 ORDER BY ub.earned_at DESC, b.id`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list user badges")
	}
	defer func() { _ = rows.Close() }()

	out := []models.UserBadge{}
	for rows.Next() {
		var ub models.UserBadge
		var req string
		if err := rows.Scan(&ub.Badge.ID, &ub.Badge.Code, &ub.Badge.Name, &ub.Badge.Description,
			&req, &ub.Badge.RequirementValue, &ub.Badge.Points, &ub.EarnedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user badge")
		}
		ub.Badge.RequirementType = models.RequirementType(req)
		out = append(out, ub)
	}
	return out, rows.Err()
}

// leaderboardWindow returns the start of the rolling window for period
func leaderboardWindow(period models.LeaderboardPeriod, now time.Time) time.Time {
	switch period {
	case models.PeriodWeekly:
		return now.AddDate(0, 0, -7)
	case models.PeriodMonthly:
		return now.AddDate(0, 0, -30)
	}
	return time.Time{}
}

// rankedLeaderboard returns the full ranked list for period, from cache when possible
func (s *GamificationService) rankedLeaderboard(ctx context.Context, period models.LeaderboardPeriod) ([]models.LeaderboardEntry, error) {
	if entries, ok := s.cache.GetLeaderboard(ctx, period); ok {
		return entries, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if period == models.PeriodAll {
		rows, err = s.db.QueryContext(ctx,
			`SELECT u.id, u.username, p.display_name, p.points_total, p.streak_count
			 FROM users u JOIN profiles p ON p.user_id = u.id
			 WHERE u.is_active`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT u.id, u.username, p.display_name, COALESCE(SUM(a.points), 0), p.streak_count
			 FROM users u
			 JOIN profiles p ON p.user_id = u.id
			 JOIN user_activity_log a ON a.user_id = u.id AND a.created_at >= $1
			 WHERE u.is_active
			 GROUP BY u.id, u.username, p.display_name, p.streak_count`,
			leaderboardWindow(period, s.now()))
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load leaderboard")
	}
	defer func() { _ = rows.Close() }()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.DisplayName, &e.Points, &e.StreakCount); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan leaderboard entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate leaderboard")
	}

	entries = SortLeaderboard(entries)
	s.cache.SetLeaderboard(ctx, period, entries)
	return entries, nil
}

// ClampLeaderboardLimit applies the default and maximum leaderboard size
func ClampLeaderboardLimit(limit, def int) int {
	if def <= 0 {
		def = config.DefaultLeaderboardLimit
	}
	switch {
	case limit <= 0:
		return def
	case limit > config.MaxLeaderboardLimit:
		return config.MaxLeaderboardLimit
	}
	return limit
}

// Leaderboard returns the top users for period
func (s *GamificationService) Leaderboard(ctx context.Context, period models.LeaderboardPeriod, limit int) (result0 []models.LeaderboardEntry, err error) {
	if period == "" {
		period = models.PeriodAll
	}
	limit = ClampLeaderboardLimit(limit, s.cfg.Gamification.LeaderboardLimit)
	ctx, span := observability.TraceGamificationFunction(ctx, "Leaderboard",
		observability.AttributePeriod(string(period)), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if !period.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown leaderboard period %q", period)
	}
	entries, err := s.rankedLeaderboard(ctx, period)
	if err != nil {
		return nil, err
	}
	return TopN(entries, limit), nil
}

// Rank returns the user's leaderboard entry for period
func (s *GamificationService) Rank(ctx context.Context, userID int, period models.LeaderboardPeriod) (result0 *models.LeaderboardEntry, err error) {
	if period == "" {
		period = models.PeriodAll
	}
	ctx, span := observability.TraceGamificationFunction(ctx, "Rank",
		observability.AttributeUserID(userID), observability.AttributePeriod(string(period)))
	defer observability.FinishSpan(span, &err)

	if !period.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown leaderboard period %q", period)
	}
	entries, err := s.rankedLeaderboard(ctx, period)
	if err != nil {
		return nil, err
	}
	entry, ok := FindRank(entries, userID)
	if !ok {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user is not on the leaderboard")
	}
	return &entry, nil
}

// Achievements returns the catalog with the user's progress on each entry
func (s *GamificationService) Achievements(ctx context.Context, userID int) (result0 []models.AchievementProgress, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "Achievements", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	catalog, err := s.listAchievements(ctx, s.db)
	if err != nil {
		return nil, err
	}
	counters, err := s.loadCounters(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id, earned_at FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load earned achievements")
	}
	defer func() { _ = rows.Close() }()
	earned := map[int]time.Time{}
	for rows.Next() {
		var id int
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan earned achievement")
		}
		earned[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.AchievementProgress, 0, len(catalog))
	for _, a := range catalog {
		p := models.AchievementProgress{Achievement: a, Current: counters.Value(a.Metric)}
		if at, ok := earned[a.ID]; ok {
			at := at
			p.Earned = true
			p.EarnedAt = &at
		}
		out = append(out, p)
	}
	return out, nil
}

// Stats returns the gamification summary. The streak reads as zero once it
// has lapsed, even before the nightly sweep has run.
func (s *GamificationService) Stats(ctx context.Context, userID int) (result0 *models.UserStats, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "Stats", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	stats := &models.UserStats{UserID: userID}
	var (
		last     sql.NullTime
		timezone string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT p.points_total, p.streak_count, p.longest_streak, p.last_activity_date, u.timezone,
		        (SELECT COUNT(*) FROM user_badges WHERE user_id = $1),
		        (SELECT COUNT(*) FROM user_achievements WHERE user_id = $1)
		 FROM profiles p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1`, userID).Scan(
		&stats.PointsTotal, &stats.StreakCount, &stats.LongestStreak, &last, &timezone,
		&stats.BadgesEarned, &stats.AchievementsWon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load stats")
	}

	loc, _ := contextutils.LoadUserLocation(timezone)
	var lastPtr *time.Time
	if last.Valid {
		lastPtr = &last.Time
	}
	stats.StreakCount = EffectiveStreak(stats.StreakCount, lastPtr, s.now(), loc)

	if stats.Counters, err = s.loadCounters(ctx, s.db, userID); err != nil {
		return nil, err
	}
	stats.Counters.StreakDays = stats.StreakCount

	if entry, err := s.Rank(ctx, userID, models.PeriodAll); err == nil {
		stats.Rank = entry.Rank
	} else if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		return nil, err
	}
	return stats, nil
}

// RecentActivity returns the user's latest activity log rows
func (s *GamificationService) RecentActivity(ctx context.Context, userID, limit int) (result0 []models.ActivityLog, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "RecentActivity",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, activity_type, points, score, duration_seconds, metadata, created_at
		 FROM user_activity_log WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load recent activity")
	}
	defer func() { _ = rows.Close() }()

	out := []models.ActivityLog{}
	for rows.Next() {
		var a models.ActivityLog
		var score sql.NullInt64
		var metadata []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Points, &score,
			&a.DurationSeconds, &metadata, &a.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan activity")
		}
		if score.Valid {
			v := int(score.Int64)
			a.Score = &v
		}
		a.Metadata = json.RawMessage(metadata)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SweepStreaks zeroes every streak whose last activity is older than
// yesterday in the user's own timezone.
func (s *GamificationService) SweepStreaks(ctx context.Context) (result0 int64, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "SweepStreaks")
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles p
		 SET streak_count = 0, updated_at = NOW()
		 FROM users u
		 WHERE u.id = p.user_id
		   AND p.streak_count > 0
		   AND p.last_activity_date < ((NOW() AT TIME ZONE u.timezone)::date - 1)`)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to sweep streaks")
	}
	n, _ := res.RowsAffected()
	span.SetAttributes(attribute.Int64("streaks.reset", n))
	s.logger.Info(ctx, "Streak sweep finished", map[string]interface{}{"reset": n})
	return n, nil
}

// SeedCatalog upserts badges and achievements by code
func (s *GamificationService) SeedCatalog(ctx context.Context, seed CatalogSeed) (result0 int, result1 int, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "SeedCatalog",
		attribute.Int("seed.badges", len(seed.Badges)), attribute.Int("seed.achievements", len(seed.Achievements)))
	defer observability.FinishSpan(span, &err)

	for _, b := range seed.Badges {
		if b.Code == "" || !b.RequirementType.Valid() || b.RequirementValue <= 0 {
			return 0, 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid badge %q", b.Code)
		}
	}
	for _, a := range seed.Achievements {
		if a.Code == "" || !a.Metric.Valid() || a.Threshold <= 0 {
			return 0, 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid achievement %q", a.Code)
		}
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, b := range seed.Badges {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO badges (code, name, description, requirement_type, requirement_value, points)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
				   requirement_type = EXCLUDED.requirement_type, requirement_value = EXCLUDED.requirement_value,
				   points = EXCLUDED.points`,
				b.Code, b.Name, b.Description, string(b.RequirementType), b.RequirementValue, b.Points)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to seed badge %s", b.Code)
			}
		}
		for _, a := range seed.Achievements {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO achievements (code, name, description, metric, threshold, points)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
				   metric = EXCLUDED.metric, threshold = EXCLUDED.threshold, points = EXCLUDED.points`,
				a.Code, a.Name, a.Description, string(a.Metric), a.Threshold, a.Points)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to seed achievement %s", a.Code)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return len(seed.Badges), len(seed.Achievements), nil
}
