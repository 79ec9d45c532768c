package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// GoalInput creates a learning goal
type GoalInput struct {
	GoalType    string
	Title       string
	TargetValue int
	Deadline    *time.Time
}

// GoalUpdate changes the optional fields of a goal
type GoalUpdate struct {
	Title       *string
	TargetValue *int
	Deadline    *time.Time
}

// SessionEnd closes a learning session
type SessionEnd struct {
	SatisfactionRating *int
	Notes              string
}

// ValidGoalType reports whether t is a supported goal type
func ValidGoalType(t string) bool {
	switch t {
	case models.GoalWordsMastered, models.GoalPointsEarned, models.GoalStreakDays,
		models.GoalChaptersCompleted, models.GoalMinutesPracticed:
		return true
	}
	return false
}

// PersonalizationServiceInterface covers goals, assessments, sessions and the dashboard
type PersonalizationServiceInterface interface {
	ListGoals(ctx context.Context, userID int) ([]models.LearningGoal, error)
	CreateGoal(ctx context.Context, userID int, input GoalInput) (*models.LearningGoal, error)
	UpdateGoal(ctx context.Context, userID, goalID int, update GoalUpdate) (*models.LearningGoal, error)
	DeleteGoal(ctx context.Context, userID, goalID int) error
	SubmitAssessment(ctx context.Context, userID, totalQuestions, correctAnswers int) (*models.Assessment, error)
	StartSession(ctx context.Context, userID int, activityType string) (*models.LearningSession, error)
	EndSession(ctx context.Context, userID, sessionID int, end SessionEnd) (*models.LearningSession, error)
	Dashboard(ctx context.Context, userID int) (*models.Dashboard, error)
}

// PersonalizationService implements PersonalizationServiceInterface
type PersonalizationService struct {
	db            *sql.DB
	logger        *observability.Logger
	users         UserServiceInterface
	vocabulary    VocabularyServiceInterface
	gamification  GamificationServiceInterface
	chapters      ChapterServiceInterface
	notifications NotificationServiceInterface
	now           func() time.Time
}

var _ PersonalizationServiceInterface = (*PersonalizationService)(nil)

// NewPersonalizationServiceWithLogger creates a new PersonalizationService
func NewPersonalizationServiceWithLogger(
	db *sql.DB,
	users UserServiceInterface,
	vocabulary VocabularyServiceInterface,
	gamification GamificationServiceInterface,
	chapters ChapterServiceInterface,
	notifications NotificationServiceInterface,
	logger *observability.Logger,
) *PersonalizationService {
	return &PersonalizationService{
		db:            db,
		logger:        logger,
		users:         users,
		vocabulary:    vocabulary,
		gamification:  gamification,
		chapters:      chapters,
		notifications: notifications,
		now:           time.Now,
	}
}

const goalColumns = `id, user_id, goal_type, title, target_value, current_value, deadline, completed, created_at, updated_at`

func scanGoal(row rowScanner) (*models.LearningGoal, error) {
	g := &models.LearningGoal{}
	var deadline sql.NullTime
	err := row.Scan(&g.ID, &g.UserID, &g.GoalType, &g.Title, &g.TargetValue, &g.CurrentValue,
		&deadline, &g.Completed, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		g.Deadline = &deadline.Time
	}
	return g, nil
}

func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(contextutils.DateLayout)
}

// goalMetric returns the user's current value for a goal type. Minutes count
// activity time logged since the goal was created.
func goalMetric(ctx context.Context, q dbtx, userID int, goal *models.LearningGoal) (int, error) {
	var (
		query string
		args  = []interface{}{userID}
	)
	switch goal.GoalType {
	case models.GoalWordsMastered:
		query = `SELECT COUNT(*) FROM vocabulary_words WHERE user_id = $1 AND mastery_level = 'mastered'`
	case models.GoalPointsEarned:
		query = `SELECT points_total FROM profiles WHERE user_id = $1`
	case models.GoalStreakDays:
		query = `SELECT longest_streak FROM profiles WHERE user_id = $1`
	case models.GoalChaptersCompleted:
		query = `SELECT COUNT(*) FROM chapter_progress WHERE user_id = $1 AND passed`
	case models.GoalMinutesPracticed:
		query = `SELECT COALESCE(SUM(duration_seconds), 0) / 60 FROM user_activity_log WHERE user_id = $1 AND created_at >= $2`
		args = append(args, goal.CreatedAt)
	default:
		return goal.CurrentValue, nil
	}
	var v int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to compute %s", goal.GoalType)
	}
	return v, nil
}

// refreshGoals recomputes open goals and marks the reached ones completed,
// writing a notification for each.
func (s *PersonalizationService) refreshGoals(ctx context.Context, userID int) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+goalColumns+` FROM learning_goals WHERE user_id = $1 AND NOT completed FOR UPDATE`, userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to load goals")
		}
		var open []*models.LearningGoal
		for rows.Next() {
			g, err := scanGoal(rows)
			if err != nil {
				_ = rows.Close()
				return contextutils.WrapError(err, "failed to scan goal")
			}
			open = append(open, g)
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, g := range open {
			current, err := goalMetric(ctx, tx, userID, g)
			if err != nil {
				return err
			}
			completed := current >= g.TargetValue
			if current == g.CurrentValue && !completed {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE learning_goals SET current_value = $1, completed = $2, updated_at = NOW() WHERE id = $3`,
				current, completed, g.ID); err != nil {
				return contextutils.WrapError(err, "failed to update goal")
			}
			if completed {
				title := g.Title
				if title == "" {
					title = strings.ReplaceAll(g.GoalType, "_", " ")
				}
				if _, err := insertNotification(ctx, tx, userID, models.NotificationGoalCompleted,
					"Goal reached: "+title, fmt.Sprintf("You reached %d.", g.TargetValue)); err != nil {
					return contextutils.WrapError(err, "failed to write goal notification")
				}
			}
		}
		return nil
	})
}

// ListGoals refreshes and returns the user's goals, open goals first
func (s *PersonalizationService) ListGoals(ctx context.Context, userID int) (result0 []models.LearningGoal, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "ListGoals", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if err := s.refreshGoals(ctx, userID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM learning_goals WHERE user_id = $1
		 ORDER BY completed, deadline NULLS LAST, id`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list goals")
	}
	defer func() { _ = rows.Close() }()

	goals := []models.LearningGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan goal")
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// CreateGoal adds a goal with its current value already computed
func (s *PersonalizationService) CreateGoal(ctx context.Context, userID int, input GoalInput) (result0 *models.LearningGoal, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "CreateGoal",
		observability.AttributeUserID(userID), attribute.String("goal.type", input.GoalType))
	defer observability.FinishSpan(span, &err)

	if !ValidGoalType(input.GoalType) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown goal type %q", input.GoalType)
	}
	if input.TargetValue <= 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "target value must be positive")
	}

	goal, err := scanGoal(s.db.QueryRowContext(ctx,
		`INSERT INTO learning_goals (user_id, goal_type, title, target_value, deadline)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+goalColumns,
		userID, input.GoalType, strings.TrimSpace(input.Title), input.TargetValue, nullDate(input.Deadline)))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create goal")
	}

	if err := s.refreshGoals(ctx, userID); err != nil {
		return nil, err
	}
	return s.getGoal(ctx, userID, goal.ID)
}

func (s *PersonalizationService) getGoal(ctx context.Context, userID, goalID int) (*models.LearningGoal, error) {
	g, err := scanGoal(s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM learning_goals WHERE id = $1 AND user_id = $2`, goalID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "goal not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get goal")
	}
	return g, nil
}

// UpdateGoal changes a goal's title, target or deadline
func (s *PersonalizationService) UpdateGoal(ctx context.Context, userID, goalID int, update GoalUpdate) (result0 *models.LearningGoal, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "UpdateGoal",
		observability.AttributeUserID(userID), attribute.Int("goal.id", goalID))
	defer observability.FinishSpan(span, &err)

	if update.TargetValue != nil && *update.TargetValue <= 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "target value must be positive")
	}

	var title interface{}
	if update.Title != nil {
		title = strings.TrimSpace(*update.Title)
	}
	var target interface{}
	if update.TargetValue != nil {
		target = *update.TargetValue
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE learning_goals SET
		   title = COALESCE($1, title),
		   target_value = COALESCE($2, target_value),
		   deadline = COALESCE($3::date, deadline),
		   completed = CASE WHEN $2::int IS NOT NULL AND current_value < $2::int THEN FALSE ELSE completed END,
		   updated_at = NOW()
		 WHERE id = $4 AND user_id = $5`,
		title, target, nullDate(update.Deadline), goalID, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update goal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "goal not found")
	}

	if err := s.refreshGoals(ctx, userID); err != nil {
		return nil, err
	}
	return s.getGoal(ctx, userID, goalID)
}

// DeleteGoal removes a goal
func (s *PersonalizationService) DeleteGoal(ctx context.Context, userID, goalID int) (err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "DeleteGoal",
		observability.AttributeUserID(userID), attribute.Int("goal.id", goalID))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM learning_goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete goal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "goal not found")
	}
	return nil
}

// SubmitAssessment stores a placement result and moves the profile to the
// level it indicates.
func (s *PersonalizationService) SubmitAssessment(ctx context.Context, userID, totalQuestions, correctAnswers int) (result0 *models.Assessment, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "SubmitAssessment",
		observability.AttributeUserID(userID), attribute.Int("assessment.total", totalQuestions))
	defer observability.FinishSpan(span, &err)

	if totalQuestions <= 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "total questions must be positive")
	}
	if correctAnswers < 0 || correctAnswers > totalQuestions {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "correct answers must be between 0 and the total")
	}

	a := &models.Assessment{
		UserID:         userID,
		TotalQuestions: totalQuestions,
		CorrectAnswers: correctAnswers,
		Score:          AssessmentScore(correctAnswers, totalQuestions),
	}
	a.Level = AssessmentLevel(a.Score)

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO assessments (user_id, total_questions, correct_answers, score, level)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
			userID, a.TotalQuestions, a.CorrectAnswers, a.Score, string(a.Level)).Scan(&a.ID, &a.CreatedAt); err != nil {
			return contextutils.WrapError(err, "failed to store assessment")
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE profiles SET proficiency_level = $1, updated_at = NOW() WHERE user_id = $2`, string(a.Level), userID)
		if err != nil {
			return contextutils.WrapError(err, "failed to update proficiency level")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Assessment recorded", map[string]interface{}{
		"user_id": userID,
		"score":   a.Score,
		"level":   a.Level,
	})
	return a, nil
}

func (s *PersonalizationService) latestAssessment(ctx context.Context, userID int) (*models.Assessment, error) {
	a := &models.Assessment{}
	var level string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, total_questions, correct_answers, score, level, created_at
		 FROM assessments WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, userID).Scan(
		&a.ID, &a.UserID, &a.TotalQuestions, &a.CorrectAnswers, &a.Score, &level, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load assessment")
	}
	a.Level = models.ProficiencyLevel(level)
	return a, nil
}

const sessionColumns = `id, user_id, activity_type, started_at, ended_at, satisfaction_rating, notes`

func scanSession(row rowScanner) (*models.LearningSession, error) {
	sess := &models.LearningSession{}
	var rating sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.ActivityType, &sess.StartedAt, &sess.EndedAt, &rating, &sess.Notes); err != nil {
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		sess.SatisfactionRating = &v
	}
	return sess, nil
}

// StartSession opens a timed learning session
func (s *PersonalizationService) StartSession(ctx context.Context, userID int, activityType string) (result0 *models.LearningSession, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "StartSession",
		observability.AttributeUserID(userID), observability.AttributeActivityType(activityType))
	defer observability.FinishSpan(span, &err)

	activityType = strings.TrimSpace(activityType)
	if activityType == "" {
		activityType = "general"
	}
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`INSERT INTO learning_sessions (user_id, activity_type, started_at) VALUES ($1, $2, $3) RETURNING `+sessionColumns,
		userID, activityType, s.now().UTC()))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to start session")
	}
	return sess, nil
}

// EndSession closes a session exactly once. A session of another user is
// not found; a closed session is a conflict.
func (s *PersonalizationService) EndSession(ctx context.Context, userID, sessionID int, end SessionEnd) (result0 *models.LearningSession, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "EndSession",
		observability.AttributeUserID(userID), attribute.Int("session.id", sessionID))
	defer observability.FinishSpan(span, &err)

	if r := end.SatisfactionRating; r != nil && (*r < 1 || *r > 5) {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "satisfaction rating must be between 1 and 5")
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`UPDATE learning_sessions
		 SET ended_at = GREATEST($1, started_at), satisfaction_rating = $2, notes = $3
		 WHERE id = $4 AND user_id = $5 AND ended_at IS NULL
		 RETURNING `+sessionColumns,
		s.now().UTC(), end.SatisfactionRating, strings.TrimSpace(end.Notes), sessionID, userID))
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(err, "failed to end session")
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM learning_sessions WHERE id = $1 AND user_id = $2)`, sessionID, userID).Scan(&exists); err != nil {
		return nil, contextutils.WrapError(err, "failed to look up session")
	}
	if exists {
		return nil, contextutils.WrapError(contextutils.ErrSessionClosed, "session already ended")
	}
	return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "session not found")
}

// minutesToday sums activity time and closed session time on the user's current day
func (s *PersonalizationService) minutesToday(ctx context.Context, userID int, timezone string) (int, error) {
	start, end := contextutils.LocalDayRange(s.now(), 1, timezone)
	var seconds int
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(duration_seconds), 0) FROM user_activity_log
		     WHERE user_id = $1 AND created_at >= $2 AND created_at < $3)
		 + (SELECT COALESCE(SUM(EXTRACT(EPOCH FROM ended_at - started_at))::int, 0) FROM learning_sessions
		     WHERE user_id = $1 AND ended_at IS NOT NULL AND started_at >= $2 AND started_at < $3)`,
		userID, start, end).Scan(&seconds)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to sum study time")
	}
	return seconds / 60, nil
}

// Dashboard assembles the personalised home summary
func (s *PersonalizationService) Dashboard(ctx context.Context, userID int) (result0 *models.Dashboard, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "Dashboard", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	up, err := s.users.GetUserWithProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := &models.Dashboard{Profile: up.Profile, DailyGoalMinutes: up.Profile.DailyGoalMinutes}

	stats, err := s.gamification.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Profile.StreakCount = stats.StreakCount

	breakdown, err := s.vocabulary.MasteryBreakdown(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Vocabulary = *breakdown

	goals, err := s.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.ActiveGoals = []models.LearningGoal{}
	for _, g := range goals {
		if !g.Completed {
			d.ActiveGoals = append(d.ActiveGoals, g)
		}
	}

	if d.RecentActivity, err = s.gamification.RecentActivity(ctx, userID, 5); err != nil {
		return nil, err
	}
	if d.NextChapter, err = s.chapters.NextChapter(ctx, userID); err != nil {
		return nil, err
	}
	challenge, err := s.gamification.TodayChallenge(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.TodayChallenge = &challenge.Challenge

	if d.MinutesToday, err = s.minutesToday(ctx, userID, up.User.Timezone); err != nil {
		return nil, err
	}
	if d.LatestAssessment, err = s.latestAssessment(ctx, userID); err != nil {
		return nil, err
	}
	if d.UnreadNotifCount, err = s.notifications.UnreadCount(ctx, userID); err != nil {
		return nil, err
	}
	if d.RecommendedReview, err = s.vocabulary.ReviewCandidates(ctx, userID, 5); err != nil {
		return nil, err
	}
	return d, nil
}
