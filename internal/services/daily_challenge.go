package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"
)

// ChallengeAnyActivity matches every activity type except challenge bonuses
const ChallengeAnyActivity = "any"

var defaultChallengeTemplates = []config.ChallengeTemplate{
	{Title: "Word warm-up", Description: "Practice 10 vocabulary words", ActivityType: models.ActivityVocabularyPractice, Target: 10, BonusPoints: 20},
	{Title: "Quiz time", Description: "Finish 2 quizzes", ActivityType: models.ActivityQuiz, Target: 2, BonusPoints: 25},
	{Title: "Flashcard flurry", Description: "Complete 3 flashcard sets", ActivityType: models.ActivityFlashcard, Target: 3, BonusPoints: 20},
	{Title: "Keep moving", Description: "Complete any 5 activities", ActivityType: ChallengeAnyActivity, Target: 5, BonusPoints: 30},
	{Title: "Talk it out", Description: "Send 5 messages to the tutor", ActivityType: models.ActivityChat, Target: 5, BonusPoints: 15},
}

// ChallengeTemplateFor picks the template for a calendar date. The choice
// depends only on the date, so every process agrees on it.
func ChallengeTemplateFor(templates []config.ChallengeTemplate, date time.Time) config.ChallengeTemplate {
	if len(templates) == 0 {
		templates = defaultChallengeTemplates
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
	t := templates[int(day%int64(len(templates)))]
	if t.Target <= 0 {
		t.Target = 1
	}
	if t.ActivityType == "" {
		t.ActivityType = ChallengeAnyActivity
	}
	return t
}

// ChallengeMatches reports whether an activity counts toward a challenge
func ChallengeMatches(challengeType, activityType string) bool {
	if activityType == models.ActivityDailyChallenge {
		return false
	}
	return challengeType == ChallengeAnyActivity || challengeType == activityType
}

func scanChallenge(row rowScanner) (*models.DailyChallenge, error) {
	c := &models.DailyChallenge{}
	err := row.Scan(&c.ID, &c.ChallengeDate, &c.Title, &c.Description, &c.ActivityType, &c.Target, &c.BonusPoints)
	return c, err
}

func (s *GamificationService) ensureChallenge(ctx context.Context, q dbtx, date time.Time) (*models.DailyChallenge, error) {
	day := date.Format(contextutils.DateLayout)
	t := ChallengeTemplateFor(s.cfg.Gamification.ChallengeTemplates, date)
	_, err := q.ExecContext(ctx,
		`INSERT INTO daily_challenges (challenge_date, title, description, activity_type, target, bonus_points)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (challenge_date) DO NOTHING`,
		day, t.Title, t.Description, t.ActivityType, t.Target, t.BonusPoints)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create daily challenge")
	}
	c, err := scanChallenge(q.QueryRowContext(ctx,
		`SELECT id, challenge_date, title, description, activity_type, target, bonus_points
		 FROM daily_challenges WHERE challenge_date = $1`, day))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load daily challenge")
	}
	return c, nil
}

// EnsureDailyChallenge creates the challenge for date if it does not exist yet
func (s *GamificationService) EnsureDailyChallenge(ctx context.Context, date time.Time) (result0 *models.DailyChallenge, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "EnsureDailyChallenge")
	defer observability.FinishSpan(span, &err)
	return s.ensureChallenge(ctx, s.db, date)
}

// challengeProgress counts matching activities on the challenge's date in loc
func challengeProgress(ctx context.Context, q dbtx, userID int, c *models.DailyChallenge, loc *time.Location) (int, error) {
	start := time.Date(c.ChallengeDate.Year(), c.ChallengeDate.Month(), c.ChallengeDate.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_activity_log
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		   AND activity_type <> $4 AND ($5 = $6 OR activity_type = $5)`,
		userID, start.UTC(), end.UTC(), models.ActivityDailyChallenge, c.ActivityType, ChallengeAnyActivity).Scan(&n)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count challenge progress")
	}
	return n, nil
}

// completeChallenge records the completion and its bonus. It returns false
// when the user had already completed the challenge.
func (s *GamificationService) completeChallenge(ctx context.Context, tx *sql.Tx, userID int, c *models.DailyChallenge, outcome *models.ActivityOutcome) (bool, error) {
	granted, err := grant(ctx, tx,
		`INSERT INTO daily_challenge_completions (user_id, challenge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, c.ID)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to record challenge completion")
	}
	if !granted {
		return false, nil
	}

	if c.BonusPoints > 0 {
		if _, err := insertActivity(ctx, tx, userID, models.ActivityDailyChallenge, c.BonusPoints, nil, 0,
			[]byte(fmt.Sprintf(`{"challenge_id":%d}`, c.ID))); err != nil {
			return false, err
		}
		total, err := addPoints(ctx, tx, userID, c.BonusPoints)
		if err != nil {
			return false, err
		}
		outcome.PointsTotal = total
		observability.Add(ctx, observability.Metrics().PointsAwarded, int64(c.BonusPoints))
	}
	if _, err := insertNotification(ctx, tx, userID, models.NotificationChallengeComplete,
		"Daily challenge complete: "+c.Title, fmt.Sprintf("You earned %d bonus points.", c.BonusPoints)); err != nil {
		return false, contextutils.WrapError(err, "failed to write challenge notification")
	}

	outcome.ChallengeCompleted = true
	outcome.ChallengeBonusAdded = c.BonusPoints
	return true, nil
}

// progressChallenge completes today's challenge when the activity just
// logged brings the user to its target.
func (s *GamificationService) progressChallenge(ctx context.Context, tx *sql.Tx, au *activityUser, activityType string, outcome *models.ActivityOutcome) error {
	today := contextutils.CalendarDay(s.now(), au.loc)
	c, err := s.ensureChallenge(ctx, tx, today)
	if err != nil {
		return err
	}
	if !ChallengeMatches(c.ActivityType, activityType) {
		return nil
	}
	progress, err := challengeProgress(ctx, tx, au.user.ID, c, au.loc)
	if err != nil {
		return err
	}
	if progress < c.Target {
		return nil
	}
	_, err = s.completeChallenge(ctx, tx, au.user.ID, c, outcome)
	return err
}

// TodayChallenge returns today's challenge, in the user's timezone, with the user's progress
func (s *GamificationService) TodayChallenge(ctx context.Context, userID int) (result0 *models.DailyChallengeStatus, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "TodayChallenge", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var timezone string
	err = s.db.QueryRowContext(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user timezone")
	}
	loc, _ := contextutils.LoadUserLocation(timezone)

	c, err := s.ensureChallenge(ctx, s.db, contextutils.CalendarDay(s.now(), loc))
	if err != nil {
		return nil, err
	}
	status := &models.DailyChallengeStatus{Challenge: *c}
	if status.Progress, err = challengeProgress(ctx, s.db, userID, c, loc); err != nil {
		return nil, err
	}

	var completedAt time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT completed_at FROM daily_challenge_completions WHERE user_id = $1 AND challenge_id = $2`,
		userID, c.ID).Scan(&completedAt)
	switch {
	case err == nil:
		status.Completed = true
		status.CompletedAt = &completedAt
	case !errors.Is(err, sql.ErrNoRows):
		return nil, contextutils.WrapError(err, "failed to load challenge completion")
	}
	return status, nil
}

// CompleteDailyChallenge claims today's challenge. The target must have been
// reached, and a challenge can be completed once per user.
func (s *GamificationService) CompleteDailyChallenge(ctx context.Context, userID int) (result0 *models.ActivityOutcome, err error) {
	ctx, span := observability.TraceGamificationFunction(ctx, "CompleteDailyChallenge", observability.AttributeUserID(userID))
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

		c, err := s.ensureChallenge(ctx, tx, contextutils.CalendarDay(s.now(), au.loc))
		if err != nil {
			return err
		}
		progress, err := challengeProgress(ctx, tx, userID, c, au.loc)
		if err != nil {
			return err
		}

		outcome = &models.ActivityOutcome{
			PointsTotal:     au.points,
			StreakCount:     au.streak.Current,
			LongestStreak:   au.streak.Longest,
			NewBadges:       []models.Badge{},
			NewAchievements: []models.Achievement{},
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM daily_challenge_completions WHERE user_id = $1 AND challenge_id = $2)`,
			userID, c.ID).Scan(&exists); err != nil {
			return contextutils.WrapError(err, "failed to check challenge completion")
		}
		if exists {
			return contextutils.WrapError(contextutils.ErrChallengeCompleted, "today's challenge is already completed")
		}
		if progress < c.Target {
			return contextutils.WrapErrorf(contextutils.ErrValidationFailed,
				"challenge progress %d of %d", progress, c.Target)
		}

		granted, err := s.completeChallenge(ctx, tx, userID, c, outcome)
		if err != nil {
			return err
		}
		if !granted {
			return contextutils.WrapError(contextutils.ErrChallengeCompleted, "today's challenge is already completed")
		}
		return s.awardEligible(ctx, tx, userID, outcome)
	})
	if err != nil {
		return nil, err
	}

	s.afterAwards(ctx, &user, outcome)
	s.logger.Info(ctx, "Daily challenge completed", map[string]interface{}{
		"user_id": userID,
		"bonus":   outcome.ChallengeBonusAdded,
	})
	return outcome, nil
}
