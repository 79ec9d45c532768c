package models

import (
	"encoding/json"
	"time"
)

// RequirementType names the counter a badge is earned against
type RequirementType string

// Badge requirement types
const (
	RequirementActivitiesCompleted RequirementType = "activities_completed"
	RequirementQuizzesCompleted    RequirementType = "quizzes_completed"
	RequirementStreakDays          RequirementType = "streak_days"
	RequirementWordsMastered       RequirementType = "words_mastered"
	RequirementPointsTotal         RequirementType = "points_total"
	RequirementChaptersCompleted   RequirementType = "chapters_completed"
)

// Valid reports whether r is a known requirement type
func (r RequirementType) Valid() bool {
	switch r {
	case RequirementActivitiesCompleted, RequirementQuizzesCompleted, RequirementStreakDays,
		RequirementWordsMastered, RequirementPointsTotal, RequirementChaptersCompleted:
		return true
	}
	return false
}

// Activity types with special meaning to the counters
const (
	ActivityQuiz               = "quiz"
	ActivityFlashcard          = "flashcard"
	ActivityVocabularyPractice = "vocabulary_practice"
	ActivityChapterCompleted   = "chapter_completed"
	ActivityDailyChallenge     = "daily_challenge"
	ActivityChat               = "chat"
)

// Badge is a catalog entry
type Badge struct {
	ID               int             `json:"id" yaml:"-"`
	Code             string          `json:"code" yaml:"code"`
	Name             string          `json:"name" yaml:"name"`
	Description      string          `json:"description" yaml:"description"`
	RequirementType  RequirementType `json:"requirement_type" yaml:"requirement_type"`
	RequirementValue int             `json:"requirement_value" yaml:"requirement_value"`
	Points           int             `json:"points" yaml:"points"`
}

// UserBadge is an earned badge
type UserBadge struct {
	Badge    Badge     `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
}

// Achievement is a catalog entry evaluated against a metric
type Achievement struct {
	ID          int             `json:"id" yaml:"-"`
	Code        string          `json:"code" yaml:"code"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Metric      RequirementType `json:"metric" yaml:"metric"`
	Threshold   int             `json:"threshold" yaml:"threshold"`
	Points      int             `json:"points" yaml:"points"`
}

// AchievementProgress pairs an achievement with the user's standing
type AchievementProgress struct {
	Achievement Achievement `json:"achievement"`
	Current     int         `json:"current"`
	Earned      bool        `json:"earned"`
	EarnedAt    *time.Time  `json:"earned_at,omitempty"`
}

// UserCounters are the values badges and achievements are evaluated against
type UserCounters struct {
	ActivitiesCompleted int `json:"activities_completed"`
	QuizzesCompleted    int `json:"quizzes_completed"`
	StreakDays          int `json:"streak_days"`
	WordsMastered       int `json:"words_mastered"`
	PointsTotal         int `json:"points_total"`
	ChaptersCompleted   int `json:"chapters_completed"`
}

// Value returns the counter for a requirement type
func (c UserCounters) Value(r RequirementType) int {
	switch r {
	case RequirementActivitiesCompleted:
		return c.ActivitiesCompleted
	case RequirementQuizzesCompleted:
		return c.QuizzesCompleted
	case RequirementStreakDays:
		return c.StreakDays
	case RequirementWordsMastered:
		return c.WordsMastered
	case RequirementPointsTotal:
		return c.PointsTotal
	case RequirementChaptersCompleted:
		return c.ChaptersCompleted
	}
	return 0
}

// ActivityLog is one row of user_activity_log
type ActivityLog struct {
	ID              int             `json:"id"`
	UserID          int             `json:"user_id"`
	ActivityType    string          `json:"activity_type"`
	Points          int             `json:"points"`
	Score           *int            `json:"score"`
	DurationSeconds int             `json:"duration_seconds"`
	Metadata        json.RawMessage `json:"metadata"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ActivityOutcome summarises everything that changed when an activity was recorded
type ActivityOutcome struct {
	Activity            ActivityLog   `json:"activity"`
	PointsAwarded       int           `json:"points_awarded"`
	PointsTotal         int           `json:"points_total"`
	StreakCount         int           `json:"streak_count"`
	LongestStreak       int           `json:"longest_streak"`
	NewBadges           []Badge       `json:"new_badges"`
	NewAchievements     []Achievement `json:"new_achievements"`
	ChallengeCompleted  bool          `json:"challenge_completed"`
	ChallengeBonusAdded int           `json:"challenge_bonus_points,omitempty"`
}

// LeaderboardPeriod selects the points window
type LeaderboardPeriod string

// Leaderboard periods
const (
	PeriodAll     LeaderboardPeriod = "all"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
)

// Valid reports whether p is a known period
func (p LeaderboardPeriod) Valid() bool {
	switch p {
	case PeriodAll, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// LeaderboardEntry is one ranked user
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	StreakCount int    `json:"streak_count"`
}

// DailyChallenge is the challenge for one calendar date
type DailyChallenge struct {
	ID            int       `json:"id"`
	ChallengeDate time.Time `json:"challenge_date"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ActivityType  string    `json:"activity_type"`
	Target        int       `json:"target"`
	BonusPoints   int       `json:"bonus_points"`
}

// DailyChallengeStatus is the challenge plus a user's progress on it
type DailyChallengeStatus struct {
	Challenge   DailyChallenge `json:"challenge"`
	Progress    int            `json:"progress"`
	Completed   bool           `json:"completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// UserStats is the gamification summary for a user
type UserStats struct {
	UserID          int          `json:"user_id"`
	PointsTotal     int          `json:"points_total"`
	StreakCount     int          `json:"streak_count"`
	LongestStreak   int          `json:"longest_streak"`
	BadgesEarned    int          `json:"badges_earned"`
	AchievementsWon int          `json:"achievements_earned"`
	Rank            int          `json:"rank,omitempty"`
	Counters        UserCounters `json:"counters"`
}
