package models

import "time"

// Goal types
const (
	GoalWordsMastered     = "words_mastered"
	GoalPointsEarned      = "points_earned"
	GoalStreakDays        = "streak_days"
	GoalChaptersCompleted = "chapters_completed"
	GoalMinutesPracticed  = "minutes_practiced"
)

// LearningGoal is a user-defined target
type LearningGoal struct {
	ID           int        `json:"id"`
	UserID       int        `json:"user_id"`
	GoalType     string     `json:"goal_type"`
	Title        string     `json:"title"`
	TargetValue  int        `json:"target_value"`
	CurrentValue int        `json:"current_value"`
	Deadline     *time.Time `json:"deadline"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Assessment is a recorded placement test
type Assessment struct {
	ID             int              `json:"id"`
	UserID         int              `json:"user_id"`
	TotalQuestions int              `json:"total_questions"`
	CorrectAnswers int              `json:"correct_answers"`
	Score          int              `json:"score"`
	Level          ProficiencyLevel `json:"level"`
	CreatedAt      time.Time        `json:"created_at"`
}

// LearningSession is a timed study session
type LearningSession struct {
	ID                 int        `json:"id"`
	UserID             int        `json:"user_id"`
	ActivityType       string     `json:"activity_type"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at"`
	SatisfactionRating *int       `json:"satisfaction_rating"`
	Notes              string     `json:"notes"`
}

// DurationSeconds returns the session length, or 0 while it is open
func (s *LearningSession) DurationSeconds() int {
	if s.EndedAt == nil {
		return 0
	}
	return int(s.EndedAt.Sub(s.StartedAt).Seconds())
}

// MasteryBreakdown counts a user's words per mastery level
type MasteryBreakdown struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Mastered int `json:"mastered"`
}

// Total returns the number of tracked words
func (m MasteryBreakdown) Total() int {
	return m.New + m.Learning + m.Mastered
}

// Dashboard is the personalised home summary
type Dashboard struct {
	Profile           Profile          `json:"profile"`
	Vocabulary        MasteryBreakdown `json:"vocabulary"`
	ActiveGoals       []LearningGoal   `json:"active_goals"`
	RecentActivity    []ActivityLog    `json:"recent_activity"`
	NextChapter       *Chapter         `json:"next_chapter"`
	TodayChallenge    *DailyChallenge  `json:"today_challenge"`
	MinutesToday      int              `json:"minutes_today"`
	DailyGoalMinutes  int              `json:"daily_goal_minutes"`
	LatestAssessment  *Assessment      `json:"latest_assessment"`
	UnreadNotifCount  int              `json:"unread_notifications"`
	RecommendedReview []VocabularyWord `json:"recommended_review"`
}

// DailyProgress is one day of analytics
type DailyProgress struct {
	Date          string `json:"date"`
	Activities    int    `json:"activities"`
	Points        int    `json:"points"`
	Minutes       int    `json:"minutes"`
	WordsPractice int    `json:"words_practiced"`
}

// ProgressReport is the analytics response
type ProgressReport struct {
	Days            int             `json:"days"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Daily           []DailyProgress `json:"daily"`
	TotalPoints     int             `json:"total_points"`
	TotalActivities int             `json:"total_activities"`
	TotalMinutes    int             `json:"total_minutes"`
	ActiveDays      int             `json:"active_days"`
	ByActivityType  map[string]int  `json:"by_activity_type"`
}
