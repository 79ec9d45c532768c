package models

import "time"

// Notification types
const (
	NotificationBadgeEarned       = "badge_earned"
	NotificationAchievementEarned = "achievement_earned"
	NotificationChallengeComplete = "challenge_completed"
	NotificationGoalCompleted     = "goal_completed"
	NotificationSystem            = "system"
)

// Notification is a persisted per-user message
type Notification struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsRead reports whether the notification has been read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
