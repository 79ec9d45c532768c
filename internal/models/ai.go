package models

import (
	"encoding/json"
	"time"
)

// ActivityKind is the type of AI-generated content
type ActivityKind string

// Generated activity kinds
const (
	KindQuiz      ActivityKind = "quiz"
	KindFlashcard ActivityKind = "flashcard"
)

// GeneratedActivity is stored AI output
type GeneratedActivity struct {
	ID           int             `json:"id"`
	UserID       int             `json:"user_id"`
	ActivityType ActivityKind    `json:"activity_type"`
	Topic        string          `json:"topic"`
	Level        string          `json:"level"`
	Content      json.RawMessage `json:"content"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ChatRole is the author of a chat turn
type ChatRole string

// Chat roles
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one tutor conversation turn
type ChatMessage struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateActivityRequest asks the AI for new content
type GenerateActivityRequest struct {
	Kind  ActivityKind
	Topic string
	Level string
	Count int
	// Words the learner is working on, used to steer generation
	FocusWords []string
}
