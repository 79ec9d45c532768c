package models

import "time"

// Course groups chapters
type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Level       string    `json:"level"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chapter is a unit of a course
type Chapter struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	Level       string    `json:"level"`
	PassScore   int       `json:"pass_score"`
	CreatedAt   time.Time `json:"created_at"`

	Prerequisites []ChapterDependency `json:"prerequisites,omitempty"`
}

// ChapterDependency is a directed prerequisite edge
type ChapterDependency struct {
	ChapterID         int    `json:"chapter_id"`
	PrerequisiteID    int    `json:"prerequisite_id"`
	PrerequisiteTitle string `json:"prerequisite_title"`
	IsStrict          bool   `json:"is_strict"`
}

// ChapterProgress is a user's standing in a chapter
type ChapterProgress struct {
	UserID      int        `json:"user_id"`
	ChapterID   int        `json:"chapter_id"`
	BestScore   int        `json:"best_score"`
	Attempts    int        `json:"attempts"`
	Passed      bool       `json:"passed"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChapterAccess is the outcome of a prerequisite check
type ChapterAccess struct {
	ChapterID int      `json:"chapter_id"`
	Allowed   bool     `json:"allowed"`
	Reason    string   `json:"reason,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ChapterStatus is a chapter's position on the learning path
type ChapterStatus string

// Learning path statuses
const (
	ChapterLocked    ChapterStatus = "locked"
	ChapterAvailable ChapterStatus = "available"
	ChapterCompleted ChapterStatus = "completed"
)

// LearningPathEntry is one chapter in a user's learning path
type LearningPathEntry struct {
	Chapter   Chapter       `json:"chapter"`
	Status    ChapterStatus `json:"status"`
	BestScore int           `json:"best_score"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// ProgressOutcome is returned after recording a chapter attempt
type ProgressOutcome struct {
	Progress   ChapterProgress  `json:"progress"`
	JustPassed bool             `json:"just_passed"`
	Warnings   []string         `json:"warnings,omitempty"`
	Activity   *ActivityOutcome `json:"activity,omitempty"`
}
