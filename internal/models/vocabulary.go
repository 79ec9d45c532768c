package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// MasteryLevel is the per-word learning state
type MasteryLevel string

// Mastery levels
const (
	MasteryNew      MasteryLevel = "new"
	MasteryLearning MasteryLevel = "learning"
	MasteryMastered MasteryLevel = "mastered"
)

// VocabularyWord is a word a user is tracking
type VocabularyWord struct {
	ID              int           `json:"id"`
	UserID          int           `json:"user_id"`
	ChapterID       sql.NullInt64 `json:"chapter_id"`
	Telugu          string        `json:"telugu"`
	English         string        `json:"english"`
	Transliteration string        `json:"transliteration"`
	TimesPracticed  int           `json:"times_practiced"`
	TimesCorrect    int           `json:"times_correct"`
	MasteryLevel    MasteryLevel  `json:"mastery_level"`
	LastPracticedAt sql.NullTime  `json:"last_practiced_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

// SuccessRate returns correct/practiced, or 0 for an unpractised word
func (w *VocabularyWord) SuccessRate() float64 {
	if w.TimesPracticed == 0 {
		return 0
	}
	return float64(w.TimesCorrect) / float64(w.TimesPracticed)
}

// MarshalJSON customizes JSON marshaling for VocabularyWord
func (w VocabularyWord) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID              int          `json:"id"`
		UserID          int          `json:"user_id"`
		ChapterID       *int64       `json:"chapter_id"`
		Telugu          string       `json:"telugu"`
		English         string       `json:"english"`
		Transliteration string       `json:"transliteration"`
		TimesPracticed  int          `json:"times_practiced"`
		TimesCorrect    int          `json:"times_correct"`
		SuccessRate     float64      `json:"success_rate"`
		MasteryLevel    MasteryLevel `json:"mastery_level"`
		LastPracticedAt *time.Time   `json:"last_practiced_at"`
		CreatedAt       time.Time    `json:"created_at"`
	}{
		ID:              w.ID,
		UserID:          w.UserID,
		ChapterID:       nullInt64ToPointer(w.ChapterID),
		Telugu:          w.Telugu,
		English:         w.English,
		Transliteration: w.Transliteration,
		TimesPracticed:  w.TimesPracticed,
		TimesCorrect:    w.TimesCorrect,
		SuccessRate:     w.SuccessRate(),
		MasteryLevel:    w.MasteryLevel,
		LastPracticedAt: nullTimeToPointer(w.LastPracticedAt),
		CreatedAt:       w.CreatedAt,
	})
}

// VocabularyFilter narrows a vocabulary listing
type VocabularyFilter struct {
	Mastery   MasteryLevel
	ChapterID int
	Page      int
	PageSize  int
}

// PracticeResult is returned after recording a practice attempt
type PracticeResult struct {
	Word          VocabularyWord `json:"word"`
	PreviousLevel MasteryLevel   `json:"previous_level"`
	LevelChanged  bool           `json:"level_changed"`
}
