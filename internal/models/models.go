// Package models defines data structures used throughout the learning backend.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ProficiencyLevel is a learner's overall Telugu level
type ProficiencyLevel string

// Proficiency levels, lowest first
const (
	LevelBeginner     ProficiencyLevel = "beginner"
	LevelIntermediate ProficiencyLevel = "intermediate"
	LevelAdvanced     ProficiencyLevel = "advanced"
)

// Valid reports whether l is a known proficiency level
func (l ProficiencyLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID           int          `json:"id" yaml:"id"`
	Username     string       `json:"username" yaml:"username"`
	Email        string       `json:"email" yaml:"email"`
	PasswordHash string       `json:"-" yaml:"-"` // Omit from JSON responses
	Timezone     string       `json:"timezone" yaml:"timezone"`
	IsActive     bool         `json:"is_active" yaml:"is_active"`
	IsAdmin      bool         `json:"is_admin" yaml:"is_admin"`
	LastLoginAt  sql.NullTime `json:"last_login_at" yaml:"last_login_at"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullTime properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int        `json:"id"`
		Username    string     `json:"username"`
		Email       string     `json:"email"`
		Timezone    string     `json:"timezone"`
		IsActive    bool       `json:"is_active"`
		IsAdmin     bool       `json:"is_admin"`
		LastLoginAt *time.Time `json:"last_login_at"`
		CreatedAt   time.Time  `json:"created_at"`
		UpdatedAt   time.Time  `json:"updated_at"`
	}{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Timezone:    u.Timezone,
		IsActive:    u.IsActive,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: nullTimeToPointer(u.LastLoginAt),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	})
}

// Profile holds the learning state attached 1:1 to a user
type Profile struct {
	UserID           int              `json:"user_id"`
	DisplayName      string           `json:"display_name"`
	NativeLanguage   string           `json:"native_language"`
	ProficiencyLevel ProficiencyLevel `json:"proficiency_level"`
	DailyGoalMinutes int              `json:"daily_goal_minutes"`
	StreakCount      int              `json:"streak_count"`
	LongestStreak    int              `json:"longest_streak"`
	LastActivityDate sql.NullTime     `json:"last_activity_date"`
	PointsTotal      int              `json:"points_total"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// MarshalJSON renders LastActivityDate as a calendar date or null
func (p Profile) MarshalJSON() (result0 []byte, err error) {
	var lastActivity *string
	if p.LastActivityDate.Valid {
		d := p.LastActivityDate.Time.Format("2006-01-02")
		lastActivity = &d
	}
	return json.Marshal(&struct {
		UserID           int              `json:"user_id"`
		DisplayName      string           `json:"display_name"`
		NativeLanguage   string           `json:"native_language"`
		ProficiencyLevel ProficiencyLevel `json:"proficiency_level"`
		DailyGoalMinutes int              `json:"daily_goal_minutes"`
		StreakCount      int              `json:"streak_count"`
		LongestStreak    int              `json:"longest_streak"`
		LastActivityDate *string          `json:"last_activity_date"`
		PointsTotal      int              `json:"points_total"`
		UpdatedAt        time.Time        `json:"updated_at"`
	}{
		UserID:           p.UserID,
		DisplayName:      p.DisplayName,
		NativeLanguage:   p.NativeLanguage,
		ProficiencyLevel: p.ProficiencyLevel,
		DailyGoalMinutes: p.DailyGoalMinutes,
		StreakCount:      p.StreakCount,
		LongestStreak:    p.LongestStreak,
		LastActivityDate: lastActivity,
		PointsTotal:      p.PointsTotal,
		UpdatedAt:        p.UpdatedAt,
	})
}

// UserWithProfile is the combined account view returned by /me and /user/profile
type UserWithProfile struct {
	User    User    `json:"user"`
	Profile Profile `json:"profile"`
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Helper functions for converting sql.Null types to pointers
func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullInt64ToPointer(ni sql.NullInt64) *int64 {
	if ni.Valid {
		return &ni.Int64
	}
	return nil
}

// Pagination describes a page of a larger result set
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination fills TotalPages from total and pageSize
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}
