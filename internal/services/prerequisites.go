package services

import (
	"fmt"

	"telugulearn/internal/models"
)

// EvaluatePrerequisites decides access to chapterID given its prerequisite
// edges and the set of chapters the user has passed. The first unmet strict
// prerequisite denies access; unmet non-strict ones become warnings.
func EvaluatePrerequisites(chapterID int, deps []models.ChapterDependency, passed map[int]bool) models.ChapterAccess {
	access := models.ChapterAccess{ChapterID: chapterID, Allowed: true}
	for _, dep := range deps {
		if passed[dep.PrerequisiteID] {
			continue
		}
		if dep.IsStrict {
			access.Allowed = false
			access.Reason = fmt.Sprintf("complete prerequisite chapter %q first", dep.PrerequisiteTitle)
			return access
		}
		access.Warnings = append(access.Warnings,
			fmt.Sprintf("chapter %q is recommended before this one", dep.PrerequisiteTitle))
	}
	return access
}

// BuildLearningPath derives each chapter's status from prerequisites and progress
func BuildLearningPath(chapters []models.Chapter, progress map[int]models.ChapterProgress) []models.LearningPathEntry {
	passed := make(map[int]bool, len(progress))
	for id, p := range progress {
		if p.Passed {
			passed[id] = true
		}
	}

	path := make([]models.LearningPathEntry, 0, len(chapters))
	for _, ch := range chapters {
		entry := models.LearningPathEntry{Chapter: ch, BestScore: progress[ch.ID].BestScore}
		access := EvaluatePrerequisites(ch.ID, ch.Prerequisites, passed)
		switch {
		case passed[ch.ID]:
			entry.Status = models.ChapterCompleted
		case access.Allowed:
			entry.Status = models.ChapterAvailable
			entry.Warnings = access.Warnings
		default:
			entry.Status = models.ChapterLocked
		}
		path = append(path, entry)
	}
	return path
}
