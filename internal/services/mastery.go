package services

import "telugulearn/internal/models"

// Mastery thresholds
const (
	MasteredSuccessRate = 0.8
	MasteredMinAttempts = 3
	LearningSuccessRate = 0.6
)

// ClassifyMastery maps practice counts to a mastery level. A word needs both
// a high success rate and enough attempts to count as mastered.
func ClassifyMastery(timesCorrect, timesPracticed int) models.MasteryLevel {
	if timesPracticed <= 0 {
		return models.MasteryNew
	}
	rate := float64(timesCorrect) / float64(timesPracticed)
	switch {
	case rate >= MasteredSuccessRate && timesPracticed >= MasteredMinAttempts:
		return models.MasteryMastered
	case rate >= LearningSuccessRate:
		return models.MasteryLearning
	default:
		return models.MasteryNew
	}
}

// ApplyPractice records one attempt on w and reclassifies it
func ApplyPractice(w *models.VocabularyWord, correct bool) {
	w.TimesPracticed++
	if correct {
		w.TimesCorrect++
	}
	w.MasteryLevel = ClassifyMastery(w.TimesCorrect, w.TimesPracticed)
}

// AssessmentLevel maps a percentage score to a proficiency level
func AssessmentLevel(score int) models.ProficiencyLevel {
	switch {
	case score >= 80:
		return models.LevelAdvanced
	case score >= 50:
		return models.LevelIntermediate
	default:
		return models.LevelBeginner
	}
}

// AssessmentScore returns correct/total as a rounded percentage
func AssessmentScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*100 + total/2) / total
}
