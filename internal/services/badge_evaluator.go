package services

import "telugulearn/internal/models"

// EligibleBadges returns the catalog badges the counters satisfy that are not
// in earned. The result preserves catalog order.
func EligibleBadges(catalog []models.Badge, earned map[int]bool, counters models.UserCounters) []models.Badge {
	var out []models.Badge
	for _, b := range catalog {
		if earned[b.ID] || b.RequirementValue <= 0 {
			continue
		}
		if counters.Value(b.RequirementType) >= b.RequirementValue {
			out = append(out, b)
		}
	}
	return out
}

// EligibleAchievements is EligibleBadges for achievements
func EligibleAchievements(catalog []models.Achievement, earned map[int]bool, counters models.UserCounters) []models.Achievement {
	var out []models.Achievement
	for _, a := range catalog {
		if earned[a.ID] || a.Threshold <= 0 {
			continue
		}
		if counters.Value(a.Metric) >= a.Threshold {
			out = append(out, a)
		}
	}
	return out
}
