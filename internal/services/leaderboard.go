package services

import (
	"sort"

	"telugulearn/internal/models"
)

// SortLeaderboard orders entries by points descending, then user id ascending,
// and assigns 1-based ranks.
func SortLeaderboard(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// FindRank scans a sorted leaderboard for userID. It returns false when
// the user is not on it.
func FindRank(entries []models.LeaderboardEntry, userID int) (models.LeaderboardEntry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return models.LeaderboardEntry{}, false
}

// TopN returns at most n leading entries
func TopN(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if n < 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
