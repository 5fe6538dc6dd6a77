// Package scoring turns check records into team totals and dense, deterministic ranks.
package scoring

import (
	"sort"

	"github.com/woozymasta/bluescore/internal/models"
)

// TotalScore sums the points of the records that are up.
func TotalScore(records []models.CheckRecord) int {
	total := 0
	for _, r := range records {
		if r.Status == models.StatusUp {
			total += r.Points
		}
	}

	return total
}

// Clamp keeps a score from going below zero.
func Clamp(score int) int {
	return max(0, score)
}

// Rank orders scores by total descending, then registration order, then team id,
// and assigns ranks 1..N by position. Ties never share a rank.
func Rank(scores []models.TeamScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.TeamID < b.TeamID
	})

	for i := range scores {
		scores[i].Rank = i + 1
	}
}

// Recompute refreshes the automated part and total of every row and re-ranks them.
func Recompute(scores []models.TeamScore) {
	for i := range scores {
		scores[i].Automated = TotalScore(scores[i].Checks)
		scores[i].Total = Clamp(scores[i].Automated + scores[i].Adjustment)
	}

	Rank(scores)
}
