package scoring

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/woozymasta/bluescore/internal/models"
)

func check(status models.Status, points int) models.CheckRecord {
	return models.CheckRecord{Status: status, Points: points}
}

func order(scores []models.TeamScore) []string {
	ids := make([]string, 0, len(scores))
	for _, s := range scores {
		ids = append(ids, s.TeamID)
	}

	return ids
}

func TestTotalScore(t *testing.T) {
	Convey("Only up records count toward the total", t, func() {
		records := []models.CheckRecord{
			check(models.StatusUp, 100),
			check(models.StatusDown, 0),
			check(models.StatusUnknown, 0),
			check(models.StatusUp, 50),
		}
		So(TotalScore(records), ShouldEqual, 150)
		So(TotalScore(nil), ShouldEqual, 0)
	})
}

func TestRank(t *testing.T) {
	Convey("Given two teams with partial uptime", t, func() {
		scores := []models.TeamScore{
			{TeamID: "A", Seq: 1, Checks: []models.CheckRecord{check(models.StatusUp, 100), check(models.StatusDown, 0)}},
			{TeamID: "B", Seq: 2, Checks: []models.CheckRecord{check(models.StatusUp, 100), check(models.StatusUp, 50)}},
		}

		Recompute(scores)

		So(cmp.Diff([]string{"B", "A"}, order(scores)), ShouldBeEmpty)
		So(scores[0].Total, ShouldEqual, 150)
		So(scores[0].Rank, ShouldEqual, 1)
		So(scores[1].Total, ShouldEqual, 100)
		So(scores[1].Rank, ShouldEqual, 2)
	})

	Convey("Tied teams get distinct adjacent ranks in registration order", t, func() {
		scores := []models.TeamScore{
			{TeamID: "late", Seq: 7, Total: 200},
			{TeamID: "early", Seq: 3, Total: 200},
			{TeamID: "top", Seq: 9, Total: 300},
		}
		Rank(scores)

		So(cmp.Diff([]string{"top", "early", "late"}, order(scores)), ShouldBeEmpty)
		So(scores[1].Rank, ShouldEqual, 2)
		So(scores[2].Rank, ShouldEqual, 3)
	})

	Convey("Equal registration order falls back to team id", t, func() {
		scores := []models.TeamScore{{TeamID: "b", Total: 10}, {TeamID: "a", Total: 10}}
		Rank(scores)
		So(cmp.Diff([]string{"a", "b"}, order(scores)), ShouldBeEmpty)
	})

	Convey("Ranks are always a permutation of 1..N sorted by total", t, func() {
		rng := rand.New(rand.NewSource(42))
		for round := 0; round < 50; round++ {
			n := rng.Intn(20) + 1
			scores := make([]models.TeamScore, n)
			for i := range scores {
				scores[i] = models.TeamScore{
					TeamID: string(rune('a' + i)),
					Seq:    int64(rng.Intn(5)),
					Total:  rng.Intn(4) * 100,
				}
			}
			Rank(scores)

			for i, s := range scores {
				So(s.Rank, ShouldEqual, i+1)
				if i > 0 {
					So(s.Total, ShouldBeLessThanOrEqualTo, scores[i-1].Total)
				}
			}
		}
	})

	Convey("Adjustments never push a total below zero", t, func() {
		scores := []models.TeamScore{
			{TeamID: "A", Adjustment: -500, Checks: []models.CheckRecord{check(models.StatusUp, 100)}},
		}
		Recompute(scores)
		So(scores[0].Automated, ShouldEqual, 100)
		So(scores[0].Total, ShouldEqual, 0)
	})
}
