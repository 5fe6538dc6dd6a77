// Package fake provides utilities for generating random competition data for testing and development purposes.
package fake

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/models"
)

// Rounds is the number of simulated check cycles written per generation.
const Rounds = 12

// Store is the storage surface the generator writes through.
type Store interface {
	UpsertTeam(ctx context.Context, t models.Team) error
	UpsertService(ctx context.Context, s models.Service) error
	InitChecks(ctx context.Context) error
	StartCycle(ctx context.Context, startedAt time.Time) (int64, error)
	FinishCycle(ctx context.Context, s models.CycleSummary) error
}

// Recorder persists one outcome.
type Recorder interface {
	Record(ctx context.Context, svc models.Service, teamID string, cycleID int64, out models.Outcome) error
}

// Scorer re-ranks all teams.
type Scorer interface {
	Recompute(ctx context.Context) ([]models.TeamScore, error)
}

// DemoServices is the service set every demo team runs.
var DemoServices = []models.Service{
	{Name: "SSH", Protocol: models.ProtocolTCP, Port: 22, PointValue: 100},
	{Name: "HTTP", Protocol: models.ProtocolHTTP, Port: 80, PointValue: 100},
	{Name: "HTTPS", Protocol: models.ProtocolHTTPS, Port: 443, PointValue: 100},
	{Name: "FTP", Protocol: models.ProtocolTCP, Port: 21, PointValue: 100},
	{Name: "DNS", Protocol: models.ProtocolTCP, Port: 53, PointValue: 100},
}

var teamNames = []string{
	"Red Rockets", "Blue Barracudas", "Green Goblins", "Yellow Yetis", "Purple Pythons",
	"Orange Owls", "Silver Sharks", "Golden Griffins", "Black Bears", "White Wolves",
}

// GenerateData creates count demo teams with the demo services and records Rounds cycles
// of random outcomes, each service being up with probability uptime percent.
func GenerateData(ctx context.Context, store Store, rec Recorder, scorer Scorer, count, uptime int) error {
	services := make([]models.Service, len(DemoServices))
	for i, svc := range DemoServices {
		svc.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("service:"+svc.Name)).String()
		if err := store.UpsertService(ctx, svc); err != nil {
			return err
		}
		services[i] = svc
	}

	teams := make([]models.Team, count)
	for i := range count {
		name := teamNames[i%len(teamNames)]
		if i >= len(teamNames) {
			name = fmt.Sprintf("%s %d", name, i/len(teamNames)+1)
		}
		teams[i] = models.Team{
			ID:      uuid.NewString(),
			Name:    name,
			Address: fmt.Sprintf("10.0.%d.10", i+1),
		}
		if err := store.UpsertTeam(ctx, teams[i]); err != nil {
			return err
		}
	}

	if err := store.InitChecks(ctx); err != nil {
		return err
	}

	// Each team gets its own reliability around the requested uptime
	reliability := make([]float64, count)
	for i := range reliability {
		reliability[i] = min(1, max(0, (float64(uptime)+rand.Float64()*20-10)/100))
	}

	start := time.Now().Add(-Rounds * 30 * time.Second)
	for round := range Rounds {
		startedAt := start.Add(time.Duration(round) * 30 * time.Second)
		cycleID, err := store.StartCycle(ctx, startedAt)
		if err != nil {
			return err
		}

		summary := models.CycleSummary{
			ID:              cycleID,
			StartedAt:       startedAt,
			PerStatusCounts: map[models.Status]int{models.StatusUp: 0, models.StatusDown: 0},
		}
		for ti, team := range teams {
			for _, svc := range services {
				out := models.Outcome{
					CheckedAt:    startedAt.Add(time.Duration(rand.Intn(2000)) * time.Millisecond),
					Status:       models.StatusDown,
					ResponseTime: time.Duration(5+rand.Intn(300)) * time.Millisecond,
				}
				if rand.Float64() < reliability[ti] {
					out.Status = models.StatusUp
				} else {
					out.Reason = "simulated outage"
				}

				if err := rec.Record(ctx, svc, team.ID, cycleID, out); err != nil {
					log.Warn().Err(err).Str("team", team.Name).Str("service", svc.Name).Msg("Failed to record fake outcome")
					summary.RecordErrors++
				}
				summary.ChecksCompleted++
				summary.PerStatusCounts[out.Status]++
			}
		}

		summary.FinishedAt = startedAt.Add(2 * time.Second)
		if err := store.FinishCycle(ctx, summary); err != nil {
			return err
		}
	}

	standings, err := scorer.Recompute(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("teams", count).Int("rounds", Rounds).Int("ranked", len(standings)).Msg("Fake competition generated")

	return nil
}
