// Package scoreboard builds the read-only scoreboard document from live storage or a fixture file.
package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/bluescore/internal/models"
)

// Source kinds.
const (
	KindLive    = "live"
	KindFixture = "fixture"
)

// ErrUnknownSource is returned for an unsupported source kind.
var ErrUnknownSource = errors.New("scoreboard: unknown source kind")

// Source produces the scoreboard document.
type Source interface {
	ScoreData(ctx context.Context) (*models.ScoreData, error)
}

// LiveStore is the storage the live source reads.
type LiveStore interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	ListChecks(ctx context.Context) ([]models.CheckRecord, error)
	ListScores(ctx context.Context) ([]models.TeamScore, error)
	GetCompetition(ctx context.Context) (*models.Competition, error)
}

// NewSource returns the source selected by kind. The choice is explicit; there is no fallback.
func NewSource(kind, fixturePath string, store LiveStore) (Source, error) {
	switch kind {
	case KindLive:
		if store == nil {
			return nil, errors.New("scoreboard: live source requires storage")
		}
		return NewLive(store), nil
	case KindFixture:
		if fixturePath == "" {
			return nil, errors.New("scoreboard: fixture source requires a file path")
		}
		return &Fixture{Path: fixturePath}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}

// Live builds the document from stored teams, services, check records and scores.
type Live struct {
	store LiveStore
	now   func() time.Time
}

// NewLive creates a live source.
func NewLive(store LiveStore) *Live {
	return &Live{store: store, now: time.Now}
}

// ScoreData implements Source.
func (l *Live) ScoreData(ctx context.Context) (*models.ScoreData, error) {
	teams, err := l.store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	services, err := l.store.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	checks, err := l.store.ListChecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	scores, err := l.store.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	competition, err := l.store.GetCompetition(ctx)
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", err)
	}

	now := l.now()
	return Build(teams, services, checks, scores, competition, now), nil
}

// Build assembles the document. Teams follow the order of scores, services keep registration order
// and pairs without a record are reported as unknown.
func Build(
	teams []models.Team,
	services []models.Service,
	checks []models.CheckRecord,
	scores []models.TeamScore,
	competition *models.Competition,
	now time.Time,
) *models.ScoreData {
	byTeam := make(map[string]models.Team, len(teams))
	for _, t := range teams {
		byTeam[t.ID] = t
	}

	records := make(map[string]models.CheckRecord, len(checks))
	for _, c := range checks {
		records[c.TeamID+"\x00"+c.ServiceID] = c
	}

	data := &models.ScoreData{
		Teams: make([]models.TeamView, 0, len(scores)),
		Round: Round(competition, now),
	}

	for i, s := range scores {
		team, ok := byTeam[s.TeamID]
		if !ok {
			continue
		}

		rank := s.Rank
		if rank == 0 {
			rank = i + 1
		}

		view := models.TeamView{
			ID:         team.ID,
			Name:       team.Name,
			Address:    team.Address,
			TotalScore: s.Total,
			Rank:       rank,
			Services:   make([]models.ServiceView, 0, len(services)),
		}

		for _, svc := range services {
			sv := models.ServiceView{
				Name:     svc.Name,
				Protocol: svc.Protocol,
				Port:     svc.Port,
				Status:   models.StatusUnknown,
			}
			if rec, ok := records[team.ID+"\x00"+svc.ID]; ok {
				sv.Status = rec.Status
				sv.Uptime = rec.Uptime
				sv.Points = rec.Points
				if !rec.LastChecked.IsZero() {
					checked := rec.LastChecked
					sv.LastChecked = &checked
				}
			}
			view.Services = append(view.Services, sv)
		}

		data.Teams = append(data.Teams, view)

		if s.UpdatedAt.After(data.LastUpdate) {
			data.LastUpdate = s.UpdatedAt
		}
	}

	if data.LastUpdate.IsZero() {
		data.LastUpdate = now.UTC()
	}

	if competition != nil {
		data.Competition = models.CompetitionInfo{
			Name:            competition.Name,
			StartTime:       competition.StartTime,
			DurationSeconds: int64(competition.Duration / time.Second),
		}
	}

	return data
}

// Round returns the 1-based round number at now: 0 before the start and capped at the last round.
func Round(c *models.Competition, now time.Time) int {
	if c == nil || c.RoundDuration <= 0 || now.Before(c.StartTime) {
		return 0
	}

	round := int(now.Sub(c.StartTime)/c.RoundDuration) + 1
	if c.Duration > 0 {
		last := int((c.Duration + c.RoundDuration - 1) / c.RoundDuration)
		round = min(round, last)
	}

	return round
}

// Fixture serves a static ScoreData JSON file, read on every call.
type Fixture struct {
	Path string
}

// ScoreData implements Source.
func (f *Fixture) ScoreData(_ context.Context) (*models.ScoreData, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var data models.ScoreData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", f.Path, err)
	}
	if data.Teams == nil {
		data.Teams = []models.TeamView{}
	}

	return &data, nil
}
