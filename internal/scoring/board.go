package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/metrics"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/storage"
)

// ErrTeamNotFound is returned when an adjustment targets an unknown team.
var ErrTeamNotFound = errors.New("scoring: team not found")

// Store is the persistence the board needs.
type Store interface {
	UpdateScores(ctx context.Context, fn storage.ScoreUpdateFunc) error
}

// AdjustFunc maps the total of a team to its new total. published is the total of the last
// recompute, the one operators see; current also counts check records written since then.
type AdjustFunc func(published, current int) (int, error)

// Board is the single writer of team totals and ranks.
type Board struct {
	store Store
	now   func() time.Time

	mu        sync.RWMutex
	listeners []func()
}

// NewBoard creates a Board over store.
func NewBoard(store Store) *Board {
	return &Board{store: store, now: time.Now}
}

// OnChange registers fn to be called after every successful score update.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, fn)
}

// Recompute derives every team total from the stored check records and adjustments and re-ranks.
func (b *Board) Recompute(ctx context.Context) ([]models.TeamScore, error) {
	var standings []models.TeamScore

	err := b.store.UpdateScores(ctx, func(rows []models.TeamScore) error {
		now := b.now()
		for i := range rows {
			rows[i].UpdatedAt = now
		}
		Recompute(rows)
		standings = snapshot(rows)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recompute scores: %w", err)
	}

	b.changed(standings)

	return standings, nil
}

// Adjust refreshes every automated sum from the stored check records, applies fn to the
// current total of teamID and keeps the difference to the automated sum as the team
// adjustment, re-ranking every team in the same transaction.
// before carries the current total fn was applied to, so after.Total-before.Total is the
// change the operator asked for even while a cycle is writing records.
func (b *Board) Adjust(ctx context.Context, teamID string, fn AdjustFunc) (before, after models.TeamScore, standings []models.TeamScore, err error) {
	err = b.store.UpdateScores(ctx, func(rows []models.TeamScore) error {
		idx := -1
		for i := range rows {
			if rows[i].TeamID == teamID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrTeamNotFound
		}

		published := rows[idx].Total
		now := b.now()
		for i := range rows {
			rows[i].UpdatedAt = now
			rows[i].Automated = TotalScore(rows[i].Checks)
			rows[i].Total = Clamp(rows[i].Automated + rows[i].Adjustment)
		}

		before = rows[idx]
		before.Checks = nil

		target, err := fn(published, rows[idx].Total)
		if err != nil {
			return err
		}
		rows[idx].Adjustment = Clamp(target) - rows[idx].Automated

		Recompute(rows)
		standings = snapshot(rows)
		for _, s := range standings {
			if s.TeamID == teamID {
				after = s
			}
		}

		return nil
	})
	if err != nil {
		return before, after, nil, err
	}

	b.changed(standings)

	return before, after, standings, nil
}

func (b *Board) changed(standings []models.TeamScore) {
	metrics.SetStandings(standings)

	b.mu.RLock()
	listeners := append([]func(){}, b.listeners...)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}

	log.Debug().Int("teams", len(standings)).Msg("Standings updated")
}

// snapshot copies rows without their check records.
func snapshot(rows []models.TeamScore) []models.TeamScore {
	out := make([]models.TeamScore, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Checks = nil
	}

	return out
}
