// Package maintenance provides one-shot database tasks run instead of the daemon.
package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/config"
	"github.com/woozymasta/bluescore/internal/models"
)

// Store is the storage surface the tasks need.
type Store interface {
	ImportStore
	ResetAdjustments(ctx context.Context) (int64, error)
}

// Scorer re-ranks all teams.
type Scorer interface {
	Recompute(ctx context.Context) ([]models.TeamScore, error)
}

// CycleRunner runs a single check cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleSummary, error)
}

// Deps bundles what the tasks operate on.
type Deps struct {
	Store  Store
	Scorer Scorer
	Cycles CycleRunner

	// Out receives task output; stdout when nil.
	Out io.Writer
}

// Run checks if any maintenance flags are set and executes the corresponding task.
// Returns true if a maintenance task was executed (indicating the program should exit)
// and the task error, if any.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (bool, error) {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}

	switch {
	case cfg.Storage.Import != "":
		return true, importRegistry(ctx, cfg.Storage.Import, deps)

	case cfg.Storage.ResetAdjustments:
		n, err := deps.Store.ResetAdjustments(ctx)
		if err != nil {
			return true, fmt.Errorf("reset adjustments: %w", err)
		}
		if _, err := deps.Scorer.Recompute(ctx); err != nil {
			return true, fmt.Errorf("recompute scores: %w", err)
		}
		log.Info().Int64("teams", n).Msg("Manual score adjustments cleared")
		return true, nil

	case cfg.Storage.CheckOnce:
		log.Info().Msg("Running a single check cycle...")
		summary, err := deps.Cycles.RunCycle(ctx)
		if err != nil {
			return true, fmt.Errorf("check cycle: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(summary)
	}

	return false, nil
}

func importRegistry(ctx context.Context, path string, deps Deps) error {
	log.Info().Str("path", path).Msg("Importing registry...")

	reg, err := LoadRegistry(path)
	if err != nil {
		return err
	}
	if err := Import(ctx, deps.Store, reg); err != nil {
		return fmt.Errorf("import registry: %w", err)
	}
	if _, err := deps.Scorer.Recompute(ctx); err != nil {
		return fmt.Errorf("recompute scores: %w", err)
	}

	log.Info().
		Str("competition", reg.Competition.Name).
		Int("teams", len(reg.Teams)).
		Int("services", len(reg.Services)).
		Msg("Registry imported")

	return nil
}
