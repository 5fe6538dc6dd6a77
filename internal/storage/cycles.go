package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/woozymasta/bluescore/internal/models"
)

// StartCycle allocates a new, strictly increasing cycle id.
func (r *Repository) StartCycle(ctx context.Context, startedAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO cycles (started_at) VALUES (?)`, toMillis(startedAt))
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// FinishCycle stores the summary of a finished cycle.
func (r *Repository) FinishCycle(ctx context.Context, s models.CycleSummary) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cycles SET
			finished_at = ?, checks_completed = ?, up = ?, down = ?,
			skipped = ?, record_errors = ?, error = ?
		WHERE id = ?
	`, toMillis(s.FinishedAt), s.ChecksCompleted, s.PerStatusCounts[models.StatusUp], s.PerStatusCounts[models.StatusDown],
		s.Skipped, s.RecordErrors, s.Error, s.ID)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// LastCycle returns the most recent finished cycle, or nil when no cycle has finished yet.
func (r *Repository) LastCycle(ctx context.Context) (*models.CycleSummary, error) {
	var (
		s               models.CycleSummary
		started         int64
		finished        int64
		up, down        int
		lastCycleErrMsg string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, checks_completed, up, down, skipped, record_errors, error
		FROM cycles
		WHERE finished_at IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&s.ID, &started, &finished, &s.ChecksCompleted, &up, &down, &s.Skipped, &s.RecordErrors, &lastCycleErrMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.StartedAt = fromMillis(started)
	s.FinishedAt = fromMillis(finished)
	s.Error = lastCycleErrMsg
	s.PerStatusCounts = map[models.Status]int{
		models.StatusUp:   up,
		models.StatusDown: down,
	}

	return &s, nil
}
