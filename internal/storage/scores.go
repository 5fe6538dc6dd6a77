package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/woozymasta/bluescore/internal/models"
)

// ScoreUpdateFunc mutates the loaded score rows in place. Rows come in registration order
// with the check records of each team attached.
type ScoreUpdateFunc func(rows []models.TeamScore) error

// ListScores returns the stored score rows ordered by rank.
func (r *Repository) ListScores(ctx context.Context) ([]models.TeamScore, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.rowid, t.id, t.name,
		       COALESCE(s.total_score, 0), COALESCE(s.rank, 0), COALESCE(s.adjustment, 0), COALESCE(s.updated_at, 0)
		FROM teams t
		LEFT JOIN team_scores s ON s.team_id = t.id
		ORDER BY CASE WHEN COALESCE(s.rank, 0) = 0 THEN 1 ELSE 0 END, s.rank, t.rowid
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var scores []models.TeamScore
	for rows.Next() {
		var (
			s       models.TeamScore
			updated int64
		)
		if err := rows.Scan(&s.Seq, &s.TeamID, &s.Name, &s.Total, &s.Rank, &s.Adjustment, &updated); err != nil {
			return nil, err
		}
		if updated > 0 {
			s.UpdatedAt = fromMillis(updated)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return scores, nil
}

// UpdateScores loads a consistent snapshot of every team score and its check records,
// lets fn recompute it and writes all rows back in the same transaction.
func (r *Repository) UpdateScores(ctx context.Context, fn ScoreUpdateFunc) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		scores, err := loadScores(ctx, tx)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}

		checks, err := listChecks(ctx, tx)
		if err != nil {
			return fmt.Errorf("load checks: %w", err)
		}

		index := make(map[string]int, len(scores))
		for i, s := range scores {
			index[s.TeamID] = i
		}
		for _, c := range checks {
			if i, ok := index[c.TeamID]; ok {
				scores[i].Checks = append(scores[i].Checks, c)
			}
		}

		if err := fn(scores); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO team_scores (team_id, total_score, rank, adjustment, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(team_id) DO UPDATE SET
			total_score = excluded.total_score,
			rank = excluded.rank,
			adjustment = excluded.adjustment,
			updated_at = excluded.updated_at;
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		now := r.now()
		for _, s := range scores {
			updated := s.UpdatedAt
			if updated.IsZero() {
				updated = now
			}
			if _, err := stmt.ExecContext(ctx, s.TeamID, s.Total, s.Rank, s.Adjustment, toMillis(updated)); err != nil {
				return fmt.Errorf("write score %s: %w", s.TeamID, err)
			}
		}

		return nil
	})
}

// ResetAdjustments clears every manual adjustment and returns the number of affected teams.
// Totals are refreshed by the next recomputation.
func (r *Repository) ResetAdjustments(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE team_scores SET adjustment = 0 WHERE adjustment != 0`)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func loadScores(ctx context.Context, tx *sql.Tx) ([]models.TeamScore, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT t.rowid, t.id, t.name,
		       COALESCE(s.total_score, 0), COALESCE(s.rank, 0), COALESCE(s.adjustment, 0)
		FROM teams t
		LEFT JOIN team_scores s ON s.team_id = t.id
		ORDER BY t.rowid
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var scores []models.TeamScore
	for rows.Next() {
		var s models.TeamScore
		if err := rows.Scan(&s.Seq, &s.TeamID, &s.Name, &s.Total, &s.Rank, &s.Adjustment); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}

	return scores, rows.Err()
}
