package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/woozymasta/bluescore/internal/models"
)

// CheckUpdateFunc computes the next state of a check record from the stored one.
// Returning write=false leaves the stored row unchanged.
type CheckUpdateFunc func(prev models.CheckRecord) (next models.CheckRecord, write bool, err error)

const checkColumns = `team_id, service_id, status, response_time, points, last_checked,
		uptime_percentage, cycle_id, history, samples`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheck(s rowScanner) (models.CheckRecord, error) {
	var (
		c            models.CheckRecord
		status       string
		responseTime sql.NullInt64
		lastChecked  sql.NullInt64
		history      int64
	)
	if err := s.Scan(&c.TeamID, &c.ServiceID, &status, &responseTime, &c.Points, &lastChecked,
		&c.Uptime, &c.CycleID, &history, &c.Samples); err != nil {
		return c, err
	}

	c.Status = models.Status(status)
	c.LastChecked = fromNullMillis(lastChecked)
	c.History = uint64(history)
	if responseTime.Valid {
		ms := responseTime.Int64
		c.ResponseTime = &ms
	}

	return c, nil
}

// GetCheck returns the record of one (team, service) pair.
func (r *Repository) GetCheck(ctx context.Context, teamID, serviceID string) (*models.CheckRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+checkColumns+`
		FROM service_checks WHERE team_id = ? AND service_id = ?`, teamID, serviceID)

	c, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListChecks returns every check record.
func (r *Repository) ListChecks(ctx context.Context) ([]models.CheckRecord, error) {
	return listChecks(ctx, r.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listChecks(ctx context.Context, q querier) ([]models.CheckRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+checkColumns+` FROM service_checks`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var checks []models.CheckRecord
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return checks, nil
}

// UpdateCheck atomically reads the record of a pair, applies fn and upserts the result.
// A missing row is presented to fn as an unknown record.
func (r *Repository) UpdateCheck(ctx context.Context, teamID, serviceID string, fn CheckUpdateFunc) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+checkColumns+`
			FROM service_checks WHERE team_id = ? AND service_id = ?`, teamID, serviceID)

		prev, err := scanCheck(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			prev = models.CheckRecord{TeamID: teamID, ServiceID: serviceID, Status: models.StatusUnknown}
		case err != nil:
			return fmt.Errorf("read check %s/%s: %w", teamID, serviceID, err)
		}

		next, write, err := fn(prev)
		if err != nil {
			return err
		}
		if !write {
			return nil
		}

		var responseTime sql.NullInt64
		if next.ResponseTime != nil {
			responseTime = sql.NullInt64{Int64: *next.ResponseTime, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO service_checks (`+checkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id, service_id) DO UPDATE SET
			status = excluded.status,
			response_time = excluded.response_time,
			points = excluded.points,
			last_checked = excluded.last_checked,
			uptime_percentage = excluded.uptime_percentage,
			cycle_id = excluded.cycle_id,
			history = excluded.history,
			samples = excluded.samples;
		`, teamID, serviceID, string(next.Status), responseTime, next.Points, nullMillis(next.LastChecked),
			next.Uptime, next.CycleID, int64(next.History), next.Samples)
		if err != nil {
			return fmt.Errorf("write check %s/%s: %w", teamID, serviceID, err)
		}

		return nil
	})
}
