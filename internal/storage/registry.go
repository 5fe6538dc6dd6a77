package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/woozymasta/bluescore/internal/models"
)

// UpsertTeam inserts a team or updates its name and address. Registration order is kept on update.
func (r *Repository) UpsertTeam(ctx context.Context, t models.Team) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO teams (id, name, address, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		address = excluded.address;
	`, t.ID, t.Name, t.Address, toMillis(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert team %s: %w", t.ID, err)
	}

	return nil
}

// UpsertService inserts a service definition or updates it in place.
func (r *Repository) UpsertService(ctx context.Context, s models.Service) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO services (id, name, protocol, port, point_value, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		protocol = excluded.protocol,
		port = excluded.port,
		point_value = excluded.point_value;
	`, s.ID, s.Name, s.Protocol, s.Port, s.PointValue, toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert service %s: %w", s.ID, err)
	}

	return nil
}

// ListTeams returns all teams in registration order.
func (r *Repository) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rowid, id, name, address, created_at
		FROM teams
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var teams []models.Team
	for rows.Next() {
		var (
			t       models.Team
			created int64
		)
		if err := rows.Scan(&t.Seq, &t.ID, &t.Name, &t.Address, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = fromMillis(created)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return teams, nil
}

// GetTeam retrieves a team by id.
func (r *Repository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	var (
		t       models.Team
		created int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT rowid, id, name, address, created_at FROM teams WHERE id = ?
	`, id).Scan(&t.Seq, &t.ID, &t.Name, &t.Address, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(created)

	return &t, nil
}

// ListServices returns all service definitions in registration order.
func (r *Repository) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rowid, id, name, protocol, port, point_value, created_at
		FROM services
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var services []models.Service
	for rows.Next() {
		var (
			s       models.Service
			created int64
		)
		if err := rows.Scan(&s.Seq, &s.ID, &s.Name, &s.Protocol, &s.Port, &s.PointValue, &created); err != nil {
			return nil, err
		}
		s.CreatedAt = fromMillis(created)
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return services, nil
}

// InitChecks creates an unknown check record for every (team, service) pair
// and a zero score row for every team. Existing rows are left untouched.
func (r *Repository) InitChecks(ctx context.Context) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO service_checks (team_id, service_id)
		SELECT t.id, s.id FROM teams t CROSS JOIN services s WHERE true
		ON CONFLICT(team_id, service_id) DO NOTHING;
		`); err != nil {
			return fmt.Errorf("init checks: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO team_scores (team_id, updated_at)
		SELECT id, ? FROM teams WHERE true
		ON CONFLICT(team_id) DO NOTHING;
		`, toMillis(r.now())); err != nil {
			return fmt.Errorf("init scores: %w", err)
		}

		return nil
	})
}

// GetCompetition returns the competition settings, or nil when none are stored.
func (r *Repository) GetCompetition(ctx context.Context) (*models.Competition, error) {
	var (
		c             models.Competition
		start         int64
		durationHours int64
		roundSeconds  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, start_time, duration_hours, round_seconds FROM competition_settings WHERE id = 1
	`).Scan(&c.Name, &start, &durationHours, &roundSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.StartTime = fromMillis(start)
	c.Duration = time.Duration(durationHours) * time.Hour
	c.RoundDuration = time.Duration(roundSeconds) * time.Second

	return &c, nil
}

// SetCompetition stores the competition settings.
func (r *Repository) SetCompetition(ctx context.Context, c models.Competition) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO competition_settings (id, name, start_time, duration_hours, round_seconds)
	VALUES (1, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		start_time = excluded.start_time,
		duration_hours = excluded.duration_hours,
		round_seconds = excluded.round_seconds;
	`, c.Name, toMillis(c.StartTime), int64(c.Duration/time.Hour), int64(c.RoundDuration/time.Second))

	return err
}
