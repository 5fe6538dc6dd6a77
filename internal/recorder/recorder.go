// Package recorder persists probe outcomes as check records, deriving points and rolling uptime.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/storage"
)

// ErrAbandoned is returned when the cycle context ended before the outcome could be stored.
var ErrAbandoned = errors.New("recorder: outcome abandoned, cycle context done")

// Store is the persistence the recorder needs.
type Store interface {
	UpdateCheck(ctx context.Context, teamID, serviceID string, fn storage.CheckUpdateFunc) error
}

// Recorder writes outcomes through an atomic read-modify-write per (team, service).
type Recorder struct {
	store      Store
	window     int
	maxRetries uint64
	backoff    func() backoff.BackOff
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithWindow sets the uptime window in cycles.
func WithWindow(cycles int) Option {
	return func(r *Recorder) {
		if cycles > 0 && cycles <= MaxWindow {
			r.window = cycles
		}
	}
}

// WithRetries sets how many times a failed write is retried.
func WithRetries(n uint64) Option {
	return func(r *Recorder) {
		r.maxRetries = n
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(r *Recorder) {
		r.backoff = fn
	}
}

// New creates a Recorder.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:      store,
		window:     DefaultWindow,
		maxRetries: 2,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record stores out for the pair (teamID, svc) as written by cycleID.
// Persistence failures are retried, logged and returned; they never panic or exit.
func (r *Recorder) Record(ctx context.Context, svc models.Service, teamID string, cycleID int64, out models.Outcome) error {
	if ctx.Err() != nil {
		return ErrAbandoned
	}

	logCtx := log.With().
		Str("team", teamID).
		Str("service", svc.ID).
		Int64("cycle", cycleID).
		Logger()

	update := func(prev models.CheckRecord) (models.CheckRecord, bool, error) {
		next, ok := Apply(prev, svc, cycleID, out, r.window)
		if !ok {
			logCtx.Debug().Int64("stored_cycle", prev.CycleID).Msg("Outcome older than stored record, dropped")
		}
		next.TeamID = teamID
		return next, ok, nil
	}

	op := func() error {
		err := r.store.UpdateCheck(ctx, teamID, svc.ID, update)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ErrAbandoned)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.backoff(), r.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, ErrAbandoned) || ctx.Err() != nil {
			logCtx.Debug().Msg("Cycle ended before outcome was stored")
			return ErrAbandoned
		}

		logCtx.Error().Err(err).Str("status", string(out.Status)).Msg("Failed to record check outcome")
		return fmt.Errorf("record %s/%s: %w", teamID, svc.ID, err)
	}

	logCtx.Trace().
		Str("status", string(out.Status)).
		Dur("response_time", out.ResponseTime).
		Msg("Check recorded")

	return nil
}
