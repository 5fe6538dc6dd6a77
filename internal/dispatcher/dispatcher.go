// Package dispatcher fans probes out over every (team, service) pair on a bounded worker pool
// and runs those cycles on a schedule without ever letting two of them overlap.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/metrics"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/recorder"
)

// Defaults for the worker pool and the cycle deadline.
const (
	DefaultWorkers  = 20
	DefaultDeadline = 25 * time.Second
)

var (
	// ErrCycleInProgress is returned when a cycle is requested while another one runs.
	ErrCycleInProgress = errors.New("dispatcher: check cycle already in progress")
	// ErrRegistryUnavailable is returned when teams or services cannot be read at cycle start.
	ErrRegistryUnavailable = errors.New("dispatcher: registry unavailable")
)

// Registry provides the teams and services to probe.
type Registry interface {
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListServices(ctx context.Context) ([]models.Service, error)
}

// Prober checks one target and always returns an outcome.
type Prober interface {
	Probe(ctx context.Context, target models.Target) models.Outcome
}

// Recorder persists one outcome.
type Recorder interface {
	Record(ctx context.Context, svc models.Service, teamID string, cycleID int64, out models.Outcome) error
}

// CycleLog allocates cycle ids and stores cycle summaries.
type CycleLog interface {
	StartCycle(ctx context.Context, startedAt time.Time) (int64, error)
	FinishCycle(ctx context.Context, s models.CycleSummary) error
}

// Scorer recomputes totals and ranks after a cycle.
type Scorer interface {
	Recompute(ctx context.Context) ([]models.TeamScore, error)
}

// Deps groups the collaborators of a Dispatcher.
type Deps struct {
	Registry Registry
	Prober   Prober
	Recorder Recorder
	Cycles   CycleLog
	Scorer   Scorer
}

// Dispatcher runs check cycles.
type Dispatcher struct {
	deps     Deps
	now      func() time.Time
	workers  int
	deadline time.Duration

	mu sync.Mutex
	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers bounds the number of concurrent probes.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDeadline sets the overall cycle deadline.
func WithDeadline(dur time.Duration) Option {
	return func(d *Dispatcher) {
		if dur > 0 {
			d.deadline = dur
		}
	}
}

// New creates a Dispatcher.
func New(deps Deps, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		deps:     deps,
		workers:  DefaultWorkers,
		deadline: DefaultDeadline,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

type job struct {
	team    models.Team
	service models.Service
}

type result struct {
	status    models.Status
	skipped   bool
	recordErr bool
}

// RunCycle probes every (team, service) pair once, records the outcomes and re-ranks the teams.
// A probe or record failure never aborts the cycle. Targets not reached before the deadline are
// counted as skipped and keep their previous state.
func (d *Dispatcher) RunCycle(ctx context.Context) (*models.CycleSummary, error) {
	if !d.mu.TryLock() {
		metrics.RecordCycle("busy", 0, 0, 0)
		return nil, ErrCycleInProgress
	}
	defer d.mu.Unlock()

	started := d.now()

	teams, err := d.deps.Registry.ListTeams(ctx)
	if err != nil {
		metrics.RecordCycle("aborted", 0, 0, 0)
		return nil, fmt.Errorf("%w: list teams: %v", ErrRegistryUnavailable, err)
	}
	services, err := d.deps.Registry.ListServices(ctx)
	if err != nil {
		metrics.RecordCycle("aborted", 0, 0, 0)
		return nil, fmt.Errorf("%w: list services: %v", ErrRegistryUnavailable, err)
	}

	cycleID, err := d.deps.Cycles.StartCycle(ctx, started)
	if err != nil {
		metrics.RecordCycle("aborted", 0, 0, 0)
		return nil, fmt.Errorf("start cycle: %w", err)
	}

	jobs := make([]job, 0, len(teams)*len(services))
	for _, t := range teams {
		for _, s := range services {
			jobs = append(jobs, job{team: t, service: s})
		}
	}

	logCtx := log.With().Int64("cycle", cycleID).Logger()
	logCtx.Debug().Int("targets", len(jobs)).Int("workers", min(d.workers, len(jobs))).Msg("Check cycle started")

	cycleCtx, cancel := context.WithTimeout(ctx, d.deadline)
	results := d.runWorkerPool(cycleCtx, cycleID, jobs)
	cancel()

	summary := models.CycleSummary{
		ID:              cycleID,
		StartedAt:       started,
		PerStatusCounts: map[models.Status]int{models.StatusUp: 0, models.StatusDown: 0},
	}
	for _, r := range results {
		if r.skipped {
			summary.Skipped++
			continue
		}
		summary.ChecksCompleted++
		summary.PerStatusCounts[r.status]++
		if r.recordErr {
			summary.RecordErrors++
		}
	}

	if _, err := d.deps.Scorer.Recompute(ctx); err != nil {
		logCtx.Error().Err(err).Msg("Failed to recompute scores after cycle")
		summary.Error = err.Error()
	}

	summary.FinishedAt = d.now()
	if err := d.deps.Cycles.FinishCycle(ctx, summary); err != nil {
		logCtx.Error().Err(err).Msg("Failed to store cycle summary")
	}

	duration := summary.FinishedAt.Sub(started)
	metrics.RecordCycle("completed", duration, summary.Skipped, summary.RecordErrors)

	event := logCtx.Info()
	if summary.Skipped > 0 || summary.RecordErrors > 0 {
		event = logCtx.Warn()
	}
	event.
		Int("completed", summary.ChecksCompleted).
		Int("up", summary.PerStatusCounts[models.StatusUp]).
		Int("down", summary.PerStatusCounts[models.StatusDown]).
		Int("skipped", summary.Skipped).
		Int("record_errors", summary.RecordErrors).
		Dur("duration", duration).
		Msg("Check cycle finished")

	return &summary, nil
}

func (d *Dispatcher) runWorkerPool(ctx context.Context, cycleID int64, jobs []job) []result {
	if len(jobs) == 0 {
		return nil
	}

	workers := min(d.workers, len(jobs))
	queue := make(chan job, len(jobs))
	out := make(chan result, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				out <- d.processTarget(ctx, cycleID, j)
			}
		}()
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	wg.Wait()
	close(out)

	results := make([]result, 0, len(jobs))
	for r := range out {
		results = append(results, r)
	}

	return results
}

func (d *Dispatcher) processTarget(ctx context.Context, cycleID int64, j job) result {
	if ctx.Err() != nil {
		return result{skipped: true}
	}

	logCtx := log.With().
		Int64("cycle", cycleID).
		Str("team", j.team.ID).
		Str("service", j.service.Name).
		Str("address", j.team.Address).
		Int("port", j.service.Port).
		Logger()

	out := d.deps.Prober.Probe(ctx, models.Target{
		Address:  j.team.Address,
		Port:     j.service.Port,
		Protocol: j.service.Protocol,
	})

	if ctx.Err() != nil {
		logCtx.Debug().Msg("Probe finished after cycle deadline, outcome discarded")
		return result{skipped: true}
	}

	if out.Status == models.StatusDown {
		logCtx.Debug().Str("reason", out.Reason).Msg("Service down")
	}

	err := d.deps.Recorder.Record(ctx, j.service, j.team.ID, cycleID, out)
	switch {
	case errors.Is(err, recorder.ErrAbandoned):
		return result{skipped: true}
	case err != nil:
		return result{status: out.Status, recordErr: true}
	}

	return result{status: out.Status}
}
