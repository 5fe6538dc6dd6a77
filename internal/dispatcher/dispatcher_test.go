package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/recorder"
)

type fakeRegistry struct {
	err      error
	teams    []models.Team
	services []models.Service
}

func (f *fakeRegistry) ListTeams(context.Context) ([]models.Team, error) {
	return f.teams, f.err
}

func (f *fakeRegistry) ListServices(context.Context) ([]models.Service, error) {
	return f.services, f.err
}

type fakeProber struct {
	delay    time.Duration
	down     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeProber) Probe(ctx context.Context, target models.Target) models.Outcome {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.Outcome{Status: models.StatusDown, Reason: ctx.Err().Error()}
		}
	}

	status := models.StatusUp
	if f.down[target.Address] {
		status = models.StatusDown
	}

	return models.Outcome{Status: status, CheckedAt: time.Now()}
}

type fakeRecorder struct {
	mu      sync.Mutex
	failFor string
	records map[string]models.Outcome
}

func (f *fakeRecorder) Record(ctx context.Context, svc models.Service, teamID string, _ int64, out models.Outcome) error {
	if ctx.Err() != nil {
		return recorder.ErrAbandoned
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if teamID == f.failFor {
		return errors.New("disk full")
	}
	f.records[teamID+"/"+svc.ID] = out

	return nil
}

type fakeCycles struct {
	mu       sync.Mutex
	next     int64
	finished []models.CycleSummary
}

func (f *fakeCycles) StartCycle(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next, nil
}

func (f *fakeCycles) FinishCycle(_ context.Context, s models.CycleSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, s)
	return nil
}

type fakeScorer struct {
	calls atomic.Int32
}

func (f *fakeScorer) Recompute(context.Context) ([]models.TeamScore, error) {
	f.calls.Add(1)
	return nil, nil
}

type fixture struct {
	registry *fakeRegistry
	prober   *fakeProber
	recorder *fakeRecorder
	cycles   *fakeCycles
	scorer   *fakeScorer
}

func newFixture(teams int) *fixture {
	f := &fixture{
		registry: &fakeRegistry{
			services: []models.Service{
				{ID: "ssh", Name: "SSH", Protocol: "tcp", Port: 22, PointValue: 100},
				{ID: "web", Name: "HTTP", Protocol: "http", Port: 80, PointValue: 100},
				{ID: "dns", Name: "DNS", Protocol: "tcp", Port: 53, PointValue: 100},
			},
		},
		prober:   &fakeProber{down: map[string]bool{}},
		recorder: &fakeRecorder{records: map[string]models.Outcome{}},
		cycles:   &fakeCycles{},
		scorer:   &fakeScorer{},
	}
	for i := 0; i < teams; i++ {
		id := string(rune('a' + i))
		f.registry.teams = append(f.registry.teams, models.Team{ID: id, Name: "Team " + id, Address: "10.0.0." + id})
	}

	return f
}

func (f *fixture) dispatcher(opts ...Option) *Dispatcher {
	return New(Deps{
		Registry: f.registry,
		Prober:   f.prober,
		Recorder: f.recorder,
		Cycles:   f.cycles,
		Scorer:   f.scorer,
	}, opts...)
}

func TestRunCycle(t *testing.T) {
	Convey("Given four teams and three services", t, func() {
		f := newFixture(4)
		ctx := context.Background()

		Convey("every pair is probed and recorded exactly once", func() {
			f.prober.down["10.0.0.b"] = true
			summary, err := f.dispatcher().RunCycle(ctx)

			So(err, ShouldBeNil)
			So(summary.ChecksCompleted, ShouldEqual, 12)
			So(summary.PerStatusCounts[models.StatusUp], ShouldEqual, 9)
			So(summary.PerStatusCounts[models.StatusDown], ShouldEqual, 3)
			So(summary.Skipped, ShouldEqual, 0)
			So(f.prober.calls.Load(), ShouldEqual, 12)
			So(f.recorder.records, ShouldHaveLength, 12)
			So(f.scorer.calls.Load(), ShouldEqual, 1)
			So(f.cycles.finished, ShouldHaveLength, 1)
			So(f.cycles.finished[0].ID, ShouldEqual, summary.ID)
		})

		Convey("concurrency never exceeds the worker bound", func() {
			f.prober.delay = 20 * time.Millisecond
			_, err := f.dispatcher(WithWorkers(3)).RunCycle(ctx)
			So(err, ShouldBeNil)
			So(f.prober.peak.Load(), ShouldBeLessThanOrEqualTo, 3)
			So(f.prober.peak.Load(), ShouldBeGreaterThan, 1)
		})

		Convey("a record failure is counted and the cycle continues", func() {
			f.recorder.failFor = "a"
			summary, err := f.dispatcher().RunCycle(ctx)
			So(err, ShouldBeNil)
			So(summary.ChecksCompleted, ShouldEqual, 12)
			So(summary.RecordErrors, ShouldEqual, 3)
			So(f.recorder.records, ShouldHaveLength, 9)
		})

		Convey("an unreadable registry aborts before any write", func() {
			f.registry.err = errors.New("no such table: teams")
			summary, err := f.dispatcher().RunCycle(ctx)
			So(summary, ShouldBeNil)
			So(errors.Is(err, ErrRegistryUnavailable), ShouldBeTrue)
			So(f.prober.calls.Load(), ShouldEqual, 0)
			So(f.recorder.records, ShouldBeEmpty)
			So(f.cycles.next, ShouldEqual, 0)
			So(f.scorer.calls.Load(), ShouldEqual, 0)
		})

		Convey("the deadline skips unreached targets and discards late outcomes", func() {
			f.prober.delay = 200 * time.Millisecond
			start := time.Now()
			summary, err := f.dispatcher(WithWorkers(2), WithDeadline(50*time.Millisecond)).RunCycle(ctx)

			So(err, ShouldBeNil)
			So(time.Since(start), ShouldBeLessThan, time.Second)
			So(summary.Skipped, ShouldEqual, 12)
			So(summary.ChecksCompleted, ShouldEqual, 0)
			So(f.recorder.records, ShouldBeEmpty)
			So(f.scorer.calls.Load(), ShouldEqual, 1)
		})

		Convey("an empty registry yields an empty cycle", func() {
			f.registry.teams = nil
			summary, err := f.dispatcher().RunCycle(ctx)
			So(err, ShouldBeNil)
			So(summary.ChecksCompleted, ShouldEqual, 0)
		})
	})
}

func TestNoOverlap(t *testing.T) {
	Convey("A second cycle while one runs is refused", t, func() {
		f := newFixture(2)
		f.prober.delay = 100 * time.Millisecond
		d := f.dispatcher(WithWorkers(1))
		ctx := context.Background()

		done := make(chan error, 1)
		go func() {
			_, err := d.RunCycle(ctx)
			done <- err
		}()

		// wait until the first cycle is probing
		for f.prober.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}

		_, err := d.RunCycle(ctx)
		So(errors.Is(err, ErrCycleInProgress), ShouldBeTrue)
		So(<-done, ShouldBeNil)

		_, err = d.RunCycle(ctx)
		So(err, ShouldBeNil)
	})
}

func TestScheduler(t *testing.T) {
	Convey("The scheduler runs cycles until cancelled", t, func() {
		f := newFixture(1)
		d := f.dispatcher()

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
		defer cancel()

		So(d.Run(ctx, 30*time.Millisecond), ShouldBeNil)
		So(f.scorer.calls.Load(), ShouldBeGreaterThanOrEqualTo, 2)

		f.cycles.mu.Lock()
		defer f.cycles.mu.Unlock()
		for i := 1; i < len(f.cycles.finished); i++ {
			So(f.cycles.finished[i].ID, ShouldBeGreaterThan, f.cycles.finished[i-1].ID)
		}
	})

	Convey("A non-positive interval is rejected", t, func() {
		So(newFixture(1).dispatcher().Run(context.Background(), 0), ShouldNotBeNil)
	})
}
