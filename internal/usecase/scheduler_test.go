package usecase

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

type fakeDriver struct {
	mu          sync.Mutex
	started     bool
	stopped     bool
	reschedules []time.Duration
	job         func(time.Time)
}

func (d *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	d.job = job
	return nil
}

func (d *fakeDriver) Reschedule(interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reschedules = append(d.reschedules, interval)
}

func (d *fakeDriver) Stop(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func newIdlePipeline(store *fakeStore) *Pipeline {
	return newTestPipeline(store, &fakeSource{}, &scriptedOracle{}, &fakeGenerator{})
}

func waitForOutcome(t *testing.T, pipeline *Pipeline) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s := pipeline.Status()
		if !s.Running && s.Phase != PhaseIdle {
			return
		}
		select {
		case <-deadline:
			t.Fatal("pipeline never reached a terminal phase")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestServiceStartupCatchUp(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	// Last run far in the past: the configured interval has elapsed.
	store.settings[settingLastRunTS] = "0"

	pipeline := newIdlePipeline(store)
	driver := &fakeDriver{}
	service := NewService(driver, pipeline, store, 2.0, 10*24*time.Hour, nil)

	if err := service.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer service.Stop(context.Background())

	waitForOutcome(t, pipeline)
	// The fake source yields nothing, so the catch-up run ends "done".
	if got := pipeline.Status().Phase; got != PhaseDone {
		t.Fatalf("expected catch-up run to finish, phase %q", got)
	}
}

func TestServiceSkipsFreshStartup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.settings[settingLastRunTS] = strconv.FormatInt(time.Now().Unix(), 10)

	pipeline := newIdlePipeline(store)
	driver := &fakeDriver{}
	service := NewService(driver, pipeline, store, 2.0, 10*24*time.Hour, nil)

	if err := service.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer service.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)
	if got := pipeline.Status().Phase; got != PhaseIdle {
		t.Fatalf("no startup run expected after a recent run, phase %q", got)
	}
}

func TestServiceSetIntervalReschedulesLive(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pipeline := newIdlePipeline(store)
	driver := &fakeDriver{}
	service := NewService(driver, pipeline, store, 2.0, 10*24*time.Hour, nil)

	if err := service.SetInterval(context.Background(), 0.5); err != nil {
		t.Fatalf("set interval: %v", err)
	}

	if got := service.Interval(context.Background()); got != 0.5 {
		t.Fatalf("interval not persisted, got %v", got)
	}

	driver.mu.Lock()
	defer driver.mu.Unlock()
	if len(driver.reschedules) == 0 || driver.reschedules[len(driver.reschedules)-1] != 30*time.Minute {
		t.Fatalf("driver not rescheduled to 30m: %v", driver.reschedules)
	}
}

func TestServiceSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	service := NewService(&fakeDriver{}, newIdlePipeline(store), store, 2.0, 10*24*time.Hour, nil)
	ctx := context.Background()

	if err := service.SetMinScore(ctx, 7.24); err != nil {
		t.Fatalf("set min score: %v", err)
	}
	if got := service.MinScore(ctx); got != 7.2 {
		t.Fatalf("min score should round to one decimal, got %v", got)
	}

	if err := service.SetMaxArticles(ctx, 3); err != nil {
		t.Fatalf("set max articles: %v", err)
	}
	if got := service.MaxArticles(ctx); got != 3 {
		t.Fatalf("max articles not persisted, got %v", got)
	}
}

func TestServiceManualTrigger(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pipeline := newIdlePipeline(store)
	service := NewService(&fakeDriver{}, pipeline, store, 2.0, 10*24*time.Hour, nil)

	service.TriggerManual(context.Background())
	waitForOutcome(t, pipeline)

	if got := pipeline.Status().Phase; got != PhaseDone {
		t.Fatalf("manual trigger should complete a run, phase %q", got)
	}
}
