package usecase

import (
	"sync"
	"time"
)

// Phase names one stage of the pipeline state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseEvaluating Phase = "evaluating"
	PhaseGenerating Phase = "generating"
	PhaseDone       Phase = "done"
	PhaseError      Phase = "error"
)

// StatusSnapshot is the advisory view of the running (or last) job.
// It is rebuilt fresh at process start and lost on crash.
type StatusSnapshot struct {
	Running         bool
	StartedAt       time.Time
	ElapsedSecs     int
	Phase           Phase
	PhaseDetail     string
	Evaluated       int
	TotalToEvaluate int
	LastRunAt       time.Time
	LastRunResult   string
}

// statusTracker owns the single-flight guard and the mutable run
// state behind one mutex. Readers get copies; they never observe a
// half-written snapshot.
type statusTracker struct {
	mu    sync.Mutex
	state StatusSnapshot
}

func newStatusTracker() *statusTracker {
	return &statusTracker{state: StatusSnapshot{Phase: PhaseIdle}}
}

// tryAcquire atomically checks and sets the running flag. A false
// return means another run is in progress and the request is a no-op.
func (t *statusTracker) tryAcquire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Running {
		return false
	}
	t.state.Running = true
	t.state.StartedAt = now
	t.state.Evaluated = 0
	t.state.TotalToEvaluate = 0
	return true
}

func (t *statusTracker) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Running = false
}

func (t *statusTracker) setPhase(phase Phase, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = phase
	t.state.PhaseDetail = detail
}

func (t *statusTracker) beginEvaluation(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = PhaseEvaluating
	t.state.PhaseDetail = ""
	t.state.Evaluated = 0
	t.state.TotalToEvaluate = total
}

func (t *statusTracker) progress(done, total int, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Evaluated = done
	t.state.TotalToEvaluate = total
	t.state.PhaseDetail = detail
}

// finish records a terminal transition and its outcome summary.
func (t *statusTracker) finish(phase Phase, result string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = phase
	t.state.PhaseDetail = result
	t.state.LastRunAt = now
	t.state.LastRunResult = result
}

// Snapshot returns a consistent copy of the current state.
func (t *statusTracker) Snapshot() StatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	if s.Running && !s.StartedAt.IsZero() {
		s.ElapsedSecs = int(time.Since(s.StartedAt).Seconds())
	}
	return s
}
