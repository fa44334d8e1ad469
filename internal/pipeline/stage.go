package pipeline

import (
	"sync"
	"time"

	apperrors "crop-assist/internal/common/errors"
)

type StageName string

const (
	StageCapture   StageName = "capture"
	StageRecognize StageName = "recognize"
	StageClassify  StageName = "classify"
	StageDecide    StageName = "decide"
	StageExplain   StageName = "explain"
)

// StageOrder is the fixed execution order of a run.
var StageOrder = []StageName{StageCapture, StageRecognize, StageClassify, StageDecide, StageExplain}

type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusProcessing StageStatus = "processing"
	StatusCompleted  StageStatus = "completed"
	StatusError      StageStatus = "error"
)

type Stage struct {
	Name       StageName                `json:"name"`
	Status     StageStatus              `json:"status"`
	Skipped    bool                     `json:"skipped,omitempty"`
	StartedAt  *time.Time               `json:"startedAt,omitempty"`
	DurationMS float64                  `json:"durationMs"`
	Error      *apperrors.StandardError `json:"error,omitempty"`
}

// stageTracker owns the stage list of one run. Stages advance strictly in
// order; a stage can only start once every earlier stage has finished.
type stageTracker struct {
	mu     sync.Mutex
	stages []Stage
	now    func() time.Time
}

func newStageTracker(now func() time.Time) *stageTracker {
	stages := make([]Stage, len(StageOrder))
	for i, name := range StageOrder {
		stages[i] = Stage{Name: name, Status: StatusPending}
	}
	return &stageTracker{stages: stages, now: now}
}

func (t *stageTracker) index(name StageName) int {
	for i, s := range StageOrder {
		if s == name {
			return i
		}
	}
	return -1
}

// begin moves the stage to processing. It reports false when a predecessor
// has not finished, which means the run already halted.
func (t *stageTracker) begin(name StageName) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.index(name)
	if i < 0 || t.stages[i].Status != StatusPending {
		return time.Time{}, false
	}
	for _, prev := range t.stages[:i] {
		if prev.Status != StatusCompleted {
			return time.Time{}, false
		}
	}

	started := t.now()
	t.stages[i].Status = StatusProcessing
	t.stages[i].StartedAt = &started
	return started, true
}

func (t *stageTracker) complete(name StageName, started time.Time) {
	t.finish(name, started, nil)
}

func (t *stageTracker) fail(name StageName, started time.Time, err *apperrors.StandardError) {
	t.finish(name, started, err)
}

// skip marks a stage completed without running it.
func (t *stageTracker) skip(name StageName) {
	started, ok := t.begin(name)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(name)
	t.stages[i].Status = StatusCompleted
	t.stages[i].Skipped = true
	t.stages[i].DurationMS = 0
	t.stages[i].StartedAt = &started
}

func (t *stageTracker) finish(name StageName, started time.Time, err *apperrors.StandardError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.index(name)
	if i < 0 || t.stages[i].Status != StatusProcessing {
		return
	}
	t.stages[i].DurationMS = float64(t.now().Sub(started).Microseconds()) / 1000
	if err != nil {
		t.stages[i].Status = StatusError
		t.stages[i].Error = err
		return
	}
	t.stages[i].Status = StatusCompleted
}

func (t *stageTracker) snapshot() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}
