package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/monitoring"
)

// ErrRunInProgress is returned by Start while another run is active.
var ErrRunInProgress = errors.New("simulation already in progress")

// RunStatus represents the current state of a simulation run.
type RunStatus string

const (
	RunStatusIdle     RunStatus = "idle"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusError    RunStatus = "error"
)

// RunState is a snapshot of the runner: status, progress and the run
// identity.
type RunState struct {
	Status         RunStatus  `json:"status"`
	RunID          string     `json:"run_id,omitempty"`
	ScenarioName   string     `json:"scenario_name,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalPoses     int        `json:"total_poses"`
	CompletedPoses int        `json:"completed_poses"`
	PointCount     int        `json:"point_count"`
	Error          string     `json:"error,omitempty"`
}

// Store persists completed runs. Implementations are called from the
// runner's background goroutine.
type Store interface {
	SaveRun(ctx context.Context, runID string, sc *config.Scenario, res *Result) error
}

// Runner guards one simulation at a time behind a mutex. Scene
// construction and evaluation happen on a background goroutine; the
// completed run is handed to the store before the state flips to
// complete.
type Runner struct {
	store  Store // nil disables persistence
	mu     sync.RWMutex
	state  RunState
	cancel context.CancelFunc
}

// NewRunner creates an idle runner. store may be nil.
func NewRunner(store Store) *Runner {
	return &Runner{
		store: store,
		state: RunState{Status: RunStatusIdle},
	}
}

// State returns a copy of the current run state.
func (r *Runner) State() RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Start validates the scenario and begins a run in the background,
// returning its assigned run ID. A second Start while one is in
// progress fails with ErrRunInProgress.
func (r *Runner) Start(ctx context.Context, sc *config.Scenario) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", fmt.Errorf("invalid scenario: %w", err)
	}

	r.mu.Lock()
	if r.state.Status == RunStatusRunning {
		r.mu.Unlock()
		return "", ErrRunInProgress
	}

	runID := uuid.New().String()
	now := time.Now()
	r.state = RunState{
		Status:       RunStatusRunning,
		RunID:        runID,
		ScenarioName: sc.GetName(),
		StartedAt:    &now,
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		r.run(runCtx, runID, sc)
	}()
	return runID, nil
}

// Cancel stops a running simulation. Idle runners ignore it.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// run executes the simulation in a background goroutine.
func (r *Runner) run(ctx context.Context, runID string, sc *config.Scenario) {
	scene, err := BuildScene(sc)
	if err != nil {
		r.fail(fmt.Errorf("building scene: %w", err))
		return
	}

	r.mu.Lock()
	r.state.TotalPoses = len(scene.Poses)
	r.mu.Unlock()

	res, err := Run(ctx, scene, func(done, total int) {
		r.mu.Lock()
		r.state.CompletedPoses = done
		r.mu.Unlock()
	})
	if err != nil {
		r.fail(err)
		return
	}

	if r.store != nil {
		if err := r.store.SaveRun(ctx, runID, sc, res); err != nil {
			r.fail(fmt.Errorf("persisting run: %w", err))
			return
		}
	}

	r.mu.Lock()
	r.state.Status = RunStatusComplete
	r.state.PointCount = len(res.Points)
	now := time.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	monitoring.Logf("simulate: run %s complete: %d poses, %d points in %s",
		runID, res.PoseCount, len(res.Points), res.Duration.Round(time.Millisecond))
}

func (r *Runner) fail(err error) {
	r.mu.Lock()
	r.state.Status = RunStatusError
	r.state.Error = err.Error()
	now := time.Now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	monitoring.Logf("simulate: run failed: %v", err)
}
