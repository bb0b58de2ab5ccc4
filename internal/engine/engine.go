package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/runner"
	"github.com/comsa33/data-collector/internal/store"
)

// DefaultTimeout bounds a single query execution when no other deadline
// applies.
const DefaultTimeout = 30 * time.Second

// Engine orchestrates asynchronous query execution. Jobs run independently
// on their own goroutines; no ordering is guaranteed across jobs, and a
// submitted job cannot be cancelled — callers that stop polling simply
// orphan it.
type Engine struct {
	store    store.Store
	registry *runner.Registry
	logger   *slog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, reg *runner.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		store:    s,
		registry: reg,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
}

// Submit persists the job with status "pending" and launches asynchronous
// execution in a goroutine. The goroutine operates on a copy of the job to
// avoid data races with the caller.
func (e *Engine) Submit(ctx context.Context, j *model.Job) error {
	if err := e.store.CreateJob(ctx, j); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	jCopy := *j
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.execute(&jCopy)
	}()

	return nil
}

// Wait blocks until all in-flight job goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// execute runs the job lifecycle: pending→started→finished/failed.
func (e *Engine) execute(j *model.Job) {
	if err := e.store.UpdateJobStatus(context.Background(), j.ID, model.JobStarted); err != nil {
		e.logger.Error("failed to transition job to started", "job_id", j.ID, "error", err)
		e.finishFailed(j.ID, fmt.Sprintf("failed to start: %v", err), model.ErrorKindInternal)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	ds, err := e.store.GetDataSource(ctx, j.DataSourceID)
	if err != nil {
		e.finishFailed(j.ID, fmt.Sprintf("resolve data source: %v", err), model.ErrorKindInternal)
		return
	}

	factory, err := e.registry.Lookup(ds.Type)
	if err != nil {
		e.finishFailed(j.ID, fmt.Sprintf("resolve runner: %v", err), model.ErrorKindInternal)
		return
	}

	// Each execution gets its own runner instance, holding its own backend
	// client connection for the duration of the call.
	r, err := factory.New(ds.Options)
	if err != nil {
		e.finishFailed(j.ID, fmt.Sprintf("build runner: %v", err), model.ErrorKindInternal)
		return
	}

	result, err := r.RunQuery(ctx, j.Query)
	if err != nil {
		kind := model.ErrorKindInternal
		if errors.Is(err, runner.ErrSyntax) {
			kind = model.ErrorKindSyntax
		}
		e.finishFailed(j.ID, err.Error(), kind)
		return
	}

	resultID := model.NewID()
	if err := e.store.SaveQueryResult(ctx, resultID, result); err != nil {
		e.logger.Error("failed to persist query result", "job_id", j.ID, "error", err)
		e.finishFailed(j.ID, fmt.Sprintf("persist result: %v", err), model.ErrorKindInternal)
		return
	}

	now := time.Now().UTC()
	finished := &model.Job{
		ID:         j.ID,
		Status:     model.JobFinished,
		ResultID:   &resultID,
		FinishedAt: &now,
	}
	if err := e.store.UpdateJob(context.Background(), finished); err != nil {
		e.logger.Error("failed to update finished job", "job_id", j.ID, "error", err)
	}
}

// finishFailed marks a job as failed with the given error message and kind.
func (e *Engine) finishFailed(id, errMsg, kind string) {
	now := time.Now().UTC()
	j := &model.Job{
		ID:         id,
		Status:     model.JobFailed,
		Error:      errMsg,
		ErrorKind:  kind,
		FinishedAt: &now,
	}

	if err := e.store.UpdateJob(context.Background(), j); err != nil {
		e.logger.Error("failed to update failed job", "job_id", id, "error", err)
	}
}
