// Package job runs submitted work in the background and tracks its status.
package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/types"
	"github.com/mattxander12/forex-trader/pkg/errors"
)

// Func is the body of a job. The context is cancelled on Shutdown.
type Func func(ctx context.Context, jobID string) error

// Recorder observes job lifecycles.
type Recorder interface {
	JobSubmitted(kind types.JobKind)
	JobFinished(kind types.JobKind, status types.JobStatus, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) JobSubmitted(types.JobKind)                          {}
func (nopRecorder) JobFinished(types.JobKind, types.JobStatus, float64) {}

// Dispatcher runs each job on its own goroutine.
type Dispatcher struct {
	log      *logger.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*types.Job
}

func NewDispatcher(recorder Recorder, log *logger.Logger) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		log:      log,
		recorder: recorder,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*types.Job),
	}
}

// Submit registers a job and starts it. The returned id is valid immediately.
func (d *Dispatcher) Submit(kind types.JobKind, fn Func) string {
	id := d.newID()

	d.mu.Lock()
	d.jobs[id] = &types.Job{
		ID:        id,
		Kind:      kind,
		Status:    types.JobStatusPending,
		CreatedAt: d.now(),
	}
	d.mu.Unlock()

	d.recorder.JobSubmitted(kind)
	d.log.Info("Job submitted", zap.String("job_id", id), zap.String("kind", string(kind)))

	d.wg.Add(1)

	go d.run(id, kind, fn)

	return id
}

// Get returns a copy of the job's current state.
func (d *Dispatcher) Get(id string) (types.Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	job, ok := d.jobs[id]
	if !ok {
		return types.Job{}, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}

	return *job, nil
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown cancels running jobs and waits for them until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeRunFailed, "jobs did not stop before shutdown deadline", ctx.Err())
	}
}

func (d *Dispatcher) run(id string, kind types.JobKind, fn Func) {
	defer d.wg.Done()

	started := d.now()
	d.setStatus(id, types.JobStatusRunning, nil)

	err := d.call(id, fn)

	status := types.JobStatusSucceeded
	if err != nil {
		status = types.JobStatusFailed
		d.log.Error("Job failed", zap.String("job_id", id), zap.Error(err))
	} else {
		d.log.Info("Job finished", zap.String("job_id", id))
	}

	d.setStatus(id, status, err)
	d.recorder.JobFinished(kind, status, d.now().Sub(started).Seconds())
}

func (d *Dispatcher) call(id string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeRunFailed, fmt.Sprintf("job panicked: %v", r))
		}
	}()

	return fn(d.ctx, id)
}

func (d *Dispatcher) setStatus(id string, status types.JobStatus, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	job, ok := d.jobs[id]
	if !ok {
		return
	}

	job.Status = status

	if err != nil {
		job.Error = err.Error()
	}

	if status == types.JobStatusSucceeded || status == types.JobStatusFailed {
		finished := d.now()
		job.FinishedAt = &finished
	}
}
