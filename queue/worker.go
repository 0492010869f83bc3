// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/derivit/core"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultReapInterval = time.Minute

	// storeRetryAttempts and storeRetryBaseDelay cover transient store
	// errors around claim and status transitions.
	storeRetryAttempts  = 3
	storeRetryBaseDelay = 100 * time.Millisecond
)

// Handler processes a claimed task. Implementations return a human-readable
// result summary and the number of insights the task produced. A returned
// error triggers the task-level retry policy.
type Handler interface {
	Handle(ctx context.Context, task *core.Task) (summary string, insightsGenerated int, err error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *core.Task) (string, int, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, task *core.Task) (string, int, error) {
	return f(ctx, task)
}

// WorkerPool runs a fixed set of polling workers over a Queue. Each worker
// claims tasks under its own processor identity and hands them to the
// Handler; one shared ticker sweeps expired leases back into the queue.
type WorkerPool struct {
	queue        *Queue
	handler      Handler
	pool         *ants.Pool
	workers      int
	pollInterval time.Duration
	reapInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// WorkerOption configures a WorkerPool.
type WorkerOption func(*WorkerPool) error

// WithWorkers sets the number of concurrent workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) WorkerOption {
	return func(wp *WorkerPool) error {
		if n < 1 {
			n = 1
		}
		wp.workers = n
		return nil
	}
}

// WithPollInterval sets how often an idle worker re-polls the queue.
// Default is 2 seconds. Each poll is jittered to keep workers from
// synchronizing their claim scans.
func WithPollInterval(interval time.Duration) WorkerOption {
	return func(wp *WorkerPool) error {
		if interval > 0 {
			wp.pollInterval = interval
		}
		return nil
	}
}

// WithReapInterval sets how often the expired-lease sweep runs.
// Default is 1 minute.
func WithReapInterval(interval time.Duration) WorkerOption {
	return func(wp *WorkerPool) error {
		if interval > 0 {
			wp.reapInterval = interval
		}
		return nil
	}
}

// WithWorkerLogger sets a custom logger.
// Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(wp *WorkerPool) error {
		if logger == nil {
			logger = slog.Default()
		}
		wp.logger = logger
		return nil
	}
}

// NewWorkerPool creates a worker pool over the given queue and handler.
func NewWorkerPool(queue *Queue, handler Handler, opts ...WorkerOption) (*WorkerPool, error) {
	if queue == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}

	wp := &WorkerPool{
		queue:        queue,
		handler:      handler,
		workers:      workers,
		pollInterval: defaultPollInterval,
		reapInterval: defaultReapInterval,
		logger:       slog.Default().With("component", "workerpool"),
	}
	for _, opt := range opts {
		if err := opt(wp); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(wp.workers + 1) // +1 for the reaper
	if err != nil {
		return nil, err
	}
	wp.pool = pool
	return wp, nil
}

// Start launches the workers and the reaper. It returns immediately; call
// Stop to shut down.
func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return ErrWorkerPoolStopped
	}
	if wp.cancel != nil {
		return nil // already started
	}

	runCtx, cancel := context.WithCancel(ctx)
	wp.cancel = cancel
	wp.done = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		processorId := fmt.Sprintf("worker-%s", uuid.NewString())
		wg.Add(1)
		if err := wp.pool.Submit(func() {
			defer wg.Done()
			wp.runWorker(runCtx, processorId)
		}); err != nil {
			wg.Done()
			cancel()
			return err
		}
	}

	wg.Add(1)
	if err := wp.pool.Submit(func() {
		defer wg.Done()
		wp.runReaper(runCtx)
	}); err != nil {
		wg.Done()
		cancel()
		return err
	}

	done := wp.done
	go func() {
		wg.Wait()
		close(done)
	}()

	wp.logger.Info("worker pool started", "workers", wp.workers, "pollInterval", wp.pollInterval)
	return nil
}

// Stop cancels all workers, waits for in-flight tasks to finish, and
// releases the pool.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	cancel := wp.cancel
	done := wp.done
	wp.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	wp.pool.Release()
	wp.logger.Info("worker pool stopped")
}

// runWorker is a single worker's claim-and-handle loop.
func (wp *WorkerPool) runWorker(ctx context.Context, processorId string) {
	logger := wp.logger.With("processorId", processorId)
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return
		default:
		}

		var task *core.Task
		err := RetryWithBackoff(ctx, func() error {
			var claimErr error
			task, claimErr = wp.queue.ClaimNext(ctx, processorId)
			return claimErr
		}, storeRetryAttempts, storeRetryBaseDelay)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim failed", "error", err)
			wp.sleep(ctx)
			continue
		}

		if task == nil {
			wp.sleep(ctx)
			continue
		}

		wp.handleTask(ctx, logger, processorId, task)
	}
}

// handleTask runs the handler and records the outcome.
func (wp *WorkerPool) handleTask(ctx context.Context, logger *slog.Logger, processorId string, task *core.Task) {
	logger.Info("processing task", "id", task.Id, "type", task.Type, "attempt", task.RetryCount+1)

	summary, insights, err := wp.handler.Handle(ctx, task)
	if err != nil {
		logger.Warn("handler failed", "id", task.Id, "error", err)
		failErr := RetryWithBackoff(ctx, func() error {
			return wp.queue.MarkFailed(ctx, task.Id, processorId, err.Error())
		}, storeRetryAttempts, storeRetryBaseDelay)
		if failErr != nil {
			// The lease reaper will recover the task.
			logger.Error("failed to record task failure", "id", task.Id, "error", failErr)
		}
		return
	}

	completeErr := RetryWithBackoff(ctx, func() error {
		return wp.queue.MarkCompleted(ctx, task.Id, processorId, summary, insights)
	}, storeRetryAttempts, storeRetryBaseDelay)
	if completeErr != nil {
		logger.Error("failed to record task completion", "id", task.Id, "error", completeErr)
	}
}

// runReaper periodically returns expired-lease tasks to the queue.
func (wp *WorkerPool) runReaper(ctx context.Context) {
	ticker := time.NewTicker(wp.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped, err := wp.queue.ReapExpired(ctx)
			if err != nil {
				wp.logger.Error("lease reap failed", "error", err)
				continue
			}
			if reaped > 0 {
				wp.logger.Info("reaped expired leases", "count", reaped)
			}
		}
	}
}

// sleep waits one poll interval with up to 25% jitter, or until cancellation.
func (wp *WorkerPool) sleep(ctx context.Context) {
	jitter := time.Duration(rand.Int63n(int64(wp.pollInterval)/4 + 1))
	timer := time.NewTimer(wp.pollInterval + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
