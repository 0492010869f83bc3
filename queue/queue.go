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
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

const (
	// DefaultPriority is assigned to enqueued tasks that carry no priority.
	DefaultPriority = 5

	// DefaultMaxRetries is assigned to enqueued tasks that carry no retry budget.
	DefaultMaxRetries = 3

	// DefaultLease is how long a claimed task stays owned before the reaper
	// may return it to pending.
	DefaultLease = 10 * time.Minute

	// retryDelayUnit is the base unit of the task-level retry backoff:
	// backoff(n) = retryDelayUnit * (n+1) for the n-th failure.
	retryDelayUnit = 5 * time.Minute
)

// Queue layers task lifecycle semantics over a TaskRepository: enqueue
// defaults, the claim/complete/fail transitions, the retry policy, and the
// expired-lease reaper.
type Queue struct {
	tasks  storage.TaskRepository
	lease  time.Duration
	logger *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue) error

// WithLease sets the claim lease duration.
// Default is DefaultLease.
func WithLease(lease time.Duration) Option {
	return func(q *Queue) error {
		if lease > 0 {
			q.lease = lease
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger
		return nil
	}
}

// New creates a Queue over the given task repository.
func New(tasks storage.TaskRepository, opts ...Option) (*Queue, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}

	q := &Queue{
		tasks:  tasks,
		lease:  DefaultLease,
		logger: slog.Default().With("component", "queue"),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Enqueue validates a task, applies defaults, and persists it as pending.
func (q *Queue) Enqueue(ctx context.Context, task *core.Task) (*core.Task, error) {
	if task.Priority == 0 {
		task.Priority = DefaultPriority
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = DefaultMaxRetries
	}
	task.Status = core.TaskStatusPending
	if task.ScheduledFor.IsZero() {
		task.ScheduledFor = time.Now().UTC()
	}

	if err := core.ValidateTask(task); err != nil {
		return nil, err
	}

	added, err := q.tasks.AddTask(ctx, task)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("task enqueued", "id", added.Id, "type", added.Type, "priority", added.Priority)
	return added, nil
}

// ClaimNext claims the most eligible pending task for the given processor.
// Returns nil, nil when no task is eligible.
func (q *Queue) ClaimNext(ctx context.Context, processorId string) (*core.Task, error) {
	task, err := q.tasks.ClaimNext(ctx, processorId, time.Now().UTC(), q.lease)
	if err != nil {
		// Contention means every candidate was taken by someone else; from
		// the caller's perspective the queue is momentarily empty.
		if errors.Is(err, storage.ErrClaimContention) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// MarkCompleted transitions a processing task to completed. Completing an
// already completed task is a no-op, so workers may retry the call safely.
func (q *Queue) MarkCompleted(ctx context.Context, id core.ID, processorId, resultSummary string, insightsGenerated int) error {
	task, err := q.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status == core.TaskStatusCompleted {
		return nil
	}
	if task.Status != core.TaskStatusProcessing {
		return storage.ErrNotClaimable
	}
	if processorId != "" && task.ProcessorId != processorId {
		return ErrNotOwner
	}

	task.Status = core.TaskStatusCompleted
	task.CompletedAt = time.Now().UTC()
	task.ResultSummary = resultSummary
	task.InsightsGenerated = insightsGenerated
	task.ErrorMessage = ""

	_, err = q.tasks.UpdateTask(ctx, task)
	if err != nil {
		return err
	}
	q.logger.Info("task completed", "id", task.Id, "type", task.Type, "insights", insightsGenerated)
	return nil
}

// MarkFailed records a task failure. While the retry budget lasts, the task
// returns to pending with scheduledFor pushed out by backoff(retryCount);
// past MaxRetries it becomes terminal failed.
func (q *Queue) MarkFailed(ctx context.Context, id core.ID, processorId, errorMessage string) error {
	task, err := q.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != core.TaskStatusProcessing {
		return storage.ErrNotClaimable
	}
	if processorId != "" && task.ProcessorId != processorId {
		return ErrNotOwner
	}

	now := time.Now().UTC()
	task.ErrorMessage = errorMessage

	if task.RetryCount < task.MaxRetries {
		delay := retryBackoff(task.RetryCount)
		task.RetryCount++
		task.Status = core.TaskStatusPending
		task.ScheduledFor = now.Add(delay)
		task.ProcessorId = ""
		task.LeaseExpiresAt = time.Time{}
		task.StartedAt = time.Time{}

		if _, err := q.tasks.UpdateTask(ctx, task); err != nil {
			return err
		}
		q.logger.Warn("task failed, scheduled for retry",
			"id", task.Id, "type", task.Type, "retryCount", task.RetryCount,
			"scheduledFor", task.ScheduledFor, "error", errorMessage)
		return nil
	}

	task.Status = core.TaskStatusFailed
	task.CompletedAt = now
	if _, err := q.tasks.UpdateTask(ctx, task); err != nil {
		return err
	}
	q.logger.Error("task failed terminally",
		"id", task.Id, "type", task.Type, "retryCount", task.RetryCount, "error", errorMessage)
	return nil
}

// ReapExpired returns expired-lease processing tasks to the queue. A lost
// lease counts as a failed attempt, so a task that keeps killing its workers
// still lands in terminal failed. Returns the number of tasks reaped.
func (q *Queue) ReapExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := q.tasks.ExpiredLeases(ctx, now)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, task := range expired {
		task.ErrorMessage = "lease expired"

		if task.RetryCount < task.MaxRetries {
			delay := retryBackoff(task.RetryCount)
			task.RetryCount++
			task.Status = core.TaskStatusPending
			task.ScheduledFor = now.Add(delay)
			task.ProcessorId = ""
			task.LeaseExpiresAt = time.Time{}
			task.StartedAt = time.Time{}
		} else {
			task.Status = core.TaskStatusFailed
			task.CompletedAt = now
		}

		// The guarded transition refuses once the task completed, failed, or
		// was reaped elsewhere after the ExpiredLeases snapshot.
		if _, err := q.tasks.ReapTask(ctx, task, now); err != nil {
			q.logger.Debug("skipping reap", "id", task.Id, "error", err)
			continue
		}
		reaped++
		q.logger.Warn("reaped expired lease",
			"id", task.Id, "type", task.Type, "status", task.Status.String())
	}
	return reaped, nil
}

// Stats aggregates queue state over the trailing window.
func (q *Queue) Stats(ctx context.Context, windowHours int) (*core.QueueStats, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	tasks, err := q.tasks.TasksCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &core.QueueStats{}
	var (
		totalDuration time.Duration
		durationCount int
	)
	for _, task := range tasks {
		switch task.Status {
		case core.TaskStatusPending:
			stats.Pending++
		case core.TaskStatusProcessing:
			stats.Processing++
		case core.TaskStatusCompleted:
			stats.Completed++
			if !task.StartedAt.IsZero() && !task.CompletedAt.IsZero() {
				totalDuration += task.CompletedAt.Sub(task.StartedAt)
				durationCount++
			}
		case core.TaskStatusFailed:
			stats.Failed++
		}
	}
	if durationCount > 0 {
		stats.AvgDurationSeconds = totalDuration.Seconds() / float64(durationCount)
	}
	return stats, nil
}

// retryBackoff computes the delay before the n-th retry: 5min * (n+1).
func retryBackoff(retryCount int) time.Duration {
	return retryDelayUnit * time.Duration(retryCount+1)
}
