package badger

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

// maxClaimScans bounds how many times ClaimNext rescans the pending index
// after losing a commit race to a concurrent claimer.
const maxClaimScans = 8

// TaskRepository implements storage.TaskRepository for BadgerDB.
type TaskRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) (*TaskRepository, error) {
	idSeq, err := backend.GetSequence(taskIDSeq)
	if err != nil {
		return nil, err
	}

	return &TaskRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *TaskRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *TaskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddTask persists a new task and its index entries.
func (r *TaskRepository) AddTask(ctx context.Context, task *core.Task) (*core.Task, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if task.Id == 0 {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			task.Id = core.ID(nextID)
		}

		if task.CreatedAt.IsZero() {
			task.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(makeTaskKey(task.Id), storage.MarshalTask(task)); err != nil {
			return err
		}

		if err := tx.Set(makeTaskCreatedKey(task.CreatedAt, task.Id), storage.MarshalID(task.Id)); err != nil {
			return err
		}

		if err := r.updateStatusIndexes(tx, nil, task); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return task, err
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.ID) (*core.Task, error) {
	var result *core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTask(tx, makeTaskKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// UpdateTask overwrites an existing task and maintains index entries.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *core.Task) (*core.Task, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(task.Id)
		old, err := readTask(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}

		if err := r.updateStatusIndexes(tx, old, task); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return task, err
}

// ClaimNext atomically claims the most eligible pending task.
//
// The scan walks the pending index in (priority desc, createdAt asc) order
// inside a read-write transaction. The candidate's record is read through
// tx.Get, which registers it for conflict detection: if a concurrent claimer
// commits first, our commit fails with badger.ErrConflict and the scan is
// retried. This is the BadgerDB equivalent of row-skip locking.
func (r *TaskRepository) ClaimNext(ctx context.Context, processorId string, now time.Time, lease time.Duration) (*core.Task, error) {
	for scan := 0; scan < maxClaimScans; scan++ {
		task, err := r.tryClaim(processorId, now, lease)
		if err == nil {
			return task, nil
		}
		if errors.Is(err, badger.ErrConflict) {
			// Another claimer won the row. Rescan: the index entry is gone
			// in the winner's version, so the next pass moves on.
			continue
		}
		return nil, err
	}
	return nil, storage.ErrClaimContention
}

// tryClaim performs one scan-and-claim pass over the pending index.
func (r *TaskRepository) tryClaim(processorId string, now time.Time, lease time.Duration) (*core.Task, error) {
	var claimed *core.Task

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(taskPendingPrefix + ":")
		iter := tx.NewIterator(opts)

		var (
			candidate  *core.Task
			pendingKey []byte
		)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}

			task, err := readTask(tx, makeTaskKey(id))
			if err != nil {
				iter.Close()
				return err
			}
			// Stale index entry or not actually claimable; skip.
			if task == nil || task.Status != core.TaskStatusPending {
				continue
			}
			if task.ScheduledFor.After(now) {
				continue
			}

			candidate = task
			pendingKey = iter.Item().KeyCopy(nil)
			break
		}
		iter.Close()

		if candidate == nil {
			return nil
		}

		candidate.Status = core.TaskStatusProcessing
		candidate.ProcessorId = processorId
		candidate.StartedAt = now
		candidate.LeaseExpiresAt = now.Add(lease)

		if err := tx.Set(makeTaskKey(candidate.Id), storage.MarshalTask(candidate)); err != nil {
			return err
		}
		if err := tx.Delete(pendingKey); err != nil {
			return err
		}
		if err := tx.Set(makeTaskLeaseKey(candidate.LeaseExpiresAt, candidate.Id), storage.MarshalID(candidate.Id)); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		claimed = candidate
		return nil
	}, true)

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ExpiredLeases returns processing tasks whose lease expired at or before now.
func (r *TaskRepository) ExpiredLeases(ctx context.Context, now time.Time) ([]*core.Task, error) {
	var expired []*core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		endKey := makePartialTaskLeaseKey(now.Add(time.Microsecond))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(taskLeasePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if bytes.Compare(key[:len(endKey)], endKey) > 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			task, err := readTask(tx, makeTaskKey(id))
			if err != nil {
				return err
			}
			// Stale lease entries for tasks that already moved on are skipped.
			if task == nil || task.Status != core.TaskStatusProcessing {
				continue
			}
			if task.LeaseExpiresAt.After(now) {
				continue
			}
			expired = append(expired, task)
		}
		return nil
	}, false)

	return expired, err
}

// ReapTask overwrites an expired-lease processing task with the caller's
// requeued or terminally failed state. The guard re-checks the stored record
// inside the write transaction: a task that completed, failed, or was reaped
// by someone else between the ExpiredLeases snapshot and this call yields
// storage.ErrNotClaimable and the stale state is never written. The record
// read registers the key for conflict detection, so a transition committing
// concurrently fails this commit with badger.ErrConflict instead of being
// overwritten.
func (r *TaskRepository) ReapTask(ctx context.Context, task *core.Task, now time.Time) (*core.Task, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(task.Id)
		stored, err := readTask(tx, key)
		if err != nil {
			return err
		}
		if stored == nil {
			return storage.ErrNotFound
		}
		if stored.Status != core.TaskStatusProcessing ||
			stored.LeaseExpiresAt.IsZero() || stored.LeaseExpiresAt.After(now) {
			return storage.ErrNotClaimable
		}

		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}

		if err := r.updateStatusIndexes(tx, stored, task); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return task, nil
}

// TasksCreatedSince returns tasks created at or after since, oldest first.
func (r *TaskRepository) TasksCreatedSince(ctx context.Context, since time.Time) ([]*core.Task, error) {
	var results []*core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialTaskCreatedKey(since)
		prefix := []byte(taskCreatedPrefix + ":")

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || !bytes.HasPrefix(key, prefix) {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			task, err := readTask(tx, makeTaskKey(id))
			if err != nil {
				return err
			}
			if task != nil {
				results = append(results, task)
			}
		}
		return nil
	}, false)

	return results, err
}

// updateStatusIndexes reconciles the pending and lease index entries after a
// task transition. old may be nil for newly added tasks.
func (r *TaskRepository) updateStatusIndexes(tx *badger.Txn, old, task *core.Task) error {
	if old != nil {
		if old.Status == core.TaskStatusPending {
			if err := tx.Delete(makeTaskPendingKey(old.Priority, old.CreatedAt, old.Id)); err != nil {
				return err
			}
		}
		if old.Status == core.TaskStatusProcessing && !old.LeaseExpiresAt.IsZero() {
			if err := tx.Delete(makeTaskLeaseKey(old.LeaseExpiresAt, old.Id)); err != nil {
				return err
			}
		}
	}

	switch task.Status {
	case core.TaskStatusPending:
		return tx.Set(makeTaskPendingKey(task.Priority, task.CreatedAt, task.Id), storage.MarshalID(task.Id))
	case core.TaskStatusProcessing:
		if !task.LeaseExpiresAt.IsZero() {
			return tx.Set(makeTaskLeaseKey(task.LeaseExpiresAt, task.Id), storage.MarshalID(task.Id))
		}
	}
	return nil
}

// readTask reads a task record from the transaction.
// Returns nil, nil when the key does not exist.
func readTask(tx *badger.Txn, key []byte) (*core.Task, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var task *core.Task
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		task, unmarshalErr = storage.UnmarshalTask(val)
		return unmarshalErr
	})
	return task, err
}
