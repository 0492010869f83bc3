package badger

import (
	"context"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

// TechnologyUsageRepository implements storage.TechnologyUsageRepository for
// BadgerDB. Aggregates are keyed by a content-based ID from the
// (category, name) tuple, so the upsert in RecordUsage needs no secondary
// index.
type TechnologyUsageRepository struct {
	backend *Backend
}

var _ storage.TechnologyUsageRepository = (*TechnologyUsageRepository)(nil)

// NewTechnologyUsageRepository creates a new TechnologyUsageRepository.
func NewTechnologyUsageRepository(backend *Backend) *TechnologyUsageRepository {
	return &TechnologyUsageRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *TechnologyUsageRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TechnologyUsageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// RecordUsage upserts the usage aggregate for (name, category).
func (r *TechnologyUsageRepository) RecordUsage(ctx context.Context, name, category, projectId string, at time.Time) (*core.TechnologyUsage, error) {
	var result *core.TechnologyUsage

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		usage := &core.TechnologyUsage{
			Name:       name,
			Category:   category,
			InsertedAt: at,
		}
		usage.Id = core.IDFromContent(usage.Tuple())

		existing, err := readTechnologyUsage(tx, makeTechUsageKey(usage.Id))
		if err != nil {
			return err
		}
		if existing != nil {
			usage = existing
		}

		usage.TotalOccurrences++
		if usage.LastSeenAt.Before(at) {
			usage.LastSeenAt = at
		}
		usage.UpdatedAt = at
		usage.MergeProject(projectId, at)

		if err := tx.Set(makeTechUsageKey(usage.Id), storage.MarshalTechnologyUsage(usage)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = usage
		return nil
	}, true)

	return result, err
}

// GetUsage retrieves the aggregate for (name, category).
func (r *TechnologyUsageRepository) GetUsage(ctx context.Context, name, category string) (*core.TechnologyUsage, error) {
	probe := &core.TechnologyUsage{Name: name, Category: category}
	id := core.IDFromContent(probe.Tuple())

	var result *core.TechnologyUsage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTechnologyUsage(tx, makeTechUsageKey(id))
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

// AllUsage returns every usage aggregate, sorted by descending occurrence
// count with name as a tiebreaker.
func (r *TechnologyUsageRepository) AllUsage(ctx context.Context) ([]*core.TechnologyUsage, error) {
	var results []*core.TechnologyUsage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(techUsagePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var usage *core.TechnologyUsage
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				usage, err = storage.UnmarshalTechnologyUsage(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, usage)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalOccurrences != results[j].TotalOccurrences {
			return results[i].TotalOccurrences > results[j].TotalOccurrences
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

// readTechnologyUsage reads an aggregate record from the transaction.
// Returns nil, nil when the key does not exist.
func readTechnologyUsage(tx *badger.Txn, key []byte) (*core.TechnologyUsage, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var usage *core.TechnologyUsage
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		usage, unmarshalErr = storage.UnmarshalTechnologyUsage(val)
		return unmarshalErr
	})
	return usage, err
}
