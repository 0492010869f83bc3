package badger

import (
	"container/heap"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

// InsightRepository implements storage.InsightRepository for BadgerDB.
type InsightRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.InsightRepository = (*InsightRepository)(nil)

// NewInsightRepository creates a new InsightRepository.
func NewInsightRepository(backend *Backend) (*InsightRepository, error) {
	idSeq, err := backend.GetSequence(insightIDSeq)
	if err != nil {
		return nil, err
	}

	return &InsightRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *InsightRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *InsightRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddInsights persists one or more insights with their index entries.
func (r *InsightRepository) AddInsights(ctx context.Context, insights ...*core.Insight) ([]*core.Insight, error) {
	now := time.Now().UTC()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, insight := range insights {
			if insight.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				insight.Id = core.ID(nextID)
			}

			if insight.CreatedAt.IsZero() {
				insight.CreatedAt = now
			}
			if insight.UpdatedAt.IsZero() {
				insight.UpdatedAt = insight.CreatedAt
			}

			if err := r.writeInsight(tx, insight); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return insights, err
}

// UpdateInsights updates existing insights, refreshing UpdatedAt.
func (r *InsightRepository) UpdateInsights(ctx context.Context, insights ...*core.Insight) ([]*core.Insight, error) {
	now := time.Now().UTC()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, insight := range insights {
			old, err := readInsight(tx, makeInsightKey(insight.Id))
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			insight.UpdatedAt = now

			// Project association can change; reconcile the index entry.
			if old.ProjectId != insight.ProjectId && old.ProjectId != "" {
				if err := tx.Delete(makeInsightProjectKey(old.ProjectId, old.Id)); err != nil {
					return err
				}
			}

			if err := r.writeInsight(tx, insight); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return insights, err
}

// GetInsight retrieves a single insight by ID.
func (r *InsightRepository) GetInsight(ctx context.Context, id core.ID) (*core.Insight, error) {
	var result *core.Insight
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readInsight(tx, makeInsightKey(id))
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

// GetInsights retrieves multiple insights by their IDs.
// Missing insights are silently skipped.
func (r *InsightRepository) GetInsights(ctx context.Context, ids ...core.ID) ([]*core.Insight, error) {
	results := make([]*core.Insight, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			insight, err := readInsight(tx, makeInsightKey(id))
			if err != nil {
				return err
			}
			if insight != nil {
				results = append(results, insight)
			}
		}
		return nil
	}, false)
	return results, err
}

// GetInsightsByProject retrieves all insights associated with a project.
func (r *InsightRepository) GetInsightsByProject(ctx context.Context, projectId string) ([]*core.Insight, error) {
	var results []*core.Insight
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialInsightProjectKey(projectId)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			insight, err := readInsight(tx, makeInsightKey(id))
			if err != nil {
				return err
			}
			if insight != nil {
				results = append(results, insight)
			}
		}
		return nil
	}, false)
	return results, err
}

// AllInsights iterates every stored insight in ID order.
func (r *InsightRepository) AllInsights(ctx context.Context, fn func(*core.Insight) (bool, error)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(insightRecordPrefix + ":")

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var insight *core.Insight
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				insight, err = storage.UnmarshalInsight(val)
				return err
			}); err != nil {
				return err
			}

			keep, err := fn(insight)
			if err != nil {
				return err
			}
			if !keep {
				return nil
			}
		}
		return nil
	}, false)
}

// similarHeap is a max-heap on distance so the farthest candidate is evicted
// first, keeping the k nearest insights during a scan.
type similarHeap []*core.SimilarInsight

func (h similarHeap) Len() int            { return len(h) }
func (h similarHeap) Less(i, j int) bool  { return h[i].Distance > h[j].Distance }
func (h similarHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *similarHeap) Push(x any)         { *h = append(*h, x.(*core.SimilarInsight)) }
func (h *similarHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FindSimilar scans all insight embeddings and returns the limit nearest by
// cosine distance, ascending. Linear scan; the insight corpus is small enough
// that an index structure is not worth the complexity yet.
func (r *InsightRepository) FindSimilar(ctx context.Context, vector []float32, exclude core.ID, limit int) ([]*core.SimilarInsight, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}

	h := make(similarHeap, 0, limit+1)
	err := r.AllInsights(ctx, func(insight *core.Insight) (bool, error) {
		if insight.Id == exclude || len(insight.Vector) == 0 {
			return true, nil
		}
		if len(insight.Vector) != len(vector) {
			return true, nil
		}

		heap.Push(&h, &core.SimilarInsight{
			Id:         insight.Id,
			Title:      insight.Title,
			Summary:    insight.Summary,
			Type:       insight.Type,
			Category:   insight.Category,
			Confidence: insight.ConfidenceScore,
			Distance:   core.CosineDistance(vector, insight.Vector),
		})
		if h.Len() > limit {
			heap.Pop(&h)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	// Pop produces farthest-first; fill back to front for ascending order.
	results := make([]*core.SimilarInsight, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(&h).(*core.SimilarInsight)
	}
	return results, nil
}

// writeInsight writes the insight record and its index entries.
func (r *InsightRepository) writeInsight(tx *badger.Txn, insight *core.Insight) error {
	if err := tx.Set(makeInsightKey(insight.Id), storage.MarshalInsight(insight)); err != nil {
		return err
	}
	if insight.ProjectId != "" {
		if err := tx.Set(makeInsightProjectKey(insight.ProjectId, insight.Id), storage.MarshalID(insight.Id)); err != nil {
			return err
		}
	}
	return tx.Set(makeInsightCreatedKey(insight.CreatedAt, insight.Id), storage.MarshalID(insight.Id))
}

// readInsight reads an insight record from the transaction.
// Returns nil, nil when the key does not exist.
func readInsight(tx *badger.Txn, key []byte) (*core.Insight, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var insight *core.Insight
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		insight, unmarshalErr = storage.UnmarshalInsight(val)
		return unmarshalErr
	})
	return insight, err
}
