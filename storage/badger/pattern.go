package badger

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

// PatternRepository implements storage.PatternRepository for BadgerDB.
// Pattern IDs are content-based from the signature, so reseeding the library
// is idempotent.
type PatternRepository struct {
	backend *Backend
}

var _ storage.PatternRepository = (*PatternRepository)(nil)

// NewPatternRepository creates a new PatternRepository.
func NewPatternRepository(backend *Backend) *PatternRepository {
	return &PatternRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *PatternRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *PatternRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddPatterns seeds or updates pattern library entries.
func (r *PatternRepository) AddPatterns(ctx context.Context, patterns ...*core.PatternRecord) ([]*core.PatternRecord, error) {
	now := time.Now().UTC()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, pattern := range patterns {
			if pattern.Signature == "" {
				return storage.ErrInvalidQuery
			}
			pattern.Id = core.IDFromContent(pattern.Signature)

			old, err := readPatternRecord(tx, makePatternKey(pattern.Id))
			if err != nil {
				return err
			}
			if old != nil {
				pattern.InsertedAt = old.InsertedAt
				// Category changes re-home the index entry.
				if !strings.EqualFold(old.Category, pattern.Category) {
					if err := tx.Delete(makePatternCategoryKey(old.Category, old.Id)); err != nil {
						return err
					}
				}
			} else if pattern.InsertedAt.IsZero() {
				pattern.InsertedAt = now
			}
			pattern.UpdatedAt = now

			if err := tx.Set(makePatternKey(pattern.Id), storage.MarshalPatternRecord(pattern)); err != nil {
				return err
			}
			if err := tx.Set(makePatternCategoryKey(pattern.Category, pattern.Id), storage.MarshalID(pattern.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return patterns, err
}

// GetPattern retrieves a pattern by ID.
func (r *PatternRepository) GetPattern(ctx context.Context, id core.ID) (*core.PatternRecord, error) {
	var result *core.PatternRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readPatternRecord(tx, makePatternKey(id))
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

// FindByCategory returns all patterns in a category.
func (r *PatternRepository) FindByCategory(ctx context.Context, category string) ([]*core.PatternRecord, error) {
	var results []*core.PatternRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialPatternCategoryKey(category)

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

			pattern, err := readPatternRecord(tx, makePatternKey(id))
			if err != nil {
				return err
			}
			if pattern != nil {
				results = append(results, pattern)
			}
		}
		return nil
	}, false)
	return results, err
}

// FindRelevant returns patterns whose category, tags, or keywords overlap the
// probe, ordered by descending relevance. Each keyword hit in the content
// counts double a tag or technology hit; a category match ranks a pattern but
// never on its own outranks a keyword hit elsewhere.
func (r *PatternRepository) FindRelevant(ctx context.Context, category string, technologies []string, content string, limit int) ([]*core.PatternRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	content = strings.ToLower(content)
	techSet := make(map[string]struct{}, len(technologies))
	for _, t := range technologies {
		techSet[strings.ToLower(t)] = struct{}{}
	}

	type scored struct {
		pattern *core.PatternRecord
		score   int
	}
	var candidates []scored

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(patternRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var pattern *core.PatternRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				pattern, err = storage.UnmarshalPatternRecord(val)
				return err
			}); err != nil {
				return err
			}

			score := 0
			if category != "" && strings.EqualFold(pattern.Category, category) {
				score++
			}
			for _, tag := range pattern.Tags {
				if _, ok := techSet[strings.ToLower(tag)]; ok {
					score++
				}
			}
			for _, kw := range pattern.Keywords {
				if kw != "" && strings.Contains(content, strings.ToLower(kw)) {
					score += 2
				}
			}
			if score > 0 {
				candidates = append(candidates, scored{pattern: pattern, score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pattern.Id < candidates[j].pattern.Id
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]*core.PatternRecord, len(candidates))
	for i, c := range candidates {
		results[i] = c.pattern
	}
	return results, nil
}

// readPatternRecord reads a pattern record from the transaction.
// Returns nil, nil when the key does not exist.
func readPatternRecord(tx *badger.Txn, key []byte) (*core.PatternRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var pattern *core.PatternRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		pattern, unmarshalErr = storage.UnmarshalPatternRecord(val)
		return unmarshalErr
	})
	return pattern, err
}
