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


package reembed

import (
	"context"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

const (
	// DefaultBatchSize is the default number of insights per batch.
	DefaultBatchSize = 100
)

// InsightIterator walks every stored insight in batches.
type InsightIterator struct {
	repo      storage.InsightRepository
	batchSize int
}

// NewInsightIterator creates an iterator.
// batchSize: number of insights per batch (must be > 0)
func NewInsightIterator(repo storage.InsightRepository, batchSize int) *InsightIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &InsightIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach streams all insights to fn in batches of batchSize. Iteration
// stops on the first error from fn; cancellation is checked between
// batches via the repository iteration contract.
func (it *InsightIterator) ForEach(ctx context.Context, fn func([]*core.Insight) error) error {
	batch := make([]*core.Insight, 0, it.batchSize)

	err := it.repo.AllInsights(ctx, func(insight *core.Insight) (bool, error) {
		batch = append(batch, insight)
		if len(batch) < it.batchSize {
			return true, nil
		}
		if err := fn(batch); err != nil {
			return false, err
		}
		batch = batch[:0]
		return true, nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Count returns the total number of stored insights.
func (it *InsightIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.repo.AllInsights(ctx, func(*core.Insight) (bool, error) {
		total++
		return true, nil
	})
	return total, err
}
