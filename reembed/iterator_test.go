package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/core"
)

func TestInsightIteratorBatches(t *testing.T) {
	ctx := context.Background()
	repo := newInsightRepo(t)
	seedInsights(t, repo, 10)

	it := NewInsightIterator(repo, 4)

	var sizes []int
	err := it.ForEach(ctx, func(batch []*core.Insight) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 2}, sizes)

	total, err := it.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestInsightIteratorStopsOnError(t *testing.T) {
	ctx := context.Background()
	repo := newInsightRepo(t)
	seedInsights(t, repo, 10)

	it := NewInsightIterator(repo, 3)

	calls := 0
	sentinel := errors.New("stop")
	err := it.ForEach(ctx, func(batch []*core.Insight) error {
		calls++
		if calls == 2 {
			return sentinel
		}
		return nil
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, calls)
}

func TestInsightIteratorEmptyRepo(t *testing.T) {
	repo := newInsightRepo(t)
	it := NewInsightIterator(repo, 0) // falls back to DefaultBatchSize

	called := false
	err := it.ForEach(context.Background(), func([]*core.Insight) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
