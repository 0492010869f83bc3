package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/ai/mock"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
	badgerstore "github.com/poiesic/derivit/storage/badger"
)

func newInsightRepo(t *testing.T) storage.InsightRepository {
	t.Helper()
	taskRepo, insightRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { insightRepo.Close(); taskRepo.Close(); backend.Close() })
	return insightRepo
}

func seedInsights(t *testing.T, repo storage.InsightRepository, n int) []*core.Insight {
	t.Helper()
	insights := make([]*core.Insight, n)
	for i := range insights {
		insights[i] = &core.Insight{
			Type:            "pattern",
			Title:           "Insight",
			Summary:         "summary text",
			ConfidenceScore: 0.5,
		}
	}
	_, err := repo.AddInsights(context.Background(), insights...)
	require.NoError(t, err)
	return insights
}

func TestReembedderUpdatesAllVectors(t *testing.T) {
	ctx := context.Background()
	repo := newInsightRepo(t)
	seedInsights(t, repo, 7)

	var out bytes.Buffer
	r := NewReembedder(repo, mock.NewMockEmbedder(), &Config{
		BatchSize:      3,
		ReportInterval: 1,
		MaxRetries:     1,
		RetryDelay:     time.Millisecond,
	}, &out)

	require.NoError(t, r.Run(ctx))

	count := 0
	err := repo.AllInsights(ctx, func(insight *core.Insight) (bool, error) {
		count++
		assert.NotEmpty(t, insight.Vector)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Contains(t, out.String(), "Reembedding complete")
}

func TestReembedderEmptyDatabase(t *testing.T) {
	repo := newInsightRepo(t)

	var out bytes.Buffer
	r := NewReembedder(repo, mock.NewMockEmbedder(), nil, &out)
	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "No insights found")
}

func TestReembedderPropagatesEmbedderFailure(t *testing.T) {
	repo := newInsightRepo(t)
	seedInsights(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service unavailable")
	}

	var out bytes.Buffer
	r := NewReembedder(repo, embedder, &Config{
		BatchSize:      10,
		ReportInterval: 10,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
	}, &out)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
}

func TestEmbeddingInputIncludesDetailedContent(t *testing.T) {
	insight := &core.Insight{
		Title:   "Title",
		Summary: "Summary",
		DetailedContent: map[string]string{
			"b_context":  "second",
			"a_decision": "first",
			"c_empty":    "  ",
		},
	}

	text := EmbeddingInput(insight)
	assert.Equal(t, "Title\nSummary\nfirst\nsecond", text)
}
