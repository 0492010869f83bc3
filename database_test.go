package derivit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/ai/mock"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/enrich"
	"github.com/poiesic/derivit/queue"
	"github.com/poiesic/derivit/search"
)

type stubSourceProvider struct {
	sources map[string]*enrich.Source
}

func (p *stubSourceProvider) GetSource(ctx context.Context, sourceType, sourceId string) (*enrich.Source, error) {
	return p.sources[sourceId], nil
}

func newTestDatabase(t *testing.T, opts ...DatabaseOption) *Database {
	t.Helper()
	opts = append([]DatabaseOption{
		WithInMemoryStore(),
		WithEmbedder(mock.NewMockEmbedder()),
	}, opts...)
	db, err := NewDatabase("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.TaskRepository())
		assert.NotNil(t, db.InsightRepository())
		assert.NotNil(t, db.TechnologyUsageRepository())
		assert.NotNil(t, db.PatternRepository())
		assert.NotNil(t, db.Queue())
		assert.NotNil(t, db.Searcher())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A file path instead of a directory.
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, WithEmbedder(mock.NewMockEmbedder()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.NoError(t, db.Close())
}

func TestDerivationHandlerEndToEnd(t *testing.T) {
	ctx := context.Background()
	provider := &stubSourceProvider{sources: map[string]*enrich.Source{
		"seq-1": {
			SourceId:   "seq-1",
			SourceType: "thinking_sequence",
			ProjectId:  "proj-1",
			Content:    "Compared React and Vue for the dashboard rewrite before settling on component structure.",
		},
	}}
	db := newTestDatabase(t, WithSourceProvider(provider))

	task, err := db.EnqueueTask(ctx, &core.Task{
		Type:       TaskTypeThinkingSequence,
		SourceType: "thinking_sequence",
		SourceIds:  []string{"seq-1"},
		Payload: map[string]string{
			PayloadTitle:       "Frontend framework deliberation",
			PayloadInsightType: "pattern",
			PayloadCategory:    "frontend",
			PayloadConfidence:  "0.8",
		},
	})
	require.NoError(t, err)

	claimed, err := db.Queue().ClaimNext(ctx, "test-worker")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, task.Id, claimed.Id)

	summary, generated, err := db.DerivationHandler().Handle(ctx, claimed)
	require.NoError(t, err)
	assert.Equal(t, 1, generated)
	assert.Contains(t, summary, "Frontend framework deliberation")

	results, total, err := db.Search(ctx, search.Criteria{
		Categories: []string{"frontend"},
	}, search.Options{IncludeRecommendations: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	insight := results[0]

	assert.Equal(t, "proj-1", insight.ProjectId)
	assert.Equal(t, []string{"seq-1"}, insight.SourceIds)
	assert.InDelta(t, 0.8, insight.ConfidenceScore, 1e-9)

	names := make(map[string]bool)
	for _, tech := range insight.Technologies {
		names[tech.Name] = true
	}
	assert.True(t, names["React"], "React extracted from source content")
	assert.True(t, names["Vue"], "Vue extracted from source content")

	var coherence bool
	for _, rec := range insight.Recommendations {
		if rec.Type == "stack_coherence" {
			coherence = true
		}
	}
	assert.True(t, coherence, "two frontend frameworks yield a coherence recommendation")

	stored, err := db.InsightRepository().GetInsight(ctx, insight.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector, "enriched insight carries an embedding")

	usage, err := db.TechnologyUsageRepository().GetUsage(ctx, "React", "frameworks")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.TotalOccurrences)
}

func TestDerivationHandlerWithoutSourceProvider(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	task, err := db.EnqueueTask(ctx, &core.Task{
		Type:       TaskTypeThinkingSequence,
		SourceType: "thinking_sequence",
		SourceIds:  []string{"seq-9"},
		Payload: map[string]string{
			PayloadContent:   "Chose PostgreSQL over MongoDB for transactional writes.",
			PayloadProjectId: "proj-2",
		},
	})
	require.NoError(t, err)

	_, generated, err := db.DerivationHandler().Handle(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, 1, generated)

	insights, err := db.InsightRepository().GetInsightsByProject(ctx, "proj-2")
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "Chose PostgreSQL over MongoDB for transactional writes.", insights[0].Summary)
	assert.Equal(t, "observation", insights[0].Type)
}

func TestDerivationHandlerRejectsUnknownType(t *testing.T) {
	db := newTestDatabase(t)

	_, _, err := db.DerivationHandler().Handle(context.Background(), &core.Task{
		Id:   1,
		Type: "unknown_type",
	})
	assert.Error(t, err)
}

func TestWorkerPoolDrivesDerivation(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	for i := 0; i < 3; i++ {
		_, err := db.EnqueueTask(ctx, &core.Task{
			Type:       TaskTypeThinkingSequence,
			SourceType: "thinking_sequence",
			SourceIds:  []string{"seq"},
			Payload:    map[string]string{PayloadContent: "Adopted Redis for session caching."},
		})
		require.NoError(t, err)
	}

	pool, err := db.NewWorkerPool(
		queue.WithWorkers(2),
		queue.WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	require.Eventually(t, func() bool {
		stats, err := db.QueueStats(ctx, 1)
		return err == nil && stats.Completed == 3
	}, 5*time.Second, 20*time.Millisecond)

	_, total, err := db.Search(ctx, search.Criteria{Technologies: []string{"redis"}}, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
