package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/core"
	badgerstore "github.com/poiesic/derivit/storage/badger"
)

func newPatternEnricher(t *testing.T) *PatternEnricher {
	t.Helper()
	backend, err := badgerstore.OpenBackend("", true)
	require.NoError(t, err)

	repo := badgerstore.NewPatternRepository(backend)
	_, err = repo.AddPatterns(context.Background(),
		&core.PatternRecord{
			Name:            "N+1 query",
			Category:        "performance",
			Signature:       "n-plus-one",
			PatternType:     "anti_pattern",
			ConfidenceScore: 0.9,
			Keywords:        []string{"query in loop"},
			Tags:            []string{"orm"},
		},
		&core.PatternRecord{
			Name:            "Read-through cache",
			Category:        "caching",
			Signature:       "read-through-cache",
			PatternType:     "best_practice",
			ConfidenceScore: 0.8,
			Keywords:        []string{"cache miss"},
		},
	)
	require.NoError(t, err)

	enricher, err := NewPatternEnricher(repo)
	require.NoError(t, err)
	t.Cleanup(func() { enricher.Close(); backend.Close() })
	return enricher
}

func TestPatternEnricherAttachesMatches(t *testing.T) {
	enricher := newPatternEnricher(t)
	ctx := context.Background()

	insight := &core.Insight{
		Type:     "pattern",
		Category: "caching",
		Title:    "Cache warming",
		Summary:  "Every cache miss falls through to the database.",
	}
	require.NoError(t, enricher.Enrich(ctx, insight, &Source{SourceId: "seq-1"}))

	require.Len(t, insight.Patterns, 1)
	assert.Equal(t, "read-through-cache", insight.Patterns[0].Signature)
	require.Len(t, insight.Evidence, 1)
	assert.Equal(t, "pattern_match", insight.Evidence[0].Type)
	assert.Equal(t, "seq-1", insight.Evidence[0].Source)

	require.Len(t, insight.Recommendations, 1)
	assert.Equal(t, "medium", insight.Recommendations[0].Priority)
}

func TestPatternEnricherFlagsAntiPatterns(t *testing.T) {
	enricher := newPatternEnricher(t)
	ctx := context.Background()

	insight := &core.Insight{
		Type:     "pattern",
		Category: "performance",
		Title:    "Slow dashboard",
		Summary:  "Found a query in loop while profiling the request path.",
	}
	require.NoError(t, enricher.Enrich(ctx, insight, nil))

	require.NotEmpty(t, insight.Patterns)
	assert.True(t, insight.HasTag("orm"), "pattern tags are merged onto the insight")

	require.NotEmpty(t, insight.Recommendations)
	assert.Equal(t, "high", insight.Recommendations[0].Priority)
}

func TestPatternEnricherDedupesBySignature(t *testing.T) {
	enricher := newPatternEnricher(t)
	ctx := context.Background()

	insight := &core.Insight{
		Type:     "pattern",
		Category: "caching",
		Title:    "Cache design",
		Summary:  "cache miss handling",
	}
	require.NoError(t, enricher.Enrich(ctx, insight, nil))
	patterns := len(insight.Patterns)
	evidence := len(insight.Evidence)
	recs := len(insight.Recommendations)

	// A second pass matches the same patterns and must add nothing.
	require.NoError(t, enricher.Enrich(ctx, insight, nil))
	assert.Len(t, insight.Patterns, patterns)
	assert.Len(t, insight.Evidence, evidence)
	assert.Len(t, insight.Recommendations, recs)
}

func TestPatternEnricherNoMatchLeavesInsightUnchanged(t *testing.T) {
	enricher := newPatternEnricher(t)
	ctx := context.Background()

	insight := &core.Insight{
		Type:    "pattern",
		Title:   "Unrelated",
		Summary: "nothing the library knows about",
	}
	require.NoError(t, enricher.Enrich(ctx, insight, nil))
	assert.Empty(t, insight.Patterns)
	assert.Empty(t, insight.Evidence)
	assert.Empty(t, insight.Recommendations)
}
