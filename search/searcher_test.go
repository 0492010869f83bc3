package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
	badgerstore "github.com/poiesic/derivit/storage/badger"
)

func newSearcher(t *testing.T) (*Searcher, storage.InsightRepository) {
	t.Helper()
	taskRepo, insightRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { insightRepo.Close(); taskRepo.Close(); backend.Close() })

	s, err := NewSearcher(insightRepo)
	require.NoError(t, err)
	return s, insightRepo
}

func seed(t *testing.T, repo storage.InsightRepository, insights ...*core.Insight) {
	t.Helper()
	_, err := repo.AddInsights(context.Background(), insights...)
	require.NoError(t, err)
}

func TestSearchCategoryAndConfidenceFilter(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	seed(t, repo,
		&core.Insight{Type: "pattern", Category: "security", Title: "High security", ConfidenceScore: 0.9},
		&core.Insight{Type: "pattern", Category: "security", Title: "Low security", ConfidenceScore: 0.5},
		&core.Insight{Type: "pattern", Category: "performance", Subcategory: "security", Title: "Subcat match", ConfidenceScore: 0.85},
		&core.Insight{Type: "pattern", Category: "caching", Title: "Other", ConfidenceScore: 0.95},
	)

	results, total, err := s.Search(ctx, Criteria{
		Categories:    []string{"security"},
		MinConfidence: 0.8,
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	// Ordered by confidence then recency.
	assert.Equal(t, "High security", results[0].Title)
	assert.Equal(t, "Subcat match", results[1].Title)
	for _, insight := range results {
		assert.GreaterOrEqual(t, insight.ConfidenceScore, 0.8)
	}
}

func TestSearchIncludeAllCategoriesDisablesCategoryFilter(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	seed(t, repo,
		&core.Insight{Type: "pattern", Category: "security", Title: "A", ConfidenceScore: 0.9},
		&core.Insight{Type: "pattern", Category: "caching", Title: "B", ConfidenceScore: 0.8},
	)

	_, total, err := s.Search(ctx, Criteria{
		Categories:           []string{"security"},
		IncludeAllCategories: true,
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSearchTextRelevanceRanksFirst(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	seed(t, repo,
		&core.Insight{Type: "pattern", Title: "Connection pooling for PostgreSQL", Summary: "pool sizing and connection reuse", ConfidenceScore: 0.5},
		&core.Insight{Type: "pattern", Title: "Unrelated topic", Summary: "nothing in common", ConfidenceScore: 0.99},
		&core.Insight{Type: "pattern", Title: "Connection timeouts", Summary: "timeout tuning", ConfidenceScore: 0.7},
	)

	results, total, err := s.Search(ctx, Criteria{SearchText: "connection pooling"}, Options{})
	require.NoError(t, err)

	// The non-matching insight is filtered out despite its confidence.
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	assert.Equal(t, "Connection pooling for PostgreSQL", results[0].Title,
		"full text match outranks higher confidence")
}

func TestSearchRankingIsStable(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	// Identical rank, confidence, and creation time; ids break the tie.
	for i := 0; i < 5; i++ {
		seed(t, repo, &core.Insight{
			Type:            "pattern",
			Title:           "Tied",
			ConfidenceScore: 0.5,
			CreatedAt:       created,
			UpdatedAt:       created,
		})
	}

	first, _, err := s.Search(ctx, Criteria{}, Options{})
	require.NoError(t, err)
	for run := 0; run < 3; run++ {
		again, _, err := s.Search(ctx, Criteria{}, Options{})
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Id, again[i].Id, "tie order must not vary across runs")
		}
	}
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].Id, first[i].Id, "ties resolve by ascending id")
	}
}

func TestSearchPagination(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		seed(t, repo, &core.Insight{
			Type:            "pattern",
			Title:           "Entry",
			ConfidenceScore: float64(i) / 10,
		})
	}

	page, total, err := s.Search(ctx, Criteria{}, Options{Limit: 3, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 10, total, "total counts all matches, not the page")
	assert.Len(t, page, 3)

	// Offset past the end yields an empty page with the same total.
	page, total, err = s.Search(ctx, Criteria{}, Options{Limit: 3, Offset: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Empty(t, page)

	_, _, err = s.Search(ctx, Criteria{}, Options{Limit: -1})
	require.ErrorIs(t, err, ErrInvalidPagination)
}

func TestSearchTagAndTechnologyFilters(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	tagged := &core.Insight{Type: "pattern", Title: "Tagged", ConfidenceScore: 0.5}
	tagged.AddTag("tech:redis")
	tagged.AddTechnology(core.Technology{Name: "Redis", Category: "databases"})

	other := &core.Insight{Type: "pattern", Title: "Other", ConfidenceScore: 0.5}
	other.AddTag("frontend")

	seed(t, repo, tagged, other)

	results, total, err := s.Search(ctx, Criteria{Tags: []string{"tech:redis", "missing"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Tagged", results[0].Title)

	results, total, err = s.Search(ctx, Criteria{Technologies: []string{"redis"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Tagged", results[0].Title)

	_, total, err = s.Search(ctx, Criteria{Technologies: []string{"mongodb"}}, Options{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearchTrimsEvidenceUnlessRequested(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	insight := &core.Insight{Type: "pattern", Title: "With extras", ConfidenceScore: 0.5}
	insight.AddEvidence(core.Evidence{Type: "pattern_match", Content: "seen"})
	insight.AddRecommendation(core.Recommendation{Text: "do it", Type: "t", Priority: "low"})
	seed(t, repo, insight)

	results, _, err := s.Search(ctx, Criteria{}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Evidence)
	assert.Empty(t, results[0].Recommendations)

	results, _, err = s.Search(ctx, Criteria{}, Options{IncludeEvidence: true, IncludeRecommendations: true})
	require.NoError(t, err)
	assert.Len(t, results[0].Evidence, 1)
	assert.Len(t, results[0].Recommendations, 1)

	// Trimming must not mutate the stored record.
	stored, err := repo.GetInsight(ctx, insight.Id)
	require.NoError(t, err)
	assert.Len(t, stored.Evidence, 1)
}

func TestGetByIdExpandsRelated(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	related := &core.Insight{Type: "pattern", Category: "caching", Title: "Related one", Summary: "summary", ConfidenceScore: 0.6}
	seed(t, repo, related)

	main := &core.Insight{Type: "pattern", Title: "Main", ConfidenceScore: 0.8}
	main.AddRelatedInsight(related.Id)
	seed(t, repo, main)

	expanded, err := s.GetById(ctx, main.Id, Options{})
	require.NoError(t, err)
	assert.Empty(t, expanded.Related)

	expanded, err = s.GetById(ctx, main.Id, Options{IncludeRelated: true})
	require.NoError(t, err)
	require.Len(t, expanded.Related, 1)
	assert.Equal(t, related.Id, expanded.Related[0].Id)
	assert.Equal(t, "Related one", expanded.Related[0].Title)

	_, err = s.GetById(ctx, 999999, Options{})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindSimilarExcludesSelfAndVectorless(t *testing.T) {
	s, repo := newSearcher(t)
	ctx := context.Background()

	target := &core.Insight{Type: "pattern", Title: "Target", Vector: []float32{1, 0}}
	near := &core.Insight{Type: "pattern", Title: "Near", Vector: []float32{0.9, 0.1}}
	vectorless := &core.Insight{Type: "pattern", Title: "NoVector"}
	seed(t, repo, target, near, vectorless)

	results, err := s.FindSimilar(ctx, target.Id, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, near.Id, results[0].Id)

	// No embedding on the target yet means no results, not an error.
	results, err = s.FindSimilar(ctx, vectorless.Id, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
