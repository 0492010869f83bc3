package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/core"
	badgerstore "github.com/poiesic/derivit/storage/badger"
	"github.com/poiesic/derivit/storage"
)

func newRelationshipEnricher(t *testing.T) (*RelationshipEnricher, storage.InsightRepository) {
	t.Helper()
	taskRepo, insightRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { insightRepo.Close(); taskRepo.Close(); backend.Close() })

	enricher, err := NewRelationshipEnricher(insightRepo)
	require.NoError(t, err)
	return enricher, insightRepo
}

func TestSupersessionOfStaleInsight(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	stale := &core.Insight{
		Type:             "pattern",
		Category:         "caching",
		Title:            "Old caching take",
		ProjectId:        "proj-1",
		ConfidenceScore:  0.2,
		ValidationStatus: core.ValidationPending,
		CreatedAt:        time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	added, err := insights.AddInsights(ctx, stale)
	require.NoError(t, err)

	fresh := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "Current caching take",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.9,
	}
	persisted, err := insights.AddInsights(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))

	got, err := insights.GetInsight(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, core.ValidationSuperseded, got.ValidationStatus)
	assert.Equal(t, persisted[0].Id, got.SupersedesInsightId,
		"the superseded insight points at its replacement")

	var supersessionEvidence bool
	for _, ev := range persisted[0].Evidence {
		if ev.Type == "supersession" {
			supersessionEvidence = true
		}
	}
	assert.True(t, supersessionEvidence)
}

func TestSupersessionRequiresHighConfidence(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	stale := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "Old",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.2,
		CreatedAt:       time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	added, err := insights.AddInsights(ctx, stale)
	require.NoError(t, err)

	fresh := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "New but unsure",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.6,
	}
	persisted, err := insights.AddInsights(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))

	got, err := insights.GetInsight(ctx, added[0].Id)
	require.NoError(t, err)
	assert.NotEqual(t, core.ValidationSuperseded, got.ValidationStatus)
	assert.Zero(t, got.SupersedesInsightId)
}

func TestSupersessionSkipsRecentAndValidated(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	recent := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "Recent",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.2,
		CreatedAt:       time.Now().UTC().Add(-24 * time.Hour),
	}
	validated := &core.Insight{
		Type:             "pattern",
		Category:         "caching",
		Title:            "Validated",
		ProjectId:        "proj-1",
		ConfidenceScore:  0.2,
		ValidationStatus: core.ValidationValidated,
		CreatedAt:        time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	protected, err := insights.AddInsights(ctx, recent, validated)
	require.NoError(t, err)

	fresh := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "New",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.9,
	}
	persisted, err := insights.AddInsights(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))

	for _, p := range protected {
		got, err := insights.GetInsight(ctx, p.Id)
		require.NoError(t, err)
		assert.Zero(t, got.SupersedesInsightId, "insight %q must not be superseded", got.Title)
	}
}

func TestSupersessionPreservesAcyclicChain(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	// Current head of an existing replacement chain, old and weak enough to
	// be a supersession candidate itself.
	latest := &core.Insight{
		Type:             "pattern",
		Category:         "caching",
		Title:            "Latest revision",
		ProjectId:        "proj-1",
		ConfidenceScore:  0.2,
		ValidationStatus: core.ValidationPending,
		CreatedAt:        time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	added, err := insights.AddInsights(ctx, latest)
	require.NoError(t, err)
	latestId := added[0].Id

	middle := &core.Insight{
		Type:                "pattern",
		Category:            "caching",
		Title:               "First revision",
		ProjectId:           "proj-1",
		ConfidenceScore:     0.4,
		ValidationStatus:    core.ValidationSuperseded,
		SupersedesInsightId: latestId,
		CreatedAt:           time.Now().UTC().Add(-20 * 24 * time.Hour),
	}
	added, err = insights.AddInsights(ctx, middle)
	require.NoError(t, err)
	middleId := added[0].Id

	// An unrelated stale insight that may legitimately be superseded.
	bystander := &core.Insight{
		Type:             "pattern",
		Category:         "caching",
		Title:            "Stale bystander",
		ProjectId:        "proj-1",
		ConfidenceScore:  0.2,
		ValidationStatus: core.ValidationPending,
		CreatedAt:        time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	added, err = insights.AddInsights(ctx, bystander)
	require.NoError(t, err)
	bystanderId := added[0].Id

	// A once-superseded insight re-derived with high confidence. Its
	// replacement chain runs revived -> middle -> latest.
	revived := &core.Insight{
		Type:                "pattern",
		Category:            "caching",
		Title:               "Original take, rederived",
		ProjectId:           "proj-1",
		ConfidenceScore:     0.9,
		SupersedesInsightId: middleId,
	}
	persisted, err := insights.AddInsights(ctx, revived)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))

	// Pointing the chain head back at the revived insight would close the
	// loop latest -> revived -> middle -> latest, so it must stay untouched.
	got, err := insights.GetInsight(ctx, latestId)
	require.NoError(t, err)
	assert.NotEqual(t, core.ValidationSuperseded, got.ValidationStatus)
	assert.Zero(t, got.SupersedesInsightId)

	// The candidate off the chain is superseded as usual.
	got, err = insights.GetInsight(ctx, bystanderId)
	require.NoError(t, err)
	assert.Equal(t, core.ValidationSuperseded, got.ValidationStatus)
	assert.Equal(t, persisted[0].Id, got.SupersedesInsightId)
}

func TestContradictionTriggersReviewRecommendation(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	weak := &core.Insight{
		Type:            "pattern",
		Category:        "security",
		Title:           "Weak claim",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.1,
	}
	added, err := insights.AddInsights(ctx, weak)
	require.NoError(t, err)

	strong := &core.Insight{
		Type:            "observation",
		Category:        "security",
		Title:           "Strong counter-claim",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.9,
	}
	persisted, err := insights.AddInsights(ctx, strong)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))

	assert.Contains(t, persisted[0].ContradictsInsightIds, added[0].Id)
	assert.Contains(t, persisted[0].RelatedInsightIds, added[0].Id)

	var reviewRec bool
	for _, rec := range persisted[0].Recommendations {
		if rec.Type == "review_contradictions" && rec.Priority == "high" {
			reviewRec = true
		}
	}
	assert.True(t, reviewRec)
}

func TestRelationshipScoring(t *testing.T) {
	a := &core.Insight{Category: "caching", Subcategory: "redis"}
	assert.Equal(t, similaritySameCategory, similarityScore(a, &core.Insight{Category: "caching"}))
	assert.Equal(t, similaritySameSubcategory, similarityScore(a, &core.Insight{Category: "storage", Subcategory: "redis"}))
	assert.Equal(t, similarityBaseline, similarityScore(a, &core.Insight{Category: "storage", Subcategory: "disk"}))
}

func TestRelationshipAttachmentCap(t *testing.T) {
	enricher, insights := newRelationshipEnricher(t)
	ctx := context.Background()

	for i := 0; i < maxRelated+5; i++ {
		_, err := insights.AddInsights(ctx, &core.Insight{
			Type:            "pattern",
			Category:        "caching",
			Title:           "Existing",
			ProjectId:       "proj-1",
			ConfidenceScore: 0.5,
		})
		require.NoError(t, err)
	}

	fresh := &core.Insight{
		Type:            "pattern",
		Category:        "caching",
		Title:           "New",
		ProjectId:       "proj-1",
		ConfidenceScore: 0.5,
	}
	persisted, err := insights.AddInsights(ctx, fresh)
	require.NoError(t, err)

	require.NoError(t, enricher.Enrich(ctx, persisted[0], nil))
	assert.Len(t, persisted[0].RelatedInsightIds, maxRelated)
}
