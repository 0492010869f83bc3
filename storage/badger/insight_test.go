package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

func TestInsightBasics(t *testing.T) {
	taskRepo, insightRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { insightRepo.Close(); taskRepo.Close(); backend.Close() }()

	ctx := context.Background()

	insight := &core.Insight{
		Type:      "pattern",
		Category:  "architecture",
		Title:     "Repository pattern in storage layer",
		Summary:   "Storage access goes through repository interfaces.",
		ProjectId: "proj-1",
	}

	added, err := insightRepo.AddInsights(ctx, insight)
	if err != nil {
		t.Fatalf("Failed to add insight: %v", err)
	}
	if len(added) != 1 || added[0].Id == 0 {
		t.Fatalf("Expected one insight with generated ID, got %+v", added)
	}
	if added[0].CreatedAt.IsZero() || added[0].UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}

	got, err := insightRepo.GetInsight(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get insight: %v", err)
	}
	if got.Title != insight.Title {
		t.Fatalf("Round trip mismatch: %+v", got)
	}

	_, err = insightRepo.GetInsight(ctx, 999999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestInsightProjectIndex(t *testing.T) {
	taskRepo, insightRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { insightRepo.Close(); taskRepo.Close(); backend.Close() }()

	ctx := context.Background()

	a := &core.Insight{Type: "pattern", Title: "A", ProjectId: "alpha"}
	b := &core.Insight{Type: "pattern", Title: "B", ProjectId: "alpha"}
	c := &core.Insight{Type: "pattern", Title: "C", ProjectId: "alphabet"}

	if _, err := insightRepo.AddInsights(ctx, a, b, c); err != nil {
		t.Fatalf("Failed to add insights: %v", err)
	}

	// "alpha" must not match the "alphabet" project.
	results, err := insightRepo.GetInsightsByProject(ctx, "alpha")
	if err != nil {
		t.Fatalf("Failed to query project: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 insights for alpha, got %d", len(results))
	}
	for _, insight := range results {
		if insight.ProjectId != "alpha" {
			t.Fatalf("Wrong project in results: %+v", insight)
		}
	}
}

func TestUpdateInsightsRefreshesTimestamp(t *testing.T) {
	taskRepo, insightRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { insightRepo.Close(); taskRepo.Close(); backend.Close() }()

	ctx := context.Background()

	insight := &core.Insight{Type: "pattern", Title: "Before"}
	added, err := insightRepo.AddInsights(ctx, insight)
	if err != nil {
		t.Fatalf("Failed to add insight: %v", err)
	}

	added[0].Title = "After"
	updated, err := insightRepo.UpdateInsights(ctx, added[0])
	if err != nil {
		t.Fatalf("Failed to update insight: %v", err)
	}
	if updated[0].UpdatedAt.Before(updated[0].CreatedAt) {
		t.Fatal("Expected UpdatedAt to advance")
	}

	got, err := insightRepo.GetInsight(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get insight: %v", err)
	}
	if got.Title != "After" {
		t.Fatalf("Expected updated title, got %q", got.Title)
	}

	missing := &core.Insight{Id: 999999, Type: "pattern", Title: "Ghost"}
	if _, err := insightRepo.UpdateInsights(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestFindSimilarOrdersByDistance(t *testing.T) {
	taskRepo, insightRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { insightRepo.Close(); taskRepo.Close(); backend.Close() }()

	ctx := context.Background()

	near := &core.Insight{Type: "pattern", Title: "Near", Vector: []float32{1, 0, 0}}
	mid := &core.Insight{Type: "pattern", Title: "Mid", Vector: []float32{0.7, 0.7, 0}}
	far := &core.Insight{Type: "pattern", Title: "Far", Vector: []float32{0, 1, 0}}
	noVec := &core.Insight{Type: "pattern", Title: "NoVector"}

	if _, err := insightRepo.AddInsights(ctx, far, noVec, near, mid); err != nil {
		t.Fatalf("Failed to add insights: %v", err)
	}

	results, err := insightRepo.FindSimilar(ctx, []float32{1, 0, 0}, 0, 2)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Near" || results[1].Title != "Mid" {
		t.Fatalf("Wrong order: %q, %q", results[0].Title, results[1].Title)
	}
	if results[0].Distance > results[1].Distance {
		t.Fatal("Expected ascending distance")
	}

	// Excluding the nearest insight promotes the next one.
	results, err = insightRepo.FindSimilar(ctx, []float32{1, 0, 0}, near.Id, 2)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) == 0 || results[0].Title != "Mid" {
		t.Fatalf("Expected Mid first after exclusion, got %+v", results)
	}
}

func TestAllInsightsEarlyStop(t *testing.T) {
	taskRepo, insightRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { insightRepo.Close(); taskRepo.Close(); backend.Close() }()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := insightRepo.AddInsights(ctx, &core.Insight{Type: "pattern", Title: "x"}); err != nil {
			t.Fatalf("Failed to add insight: %v", err)
		}
	}

	seen := 0
	err = insightRepo.AllInsights(ctx, func(*core.Insight) (bool, error) {
		seen++
		return seen < 2, nil
	})
	if err != nil {
		t.Fatalf("AllInsights failed: %v", err)
	}
	if seen != 2 {
		t.Fatalf("Expected iteration to stop at 2, saw %d", seen)
	}
}
