package reembed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/derivit/ai"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/queue"
	"github.com/poiesic/derivit/storage"
)

// BatchProcessor regenerates embeddings for batches of insights.
type BatchProcessor struct {
	repo           storage.InsightRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.InsightRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of insights and writes the updated vectors back.
// Vectors are normalized so cosine similarity stays valid.
func (bp *BatchProcessor) Process(ctx context.Context, insights []*core.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	texts := make([]string, len(insights))
	for i, insight := range insights {
		texts[i] = EmbeddingInput(insight)
	}

	var embeddings [][]float32
	err := queue.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(insights) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(insights), len(embeddings))
	}

	for i := range insights {
		insights[i].Vector = core.NormalizeVector(embeddings[i])
	}

	if _, err := bp.repo.UpdateInsights(ctx, insights...); err != nil {
		return fmt.Errorf("failed to update insights: %w", err)
	}

	return nil
}

// EmbeddingInput builds the text an insight is embedded from: title,
// summary, and any detailed content values with non-trivial text.
func EmbeddingInput(insight *core.Insight) string {
	parts := []string{insight.Title}
	if insight.Summary != "" {
		parts = append(parts, insight.Summary)
	}
	keys := make([]string, 0, len(insight.DetailedContent))
	for key := range insight.DetailedContent {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := strings.TrimSpace(insight.DetailedContent[key]); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n")
}
