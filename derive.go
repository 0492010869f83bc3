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


package derivit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/enrich"
	"github.com/poiesic/derivit/queue"
)

// TaskTypeThinkingSequence derives insights from recorded thinking
// sequences. It is the task type producers enqueue and the only type the
// built-in handler accepts.
const TaskTypeThinkingSequence = "thinking_sequence_insights"

// Payload keys recognized by the derivation handler. All are optional;
// missing values fall back to source-derived defaults.
const (
	PayloadTitle       = "title"
	PayloadSummary     = "summary"
	PayloadInsightType = "insight_type"
	PayloadCategory    = "category"
	PayloadSubcategory = "subcategory"
	PayloadProjectId   = "project_id"
	PayloadConfidence  = "confidence"
	PayloadContent     = "content"
)

const defaultDraftConfidence = 0.5

// DerivationHandler returns the handler the worker pool runs for claimed
// tasks: seed a draft insight from the task's source records, persist it,
// run the enrichment chain, embed, and persist the enriched result.
//
// The draft is persisted before enrichment so the relationship stage can
// link and supersede against a real id. Embedding failures are logged and
// skipped; an insight without a vector is still served by Search, it just
// never appears in FindSimilar results.
func (db *Database) DerivationHandler() queue.Handler {
	return queue.HandlerFunc(db.deriveInsights)
}

func (db *Database) deriveInsights(ctx context.Context, task *core.Task) (string, int, error) {
	if task.Type != TaskTypeThinkingSequence {
		return "", 0, fmt.Errorf("unsupported task type %q", task.Type)
	}

	source, err := db.resolveSource(ctx, task)
	if err != nil {
		return "", 0, fmt.Errorf("resolving source for task %d: %w", task.Id, err)
	}

	draft := draftInsight(task, source)
	if err := core.ValidateInsight(draft); err != nil {
		return "", 0, fmt.Errorf("invalid draft insight for task %d: %w", task.Id, err)
	}

	if _, err := db.insights.AddInsights(ctx, draft); err != nil {
		return "", 0, fmt.Errorf("persisting draft insight: %w", err)
	}

	if err := db.pipeline.Run(ctx, draft, source); err != nil {
		return "", 0, err
	}

	if vector, err := db.embedder.EmbedText(ctx, embeddingText(draft, source)); err != nil {
		db.logger.Warn("embedding failed, insight stored without vector",
			"insightId", draft.Id, "error", err)
	} else if len(vector) > 0 {
		draft.Vector = core.NormalizeVector(vector)
	}

	if _, err := db.insights.UpdateInsights(ctx, draft); err != nil {
		return "", 0, fmt.Errorf("persisting enriched insight: %w", err)
	}

	return fmt.Sprintf("derived insight %d: %s", draft.Id, draft.Title), 1, nil
}

// resolveSource fetches the task's source records and folds them into one
// enrichment source. Without a SourceProvider the payload content is the
// source.
func (db *Database) resolveSource(ctx context.Context, task *core.Task) (*enrich.Source, error) {
	if db.sources == nil {
		return &enrich.Source{
			SourceId:   strings.Join(task.SourceIds, ","),
			SourceType: task.SourceType,
			ProjectId:  task.Payload[PayloadProjectId],
			Content:    task.Payload[PayloadContent],
		}, nil
	}

	var (
		contents  []string
		projectId string
	)
	for _, sourceId := range task.SourceIds {
		source, err := db.sources.GetSource(ctx, task.SourceType, sourceId)
		if err != nil {
			return nil, err
		}
		if source == nil {
			continue
		}
		contents = append(contents, source.Content)
		if projectId == "" {
			projectId = source.ProjectId
		}
	}
	if projectId == "" {
		projectId = task.Payload[PayloadProjectId]
	}

	return &enrich.Source{
		SourceId:   strings.Join(task.SourceIds, ","),
		SourceType: task.SourceType,
		ProjectId:  projectId,
		Content:    strings.Join(contents, "\n\n"),
	}, nil
}

func draftInsight(task *core.Task, source *enrich.Source) *core.Insight {
	insight := &core.Insight{
		Type:            payloadOr(task, PayloadInsightType, "observation"),
		Category:        task.Payload[PayloadCategory],
		Subcategory:     task.Payload[PayloadSubcategory],
		Title:           payloadOr(task, PayloadTitle, fmt.Sprintf("Insights from %s %s", task.SourceType, source.SourceId)),
		Summary:         payloadOr(task, PayloadSummary, summarize(source.Content)),
		SourceType:      task.SourceType,
		SourceIds:       task.SourceIds,
		DetectionMethod: "task_derivation",
		ConfidenceScore: payloadConfidence(task),
		ProjectId:       source.ProjectId,
	}
	insight.ClampScores()
	return insight
}

func payloadOr(task *core.Task, key, fallback string) string {
	if value := strings.TrimSpace(task.Payload[key]); value != "" {
		return value
	}
	return fallback
}

func payloadConfidence(task *core.Task) float64 {
	raw := strings.TrimSpace(task.Payload[PayloadConfidence])
	if raw == "" {
		return defaultDraftConfidence
	}
	confidence, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultDraftConfidence
	}
	return confidence
}

// summarize truncates source content to a one-line summary.
func summarize(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	const maxSummary = 200
	if len(content) > maxSummary {
		content = content[:maxSummary] + "..."
	}
	if content == "" {
		return "No source content available"
	}
	return content
}

func embeddingText(insight *core.Insight, source *enrich.Source) string {
	parts := []string{insight.Title, insight.Summary}
	if source != nil && source.Content != "" {
		parts = append(parts, source.Content)
	}
	return strings.Join(parts, "\n")
}
