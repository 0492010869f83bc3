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


package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

const (
	// maxRelated caps how many related insights are attached per run.
	maxRelated = 20

	// maxSuperseded caps how many older insights one run may supersede.
	maxSuperseded = 5

	// supersessionMinConfidence gates the supersession job on the new
	// insight's confidence.
	supersessionMinConfidence = 0.7

	// supersessionMinAge is how old a candidate must be before it can be
	// superseded.
	supersessionMinAge = 7 * 24 * time.Hour

	// contradictionLowConfidence and contradictionHighConfidence bound the
	// confidence gap that classifies a relation as a contradiction.
	contradictionLowConfidence  = 0.3
	contradictionHighConfidence = 0.7

	// candidateScanCap bounds the full-store scan used when the insight has
	// no project association.
	candidateScanCap = 2000
)

// Similarity ceilings by taxonomy overlap.
const (
	similaritySameCategory    = 0.8
	similaritySameSubcategory = 0.6
	similarityBaseline        = 0.4
)

// RelationshipEnricher links a new insight to existing ones and supersedes
// stale lower-confidence insights. The two jobs are independent; both read
// the same candidate set.
type RelationshipEnricher struct {
	insights storage.InsightRepository
	logger   *slog.Logger
}

// RelationshipOption configures a RelationshipEnricher.
type RelationshipOption func(*RelationshipEnricher) error

// WithRelationshipLogger sets a custom logger.
// Default is slog.Default().
func WithRelationshipLogger(logger *slog.Logger) RelationshipOption {
	return func(e *RelationshipEnricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewRelationshipEnricher creates a relationship enricher over the insight
// store.
func NewRelationshipEnricher(insights storage.InsightRepository, opts ...RelationshipOption) (*RelationshipEnricher, error) {
	if insights == nil {
		return nil, ErrInsightRepositoryRequired
	}

	e := &RelationshipEnricher{
		insights: insights,
		logger:   slog.Default().With("component", "enrich"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Name implements Enricher.
func (e *RelationshipEnricher) Name() string {
	return "relationship-supersession"
}

// Enrich implements Enricher.
func (e *RelationshipEnricher) Enrich(ctx context.Context, insight *core.Insight, source *Source) error {
	candidates, err := e.candidates(ctx, insight)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	e.discoverRelationships(insight, candidates)

	if insight.ConfidenceScore >= supersessionMinConfidence {
		e.supersede(ctx, insight, candidates)
	}
	return nil
}

// candidates returns existing insights sharing the new insight's project and
// overlapping on category, technology set, or source ids. Insights without a
// project association fall back to a capped full scan.
func (e *RelationshipEnricher) candidates(ctx context.Context, insight *core.Insight) ([]*core.Insight, error) {
	var pool []*core.Insight
	if insight.ProjectId != "" {
		var err error
		pool, err = e.insights.GetInsightsByProject(ctx, insight.ProjectId)
		if err != nil {
			return nil, err
		}
	} else {
		scanned := 0
		err := e.insights.AllInsights(ctx, func(existing *core.Insight) (bool, error) {
			pool = append(pool, existing)
			scanned++
			return scanned < candidateScanCap, nil
		})
		if err != nil {
			return nil, err
		}
	}

	var candidates []*core.Insight
	for _, existing := range pool {
		if existing.Id == insight.Id {
			continue
		}
		if e.overlaps(insight, existing) {
			candidates = append(candidates, existing)
		}
	}
	return candidates, nil
}

// overlaps reports whether two insights share a category, a technology, or a
// source id.
func (e *RelationshipEnricher) overlaps(a, b *core.Insight) bool {
	if a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		return true
	}
	for _, tech := range a.Technologies {
		if b.HasTechnology(tech.Name) {
			return true
		}
	}
	for _, sourceId := range a.SourceIds {
		for _, other := range b.SourceIds {
			if sourceId == other {
				return true
			}
		}
	}
	return false
}

// discoverRelationships scores, classifies, and attaches the top candidates.
func (e *RelationshipEnricher) discoverRelationships(insight *core.Insight, candidates []*core.Insight) {
	type relation struct {
		candidate *core.Insight
		score     float64
		kind      string
	}

	relations := make([]relation, 0, len(candidates))
	for _, candidate := range candidates {
		relations = append(relations, relation{
			candidate: candidate,
			score:     similarityScore(insight, candidate),
			kind:      classifyRelation(insight, candidate),
		})
	}

	// Deterministic order: score descending, id ascending on ties.
	sort.SliceStable(relations, func(i, j int) bool {
		if relations[i].score != relations[j].score {
			return relations[i].score > relations[j].score
		}
		return relations[i].candidate.Id < relations[j].candidate.Id
	})
	if len(relations) > maxRelated {
		relations = relations[:maxRelated]
	}

	contradictions := 0
	for _, rel := range relations {
		if !insight.AddRelatedInsight(rel.candidate.Id) {
			continue
		}
		if rel.kind == "contradicts" {
			insight.AddContradiction(rel.candidate.Id)
			contradictions++
		}
		insight.AddEvidence(core.Evidence{
			Type:       "relationship",
			Content:    fmt.Sprintf("%s insight %d (%q), similarity %.1f", rel.kind, rel.candidate.Id, rel.candidate.Title, rel.score),
			Confidence: rel.score,
		})
	}

	if contradictions > 0 {
		insight.AddRecommendation(core.Recommendation{
			Text:     fmt.Sprintf("%d contradicting insight(s) found; review and resolve the conflict.", contradictions),
			Type:     "review_contradictions",
			Priority: "high",
		})
	}
}

// supersede marks stale lower-confidence insights as superseded by the new
// one. Each candidate is updated on its own; one failed write is logged and
// does not block the rest.
func (e *RelationshipEnricher) supersede(ctx context.Context, insight *core.Insight, candidates []*core.Insight) {
	if insight.Id == 0 {
		// A draft without an identity cannot be pointed at.
		return
	}

	cutoff := time.Now().UTC().Add(-supersessionMinAge)

	var eligible []*core.Insight
	for _, candidate := range candidates {
		if candidate.ValidationStatus == core.ValidationValidated ||
			candidate.ValidationStatus == core.ValidationSuperseded {
			continue
		}
		if candidate.SupersedesInsightId != 0 {
			continue
		}
		if candidate.ConfidenceScore >= insight.ConfidenceScore {
			continue
		}
		if !candidate.CreatedAt.Before(cutoff) {
			continue
		}
		if !strings.EqualFold(candidate.Type, insight.Type) ||
			!strings.EqualFold(candidate.Category, insight.Category) {
			continue
		}
		if err := e.checkAcyclic(ctx, insight, candidate.Id); err != nil {
			e.logger.Warn("skipping supersession candidate",
				"insightId", insight.Id, "candidateId", candidate.Id, "error", err)
			continue
		}
		eligible = append(eligible, candidate)
	}

	// Oldest first, so the stalest insights are retired before the cap hits.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > maxSuperseded {
		eligible = eligible[:maxSuperseded]
	}

	superseded := 0
	for _, candidate := range eligible {
		candidate.ValidationStatus = core.ValidationSuperseded
		candidate.SupersedesInsightId = insight.Id
		if _, err := e.insights.UpdateInsights(ctx, candidate); err != nil {
			e.logger.Warn("supersession update failed",
				"insightId", insight.Id, "candidateId", candidate.Id, "error", err)
			continue
		}
		superseded++
	}

	if superseded > 0 {
		insight.AddEvidence(core.Evidence{
			Type:       "supersession",
			Content:    fmt.Sprintf("superseded %d older lower-confidence insight(s)", superseded),
			Confidence: insight.ConfidenceScore,
		})
		e.logger.Info("superseded older insights", "insightId", insight.Id, "count", superseded)
	}
}

// checkAcyclic verifies that pointing candidateId at the new insight would
// not close a supersession loop. Walks the chain from the new insight, capped
// at 64 hops; returns core.ErrSupersessionCycle when the candidate is already
// on the chain.
func (e *RelationshipEnricher) checkAcyclic(ctx context.Context, insight *core.Insight, candidateId core.ID) error {
	current := insight.SupersedesInsightId
	for depth := 0; current != 0 && depth < 64; depth++ {
		if current == candidateId {
			return core.ErrSupersessionCycle
		}
		next, err := e.insights.GetInsight(ctx, current)
		if err != nil {
			// A broken chain cannot close a loop.
			return nil
		}
		current = next.SupersedesInsightId
	}
	return nil
}

// similarityScore returns the deterministic ceiling-heuristic score.
func similarityScore(a, b *core.Insight) float64 {
	if a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		return similaritySameCategory
	}
	if a.Subcategory != "" && strings.EqualFold(a.Subcategory, b.Subcategory) {
		return similaritySameSubcategory
	}
	return similarityBaseline
}

// classifyRelation labels the relation between the new insight and a
// candidate. A contradiction takes precedence over taxonomic similarity.
func classifyRelation(insight, candidate *core.Insight) string {
	if candidate.ConfidenceScore < contradictionLowConfidence &&
		insight.ConfidenceScore > contradictionHighConfidence {
		return "contradicts"
	}
	if strings.EqualFold(insight.Type, candidate.Type) &&
		strings.EqualFold(insight.Category, candidate.Category) {
		return "similar"
	}
	return "related"
}
