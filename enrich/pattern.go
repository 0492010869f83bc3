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
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

const (
	patternLookupLimit = 10
	patternCacheTTL    = 5 * time.Minute
)

// PatternEnricher matches an insight and its source content against the
// pattern library. Matches attach a pattern entry with supporting evidence,
// merge pattern tags, and produce a recommendation: high priority when any
// match is an anti-pattern, medium otherwise.
//
// The library is read-mostly, so lookups go through a TTL'd ristretto cache
// keyed by the lookup tuple.
type PatternEnricher struct {
	patterns storage.PatternRepository
	cache    *ristretto.Cache[string, []*core.PatternRecord]
}

// NewPatternEnricher creates a pattern enricher over the given library.
func NewPatternEnricher(patterns storage.PatternRepository) (*PatternEnricher, error) {
	if patterns == nil {
		return nil, ErrPatternRepositoryRequired
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []*core.PatternRecord]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &PatternEnricher{
		patterns: patterns,
		cache:    cache,
	}, nil
}

// Close releases the lookup cache.
func (e *PatternEnricher) Close() {
	e.cache.Close()
}

// Name implements Enricher.
func (e *PatternEnricher) Name() string {
	return "pattern-matching"
}

// Enrich implements Enricher. No match leaves the insight unchanged.
func (e *PatternEnricher) Enrich(ctx context.Context, insight *core.Insight, source *Source) error {
	content := insight.Title + " " + insight.Summary
	sourceName := ""
	if source != nil {
		content += " " + source.Content
		sourceName = source.SourceId
	}

	technologies := make([]string, 0, len(insight.Technologies))
	for _, tech := range insight.Technologies {
		technologies = append(technologies, tech.Name)
	}

	matches, err := e.lookup(ctx, insight.Category, technologies, content)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	antiPattern := false
	added := 0
	for _, record := range matches {
		if !insight.AddPattern(core.PatternMatch{
			Name:      record.Name,
			Category:  record.Category,
			Signature: record.Signature,
		}) {
			continue
		}
		added++

		insight.AddEvidence(core.Evidence{
			Type:       "pattern_match",
			Content:    fmt.Sprintf("matched pattern %q (%s)", record.Name, record.Category),
			Source:     sourceName,
			Confidence: record.ConfidenceScore,
		})
		for _, tag := range record.Tags {
			insight.AddTag(tag)
		}
		if record.IsAntiPattern() {
			antiPattern = true
		}
	}
	if added == 0 {
		return nil
	}

	if antiPattern {
		insight.AddRecommendation(core.Recommendation{
			Text:     "Anti-pattern detected; review the flagged patterns and plan remediation.",
			Type:     "pattern_review",
			Priority: "high",
		})
	} else {
		insight.AddRecommendation(core.Recommendation{
			Text:     "Known patterns matched; consider aligning with their documented practices.",
			Type:     "pattern_review",
			Priority: "medium",
		})
	}
	return nil
}

// lookup fetches relevant patterns, caching by the lookup tuple.
func (e *PatternEnricher) lookup(ctx context.Context, category string, technologies []string, content string) ([]*core.PatternRecord, error) {
	key := strings.ToLower(category) + "|" + strings.ToLower(strings.Join(technologies, ",")) + "|" + strings.ToLower(content)

	if cached, found := e.cache.Get(key); found {
		return cached, nil
	}

	matches, err := e.patterns.FindRelevant(ctx, category, technologies, content, patternLookupLimit)
	if err != nil {
		return nil, err
	}

	e.cache.SetWithTTL(key, matches, 1, patternCacheTTL)
	return matches, nil
}
