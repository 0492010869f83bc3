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

// keywordMatchConfidence is the fixed confidence assigned to technologies
// detected by keyword matching.
const keywordMatchConfidence = 0.8

// TechnologyEnricher detects technologies in an insight's text, tags the
// insight, upserts the usage aggregates, and applies the stack-coherence
// rules (outdated technologies, risky combinations without mitigation,
// redundant frontend frameworks, incompatible backends).
type TechnologyEnricher struct {
	usage  storage.TechnologyUsageRepository
	dict   Dictionary
	rules  StackRules
	logger *slog.Logger
}

// TechnologyOption configures a TechnologyEnricher.
type TechnologyOption func(*TechnologyEnricher) error

// WithDictionary replaces the compiled-in keyword table.
func WithDictionary(dict Dictionary) TechnologyOption {
	return func(e *TechnologyEnricher) error {
		if len(dict) == 0 {
			return ErrDictionaryEmpty
		}
		e.dict = dict
		return nil
	}
}

// WithStackRules replaces the compiled-in stack-coherence rules.
func WithStackRules(rules StackRules) TechnologyOption {
	return func(e *TechnologyEnricher) error {
		e.rules = rules
		return nil
	}
}

// WithTechnologyLogger sets a custom logger.
// Default is slog.Default().
func WithTechnologyLogger(logger *slog.Logger) TechnologyOption {
	return func(e *TechnologyEnricher) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewTechnologyEnricher creates a technology enricher over the given usage
// repository.
func NewTechnologyEnricher(usage storage.TechnologyUsageRepository, opts ...TechnologyOption) (*TechnologyEnricher, error) {
	if usage == nil {
		return nil, ErrUsageRepositoryRequired
	}

	e := &TechnologyEnricher{
		usage:  usage,
		dict:   DefaultDictionary(),
		rules:  DefaultStackRules(),
		logger: slog.Default().With("component", "enrich"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Name implements Enricher.
func (e *TechnologyEnricher) Name() string {
	return "technology-extraction"
}

// Enrich implements Enricher.
func (e *TechnologyEnricher) Enrich(ctx context.Context, insight *core.Insight, source *Source) error {
	text := e.scanText(insight, source)
	now := time.Now().UTC()

	categories := make([]string, 0, len(e.dict))
	for category := range e.dict {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for _, entry := range e.dict[category] {
			if !matchesKeyword(text, entry.Keywords) {
				continue
			}
			if !insight.AddTechnology(core.Technology{
				Name:       entry.Name,
				Category:   category,
				Confidence: keywordMatchConfidence,
			}) {
				continue
			}
			insight.AddTag("tech:" + strings.ToLower(entry.Name))

			// Usage tracking is an explicit side effect of this stage; a
			// failed upsert must not lose the rest of the scan.
			if _, err := e.usage.RecordUsage(ctx, entry.Name, category, insight.ProjectId, now); err != nil {
				e.logger.Warn("technology usage upsert failed",
					"technology", entry.Name, "category", category, "error", err)
			}
		}
	}

	e.applyStackRules(insight)
	return nil
}

// scanText concatenates every text surface the dictionary is matched against.
func (e *TechnologyEnricher) scanText(insight *core.Insight, source *Source) string {
	var sb strings.Builder
	sb.WriteString(insight.Title)
	sb.WriteString(" ")
	sb.WriteString(insight.Summary)
	if source != nil {
		sb.WriteString(" ")
		sb.WriteString(source.Content)
	}

	keys := make([]string, 0, len(insight.DetailedContent))
	for key := range insight.DetailedContent {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sb.WriteString(" ")
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(insight.DetailedContent[key])
	}
	return strings.ToLower(sb.String())
}

// applyStackRules appends recommendations for rule violations among the
// insight's technologies.
func (e *TechnologyEnricher) applyStackRules(insight *core.Insight) {
	for _, name := range e.rules.Outdated {
		if insight.HasTechnology(name) {
			insight.AddRecommendation(core.Recommendation{
				Text:     fmt.Sprintf("%s is outdated; plan a migration to a supported alternative.", name),
				Type:     "technology_outdated",
				Priority: "medium",
			})
		}
	}

	for _, combo := range e.rules.RiskyCombos {
		if insight.HasTechnology(combo.Technology) && !insight.HasTechnology(combo.Mitigation) {
			insight.AddRecommendation(core.Recommendation{
				Text:     combo.Advice,
				Type:     "technology_risk",
				Priority: "high",
			})
		}
	}

	var frontends []string
	for _, name := range e.rules.FrontendFrameworks {
		if insight.HasTechnology(name) {
			frontends = append(frontends, name)
		}
	}
	if len(frontends) > 1 {
		insight.AddRecommendation(core.Recommendation{
			Text:     fmt.Sprintf("Multiple frontend frameworks detected (%s); consolidate on one.", strings.Join(frontends, ", ")),
			Type:     "stack_coherence",
			Priority: "medium",
		})
	}

	for _, pair := range e.rules.IncompatibleBackends {
		if len(pair) != 2 {
			continue
		}
		if insight.HasTechnology(pair[0]) && insight.HasTechnology(pair[1]) {
			insight.AddRecommendation(core.Recommendation{
				Text:     fmt.Sprintf("%s and %s are both present; these backend frameworks should not share a stack.", pair[0], pair[1]),
				Type:     "stack_coherence",
				Priority: "high",
			})
		}
	}
}

// matchesKeyword reports whether any keyword occurs in the lowercased text.
func matchesKeyword(text string, keywords []string) bool {
	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
