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


package search

import (
	"strings"
	"time"

	"github.com/poiesic/derivit/core"
)

// TimeRange restricts matches by age relative to query time. Zero fields
// impose no bound.
type TimeRange struct {
	// NewerThan keeps insights created within the given duration.
	NewerThan time.Duration
	// OlderThan keeps insights created at least the given duration ago.
	OlderThan time.Duration
}

// Criteria are the filter clauses of a search. All set clauses are combined
// with AND; list clauses match with OR within the list. Empty or zero
// clauses are ignored.
type Criteria struct {
	// InsightTypes matches the insight's type, any-of.
	InsightTypes []string

	// Categories matches the insight's category or subcategory, any-of.
	// Subcategories matches the subcategory only. Both are ignored when
	// IncludeAllCategories is set.
	Categories           []string
	Subcategories        []string
	IncludeAllCategories bool

	// ProjectId matches exactly.
	ProjectId string

	// MinConfidence and MaxConfidence bound ConfidenceScore inclusively.
	// MaxConfidence of zero means unbounded.
	MinConfidence float64
	MaxConfidence float64

	// TimeRange restricts by creation age.
	TimeRange TimeRange

	// Tags matches when any tag overlaps the insight's tag set.
	Tags []string

	// Technologies matches when any name appears in the insight's
	// technology list, regardless of category.
	Technologies []string

	// SearchText filters to insights with text relevance above zero and
	// drives the primary ranking term.
	SearchText string
}

// Options control pagination and response shaping.
type Options struct {
	Limit  int
	Offset int

	// IncludeRelated expands related-insight summaries on GetById.
	IncludeRelated bool
	// IncludeEvidence keeps the full evidence list on returned insights.
	IncludeEvidence bool
	// IncludeRecommendations keeps the full recommendation list.
	IncludeRecommendations bool
}

// matches reports whether the insight passes every set clause.
func (c *Criteria) matches(insight *core.Insight, now time.Time) bool {
	if len(c.InsightTypes) > 0 && !containsFold(c.InsightTypes, insight.Type) {
		return false
	}

	if !c.IncludeAllCategories {
		categoryClause := len(c.Categories) > 0 || len(c.Subcategories) > 0
		if categoryClause {
			matched := containsFold(c.Categories, insight.Category) ||
				containsFold(c.Categories, insight.Subcategory) ||
				containsFold(c.Subcategories, insight.Subcategory)
			if !matched {
				return false
			}
		}
	}

	if c.ProjectId != "" && insight.ProjectId != c.ProjectId {
		return false
	}

	if insight.ConfidenceScore < c.MinConfidence {
		return false
	}
	if c.MaxConfidence > 0 && insight.ConfidenceScore > c.MaxConfidence {
		return false
	}

	if c.TimeRange.NewerThan > 0 && insight.CreatedAt.Before(now.Add(-c.TimeRange.NewerThan)) {
		return false
	}
	if c.TimeRange.OlderThan > 0 && insight.CreatedAt.After(now.Add(-c.TimeRange.OlderThan)) {
		return false
	}

	if len(c.Tags) > 0 {
		overlap := false
		for _, tag := range c.Tags {
			if insight.HasTag(tag) {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}

	if len(c.Technologies) > 0 {
		member := false
		for _, name := range c.Technologies {
			if insight.HasTechnology(name) {
				member = true
				break
			}
		}
		if !member {
			return false
		}
	}

	return true
}

// searchableText is the text surface SearchText is scored against.
func searchableText(insight *core.Insight) string {
	var sb strings.Builder
	sb.WriteString(insight.Title)
	sb.WriteString(" ")
	sb.WriteString(insight.Summary)
	sb.WriteString(" ")
	sb.WriteString(insight.Category)
	sb.WriteString(" ")
	sb.WriteString(insight.Subcategory)
	for _, tag := range insight.Tags {
		sb.WriteString(" ")
		sb.WriteString(tag)
	}
	for _, content := range insight.DetailedContent {
		sb.WriteString(" ")
		sb.WriteString(content)
	}
	return sb.String()
}

// containsFold reports case-insensitive membership.
func containsFold(list []string, value string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, value) {
			return true
		}
	}
	return false
}
