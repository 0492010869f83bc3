package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/storage"
)

// Searcher is the hybrid query engine over the insight store: filtered
// ranked retrieval, single-record expansion, and embedding-distance lookups.
type Searcher struct {
	insights storage.InsightRepository
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher over the insight repository.
func NewSearcher(insights storage.InsightRepository, opts ...Option) (*Searcher, error) {
	if insights == nil {
		return nil, ErrInsightRepositoryRequired
	}

	s := &Searcher{
		insights: insights,
		logger:   slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ranked pairs an insight with its text relevance for sorting.
type ranked struct {
	insight *core.Insight
	rank    float64
}

// Search returns the page of insights matching the criteria plus the total
// match count. The ranking order is a hard contract: text relevance
// descending (when SearchText is given), then confidence descending, then
// creation time descending, with id ascending as the final tiebreaker so
// ties resolve identically across runs.
func (s *Searcher) Search(ctx context.Context, criteria Criteria, opts Options) ([]*core.Insight, int, error) {
	return s.SearchWithMonitor(ctx, criteria, opts, nil)
}

// SearchWithMonitor is Search with observation hooks for each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, criteria Criteria, opts Options, monitor SearchMonitor) ([]*core.Insight, int, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, 0, ErrInvalidPagination
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(criteria)

	now := time.Now().UTC()
	textQuery := criteria.SearchText

	var matches []ranked
	err := s.insights.AllInsights(ctx, func(insight *core.Insight) (bool, error) {
		if !criteria.matches(insight, now) {
			return true, nil
		}

		rank := 0.0
		if textQuery != "" {
			rank = relevanceScore(searchableText(insight), textQuery)
			if rank == 0 {
				return true, nil
			}
		}
		matches = append(matches, ranked{insight: insight, rank: rank})
		return true, nil
	})
	if err != nil {
		s.logger.Error("error scanning insights", "err", err)
		return nil, 0, err
	}
	monitor.AfterFilter(len(matches))

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank > matches[j].rank
		}
		if matches[i].insight.ConfidenceScore != matches[j].insight.ConfidenceScore {
			return matches[i].insight.ConfidenceScore > matches[j].insight.ConfidenceScore
		}
		if !matches[i].insight.CreatedAt.Equal(matches[j].insight.CreatedAt) {
			return matches[i].insight.CreatedAt.After(matches[j].insight.CreatedAt)
		}
		return matches[i].insight.Id < matches[j].insight.Id
	})

	total := len(matches)

	// Paginate after ranking; total reflects every match, not the page.
	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	results := make([]*core.Insight, 0, end-start)
	for _, match := range matches[start:end] {
		results = append(results, s.shape(match.insight, opts))
	}

	monitor.Finish(len(results), total)
	return results, total, nil
}

// Expanded is a GetById response: the insight plus, when requested,
// summaries of its related insights.
type Expanded struct {
	Insight *core.Insight
	Related []*core.SimilarInsight
}

// GetById retrieves one insight with optional expansions. Returns
// storage.ErrNotFound when the insight does not exist.
func (s *Searcher) GetById(ctx context.Context, id core.ID, opts Options) (*Expanded, error) {
	insight, err := s.insights.GetInsight(ctx, id)
	if err != nil {
		return nil, err
	}

	expanded := &Expanded{Insight: s.shape(insight, opts)}
	if !opts.IncludeRelated || len(insight.RelatedInsightIds) == 0 {
		return expanded, nil
	}

	related, err := s.insights.GetInsights(ctx, insight.RelatedInsightIds...)
	if err != nil {
		return nil, err
	}
	expanded.Related = make([]*core.SimilarInsight, 0, len(related))
	for _, rel := range related {
		expanded.Related = append(expanded.Related, &core.SimilarInsight{
			Id:         rel.Id,
			Title:      rel.Title,
			Summary:    rel.Summary,
			Type:       rel.Type,
			Category:   rel.Category,
			Confidence: rel.ConfidenceScore,
		})
	}
	return expanded, nil
}

// FindSimilar returns the insights nearest to the given insight's embedding,
// ascending by cosine distance. The queried insight and insights without an
// embedding are excluded. Returns storage.ErrNotFound for an unknown id and
// an empty result when the target has no embedding yet.
func (s *Searcher) FindSimilar(ctx context.Context, id core.ID, limit int) ([]*core.SimilarInsight, error) {
	insight, err := s.insights.GetInsight(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(insight.Vector) == 0 {
		return nil, nil
	}
	return s.insights.FindSimilar(ctx, insight.Vector, id, limit)
}

// shape trims evidence and recommendations unless the options request them.
// Works on a copy so stored insights are never mutated.
func (s *Searcher) shape(insight *core.Insight, opts Options) *core.Insight {
	if opts.IncludeEvidence && opts.IncludeRecommendations {
		return insight
	}
	trimmed := *insight
	if !opts.IncludeEvidence {
		trimmed.Evidence = nil
	}
	if !opts.IncludeRecommendations {
		trimmed.Recommendations = nil
	}
	return &trimmed
}
