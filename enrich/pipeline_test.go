package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/derivit/core"
)

type stubEnricher struct {
	name string
	fn   func(*core.Insight) error
}

func (s *stubEnricher) Name() string { return s.name }

func (s *stubEnricher) Enrich(ctx context.Context, insight *core.Insight, source *Source) error {
	return s.fn(insight)
}

func TestBuildChainOrderAndFlags(t *testing.T) {
	pattern := &PatternEnricher{}
	technology := &TechnologyEnricher{}
	relationship := &RelationshipEnricher{}
	deps := Deps{Pattern: pattern, Technology: technology, Relationship: relationship}

	chain := BuildChain(DefaultConfig(), deps)
	require.Len(t, chain, 3)
	assert.Equal(t, "pattern-matching", chain[0].Name())
	assert.Equal(t, "technology-extraction", chain[1].Name())
	assert.Equal(t, "relationship-supersession", chain[2].Name())

	chain = BuildChain(Config{EnableTechnologyExtraction: true}, deps)
	require.Len(t, chain, 1)
	assert.Equal(t, "technology-extraction", chain[0].Name())

	assert.Empty(t, BuildChain(Config{}, deps))
}

func TestPipelineIsolatesStageFailure(t *testing.T) {
	var order []string
	chain := []Enricher{
		&stubEnricher{name: "first", fn: func(in *core.Insight) error {
			order = append(order, "first")
			in.AddTag("from-first")
			return nil
		}},
		&stubEnricher{name: "second", fn: func(in *core.Insight) error {
			order = append(order, "second")
			return errors.New("stage exploded")
		}},
		&stubEnricher{name: "third", fn: func(in *core.Insight) error {
			order = append(order, "third")
			in.AddTag("from-third")
			return nil
		}},
	}

	p, err := NewPipeline(chain)
	require.NoError(t, err)

	insight := &core.Insight{Type: "pattern", Title: "t"}
	require.NoError(t, p.Run(context.Background(), insight, nil))

	assert.Equal(t, []string{"first", "second", "third"}, order,
		"a failing stage must not abort the run")
	assert.True(t, insight.HasTag("from-first"))
	assert.True(t, insight.HasTag("from-third"))
}

func TestPipelineClampsScores(t *testing.T) {
	chain := []Enricher{
		&stubEnricher{name: "inflate", fn: func(in *core.Insight) error {
			in.ConfidenceScore = 1.7
			in.ImpactScore = -0.2
			return nil
		}},
	}

	p, err := NewPipeline(chain)
	require.NoError(t, err)

	insight := &core.Insight{Type: "pattern", Title: "t"}
	require.NoError(t, p.Run(context.Background(), insight, nil))
	assert.Equal(t, 1.0, insight.ConfidenceScore)
	assert.Equal(t, 0.0, insight.ImpactScore)
}

func TestPipelineRejectsNilInsight(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)
	require.ErrorIs(t, p.Run(context.Background(), nil, nil), ErrInsightRequired)
}
