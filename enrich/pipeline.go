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
	"log/slog"

	"github.com/poiesic/derivit/core"
)

// Enricher is one stage of the enrichment chain. Enrich mutates the insight
// in place; any persistence it performs (usage counters, supersession links)
// is its own explicit side effect.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, insight *core.Insight, source *Source) error
}

// Config selects which enrichment stages run. Stage order is fixed
// regardless of configuration: pattern matching populates categories and
// tags, technology extraction populates the technology set, and
// relationship detection consumes both.
type Config struct {
	EnablePatternMatching      bool
	EnableTechnologyExtraction bool
	EnableRelationshipFinding  bool
}

// DefaultConfig enables every stage.
func DefaultConfig() Config {
	return Config{
		EnablePatternMatching:      true,
		EnableTechnologyExtraction: true,
		EnableRelationshipFinding:  true,
	}
}

// Deps holds the constructed enricher stages handed to BuildChain.
type Deps struct {
	Pattern      *PatternEnricher
	Technology   *TechnologyEnricher
	Relationship *RelationshipEnricher
}

// BuildChain returns the enabled enrichers in execution order:
// pattern matching, then technology extraction, then relationship finding.
// Disabled or nil stages are omitted.
func BuildChain(cfg Config, deps Deps) []Enricher {
	var chain []Enricher
	if cfg.EnablePatternMatching && deps.Pattern != nil {
		chain = append(chain, deps.Pattern)
	}
	if cfg.EnableTechnologyExtraction && deps.Technology != nil {
		chain = append(chain, deps.Technology)
	}
	if cfg.EnableRelationshipFinding && deps.Relationship != nil {
		chain = append(chain, deps.Relationship)
	}
	return chain
}

// Pipeline runs an enricher chain over draft insights. It does not persist
// the insight; that is the caller's job once the chain completes.
type Pipeline struct {
	chain  []Enricher
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline over the given enricher chain.
func NewPipeline(chain []Enricher, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		chain:  chain,
		logger: slog.Default().With("component", "enrich"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run executes each stage in order. A stage error is logged and the stage
// skipped; the run never aborts, and the insight reflects every stage that
// succeeded. Scores are clamped after the chain completes.
func (p *Pipeline) Run(ctx context.Context, insight *core.Insight, source *Source) error {
	if insight == nil {
		return ErrInsightRequired
	}

	for _, enricher := range p.chain {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enricher.Enrich(ctx, insight, source); err != nil {
			p.logger.Warn("enricher stage failed, skipping",
				"stage", enricher.Name(), "insightId", insight.Id, "error", err)
			continue
		}
		p.logger.Debug("enricher stage completed",
			"stage", enricher.Name(), "insightId", insight.Id)
	}

	insight.ClampScores()
	return nil
}
