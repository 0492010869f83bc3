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
	"log/slog"

	"github.com/poiesic/derivit/ai"
	"github.com/poiesic/derivit/ai/openai"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/enrich"
	"github.com/poiesic/derivit/queue"
	"github.com/poiesic/derivit/search"
	"github.com/poiesic/derivit/storage"
	"github.com/poiesic/derivit/storage/badger"
)

// Database wires the record store, task queue, enrichment pipeline, and
// query engine into one handle. It is the entry point for embedding the
// derivation subsystem into a host application.
type Database struct {
	backend  *badger.Backend
	tasks    storage.TaskRepository
	insights storage.InsightRepository
	usage    storage.TechnologyUsageRepository
	patterns storage.PatternRepository

	queue    *queue.Queue
	searcher *search.Searcher
	embedder ai.Embedder

	patternEnricher *enrich.PatternEnricher
	pipeline        *enrich.Pipeline
	sources         enrich.SourceProvider

	logger *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig   *ai.Config
	embedder   ai.Embedder
	sources    enrich.SourceProvider
	enrichCfg  enrich.Config
	dictionary enrich.Dictionary
	rules      *enrich.StackRules
	inMemory   bool
	logger     *slog.Logger
}

// WithAIConfig sets the embedding service configuration used when no
// explicit embedder is provided.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEmbedder injects an embedder, bypassing the OpenAI-compatible default.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithSourceProvider sets the collaborator that resolves task source ids to
// raw content. Without one, derivation falls back to task payload content.
func WithSourceProvider(sources enrich.SourceProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.sources = sources
	}
}

// WithEnrichmentConfig selects which enrichment stages run.
func WithEnrichmentConfig(cfg enrich.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.enrichCfg = cfg
	}
}

// WithTechnologyDictionary overrides the compiled-in technology dictionary.
func WithTechnologyDictionary(dict enrich.Dictionary) DatabaseOption {
	return func(o *databaseOptions) {
		o.dictionary = dict
	}
}

// WithStackRules overrides the compiled-in stack coherence rules.
func WithStackRules(rules enrich.StackRules) DatabaseOption {
	return func(o *databaseOptions) {
		o.rules = &rules
	}
}

// WithInMemoryStore opens the backend in memory. Intended for tests.
func WithInMemoryStore() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithDatabaseLogger sets a custom logger.
// Default is slog.Default().
func WithDatabaseLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:  ai.DefaultConfig(),
		enrichCfg: enrich.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	tasks, err := badger.NewTaskRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	insights, err := badger.NewInsightRepository(backend)
	if err != nil {
		tasks.Close()
		backend.Close()
		return nil, err
	}

	usage := badger.NewTechnologyUsageRepository(backend)
	patterns := badger.NewPatternRepository(backend)

	closeAll := func() {
		insights.Close()
		tasks.Close()
		backend.Close()
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig, options.logger)
		if err != nil {
			closeAll()
			return nil, err
		}
	}

	q, err := queue.New(tasks, queue.WithLogger(options.logger))
	if err != nil {
		closeAll()
		return nil, err
	}

	searcher, err := search.NewSearcher(insights, search.WithLogger(options.logger))
	if err != nil {
		closeAll()
		return nil, err
	}

	patternEnricher, err := enrich.NewPatternEnricher(patterns)
	if err != nil {
		closeAll()
		return nil, err
	}

	techOpts := []enrich.TechnologyOption{enrich.WithTechnologyLogger(options.logger)}
	if options.dictionary != nil {
		techOpts = append(techOpts, enrich.WithDictionary(options.dictionary))
	}
	if options.rules != nil {
		techOpts = append(techOpts, enrich.WithStackRules(*options.rules))
	}
	technologyEnricher, err := enrich.NewTechnologyEnricher(usage, techOpts...)
	if err != nil {
		patternEnricher.Close()
		closeAll()
		return nil, err
	}

	relationshipEnricher, err := enrich.NewRelationshipEnricher(insights,
		enrich.WithRelationshipLogger(options.logger))
	if err != nil {
		patternEnricher.Close()
		closeAll()
		return nil, err
	}

	chain := enrich.BuildChain(options.enrichCfg, enrich.Deps{
		Pattern:      patternEnricher,
		Technology:   technologyEnricher,
		Relationship: relationshipEnricher,
	})
	pipeline, err := enrich.NewPipeline(chain, enrich.WithLogger(options.logger))
	if err != nil {
		patternEnricher.Close()
		closeAll()
		return nil, err
	}

	return &Database{
		backend:         backend,
		tasks:           tasks,
		insights:        insights,
		usage:           usage,
		patterns:        patterns,
		queue:           q,
		searcher:        searcher,
		embedder:        embedder,
		patternEnricher: patternEnricher,
		pipeline:        pipeline,
		sources:         options.sources,
		logger:          options.logger,
	}, nil
}

func (db *Database) Close() error {
	db.patternEnricher.Close()

	if err := db.insights.Close(); err != nil {
		db.logger.Error("error closing insight repository", "err", err)
		return err
	}
	if err := db.tasks.Close(); err != nil {
		db.logger.Error("error closing task repository", "err", err)
		return err
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// EnqueueTask validates and persists a derivation task as pending.
func (db *Database) EnqueueTask(ctx context.Context, task *core.Task) (*core.Task, error) {
	return db.queue.Enqueue(ctx, task)
}

// QueueStats aggregates task counts and average processing duration over
// the given window (hours; <=0 means 24).
func (db *Database) QueueStats(ctx context.Context, windowHours int) (*core.QueueStats, error) {
	return db.queue.Stats(ctx, windowHours)
}

// Search runs the query engine. See search.Criteria for filter semantics.
func (db *Database) Search(ctx context.Context, criteria search.Criteria, opts search.Options) ([]*core.Insight, int, error) {
	return db.searcher.Search(ctx, criteria, opts)
}

// GetInsight fetches an insight by id, optionally expanding related
// summaries per opts.
func (db *Database) GetInsight(ctx context.Context, id core.ID, opts search.Options) (*search.Expanded, error) {
	return db.searcher.GetById(ctx, id, opts)
}

// FindSimilar returns the insights nearest the given one by embedding
// distance.
func (db *Database) FindSimilar(ctx context.Context, id core.ID, limit int) ([]*core.SimilarInsight, error) {
	return db.searcher.FindSimilar(ctx, id, limit)
}

// SeedPatterns loads entries into the pattern library. Ids derive from
// signatures, so reseeding the same set is idempotent.
func (db *Database) SeedPatterns(ctx context.Context, patterns ...*core.PatternRecord) ([]*core.PatternRecord, error) {
	return db.patterns.AddPatterns(ctx, patterns...)
}

// NewWorkerPool builds a worker pool that claims queued tasks and runs the
// derivation handler against them. The caller starts and stops it.
func (db *Database) NewWorkerPool(opts ...queue.WorkerOption) (*queue.WorkerPool, error) {
	return queue.NewWorkerPool(db.queue, db.DerivationHandler(), opts...)
}

func (db *Database) TaskRepository() storage.TaskRepository {
	return db.tasks
}

func (db *Database) InsightRepository() storage.InsightRepository {
	return db.insights
}

func (db *Database) TechnologyUsageRepository() storage.TechnologyUsageRepository {
	return db.usage
}

func (db *Database) PatternRepository() storage.PatternRepository {
	return db.patterns
}

func (db *Database) Queue() *queue.Queue {
	return db.queue
}

func (db *Database) Searcher() *search.Searcher {
	return db.searcher
}
