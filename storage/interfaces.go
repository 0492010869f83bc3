package storage

import (
	"context"
	"time"

	"github.com/poiesic/derivit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// TaskRepository provides operations for the durable task queue.
//
// ClaimNext and ReapTask are the only operations that move ownership; all
// other status transitions go through UpdateTask and assume the caller holds
// ownership.
type TaskRepository interface {
	Repository

	// AddTask persists a new task. For tasks with ID=0, generates a new ID
	// from sequence and sets CreatedAt. Returns the task with the generated
	// ID populated.
	AddTask(ctx context.Context, task *core.Task) (*core.Task, error)

	// GetTask retrieves a task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id core.ID) (*core.Task, error)

	// UpdateTask overwrites an existing task and maintains index entries.
	// Returns ErrNotFound if the task doesn't exist.
	UpdateTask(ctx context.Context, task *core.Task) (*core.Task, error)

	// ClaimNext atomically claims the most eligible pending task: highest
	// priority first, oldest creation time within a priority band, skipping
	// tasks with ScheduledFor in the future. The claimed task transitions to
	// processing with the given owner, StartedAt=now, and a lease expiring
	// at now+lease. Returns nil, nil when no eligible task exists.
	//
	// Mutual exclusion: concurrent callers never receive the same task. A
	// task contended by two claimers is won by exactly one; the loser moves
	// on to the next candidate.
	ClaimNext(ctx context.Context, processorId string, now time.Time, lease time.Duration) (*core.Task, error)

	// ExpiredLeases returns processing tasks whose lease expired at or
	// before now. Used by the reaper to requeue work lost to crashed
	// workers.
	ExpiredLeases(ctx context.Context, now time.Time) ([]*core.Task, error)

	// ReapTask applies a requeue-or-fail transition to an expired-lease
	// processing task. The stored record is re-read and verified inside the
	// write transaction: if it is no longer processing, or its lease has not
	// expired at now, the task moved on since it was observed and
	// ErrNotClaimable is returned without writing.
	ReapTask(ctx context.Context, task *core.Task, now time.Time) (*core.Task, error)

	// TasksCreatedSince returns tasks with CreatedAt >= since, ordered by
	// creation time ascending. Used for stats aggregation.
	TasksCreatedSince(ctx context.Context, since time.Time) ([]*core.Task, error)
}

// InsightRepository provides persistence and lookup for insight records.
type InsightRepository interface {
	Repository

	// AddInsights persists one or more insights. For insights with ID=0,
	// generates new IDs from sequence. Sets CreatedAt/UpdatedAt if unset.
	// Returns the insights with generated IDs populated.
	AddInsights(ctx context.Context, insights ...*core.Insight) ([]*core.Insight, error)

	// UpdateInsights updates existing insights, refreshing UpdatedAt.
	// Returns ErrNotFound if any insight doesn't exist.
	UpdateInsights(ctx context.Context, insights ...*core.Insight) ([]*core.Insight, error)

	// GetInsight retrieves a single insight by ID.
	// Returns ErrNotFound if the insight doesn't exist.
	GetInsight(ctx context.Context, id core.ID) (*core.Insight, error)

	// GetInsights retrieves multiple insights by their IDs.
	// Returns only the insights that exist (no error for missing insights).
	GetInsights(ctx context.Context, ids ...core.ID) ([]*core.Insight, error)

	// GetInsightsByProject retrieves all insights associated with a project.
	GetInsightsByProject(ctx context.Context, projectId string) ([]*core.Insight, error)

	// AllInsights iterates every stored insight, invoking fn for each.
	// Iteration stops when fn returns false or an error.
	AllInsights(ctx context.Context, fn func(*core.Insight) (bool, error)) error

	// FindSimilar finds insights whose embedding is nearest the given
	// vector by cosine distance, ascending. Insights without an embedding
	// and the excluded ID are skipped.
	FindSimilar(ctx context.Context, vector []float32, exclude core.ID, limit int) ([]*core.SimilarInsight, error)
}

// TechnologyUsageRepository tracks aggregate technology usage.
// Semantics are merge-only; records are never deleted by this subsystem.
type TechnologyUsageRepository interface {
	Repository

	// RecordUsage upserts the usage aggregate for (name, category):
	// increments the occurrence count, merges the project association, and
	// refreshes LastSeenAt. Returns the updated aggregate.
	RecordUsage(ctx context.Context, name, category, projectId string, at time.Time) (*core.TechnologyUsage, error)

	// GetUsage retrieves the aggregate for (name, category).
	// Returns ErrNotFound if no usage has been recorded.
	GetUsage(ctx context.Context, name, category string) (*core.TechnologyUsage, error)

	// AllUsage returns every usage aggregate.
	AllUsage(ctx context.Context) ([]*core.TechnologyUsage, error)
}

// PatternRepository provides read access to the pattern library consulted
// by the pattern-matching enricher, plus seeding for operators.
type PatternRepository interface {
	Repository

	// AddPatterns seeds or updates pattern library entries. IDs are derived
	// from signatures (content-based), so reseeding is idempotent.
	AddPatterns(ctx context.Context, patterns ...*core.PatternRecord) ([]*core.PatternRecord, error)

	// GetPattern retrieves a pattern by ID.
	// Returns ErrNotFound if the pattern doesn't exist.
	GetPattern(ctx context.Context, id core.ID) (*core.PatternRecord, error)

	// FindByCategory returns all patterns in a category.
	FindByCategory(ctx context.Context, category string) ([]*core.PatternRecord, error)

	// FindRelevant returns patterns whose category, tags, or keywords
	// overlap the given category, technology names, or content tokens,
	// ordered by descending keyword relevance.
	FindRelevant(ctx context.Context, category string, technologies []string, content string, limit int) ([]*core.PatternRecord, error)
}
