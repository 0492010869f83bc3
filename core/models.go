package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TaskStatus identifies where a task is in its lifecycle.
type TaskStatus int

const (
	// TaskStatusPending means the task is waiting to be claimed.
	TaskStatusPending TaskStatus = iota + 1
	// TaskStatusProcessing means a worker holds exclusive ownership of the task.
	TaskStatusProcessing
	// TaskStatusCompleted is the terminal success state.
	TaskStatusCompleted
	// TaskStatusFailed is the terminal failure state, entered after MaxRetries is exhausted.
	TaskStatusFailed
)

// String returns the lowercase name of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusProcessing:
		return "processing"
	case TaskStatusCompleted:
		return "completed"
	case TaskStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ValidationStatus identifies the validation state of an insight.
type ValidationStatus int

const (
	// ValidationPending means the insight has not been reviewed or replaced.
	ValidationPending ValidationStatus = iota + 1
	// ValidationValidated means the insight was confirmed by a reviewer.
	ValidationValidated
	// ValidationSuperseded means a newer, higher-confidence insight replaced this one.
	ValidationSuperseded
)

// String returns the lowercase name of the status.
func (s ValidationStatus) String() string {
	switch s {
	case ValidationPending:
		return "pending"
	case ValidationValidated:
		return "validated"
	case ValidationSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Task is a unit of insight-derivation work held in the durable queue.
// A task references one or more source records and is claimed by exactly
// one worker per attempt.
type Task struct {
	Id                ID
	Type              string // e.g. "thinking_sequence_insights"
	Priority          int    // higher = claimed sooner; default 5
	SourceType        string
	SourceIds         []string          // ordered foreign identifiers
	Payload           map[string]string // opaque structured data
	Status            TaskStatus
	ScheduledFor      time.Time // earliest claim time; supports delayed retry
	RetryCount        int
	MaxRetries        int
	ProcessorId       string // owner while processing
	ErrorMessage      string
	ResultSummary     string
	InsightsGenerated int
	LeaseExpiresAt    time.Time // claim lease; expired processing tasks are requeued
	CreatedAt         time.Time
	StartedAt         time.Time
	CompletedAt       time.Time
}

// Technology is a technology detected in an insight's source content.
// Identity is the (Name, Category) pair.
type Technology struct {
	Name       string
	Category   string // language, framework, database, cloud, tool, library
	Version    string
	Confidence float64
}

// PatternMatch records a pattern-library match attached to an insight.
// Identity is the Signature.
type PatternMatch struct {
	Name      string
	Category  string
	Signature string
	Evidence  []string
}

// Evidence is a supporting observation attached to an insight.
type Evidence struct {
	Type       string
	Content    string
	Source     string
	Confidence float64
}

// Recommendation is an actionable suggestion derived during enrichment.
type Recommendation struct {
	Text     string
	Type     string
	Priority string // low, medium, high
}

// Insight is a derived, classified, confidence-scored record summarizing a
// pattern, technology usage fact, or relationship found in source records.
// It is created as a draft by the pipeline, mutated in place by each
// enricher stage, and persisted once the chain completes.
type Insight struct {
	Id              ID
	Type            string
	Category        string
	Subcategory     string
	Title           string
	Summary         string
	DetailedContent map[string]string

	SourceType      string
	SourceIds       []string
	DetectionMethod string

	ConfidenceScore float64 // clamped to [0,1]
	RelevanceScore  float64 // clamped to [0,1]
	ImpactScore     float64 // clamped to [0,1]

	ProjectId       string
	Tags            []string       // case-normalized set
	Technologies    []Technology   // deduplicated by (Name, Category)
	Patterns        []PatternMatch // deduplicated by Signature
	Evidence        []Evidence
	Recommendations []Recommendation

	RelatedInsightIds     []ID
	ContradictsInsightIds []ID
	// SupersedesInsightId is set on a superseded insight and points at the
	// newer insight that replaced it. The resulting link chain forms a DAG.
	SupersedesInsightId ID
	ValidationStatus    ValidationStatus

	Vector []float32 // embedding for nearest-neighbor search (populated by processors)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddTag adds a case-normalized tag, skipping duplicates.
// Reports whether the tag was added.
func (in *Insight) AddTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	for _, existing := range in.Tags {
		if existing == tag {
			return false
		}
	}
	in.Tags = append(in.Tags, tag)
	return true
}

// HasTag reports whether the insight carries the given tag (case-insensitive).
func (in *Insight) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, existing := range in.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// AddTechnology adds a technology entry, deduplicating by (Name, Category)
// case-insensitively against entries already present.
// Reports whether the entry was added.
func (in *Insight) AddTechnology(tech Technology) bool {
	name := strings.ToLower(strings.TrimSpace(tech.Name))
	category := strings.ToLower(strings.TrimSpace(tech.Category))
	if name == "" {
		return false
	}
	for _, existing := range in.Technologies {
		if strings.ToLower(existing.Name) == name && strings.ToLower(existing.Category) == category {
			return false
		}
	}
	in.Technologies = append(in.Technologies, tech)
	return true
}

// HasTechnology reports whether a technology with the given name is present,
// in any category.
func (in *Insight) HasTechnology(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, existing := range in.Technologies {
		if strings.ToLower(existing.Name) == name {
			return true
		}
	}
	return false
}

// AddPattern adds a pattern match, deduplicating by signature.
// Reports whether the entry was added.
func (in *Insight) AddPattern(pattern PatternMatch) bool {
	if pattern.Signature == "" {
		return false
	}
	for _, existing := range in.Patterns {
		if existing.Signature == pattern.Signature {
			return false
		}
	}
	in.Patterns = append(in.Patterns, pattern)
	return true
}

// AddRelatedInsight adds an entry to RelatedInsightIds, skipping duplicates
// and self-references. Reports whether the entry was added.
func (in *Insight) AddRelatedInsight(id ID) bool {
	if id == 0 || id == in.Id {
		return false
	}
	for _, existing := range in.RelatedInsightIds {
		if existing == id {
			return false
		}
	}
	in.RelatedInsightIds = append(in.RelatedInsightIds, id)
	return true
}

// AddContradiction adds an entry to ContradictsInsightIds, skipping
// duplicates and self-references. Reports whether the entry was added.
func (in *Insight) AddContradiction(id ID) bool {
	if id == 0 || id == in.Id {
		return false
	}
	for _, existing := range in.ContradictsInsightIds {
		if existing == id {
			return false
		}
	}
	in.ContradictsInsightIds = append(in.ContradictsInsightIds, id)
	return true
}

// AddEvidence appends an evidence entry.
func (in *Insight) AddEvidence(ev Evidence) {
	in.Evidence = append(in.Evidence, ev)
}

// AddRecommendation appends a recommendation.
func (in *Insight) AddRecommendation(rec Recommendation) {
	in.Recommendations = append(in.Recommendations, rec)
}

// ClampScores clamps confidence, relevance, and impact scores to [0,1].
func (in *Insight) ClampScores() {
	in.ConfidenceScore = clamp01(in.ConfidenceScore)
	in.RelevanceScore = clamp01(in.RelevanceScore)
	in.ImpactScore = clamp01(in.ImpactScore)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ProjectUse records when a technology was last seen in a project.
type ProjectUse struct {
	ProjectId string
	LastUsed  time.Time
}

// TechnologyUsage is a derived aggregate tracking where and how often a
// technology appears across insights. Keyed by the (Name, Category) tuple;
// semantics are purely additive and entries are never deleted.
type TechnologyUsage struct {
	Id               ID // IDFromContent of Tuple()
	Name             string
	Category         string
	TotalOccurrences int
	Projects         []ProjectUse
	LastSeenAt       time.Time
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// Tuple returns a string representation of the usage key as "(Category,Name)".
// This is used for generating deterministic IDs.
func (t *TechnologyUsage) Tuple() string {
	return "(" + strings.ToLower(t.Category) + "," + strings.ToLower(t.Name) + ")"
}

// ProjectCount returns the number of distinct projects the technology was seen in.
func (t *TechnologyUsage) ProjectCount() int {
	return len(t.Projects)
}

// MergeProject merges a project association, refreshing LastUsed when the
// project is already known.
func (t *TechnologyUsage) MergeProject(projectId string, at time.Time) {
	if projectId == "" {
		return
	}
	for i := range t.Projects {
		if t.Projects[i].ProjectId == projectId {
			if at.After(t.Projects[i].LastUsed) {
				t.Projects[i].LastUsed = at
			}
			return
		}
	}
	t.Projects = append(t.Projects, ProjectUse{ProjectId: projectId, LastUsed: at})
}

// PatternRecord is an entry in the read-only pattern library consulted by
// the pattern-matching enricher.
type PatternRecord struct {
	Id              ID // IDFromContent of Signature
	Name            string
	Category        string
	Signature       string
	PatternType     string // "best_practice", "anti_pattern", ...
	ConfidenceScore float64
	FrequencyCount  int
	Tags            []string
	RelatedPatterns []string
	Keywords        []string // matched against source content
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// IsAntiPattern reports whether the pattern is flagged as an anti-pattern.
func (p *PatternRecord) IsAntiPattern() bool {
	return p.PatternType == "anti_pattern"
}

// QueueStats summarizes task queue state over a trailing window.
type QueueStats struct {
	Pending            int
	Processing         int
	Completed          int
	Failed             int
	AvgDurationSeconds float64
}

// SimilarInsight is a nearest-neighbor match from embedding distance search.
type SimilarInsight struct {
	Id         ID
	Title      string
	Summary    string
	Type       string
	Category   string
	Confidence float64
	Distance   float64 // cosine distance, ascending = more similar
}
