package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskMUS_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	task := Task{
		Id:             101,
		Type:           "thinking_sequence_insights",
		Priority:       9,
		SourceType:     "thinking_sequence",
		SourceIds:      []string{"seq-1", "seq-2"},
		Payload:        map[string]string{"projectId": "proj-a"},
		Status:         TaskStatusPending,
		ScheduledFor:   now,
		RetryCount:     1,
		MaxRetries:     3,
		ProcessorId:    "worker-1",
		ErrorMessage:   "timeout",
		LeaseExpiresAt: now.Add(10 * time.Minute),
		CreatedAt:      now.Add(-time.Hour),
		// StartedAt and CompletedAt deliberately zero
	}

	bs := make([]byte, TaskMUS.Size(task))
	n := TaskMUS.Marshal(task, bs)
	require.Equal(t, len(bs), n, "Marshal must fill exactly Size bytes")

	got, n, err := TaskMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, task, got)
	assert.True(t, got.StartedAt.IsZero(), "zero time must survive the round trip")
}

func TestInsightMUS_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	insight := Insight{
		Id:              7,
		Type:            "pattern",
		Category:        "caching",
		Subcategory:     "invalidation",
		Title:           "Cache-aside with explicit invalidation",
		Summary:         "The project uses cache-aside reads with write-through invalidation.",
		DetailedContent: map[string]string{"observation": "redis used for session cache"},
		SourceType:      "thinking_sequence",
		SourceIds:       []string{"seq-1"},
		DetectionMethod: "pattern_matching",
		ConfidenceScore: 0.9,
		RelevanceScore:  0.7,
		ImpactScore:     0.4,
		ProjectId:       "proj-a",
		Tags:            []string{"caching", "tech:redis"},
		Technologies: []Technology{
			{Name: "Redis", Category: "database", Version: "7", Confidence: 0.8},
		},
		Patterns: []PatternMatch{
			{Name: "Cache Aside", Category: "caching", Signature: "cache-aside-v1", Evidence: []string{"matched keywords"}},
		},
		Evidence: []Evidence{
			{Type: "pattern_match", Content: "cache-aside detected", Source: "seq-1", Confidence: 0.8},
		},
		Recommendations: []Recommendation{
			{Text: "Review cache TTLs", Type: "pattern", Priority: "medium"},
		},
		RelatedInsightIds:     []ID{3, 5},
		ContradictsInsightIds: []ID{9},
		SupersedesInsightId:   0,
		ValidationStatus:      ValidationPending,
		Vector:                []float32{0.1, 0.2, 0.3},
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	bs := make([]byte, InsightMUS.Size(insight))
	n := InsightMUS.Marshal(insight, bs)
	require.Equal(t, len(bs), n, "Marshal must fill exactly Size bytes")

	got, n, err := InsightMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, len(bs), n)
	assert.Equal(t, insight, got)
}

func TestTechnologyUsageMUS_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	usage := TechnologyUsage{
		Id:               IDFromContent("(database,redis)"),
		Name:             "redis",
		Category:         "database",
		TotalOccurrences: 12,
		Projects: []ProjectUse{
			{ProjectId: "proj-a", LastUsed: now},
		},
		LastSeenAt: now,
		InsertedAt: now.Add(-48 * time.Hour),
		UpdatedAt:  now,
	}

	bs := make([]byte, TechnologyUsageMUS.Size(usage))
	n := TechnologyUsageMUS.Marshal(usage, bs)
	require.Equal(t, len(bs), n)

	got, _, err := TechnologyUsageMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, usage, got)
}

func TestPatternRecordMUS_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pattern := PatternRecord{
		Id:              IDFromContent("n-plus-one-query-v1"),
		Name:            "N+1 Query",
		Category:        "database",
		Signature:       "n-plus-one-query-v1",
		PatternType:     "anti_pattern",
		ConfidenceScore: 0.85,
		FrequencyCount:  40,
		Tags:            []string{"performance", "orm"},
		RelatedPatterns: []string{"eager-loading-v1"},
		Keywords:        []string{"n+1", "query in loop"},
		InsertedAt:      now,
		UpdatedAt:       now,
	}

	bs := make([]byte, PatternRecordMUS.Size(pattern))
	n := PatternRecordMUS.Marshal(pattern, bs)
	require.Equal(t, len(bs), n)

	got, _, err := PatternRecordMUS.Unmarshal(bs)
	require.NoError(t, err)
	assert.Equal(t, pattern, got)
}

func TestTaskMUS_TruncatedData(t *testing.T) {
	task := Task{Type: "t", SourceIds: []string{"a"}}
	bs := make([]byte, TaskMUS.Size(task))
	TaskMUS.Marshal(task, bs)

	_, _, err := TaskMUS.Unmarshal(bs[:2])
	assert.Error(t, err, "truncated input must not unmarshal cleanly")
}
