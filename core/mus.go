package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored record types. Written by hand against the
// mus-go primitives; field order is part of the storage format and must not
// change without a migration.

// zeroTimeMark encodes time.Time{} so IsZero survives a round trip.
const zeroTimeMark = int64(math.MinInt64)

func marshalTime(t time.Time, bs []byte) int {
	v := zeroTimeMark
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Marshal(v, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == zeroTimeMark {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func timeSize(t time.Time) int {
	v := zeroTimeMark
	if !t.IsZero() {
		v = t.UnixMicro()
	}
	return varint.Int64.Size(v)
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return
}

func stringSliceSize(v []string) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return
}

func marshalStringMap(v map[string]string, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for key, val := range v {
		n += ord.String.Marshal(key, bs[n:])
		n += ord.String.Marshal(val, bs[n:])
	}
	return
}

func unmarshalStringMap(bs []byte) (v map[string]string, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make(map[string]string, length)
	var (
		key, val string
		n1       int
	)
	for i := 0; i < length; i++ {
		key, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		val, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[key] = val
	}
	return
}

func stringMapSize(v map[string]string) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for key, val := range v {
		size += ord.String.Size(key)
		size += ord.String.Size(val)
	}
	return
}

func marshalIDSlice(v []ID, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, id := range v {
		n += varint.Uint64.Marshal(uint64(id), bs[n:])
	}
	return
}

func unmarshalIDSlice(bs []byte) (v []ID, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]ID, length)
	var (
		raw uint64
		n1  int
	)
	for i := range v {
		raw, n1, err = varint.Uint64.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = ID(raw)
	}
	return
}

func idSliceSize(v []ID) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, id := range v {
		size += varint.Uint64.Size(uint64(id))
	}
	return
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = varint.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return
}

func vectorSize(v []float32) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += varint.Float32.Size(f)
	}
	return
}

// IDMUS serializes the ID defined type.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// TaskMUS serializes Task records.
var TaskMUS = taskMUS{}

type taskMUS struct{}

func (taskMUS) Marshal(t Task, bs []byte) (n int) {
	n = IDMUS.Marshal(t.Id, bs)
	n += ord.String.Marshal(t.Type, bs[n:])
	n += varint.Int.Marshal(t.Priority, bs[n:])
	n += ord.String.Marshal(t.SourceType, bs[n:])
	n += marshalStringSlice(t.SourceIds, bs[n:])
	n += marshalStringMap(t.Payload, bs[n:])
	n += varint.Int.Marshal(int(t.Status), bs[n:])
	n += marshalTime(t.ScheduledFor, bs[n:])
	n += varint.Int.Marshal(t.RetryCount, bs[n:])
	n += varint.Int.Marshal(t.MaxRetries, bs[n:])
	n += ord.String.Marshal(t.ProcessorId, bs[n:])
	n += ord.String.Marshal(t.ErrorMessage, bs[n:])
	n += ord.String.Marshal(t.ResultSummary, bs[n:])
	n += varint.Int.Marshal(t.InsightsGenerated, bs[n:])
	n += marshalTime(t.LeaseExpiresAt, bs[n:])
	n += marshalTime(t.CreatedAt, bs[n:])
	n += marshalTime(t.StartedAt, bs[n:])
	n += marshalTime(t.CompletedAt, bs[n:])
	return
}

func (taskMUS) Unmarshal(bs []byte) (t Task, n int, err error) {
	var (
		n1     int
		status int
	)
	t.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	if t.Type, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Priority, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.SourceType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.SourceIds, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Payload, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	t.Status = TaskStatus(status)
	n += n1
	if t.ScheduledFor, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.RetryCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.MaxRetries, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.ProcessorId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.ResultSummary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.InsightsGenerated, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.LeaseExpiresAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.StartedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.CompletedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	return
}

func (taskMUS) Size(t Task) (size int) {
	size = IDMUS.Size(t.Id)
	size += ord.String.Size(t.Type)
	size += varint.Int.Size(t.Priority)
	size += ord.String.Size(t.SourceType)
	size += stringSliceSize(t.SourceIds)
	size += stringMapSize(t.Payload)
	size += varint.Int.Size(int(t.Status))
	size += timeSize(t.ScheduledFor)
	size += varint.Int.Size(t.RetryCount)
	size += varint.Int.Size(t.MaxRetries)
	size += ord.String.Size(t.ProcessorId)
	size += ord.String.Size(t.ErrorMessage)
	size += ord.String.Size(t.ResultSummary)
	size += varint.Int.Size(t.InsightsGenerated)
	size += timeSize(t.LeaseExpiresAt)
	size += timeSize(t.CreatedAt)
	size += timeSize(t.StartedAt)
	size += timeSize(t.CompletedAt)
	return
}

// technologyMUS serializes Technology entries nested in insights.
type technologyMUS struct{}

var TechnologyMUS = technologyMUS{}

func (technologyMUS) Marshal(t Technology, bs []byte) (n int) {
	n = ord.String.Marshal(t.Name, bs)
	n += ord.String.Marshal(t.Category, bs[n:])
	n += ord.String.Marshal(t.Version, bs[n:])
	n += varint.Float64.Marshal(t.Confidence, bs[n:])
	return
}

func (technologyMUS) Unmarshal(bs []byte) (t Technology, n int, err error) {
	var n1 int
	if t.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if t.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Version, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	return
}

func (technologyMUS) Size(t Technology) int {
	return ord.String.Size(t.Name) + ord.String.Size(t.Category) +
		ord.String.Size(t.Version) + varint.Float64.Size(t.Confidence)
}

// patternMatchMUS serializes PatternMatch entries nested in insights.
type patternMatchMUS struct{}

var PatternMatchMUS = patternMatchMUS{}

func (patternMatchMUS) Marshal(p PatternMatch, bs []byte) (n int) {
	n = ord.String.Marshal(p.Name, bs)
	n += ord.String.Marshal(p.Category, bs[n:])
	n += ord.String.Marshal(p.Signature, bs[n:])
	n += marshalStringSlice(p.Evidence, bs[n:])
	return
}

func (patternMatchMUS) Unmarshal(bs []byte) (p PatternMatch, n int, err error) {
	var n1 int
	if p.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if p.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.Signature, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.Evidence, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	return
}

func (patternMatchMUS) Size(p PatternMatch) int {
	return ord.String.Size(p.Name) + ord.String.Size(p.Category) +
		ord.String.Size(p.Signature) + stringSliceSize(p.Evidence)
}

// evidenceMUS serializes Evidence entries nested in insights.
type evidenceMUS struct{}

var EvidenceMUS = evidenceMUS{}

func (evidenceMUS) Marshal(e Evidence, bs []byte) (n int) {
	n = ord.String.Marshal(e.Type, bs)
	n += ord.String.Marshal(e.Content, bs[n:])
	n += ord.String.Marshal(e.Source, bs[n:])
	n += varint.Float64.Marshal(e.Confidence, bs[n:])
	return
}

func (evidenceMUS) Unmarshal(bs []byte) (e Evidence, n int, err error) {
	var n1 int
	if e.Type, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if e.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Confidence, n1, err = varint.Float64.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	return
}

func (evidenceMUS) Size(e Evidence) int {
	return ord.String.Size(e.Type) + ord.String.Size(e.Content) +
		ord.String.Size(e.Source) + varint.Float64.Size(e.Confidence)
}

// recommendationMUS serializes Recommendation entries nested in insights.
type recommendationMUS struct{}

var RecommendationMUS = recommendationMUS{}

func (recommendationMUS) Marshal(r Recommendation, bs []byte) (n int) {
	n = ord.String.Marshal(r.Text, bs)
	n += ord.String.Marshal(r.Type, bs[n:])
	n += ord.String.Marshal(r.Priority, bs[n:])
	return
}

func (recommendationMUS) Unmarshal(bs []byte) (r Recommendation, n int, err error) {
	var n1 int
	if r.Text, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if r.Type, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Priority, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	return
}

func (recommendationMUS) Size(r Recommendation) int {
	return ord.String.Size(r.Text) + ord.String.Size(r.Type) + ord.String.Size(r.Priority)
}

// InsightMUS serializes Insight records.
var InsightMUS = insightMUS{}

type insightMUS struct{}

func (insightMUS) Marshal(in Insight, bs []byte) (n int) {
	n = IDMUS.Marshal(in.Id, bs)
	n += ord.String.Marshal(in.Type, bs[n:])
	n += ord.String.Marshal(in.Category, bs[n:])
	n += ord.String.Marshal(in.Subcategory, bs[n:])
	n += ord.String.Marshal(in.Title, bs[n:])
	n += ord.String.Marshal(in.Summary, bs[n:])
	n += marshalStringMap(in.DetailedContent, bs[n:])
	n += ord.String.Marshal(in.SourceType, bs[n:])
	n += marshalStringSlice(in.SourceIds, bs[n:])
	n += ord.String.Marshal(in.DetectionMethod, bs[n:])
	n += varint.Float64.Marshal(in.ConfidenceScore, bs[n:])
	n += varint.Float64.Marshal(in.RelevanceScore, bs[n:])
	n += varint.Float64.Marshal(in.ImpactScore, bs[n:])
	n += ord.String.Marshal(in.ProjectId, bs[n:])
	n += marshalStringSlice(in.Tags, bs[n:])
	n += varint.PositiveInt.Marshal(len(in.Technologies), bs[n:])
	for _, tech := range in.Technologies {
		n += TechnologyMUS.Marshal(tech, bs[n:])
	}
	n += varint.PositiveInt.Marshal(len(in.Patterns), bs[n:])
	for _, pattern := range in.Patterns {
		n += PatternMatchMUS.Marshal(pattern, bs[n:])
	}
	n += varint.PositiveInt.Marshal(len(in.Evidence), bs[n:])
	for _, ev := range in.Evidence {
		n += EvidenceMUS.Marshal(ev, bs[n:])
	}
	n += varint.PositiveInt.Marshal(len(in.Recommendations), bs[n:])
	for _, rec := range in.Recommendations {
		n += RecommendationMUS.Marshal(rec, bs[n:])
	}
	n += marshalIDSlice(in.RelatedInsightIds, bs[n:])
	n += marshalIDSlice(in.ContradictsInsightIds, bs[n:])
	n += IDMUS.Marshal(in.SupersedesInsightId, bs[n:])
	n += varint.Int.Marshal(int(in.ValidationStatus), bs[n:])
	n += marshalVector(in.Vector, bs[n:])
	n += marshalTime(in.CreatedAt, bs[n:])
	n += marshalTime(in.UpdatedAt, bs[n:])
	return
}

func (insightMUS) Unmarshal(bs []byte) (in Insight, n int, err error) {
	var (
		n1     int
		length int
		status int
	)
	in.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	for _, field := range []*string{
		&in.Type, &in.Category, &in.Subcategory, &in.Title, &in.Summary,
	} {
		if *field, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return in, n + n1, err
		}
		n += n1
	}
	if in.DetailedContent, n1, err = unmarshalStringMap(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.SourceType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.SourceIds, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.DetectionMethod, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	for _, field := range []*float64{
		&in.ConfidenceScore, &in.RelevanceScore, &in.ImpactScore,
	} {
		if *field, n1, err = varint.Float64.Unmarshal(bs[n:]); err != nil {
			return in, n + n1, err
		}
		n += n1
	}
	if in.ProjectId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.Tags, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if length > 0 {
		in.Technologies = make([]Technology, length)
		for i := range in.Technologies {
			if in.Technologies[i], n1, err = TechnologyMUS.Unmarshal(bs[n:]); err != nil {
				return in, n + n1, err
			}
			n += n1
		}
	}
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if length > 0 {
		in.Patterns = make([]PatternMatch, length)
		for i := range in.Patterns {
			if in.Patterns[i], n1, err = PatternMatchMUS.Unmarshal(bs[n:]); err != nil {
				return in, n + n1, err
			}
			n += n1
		}
	}
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if length > 0 {
		in.Evidence = make([]Evidence, length)
		for i := range in.Evidence {
			if in.Evidence[i], n1, err = EvidenceMUS.Unmarshal(bs[n:]); err != nil {
				return in, n + n1, err
			}
			n += n1
		}
	}
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if length > 0 {
		in.Recommendations = make([]Recommendation, length)
		for i := range in.Recommendations {
			if in.Recommendations[i], n1, err = RecommendationMUS.Unmarshal(bs[n:]); err != nil {
				return in, n + n1, err
			}
			n += n1
		}
	}
	if in.RelatedInsightIds, n1, err = unmarshalIDSlice(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.ContradictsInsightIds, n1, err = unmarshalIDSlice(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.SupersedesInsightId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return in, n + n1, err
	}
	in.ValidationStatus = ValidationStatus(status)
	n += n1
	if in.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	if in.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return in, n + n1, err
	}
	n += n1
	return
}

func (insightMUS) Size(in Insight) (size int) {
	size = IDMUS.Size(in.Id)
	size += ord.String.Size(in.Type)
	size += ord.String.Size(in.Category)
	size += ord.String.Size(in.Subcategory)
	size += ord.String.Size(in.Title)
	size += ord.String.Size(in.Summary)
	size += stringMapSize(in.DetailedContent)
	size += ord.String.Size(in.SourceType)
	size += stringSliceSize(in.SourceIds)
	size += ord.String.Size(in.DetectionMethod)
	size += varint.Float64.Size(in.ConfidenceScore)
	size += varint.Float64.Size(in.RelevanceScore)
	size += varint.Float64.Size(in.ImpactScore)
	size += ord.String.Size(in.ProjectId)
	size += stringSliceSize(in.Tags)
	size += varint.PositiveInt.Size(len(in.Technologies))
	for _, tech := range in.Technologies {
		size += TechnologyMUS.Size(tech)
	}
	size += varint.PositiveInt.Size(len(in.Patterns))
	for _, pattern := range in.Patterns {
		size += PatternMatchMUS.Size(pattern)
	}
	size += varint.PositiveInt.Size(len(in.Evidence))
	for _, ev := range in.Evidence {
		size += EvidenceMUS.Size(ev)
	}
	size += varint.PositiveInt.Size(len(in.Recommendations))
	for _, rec := range in.Recommendations {
		size += RecommendationMUS.Size(rec)
	}
	size += idSliceSize(in.RelatedInsightIds)
	size += idSliceSize(in.ContradictsInsightIds)
	size += IDMUS.Size(in.SupersedesInsightId)
	size += varint.Int.Size(int(in.ValidationStatus))
	size += vectorSize(in.Vector)
	size += timeSize(in.CreatedAt)
	size += timeSize(in.UpdatedAt)
	return
}

// TechnologyUsageMUS serializes TechnologyUsage records.
var TechnologyUsageMUS = technologyUsageMUS{}

type technologyUsageMUS struct{}

func (technologyUsageMUS) Marshal(t TechnologyUsage, bs []byte) (n int) {
	n = IDMUS.Marshal(t.Id, bs)
	n += ord.String.Marshal(t.Name, bs[n:])
	n += ord.String.Marshal(t.Category, bs[n:])
	n += varint.Int.Marshal(t.TotalOccurrences, bs[n:])
	n += varint.PositiveInt.Marshal(len(t.Projects), bs[n:])
	for _, p := range t.Projects {
		n += ord.String.Marshal(p.ProjectId, bs[n:])
		n += marshalTime(p.LastUsed, bs[n:])
	}
	n += marshalTime(t.LastSeenAt, bs[n:])
	n += marshalTime(t.InsertedAt, bs[n:])
	n += marshalTime(t.UpdatedAt, bs[n:])
	return
}

func (technologyUsageMUS) Unmarshal(bs []byte) (t TechnologyUsage, n int, err error) {
	var (
		n1     int
		length int
	)
	t.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	if t.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.TotalOccurrences, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if length > 0 {
		t.Projects = make([]ProjectUse, length)
		for i := range t.Projects {
			if t.Projects[i].ProjectId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return t, n + n1, err
			}
			n += n1
			if t.Projects[i].LastUsed, n1, err = unmarshalTime(bs[n:]); err != nil {
				return t, n + n1, err
			}
			n += n1
		}
	}
	if t.LastSeenAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	if t.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return t, n + n1, err
	}
	n += n1
	return
}

func (technologyUsageMUS) Size(t TechnologyUsage) (size int) {
	size = IDMUS.Size(t.Id)
	size += ord.String.Size(t.Name)
	size += ord.String.Size(t.Category)
	size += varint.Int.Size(t.TotalOccurrences)
	size += varint.PositiveInt.Size(len(t.Projects))
	for _, p := range t.Projects {
		size += ord.String.Size(p.ProjectId)
		size += timeSize(p.LastUsed)
	}
	size += timeSize(t.LastSeenAt)
	size += timeSize(t.InsertedAt)
	size += timeSize(t.UpdatedAt)
	return
}

// PatternRecordMUS serializes PatternRecord entries.
var PatternRecordMUS = patternRecordMUS{}

type patternRecordMUS struct{}

func (patternRecordMUS) Marshal(p PatternRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(p.Id, bs)
	n += ord.String.Marshal(p.Name, bs[n:])
	n += ord.String.Marshal(p.Category, bs[n:])
	n += ord.String.Marshal(p.Signature, bs[n:])
	n += ord.String.Marshal(p.PatternType, bs[n:])
	n += varint.Float64.Marshal(p.ConfidenceScore, bs[n:])
	n += varint.Int.Marshal(p.FrequencyCount, bs[n:])
	n += marshalStringSlice(p.Tags, bs[n:])
	n += marshalStringSlice(p.RelatedPatterns, bs[n:])
	n += marshalStringSlice(p.Keywords, bs[n:])
	n += marshalTime(p.InsertedAt, bs[n:])
	n += marshalTime(p.UpdatedAt, bs[n:])
	return
}

func (patternRecordMUS) Unmarshal(bs []byte) (p PatternRecord, n int, err error) {
	var n1 int
	p.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	for _, field := range []*string{
		&p.Name, &p.Category, &p.Signature, &p.PatternType,
	} {
		if *field, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return p, n + n1, err
		}
		n += n1
	}
	if p.ConfidenceScore, n1, err = varint.Float64.Unmarshal(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.FrequencyCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.Tags, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.RelatedPatterns, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.Keywords, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	return
}

func (patternRecordMUS) Size(p PatternRecord) (size int) {
	size = IDMUS.Size(p.Id)
	size += ord.String.Size(p.Name)
	size += ord.String.Size(p.Category)
	size += ord.String.Size(p.Signature)
	size += ord.String.Size(p.PatternType)
	size += varint.Float64.Size(p.ConfidenceScore)
	size += varint.Int.Size(p.FrequencyCount)
	size += stringSliceSize(p.Tags)
	size += stringSliceSize(p.RelatedPatterns)
	size += stringSliceSize(p.Keywords)
	size += timeSize(p.InsertedAt)
	size += timeSize(p.UpdatedAt)
	return
}
