package badger

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/poiesic/derivit/core"
)

// Key prefixes for different data types
const (
	taskRecordPrefix      = "tskrec"
	taskPendingPrefix     = "tskpnd"
	taskLeasePrefix       = "tsklse"
	taskCreatedPrefix     = "tskcrt"
	taskIDSeq             = "tskseq"
	insightRecordPrefix   = "insrec"
	insightProjectPrefix  = "insprj"
	insightCreatedPrefix  = "inscrt"
	insightIDSeq          = "insseq"
	techUsagePrefix       = "tecrec"
	patternRecordPrefix   = "patrec"
	patternCategoryPrefix = "patcat"
)

// makeTaskKey generates a key for a task record by ID.
func makeTaskKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", taskRecordPrefix, id))
}

// makeTaskPendingKey generates a composite key for the pending-task index.
// Format: prefix:invertedPriority:createdAt:id, all BigEndian so ascending
// lexicographic order yields highest priority first, FIFO within a band.
func makeTaskPendingKey(priority int, createdAt time.Time, id core.ID) []byte {
	prefix := taskPendingPrefix + ":"
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	// Invert priority so higher priorities sort before lower ones.
	binary.BigEndian.PutUint64(buf[offset:], uint64(math.MaxInt64-int64(priority)))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTaskLeaseKey generates a composite key for the lease-expiry index.
// Format: prefix:leaseExpiresAt:id
func makeTaskLeaseKey(leaseExpiresAt time.Time, id core.ID) []byte {
	prefix := taskLeasePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(leaseExpiresAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTaskLeaseKey generates a partial key for lease range scans.
func makePartialTaskLeaseKey(leaseExpiresAt time.Time) []byte {
	prefix := taskLeasePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(leaseExpiresAt.UnixMicro()))
	return buf
}

// makeTaskCreatedKey generates a composite key for the task creation index.
// Format: prefix:createdAt:id
func makeTaskCreatedKey(createdAt time.Time, id core.ID) []byte {
	prefix := taskCreatedPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTaskCreatedKey generates a partial key for creation range scans.
func makePartialTaskCreatedKey(createdAt time.Time) []byte {
	prefix := taskCreatedPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return buf
}

// makeInsightKey generates a key for an insight record by ID.
func makeInsightKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", insightRecordPrefix, id))
}

// makeInsightProjectKey generates a composite key for the project index.
// Format: prefix:projectId\x00id — the NUL separator keeps one project from
// matching another project's prefix.
func makeInsightProjectKey(projectId string, id core.ID) []byte {
	prefix := insightProjectPrefix + ":"
	buf := make([]byte, len(prefix)+len(projectId)+1+8)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], projectId)
	buf[offset] = 0
	offset++
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialInsightProjectKey generates a partial key for project scans.
func makePartialInsightProjectKey(projectId string) []byte {
	prefix := insightProjectPrefix + ":"
	buf := make([]byte, len(prefix)+len(projectId)+1)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], projectId)
	buf[offset] = 0
	return buf
}

// makeInsightCreatedKey generates a composite key for the insight creation index.
func makeInsightCreatedKey(createdAt time.Time, id core.ID) []byte {
	prefix := insightCreatedPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTechUsageKey generates a key for a technology usage aggregate by ID.
// IDs are content-based from the (category, name) tuple.
func makeTechUsageKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", techUsagePrefix, id))
}

// makePatternKey generates a key for a pattern record by ID.
func makePatternKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", patternRecordPrefix, id))
}

// makePatternCategoryKey generates a composite key for the category index.
// Format: prefix:category\x00id
func makePatternCategoryKey(category string, id core.ID) []byte {
	category = strings.ToLower(category)
	prefix := patternCategoryPrefix + ":"
	buf := make([]byte, len(prefix)+len(category)+1+8)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], category)
	buf[offset] = 0
	offset++
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialPatternCategoryKey generates a partial key for category scans.
func makePartialPatternCategoryKey(category string) []byte {
	category = strings.ToLower(category)
	prefix := patternCategoryPrefix + ":"
	buf := make([]byte, len(prefix)+len(category)+1)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], category)
	buf[offset] = 0
	return buf
}
