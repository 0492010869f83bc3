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


package storage

import (
	"github.com/poiesic/derivit/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalTask serializes a Task to bytes.
func MarshalTask(task *core.Task) []byte {
	buf := make([]byte, core.TaskMUS.Size(*task))
	core.TaskMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalTask deserializes a Task from bytes.
func UnmarshalTask(data []byte) (*core.Task, error) {
	task, _, err := core.TaskMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarshalInsight serializes an Insight to bytes.
func MarshalInsight(insight *core.Insight) []byte {
	buf := make([]byte, core.InsightMUS.Size(*insight))
	core.InsightMUS.Marshal(*insight, buf)
	return buf
}

// UnmarshalInsight deserializes an Insight from bytes.
func UnmarshalInsight(data []byte) (*core.Insight, error) {
	insight, _, err := core.InsightMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &insight, nil
}

// MarshalTechnologyUsage serializes a TechnologyUsage to bytes.
func MarshalTechnologyUsage(usage *core.TechnologyUsage) []byte {
	buf := make([]byte, core.TechnologyUsageMUS.Size(*usage))
	core.TechnologyUsageMUS.Marshal(*usage, buf)
	return buf
}

// UnmarshalTechnologyUsage deserializes a TechnologyUsage from bytes.
func UnmarshalTechnologyUsage(data []byte) (*core.TechnologyUsage, error) {
	usage, _, err := core.TechnologyUsageMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// MarshalPatternRecord serializes a PatternRecord to bytes.
func MarshalPatternRecord(pattern *core.PatternRecord) []byte {
	buf := make([]byte, core.PatternRecordMUS.Size(*pattern))
	core.PatternRecordMUS.Marshal(*pattern, buf)
	return buf
}

// UnmarshalPatternRecord deserializes a PatternRecord from bytes.
func UnmarshalPatternRecord(data []byte) (*core.PatternRecord, error) {
	pattern, _, err := core.PatternRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}
