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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidTask indicates a Task failed validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidInsight indicates an Insight failed validation.
	ErrInvalidInsight = errors.New("invalid insight")

	// ErrEmptyTaskType indicates the task Type field is empty.
	ErrEmptyTaskType = errors.New("task type cannot be empty")

	// ErrNoSourceIds indicates a task or insight has no source identifiers.
	ErrNoSourceIds = errors.New("at least one source id is required")

	// ErrInvalidTaskStatus indicates an invalid TaskStatus value.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidValidationStatus indicates an invalid ValidationStatus value.
	ErrInvalidValidationStatus = errors.New("invalid validation status")

	// ErrNegativeRetries indicates MaxRetries or RetryCount is negative.
	ErrNegativeRetries = errors.New("retry counts cannot be negative")

	// ErrEmptyInsightTitle indicates the insight Title field is empty.
	ErrEmptyInsightTitle = errors.New("insight title cannot be empty")

	// ErrEmptyInsightType indicates the insight Type field is empty.
	ErrEmptyInsightType = errors.New("insight type cannot be empty")

	// ErrScoreOutOfRange indicates a score is outside [0,1].
	ErrScoreOutOfRange = errors.New("score must be between 0 and 1")

	// ErrSupersessionCycle indicates a supersession link would create a cycle.
	ErrSupersessionCycle = errors.New("supersession would create a cycle")
)
