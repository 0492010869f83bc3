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

import "fmt"

// ValidateTask validates a Task according to domain rules.
//
// Validation rules:
//   - Type must not be empty
//   - At least one SourceId is required
//   - RetryCount and MaxRetries must not be negative
//   - Status, when set, must be a known TaskStatus
//
// NOT validated (populated by the queue):
//   - ID (0 is valid before enqueue)
//   - Priority (defaulted on enqueue)
//   - ScheduledFor (defaulted on enqueue)
func ValidateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}

	if task.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrEmptyTaskType)
	}

	if len(task.SourceIds) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrNoSourceIds)
	}

	if task.RetryCount < 0 || task.MaxRetries < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTask, ErrNegativeRetries)
	}

	if task.Status != 0 {
		if err := ValidateTaskStatus(task.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTask, err)
		}
	}

	return nil
}

// ValidateInsight validates an Insight according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - Type must not be empty
//   - Confidence, relevance, and impact scores must be in [0,1]
//   - ValidationStatus, when set, must be a known value
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding processor runs)
//   - Technologies / Patterns / RelatedInsightIds (populated by enrichers)
//   - ID (0 is valid from database sequences)
func ValidateInsight(insight *Insight) error {
	if insight == nil {
		return fmt.Errorf("%w: insight is nil", ErrInvalidInsight)
	}

	if insight.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrEmptyInsightTitle)
	}

	if insight.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrEmptyInsightType)
	}

	for _, score := range []float64{insight.ConfidenceScore, insight.RelevanceScore, insight.ImpactScore} {
		if score < 0 || score > 1 {
			return fmt.Errorf("%w: %w: %g", ErrInvalidInsight, ErrScoreOutOfRange, score)
		}
	}

	if insight.ValidationStatus != 0 {
		if err := ValidateValidationStatus(insight.ValidationStatus); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInsight, err)
		}
	}

	return nil
}

// ValidateTaskStatus validates that a TaskStatus has a valid value.
func ValidateTaskStatus(status TaskStatus) error {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidTaskStatus, status)
	}
}

// ValidateValidationStatus validates that a ValidationStatus has a valid value.
func ValidateValidationStatus(status ValidationStatus) error {
	switch status {
	case ValidationPending, ValidationValidated, ValidationSuperseded:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidValidationStatus, status)
	}
}
