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


package queue

import "errors"

var (
	// ErrTaskRepositoryRequired indicates a nil task repository was provided.
	ErrTaskRepositoryRequired = errors.New("task repository is required")

	// ErrHandlerRequired indicates a nil task handler was provided.
	ErrHandlerRequired = errors.New("task handler is required")

	// ErrInvalidMaxAttempts indicates maxAttempts was not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNotOwner indicates a status transition was attempted by a processor
	// that does not own the task.
	ErrNotOwner = errors.New("task owned by another processor")

	// ErrWorkerPoolStopped indicates the worker pool was already stopped.
	ErrWorkerPoolStopped = errors.New("worker pool stopped")
)
