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


// Package storage provides the storage abstraction layer for derivit.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	repo, err := badger.NewTaskRepository(backend)  // returns storage.TaskRepository interface
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: base interface (transactions, lifecycle)
//   - TaskRepository: durable task queue rows, including the atomic
//     claim-with-exclusion operation
//   - InsightRepository: insight records, project lookups, embedding search
//   - TechnologyUsageRepository: merge-only technology usage aggregates
//   - PatternRepository: the read-mostly pattern library
//
// # Claim Semantics
//
// TaskRepository.ClaimNext is the storage-level primitive behind the queue's
// mutual-exclusion guarantee. Backends must implement it so that concurrent
// callers never receive the same task: the BadgerDB backend relies on
// transaction conflict detection (a lost commit means another claimer won
// the row, equivalent to skipping a locked row in SQL stores).
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
