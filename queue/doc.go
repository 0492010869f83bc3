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


// Package queue implements the durable task queue: enqueue defaults, the
// claim/complete/fail lifecycle, the retry policy, and the polling worker
// pool.
//
// # Lifecycle
//
// A task is created pending, claimed exactly once per attempt by a worker,
// and terminates in completed or failed. Pending is re-entered only as a
// scheduled retry: a failed attempt pushes scheduledFor out by
// 5min * (retryCount+1) until MaxRetries is exhausted.
//
// # Ownership and Leases
//
// A claim grants a lease (default 10 minutes). Workers that crash or stall
// past their lease lose the task to the reaper, which returns it to pending
// and counts the lost attempt against the retry budget. RetryCount therefore
// never exceeds MaxRetries before the task reaches terminal failed.
//
// # Workers
//
// WorkerPool runs N claim-and-handle loops on a shared goroutine pool. Each
// worker polls with jitter so concurrent workers spread their claim scans.
// Transient store errors are retried at the call site with exponential
// backoff and never surface as task failures.
package queue
