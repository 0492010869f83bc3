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


// Package enrich implements the insight enrichment pipeline.
//
// A draft insight passes through up to three stages in a fixed order:
// pattern matching, technology extraction, then relationship and
// supersession detection. Later stages consume fields the earlier ones
// populate, so the order holds even when stages are disabled.
//
// # Failure Isolation
//
// A stage that returns an error is logged and skipped; the pipeline never
// aborts a run. The final insight reflects every stage that succeeded.
//
// # Side Effects
//
// Stages mutate the insight in place. The only persistence a stage performs
// itself is its own explicit side effect: the technology stage upserts usage
// aggregates, and the relationship stage writes supersession links
// best-effort per candidate. Persisting the enriched insight is the
// caller's responsibility.
package enrich
