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


// Package search is the query engine over the insight store.
//
// Search combines AND-filtered criteria (OR within list clauses) with a
// hybrid ranking: text relevance from tokenized overlap with stop-word
// filtering, then confidence, then recency, with the insight id as the
// final tiebreaker. The order is deterministic across runs by contract.
//
// FindSimilar ranks by embedding distance instead and only covers insights
// that already carry an embedding.
package search
