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


// Package ai defines the embedding service abstraction.
//
// Insight derivation treats the embedding provider as an opaque
// collaborator: workers embed persisted insights so that nearest-neighbor
// lookups work, but nothing in the core depends on a particular provider.
//
// Subpackages:
//   - openai: Embedder over any OpenAI-compatible API (Ollama, LocalAI,
//     vLLM, OpenAI itself)
//   - mock: deterministic test double
//
// Configuration uses functional options:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	)
package ai
