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


package enrich

import "context"

// Source is the raw record an insight was derived from. Enrichers read its
// content but never mutate it.
type Source struct {
	SourceId   string
	SourceType string
	ProjectId  string
	Content    string
}

// SourceProvider supplies source records for enrichment. Implemented by the
// surrounding application; the pipeline treats it as an opaque collaborator.
type SourceProvider interface {
	// GetSource returns the source record for the given identifier.
	GetSource(ctx context.Context, sourceType, sourceId string) (*Source, error)
}
