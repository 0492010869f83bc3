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

import "errors"

var (
	// ErrInsightRequired indicates a nil insight was passed to the pipeline.
	ErrInsightRequired = errors.New("insight is required")

	// ErrPatternRepositoryRequired indicates a nil pattern repository.
	ErrPatternRepositoryRequired = errors.New("pattern repository is required")

	// ErrInsightRepositoryRequired indicates a nil insight repository.
	ErrInsightRepositoryRequired = errors.New("insight repository is required")

	// ErrUsageRepositoryRequired indicates a nil technology usage repository.
	ErrUsageRepositoryRequired = errors.New("technology usage repository is required")

	// ErrDictionaryEmpty indicates a technology dictionary with no entries.
	ErrDictionaryEmpty = errors.New("technology dictionary has no entries")
)
