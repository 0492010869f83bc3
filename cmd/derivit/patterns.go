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


package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/derivit/core"
)

// patternSeed is the YAML shape of one pattern library entry.
type patternSeed struct {
	Name            string   `yaml:"name"`
	Category        string   `yaml:"category"`
	Signature       string   `yaml:"signature"`
	PatternType     string   `yaml:"pattern_type"`
	ConfidenceScore float64  `yaml:"confidence_score"`
	FrequencyCount  int      `yaml:"frequency_count"`
	Tags            []string `yaml:"tags"`
	RelatedPatterns []string `yaml:"related_patterns"`
	Keywords        []string `yaml:"keywords"`
}

type patternSeedFile struct {
	Patterns []patternSeed `yaml:"patterns"`
}

func loadPatternSeeds(path string) ([]*core.PatternRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file patternSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("%s contains no patterns", path)
	}

	records := make([]*core.PatternRecord, 0, len(file.Patterns))
	for i, seed := range file.Patterns {
		if seed.Signature == "" {
			return nil, fmt.Errorf("pattern %d (%q) has no signature", i, seed.Name)
		}
		records = append(records, &core.PatternRecord{
			Name:            seed.Name,
			Category:        seed.Category,
			Signature:       seed.Signature,
			PatternType:     seed.PatternType,
			ConfidenceScore: seed.ConfidenceScore,
			FrequencyCount:  seed.FrequencyCount,
			Tags:            seed.Tags,
			RelatedPatterns: seed.RelatedPatterns,
			Keywords:        seed.Keywords,
		})
	}
	return records, nil
}
