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

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DictionaryEntry maps a technology name to the keywords that detect it in
// free text. Keywords are matched case-insensitively.
type DictionaryEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Dictionary is the category-labelled keyword table the technology enricher
// scans content against. Categories follow the fixed taxonomy: languages,
// frameworks, databases, cloud, tools, libraries.
type Dictionary map[string][]DictionaryEntry

// StackRules drive the stack-coherence recommendations: technologies past
// their support window, combinations that need a mitigating counterpart,
// and frameworks that should not share one stack.
type StackRules struct {
	// Outdated lists technology names considered past end-of-life.
	Outdated []string `yaml:"outdated"`

	// RiskyCombos name a technology whose presence without its mitigation
	// warrants a recommendation.
	RiskyCombos []RiskyCombo `yaml:"riskyCombos"`

	// FrontendFrameworks are mutually redundant; more than one in a stack
	// triggers a recommendation.
	FrontendFrameworks []string `yaml:"frontendFrameworks"`

	// IncompatibleBackends are pairs that should not appear together.
	IncompatibleBackends [][]string `yaml:"incompatibleBackends"`
}

// RiskyCombo is a technology that requires a mitigating counterpart.
type RiskyCombo struct {
	Technology string `yaml:"technology"`
	Mitigation string `yaml:"mitigation"`
	Advice     string `yaml:"advice"`
}

// dictionaryFile is the on-disk YAML shape: the keyword table plus rules.
type dictionaryFile struct {
	Categories Dictionary `yaml:"categories"`
	Rules      StackRules `yaml:"rules"`
}

// LoadDictionary reads a technology dictionary and stack rules from a YAML
// file. Missing rule sections fall back to the compiled-in defaults.
func LoadDictionary(path string) (Dictionary, StackRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, StackRules{}, err
	}

	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, StackRules{}, err
	}
	if len(file.Categories) == 0 {
		return nil, StackRules{}, ErrDictionaryEmpty
	}

	rules := file.Rules
	defaults := DefaultStackRules()
	if len(rules.Outdated) == 0 {
		rules.Outdated = defaults.Outdated
	}
	if len(rules.RiskyCombos) == 0 {
		rules.RiskyCombos = defaults.RiskyCombos
	}
	if len(rules.FrontendFrameworks) == 0 {
		rules.FrontendFrameworks = defaults.FrontendFrameworks
	}
	if len(rules.IncompatibleBackends) == 0 {
		rules.IncompatibleBackends = defaults.IncompatibleBackends
	}
	return file.Categories, rules, nil
}

// DefaultDictionary returns the compiled-in keyword table used when no YAML
// dictionary is configured.
func DefaultDictionary() Dictionary {
	return Dictionary{
		"languages": {
			{Name: "Go", Keywords: []string{"golang", " go ", "go module", "goroutine"}},
			{Name: "Python", Keywords: []string{"python", "pip ", "pypi"}},
			{Name: "TypeScript", Keywords: []string{"typescript", ".ts "}},
			{Name: "JavaScript", Keywords: []string{"javascript", "node.js", "nodejs"}},
			{Name: "Rust", Keywords: []string{"rust", "cargo "}},
			{Name: "Java", Keywords: []string{"java ", "jvm", "maven", "gradle"}},
		},
		"frameworks": {
			{Name: "React", Keywords: []string{"react"}},
			{Name: "Vue", Keywords: []string{"vue"}},
			{Name: "Angular", Keywords: []string{"angular"}},
			{Name: "Svelte", Keywords: []string{"svelte"}},
			{Name: "Django", Keywords: []string{"django"}},
			{Name: "Flask", Keywords: []string{"flask"}},
			{Name: "Express", Keywords: []string{"express.js", "expressjs"}},
			{Name: "Rails", Keywords: []string{"rails", "ruby on rails"}},
			{Name: "Spring", Keywords: []string{"spring boot", "spring framework"}},
		},
		"databases": {
			{Name: "PostgreSQL", Keywords: []string{"postgres", "postgresql"}},
			{Name: "MySQL", Keywords: []string{"mysql"}},
			{Name: "SQLite", Keywords: []string{"sqlite"}},
			{Name: "MongoDB", Keywords: []string{"mongodb", "mongo "}},
			{Name: "Redis", Keywords: []string{"redis"}},
			{Name: "BadgerDB", Keywords: []string{"badger", "badgerdb"}},
		},
		"cloud": {
			{Name: "AWS", Keywords: []string{"aws", "amazon web services", "s3 bucket", "lambda function"}},
			{Name: "GCP", Keywords: []string{"gcp", "google cloud"}},
			{Name: "Azure", Keywords: []string{"azure"}},
			{Name: "Kubernetes", Keywords: []string{"kubernetes", "k8s"}},
			{Name: "Docker", Keywords: []string{"docker", "dockerfile", "container image"}},
		},
		"tools": {
			{Name: "Git", Keywords: []string{"git ", "github", "gitlab"}},
			{Name: "Terraform", Keywords: []string{"terraform"}},
			{Name: "Prometheus", Keywords: []string{"prometheus"}},
			{Name: "Grafana", Keywords: []string{"grafana"}},
		},
		"libraries": {
			{Name: "GraphQL", Keywords: []string{"graphql"}},
			{Name: "gRPC", Keywords: []string{"grpc"}},
			{Name: "OpenAPI", Keywords: []string{"openapi", "swagger"}},
			{Name: "jQuery", Keywords: []string{"jquery"}},
		},
	}
}

// DefaultStackRules returns the compiled-in stack-coherence rules.
func DefaultStackRules() StackRules {
	return StackRules{
		Outdated: []string{"jQuery", "AngularJS", "Python 2"},
		RiskyCombos: []RiskyCombo{
			{
				Technology: "Express",
				Mitigation: "Helmet",
				Advice:     "Express detected without Helmet; add security middleware.",
			},
			{
				Technology: "Flask",
				Mitigation: "Flask-Talisman",
				Advice:     "Flask detected without Talisman; add security headers middleware.",
			},
		},
		FrontendFrameworks: []string{"React", "Vue", "Angular", "Svelte"},
		IncompatibleBackends: [][]string{
			{"Django", "Flask"},
			{"Rails", "Django"},
		},
	}
}
