// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
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

// Package result records what a lifecycle run did: per-recipe stage
// outcomes, the package identity, produced files, and an aggregate Output
// for all recipes in the run.
package result

import (
	"sync"
	"time"
)

// StageResult is the outcome of one lifecycle stage.
type StageResult struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Success  bool          `json:"success" yaml:"success"`
	Skipped  bool          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Note     string        `json:"note,omitempty" yaml:"note,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Result is the outcome of running one recipe.
type Result struct {
	Recipe    string         `json:"recipe" yaml:"recipe"`
	Version   string         `json:"version" yaml:"version"`
	Stages    []*StageResult `json:"stages" yaml:"stages"`
	PackageID string         `json:"package_id,omitempty" yaml:"package_id,omitempty"`
	// PackageDir is the package folder, set once packaging ran.
	PackageDir string `json:"package_dir,omitempty" yaml:"package_dir,omitempty"`
	// Archive is the archive path when one was written.
	Archive  string        `json:"archive,omitempty" yaml:"archive,omitempty"`
	Files    []string      `json:"files,omitempty" yaml:"files,omitempty"`
	Size     int64         `json:"size_bytes" yaml:"size_bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Success  bool          `json:"success" yaml:"success"`
	Errors   []string      `json:"errors,omitempty" yaml:"errors,omitempty"`

	mu sync.Mutex
}

// New returns an empty result for recipe name at version.
func New(name, version string) *Result {
	return &Result{
		Recipe:  name,
		Version: version,
		Stages:  make([]*StageResult, 0, 6),
	}
}

// AddStage appends a stage outcome.
func (r *Result) AddStage(s *StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stages = append(r.Stages, s)
	if s.Error != "" {
		r.Errors = append(r.Errors, s.Stage+": "+s.Error)
	}
}

// AddFile records a produced file and its size.
func (r *Result) AddFile(path string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files = append(r.Files, path)
	r.Size += size
}

// AddError records an error not tied to a stage.
func (r *Result) AddError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err.Error())
}

// MarkSuccess marks the recipe run as successful.
func (r *Result) MarkSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Success = true
}

// Stage returns the outcome of the named stage, or nil.
func (r *Result) Stage(name string) *StageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Stages {
		if s.Stage == name {
			return s
		}
	}
	return nil
}
