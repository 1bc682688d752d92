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

package result

import (
	"fmt"
	"strings"
	"time"

	"github.com/biovault/pkgsmith/pkg/header"
)

// Output contains the aggregated results of all recipes in a run.
type Output struct {
	header.Header `yaml:",inline"`

	// RunID identifies the run in logs and metrics.
	RunID string `json:"run_id" yaml:"run_id"`

	// Results contains individual recipe results.
	Results []*Result `json:"results" yaml:"results"`

	// TotalSize is the total size in bytes of all packaged files.
	TotalSize int64 `json:"total_size_bytes" yaml:"total_size_bytes"`

	// TotalFiles is the total count of packaged files.
	TotalFiles int `json:"total_files" yaml:"total_files"`

	// TotalDuration is the wall-clock time of the run.
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`

	// Errors contains errors from failed recipes.
	Errors []RecipeError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Workspace is the workspace root used by the run.
	Workspace string `json:"workspace" yaml:"workspace"`
}

// RecipeError represents an error from a specific recipe.
type RecipeError struct {
	Recipe string `json:"recipe" yaml:"recipe"`
	Error  string `json:"error" yaml:"error"`
}

// HasErrors returns true if any recipe failed.
func (o *Output) HasErrors() bool {
	return len(o.Errors) > 0
}

// SuccessCount returns the number of successful recipes.
func (o *Output) SuccessCount() int {
	count := 0
	for _, r := range o.Results {
		if r.Success {
			count++
		}
	}
	return count
}

// Add appends a finished recipe result and updates totals.
func (o *Output) Add(r *Result, err error) {
	o.Results = append(o.Results, r)
	o.TotalFiles += len(r.Files)
	o.TotalSize += r.Size
	if err != nil {
		o.Errors = append(o.Errors, RecipeError{Recipe: r.Recipe, Error: err.Error()})
	}
}

// ByRecipe returns results keyed by recipe name.
func (o *Output) ByRecipe() map[string]*Result {
	m := make(map[string]*Result, len(o.Results))
	for _, r := range o.Results {
		m[r.Recipe] = r
	}
	return m
}

// Summary returns a human-readable summary of the run.
func (o *Output) Summary() string {
	return fmt.Sprintf(
		"Packaged %d files (%s) in %v. Success: %d/%d recipes.",
		o.TotalFiles,
		FormatBytes(o.TotalSize),
		o.TotalDuration.Round(time.Millisecond),
		o.SuccessCount(),
		len(o.Results),
	)
}

// TableHeader names the columns of TableRows.
func (o *Output) TableHeader() []string {
	return []string{"RECIPE", "VERSION", "PACKAGE ID", "STAGES", "SIZE", "DURATION", "STATUS"}
}

// TableRows returns one row per recipe.
func (o *Output) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Results))
	for _, r := range o.Results {
		stages := make([]string, 0, len(r.Stages))
		for _, s := range r.Stages {
			switch {
			case s.Skipped:
				stages = append(stages, s.Stage+"(skipped)")
			case !s.Success:
				stages = append(stages, s.Stage+"(failed)")
			default:
				stages = append(stages, s.Stage)
			}
		}
		id := r.PackageID
		if len(id) > 12 {
			id = id[:12]
		}
		if id == "" {
			id = "-"
		}
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		rows = append(rows, []string{
			r.Recipe,
			r.Version,
			id,
			strings.Join(stages, ","),
			FormatBytes(r.Size),
			r.Duration.Round(time.Millisecond).String(),
			status,
		})
	}
	return rows
}

// FormatBytes formats bytes into human-readable format.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
