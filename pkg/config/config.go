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

package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// Environment variables consulted by FromEnv.
const (
	EnvWorkspace = "PKGSMITH_WORKSPACE"
	EnvBLASRoot  = "BLAS_ROOT"
)

// Archive formats accepted by WithArchiveFormat. Empty disables archiving.
var archiveFormats = map[string]bool{"": true, "tar.gz": true, "tar.zst": true, "tar.lz4": true, "tar.xz": true}

// Config holds the settings shared by every recipe in a run.
// Fields are private; use the getters and the With* options.
type Config struct {
	// workspace is the root of all recipe work trees.
	workspace string

	// jobs is how many recipes run concurrently.
	jobs int

	// verbose passes --verbose to CMake builds.
	verbose bool

	// version is the pkgsmith version recorded in results.
	version string

	// blasRoot is the BLAS/LAPACK distribution root used by Faiss on Windows.
	blasRoot string

	// archiveFormat selects the package archive written after packaging.
	archiveFormat string

	// includeChecksums writes checksums.txt into the package folder.
	includeChecksums bool

	// verifyLayout checks the package folder after packaging.
	verifyLayout bool

	// settingOverrides replace detected host settings (key -> value).
	settingOverrides map[string]string

	// optionOverrides replace recipe default options.
	// Map structure: recipe -> (option -> value)
	optionOverrides map[string]map[string]string
}

// Workspace returns the workspace root.
func (c *Config) Workspace() string {
	return c.workspace
}

// Jobs returns the recipe concurrency limit.
func (c *Config) Jobs() int {
	return c.jobs
}

// Verbose returns the verbose setting.
func (c *Config) Verbose() bool {
	return c.verbose
}

// Version returns the tool version.
func (c *Config) Version() string {
	return c.version
}

// BLASRoot returns the BLAS root directory, empty when unset.
func (c *Config) BLASRoot() string {
	return c.blasRoot
}

// ArchiveFormat returns the archive format, empty when archiving is off.
func (c *Config) ArchiveFormat() string {
	return c.archiveFormat
}

// IncludeChecksums returns whether checksums.txt is written.
func (c *Config) IncludeChecksums() bool {
	return c.includeChecksums
}

// VerifyLayout returns whether the package folder is verified after packaging.
func (c *Config) VerifyLayout() bool {
	return c.verifyLayout
}

// SettingOverrides returns a copy of the settings overrides.
func (c *Config) SettingOverrides() map[string]string {
	return maps.Clone(c.settingOverrides)
}

// OptionOverrides returns a copy of the option overrides for one recipe.
func (c *Config) OptionOverrides(recipe string) map[string]string {
	return maps.Clone(c.optionOverrides[recipe])
}

// Validate checks if the Config has valid settings.
func (c *Config) Validate() error {
	if c.workspace == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "workspace cannot be empty")
	}
	if c.jobs < 1 {
		return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("jobs must be at least 1, got %d", c.jobs))
	}
	if !archiveFormats[c.archiveFormat] {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid archive format: %s (must be tar.gz, tar.zst, tar.lz4 or tar.xz)", c.archiveFormat))
	}
	return nil
}

type Option func(*Config)

// WithWorkspace sets the workspace root.
func WithWorkspace(dir string) Option {
	return func(c *Config) {
		c.workspace = dir
	}
}

// WithJobs sets how many recipes run concurrently.
func WithJobs(n int) Option {
	return func(c *Config) {
		c.jobs = n
	}
}

// WithVerbose sets whether CMake builds are verbose.
func WithVerbose(enabled bool) Option {
	return func(c *Config) {
		c.verbose = enabled
	}
}

// WithVersion sets the tool version.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.version = version
	}
}

// WithBLASRoot sets the BLAS root directory.
func WithBLASRoot(dir string) Option {
	return func(c *Config) {
		c.blasRoot = dir
	}
}

// WithArchiveFormat sets the package archive format.
func WithArchiveFormat(format string) Option {
	return func(c *Config) {
		c.archiveFormat = format
	}
}

// WithIncludeChecksums sets whether checksums.txt is written.
func WithIncludeChecksums(enabled bool) Option {
	return func(c *Config) {
		c.includeChecksums = enabled
	}
}

// WithVerifyLayout sets whether packages are verified after packaging.
func WithVerifyLayout(enabled bool) Option {
	return func(c *Config) {
		c.verifyLayout = enabled
	}
}

// WithSettingOverrides merges settings overrides.
func WithSettingOverrides(overrides map[string]string) Option {
	return func(c *Config) {
		maps.Copy(c.settingOverrides, overrides)
	}
}

// WithOptionOverrides merges per-recipe option overrides.
func WithOptionOverrides(overrides map[string]map[string]string) Option {
	return func(c *Config) {
		for recipe, opts := range overrides {
			if c.optionOverrides[recipe] == nil {
				c.optionOverrides[recipe] = make(map[string]string)
			}
			maps.Copy(c.optionOverrides[recipe], opts)
		}
	}
}

// NewConfig returns a Config with default values.
func NewConfig(options ...Option) *Config {
	c := &Config{
		workspace:        defaults.WorkspaceDir,
		jobs:             defaults.Jobs,
		version:          "dev",
		includeChecksums: true,
		verifyLayout:     true,
		settingOverrides: make(map[string]string),
		optionOverrides:  make(map[string]map[string]string),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ParseSettingOverrides parses "key=value" pairs.
func ParseSettingOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid setting %q (want key=value)", p))
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// ParseOptionOverrides parses "recipe:option=value" pairs.
func ParseOptionOverrides(pairs []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, p := range pairs {
		recipe, rest, ok := strings.Cut(p, ":")
		if !ok || recipe == "" {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid option %q (want recipe:option=value)", p))
		}
		kv, err := ParseSettingOverrides([]string{rest})
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid option %q (want recipe:option=value)", p))
		}
		if out[recipe] == nil {
			out[recipe] = make(map[string]string)
		}
		maps.Copy(out[recipe], kv)
	}
	return out, nil
}
