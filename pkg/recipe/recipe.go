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

package recipe

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/testpackage"
)

// Option names shared by all recipes.
const (
	OptionShared  = "shared"
	OptionTesting = "testing"
)

// Option values.
const (
	True  = "True"
	False = "False"
)

// Recipe is one packaged library.
type Recipe interface {
	// Descriptor returns the immutable recipe metadata.
	Descriptor() *Descriptor

	// Source checks out the upstream release and applies source patches.
	Source(ctx context.Context, rc *Context) error

	// Generate writes the toolchain and dependency files.
	Generate(ctx context.Context, rc *Context) error

	// Build configures once and builds every configuration in order.
	Build(ctx context.Context, rc *Context) error

	// Package installs every configuration and fills the package folder.
	Package(ctx context.Context, rc *Context) (*PackageReport, error)

	// PackageID normalizes the package identity.
	PackageID(info *packageid.Info)

	// PackageInfo returns properties exported to consumers.
	PackageInfo() map[string]any

	// TestProject returns the consumer smoke-test project.
	TestProject() *testpackage.Project
}

// Descriptor is the static metadata of a recipe.
type Descriptor struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	License     string   `json:"license" yaml:"license"`
	Author      string   `json:"author,omitempty" yaml:"author,omitempty"`
	URL         string   `json:"url,omitempty" yaml:"url,omitempty"`
	Homepage    string   `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Topics      []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	// Upstream is the git repository cloned by the source stage.
	Upstream string `json:"upstream" yaml:"upstream"`
	// Settings lists the identity settings the recipe declares.
	Settings []string `json:"settings" yaml:"settings"`
	// Options maps each option to its allowed values.
	Options        map[string][]string    `json:"options" yaml:"options"`
	DefaultOptions map[string]string      `json:"defaultOptions" yaml:"defaultOptions"`
	Configs        []settings.BuildConfig `json:"configs" yaml:"configs"`
}

// DefaultSettings is the settings list every recipe declares.
var DefaultSettings = []string{settings.KeyOS, settings.KeyCompiler, settings.KeyBuildType, settings.KeyArch}

// BoolOption is the allowed value list of a boolean option.
var BoolOption = []string{True, False}

// Tag returns the upstream release tag.
func (d *Descriptor) Tag() string {
	return "v" + d.Version
}

// ResolveOptions merges overrides onto the defaults and validates them.
// Boolean values are accepted in any common spelling and normalized.
func (d *Descriptor) ResolveOptions(overrides map[string]string) (Options, error) {
	opts := Options(maps.Clone(d.DefaultOptions))
	if opts == nil {
		opts = Options{}
	}
	keys := slices.Sorted(maps.Keys(overrides))
	for _, k := range keys {
		allowed, ok := d.Options[k]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("recipe %s has no option %q", d.Name, k))
		}
		v := overrides[k]
		if slices.Equal(allowed, BoolOption) {
			b, err := parseBool(v)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidRequest,
					fmt.Sprintf("option %s:%s wants a boolean, got %q", d.Name, k, v))
			}
			v = formatBool(b)
		}
		if !slices.Contains(allowed, v) {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("option %s:%s=%s not in %v", d.Name, k, v, allowed))
		}
		opts[k] = v
	}
	return opts, nil
}

// Options are resolved option values.
type Options map[string]string

// Bool reports whether a boolean option is set.
func (o Options) Bool(key string) bool {
	b, _ := parseBool(o[key])
	return b
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func formatBool(b bool) string {
	if b {
		return True
	}
	return False
}

// Context carries everything a stage needs about one recipe run.
type Context struct {
	Settings settings.Settings
	// Host is the machine running the build; it differs from Settings when
	// cross building.
	Host    settings.Settings
	Options Options
	Layout  layout.Layout
	Runner  command.Runner
	Verbose bool
}

// NewContext resolves settings, options and the workspace layout for r.
func NewContext(cfg *config.Config, d *Descriptor, runner command.Runner, host settings.Settings) (*Context, error) {
	s := host
	if err := s.Apply(cfg.SettingOverrides()); err != nil {
		return nil, err
	}
	opts, err := d.ResolveOptions(cfg.OptionOverrides(d.Name))
	if err != nil {
		return nil, err
	}
	return &Context{
		Settings: s,
		Host:     host,
		Options:  opts,
		Layout:   layout.New(cfg.Workspace(), d.Name, d.Version),
		Runner:   runner,
		Verbose:  cfg.Verbose(),
	}, nil
}

// Identity returns the full, not yet normalized, package identity.
func (rc *Context) Identity(d *Descriptor) *packageid.Info {
	return packageid.New(d.Name, d.Version, rc.Settings, rc.Options)
}

// PackageReport lists what the package stage produced.
type PackageReport struct {
	Dir string `json:"dir" yaml:"dir"`
	// Files are package-relative paths per configuration.
	Files map[settings.BuildConfig][]string `json:"files" yaml:"files"`
	// Removed lists stray files deleted from staging installs.
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// AllFiles returns every packaged file, sorted and deduplicated.
func (r *PackageReport) AllFiles() []string {
	var all []string
	for _, files := range r.Files {
		all = append(all, files...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// StandardPackageID drops build_type and, for the Visual Studio compiler,
// compiler.runtime, so one package folder serves every configuration.
func StandardPackageID(info *packageid.Info) {
	compiler := info.Setting(settings.KeyCompiler)
	info.RemoveSetting(settings.KeyBuildType)
	if compiler == settings.VisualStudio {
		info.RemoveSetting(settings.KeyCompilerRuntime)
	}
}

// StandardPackageInfo marks the package as shipping its own CMake config
// files so consumers do not get generated ones.
func StandardPackageInfo() map[string]any {
	return map[string]any{
		"skip_deps_file":    true,
		"cmake_config_file": true,
	}
}
