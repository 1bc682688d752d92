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

// Package cmake drives the configure, build and install steps of a CMake
// project through a command.Runner. Steps run one at a time; the first
// failure aborts and output of earlier steps stays on disk.
package cmake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/toolchain"
	"github.com/biovault/pkgsmith/pkg/version"
)

// CMake is one source/build folder pair.
type CMake struct {
	runner    command.Runner
	sourceDir string
	buildDir  string
	generator string
	verbose   bool
}

// Option configures a CMake.
type Option func(*CMake)

// WithGenerator selects the -G generator; empty leaves the CMake default.
func WithGenerator(g string) Option {
	return func(c *CMake) {
		c.generator = g
	}
}

// WithVerbose passes --verbose to build steps.
func WithVerbose(v bool) Option {
	return func(c *CMake) {
		c.verbose = v
	}
}

// New returns a CMake for the given folders.
func New(runner command.Runner, sourceDir, buildDir string, opts ...Option) *CMake {
	c := &CMake{
		runner:    runner,
		sourceDir: sourceDir,
		buildDir:  buildDir,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromToolchain returns a CMake using the generator persisted in tc.
func FromToolchain(runner command.Runner, tc *toolchain.Toolchain, sourceDir, buildDir string, verbose bool) *CMake {
	return New(runner, sourceDir, buildDir, WithGenerator(tc.Generator), WithVerbose(verbose))
}

// BuildDir returns the build folder.
func (c *CMake) BuildDir() string {
	return c.buildDir
}

// Configure runs the configure step with the generated toolchain file.
// Re-running it on an existing build folder is safe.
func (c *CMake) Configure(ctx context.Context) error {
	args := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	args = append(args, "-DCMAKE_TOOLCHAIN_FILE="+toolchain.FilePath(c.buildDir))

	slog.Info("configuring", slog.String("source", c.sourceDir), slog.String("generator", c.generator))
	err := c.runner.Run(ctx, command.Cmd{Name: "cmake", Args: args, Timeout: defaults.CMakeConfigureTimeout})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeBuildFailed, "cmake configure failed", err,
			map[string]any{"source": c.sourceDir, "build": c.buildDir})
	}
	return nil
}

// Build builds one configuration.
func (c *CMake) Build(ctx context.Context, config settings.BuildConfig) error {
	args := []string{"--build", c.buildDir, "--config", string(config)}
	if c.verbose {
		args = append(args, "--verbose")
	}

	slog.Info("building", slog.String("config", string(config)))
	err := c.runner.Run(ctx, command.Cmd{Name: "cmake", Args: args, Timeout: defaults.CMakeBuildTimeout})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeBuildFailed, fmt.Sprintf("cmake build %s failed", config), err,
			map[string]any{"config": string(config)})
	}
	return nil
}

// Install installs one configuration under prefix.
func (c *CMake) Install(ctx context.Context, config settings.BuildConfig, prefix string) error {
	args := []string{"--install", c.buildDir, "--config", string(config), "--prefix", prefix}

	slog.Info("installing", slog.String("config", string(config)), slog.String("prefix", prefix))
	err := c.runner.Run(ctx, command.Cmd{Name: "cmake", Args: args, Timeout: defaults.CMakeInstallTimeout})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeBuildFailed, fmt.Sprintf("cmake install %s failed", config), err,
			map[string]any{"config": string(config), "prefix": prefix})
	}
	return nil
}

// BuildAll builds each configuration in order and stops at the first failure.
func (c *CMake) BuildAll(ctx context.Context, configs []settings.BuildConfig) error {
	for _, cfg := range configs {
		if err := c.Build(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the version reported by `cmake --version`.
func Version(ctx context.Context, runner command.Runner) (version.Version, error) {
	out, err := runner.Output(ctx, command.Cmd{
		Name:    "cmake",
		Args:    []string{"--version"},
		Timeout: defaults.CMakeVersionTimeout,
	})
	if err != nil {
		return version.Version{}, errors.Wrap(errors.ErrCodeToolFailed, "cmake --version failed", err)
	}
	v, err := version.ParseToolOutput(out)
	if err != nil {
		return version.Version{}, errors.Wrap(errors.ErrCodeToolFailed, "unrecognized cmake --version output", err)
	}
	return v, nil
}

// CheckVersion fails with TOOL_FAILED when the installed CMake is older than
// minimum.
func CheckVersion(ctx context.Context, runner command.Runner, minimum version.Version) error {
	v, err := Version(ctx, runner)
	if err != nil {
		return err
	}
	if !v.AtLeast(minimum) {
		return errors.NewWithContext(errors.ErrCodeToolFailed,
			fmt.Sprintf("cmake %s is older than required %s", v, minimum),
			map[string]any{"found": v.String(), "required": minimum.String()})
	}
	return nil
}

// CheckGenerator verifies the installed CMake supports generator.
func CheckGenerator(ctx context.Context, runner command.Runner, generator string) error {
	minimum, ok := toolchain.MinCMake(generator)
	if !ok {
		return nil
	}
	return CheckVersion(ctx, runner, minimum)
}
