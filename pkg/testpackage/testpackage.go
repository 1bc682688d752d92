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

// Package testpackage builds and runs a minimal consumer project against a
// freshly produced package. The consumer locates the package only through
// <Name>_ROOT, so a passing run shows the relocated CMake package-config
// files are discoverable. A non-zero exit of the example is a TEST_FAILED.
package testpackage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/biovault/pkgsmith/pkg/cmake"
	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/toolchain"
)

// DefaultExecutable is the target name every consumer project builds.
const DefaultExecutable = "example"

// Project is a consumer project.
type Project struct {
	// Package is the find_package name whose <Package>_ROOT points at the package.
	Package string
	// Files maps relative paths to content (CMakeLists.txt, example.cpp).
	Files map[string][]byte
	// Executable is the built target name.
	Executable string
}

// FromFS loads every regular file under dir of fsys into a Project.
func FromFS(pkg string, fsys fs.FS, dir string) (*Project, error) {
	p := &Project{Package: pkg, Files: map[string][]byte{}, Executable: DefaultExecutable}
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), "/")
		p.Files[rel] = b
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to load consumer project", err)
	}
	if _, ok := p.Files["CMakeLists.txt"]; !ok {
		return nil, errors.New(errors.ErrCodeInternal, "consumer project has no CMakeLists.txt")
	}
	return p, nil
}

// MustFromFS is FromFS for embedded projects; it panics on error.
func MustFromFS(pkg string, fsys fs.FS, dir string) *Project {
	p, err := FromFS(pkg, fsys, dir)
	if err != nil {
		panic(err)
	}
	return p
}

// Outcome describes a consumer run.
type Outcome struct {
	Skipped bool   `json:"skipped" yaml:"skipped"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Consumer runs Projects in a scratch directory.
type Consumer struct {
	Runner   command.Runner
	Settings settings.Settings
	// Host is compared against Settings to detect cross builds.
	Host    settings.Settings
	Dir     string
	Verbose bool
}

// Run writes the project, builds its Release configuration against pkgDir,
// copies the package's shared libraries next to the executable and runs it.
// Cross builds are skipped.
func (c *Consumer) Run(ctx context.Context, p *Project, pkgDir string) (*Outcome, error) {
	if c.Settings.CrossBuilding(c.Host) {
		reason := fmt.Sprintf("cross building %s/%s on %s/%s",
			c.Settings.OS, c.Settings.Arch, c.Host.OS, c.Host.Arch)
		slog.Info("skipping consumer test", slog.String("reason", reason))
		return &Outcome{Skipped: true, Reason: reason}, nil
	}

	srcDir := filepath.Join(c.Dir, "src")
	buildDir := filepath.Join(c.Dir, "build")
	if err := layout.Reset(c.Dir); err != nil {
		return nil, err
	}
	if err := p.write(srcDir); err != nil {
		return nil, err
	}

	tc := toolchain.New(p.Package+"_test", c.Settings, []settings.BuildConfig{settings.Release})
	tc.Require(p.Package, filepath.ToSlash(pkgDir))
	if err := tc.Generate(buildDir); err != nil {
		return nil, err
	}

	cm := cmake.FromToolchain(c.Runner, tc, srcDir, buildDir, c.Verbose)
	if err := cm.Configure(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTestFailed, "consumer configure failed", err)
	}
	if err := cm.Build(ctx, settings.Release); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTestFailed, "consumer build failed", err)
	}

	exeDir := filepath.Join(buildDir, string(settings.Release))
	if err := c.copySharedLibs(pkgDir, exeDir); err != nil {
		return nil, err
	}

	exe := filepath.Join(exeDir, p.Executable+c.Settings.ExeSuffix())
	out, err := c.Runner.Output(ctx, command.Cmd{
		Name:    exe,
		Dir:     exeDir,
		Env:     []string{"LD_LIBRARY_PATH=" + exeDir, "DYLD_LIBRARY_PATH=" + exeDir},
		Timeout: defaults.ConsumerRunTimeout,
	})
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeTestFailed, "consumer example failed", err,
			map[string]any{"executable": exe})
	}
	slog.Info("consumer test passed", slog.String("package", p.Package), slog.String("output", out))
	return &Outcome{Output: out}, nil
}

func (c *Consumer) copySharedLibs(pkgDir, exeDir string) error {
	patterns := layout.SharedLibraryPatterns(c.Settings.OS)
	for _, dir := range []string{layout.BinDir, layout.LibDir} {
		src := layout.ConfigDir(pkgDir, dir, settings.Release)
		if _, err := layout.Copy(src, exeDir, patterns, false); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) write(dir string) error {
	for rel, content := range p.Files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), defaults.DirPermissions); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to create consumer directory", err)
		}
		if err := os.WriteFile(path, content, defaults.FilePermissions); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to write consumer project", err)
		}
	}
	return nil
}
