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

// Package layout owns the on-disk shape of a recipe workspace and of the
// package folder, and the file operations that move build output from one
// to the other.
//
// Workspace for one recipe version:
//
//	<workspace>/<name>/<version>/
//	    source/            upstream checkout
//	    build/             CMake build folder and toolchain files
//	    install/<config>/  staging install per configuration
//	    package/           the consumable package
//	    test/              consumer smoke-test build
//
// Package folder:
//
//	include/
//	lib/<config>/
//	bin/<config>/
//	lib/cmake/<name>/
package layout

import (
	"os"
	"path/filepath"

	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/settings"
)

// Package folder subdirectories.
const (
	IncludeDir = "include"
	LibDir     = "lib"
	BinDir     = "bin"
	CMakeDir   = "cmake"
)

// Layout resolves the workspace paths of one recipe version.
type Layout struct {
	root string
}

// New returns the layout for name/version under workspace.
func New(workspace, name, version string) Layout {
	return Layout{root: filepath.Join(workspace, name, version)}
}

// Root returns <workspace>/<name>/<version>.
func (l Layout) Root() string { return l.root }

// SourceDir is where the upstream repository is checked out.
func (l Layout) SourceDir() string { return filepath.Join(l.root, "source") }

// BuildDir is the CMake build folder.
func (l Layout) BuildDir() string { return filepath.Join(l.root, "build") }

// InstallDir is the staging install prefix for config.
func (l Layout) InstallDir(config settings.BuildConfig) string {
	return filepath.Join(l.root, "install", string(config))
}

// PackageDir is the package folder.
func (l Layout) PackageDir() string { return filepath.Join(l.root, "package") }

// TestDir is the consumer project folder.
func (l Layout) TestDir() string { return filepath.Join(l.root, "test") }

// LibDir returns lib/<config> inside the package folder.
func (l Layout) LibDir(config settings.BuildConfig) string {
	return ConfigDir(l.PackageDir(), LibDir, config)
}

// BinDir returns bin/<config> inside the package folder.
func (l Layout) BinDir(config settings.BuildConfig) string {
	return ConfigDir(l.PackageDir(), BinDir, config)
}

// ConfigDir returns <pkgDir>/<sub>/<config>, where sub is LibDir or BinDir.
func ConfigDir(pkgDir, sub string, config settings.BuildConfig) string {
	return filepath.Join(pkgDir, sub, string(config))
}

// Reset removes dir and recreates it empty.
func Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to clear directory", err,
			map[string]any{"dir": dir})
	}
	if err := os.MkdirAll(dir, defaults.DirPermissions); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to create directory", err,
			map[string]any{"dir": dir})
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
