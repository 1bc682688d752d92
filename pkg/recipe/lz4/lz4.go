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

// Package lz4 packages the LZ4 compression library.
//
// Upstream installs its CMake package-config files where lz4Targets.cmake
// computes the wrong import prefix, so the source stage defers expansion of
// the install libdir and the package stage moves cmake/ under lib/. The
// package config also gains an lz4::lz4 target aliasing the shared or
// static library.
package lz4

import (
	"context"
	"embed"
	"path/filepath"
	"strings"

	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/recipe"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/source"
	"github.com/biovault/pkgsmith/pkg/testpackage"
)

const (
	// Name is the recipe name.
	Name = "lz4"
	// Version is the packaged upstream release.
	Version = "1.10.0"

	// scriptFolder is the CMake project inside source/.
	scriptFolder = "lz4/build/cmake"
	// patchRoot is scriptFolder relative to the checkout.
	patchRoot = "build/cmake"
)

//go:embed test_package
var testPackage embed.FS

const targetsInclude = "\ninclude( \"${CMAKE_CURRENT_LIST_DIR}/lz4Targets.cmake\" )"

const lz4Target = `
if(NOT TARGET lz4::lz4)
    add_library(lz4::lz4 INTERFACE IMPORTED)
    if("@BUILD_SHARED_LIBS@")
        set_target_properties(lz4::lz4 PROPERTIES INTERFACE_LINK_LIBRARIES LZ4::lz4_shared)
    else()
        set_target_properties(lz4::lz4 PROPERTIES INTERFACE_LINK_LIBRARIES LZ4::lz4_static)
    endif()
endif()`

// Patches returns the upstream fixes applied after checkout.
func Patches() []source.Patch {
	return []source.Patch{
		{
			File:   "CMakeLists.txt",
			Old:    `set(LZ4_PKG_INSTALLDIR "${CMAKE_INSTALL_LIBDIR}/cmake/lz4")`,
			New:    `set(LZ4_PKG_INSTALLDIR "\${CMAKE_INSTALL_LIBDIR}/cmake/lz4")`,
			Reason: "defer CMAKE_INSTALL_LIBDIR expansion to install time",
		},
		{
			File:   "lz4Config.cmake.in",
			Old:    targetsInclude,
			New:    targetsInclude + lz4Target,
			Reason: "expose lz4::lz4",
		},
	}
}

func descriptor() *recipe.Descriptor {
	return &recipe.Descriptor{
		Name:     Name,
		Version:  Version,
		License:  "MIT",
		Author:   "B. van Lew b.van_lew@lumc.nl",
		URL:      "https://github.com/biovault/conan-lz4",
		Homepage: "https://github.com/lz4/lz4",
		Description: "LZ4 is lossless compression algorithm, providing compression speed > 500 MB/s " +
			"per core, scalable with multi-cores CPU.",
		Topics:   []string{"clustering", "similarity"},
		Upstream: "https://github.com/lz4/lz4.git",
		Settings: recipe.DefaultSettings,
		Options: map[string][]string{
			recipe.OptionShared:  recipe.BoolOption,
			recipe.OptionTesting: recipe.BoolOption,
		},
		DefaultOptions: map[string]string{
			recipe.OptionShared:  recipe.True,
			recipe.OptionTesting: recipe.False,
		},
		Configs: []settings.BuildConfig{settings.Debug, settings.Release, settings.RelWithDebInfo},
	}
}

func init() {
	recipe.MustRegister(Name, func(*config.Config) recipe.Recipe {
		return New()
	})
}

// Recipe packages LZ4.
type Recipe struct {
	recipe.Base
}

// New returns the LZ4 recipe.
func New() *Recipe {
	return &Recipe{Base: recipe.NewBase(descriptor())}
}

// Source implements recipe.Recipe.
func (r *Recipe) Source(ctx context.Context, rc *recipe.Context) error {
	return r.FetchSource(ctx, rc, patchRoot, Patches())
}

// Generate implements recipe.Recipe.
func (r *Recipe) Generate(_ context.Context, rc *recipe.Context) error {
	tc := r.NewToolchain(rc)
	tc.Set("BUILD_STATIC_LIBS", "True")
	return r.WriteToolchain(rc, tc)
}

// Build implements recipe.Recipe.
func (r *Recipe) Build(ctx context.Context, rc *recipe.Context) error {
	return r.ConfigureAndBuild(ctx, rc, scriptFolder)
}

// Package implements recipe.Recipe. lz4Targets.cmake resolves its import
// prefix three levels up, so the installed cmake/ tree moves to lib/cmake.
func (r *Recipe) Package(ctx context.Context, rc *recipe.Context) (*recipe.PackageReport, error) {
	report, err := r.PackageConfigs(ctx, rc, scriptFolder, nil)
	if err != nil {
		return nil, err
	}
	pkg := rc.Layout.PackageDir()
	if err := layout.Move(filepath.Join(pkg, layout.CMakeDir), filepath.Join(pkg, layout.LibDir, layout.CMakeDir)); err != nil {
		return nil, err
	}
	for cfg, files := range report.Files {
		report.Files[cfg] = relocateCMake(files)
	}
	return report, nil
}

// TestProject implements recipe.Recipe.
func (r *Recipe) TestProject() *testpackage.Project {
	return testpackage.MustFromFS("lz4", testPackage, "test_package")
}

func relocateCMake(files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		if strings.HasPrefix(f, layout.CMakeDir+"/") {
			f = layout.LibDir + "/" + f
		}
		out[i] = f
	}
	return out
}
