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

// Package faiss packages the Faiss similarity search library.
//
// Faiss needs BLAS and LAPACK. On Windows they come from an OpenBLAS
// distribution named by BLAS_ROOT; on Macos OpenMP comes from Homebrew's
// libomp.
package faiss

import (
	"context"
	"embed"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/recipe"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/testpackage"
	"github.com/biovault/pkgsmith/pkg/toolchain"
)

const (
	// Name is the recipe name.
	Name = "faiss"
	// Version is the packaged upstream release.
	Version = "1.8.0"

	// BLASLibrary is the import library expected under BLAS_ROOT/lib.
	BLASLibrary = "libopenblas.lib"
	// OpenMPFormula is the Homebrew formula providing OpenMP on Macos.
	OpenMPFormula = "libomp"
)

//go:embed test_package
var testPackage embed.FS

func descriptor() *recipe.Descriptor {
	return &recipe.Descriptor{
		Name:        Name,
		Version:     Version,
		License:     "MIT",
		Author:      "B. van Lew b.van_lew@lumc.nl",
		URL:         "https://github.com/biovault/conan-faiss",
		Homepage:    "https://github.com/facebookresearch/faiss",
		Description: "A library for efficient similarity search and clustering of dense vectors.",
		Topics:      []string{"clustering", "similarity"},
		Upstream:    "https://github.com/facebookresearch/faiss.git",
		Settings:    recipe.DefaultSettings,
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
	recipe.MustRegister(Name, func(cfg *config.Config) recipe.Recipe {
		return New(cfg.BLASRoot())
	})
}

// Recipe packages Faiss.
type Recipe struct {
	recipe.Base
	blasRoot string
}

// New returns the Faiss recipe. blasRoot is only consulted on Windows.
func New(blasRoot string) *Recipe {
	return &Recipe{Base: recipe.NewBase(descriptor()), blasRoot: blasRoot}
}

// BLASRoot returns the BLAS distribution captured at construction.
func (r *Recipe) BLASRoot() string {
	return r.blasRoot
}

// Source implements recipe.Recipe.
func (r *Recipe) Source(ctx context.Context, rc *recipe.Context) error {
	return r.FetchSource(ctx, rc, "", nil)
}

// Generate implements recipe.Recipe.
func (r *Recipe) Generate(ctx context.Context, rc *recipe.Context) error {
	tc := r.NewToolchain(rc)
	tc.SetBool("FAISS_ENABLE_GPU", false)
	tc.SetBool("FAISS_ENABLE_PYTHON", false)
	tc.SetBool("BUILD_TESTING", rc.Options.Bool(recipe.OptionTesting))

	switch rc.Settings.OS {
	case settings.Windows:
		if err := r.wireBLAS(tc); err != nil {
			return err
		}
	case settings.Macos:
		prefix, err := toolchain.BrewPrefix(ctx, rc.Runner, OpenMPFormula)
		if err != nil {
			return err
		}
		tc.Set("OpenMP_ROOT", filepath.ToSlash(prefix))
	}
	return r.WriteToolchain(rc, tc)
}

func (r *Recipe) wireBLAS(tc *toolchain.Toolchain) error {
	if r.blasRoot == "" {
		return errors.New(errors.ErrCodeInvalidRequest,
			"BLAS_ROOT must name an OpenBLAS distribution when building faiss on Windows")
	}
	if !layout.Exists(r.blasRoot) {
		return errors.NewWithContext(errors.ErrCodeNotFound, "BLAS_ROOT does not exist",
			map[string]any{"path": r.blasRoot})
	}
	root := filepath.ToSlash(r.blasRoot)
	lib := path.Join(root, layout.LibDir, BLASLibrary)
	tc.Set("BLAS_LIBRARIES", lib)
	tc.Set("LAPACK_LIBRARIES", lib)
	tc.Require("BLAS", root)
	slog.Debug("using BLAS", slog.String("root", root), slog.String("library", lib))
	return nil
}

// Build implements recipe.Recipe.
func (r *Recipe) Build(ctx context.Context, rc *recipe.Context) error {
	return r.ConfigureAndBuild(ctx, rc, Name)
}

// Package implements recipe.Recipe. The faiss install rules leave copies of
// some files at the install root; those are removed before the typed copy.
func (r *Recipe) Package(ctx context.Context, rc *recipe.Context) (*recipe.PackageReport, error) {
	return r.PackageConfigs(ctx, rc, Name, removeStrays)
}

func removeStrays(cfg settings.BuildConfig, staging string, report *recipe.PackageReport) error {
	removed, err := layout.RemoveStrayFiles(staging)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		slog.Debug("removed stray install files",
			slog.String("config", string(cfg)),
			slog.Any("files", removed))
	}
	report.Removed = append(report.Removed, removed...)
	return nil
}

// TestProject implements recipe.Recipe.
func (r *Recipe) TestProject() *testpackage.Project {
	return testpackage.MustFromFS(Name, testPackage, "test_package")
}
