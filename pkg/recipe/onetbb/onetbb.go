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

// Package onetbb packages the oneAPI Threading Building Blocks library.
package onetbb

import (
	"context"
	"embed"

	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/recipe"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/testpackage"
)

const (
	// Name is the recipe name.
	Name = "onetbb"
	// Version is the packaged upstream release.
	Version = "2021.11.0"

	// ConfigPackage is the name consumers pass to find_package.
	ConfigPackage = "TBB"
)

//go:embed test_package
var testPackage embed.FS

func descriptor() *recipe.Descriptor {
	return &recipe.Descriptor{
		Name:        Name,
		Version:     Version,
		License:     "Apache-2.0",
		URL:         "https://github.com/biovault/conan-onetbb",
		Homepage:    "https://github.com/oneapi-src/oneTBB",
		Description: "oneAPI Threading Building Blocks, a C++ library for task based parallelism.",
		Topics:      []string{"parallelism", "threading"},
		Upstream:    "https://github.com/oneapi-src/oneTBB.git",
		Settings:    recipe.DefaultSettings,
		Options: map[string][]string{
			recipe.OptionShared:  recipe.BoolOption,
			recipe.OptionTesting: recipe.BoolOption,
		},
		DefaultOptions: map[string]string{
			recipe.OptionShared:  recipe.True,
			recipe.OptionTesting: recipe.False,
		},
		// oneTBB has no RelWithDebInfo library naming.
		Configs: []settings.BuildConfig{settings.Debug, settings.Release},
	}
}

func init() {
	recipe.MustRegister(Name, func(*config.Config) recipe.Recipe {
		return New()
	})
}

// Recipe packages oneTBB.
type Recipe struct {
	recipe.Base
}

// New returns the oneTBB recipe.
func New() *Recipe {
	return &Recipe{Base: recipe.NewBase(descriptor())}
}

// Source implements recipe.Recipe. oneTBB builds unpatched.
func (r *Recipe) Source(ctx context.Context, rc *recipe.Context) error {
	return r.FetchSource(ctx, rc, "", nil)
}

// Generate implements recipe.Recipe.
func (r *Recipe) Generate(_ context.Context, rc *recipe.Context) error {
	tc := r.NewToolchain(rc)
	tc.SetBool("TBB_TEST", rc.Options.Bool(recipe.OptionTesting))
	tc.SetBool("TBB_EXAMPLES", false)
	tc.SetBool("TBB_STRICT", false)
	return r.WriteToolchain(rc, tc)
}

// Build implements recipe.Recipe.
func (r *Recipe) Build(ctx context.Context, rc *recipe.Context) error {
	return r.ConfigureAndBuild(ctx, rc, Name)
}

// Package implements recipe.Recipe.
func (r *Recipe) Package(ctx context.Context, rc *recipe.Context) (*recipe.PackageReport, error) {
	return r.PackageConfigs(ctx, rc, Name, nil)
}

// TestProject implements recipe.Recipe.
func (r *Recipe) TestProject() *testpackage.Project {
	return testpackage.MustFromFS(ConfigPackage, testPackage, "test_package")
}
