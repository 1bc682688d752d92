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
	"log/slog"
	"path/filepath"

	"github.com/biovault/pkgsmith/pkg/cmake"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/source"
	"github.com/biovault/pkgsmith/pkg/toolchain"
)

// CXXStandard is the C++ standard every recipe builds with.
const CXXStandard = "17"

// Base provides the lifecycle steps shared by recipes. Embed it and call
// its helpers from the Recipe methods.
type Base struct {
	desc *Descriptor
}

// NewBase returns a Base for d.
func NewBase(d *Descriptor) Base {
	return Base{desc: d}
}

// Descriptor implements Recipe.
func (b *Base) Descriptor() *Descriptor {
	return b.desc
}

// PackageID implements Recipe with the standard normalization.
func (b *Base) PackageID(info *packageid.Info) {
	StandardPackageID(info)
}

// PackageInfo implements Recipe with the standard properties.
func (b *Base) PackageInfo() map[string]any {
	return StandardPackageInfo()
}

// CheckoutDir is where the upstream repository is cloned, source/<name>.
func (b *Base) CheckoutDir(rc *Context) string {
	return filepath.Join(rc.Layout.SourceDir(), b.desc.Name)
}

// FetchSource clones the upstream at the release tag and applies patches,
// whose paths are relative to patchRoot inside the checkout.
func (b *Base) FetchSource(ctx context.Context, rc *Context, patchRoot string, patches []source.Patch) error {
	dir := b.CheckoutDir(rc)
	if err := source.Fetch(ctx, source.NewGit(rc.Runner), b.desc.Upstream, b.desc.Tag(), dir); err != nil {
		return err
	}
	if len(patches) == 0 {
		return nil
	}
	return source.ApplyPatches(filepath.Join(dir, filepath.FromSlash(patchRoot)), patches)
}

// NewToolchain returns a toolchain with the settings shared by all
// recipes: the OS generator, C++17 and BUILD_SHARED_LIBS from the shared
// option.
func (b *Base) NewToolchain(rc *Context) *toolchain.Toolchain {
	tc := toolchain.New(b.desc.Name, rc.Settings, b.desc.Configs)
	tc.Set("CMAKE_CXX_STANDARD", CXXStandard)
	tc.SetBool("BUILD_SHARED_LIBS", rc.Options.Bool(OptionShared))
	return tc
}

// WriteToolchain generates tc into the build folder.
func (b *Base) WriteToolchain(rc *Context, tc *toolchain.Toolchain) error {
	return tc.Generate(rc.Layout.BuildDir())
}

// CMake loads the persisted toolchain, checks the installed CMake supports
// its generator and returns a CMake for scriptFolder inside source/.
func (b *Base) CMake(ctx context.Context, rc *Context, scriptFolder string) (*cmake.CMake, error) {
	src := filepath.Join(rc.Layout.SourceDir(), filepath.FromSlash(scriptFolder))
	if !layout.Exists(src) {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "source not found, run the source stage first",
			map[string]any{"path": src})
	}
	tc, err := toolchain.Load(rc.Layout.BuildDir())
	if err != nil {
		return nil, err
	}
	if err := cmake.CheckGenerator(ctx, rc.Runner, tc.Generator); err != nil {
		return nil, err
	}
	return cmake.FromToolchain(rc.Runner, tc, src, rc.Layout.BuildDir(), rc.Verbose), nil
}

// ConfigureAndBuild configures once, then builds each configuration in turn.
func (b *Base) ConfigureAndBuild(ctx context.Context, rc *Context, scriptFolder string) error {
	cm, err := b.CMake(ctx, rc, scriptFolder)
	if err != nil {
		return err
	}
	if err := cm.Configure(ctx); err != nil {
		return err
	}
	return cm.BuildAll(ctx, b.desc.Configs)
}

// StagingHook runs against a configuration's staging install before its
// artifacts are copied into the package folder.
type StagingHook func(config settings.BuildConfig, staging string, report *PackageReport) error

// PackageConfigs clears the package folder, then for each configuration
// installs into install/<config>, runs hook and copies typed artifacts,
// headers and CMake package-config trees into the package folder.
func (b *Base) PackageConfigs(ctx context.Context, rc *Context, scriptFolder string, hook StagingHook) (*PackageReport, error) {
	pkgDir := rc.Layout.PackageDir()
	if err := layout.Reset(pkgDir); err != nil {
		return nil, err
	}
	cm, err := b.CMake(ctx, rc, scriptFolder)
	if err != nil {
		return nil, err
	}
	if err := cm.Configure(ctx); err != nil {
		return nil, err
	}

	report := &PackageReport{Dir: pkgDir, Files: map[settings.BuildConfig][]string{}}
	for _, cfg := range b.desc.Configs {
		staging := rc.Layout.InstallDir(cfg)
		if err := layout.Reset(staging); err != nil {
			return nil, err
		}
		if err := cm.Install(ctx, cfg, staging); err != nil {
			return nil, err
		}
		if hook != nil {
			if err := hook(cfg, staging, report); err != nil {
				return nil, err
			}
		}
		files, err := b.CopyArtifacts(rc, cfg, staging)
		if err != nil {
			return nil, err
		}
		report.Files[cfg] = files
		slog.Info("packaged configuration",
			slog.String("recipe", b.desc.Name),
			slog.String("config", string(cfg)),
			slog.Int("files", len(files)))
	}
	return report, nil
}

// configDirs maps CMake package-config locations in a staging install to
// their place in the package folder. lib/<config>/cmake collapses into
// lib/cmake so per-configuration target files sit side by side.
func configDirs(cfg settings.BuildConfig) [][2]string {
	return [][2]string{
		{layout.CMakeDir, layout.CMakeDir},
		{filepath.Join(layout.LibDir, layout.CMakeDir), filepath.Join(layout.LibDir, layout.CMakeDir)},
		{filepath.Join(layout.LibDir, string(cfg), layout.CMakeDir), filepath.Join(layout.LibDir, layout.CMakeDir)},
		{"share", "share"},
	}
}

// CopyArtifacts copies one configuration's staging install into the
// package folder and returns package-relative paths.
func (b *Base) CopyArtifacts(rc *Context, cfg settings.BuildConfig, staging string) ([]string, error) {
	pkgDir := rc.Layout.PackageDir()
	var out []string
	add := func(prefix string, files []string) {
		for _, f := range files {
			out = append(out, filepath.ToSlash(filepath.Join(prefix, f)))
		}
	}

	for _, rule := range layout.ArtifactRules(rc.Settings, cfg) {
		root := staging
		if rule.Origin == layout.FromBuild {
			root = filepath.Join(rc.Layout.BuildDir(), string(cfg))
		}
		if rule.Under != "" {
			root = filepath.Join(root, rule.Under)
		}
		target := rc.Layout.LibDir(cfg)
		if rule.Dest == layout.BinDir {
			target = rc.Layout.BinDir(cfg)
		}
		files, err := layout.Copy(root, target, rule.Patterns, false)
		if err != nil {
			return nil, err
		}
		add(filepath.Join(rule.Dest, string(cfg)), files)
	}

	headers, err := layout.Copy(filepath.Join(staging, layout.IncludeDir),
		filepath.Join(pkgDir, layout.IncludeDir), []string{"*"}, true)
	if err != nil {
		return nil, err
	}
	add(layout.IncludeDir, headers)

	for _, d := range configDirs(cfg) {
		files, err := layout.Copy(filepath.Join(staging, d[0]), filepath.Join(pkgDir, d[1]), []string{"*"}, true)
		if err != nil {
			return nil, err
		}
		add(d[1], files)
	}
	return out, nil
}
