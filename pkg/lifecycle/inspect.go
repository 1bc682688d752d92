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

package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/checksum"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/recipe"
)

// Description is what `info` reports about a recipe.
type Description struct {
	Recipe    *recipe.Descriptor `json:"recipe" yaml:"recipe"`
	Settings  map[string]string  `json:"settings" yaml:"settings"`
	Options   recipe.Options     `json:"options" yaml:"options"`
	PackageID string             `json:"packageId" yaml:"packageId"`
	// Removed lists the settings the package id ignores.
	Removed   []string `json:"removed,omitempty" yaml:"removed,omitempty"`
	Workspace string   `json:"workspace" yaml:"workspace"`
	Packaged  bool     `json:"packaged" yaml:"packaged"`
}

// Describe resolves descriptor, effective settings and options, and the
// package id for the named recipes.
func (c *Creator) Describe(names []string) ([]*Description, error) {
	recipes, err := c.registry.Select(names)
	if err != nil {
		return nil, err
	}
	out := make([]*Description, 0, len(recipes))
	for _, rcp := range recipes {
		rc, err := c.Context(rcp)
		if err != nil {
			return nil, err
		}
		info := Identity(rcp, rc)
		out = append(out, &Description{
			Recipe:    rcp.Descriptor(),
			Settings:  rc.Settings.Values(),
			Options:   rc.Options,
			PackageID: info.Fingerprint(),
			Removed:   info.Removed,
			Workspace: rc.Layout.Root(),
			Packaged:  layout.Exists(rc.Layout.PackageDir()),
		})
	}
	return out, nil
}

// VerifyReport is the outcome of checking one package folder.
type VerifyReport struct {
	Recipe     string         `json:"recipe" yaml:"recipe"`
	PackageDir string         `json:"packageDir" yaml:"packageDir"`
	PackageID  string         `json:"packageId" yaml:"packageId"`
	Layout     *layout.Report `json:"layout" yaml:"layout"`
	// Corrupt lists files whose checksum no longer matches.
	Corrupt  []string        `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
	Archives []*ArchiveCheck `json:"archives,omitempty" yaml:"archives,omitempty"`
	OK       bool            `json:"ok" yaml:"ok"`
}

// ArchiveCheck is the outcome of unpacking one package archive and checking
// the unpacked tree like a package folder.
type ArchiveCheck struct {
	Path    string         `json:"path" yaml:"path"`
	Layout  *layout.Report `json:"layout,omitempty" yaml:"layout,omitempty"`
	Corrupt []string       `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
	OK      bool           `json:"ok" yaml:"ok"`
}

// Verify re-checks packaged recipes: the layout rules and, when the package
// carries checksums.txt, every file digest. Archives of the current package
// id are unpacked and checked the same way. It returns all reports and a
// NOT_FOUND error naming the recipes that failed.
func (c *Creator) Verify(ctx context.Context, names []string) ([]*VerifyReport, error) {
	recipes, err := c.registry.Select(names)
	if err != nil {
		return nil, err
	}
	var reports []*VerifyReport
	var failed []string
	for _, rcp := range recipes {
		r, err := c.verifyOne(ctx, rcp)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
		if !r.OK {
			failed = append(failed, r.Recipe)
		}
	}
	if len(failed) > 0 {
		return reports, errors.NewWithContext(errors.ErrCodeNotFound, "package verification failed",
			map[string]any{"recipes": failed})
	}
	return reports, nil
}

func (c *Creator) verifyOne(ctx context.Context, rcp recipe.Recipe) (*VerifyReport, error) {
	d := rcp.Descriptor()
	rc, err := c.Context(rcp)
	if err != nil {
		return nil, err
	}
	pkgDir := rc.Layout.PackageDir()
	rec, err := packageid.Load(pkgDir)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Recipe: d.Name, PackageDir: pkgDir, PackageID: rec.PackageID}
	report.Layout, err = layout.Verify(pkgDir, rc.Settings.OS, d.Configs, rc.Options.Bool(recipe.OptionShared))
	if report.Layout == nil {
		return nil, err
	}
	if layout.Exists(checksum.GetChecksumFilePath(pkgDir)) {
		report.Corrupt, err = checksum.VerifyChecksums(ctx, pkgDir)
		if err != nil {
			return nil, err
		}
	}
	report.OK = report.Layout.OK() && len(report.Corrupt) == 0

	for _, f := range archive.Formats {
		arc := filepath.Join(rc.Layout.Root(), archive.FileName(d.Name, d.Version, rec.PackageID, f))
		if !layout.Exists(arc) {
			continue
		}
		ac, err := c.verifyArchive(ctx, rcp, rc, arc)
		if err != nil {
			return nil, err
		}
		report.Archives = append(report.Archives, ac)
		report.OK = report.OK && ac.OK
	}

	slog.Debug("verified package",
		slog.String("recipe", d.Name),
		slog.Bool("ok", report.OK),
		slog.Int("corrupt", len(report.Corrupt)),
		slog.Int("archives", len(report.Archives)))
	return report, nil
}

// verifyArchive unpacks arc into a scratch folder next to it and applies
// the package folder checks. An archive that cannot be unpacked is reported,
// not returned as an error.
func (c *Creator) verifyArchive(ctx context.Context, rcp recipe.Recipe, rc *recipe.Context, arc string) (*ArchiveCheck, error) {
	d := rcp.Descriptor()
	tmp, err := os.MkdirTemp(rc.Layout.Root(), "verify-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create scratch folder", err)
	}
	defer os.RemoveAll(tmp)

	ac := &ArchiveCheck{Path: arc}
	if _, err := archive.Extract(ctx, arc, tmp); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		ac.Error = err.Error()
		return ac, nil
	}

	ac.Layout, err = layout.Verify(tmp, rc.Settings.OS, d.Configs, rc.Options.Bool(recipe.OptionShared))
	if ac.Layout == nil {
		return nil, err
	}
	if layout.Exists(checksum.GetChecksumFilePath(tmp)) {
		ac.Corrupt, err = checksum.VerifyChecksums(ctx, tmp)
		if err != nil {
			return nil, err
		}
	}
	ac.OK = ac.Layout.OK() && len(ac.Corrupt) == 0
	return ac, nil
}
