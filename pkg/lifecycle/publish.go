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
	"path"
	"path/filepath"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/oci"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/recipe"
)

// StoreDirName is the OCI layout staging folder under <workspace>/<name>/<version>.
const StoreDirName = "oci"

// PublishOptions selects where Publish sends packages.
type PublishOptions struct {
	// Reference names the registry and a namespace; each recipe is pushed
	// to <namespace>/<recipe>. A tag applies to every recipe.
	Reference *oci.Reference
	// Format is the archive format; empty uses the configured one.
	Format      string
	PlainHTTP   bool
	InsecureTLS bool
}

// PublishResult describes one pushed package.
type PublishResult struct {
	Recipe    string `json:"recipe" yaml:"recipe"`
	PackageID string `json:"packageId" yaml:"packageId"`
	Archive   string `json:"archive" yaml:"archive"`
	Reference string `json:"reference" yaml:"reference"`
	Digest    string `json:"digest" yaml:"digest"`
}

// ArchiveAll archives the package folders of the named recipes.
func (c *Creator) ArchiveAll(ctx context.Context, names []string, format string) ([]*archive.Info, error) {
	recipes, err := c.registry.Select(names)
	if err != nil {
		return nil, err
	}
	out := make([]*archive.Info, 0, len(recipes))
	for _, rcp := range recipes {
		rc, err := c.Context(rcp)
		if err != nil {
			return out, err
		}
		info, err := c.Archive(ctx, rcp, rc, c.archiveFormat(format))
		if err != nil {
			return out, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Publish pushes the packaged recipes to a registry as OCI artifacts. An
// existing archive of the package id is reused, otherwise one is written.
func (c *Creator) Publish(ctx context.Context, names []string, opts PublishOptions) ([]*PublishResult, error) {
	recipes, err := c.registry.Select(names)
	if err != nil {
		return nil, err
	}
	if opts.Reference == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "registry reference is required")
	}
	out := make([]*PublishResult, 0, len(recipes))
	for _, rcp := range recipes {
		r, err := c.publishOne(ctx, rcp, opts)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Creator) publishOne(ctx context.Context, rcp recipe.Recipe, opts PublishOptions) (*PublishResult, error) {
	d := rcp.Descriptor()
	rc, err := c.Context(rcp)
	if err != nil {
		return nil, err
	}
	rec, err := packageid.Load(rc.Layout.PackageDir())
	if err != nil {
		return nil, err
	}

	f, err := archive.ParseFormat(c.archiveFormat(opts.Format))
	if err != nil {
		return nil, err
	}
	arc := filepath.Join(rc.Layout.Root(), archive.FileName(d.Name, d.Version, rec.PackageID, f))
	if !layout.Exists(arc) {
		if _, err := c.Archive(ctx, rcp, rc, string(f)); err != nil {
			return nil, err
		}
	}

	ref := &oci.Reference{
		Registry:   opts.Reference.Registry,
		Repository: path.Join(opts.Reference.Repository, d.Name),
		Tag:        opts.Reference.Tag,
	}
	res, err := oci.PackageAndPush(ctx, oci.OutputConfig{
		Archive:     arc,
		StoreDir:    filepath.Join(rc.Layout.Root(), StoreDirName),
		Reference:   ref,
		Version:     d.Version,
		PackageID:   rec.PackageID,
		Annotations: map[string]string{oci.AnnotationRecipe: d.Name},
		PlainHTTP:   opts.PlainHTTP,
		InsecureTLS: opts.InsecureTLS,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("package published",
		slog.String("recipe", d.Name),
		slog.String("reference", res.Reference),
		slog.String("digest", res.Digest))

	return &PublishResult{
		Recipe:    d.Name,
		PackageID: rec.PackageID,
		Archive:   arc,
		Reference: res.Reference,
		Digest:    res.Digest,
	}, nil
}

func (c *Creator) archiveFormat(format string) string {
	if format != "" {
		return format
	}
	return c.cfg.ArchiveFormat()
}
