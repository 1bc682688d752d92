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

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// ArtifactType is the media type for pkgsmith package artifacts.
const ArtifactType = "application/vnd.pkgsmith.package.v1"

// EpochTimestamp is the created annotation used when none is given,
// matching the entry times inside package archives.
const EpochTimestamp = "1970-01-01T00:00:00Z"

// Annotation keys attached to package manifests.
const (
	AnnotationRecipe    = "dev.pkgsmith.recipe"
	AnnotationPackageID = "dev.pkgsmith.package-id"
)

// PackageOptions configures packing an archive into a local OCI layout.
type PackageOptions struct {
	// Archive is the package archive to use as the only layer.
	Archive string
	// Format overrides the archive format detected from the file name.
	Format archive.Format
	// StoreDir is the OCI image layout directory; created when missing.
	StoreDir string
	// Tag names the manifest inside the layout.
	Tag string
	// Annotations are added to the manifest.
	Annotations map[string]string
	// ReproducibleTimestamp is the created annotation; defaults to EpochTimestamp.
	ReproducibleTimestamp string
}

// PackageResult describes a manifest written to a local layout.
type PackageResult struct {
	// Digest is the manifest digest.
	Digest string
	// StoreDir is the OCI image layout directory.
	StoreDir string
	// Tag is the manifest tag in the layout.
	Tag string
	// MediaType is the layer media type.
	MediaType string
}

// Package packs an archive into an OCI 1.1 artifact inside a local OCI image layout.
func Package(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	if opts.Tag == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "tag is required to package OCI artifact")
	}
	if opts.StoreDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "OCI store directory is required")
	}

	absArchive, err := filepath.Abs(opts.Archive)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to resolve archive path", err)
	}
	if _, statErr := os.Stat(absArchive); statErr != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("archive %s not found", opts.Archive), statErr)
	}

	format := opts.Format
	if format == "" {
		format, err = archive.FormatOf(absArchive)
		if err != nil {
			return nil, err
		}
	}

	// The file store is rooted at the archive folder so the layer title is the bare file name.
	fs, err := file.New(filepath.Dir(absArchive))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create file store", err)
	}
	defer func() { _ = fs.Close() }()

	layer, err := fs.Add(ctx, filepath.Base(absArchive), format.MediaType(), absArchive)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to add archive to store", err)
	}

	created := opts.ReproducibleTimestamp
	if created == "" {
		created = EpochTimestamp
	}
	annotations := map[string]string{ociv1.AnnotationCreated: created}
	for k, v := range opts.Annotations {
		annotations[k] = v
	}

	manifest, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layer},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to pack manifest", err)
	}
	if tagErr := fs.Tag(ctx, manifest, opts.Tag); tagErr != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to tag manifest in file store", tagErr)
	}

	store, err := oci.New(opts.StoreDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open OCI layout", err)
	}
	if _, err := oras.Copy(ctx, fs, opts.Tag, store, opts.Tag, oras.DefaultCopyOptions); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to copy artifact into OCI layout", err)
	}

	slog.Debug("packaged OCI artifact",
		"archive", absArchive,
		"store", opts.StoreDir,
		"tag", opts.Tag,
		"digest", manifest.Digest.String())

	return &PackageResult{
		Digest:    manifest.Digest.String(),
		StoreDir:  opts.StoreDir,
		Tag:       opts.Tag,
		MediaType: format.MediaType(),
	}, nil
}

// PushOptions configures copying a tagged artifact from a local layout to a registry.
type PushOptions struct {
	// StoreDir is the OCI image layout directory written by Package.
	StoreDir string
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g., "biovault/lz4").
	Repository string
	// Tag selects the manifest in the layout and names it in the registry.
	Tag string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string
	// Reference is the full image reference (registry/repository:tag).
	Reference string
}

// PushFromStore copies a tagged manifest and its blobs from a local OCI layout to a registry.
func PushFromStore(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.Tag == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "tag is required to push OCI artifact")
	}
	if err := ValidateRegistryReference(opts.Registry, opts.Repository); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(opts.StoreDir, ociv1.ImageLayoutFile)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("no OCI layout at %s", opts.StoreDir), err)
	}

	if defaults.OCIPushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaults.OCIPushTimeout)
		defer cancel()
	}

	store, err := oci.New(opts.StoreDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open OCI layout", err)
	}

	ref := &Reference{
		Registry:   stripProtocol(opts.Registry),
		Repository: opts.Repository,
		Tag:        opts.Tag,
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", ref.Registry, ref.Repository))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	desc, err := oras.Copy(ctx, store, opts.Tag, repo, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "push to registry timed out", err)
		}
		return nil, errors.Wrap(errors.ErrCodeUnavailable, fmt.Sprintf("failed to push %s", ref.ImageReference()), err)
	}

	slog.Info("pushed OCI artifact", "reference", ref.ImageReference(), "digest", desc.Digest.String())

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: ref.ImageReference(),
	}, nil
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credentials unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}

// OutputConfig describes a package archive and where to publish it.
type OutputConfig struct {
	// Archive is the package archive path.
	Archive string
	// StoreDir is the local OCI layout used as staging.
	StoreDir string
	// Reference is the registry target; an empty tag is derived from Version and PackageID.
	Reference *Reference
	// Version is the package version.
	Version string
	// PackageID is the package identifier.
	PackageID string
	// Annotations are added to the manifest.
	Annotations map[string]string
	// PlainHTTP uses HTTP instead of HTTPS.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PackageAndPush packs the archive into the local layout and pushes it to the registry.
func PackageAndPush(ctx context.Context, cfg OutputConfig) (*PushResult, error) {
	if cfg.Reference == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "registry reference is required")
	}
	tag := cfg.Reference.Tag
	if tag == "" {
		tag = DefaultTag(cfg.Version, cfg.PackageID)
	}

	annotations := map[string]string{}
	for k, v := range cfg.Annotations {
		annotations[k] = v
	}
	if cfg.PackageID != "" {
		annotations[AnnotationPackageID] = cfg.PackageID
	}
	if cfg.Version != "" {
		annotations[ociv1.AnnotationVersion] = cfg.Version
	}

	if _, err := Package(ctx, PackageOptions{
		Archive:     cfg.Archive,
		StoreDir:    cfg.StoreDir,
		Tag:         tag,
		Annotations: annotations,
	}); err != nil {
		return nil, err
	}

	return PushFromStore(ctx, PushOptions{
		StoreDir:    cfg.StoreDir,
		Registry:    cfg.Reference.Registry,
		Repository:  cfg.Reference.Repository,
		Tag:         tag,
		PlainHTTP:   cfg.PlainHTTP,
		InsecureTLS: cfg.InsecureTLS,
	})
}
