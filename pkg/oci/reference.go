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
	"fmt"
	"regexp"
	"strings"

	"github.com/distribution/reference"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// URIScheme is the URI scheme of registry targets (e.g., "oci://ghcr.io/org/repo:tag").
const URIScheme = "oci://"

// repositoryPattern is the OCI distribution-spec repository name grammar.
var repositoryPattern = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|[-]+)[a-z0-9]+)*(?:/[a-z0-9]+(?:(?:[._]|__|[-]+)[a-z0-9]+)*)*$`)

// Reference is a parsed registry target.
type Reference struct {
	// Registry is the registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository path (e.g., "biovault/lz4").
	Repository string
	// Tag is empty when none was given; callers apply a default.
	Tag string
}

// ParseReference parses registry/repository[:tag], with or without the
// oci:// scheme.
func ParseReference(target string) (*Reference, error) {
	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, digested := ref.(reference.Digested); digested {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "OCI reference must not carry a digest")
	}

	registry := reference.Domain(ref)
	repository := reference.Path(ref)
	var tag string
	if tagged, ok := ref.(reference.Tagged); ok {
		tag = tagged.Tag()
	}
	if err := ValidateRegistryReference(registry, repository); err != nil {
		return nil, err
	}
	return &Reference{Registry: registry, Repository: repository, Tag: tag}, nil
}

// ValidateRegistryReference checks a registry host and repository path.
// A leading http:// or https:// on the registry is ignored.
func ValidateRegistryReference(registry, repository string) error {
	host := stripProtocol(registry)
	if host == "" || strings.ContainsAny(host, " \t/") {
		return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid registry host %q", registry))
	}
	if !repositoryPattern.MatchString(repository) {
		return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid repository %q", repository))
	}
	return nil
}

// String returns the reference with the oci:// scheme.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}

// ImageReference returns registry/repository[:tag] without a scheme.
func (r *Reference) ImageReference() string {
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with tag.
func (r *Reference) WithTag(tag string) *Reference {
	c := *r
	c.Tag = tag
	return &c
}

// DefaultTag turns a package version and id into a tag, e.g. 1.10.0-0123456789ab.
func DefaultTag(version, packageID string) string {
	if len(packageID) > 12 {
		packageID = packageID[:12]
	}
	if packageID == "" {
		return version
	}
	return version + "-" + packageID
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}
