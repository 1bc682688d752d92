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

// Package oci publishes package archives as OCI artifacts.
//
// A package archive (see pkg/archive) becomes the single layer of an OCI 1.1
// artifact manifest. Packaging happens into a local OCI image layout first,
// then the layout is copied to a remote registry with ORAS.
//
// # Usage
//
//	ref, err := oci.ParseReference("oci://ghcr.io/biovault/lz4:1.10.0")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.PackageAndPush(ctx, oci.OutputConfig{
//	    Archive:   "/work/lz4/1.10.0/lz4-1.10.0-0123456789ab.tar.gz",
//	    StoreDir:  "/work/lz4/1.10.0/oci",
//	    Reference: ref,
//	    Version:   "1.10.0",
//	})
//
// # Authentication
//
// Credentials come from the Docker configuration (~/.docker/config.json)
// through the ORAS credentials package.
//
// # Artifact Type
//
// Manifests carry the artifact type "application/vnd.pkgsmith.package.v1".
// Layer media types follow the archive compression.
package oci
