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

// Package cli implements the pkgsmith command-line interface.
//
// # Commands
//
//	pkgsmith list
//	pkgsmith info [RECIPE...]
//	pkgsmith source|generate|build|package|package-id|test [RECIPE...]
//	pkgsmith create [--stages a,b] [RECIPE...]
//	pkgsmith verify [RECIPE...]
//	pkgsmith archive [--archive-format tar.zst] [RECIPE...]
//	pkgsmith push --registry oci://ghcr.io/org [RECIPE...]
//
// Stage commands run one lifecycle stage; create runs all of them in order
// (source, generate, build, package, package-id, test). Omitting RECIPE
// selects every registered recipe.
//
// # Global Flags
//
//	--config FILE        Config file (default: $HOME/.pkgsmith.yaml)
//	--workspace DIR      Workspace root (env: PKGSMITH_WORKSPACE)
//	--jobs N             Recipes built concurrently
//	--set r:opt=value    Recipe option override, repeatable
//	-s key=value         Setting override (os, arch, build_type, compiler...), repeatable
//	--blas-root DIR      OpenBLAS prefix for Faiss on Windows (env: BLAS_ROOT)
//	--metrics-file FILE  Write Prometheus textfile metrics after a run
//	--log-level LEVEL    debug, info, warn, error (env: LOG_LEVEL)
//
// Precedence is flags, then environment, then the config file, then defaults.
//
// # Output
//
// Results go to stdout (or --output) as YAML by default; --format selects
// json or table. Logs are JSON on stderr.
//
// # Exit Codes
//
//	0  Success
//	1  Failure
//	2  Canceled or timed out
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/biovault/pkgsmith/pkg/cli.version=1.0.0'"
package cli
