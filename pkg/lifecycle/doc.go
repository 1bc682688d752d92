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

// Package lifecycle runs recipe stages and turns their outcome into a
// result.Output.
//
// Stages always run in the fixed order source, generate, build, package,
// package-id, test, whatever order they were requested in. A recipe stops at
// its first failing stage and keeps whatever it produced so far. Recipes run
// concurrently up to the configured job count; with the default of one job
// the run is fully sequential.
//
// The package stage also writes pkginfo.yaml, verifies the layout, writes
// checksums.txt and, when an archive format is configured, the package
// archive.
package lifecycle
