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

package defaults

import "time"

// Source timeouts for upstream acquisition.
const (
	// GitFetchTimeout bounds a full clone plus tag checkout.
	GitFetchTimeout = 15 * time.Minute

	// BrewQueryTimeout bounds a single `brew --prefix` query.
	BrewQueryTimeout = 30 * time.Second

	// GitCloneInterval spaces clone starts against upstream hosts.
	GitCloneInterval = 2 * time.Second

	// GitCloneBurst is the number of clones allowed to start back to back.
	GitCloneBurst = 3
)

// CMake timeouts. Large upstream projects (Faiss, oneTBB) take a long time
// to compile, so build has the most generous limit.
const (
	// CMakeConfigureTimeout is the timeout for a single configure invocation.
	CMakeConfigureTimeout = 10 * time.Minute

	// CMakeBuildTimeout is the timeout for building one configuration.
	CMakeBuildTimeout = 2 * time.Hour

	// CMakeInstallTimeout is the timeout for installing one configuration.
	CMakeInstallTimeout = 10 * time.Minute

	// CMakeVersionTimeout is the timeout for `cmake --version`.
	CMakeVersionTimeout = 10 * time.Second
)

// Consumer test timeouts.
const (
	// ConsumerBuildTimeout covers configure and build of the test project.
	ConsumerBuildTimeout = 15 * time.Minute

	// ConsumerRunTimeout is the timeout for running the example executable.
	ConsumerRunTimeout = 2 * time.Minute
)

// Distribution timeouts.
const (
	// ArchiveTimeout bounds compressing a package folder.
	ArchiveTimeout = 10 * time.Minute

	// OCIPushTimeout bounds pushing a package to a registry.
	OCIPushTimeout = 5 * time.Minute
)

// Lifecycle defaults.
const (
	// Jobs is the default number of recipes processed concurrently.
	Jobs = 1

	// WorkspaceDir is the default workspace directory name.
	WorkspaceDir = ".pkgsmith"

	// FilePermissions is the mode for files written into the workspace.
	FilePermissions = 0o644

	// DirPermissions is the mode for directories created in the workspace.
	DirPermissions = 0o755
)
